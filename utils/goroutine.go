////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package utils

import (
	"runtime"
	"sync"
)

var stackBufPool = sync.Pool{
	New: func() any {
		return make([]byte, 64)
	},
}

// GoroutineID returns the ID of the calling goroutine, parsed from the header
// of its stack trace. Returns 0 if the header cannot be parsed.
//
// It is only used to detect whether a call is made from a worker's own thread;
// it must never be used to store goroutine-local state.
func GoroutineID() int64 {
	buf := stackBufPool.Get().([]byte)
	defer stackBufPool.Put(buf) //nolint:staticcheck
	n := runtime.Stack(buf, false)
	return parseGoroutineID(buf[:n])
}

// parseGoroutineID extracts X from a stack beginning with "goroutine X [".
func parseGoroutineID(stack []byte) int64 {
	const prefix = "goroutine "
	if len(stack) <= len(prefix) || string(stack[:len(prefix)]) != prefix {
		return 0
	}

	var id int64
	for _, b := range stack[len(prefix):] {
		if b < '0' || b > '9' {
			break
		}
		id = id*10 + int64(b-'0')
	}
	return id
}
