////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package utils

import (
	"fmt"

	"github.com/aquilax/truncate"
)

// MaxLogPayload is the number of characters of a payload kept in a log line.
const MaxLogPayload = 64

// TruncatePayload formats v for a log line, cutting the middle out of anything
// longer than MaxLogPayload.
func TruncatePayload(v any) string {
	var s string
	switch p := v.(type) {
	case nil:
		return "<nil>"
	case string:
		s = fmt.Sprintf("%q", p)
	case []byte:
		s = fmt.Sprintf("%q", p)
	case fmt.Stringer:
		s = p.String()
	default:
		s = fmt.Sprintf("%+v", p)
	}
	return truncate.Truncate(s, MaxLogPayload, "...", truncate.PositionMiddle)
}

// CopyBytes returns a copy of the byte slice. A nil slice stays nil.
func CopyBytes(src []byte) []byte {
	if src == nil {
		return nil
	}
	dst := make([]byte, len(src))
	copy(dst, src)
	return dst
}
