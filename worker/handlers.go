////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package worker

import (
	"math"
	"reflect"
	"sync"

	"github.com/pkg/errors"
)

// Handler is called with the unpacked data of a message received for the tag
// it is registered on. On the sync path its result is packed and returned to
// the caller.
type Handler func(data any) (any, error)

// HandlerID identifies a registered Handler so it can be removed.
type HandlerID uint64

type handlerEntry struct {
	id HandlerID
	fn Handler
}

// handlerTable is the list of handlers of an Endpoint keyed on tag. Handlers of
// one tag are kept in registration order. This structure is thread safe.
type handlerTable struct {
	tags   map[Tag][]handlerEntry
	nextID HandlerID
	mux    sync.Mutex
}

func newHandlerTable() *handlerTable {
	return &handlerTable{tags: make(map[Tag][]handlerEntry)}
}

// add registers the handler and returns its ID.
func (ht *handlerTable) add(tag Tag, fn Handler) HandlerID {
	ht.mux.Lock()
	defer ht.mux.Unlock()
	ht.nextID++
	ht.tags[tag] = append(ht.tags[tag], handlerEntry{ht.nextID, fn})
	return ht.nextID
}

// remove unregisters the handler with the ID. Returns false if it was not
// registered on the tag.
func (ht *handlerTable) remove(tag Tag, id HandlerID) bool {
	ht.mux.Lock()
	defer ht.mux.Unlock()
	entries := ht.tags[tag]
	for i := range entries {
		if entries[i].id == id {
			entries = append(entries[:i:i], entries[i+1:]...)
			if len(entries) == 0 {
				delete(ht.tags, tag)
			} else {
				ht.tags[tag] = entries
			}
			return true
		}
	}
	return false
}

// removeAll removes every handler on the given tags, or on all tags if none
// are given.
func (ht *handlerTable) removeAll(tags ...Tag) {
	ht.mux.Lock()
	defer ht.mux.Unlock()
	if len(tags) == 0 {
		ht.tags = make(map[Tag][]handlerEntry)
		return
	}
	for _, tag := range tags {
		delete(ht.tags, tag)
	}
}

// get returns a copy of the handlers on the tag.
func (ht *handlerTable) get(tag Tag) []Handler {
	ht.mux.Lock()
	defer ht.mux.Unlock()
	entries := ht.tags[tag]
	fns := make([]Handler, len(entries))
	for i := range entries {
		fns[i] = entries[i].fn
	}
	return fns
}

// callHandler calls fn and converts a panic into an error.
func callHandler(fn Handler, data any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, errors.Errorf("handler panicked: %v", r)
		}
	}()
	return fn(data)
}

// invokeAll calls every handler in order and folds the results: a truthy
// result replaces the previous one. The first error stops the calls.
func invokeAll(fns []Handler, data any) (result any, err error) {
	for _, fn := range fns {
		r, err := callHandler(fn, data)
		if err != nil {
			return nil, err
		}
		if truthy(r) {
			result = r
		}
	}
	return result, nil
}

// truthy reports whether v counts as a result when folding handler results.
// nil, false, zero numbers, NaN and the empty string do not.
func truthy(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.String:
		return rv.Len() > 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f != 0 && !math.IsNaN(f)
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return !rv.IsNil()
	default:
		return true
	}
}
