////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package worker

import (
	"sync"

	"github.com/pkg/errors"
)

// Host is the child execution context of a worker. Its [Thread] is the child
// thread: every child handler, entry point and eval chunk runs on it.
type Host interface {
	Thread

	// Run launches the entry point with the child Endpoint. It is called on
	// the host thread.
	Run(w *Endpoint, entry string) error

	// Eval runs a code chunk. It is called on the host thread.
	Eval(chunk, chunkName string) error

	// Close stops the host thread. It must not be called from the host thread.
	Close()
}

// Resolver resolves dotted paths against a native namespace.
type Resolver interface {
	// Resolve returns the value at the path. Returns false if the path does not
	// name a transferable value.
	Resolve(path string) (any, bool)
}

// EntryFunc is a Go entry point of a child. It typically registers handlers on
// the child Endpoint and returns.
type EntryFunc func(w *Endpoint) error

// EvalFunc runs a chunk in a [GoHost].
type EvalFunc func(w *Endpoint, chunk, chunkName string) error

// GoHost is a [Host] whose entry points are Go functions registered by name.
type GoHost struct {
	*TaskLoop

	entries map[string]EntryFunc
	eval    EvalFunc

	// w is the child Endpoint passed to Run.
	w *Endpoint

	mux sync.Mutex
}

// NewGoHost starts a new GoHost with the given entry points.
func NewGoHost(name string, entries map[string]EntryFunc) *GoHost {
	if entries == nil {
		entries = make(map[string]EntryFunc)
	}
	return &GoHost{
		TaskLoop: NewTaskLoop(name),
		entries:  entries,
	}
}

// SetEval sets the function that runs eval chunks.
func (h *GoHost) SetEval(fn EvalFunc) {
	h.mux.Lock()
	defer h.mux.Unlock()
	h.eval = fn
}

// Run calls the entry point registered under the name.
func (h *GoHost) Run(w *Endpoint, entry string) error {
	h.mux.Lock()
	fn, exists := h.entries[entry]
	h.w = w
	h.mux.Unlock()
	if !exists {
		return errors.Errorf("no entry point %q", entry)
	}
	return fn(w)
}

// Eval runs the chunk with the function set by SetEval.
func (h *GoHost) Eval(chunk, chunkName string) error {
	h.mux.Lock()
	fn, w := h.eval, h.w
	h.mux.Unlock()
	if fn == nil {
		return errors.Errorf("cannot eval %q: no eval function set", chunkName)
	}
	return fn(w, chunk, chunkName)
}

// Close stops the host thread.
func (h *GoHost) Close() {
	h.TaskLoop.Stop()
}
