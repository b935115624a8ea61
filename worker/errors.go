////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package worker

import "fmt"

// InvalidOperationError is returned when an operation is called from the wrong
// side of the worker, on a worker in the wrong state, or on the worker whose
// child thread is the caller.
type InvalidOperationError struct {
	Op     string
	Reason string
}

func (e *InvalidOperationError) Error() string {
	return fmt.Sprintf("invalid operation %s: %s", e.Op, e.Reason)
}

// HandlerExecutionError is returned by PostSync when a handler on the peer
// failed.
type HandlerExecutionError struct {
	Tag Tag
	Err error
}

func (e *HandlerExecutionError) Error() string {
	return fmt.Sprintf("handler for %q failed: %s", e.Tag, e.Err)
}

func (e *HandlerExecutionError) Unwrap() error { return e.Err }

// PeerClosedError is returned when posting to a closed worker and by any
// PostSync that was waiting when the worker closed.
type PeerClosedError struct {
	Name string
}

func (e *PeerClosedError) Error() string {
	return fmt.Sprintf("worker %q is closed", e.Name)
}
