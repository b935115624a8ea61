////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package codec

import "fmt"

// UnsupportedValueError is returned by Pack when the value contains something
// that cannot cross a worker boundary, such as a function or a Symbol.
type UnsupportedValueError struct {
	// Path is the dotted location of the offending value, empty for the root.
	Path string

	// Type is the Go type of the offending value.
	Type string
}

// Error returns the error message.
func (e *UnsupportedValueError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("unsupported value of type %s", e.Type)
	}
	return fmt.Sprintf("unsupported value of type %s at %q", e.Type, e.Path)
}

// DanglingReferenceError is produced in place of a value when a RefObject
// record points to an ID that was never registered in the same message. It is
// returned in-band by Unpack and never as the error result.
type DanglingReferenceError struct {
	ID uint32
}

// Error returns the error message.
func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("ref id %d not found", e.ID)
}
