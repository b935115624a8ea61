////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package worker

// Tag describes how a message sent to or from the worker should be handled.
type Tag string

// Reserved tags. They are intercepted by the main Endpoint before reaching the
// handler table; handlers registered under them on the main side are only
// consulted as close hooks.
const (
	// CloseTag is posted by the child to ask the main side to dispose the
	// worker. A main-side handler returning false vetoes the close.
	CloseTag Tag = "__e_close"

	// RemoteTag carries a dotted path the child wants resolved against the
	// main side's native namespace.
	RemoteTag Tag = "__e_remote"
)

// reserved returns true if the tag is intercepted by the main Endpoint.
func (t Tag) reserved() bool {
	return t == CloseTag || t == RemoteTag
}
