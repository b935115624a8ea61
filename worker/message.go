////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package worker

import (
	"strconv"

	"gitlab.com/elixxir/threadworker/codec"
)

// MessageType distinguishes the kinds of Message passed between the two sides.
type MessageType uint8

const (
	// EventMessage is a fire-and-forget message.
	EventMessage MessageType = iota

	// SyncMessage expects a ResponseMessage with the same ID.
	SyncMessage

	// ResponseMessage is the reply to a SyncMessage.
	ResponseMessage

	// EvalMessage carries a code chunk for the child to run.
	EvalMessage
)

// String returns a human-readable name for the MessageType. Used for logging.
func (mt MessageType) String() string {
	switch mt {
	case EventMessage:
		return "event"
	case SyncMessage:
		return "sync"
	case ResponseMessage:
		return "response"
	case EvalMessage:
		return "eval"
	default:
		return "INVALID MESSAGE TYPE " + strconv.Itoa(int(mt))
	}
}

// Message is the outer message that contains the contents of each message
// sent to the worker. Messages stay in process so Data may carry native
// handles; it is never serialised.
type Message struct {
	Type MessageType `json:"type"`
	Tag  Tag         `json:"tag"`
	ID   uint64      `json:"id"`

	// Data is the packed payload. It is nil when nothing was sent.
	Data *codec.WireValue `json:"data,omitempty"`

	// Err is set on a ResponseMessage when the peer's handlers failed.
	Err string `json:"err,omitempty"`

	Chunk     string `json:"chunk,omitempty"`
	ChunkName string `json:"chunkName,omitempty"`
}
