////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package codec converts host values into the tagged-union WireValue records
// exchanged between the two sides of a worker, and back again. Object identity
// (shared references and cycles) is preserved within a single message.
package codec

import (
	"fmt"
	"strconv"
)

// Kind describes how the payload of a WireValue should be interpreted.
type Kind uint8

const (
	// KindValue carries a scalar or a native handle in WireValue.Scalar.
	KindValue Kind = iota

	// KindJSON carries a self-contained JSON document in WireValue.JSON.
	KindJSON

	// KindObject carries the keyed members of a plain object.
	KindObject

	// KindArray carries the indexed members of an array.
	KindArray

	// KindArrayBuffer carries raw bytes in WireValue.Bytes.
	KindArrayBuffer

	// KindRefObject points at a value registered earlier in the same message.
	KindRefObject

	// KindUnknown carries no payload.
	KindUnknown
)

// String returns a human-readable name for the Kind. This functions satisfies
// the fmt.Stringer interface.
func (k Kind) String() string {
	switch k {
	case KindValue:
		return "Value"
	case KindJSON:
		return "JSON"
	case KindObject:
		return "Object"
	case KindArray:
		return "Array"
	case KindArrayBuffer:
		return "ArrayBuffer"
	case KindRefObject:
		return "RefObject"
	case KindUnknown:
		return "Unknown"
	default:
		return "INVALID KIND " + strconv.Itoa(int(k))
	}
}

// WireValue is a single packed value. Only the payload field matching Kind is
// set.
type WireValue struct {
	Kind Kind

	// Scalar is the payload of KindValue and KindUnknown records. For native
	// handles it is the object reference itself; handles are only meaningful
	// inside the process that packed them.
	Scalar any

	// JSON is the payload of KindJSON records.
	JSON string

	// Members are the children of KindObject and KindArray records.
	Members []*WireValue

	// Bytes is the payload of KindArrayBuffer records.
	Bytes []byte

	// Ref is the ID targeted by a KindRefObject record.
	Ref uint32

	// ID is assigned the first time a referenceable value is packed. The
	// receiver registers the unpacked value under it so that later RefObject
	// records resolve to the same object. Zero means not registered.
	ID uint32

	// Key is the property name of an object member.
	Key string

	// Index is the position of an array member.
	Index int
}

// String returns a short description of the record used in message logs. It
// does not descend into members.
func (w *WireValue) String() string {
	if w == nil {
		return "<nil>"
	}

	var s string
	switch w.Kind {
	case KindValue:
		s = fmt.Sprintf("Value(%T)", w.Scalar)
	case KindJSON:
		s = "JSON(" + strconv.Quote(w.JSON) + ")"
	case KindObject, KindArray:
		s = w.Kind.String() + "[" + strconv.Itoa(len(w.Members)) + "]"
	case KindArrayBuffer:
		s = "ArrayBuffer[" + strconv.Itoa(len(w.Bytes)) + "]"
	case KindRefObject:
		s = "RefObject(" + strconv.FormatUint(uint64(w.Ref), 10) + ")"
	default:
		s = w.Kind.String()
	}

	if w.ID > 0 {
		s += "#" + strconv.FormatUint(uint64(w.ID), 10)
	}
	return s
}
