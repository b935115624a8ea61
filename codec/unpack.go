////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package codec

import (
	"encoding/json"

	"github.com/pkg/errors"

	"gitlab.com/elixxir/threadworker/utils"
)

// Unpack converts a WireValue back into a host value. Objects are returned as
// map[string]any, arrays as []any and array buffers as []byte. JSON numbers
// are decoded as float64.
//
// References are only resolved within w. A RefObject record pointing to an
// unknown ID is replaced by a *DanglingReferenceError value instead of failing
// the whole unpack. An error is only returned for malformed JSON.
func Unpack(w *WireValue) (any, error) {
	if w == nil {
		return nil, nil
	}
	u := &unpacker{refs: make(map[uint32]any)}
	return u.unpack(w)
}

// unpacker holds the reference table of a single call to Unpack.
type unpacker struct {
	refs map[uint32]any
}

func (u *unpacker) register(id uint32, v any) {
	if id > 0 {
		u.refs[id] = v
	}
}

func (u *unpacker) unpack(w *WireValue) (any, error) {
	switch w.Kind {
	case KindJSON:
		var v any
		if err := json.Unmarshal([]byte(w.JSON), &v); err != nil {
			return nil, errors.Wrap(err, "failed to JSON unmarshal value")
		}
		u.register(w.ID, v)
		return v, nil

	case KindObject:
		obj := make(map[string]any, len(w.Members))
		u.register(w.ID, obj)
		for _, m := range w.Members {
			v, err := u.unpack(m)
			if err != nil {
				return nil, errors.Wrapf(err, "member %q", m.Key)
			}
			obj[m.Key] = v
		}
		return obj, nil

	case KindArray:
		n := 0
		for _, m := range w.Members {
			if m.Index >= n {
				n = m.Index + 1
			}
		}
		arr := make([]any, n)
		u.register(w.ID, arr)
		for _, m := range w.Members {
			if m.Index < 0 {
				return nil, errors.Errorf("negative array index %d", m.Index)
			}
			v, err := u.unpack(m)
			if err != nil {
				return nil, errors.Wrapf(err, "index %d", m.Index)
			}
			arr[m.Index] = v
		}
		return arr, nil

	case KindArrayBuffer:
		b := utils.CopyBytes(w.Bytes)
		u.register(w.ID, b)
		return b, nil

	case KindRefObject:
		if v, exists := u.refs[w.Ref]; exists {
			return v, nil
		}
		return &DanglingReferenceError{ID: w.Ref}, nil

	default:
		u.register(w.ID, w.Scalar)
		return w.Scalar, nil
	}
}
