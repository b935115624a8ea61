////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package codec

import (
	"encoding/json"
	"reflect"
	"sort"

	"github.com/pkg/errors"

	"gitlab.com/elixxir/threadworker/utils"
)

// initID is the first ID assigned in each pack.
const initID = 1

// Pack converts v into a WireValue.
//
// Scalars are carried as they are. Plain containers holding only strings,
// bools and finite float64 values are encoded as JSON; other plain containers
// and values classified as NativeRef are packed member by member, and every
// container or handle reached more than once is replaced after its first
// occurrence by a RefObject record. Returns an UnsupportedValueError if v
// contains a function or a Symbol.
func Pack(v any) (*WireValue, error) {
	c := newClassifier()
	rv := reflect.ValueOf(v)
	c.visit(rv, "")

	switch c.class {
	case Plain:
		rv = elem(rv)
		if !rv.IsValid() || !isContainer(rv) {
			return &WireValue{Kind: KindValue, Scalar: scalarOf(rv)}, nil
		}
		if !c.inexact {
			data, err := json.Marshal(v)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to JSON marshal %T", v)
			}
			return &WireValue{Kind: KindJSON, JSON: string(data)}, nil
		}
		fallthrough
	case NativeRef:
		p := &packer{refs: make(map[RefKey]uint32), next: initID}
		return p.pack(rv), nil
	default:
		return nil, errors.WithStack(
			&UnsupportedValueError{Path: c.badPath, Type: c.badType})
	}
}

// packer is the identity-preserving packer. A packer is used for exactly one
// call to Pack.
type packer struct {
	// refs maps every referenceable value already packed to its ID.
	refs map[RefKey]uint32

	// next is the next ID to assign.
	next uint32
}

func (p *packer) pack(rv reflect.Value) *WireValue {
	rv = elem(rv)
	if !rv.IsValid() || isNil(rv) || isScalar(rv) {
		return &WireValue{Kind: KindValue, Scalar: scalarOf(rv)}
	}

	key, hasKey := refKeyOf(rv)
	if hasKey {
		if id, exists := p.refs[key]; exists {
			return &WireValue{Kind: KindRefObject, Ref: id}
		}
	}

	id := p.next
	p.next++
	if hasKey {
		p.refs[key] = id
	}

	switch {
	case isBytes(rv):
		return &WireValue{
			Kind: KindArrayBuffer, Bytes: utils.CopyBytes(rv.Bytes()), ID: id}

	case rv.Kind() == reflect.Slice, rv.Kind() == reflect.Array:
		members := make([]*WireValue, rv.Len())
		for i := range members {
			members[i] = p.pack(rv.Index(i))
			members[i].Index = i
		}
		return &WireValue{Kind: KindArray, Members: members, ID: id}

	case rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String:
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return keys[i].String() < keys[j].String()
		})
		members := make([]*WireValue, len(keys))
		for i, k := range keys {
			members[i] = p.pack(rv.MapIndex(k))
			members[i].Key = k.String()
		}
		return &WireValue{Kind: KindObject, Members: members, ID: id}

	default:
		// Native handle; the reference itself crosses the boundary
		return &WireValue{Kind: KindValue, Scalar: rv.Interface(), ID: id}
	}
}

// elem unwraps interface values.
func elem(rv reflect.Value) reflect.Value {
	for rv.IsValid() && rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return reflect.Value{}
		}
		rv = rv.Elem()
	}
	return rv
}

func isNil(rv reflect.Value) bool {
	switch rv.Kind() {
	case reflect.Map, reflect.Pointer, reflect.Slice:
		return rv.IsNil()
	}
	return false
}

func isScalar(rv reflect.Value) bool {
	if rv.Type() == bigIntType {
		return true
	}
	switch rv.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Uint64, reflect.Uintptr, reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// scalarOf returns the payload of a KindValue record. Nil containers and
// pointers are sent as nil.
func scalarOf(rv reflect.Value) any {
	if !rv.IsValid() || isNil(rv) {
		return nil
	}
	return rv.Interface()
}
