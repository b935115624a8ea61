////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package codec

import (
	"math"
	"math/big"
	"reflect"
	"strconv"
	"unsafe"
)

// Class is the result of classifying a value before packing. It decides which
// packing strategy is used.
type Class uint8

const (
	// Plain values are scalars, or objects and arrays made only of scalars.
	// Containers whose scalars JSON carries exactly are sent as JSON.
	Plain Class = iota

	// NativeRef values contain a native handle, a byte buffer, or a container
	// that is reachable more than once. They are sent with the
	// identity-preserving packer.
	NativeRef

	// Unsupported values contain a function or a Symbol and cannot be sent.
	Unsupported
)

// String returns the name of the Class. This functions satisfies the
// fmt.Stringer interface.
func (c Class) String() string {
	switch c {
	case Plain:
		return "Plain"
	case NativeRef:
		return "NativeRef"
	case Unsupported:
		return "Unsupported"
	default:
		return "INVALID CLASS " + strconv.Itoa(int(c))
	}
}

// Symbol represents a JavaScript Symbol handed over by a script host. Symbols
// are unique to their runtime and are never transferable.
type Symbol struct {
	Description string
}

var (
	bigIntType    = reflect.TypeOf((*big.Int)(nil))
	boolType      = reflect.TypeOf(false)
	stringType    = reflect.TypeOf("")
	float64Type   = reflect.TypeOf(float64(0))
	symbolType    = reflect.TypeOf(Symbol{})
	symbolPtrType = reflect.TypeOf((*Symbol)(nil))
)

// RefKey identifies a referenceable value (a map, a non-empty slice or a
// pointer) for the duration of one pack or conversion pass.
type RefKey struct {
	ptr unsafe.Pointer
	n   int
	t   reflect.Type
}

// GetRefKey returns the identity key of v. Returns false if v has no identity
// of its own (scalars, structs, nil and empty containers).
func GetRefKey(v any) (RefKey, bool) {
	return refKeyOf(reflect.ValueOf(v))
}

func refKeyOf(rv reflect.Value) (RefKey, bool) {
	switch rv.Kind() {
	case reflect.Map, reflect.Pointer:
		if rv.IsNil() {
			return RefKey{}, false
		}
		return RefKey{ptr: rv.UnsafePointer(), t: rv.Type()}, true
	case reflect.Slice:
		if rv.Len() == 0 {
			return RefKey{}, false
		}
		return RefKey{ptr: rv.UnsafePointer(), n: rv.Len(), t: rv.Type()}, true
	case reflect.Interface:
		if rv.IsNil() {
			return RefKey{}, false
		}
		return refKeyOf(rv.Elem())
	}
	return RefKey{}, false
}

// Classify scans the value tree of v and returns its Class. Unsupported values
// are found even when a native handle was met first.
func Classify(v any) Class {
	c := newClassifier()
	c.visit(reflect.ValueOf(v), "")
	return c.class
}

// classifier holds the state of a single classification pass.
type classifier struct {
	// seen contains every container visited so far. Meeting one again means
	// the value is shared or cyclic.
	seen map[RefKey]struct{}

	class Class

	// inexact is set when a value would not come back unchanged from JSON,
	// such as integers, big.Int or non-finite floats.
	inexact bool

	// badPath and badType describe the first unsupported value found.
	badPath string
	badType string
}

func newClassifier() *classifier {
	return &classifier{seen: make(map[RefKey]struct{})}
}

func (c *classifier) mark(class Class) {
	if class > c.class {
		c.class = class
	}
}

func (c *classifier) unsupported(rv reflect.Value, path string) {
	c.class = Unsupported
	c.badPath = path
	c.badType = rv.Type().String()
}

// enter registers the container in the seen set. Returns false if it had
// already been visited.
func (c *classifier) enter(rv reflect.Value) bool {
	key, ok := refKeyOf(rv)
	if !ok {
		return true
	}
	if _, exists := c.seen[key]; exists {
		c.mark(NativeRef)
		return false
	}
	c.seen[key] = struct{}{}
	return true
}

func (c *classifier) visit(rv reflect.Value, path string) {
	if c.class == Unsupported || !rv.IsValid() {
		return
	}
	if rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return
		}
		rv = rv.Elem()
	}

	switch rv.Type() {
	case symbolType, symbolPtrType:
		c.unsupported(rv, path)
		return
	case bigIntType:
		c.inexact = c.inexact || !rv.IsNil()
		return
	case boolType, stringType:
		return
	case float64Type:
		if f := rv.Float(); math.IsNaN(f) || math.IsInf(f, 0) {
			c.inexact = true
		}
		return
	}

	switch rv.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Uint64, reflect.Uintptr, reflect.Float32, reflect.Float64:
		c.inexact = true
		return
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		c.unsupported(rv, path)
	case reflect.Slice:
		if rv.IsNil() {
			return
		} else if isBytes(rv) {
			c.mark(NativeRef)
			return
		} else if !c.enter(rv) {
			return
		}
		c.visitElements(rv, path)
	case reflect.Array:
		c.visitElements(rv, path)
	case reflect.Map:
		if rv.IsNil() {
			return
		} else if rv.Type().Key().Kind() != reflect.String {
			c.mark(NativeRef)
			return
		} else if !c.enter(rv) {
			return
		}
		iter := rv.MapRange()
		for iter.Next() {
			c.visit(iter.Value(), joinKey(path, iter.Key().String()))
			if c.class == Unsupported {
				return
			}
		}
	case reflect.Pointer:
		if !rv.IsNil() {
			c.mark(NativeRef)
		}
	default:
		// Structs, complex numbers and other host types are native handles
		c.mark(NativeRef)
	}
}

func (c *classifier) visitElements(rv reflect.Value, path string) {
	for i := 0; i < rv.Len(); i++ {
		c.visit(rv.Index(i), joinIndex(path, i))
		if c.class == Unsupported {
			return
		}
	}
}

// isBytes returns true if rv is a byte slice, which is sent as an ArrayBuffer.
func isBytes(rv reflect.Value) bool {
	return rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8
}

// isContainer returns true for the kinds that are packed as objects or arrays.
func isContainer(rv reflect.Value) bool {
	switch rv.Kind() {
	case reflect.Map, reflect.Array:
		return true
	case reflect.Slice:
		return !isBytes(rv)
	}
	return false
}

func joinKey(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func joinIndex(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}
