////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package jsworker

import (
	"reflect"
	"strconv"

	"github.com/dop251/goja"
	jww "github.com/spf13/jwalterweatherman"

	"gitlab.com/elixxir/threadworker/codec"
	"gitlab.com/elixxir/threadworker/utils"
)

var (
	typeMap   = reflect.TypeOf(map[string]any{})
	typeSlice = reflect.TypeOf([]any{})
)

// fromJS converts a JavaScript value into the Go values the codec packs.
// Objects and arrays become map[string]any and []any; an object reached twice
// becomes the same Go value, so cycles survive. Functions are kept as Go
// functions and symbols as codec.Symbol, both of which the codec rejects.
// Numbers become float64. Wrapped Go values are exported unchanged.
func fromJS(v goja.Value) any {
	return (&importer{seen: make(map[*goja.Object]any)}).value(v)
}

type importer struct {
	seen map[*goja.Object]any
}

func (im *importer) value(v goja.Value) any {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}

	switch v := v.(type) {
	case *goja.Symbol:
		return codec.Symbol{Description: v.String()}
	case *goja.Object:
		return im.object(v)
	}

	// Numbers are doubles in JavaScript even when goja stores them as integers
	if t := v.ExportType(); t != nil {
		switch t.Kind() {
		case reflect.Int64, reflect.Float64:
			return v.ToFloat()
		}
	}
	return v.Export()
}

func (im *importer) object(obj *goja.Object) any {
	if out, exists := im.seen[obj]; exists {
		return out
	}
	if _, isFunc := goja.AssertFunction(obj); isFunc {
		return obj.Export()
	}

	switch obj.ExportType() {
	case typeMap:
		m := make(map[string]any)
		im.seen[obj] = m
		for _, key := range obj.Keys() {
			m[key] = im.value(obj.Get(key))
		}
		return m

	case typeSlice:
		if obj.ClassName() != "Array" {
			return obj.Export()
		}
		s := make([]any, obj.Get("length").ToInteger())
		im.seen[obj] = s
		for i := range s {
			s[i] = im.value(obj.Get(strconv.Itoa(i)))
		}
		return s

	default:
		if ab, ok := obj.Export().(goja.ArrayBuffer); ok {
			out := utils.CopyBytes(ab.Bytes())
			im.seen[obj] = out
			return out
		}
		return obj.Export()
	}
}

// toJS converts a value unpacked by the codec into a JavaScript value. Maps
// and slices become fresh objects and arrays, a container reached twice
// becomes the same object, byte slices become ArrayBuffers and everything else
// is wrapped by the runtime.
func toJS(vm *goja.Runtime, v any) goja.Value {
	return (&exporter{vm: vm, seen: make(map[codec.RefKey]goja.Value)}).value(v)
}

type exporter struct {
	vm   *goja.Runtime
	seen map[codec.RefKey]goja.Value
}

func (ex *exporter) value(v any) goja.Value {
	if v == nil {
		return goja.Null()
	}

	key, referenceable := codec.GetRefKey(v)
	if referenceable {
		if out, exists := ex.seen[key]; exists {
			return out
		}
	}

	switch v := v.(type) {
	case goja.Value:
		return v
	case []byte:
		out := ex.vm.ToValue(ex.vm.NewArrayBuffer(utils.CopyBytes(v)))
		ex.remember(key, referenceable, out)
		return out
	case map[string]any:
		obj := ex.vm.NewObject()
		ex.remember(key, referenceable, obj)
		for k, e := range v {
			if err := obj.Set(k, ex.value(e)); err != nil {
				jww.WARN.Printf("[WW] Failed to set property %q: %+v", k, err)
			}
		}
		return obj
	case []any:
		arr := ex.vm.NewArray()
		ex.remember(key, referenceable, arr)
		for i, e := range v {
			if err := arr.Set(strconv.Itoa(i), ex.value(e)); err != nil {
				jww.WARN.Printf("[WW] Failed to set index %d: %+v", i, err)
			}
		}
		return arr
	case error:
		out := ex.vm.NewGoError(v)
		ex.remember(key, referenceable, out)
		return out
	default:
		out := ex.vm.ToValue(v)
		ex.remember(key, referenceable, out)
		return out
	}
}

func (ex *exporter) remember(key codec.RefKey, ok bool, v goja.Value) {
	if ok {
		ex.seen[key] = v
	}
}
