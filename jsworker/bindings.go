////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package jsworker

import (
	"strings"

	"github.com/dop251/goja"
	"github.com/pkg/errors"

	"gitlab.com/elixxir/threadworker/remote"
	"gitlab.com/elixxir/threadworker/worker"
)

// bind installs the global "worker" object for the child Endpoint and, when
// the worker was created with Params.Remote, the remote proxy root.
func (h *Host) bind(w *worker.Endpoint) error {
	vm := h.vm
	obj := vm.NewObject()

	set := func(name string, v any) error {
		return errors.Wrapf(obj.Set(name, v), "failed to set %q", name)
	}

	err := set("on", func(call goja.FunctionCall) goja.Value {
		tag := worker.Tag(call.Argument(0).String())
		fn, ok := goja.AssertFunction(call.Argument(1))
		if !ok {
			panic(vm.NewTypeError("worker.on: handler for %q is not a function", tag))
		}
		id := w.On(tag, func(data any) (any, error) {
			result, err := fn(goja.Undefined(), toJS(vm, data))
			if err != nil {
				return nil, err
			}
			return fromJS(result), nil
		})
		return vm.ToValue(uint64(id))
	})
	if err != nil {
		return err
	}

	err = set("remove", func(call goja.FunctionCall) goja.Value {
		tag := worker.Tag(call.Argument(0).String())
		id := worker.HandlerID(call.Argument(1).ToInteger())
		return vm.ToValue(w.Remove(tag, id))
	})
	if err != nil {
		return err
	}

	err = set("removeAll", func(call goja.FunctionCall) goja.Value {
		tags := make([]worker.Tag, len(call.Arguments))
		for i, arg := range call.Arguments {
			tags[i] = worker.Tag(arg.String())
		}
		w.RemoveAll(tags...)
		return goja.Undefined()
	})
	if err != nil {
		return err
	}

	err = set("post", func(call goja.FunctionCall) goja.Value {
		tag := worker.Tag(call.Argument(0).String())
		if err := w.Post(tag, fromJS(call.Argument(1))); err != nil {
			panic(vm.NewGoError(err))
		}
		return goja.Undefined()
	})
	if err != nil {
		return err
	}

	err = set("postSync", func(call goja.FunctionCall) goja.Value {
		tag := worker.Tag(call.Argument(0).String())
		throwOnError := true
		if arg := call.Argument(2); !goja.IsUndefined(arg) {
			throwOnError = arg.ToBoolean()
		}
		result, err := w.PostSync(tag, fromJS(call.Argument(1)), throwOnError)
		if err != nil {
			panic(vm.NewGoError(err))
		}
		return toJS(vm, result)
	})
	if err != nil {
		return err
	}

	err = set("stop", func(goja.FunctionCall) goja.Value {
		if err := w.Stop(); err != nil {
			panic(vm.NewGoError(err))
		}
		return goja.Undefined()
	})
	if err != nil {
		return err
	}

	if err = set("isMainThread", w.IsMain()); err != nil {
		return err
	}
	if err = set("name", w.Name()); err != nil {
		return err
	}
	if err = vm.Set("worker", obj); err != nil {
		return errors.Wrap(err, "failed to set worker")
	}

	p := w.Options()
	if !p.Remote {
		return nil
	}
	root := remote.NewProxy(w, p.RemoteRoot, p.RemoteLocal, h.locals)
	global := p.RemoteRoot[strings.LastIndex(p.RemoteRoot, ".")+1:]
	return errors.Wrapf(vm.Set(global, h.proxyObject(root.Node(p.RemoteRoot))),
		"failed to set %q", global)
}

// proxyObject returns the JavaScript object of the proxy node. The same node
// always yields the same object.
func (h *Host) proxyObject(node *remote.Proxy) *goja.Object {
	if obj, exists := h.nodes[node]; exists {
		return obj
	}
	obj := h.vm.NewDynamicObject(&proxyObject{h: h, node: node})
	h.nodes[node] = obj
	return obj
}

// proxyObject resolves property reads through a remote proxy node.
type proxyObject struct {
	h    *Host
	node *remote.Proxy
}

func (o *proxyObject) Get(key string) goja.Value {
	m, err := o.node.Lookup(key)
	if err != nil {
		panic(o.h.vm.NewGoError(err))
	}
	if m.Node != nil {
		return o.h.proxyObject(m.Node)
	}
	return toJS(o.h.vm, m.Value)
}

func (o *proxyObject) Set(string, goja.Value) bool { return false }

func (o *proxyObject) Has(key string) bool {
	_, err := o.node.Lookup(key)
	return err == nil
}

func (o *proxyObject) Delete(string) bool { return false }

func (o *proxyObject) Keys() []string { return nil }
