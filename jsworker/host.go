////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package jsworker hosts the child side of a worker in a JavaScript runtime.
// The child thread is a goja event loop; entry points are CommonJS modules
// loaded through a require registry and reach the worker through the global
// "worker" object.
package jsworker

import (
	"sync"
	"sync/atomic"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/eventloop"
	"github.com/dop251/goja_nodejs/require"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"

	"gitlab.com/elixxir/threadworker/utils"
	"gitlab.com/elixxir/threadworker/worker"
)

// Host is a [worker.Host] backed by a goja event loop.
type Host struct {
	loop     *eventloop.EventLoop
	registry *require.Registry

	// vm is the loop's runtime. It is only touched on the loop.
	vm *goja.Runtime

	// id is the goroutine ID of the loop.
	id atomic.Int64

	// locals resolves the always-local paths of the remote proxy.
	locals worker.Resolver

	// nodes are the JavaScript objects of the remote proxy nodes.
	nodes map[any]*goja.Object

	name      string
	closeOnce sync.Once
}

// Option configures a Host.
type Option func(*hostConfig)

type hostConfig struct {
	name    string
	loader  require.SourceLoader
	locals  worker.Resolver
	modules map[string]require.ModuleLoader
}

// WithName sets the name used in the host's logs.
func WithName(name string) Option {
	return func(c *hostConfig) { c.name = name }
}

// WithSourceLoader sets the loader used to read module sources. The default
// reads them from the file system.
func WithSourceLoader(loader require.SourceLoader) Option {
	return func(c *hostConfig) { c.loader = loader }
}

// WithLocals sets the resolver of the paths the remote proxy resolves in the
// child.
func WithLocals(locals worker.Resolver) Option {
	return func(c *hostConfig) { c.locals = locals }
}

// WithNativeModule registers a Go module that scripts can require by name.
func WithNativeModule(name string, loader require.ModuleLoader) Option {
	return func(c *hostConfig) { c.modules[name] = loader }
}

// NewHost starts a new event loop and returns its Host.
func NewHost(opts ...Option) (*Host, error) {
	c := hostConfig{
		name:    "js",
		loader:  require.DefaultSourceLoader,
		modules: make(map[string]require.ModuleLoader),
	}
	for _, opt := range opts {
		opt(&c)
	}

	registry := require.NewRegistry(require.WithLoader(c.loader))
	registry.RegisterNativeModule(
		console.ModuleName, console.RequireWithPrinter(printer{c.name}))
	for name, loader := range c.modules {
		registry.RegisterNativeModule(name, loader)
	}

	h := &Host{
		loop: eventloop.NewEventLoop(
			eventloop.WithRegistry(registry),
			eventloop.EnableConsole(true),
		),
		registry: registry,
		locals:   c.locals,
		nodes:    make(map[any]*goja.Object),
		name:     c.name,
	}
	h.loop.Start()

	// Capture the runtime and the loop goroutine ID
	started := make(chan struct{})
	ok := h.loop.RunOnLoop(func(vm *goja.Runtime) {
		h.vm = vm
		h.id.Store(utils.GoroutineID())
		close(started)
	})
	if !ok {
		h.loop.Stop()
		return nil, errors.New("failed to start event loop")
	}
	<-started

	jww.INFO.Printf("[WW] [%s] Started JavaScript host.", h.name)
	return h, nil
}

// Submit runs the task on the event loop. A panic in the task is logged.
func (h *Host) Submit(task func()) bool {
	return h.loop.RunOnLoop(func(*goja.Runtime) {
		defer func() {
			if r := recover(); r != nil {
				jww.ERROR.Printf("[WW] [%s] Task panicked: %v", h.name, r)
			}
		}()
		task()
	})
}

// OnThread returns true if called from the event loop.
func (h *Host) OnThread() bool {
	return h.id.Load() == utils.GoroutineID()
}

// Run installs the worker bindings and requires the entry module.
func (h *Host) Run(w *worker.Endpoint, entry string) error {
	if err := h.bind(w); err != nil {
		return errors.Wrap(err, "failed to install worker bindings")
	}

	req, ok := goja.AssertFunction(h.vm.Get("require"))
	if !ok {
		return errors.New("require is not a function")
	}
	if _, err := req(goja.Undefined(), h.vm.ToValue(entry)); err != nil {
		return errors.Wrapf(err, "failed to require %q", entry)
	}
	return nil
}

// Eval compiles and runs the chunk.
func (h *Host) Eval(chunk, chunkName string) error {
	if chunkName == "" {
		chunkName = "chunk"
	}
	prg, err := goja.Compile(chunkName, chunk, false)
	if err != nil {
		return errors.Wrapf(err, "failed to compile %q", chunkName)
	}
	if _, err = h.vm.RunProgram(prg); err != nil {
		return errors.Wrapf(err, "failed to run %q", chunkName)
	}
	return nil
}

// Close stops the event loop.
func (h *Host) Close() {
	h.closeOnce.Do(func() {
		h.loop.Stop()
		jww.INFO.Printf("[WW] [%s] Stopped JavaScript host.", h.name)
	})
}

// printer routes the console of the scripts to the log.
type printer struct {
	name string
}

func (p printer) Log(s string)   { jww.INFO.Printf("[WW] [%s] %s", p.name, s) }
func (p printer) Warn(s string)  { jww.WARN.Printf("[WW] [%s] %s", p.name, s) }
func (p printer) Error(s string) { jww.ERROR.Printf("[WW] [%s] %s", p.name, s) }
