////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package worker

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"

	"gitlab.com/elixxir/threadworker/codec"
	"gitlab.com/elixxir/threadworker/utils"
)

// State is the lifecycle state of a worker.
type State uint8

const (
	Unstarted State = iota
	Running
	Closed
)

// String returns a human-readable name for the State. Used for logging and
// debugging.
func (s State) String() string {
	switch s {
	case Unstarted:
		return "unstarted"
	case Running:
		return "running"
	case Closed:
		return "closed"
	default:
		return "INVALID STATE " + strconv.Itoa(int(s))
	}
}

// instance is the state shared by the two Endpoints of one worker.
type instance struct {
	id       uuid.UUID
	name     string
	host     Host
	resolver Resolver

	// loop is the main side's thread. Main handlers run on it.
	loop    *TaskLoop
	channel *MessageChannel

	state State

	// done is closed when the worker closes. It wakes every pending PostSync.
	done chan struct{}

	mux sync.Mutex
}

func (inst *instance) getState() State {
	inst.mux.Lock()
	defer inst.mux.Unlock()
	return inst.state
}

// close disposes the worker. Only the first call has any effect.
func (inst *instance) close() {
	inst.mux.Lock()
	if inst.state == Closed {
		inst.mux.Unlock()
		return
	}
	inst.state = Closed
	inst.mux.Unlock()

	jww.INFO.Printf("[WW] [%s] Closing worker %s.", inst.name, inst.id)

	deregister(inst.id)
	close(inst.done)
	inst.channel.Close()
	inst.loop.Stop()
	if inst.host.OnThread() {
		go inst.host.Close()
	} else {
		inst.host.Close()
	}
}

// Endpoint is one side of a worker. The main Endpoint is returned by [New];
// the child Endpoint is passed to the entry point by the [Host].
type Endpoint struct {
	*messageManager

	handlers *handlerTable

	// thread is where received messages are dispatched.
	thread Thread

	peer *Endpoint
	inst *instance

	mainThread bool
}

// New creates a worker whose child runs on the host and returns its main
// Endpoint. The resolver answers remote path lookups from the child and may be
// nil. The worker does nothing until [Endpoint.Start] is called.
func New(host Host, resolver Resolver, p Params) (*Endpoint, error) {
	if host == nil {
		return nil, errors.New("cannot create worker without a host")
	}
	if p.Name == "" {
		p.Name = DefaultParams().Name
	}
	if p.RemoteRoot == "" {
		p.RemoteRoot = DefaultParams().RemoteRoot
	}

	inst := &instance{
		id:       uuid.New(),
		name:     p.Name,
		host:     host,
		resolver: resolver,
		loop:     NewTaskLoop(p.Name + " main"),
		channel:  NewMessageChannel(),
		done:     make(chan struct{}),
	}

	main := &Endpoint{
		messageManager: initMessageManager(p.Name, inst.channel.Port1(), p),
		handlers:       newHandlerTable(),
		thread:         inst.loop,
		inst:           inst,
		mainThread:     true,
	}
	child := &Endpoint{
		messageManager: initMessageManager(
			p.Name+" child", inst.channel.Port2(), p),
		handlers: newHandlerTable(),
		thread:   host,
		inst:     inst,
	}
	main.peer, child.peer = child, main

	// Start thread to process messages from the child
	main.listen()

	register(main)
	jww.INFO.Printf("[WW] [%s] Created worker %s.", p.Name, inst.id)

	return main, nil
}

// listen starts the message reception thread of the Endpoint.
func (e *Endpoint) listen() {
	ctx, cancel := context.WithCancel(context.Background())
	events := e.port.Listen(ctx)
	go e.messageReception(events, e.inst.done, cancel, e.thread, e.dispatch)
}

// Start runs the entry point on the child thread. It may only be called once,
// from the main side, and not from the worker's own child thread.
func (e *Endpoint) Start(entry string) error {
	if err := e.checkMainOp("Start"); err != nil {
		return err
	}

	inst := e.inst
	inst.mux.Lock()
	if inst.state != Unstarted {
		state := inst.state
		inst.mux.Unlock()
		return errors.WithStack(
			&InvalidOperationError{"Start", "worker is " + state.String()})
	}
	inst.state = Running
	inst.mux.Unlock()

	child := e.peer
	ok := inst.host.Submit(func() {
		jww.INFO.Printf("[WW] [%s] Running entry point %q.", child.name, entry)
		if err := inst.host.Run(child, entry); err != nil {
			jww.ERROR.Printf("[WW] [%s] Entry point %q failed: %+v",
				child.name, entry, err)
		}
	})
	if !ok {
		inst.close()
		return errors.Errorf("failed to start worker %q: host thread stopped",
			inst.name)
	}

	// Start thread to process messages from the main side. Messages posted
	// before Start are dispatched after the entry point.
	child.listen()

	return nil
}

// Stop on the main side clears its handlers and disposes the worker. On the
// child side it asks the main side to close the worker, which main-side
// handlers on [CloseTag] may veto.
func (e *Endpoint) Stop() error {
	if !e.mainThread {
		return e.Post(CloseTag, nil)
	}

	e.handlers.removeAll()
	e.inst.close()
	return nil
}

// Post packs the data and sends it to the peer's handlers for the tag. It
// returns immediately. Data that cannot be packed is rejected before anything
// is sent.
func (e *Endpoint) Post(tag Tag, data any) error {
	w, err := packData(data)
	if err != nil {
		return err
	}

	if e.inst.getState() == Closed {
		return errors.WithStack(&PeerClosedError{e.inst.name})
	}

	err = e.sendMessage(&Message{Type: EventMessage, Tag: tag, Data: w})
	if err != nil {
		return errors.WithStack(&PeerClosedError{e.inst.name})
	}
	return nil
}

// PostSync packs the data, sends it to the peer's handlers for the tag and
// blocks until they return. Returns the unpacked result of the handlers.
//
// If a peer handler fails, a [HandlerExecutionError] is returned when
// throwOnError is set; otherwise the result is nil. If the worker closes while
// waiting, a [PeerClosedError] is returned. A slow peer handler stalls the
// caller for as long as it runs, up to Params.ResponseTimeout when set.
func (e *Endpoint) PostSync(tag Tag, data any, throwOnError bool) (any, error) {
	w, err := packData(data)
	if err != nil {
		return nil, err
	}

	switch e.inst.getState() {
	case Unstarted:
		return nil, errors.WithStack(
			&InvalidOperationError{"PostSync", "worker is not started"})
	case Closed:
		return nil, errors.WithStack(&PeerClosedError{e.inst.name})
	}

	id, slot := e.registerReplySlot()
	defer e.deleteReplySlot(id)

	err = e.sendMessage(&Message{Type: SyncMessage, Tag: tag, ID: id, Data: w})
	if err != nil {
		return nil, errors.WithStack(&PeerClosedError{e.inst.name})
	}

	var timeout <-chan time.Time
	if e.ResponseTimeout > 0 {
		timer := time.NewTimer(e.ResponseTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case resp := <-slot:
		return e.handleResponse(resp, throwOnError)
	case <-e.inst.done:
		// A response delivered before the close still counts
		select {
		case resp := <-slot:
			return e.handleResponse(resp, throwOnError)
		default:
		}
		return nil, errors.WithStack(&PeerClosedError{e.inst.name})
	case <-timeout:
		return nil, errors.Errorf("timed out after %s waiting for response "+
			"to %q and ID %d", e.ResponseTimeout, tag, id)
	}
}

// Eval sends a code chunk to the child to be run by the [Host]. It returns
// immediately; failures are logged on the child. It may only be called from
// the main side and not from the worker's own child thread.
func (e *Endpoint) Eval(chunk, chunkName string) error {
	if err := e.checkMainOp("Eval"); err != nil {
		return err
	}
	if e.inst.getState() == Closed {
		return errors.WithStack(&PeerClosedError{e.inst.name})
	}

	err := e.sendMessage(
		&Message{Type: EvalMessage, Chunk: chunk, ChunkName: chunkName})
	if err != nil {
		return errors.WithStack(&PeerClosedError{e.inst.name})
	}
	return nil
}

// On registers the handler for the tag and returns its ID. Handlers on one tag
// run in registration order. A nil handler or empty tag is ignored and 0 is
// returned.
func (e *Endpoint) On(tag Tag, fn Handler) HandlerID {
	if tag == "" || fn == nil {
		return 0
	}
	if tag.reserved() && !(e.mainThread && tag == CloseTag) {
		jww.WARN.Printf("[WW] [%s] Registering handler on reserved tag %q.",
			e.name, tag)
	}

	id := e.handlers.add(tag, fn)
	jww.DEBUG.Printf("[WW] [%s] Registered handler %d for tag %q.",
		e.name, id, tag)
	return id
}

// Remove unregisters the handler. Returns false if it was not registered on
// the tag.
func (e *Endpoint) Remove(tag Tag, id HandlerID) bool {
	return e.handlers.remove(tag, id)
}

// RemoveAll unregisters every handler on the tags, or on every tag if none are
// given.
func (e *Endpoint) RemoveAll(tags ...Tag) {
	e.handlers.removeAll(tags...)
}

// IsMain returns true for the main side.
func (e *Endpoint) IsMain() bool { return e.mainThread }

// State returns the lifecycle state of the worker.
func (e *Endpoint) State() State { return e.inst.getState() }

// Name returns the name of the Endpoint.
func (e *Endpoint) Name() string { return e.name }

// ID returns the unique ID of the worker. Both sides share it.
func (e *Endpoint) ID() uuid.UUID { return e.inst.id }

// Options returns the parameters the worker was created with.
func (e *Endpoint) Options() Params { return e.Params }

// Done returns a channel that is closed when the worker closes.
func (e *Endpoint) Done() <-chan struct{} { return e.inst.done }

// checkMainOp returns an InvalidOperationError if the Endpoint is not the main
// side or if the caller is running on the worker's own child thread.
func (e *Endpoint) checkMainOp(op string) error {
	if !e.mainThread {
		return errors.WithStack(
			&InvalidOperationError{op, "called on the child side"})
	}
	if e.inst.host.OnThread() {
		return errors.WithStack(
			&InvalidOperationError{op, "called from the worker's own thread"})
	}
	return nil
}

// dispatch handles a message received from the peer. It runs on the
// Endpoint's thread.
func (e *Endpoint) dispatch(msg *Message) {
	switch msg.Type {
	case EvalMessage:
		if e.mainThread {
			jww.ERROR.Printf("[WW] [%s] Cannot eval chunk %q on the main "+
				"side.", e.name, msg.ChunkName)
			return
		}
		if err := e.inst.host.Eval(msg.Chunk, msg.ChunkName); err != nil {
			jww.ERROR.Printf("[WW] [%s] Failed to eval chunk %q: %+v",
				e.name, msg.ChunkName, err)
		}

	case EventMessage, SyncMessage:
		if e.mainThread && msg.Tag == CloseTag {
			e.handleClose(msg)
			return
		}

		var result any
		var err error
		if e.mainThread && msg.Tag == RemoteTag {
			result, err = e.handleRemote(msg)
		} else {
			result, err = e.handle(msg)
		}

		if msg.Type == SyncMessage {
			e.sendResponse(msg, result, err)
		} else if err != nil {
			jww.ERROR.Printf("[WW] [%s] Handler for %q failed: %+v",
				e.name, msg.Tag, err)
		}

	default:
		jww.ERROR.Printf("[WW] [%s] Cannot handle %s message for %q.",
			e.name, msg.Type, msg.Tag)
	}
}

// handle calls the handlers registered on the message's tag.
func (e *Endpoint) handle(msg *Message) (any, error) {
	fns := e.handlers.get(msg.Tag)
	if len(fns) == 0 {
		if e.MessageLogging {
			jww.DEBUG.Printf("[WW] [%s] No handlers found for tag %q.",
				e.name, msg.Tag)
		}
		return nil, nil
	}

	data, err := codec.Unpack(msg.Data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to unpack data for %q", msg.Tag)
	}

	return invokeAll(fns, data)
}

// handleClose runs the close hooks and disposes the worker unless one of them
// returned false. A sync caller receives whether the worker is closing.
func (e *Endpoint) handleClose(msg *Message) {
	var err error
	closing := true
	if fns := e.handlers.get(CloseTag); len(fns) > 0 {
		var data any
		data, err = codec.Unpack(msg.Data)
		for i := 0; err == nil && i < len(fns); i++ {
			var r any
			r, err = callHandler(fns[i], data)
			if veto, ok := r.(bool); ok && !veto {
				closing = false
			}
		}
	}
	if err != nil {
		jww.ERROR.Printf("[WW] [%s] Close hook failed: %+v", e.name, err)
		closing = false
	}

	if closing {
		jww.INFO.Printf("[WW] [%s] Child requested close.", e.name)
	} else {
		jww.INFO.Printf("[WW] [%s] Child close request vetoed.", e.name)
	}

	if msg.Type == SyncMessage {
		e.sendResponse(msg, closing, err)
	}

	if closing {
		if err = e.Stop(); err != nil {
			jww.ERROR.Printf("[WW] [%s] Failed to close worker: %+v", e.name, err)
		}
	}
}

// handleRemote resolves the dotted path in the message against the main
// side's native namespace. Returns nil if the path does not name a
// transferable value.
func (e *Endpoint) handleRemote(msg *Message) (any, error) {
	data, err := codec.Unpack(msg.Data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to unpack remote path")
	}

	path, ok := data.(string)
	if !ok || e.inst.resolver == nil {
		return nil, nil
	}

	v, ok := e.inst.resolver.Resolve(path)
	if !ok {
		return nil, nil
	}
	return v, nil
}

// sendResponse packs the result into a response and places it in the reply
// slot of the waiting peer. A failure is sent as an error string.
func (e *Endpoint) sendResponse(req *Message, result any, err error) {
	resp := &Message{Type: ResponseMessage, Tag: req.Tag, ID: req.ID}
	if err == nil && result != nil {
		resp.Data, err = codec.Pack(result)
	}
	if err != nil {
		jww.ERROR.Printf("[WW] [%s] Handler for %q and ID %d failed: %+v",
			e.name, req.Tag, req.ID, err)
		resp.Data, resp.Err = nil, err.Error()
	}

	if e.MessageLogging {
		jww.DEBUG.Printf("[WW] [%s] Sending reply for %q and ID %d: %s",
			e.name, resp.Tag, resp.ID, utils.TruncatePayload(resp.Data))
	}

	if err = e.peer.receiveResponse(resp); err != nil {
		jww.WARN.Printf("[WW] [%s] Failed to deliver reply for %q and ID %d: "+
			"%+v", e.name, resp.Tag, resp.ID, err)
	}
}

// handleResponse converts a response into the result of PostSync.
func (e *Endpoint) handleResponse(resp *Message, throwOnError bool) (any, error) {
	if resp.Err != "" {
		if !throwOnError {
			return nil, nil
		}
		return nil, errors.WithStack(
			&HandlerExecutionError{resp.Tag, errors.New(resp.Err)})
	}

	result, err := codec.Unpack(resp.Data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to unpack response to %q", resp.Tag)
	}
	return result, nil
}

// packData packs the data unless it is nil.
func packData(data any) (*codec.WireValue, error) {
	if data == nil {
		return nil, nil
	}
	return codec.Pack(data)
}
