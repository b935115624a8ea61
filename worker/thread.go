////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package worker

import (
	"sync/atomic"

	jww "github.com/spf13/jwalterweatherman"

	"gitlab.com/elixxir/threadworker/utils"
)

// Thread is a single-threaded execution context. Tasks submitted to it run one
// at a time in submission order.
type Thread interface {
	// Submit queues the task. Returns false if the thread no longer accepts
	// tasks.
	Submit(task func()) bool

	// OnThread returns true if the caller is running on the thread.
	OnThread() bool
}

// TaskLoop is a [Thread] backed by one goroutine.
type TaskLoop struct {
	tasks *queue

	// id is the goroutine ID of the loop. It is zero until the loop starts.
	id atomic.Int64

	// done is closed once the loop goroutine returns.
	done chan struct{}

	// name describes the loop. It is used for debugging and logging purposes.
	name string
}

// NewTaskLoop starts a new TaskLoop.
func NewTaskLoop(name string) *TaskLoop {
	tl := &TaskLoop{
		tasks: newQueue(),
		done:  make(chan struct{}),
		name:  name,
	}

	// Start thread to process tasks
	go tl.processThread()

	return tl
}

// Submit queues the task to run on the loop.
func (tl *TaskLoop) Submit(task func()) bool {
	return tl.tasks.push(task)
}

// OnThread returns true if called from the loop goroutine.
func (tl *TaskLoop) OnThread() bool {
	return tl.id.Load() == utils.GoroutineID()
}

// Stop stops the loop. Queued tasks that have not started are dropped. Stop
// does not wait for a running task, so it is safe to call from the loop.
func (tl *TaskLoop) Stop() {
	tl.tasks.close()
}

// Done returns a channel that is closed once the loop has exited.
func (tl *TaskLoop) Done() <-chan struct{} {
	return tl.done
}

// processThread runs queued tasks sequentially.
func (tl *TaskLoop) processThread() {
	tl.id.Store(utils.GoroutineID())
	defer close(tl.done)

	jww.INFO.Printf("[WW] [%s] Starting task loop.", tl.name)
	for {
		v, ok, closed := tl.tasks.pop()
		switch {
		case closed:
			jww.INFO.Printf("[WW] [%s] Quitting task loop.", tl.name)
			return
		case ok:
			tl.run(v.(func()))
		default:
			<-tl.tasks.ready
		}
	}
}

// run calls the task. A panic is logged and does not stop the loop.
func (tl *TaskLoop) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			jww.ERROR.Printf("[WW] [%s] Task panicked: %v", tl.name, r)
		}
	}()
	task()
}
