////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package worker

import (
	"sync"

	"github.com/emirpasic/gods/queues/linkedlistqueue"
)

// queue is an unbounded FIFO that a single consumer drains. Producers never
// block. Once closed, pushes are refused and ready stays readable forever.
type queue struct {
	items  *linkedlistqueue.Queue
	ready  chan struct{}
	closed bool
	mux    sync.Mutex
}

func newQueue() *queue {
	return &queue{
		items: linkedlistqueue.New(),
		ready: make(chan struct{}, 1),
	}
}

// push appends v to the queue. Returns false if the queue is closed.
func (q *queue) push(v any) bool {
	q.mux.Lock()
	defer q.mux.Unlock()
	if q.closed {
		return false
	}
	q.items.Enqueue(v)

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return true
}

// pop removes the oldest item. ok is false when the queue is empty; closed is
// true once the queue has been closed, in which case nothing is returned.
func (q *queue) pop() (v any, ok, closed bool) {
	q.mux.Lock()
	defer q.mux.Unlock()
	if q.closed {
		return nil, false, true
	}
	v, ok = q.items.Dequeue()
	return v, ok, false
}

// len returns the number of queued items.
func (q *queue) len() int {
	q.mux.Lock()
	defer q.mux.Unlock()
	return q.items.Size()
}

// close discards the queued items and wakes the consumer.
func (q *queue) close() {
	q.mux.Lock()
	defer q.mux.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.items.Clear()
	close(q.ready)
}
