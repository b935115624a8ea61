////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package worker

// MessageChannel is a pair of connected [MessagePort]. A message posted on
// Port1 is received on Port2 and the reverse. Each direction is an independent
// FIFO.
type MessageChannel struct {
	port1, port2 *MessagePort
	q1, q2       *queue
}

// NewMessageChannel returns a new MessageChannel with two connected ports.
func NewMessageChannel() *MessageChannel {
	q1, q2 := newQueue(), newQueue()
	return &MessageChannel{
		port1: &MessagePort{in: q2, out: q1},
		port2: &MessagePort{in: q1, out: q2},
		q1:    q1,
		q2:    q2,
	}
}

// Port1 returns the first port of the message channel. The main Endpoint
// owns it.
func (mc *MessageChannel) Port1() *MessagePort { return mc.port1 }

// Port2 returns the second port of the message channel. The child Endpoint
// owns it.
func (mc *MessageChannel) Port2() *MessagePort { return mc.port2 }

// Close closes both directions. Queued messages are dropped and listeners
// stop.
func (mc *MessageChannel) Close() {
	mc.q1.close()
	mc.q2.close()
}
