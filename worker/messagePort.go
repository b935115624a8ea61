////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package worker

import (
	"context"

	"github.com/pkg/errors"
)

// MessagePort is one end of a [MessageChannel]. Messages posted on a port are
// received in order by the listener of the other port.
type MessagePort struct {
	in, out *queue
}

// PostMessage sends a message from the port. It never blocks. Returns an error
// if the channel has been closed.
func (mp *MessagePort) PostMessage(msg *Message) error {
	if !mp.out.push(msg) {
		return errors.New("message port closed")
	}
	return nil
}

// Listen returns all messages received on the port on the returned channel.
// The channel is closed when the context is cancelled or the port is closed.
func (mp *MessagePort) Listen(ctx context.Context) <-chan *Message {
	events := make(chan *Message)
	go func() {
		defer close(events)
		for {
			v, ok, closed := mp.in.pop()
			switch {
			case closed:
				return
			case ok:
				select {
				case events <- v.(*Message):
				case <-ctx.Done():
					return
				}
			default:
				select {
				case <-mp.in.ready:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return events
}

// Pending returns the number of messages waiting to be received on the port.
func (mp *MessagePort) Pending() int {
	return mp.in.len()
}
