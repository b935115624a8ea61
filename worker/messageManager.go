////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package worker

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"

	"gitlab.com/elixxir/threadworker/utils"
)

// initID is the ID of the first sync message sent by a messageManager.
const initID = uint64(1)

// messageManager manages the sending and receiving of messages on one side of
// a worker.
type messageManager struct {
	// The port the messages are sent and received on.
	port *MessagePort

	// replies are the reply slots of in-flight sync messages keyed on their
	// ID. Each slot is buffered so a response never blocks the responder.
	replies map[uint64]chan *Message

	// responseID is the next ID to assign to a sync message. The IDs are used
	// to connect a reply to the original message.
	responseID uint64

	// name describes the side. It is used for debugging and logging purposes.
	name string

	Params

	mux sync.Mutex
}

// initMessageManager initialises a new empty messageManager.
func initMessageManager(name string, port *MessagePort, p Params) *messageManager {
	return &messageManager{
		port:       port,
		replies:    make(map[uint64]chan *Message),
		responseID: initID,
		name:       name,
		Params:     p,
	}
}

// sendMessage posts the message to the peer.
func (mm *messageManager) sendMessage(msg *Message) error {
	if mm.MessageLogging {
		jww.DEBUG.Printf("[WW] [%s] Sending %s message for %q and ID %d: %s",
			mm.name, msg.Type, msg.Tag, msg.ID, utils.TruncatePayload(msg.Data))
	}

	return mm.port.PostMessage(msg)
}

// receiveResponse places the response in its reply slot. Returns an error if no
// call is waiting on the ID, which happens when the caller has timed out.
func (mm *messageManager) receiveResponse(msg *Message) error {
	if mm.MessageLogging {
		jww.DEBUG.Printf("[WW] [%s] Received response for %q and ID %d: %s",
			mm.name, msg.Tag, msg.ID, utils.TruncatePayload(msg.Data))
	}

	slot, err := mm.getReplySlot(msg.ID)
	if err != nil {
		return err
	}
	slot <- msg
	return nil
}

// messageReception hands received messages to the thread in the order they
// arrive. It returns once the events channel is closed or quit is triggered.
func (mm *messageManager) messageReception(events <-chan *Message,
	quit <-chan struct{}, cancel context.CancelFunc, thread Thread,
	dispatch func(msg *Message)) {
	jww.INFO.Printf("[WW] [%s] Starting message reception thread.", mm.name)
	defer cancel()
	for {
		select {
		case <-quit:
			jww.INFO.Printf(
				"[WW] [%s] Quitting message reception thread.", mm.name)
			return
		case msg, ok := <-events:
			if !ok {
				jww.INFO.Printf("[WW] [%s] Message port closed; quitting "+
					"message reception thread.", mm.name)
				return
			}

			if mm.MessageLogging {
				jww.DEBUG.Printf("[WW] [%s] Received %s message for %q and "+
					"ID %d: %s", mm.name, msg.Type, msg.Tag, msg.ID,
					utils.TruncatePayload(msg.Data))
			}

			if !thread.Submit(func() { dispatch(msg) }) {
				jww.WARN.Printf("[WW] [%s] Dropped %s message for %q: "+
					"thread no longer accepts tasks.", mm.name, msg.Type, msg.Tag)
			}
		}
	}
}

// registerReplySlot registers a new reply slot under a new unique ID. Returns
// the ID and the slot. This function is thread safe.
func (mm *messageManager) registerReplySlot() (uint64, chan *Message) {
	mm.mux.Lock()
	defer mm.mux.Unlock()
	id := mm.getNextID()
	slot := make(chan *Message, 1)
	mm.replies[id] = slot
	return id, slot
}

// getReplySlot returns the reply slot for the ID and deletes it or returns an
// error if no slot is found. This function is thread safe.
func (mm *messageManager) getReplySlot(id uint64) (chan *Message, error) {
	mm.mux.Lock()
	defer mm.mux.Unlock()
	slot, exists := mm.replies[id]
	if !exists {
		return nil, errors.Errorf("no reply slot found for ID %d", id)
	}
	delete(mm.replies, id)
	return slot, nil
}

// deleteReplySlot removes the reply slot for the ID if it still exists. This
// function is thread safe.
func (mm *messageManager) deleteReplySlot(id uint64) {
	mm.mux.Lock()
	defer mm.mux.Unlock()
	delete(mm.replies, id)
}

// getNextID returns the next unique ID. This function is not thread-safe.
func (mm *messageManager) getNextID() uint64 {
	id := mm.responseID
	mm.responseID++
	return id
}
