////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package worker

import (
	"context"
	"reflect"
	"testing"
	"time"
)

// Unit test of initMessageManager.
func Test_initMessageManager(t *testing.T) {
	port := NewMessageChannel().Port1()
	expected := &messageManager{
		port:       port,
		replies:    make(map[uint64]chan *Message),
		responseID: initID,
		name:       "name",
		Params:     DefaultParams(),
	}

	received := initMessageManager(expected.name, port, expected.Params)

	if !reflect.DeepEqual(expected, received) {
		t.Errorf("Unexpected messageManager.\nexpected: %+v\nreceived: %+v",
			expected, received)
	}
}

// Tests that messageManager.getNextID returns consecutive IDs starting at
// initID.
func Test_messageManager_getNextID(t *testing.T) {
	mm := initMessageManager("", nil, DefaultParams())

	for i := initID; i < 100; i++ {
		id := mm.getNextID()
		if id != i {
			t.Errorf("Unexpected ID.\nexpected: %d\nreceived: %d", i, id)
		}
	}
}

// Tests that a response placed with messageManager.receiveResponse arrives in
// the slot registered with messageManager.registerReplySlot and that the slot
// is removed afterwards.
func Test_messageManager_receiveResponse(t *testing.T) {
	mm := initMessageManager("", nil, DefaultParams())

	id, slot := mm.registerReplySlot()
	if id != initID {
		t.Errorf("Unexpected ID.\nexpected: %d\nreceived: %d", initID, id)
	}

	expected := &Message{Type: ResponseMessage, Tag: "tag", ID: id}
	if err := mm.receiveResponse(expected); err != nil {
		t.Fatalf("Failed to receive response: %+v", err)
	}

	select {
	case received := <-slot:
		if received != expected {
			t.Errorf("Unexpected response.\nexpected: %+v\nreceived: %+v",
				expected, received)
		}
	default:
		t.Errorf("Response not placed in slot.")
	}

	if err := mm.receiveResponse(expected); err == nil {
		t.Errorf("Receiving a second response for ID %d did not fail.", id)
	}
}

// Tests that messageManager.deleteReplySlot drops the slot.
func Test_messageManager_deleteReplySlot(t *testing.T) {
	mm := initMessageManager("", nil, DefaultParams())
	id, _ := mm.registerReplySlot()
	mm.deleteReplySlot(id)

	if _, err := mm.getReplySlot(id); err == nil {
		t.Errorf("Found reply slot %d after it was deleted.", id)
	}
}

// Tests that messageManager.messageReception dispatches received messages on
// the thread in order.
func Test_messageManager_messageReception(t *testing.T) {
	mc := NewMessageChannel()
	defer mc.Close()
	mm := initMessageManager("", mc.Port2(), DefaultParams())
	tl := NewTaskLoop("test")
	defer tl.Stop()

	quit := make(chan struct{})
	defer close(quit)
	ctx, cancel := context.WithCancel(context.Background())
	received := make(chan uint64, 3)
	go mm.messageReception(mm.port.Listen(ctx), quit, cancel, tl,
		func(msg *Message) {
			if !tl.OnThread() {
				t.Errorf("Message %d dispatched off the thread.", msg.ID)
			}
			received <- msg.ID
		})

	for i := uint64(1); i <= 3; i++ {
		_ = mc.Port1().PostMessage(&Message{ID: i})
	}

	for i := uint64(1); i <= 3; i++ {
		select {
		case id := <-received:
			if id != i {
				t.Errorf("Message dispatched out of order."+
					"\nexpected: %d\nreceived: %d", i, id)
			}
		case <-time.After(time.Second):
			t.Fatalf("Timed out waiting for message %d.", i)
		}
	}
}
