////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package logging

import (
	"sort"
	"sync"

	jww "github.com/spf13/jwalterweatherman"
)

// logListeners contains all registered log listeners keyed on a unique ID that
// can be used to remove the listener once it has been added. This global keeps
// track of all listeners that are registered to jwalterweatherman logging.
var logListeners = newLogListenerList()

type logListenerList struct {
	listeners map[uint64]jww.LogListener
	currentID uint64
	sync.Mutex
}

func newLogListenerList() *logListenerList {
	return &logListenerList{
		listeners: make(map[uint64]jww.LogListener),
		currentID: 0,
	}
}

// AddLogListener registers the log listener with jwalterweatherman. Returns a
// unique ID that can be used to remove the listener.
func AddLogListener(ll jww.LogListener) uint64 {
	logListeners.Lock()
	defer logListeners.Unlock()

	id := logListeners.addLogListener(ll)
	jww.SetLogListeners(logListeners.toSlice()...)
	return id
}

// RemoveLogListener unregisters the log listener with the ID from
// jwalterweatherman.
func RemoveLogListener(id uint64) {
	logListeners.Lock()
	defer logListeners.Unlock()

	logListeners.removeLogListener(id)
	jww.SetLogListeners(logListeners.toSlice()...)
}

// addLogListener adds the listener to the list and returns its unique ID.
func (lll *logListenerList) addLogListener(ll jww.LogListener) uint64 {
	id := lll.currentID
	lll.currentID++
	lll.listeners[id] = ll

	return id
}

// removeLogListener removes the listener with the specified ID from the list.
func (lll *logListenerList) removeLogListener(id uint64) {
	delete(lll.listeners, id)
}

// toSlice returns the listeners in the order they were added so that they can
// be registered with jwalterweatherman.SetLogListeners.
func (lll *logListenerList) toSlice() []jww.LogListener {
	ids := make([]uint64, 0, len(lll.listeners))
	for id := range lll.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	listeners := make([]jww.LogListener, len(ids))
	for i, id := range ids {
		listeners[i] = lll.listeners[id]
	}
	return listeners
}
