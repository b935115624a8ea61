////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package worker

import (
	"sync"

	"github.com/google/uuid"
	jww "github.com/spf13/jwalterweatherman"
)

// registry tracks every worker that has not been closed.
var registry = struct {
	workers map[uuid.UUID]*Endpoint
	mux     sync.Mutex
}{workers: make(map[uuid.UUID]*Endpoint)}

func register(w *Endpoint) {
	registry.mux.Lock()
	defer registry.mux.Unlock()
	registry.workers[w.ID()] = w
}

func deregister(id uuid.UUID) {
	registry.mux.Lock()
	defer registry.mux.Unlock()
	delete(registry.workers, id)
}

// Lookup returns the main Endpoint of the live worker with the ID.
func Lookup(id uuid.UUID) (*Endpoint, bool) {
	registry.mux.Lock()
	defer registry.mux.Unlock()
	w, exists := registry.workers[id]
	return w, exists
}

// Instances returns the main Endpoint of every live worker.
func Instances() []*Endpoint {
	registry.mux.Lock()
	defer registry.mux.Unlock()
	list := make([]*Endpoint, 0, len(registry.workers))
	for _, w := range registry.workers {
		list = append(list, w)
	}
	return list
}

// ReleaseAll stops every live worker.
func ReleaseAll() {
	list := Instances()
	jww.INFO.Printf("[WW] Releasing %d workers.", len(list))
	for _, w := range list {
		if err := w.Stop(); err != nil {
			jww.ERROR.Printf("[WW] [%s] Failed to stop worker: %+v", w.Name(), err)
		}
	}
}
