////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package remote lets a worker's child resolve dotted paths in the main
// side's native namespace. The main side exposes a [Namespace]; the child
// walks it through a lazily resolving, caching [Proxy].
package remote

import (
	"strings"
	"sync"

	"github.com/pkg/errors"

	"gitlab.com/elixxir/threadworker/codec"
)

// Namespace is a tree of native values addressed by dotted paths. It is the
// main side's [worker.Resolver]. This structure is thread safe.
type Namespace struct {
	root *node
	mux  sync.RWMutex
}

type node struct {
	children map[string]*node
	value    any
	leaf     bool
}

// NewNamespace returns an empty Namespace.
func NewNamespace() *Namespace {
	return &Namespace{root: &node{children: make(map[string]*node)}}
}

// Set stores the value at the path, creating the namespaces on the way.
// Returns an error if the path is empty or crosses an existing value.
func (ns *Namespace) Set(path string, v any) error {
	names := split(path)
	if len(names) == 0 {
		return errors.Errorf("invalid namespace path %q", path)
	}

	ns.mux.Lock()
	defer ns.mux.Unlock()
	n := ns.root
	for i, name := range names {
		child, exists := n.children[name]
		if !exists {
			child = &node{children: make(map[string]*node)}
			n.children[name] = child
		}
		if child.leaf && i < len(names)-1 {
			return errors.Errorf("cannot set %q: %q is a value",
				path, strings.Join(names[:i+1], "."))
		}
		n = child
	}
	if len(n.children) > 0 {
		return errors.Errorf("cannot set %q: it is a namespace", path)
	}
	n.value, n.leaf = v, true
	return nil
}

// Resolve returns the value at the path. Returns false if the path is missing,
// names a namespace, or holds nil or a value that cannot be sent to a worker.
func (ns *Namespace) Resolve(path string) (any, bool) {
	ns.mux.RLock()
	defer ns.mux.RUnlock()
	n := ns.root
	for _, name := range split(path) {
		child, exists := n.children[name]
		if !exists {
			return nil, false
		}
		n = child
	}

	if !n.leaf || n.value == nil || codec.Classify(n.value) == codec.Unsupported {
		return nil, false
	}
	return n.value, true
}

// split splits a dotted path into its names. Empty names are skipped.
func split(path string) []string {
	names := strings.Split(path, ".")
	out := names[:0]
	for _, name := range names {
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}
