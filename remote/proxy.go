////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package remote

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"

	"gitlab.com/elixxir/threadworker/worker"
)

// Poster sends a blocking call to the main side of a worker. The child
// [worker.Endpoint] implements it.
type Poster interface {
	PostSync(tag worker.Tag, data any, throwOnError bool) (any, error)
}

// Member is the result of looking up a name on a [Proxy]. Value is set when
// the name resolved to a value; otherwise Node is the further namespace.
type Member struct {
	Value any
	Node  *Proxy
}

// Proxy is one node of a lazily resolved namespace tree. Paths below the
// remote root are resolved by the main side with a [worker.RemoteTag] call;
// all other paths, and the always-local sub-namespaces, are resolved with the
// local resolver. Every lookup that succeeds is cached for the lifetime of
// the node.
type Proxy struct {
	path   string
	config *proxyConfig

	cache map[string]Member
	mux   sync.Mutex
}

type proxyConfig struct {
	poster Poster
	root   string
	local  []string
	locals worker.Resolver
}

// NewProxy returns the root node of a proxy tree. root is the namespace
// resolved by the main side and local lists the sub-namespaces of root that
// are resolved by locals instead. locals may be nil.
func NewProxy(poster Poster, root string, local []string,
	locals worker.Resolver) *Proxy {
	return &Proxy{
		config: &proxyConfig{
			poster: poster,
			root:   root,
			local:  local,
			locals: locals,
		},
		cache: make(map[string]Member),
	}
}

// Path returns the dotted path of the node. The root node's path is empty.
func (p *Proxy) Path() string { return p.path }

// Lookup resolves the name below the node.
func (p *Proxy) Lookup(name string) (Member, error) {
	p.mux.Lock()
	defer p.mux.Unlock()
	if m, exists := p.cache[name]; exists {
		return m, nil
	}

	full := name
	if p.path != "" {
		full = p.path + "." + name
	}

	var m Member
	if p.config.isRemote(full) {
		v, err := p.config.poster.PostSync(worker.RemoteTag, full, true)
		if err != nil {
			return Member{}, errors.Wrapf(err, "failed to resolve %q", full)
		}
		if v != nil {
			m.Value = v
		} else {
			m.Node = p.child(full)
		}
		jww.TRACE.Printf("[WW] Resolved remote path %q: %+v", full, m)
	} else if v, ok := p.config.resolveLocal(full); ok {
		m.Value = v
	} else {
		m.Node = p.child(full)
	}

	p.cache[name] = m
	return m, nil
}

// Resolve walks the dotted path from the node. Returns the value and true if
// the path names a value, or the namespace node and false if it names a
// namespace. Returns nil and false if the path continues past a value.
func (p *Proxy) Resolve(path string) (any, bool, error) {
	n := p
	names := split(path)
	for i, name := range names {
		m, err := n.Lookup(name)
		if err != nil {
			return nil, false, err
		}
		switch {
		case m.Node != nil:
			n = m.Node
		case m.Value != nil && i == len(names)-1:
			return m.Value, true, nil
		default:
			return nil, false, nil
		}
	}
	return n, false, nil
}

// Node returns the namespace node at the dotted path below p without
// resolving it.
func (p *Proxy) Node(path string) *Proxy {
	full := strings.Join(split(path), ".")
	if p.path != "" {
		full = p.path + "." + full
	}
	return p.child(full)
}

func (p *Proxy) child(path string) *Proxy {
	return &Proxy{path: path, config: p.config, cache: make(map[string]Member)}
}

// isRemote returns true if the path is resolved by the main side.
func (c *proxyConfig) isRemote(path string) bool {
	if !c.isUnderRoot(path) {
		return false
	}
	for _, l := range c.local {
		if within(path, l) {
			return false
		}
	}
	return true
}

func (c *proxyConfig) isUnderRoot(path string) bool {
	return c.root != "" && within(path, c.root)
}

func (c *proxyConfig) resolveLocal(path string) (any, bool) {
	if c.locals == nil {
		return nil, false
	}
	return c.locals.Resolve(path)
}

// within returns true if path is ns or below it.
func within(path, ns string) bool {
	return path == ns || strings.HasPrefix(path, ns+".")
}
