// Package registry holds the root registry: a tree of namespaces whose leaves
// are type definitions (message types, service types).
//
// Unlike a Go map, a Namespace remembers insertion order. Namespace searches
// walk entries in that order, so their results depend on how the tree was built
// and are stable between runs.
package registry

import (
	"strings"
	"sync"
)

// Container is a value that holds named children. Path lookups descend through
// containers segment by segment.
type Container interface {
	Get(name string) (any, bool)
}

// Namespace is an ordered mapping from a segment name to either a nested
// *Namespace or a leaf value.
type Namespace struct {
	keys    []string
	entries map[string]any
}

// New creates an empty namespace.
func New() *Namespace {
	return &Namespace{entries: make(map[string]any)}
}

var (
	defaultRoot     *Namespace
	defaultRootOnce sync.Once
)

// Default returns the process-wide root used when a caller does not pass one.
func Default() *Namespace {
	defaultRootOnce.Do(func() {
		defaultRoot = New()
	})
	return defaultRoot
}

// Set stores v under name. Replacing an existing entry keeps its position.
func (n *Namespace) Set(name string, v any) *Namespace {
	if n.entries == nil {
		n.entries = make(map[string]any)
	}
	if _, ok := n.entries[name]; !ok {
		n.keys = append(n.keys, name)
	}
	n.entries[name] = v
	return n
}

// Get returns the entry stored under name.
func (n *Namespace) Get(name string) (any, bool) {
	if n == nil {
		return nil, false
	}
	v, ok := n.entries[name]
	return v, ok
}

// Namespace returns the nested namespace stored under name, creating it when
// the name is free. If name holds a leaf, Namespace returns nil.
func (n *Namespace) Namespace(name string) *Namespace {
	if v, ok := n.Get(name); ok {
		child, _ := v.(*Namespace)
		return child
	}

	child := New()
	n.Set(name, child)
	return child
}

// SetPath stores v at a dotted path, creating intermediate namespaces. It
// reports false when an intermediate segment is already taken by a leaf.
func (n *Namespace) SetPath(path string, v any) bool {
	parts := strings.Split(path, ".")

	cur := n
	for _, part := range parts[:len(parts)-1] {
		if cur = cur.Namespace(part); cur == nil {
			return false
		}
	}

	cur.Set(parts[len(parts)-1], v)
	return true
}

// Keys returns entry names in insertion order.
func (n *Namespace) Keys() []string {
	if n == nil {
		return nil
	}
	keys := make([]string, len(n.keys))
	copy(keys, n.keys)
	return keys
}

// Len returns the number of direct entries.
func (n *Namespace) Len() int {
	if n == nil {
		return 0
	}
	return len(n.keys)
}

// Range calls fn for each entry in insertion order until fn returns false.
func (n *Namespace) Range(fn func(name string, v any) bool) {
	if n == nil {
		return
	}
	for _, key := range n.keys {
		if !fn(key, n.entries[key]) {
			return
		}
	}
}

// Walk visits every leaf below n depth-first in insertion order. path is the
// dotted path of the namespace holding the leaf.
func (n *Namespace) Walk(fn func(path, name string, v any) bool) {
	n.walk("", fn)
}

func (n *Namespace) walk(path string, fn func(path, name string, v any) bool) bool {
	cont := true
	n.Range(func(name string, v any) bool {
		if child, ok := v.(*Namespace); ok {
			cont = child.walk(Join(path, name), fn)
		} else {
			cont = fn(path, name, v)
		}
		return cont
	})
	return cont
}

// Join appends a segment to a dotted path.
func Join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}
