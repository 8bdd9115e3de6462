package edge

import (
	"context"
	"iter"

	"github.com/artpar/deepgraph/core/errs"
)

// KeyGenerator produces a fresh key for an unkeyed insert.
type KeyGenerator func() any

// MapVector wraps a hash map. Unkeyed inserts take a key from the
// generator, and setting Absent deletes the entry.
type MapVector struct {
	inner    map[any]any
	generate KeyGenerator
}

// NewMapVector wraps inner; a nil map is replaced by an empty one.
func NewMapVector(inner map[any]any, generator KeyGenerator) *MapVector {
	if inner == nil {
		inner = make(map[any]any)
	}
	return &MapVector{inner: inner, generate: generator}
}

// Inner returns the wrapped map.
func (m *MapVector) Inner() any {
	return m.inner
}

// Len returns the number of entries.
func (m *MapVector) Len() int {
	return len(m.inner)
}

// Get reads the entry addressed by path.
func (m *MapVector) Get(path Path) (any, error) {
	path = path.Compact()
	switch len(path) {
	case 0:
		return m.inner, nil
	case 1:
		return m.inner[path[0]], nil
	}
	return deepGet(m, path)
}

// Set inserts, replaces or deletes an entry. Without a key the generator
// supplies one; without either the call fails. Deleting reports whether the
// entry existed, inserting returns the key.
func (m *MapVector) Set(value any, path Path) (any, error) {
	path = path.Compact()
	if len(path) > 1 {
		return deepSet(m, value, path)
	}

	var key any
	if len(path) == 1 {
		key = path[0]
	} else if m.generate != nil {
		key = m.generate()
	}
	if key == nil {
		return nil, errs.Invalid.Errorf("key or key generator is not defined")
	}

	if IsAbsent(value) {
		_, existed := m.inner[key]
		delete(m.inner, key)
		return existed, nil
	}
	m.inner[key] = value
	return key, nil
}

// Invoke applies the default get/set dispatch.
func (m *MapVector) Invoke(ctx context.Context, intent Intent, data any, opts Options) (any, error) {
	return Dispatch(m, intent, data)
}

// All yields the entries in map iteration order.
func (m *MapVector) All() iter.Seq2[any, any] {
	return func(yield func(any, any) bool) {
		for k, v := range m.inner {
			if !yield(k, v) {
				return
			}
		}
	}
}
