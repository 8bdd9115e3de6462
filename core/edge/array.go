package edge

import (
	"context"
	"iter"
	"slices"

	"github.com/artpar/deepgraph/core/errs"
)

// ArrayVector wraps an ordered sequence. Unkeyed inserts append, and
// setting Absent removes the element and shifts the rest down.
type ArrayVector struct {
	inner []any
}

// NewArrayVector wraps inner.
func NewArrayVector(inner []any) *ArrayVector {
	return &ArrayVector{inner: inner}
}

// Inner returns the wrapped slice.
func (a *ArrayVector) Inner() any {
	return a.inner
}

// Len returns the number of elements.
func (a *ArrayVector) Len() int {
	return len(a.inner)
}

// Get reads the element addressed by path. Out of range indexes are absent.
func (a *ArrayVector) Get(path Path) (any, error) {
	path = path.Compact()
	switch len(path) {
	case 0:
		return a.inner, nil
	case 1:
		i, ok := keyIndex(path[0])
		if !ok || i < 0 || i >= len(a.inner) {
			return nil, nil
		}
		return a.inner[i], nil
	}
	return deepGet(a, path)
}

// Set appends when no index is given and returns the new index. Setting
// Absent removes the element and returns it. Assigning past the end pads the
// sequence with nil.
func (a *ArrayVector) Set(value any, path Path) (any, error) {
	path = path.Compact()
	switch len(path) {
	case 0:
		a.inner = append(a.inner, value)
		return len(a.inner) - 1, nil
	case 1:
	default:
		return deepSet(a, value, path)
	}

	i, ok := keyIndex(path[0])
	if !ok || i < 0 {
		return nil, errs.Invalid.Errorf("invalid sequence index %v", path[0])
	}

	if IsAbsent(value) {
		if i >= len(a.inner) {
			return nil, nil
		}
		old := a.inner[i]
		a.inner = slices.Delete(a.inner, i, i+1)
		return old, nil
	}

	if i >= len(a.inner) {
		a.inner = append(a.inner, make([]any, i-len(a.inner)+1)...)
	}
	a.inner[i] = value
	return i, nil
}

// Invoke applies the default get/set dispatch.
func (a *ArrayVector) Invoke(ctx context.Context, intent Intent, data any, opts Options) (any, error) {
	return Dispatch(a, intent, data)
}

// All yields (index, element) pairs.
func (a *ArrayVector) All() iter.Seq2[any, any] {
	return func(yield func(any, any) bool) {
		for i, v := range a.inner {
			if !yield(i, v) {
				return
			}
		}
	}
}
