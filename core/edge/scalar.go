package edge

import (
	"context"
	"fmt"
)

// Scalar wraps a single, indivisible value.
type Scalar struct {
	inner any
}

// NewScalar wraps inner.
func NewScalar(inner any) *Scalar {
	return &Scalar{inner: inner}
}

// Inner returns the wrapped value.
func (s *Scalar) Inner() any {
	return s.inner
}

// Get returns the value for an empty path; any other path is absent.
func (s *Scalar) Get(path Path) (any, error) {
	if len(path.Compact()) > 0 {
		return nil, nil
	}
	return s.inner, nil
}

// Set replaces the value. A scalar has no members, so a path is an error.
func (s *Scalar) Set(value any, path Path) (any, error) {
	if p := path.Compact(); len(p) > 0 {
		return nil, fmt.Errorf("%w: cannot set %s on scalar %T", ErrNotContainer, p, s.inner)
	}
	s.inner = value
	return true, nil
}

// Invoke accepts any intent and resolves to nothing.
func (s *Scalar) Invoke(ctx context.Context, intent Intent, data any, opts Options) (any, error) {
	return nil, nil
}
