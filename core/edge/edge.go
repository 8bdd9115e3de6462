// Package edge defines the uniform component protocol of the graph and the
// addressable containers built on top of it.
//
// Every component is an Edge: it answers Invoke, the asynchronous and
// mandatory operation. Components that offer cheap structural access also
// implement Getter and Setter. Containers (Vertex values) wrap raw Go data
// and make it readable and writable by Path.
package edge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/artpar/deepgraph/core/errs"
)

// ErrNotContainer reports an attempt to address into a value that holds no
// nested structure. It is a caller bug, not a domain error kind.
var ErrNotContainer = errors.New("value is not a container")

// Path is an ordered sequence of string or integer keys. A nil segment is
// skipped.
type Path []any

// P builds a Path from keys.
func P(keys ...any) Path {
	return Path(keys)
}

// Compact returns the path without skipped segments.
func (p Path) Compact() Path {
	for _, k := range p {
		if k == nil {
			out := make(Path, 0, len(p))
			for _, k := range p {
				if k != nil {
					out = append(out, k)
				}
			}
			return out
		}
	}
	return p
}

// String renders the path as dot separated keys.
func (p Path) String() string {
	parts := make([]string, 0, len(p))
	for _, k := range p {
		parts = append(parts, fmt.Sprint(k))
	}
	return strings.Join(parts, ".")
}

// ParsePath splits a dotted string into a Path. Empty input yields nil.
func ParsePath(s string) Path {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ".")
	p := make(Path, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		p = append(p, part)
	}
	return p
}

// Intent names the operation requested from Invoke: a verb followed by an
// optional path.
type Intent struct {
	Verb string
	Path Path
}

// Do builds an Intent.
func Do(verb string, path ...any) Intent {
	return Intent{Verb: verb, Path: Path(path)}
}

// String returns the verb and path joined by spaces.
func (i Intent) String() string {
	if len(i.Path) == 0 {
		return i.Verb
	}
	return i.Verb + " " + i.Path.String()
}

// ParseIntent converts a loosely typed directive into an Intent: an Intent,
// a verb string, or a slice whose head is the verb and tail the path.
func ParseIntent(v any) (Intent, error) {
	switch d := v.(type) {
	case Intent:
		return d, nil
	case string:
		return Do(d), nil
	case []any:
		if len(d) == 0 {
			return Intent{}, errs.Invalid.Errorf("empty intent")
		}
		verb, ok := d[0].(string)
		if !ok {
			return Intent{}, errs.Invalid.Errorf("intent verb must be a string, got %T", d[0])
		}
		return Do(verb, d[1:]...), nil
	case []string:
		if len(d) == 0 {
			return Intent{}, errs.Invalid.Errorf("empty intent")
		}
		path := make([]any, 0, len(d)-1)
		for _, s := range d[1:] {
			path = append(path, s)
		}
		return Do(d[0], path...), nil
	}
	return Intent{}, errs.Invalid.Errorf("unsupported intent type %T", v)
}

// Options carries extra named arguments of an Invoke call.
type Options map[string]any

// String returns the string value of key, or "".
func (o Options) String(key string) string {
	s, _ := o[key].(string)
	return s
}

// Bool returns the boolean value of key, or false.
func (o Options) Bool(key string) bool {
	b, _ := o[key].(bool)
	return b
}

// Edge is the capability every component implements.
type Edge interface {
	Invoke(ctx context.Context, intent Intent, data any, opts Options) (any, error)
}

// Getter is the optional synchronous read capability.
type Getter interface {
	Get(path Path) (any, error)
}

// Setter is the optional synchronous write capability. It returns the key
// used, the previous value or a component specific acknowledgement.
type Setter interface {
	Set(value any, path Path) (any, error)
}

// Vertex is a component that wraps and path-addresses a raw value.
type Vertex interface {
	Edge
	Getter
	Setter
	Inner() any
}

type absentMarker struct{}

func (absentMarker) String() string { return "<absent>" }

// Absent is the marker value that deletes the addressed entry when set on a
// keyed or sequence container.
var Absent any = absentMarker{}

// IsAbsent reports whether v is the Absent marker.
func IsAbsent(v any) bool {
	_, ok := v.(absentMarker)
	return ok
}

// IsEdge reports whether x implements the Edge capability.
func IsEdge(x any) bool {
	if x == nil {
		return false
	}
	_, ok := x.(Edge)
	return ok
}

// Get reads path from x when it supports Getter; otherwise the result is
// absent (nil).
func Get(x any, path Path) (any, error) {
	if g, ok := x.(Getter); ok {
		return g.Get(path)
	}
	return nil, nil
}

// Set writes value at path on x. Components without Setter fail with
// Unimplemented.
func Set(x any, value any, path Path) (any, error) {
	if s, ok := x.(Setter); ok {
		return s.Set(value, path)
	}
	return nil, errs.Unimplemented.Errorf("'set' is not supported by %T", x)
}

// Dispatch is the default Invoke behaviour: "get" reads the intent path,
// "set" writes data at the intent path and anything else is Unknown.
func Dispatch(target interface {
	Getter
	Setter
}, intent Intent, data any) (any, error) {
	switch intent.Verb {
	case "get":
		return target.Get(intent.Path)
	case "set":
		return target.Set(data, intent.Path)
	}
	return nil, errs.UnknownIntent(intent.Verb)
}
