// Package errs defines the error taxonomy shared by every component of the graph.
//
// Each kind has a sentinel error. Components wrap the sentinel with context:
//
//	return errs.NotFound.Errorf("vertex %q", id)
//
// and callers recover the kind through any amount of wrapping:
//
//	if errs.KindOf(err) == errs.Forbidden { ... }
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure.
type Kind int

const (
	// Other is any error outside the taxonomy.
	Other Kind = iota
	AlreadyExists
	Unavailable
	NotFound
	Forbidden
	Invalid
	Unknown
	Unimplemented
)

// Sentinel errors, one per kind.
var (
	ErrAlreadyExists = errors.New("already exists")
	ErrUnavailable   = errors.New("unavailable")
	ErrNotFound      = errors.New("not found")
	ErrForbidden     = errors.New("forbidden")
	ErrInvalid       = errors.New("invalid")
	ErrUnknown       = errors.New("unknown intent")
	ErrUnimplemented = errors.New("unimplemented")
)

var sentinels = []struct {
	kind Kind
	err  error
}{
	{AlreadyExists, ErrAlreadyExists},
	{Unavailable, ErrUnavailable},
	{NotFound, ErrNotFound},
	{Forbidden, ErrForbidden},
	{Invalid, ErrInvalid},
	{Unknown, ErrUnknown},
	{Unimplemented, ErrUnimplemented},
}

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case AlreadyExists:
		return "already_exists"
	case Unavailable:
		return "unavailable"
	case NotFound:
		return "not_found"
	case Forbidden:
		return "forbidden"
	case Invalid:
		return "invalid"
	case Unknown:
		return "unknown"
	case Unimplemented:
		return "unimplemented"
	default:
		return "other"
	}
}

// Err returns the sentinel error of the kind, or nil for Other.
func (k Kind) Err() error {
	for _, s := range sentinels {
		if s.kind == k {
			return s.err
		}
	}
	return nil
}

// Errorf wraps the kind's sentinel with a formatted message.
func (k Kind) Errorf(format string, args ...any) error {
	sentinel := k.Err()
	if sentinel == nil {
		return fmt.Errorf(format, args...)
	}
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}

// KindOf reports the kind of err, looking through wrapped errors.
func KindOf(err error) Kind {
	if err == nil {
		return Other
	}
	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			return s.kind
		}
	}
	return Other
}

// Is reports whether err is of kind k.
func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// ParseKind parses the name produced by Kind.String.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, sent := range sentinels {
		if sent.kind.String() == s {
			return sent.kind, nil
		}
	}
	if s == "other" {
		return Other, nil
	}
	return Other, fmt.Errorf("unknown error kind %q", s)
}

// UnknownIntent is the error returned for an unrecognised command verb.
func UnknownIntent(verb string) error {
	return Unknown.Errorf("%s", verb)
}
