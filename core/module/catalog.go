// Package module resolves module references to their exports.
//
// A Catalog maps a module name to its exports. An export is either a
// construction function (Builder) or plain data, such as a declaration table
// or a configuration record. A reference names a module and optionally one
// of its exported symbols; the default symbol is "default".
package module

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/artpar/deepgraph/core/edge"
	"github.com/artpar/deepgraph/core/errs"
)

// DefaultSymbol is the export used when a reference names no symbol.
const DefaultSymbol = "default"

// Builder constructs a component from its configuration. root is the
// registry the component should use for cross-component lookups.
type Builder func(ctx context.Context, config any, root edge.Edge) (edge.Edge, error)

// Exports maps symbol names to exported values.
type Exports map[string]any

// Ref addresses an export of a module.
type Ref struct {
	Module string
	Symbol string
}

// String renders the reference as "module#symbol".
func (r Ref) String() string {
	if r.Symbol == "" || r.Symbol == DefaultSymbol {
		return r.Module
	}
	return r.Module + "#" + r.Symbol
}

// ParseRef converts a loosely typed reference: a Ref, a "module" or
// "module#symbol" string, or a [module, symbol] pair.
func ParseRef(v any) (Ref, error) {
	var ref Ref
	switch r := v.(type) {
	case Ref:
		ref = r
	case string:
		ref.Module, ref.Symbol, _ = strings.Cut(r, "#")
	case []string:
		if len(r) == 0 || len(r) > 2 {
			return Ref{}, errs.Invalid.Errorf("module reference needs 1 or 2 elements, got %d", len(r))
		}
		ref.Module = r[0]
		if len(r) == 2 {
			ref.Symbol = r[1]
		}
	case []any:
		parts := make([]string, 0, len(r))
		for _, p := range r {
			s, ok := p.(string)
			if !ok {
				return Ref{}, errs.Invalid.Errorf("module reference element must be a string, got %T", p)
			}
			parts = append(parts, s)
		}
		return ParseRef(parts)
	default:
		return Ref{}, errs.Invalid.Errorf("unsupported module reference %T", v)
	}

	if ref.Module == "" {
		return Ref{}, errs.Invalid.Errorf("module reference has no module name")
	}
	if ref.Symbol == "" {
		ref.Symbol = DefaultSymbol
	}
	return ref, nil
}

// Catalog is a concurrency safe set of named modules.
type Catalog struct {
	mu      sync.RWMutex
	modules map[string]Exports
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{modules: make(map[string]Exports)}
}

// Register adds or replaces a module.
func (c *Catalog) Register(name string, exports Exports) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modules[name] = exports
}

// Provide registers a module whose default export is b.
func (c *Catalog) Provide(name string, b Builder) {
	c.Register(name, Exports{DefaultSymbol: b})
}

// ProvideData registers a module whose default export is data.
func (c *Catalog) ProvideData(name string, data any) {
	c.Register(name, Exports{DefaultSymbol: data})
}

// Has reports whether a module is registered under name.
func (c *Catalog) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.modules[name]
	return ok
}

// Names returns the registered module names, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.modules))
	for name := range c.modules {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Resolve returns the export addressed by ref. A missing module or symbol
// is NotFound.
func (c *Catalog) Resolve(ref Ref) (any, error) {
	if ref.Symbol == "" {
		ref.Symbol = DefaultSymbol
	}

	c.mu.RLock()
	exports, ok := c.modules[ref.Module]
	c.mu.RUnlock()
	if !ok {
		return nil, errs.NotFound.Errorf("module %q", ref.Module)
	}

	v, ok := exports[ref.Symbol]
	if !ok {
		return nil, errs.NotFound.Errorf("export %q of module %q", ref.Symbol, ref.Module)
	}
	return v, nil
}

// Builder resolves ref to a construction function. An export that is not
// a function is Invalid.
func (c *Catalog) Builder(ref Ref) (Builder, error) {
	v, err := c.Resolve(ref)
	if err != nil {
		return nil, err
	}
	switch b := v.(type) {
	case Builder:
		return b, nil
	case func(context.Context, any, edge.Edge) (edge.Edge, error):
		return b, nil
	}
	return nil, errs.Invalid.Errorf("export %s is %T, not a builder", ref, v)
}
