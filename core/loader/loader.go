// Package loader resolves identifiers to live components. It keeps a table
// of declarations, builds components from them through the module catalog
// on demand and registers them in the root.
package loader

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/artpar/deepgraph/config"
	"github.com/artpar/deepgraph/core/edge"
	"github.com/artpar/deepgraph/core/errs"
	"github.com/artpar/deepgraph/core/events"
	"github.com/artpar/deepgraph/core/host"
	"github.com/artpar/deepgraph/core/module"
	"github.com/artpar/deepgraph/core/registry"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// DefaultName is the loader name used when none is configured.
const DefaultName = "deepgraph"

// Config configures a Loader.
type Config struct {
	Name  string `yaml:"name"`
	Token string `yaml:"token"`

	// Vertices is the declaration table, inline or as a source reference
	// loaded at initialize.
	Vertices any `yaml:"vertices"`

	// Register is the default registration policy.
	Register *bool `yaml:"register"`
}

// Loader builds components from declarations.
type Loader struct {
	mu       sync.RWMutex
	vertices map[string]Declaration
	source   string

	name     string
	token    string
	register bool
	root     edge.Edge

	inflight singleflight.Group
	host     *host.Host
	logger   zerolog.Logger
}

// New creates a loader bound to root, using the host carried by ctx.
func New(ctx context.Context, cfg Config, root edge.Edge) (*Loader, error) {
	h := host.FromContext(ctx)
	l := &Loader{
		vertices: make(map[string]Declaration),
		name:     cfg.Name,
		token:    cfg.Token,
		register: true,
		root:     root,
		host:     h,
	}
	if l.name == "" {
		l.name = DefaultName
	}
	if cfg.Register != nil {
		l.register = *cfg.Register
	}

	switch v := cfg.Vertices.(type) {
	case nil:
	case string:
		l.source = v
	default:
		if err := l.merge(v); err != nil {
			return nil, err
		}
	}

	l.logger = h.Logger.With().Str("component", "loader").Str("name", l.name).Logger()
	return l, nil
}

// Build is the module constructor of a Loader.
func Build(ctx context.Context, cfg any, root edge.Edge) (edge.Edge, error) {
	c, err := decodeConfig(cfg)
	if err != nil {
		return nil, err
	}
	return New(ctx, c, root)
}

func decodeConfig(cfg any) (Config, error) {
	var c Config
	switch v := cfg.(type) {
	case Config:
		return v, nil
	case *Config:
		if v != nil {
			c = *v
		}
		return c, nil
	case map[string]any:
		// Declarations may hold values that do not survive a yaml round trip.
		c.Name, _ = v["name"].(string)
		c.Token, _ = v["token"].(string)
		c.Vertices = v["vertices"]
		if b, ok := v["register"].(bool); ok {
			c.Register = &b
		}
		return c, nil
	}
	err := config.Decode(cfg, &c)
	return c, err
}

// Initialize loads a declaration table and merges it into the loader's.
// An empty source falls back to the one configured at construction.
func (l *Loader) Initialize(ctx context.Context, source string) error {
	if source == "" {
		source = l.source
	}
	if source == "" {
		return nil
	}

	table, err := config.LoadSource(ctx, l.host.Modules, source)
	if err != nil {
		return err
	}
	if err := l.merge(table); err != nil {
		return fmt.Errorf("vertices %s: %w", source, err)
	}
	l.logger.Debug().Str("source", source).Int("vertices", l.Len()).Msg("declarations loaded")
	return nil
}

// merge adds every entry of table; later entries overwrite earlier ones.
func (l *Loader) merge(table any) error {
	entries, ok := table.(map[string]any)
	if !ok {
		if d, isDecl := table.(Declaration); isDecl {
			entries = map[string]any(d)
		} else {
			return errs.Invalid.Errorf("declaration table must be a map, got %T", table)
		}
	}

	decls := make(map[string]Declaration, len(entries))
	for id, v := range entries {
		d, ok := asDeclaration(v)
		if !ok {
			return errs.Invalid.Errorf("declaration %q must be a map, got %T", id, v)
		}
		decls[id] = d
	}

	l.mu.Lock()
	maps.Copy(l.vertices, decls)
	l.mu.Unlock()
	return nil
}

// Len returns the number of declarations.
func (l *Loader) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.vertices)
}

// IDs returns the declared identifiers, sorted.
func (l *Loader) IDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Sorted(maps.Keys(l.vertices))
}

func (l *Loader) declaration(id string) (Declaration, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	d, ok := l.vertices[id]
	return d, ok
}

// Load resolves target, an identifier or a literal declaration, to a
// component. A declaration without module yields a data container that is
// never registered. register overrides the declaration's and the loader's
// registration policy when non-nil.
//
// Registering loads of the same identifier that overlap in time share one
// construction.
func (l *Loader) Load(ctx context.Context, target any, register *bool) (edge.Edge, error) {
	ctx = host.Bind(ctx, l.host)
	var (
		decl Declaration
		name string
	)
	switch v := target.(type) {
	case string:
		d, ok := l.declaration(v)
		if !ok {
			l.host.Metrics.ObserveLoad("error", 0)
			return nil, errs.NotFound.Errorf("vertex with ID %q", v)
		}
		decl, name = d.Clone(), v
	default:
		d, ok := asDeclaration(target)
		if !ok {
			return nil, errs.Invalid.Errorf("cannot load %T", target)
		}
		decl = d
	}

	if decl.IsData() {
		l.host.Metrics.ObserveLoad("data", 0)
		return edge.ToVertex(map[string]any(decl)), nil
	}

	shouldRegister := l.register
	if b, ok := decl.Register(); ok {
		shouldRegister = b
	}
	if register != nil {
		shouldRegister = *register
	}

	id := decl.ID()
	if id == "" {
		id = name
	}

	if !shouldRegister || id == "" {
		return l.construct(ctx, decl, id, shouldRegister)
	}

	v, err, _ := l.inflight.Do(id, func() (any, error) {
		return l.construct(ctx, decl, id, true)
	})
	if err != nil {
		return nil, err
	}
	return v.(edge.Edge), nil
}

func (l *Loader) construct(ctx context.Context, decl Declaration, id string, register bool) (edge.Edge, error) {
	start := time.Now()
	comp, err := l.build(ctx, decl, id, register)
	if err != nil {
		l.host.Metrics.ObserveLoad("error", time.Since(start))
		l.logger.Error().Err(err).Str("id", id).Msg("load failed")
		return nil, err
	}
	l.host.Metrics.ObserveLoad("component", time.Since(start))
	return comp, nil
}

func (l *Loader) build(ctx context.Context, decl Declaration, id string, register bool) (edge.Edge, error) {
	ref, err := module.ParseRef(decl.Module())
	if err != nil {
		return nil, err
	}
	forge, err := l.host.Modules.Builder(ref)
	if err != nil {
		return nil, err
	}

	comp, err := forge(ctx, decl.Config(), l.root)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", ref, err)
	}
	if comp == nil {
		return nil, errs.Invalid.Errorf("module %s built no component", ref)
	}

	if register {
		reg := registry.Registration{Component: comp, ID: id, Token: l.token}
		res, err := edge.Set(l.root, reg, nil)
		if err != nil {
			return nil, err
		}
		if s, ok := res.(string); ok {
			id = s
		}
	}

	if decl.Initialize() {
		if _, err := comp.Invoke(ctx, edge.Do("initialize"), nil, nil); err != nil {
			return nil, fmt.Errorf("initialize %s: %w", ref, err)
		}
	}

	l.logger.Debug().
		Str("id", id).
		Str("module", ref.String()).
		Bool("registered", register).
		Msg("component loaded")
	if l.host.Events.HasSubscribers(events.ComponentLoaded) {
		l.host.Events.Publish(ctx, events.Event{
			Name:      events.ComponentLoaded,
			Source:    "loader",
			Component: id,
			Data:      map[string]any{"module": ref.String(), "registered": register},
		})
	}
	return comp, nil
}

// Deregister removes id from the root with the loader's token.
func (l *Loader) Deregister(id any) (any, error) {
	return edge.Set(l.root, nil, edge.P(l.token, id))
}
