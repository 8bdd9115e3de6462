// Package registry implements the root of a component graph: the map from
// identifier to live component, gated by a shared token, with load-on-miss
// through the designated loader.
package registry

import (
	"context"
	"crypto/subtle"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/artpar/deepgraph/config"
	"github.com/artpar/deepgraph/core/edge"
	"github.com/artpar/deepgraph/core/errs"
	"github.com/artpar/deepgraph/core/events"
	"github.com/artpar/deepgraph/core/host"
	"github.com/rs/zerolog"
)

// LoaderID is the reserved identifier of the designated loader.
const LoaderID = "loader"

// Defaults applied to missing Config fields.
const (
	DefaultLoader       = "loader"
	DefaultLoaderSource = "vertices.json"
)

// Config configures a Root.
type Config struct {
	// Token is required for every registry mutation.
	Token string `yaml:"token"`

	// Loader is the module reference of the loader, used when the loader
	// configuration names no module of its own.
	Loader string `yaml:"loader"`

	// LoaderConfig is the loader configuration, either inline or a source
	// reference resolved at initialize.
	LoaderConfig any `yaml:"loaderConfig"`

	// Preloads are loaded in order at the end of initialize.
	Preloads []string `yaml:"preloads"`
}

// Registration is an explicit registry insert.
type Registration struct {
	Component edge.Edge
	ID        string
	Token     string
}

// Root is the registry of one running system.
type Root struct {
	mu         sync.RWMutex
	config     Config
	components map[string]edge.Edge
	loader     edge.Edge

	host   *host.Host
	logger zerolog.Logger
}

// New creates a root using the host carried by ctx.
func New(ctx context.Context, cfg Config) *Root {
	if cfg.Loader == "" {
		cfg.Loader = DefaultLoader
	}
	if cfg.LoaderConfig == nil {
		cfg.LoaderConfig = DefaultLoaderSource
	}
	h := host.FromContext(ctx)
	return &Root{
		config:     cfg,
		components: make(map[string]edge.Edge),
		host:       h,
		logger:     h.Logger.With().Str("component", "registry").Logger(),
	}
}

// Build is the module constructor of a Root. cfg may be a Config or
// generic configuration data.
func Build(ctx context.Context, cfg any, _ edge.Edge) (edge.Edge, error) {
	var c Config
	switch v := cfg.(type) {
	case Config:
		c = v
	case *Config:
		if v != nil {
			c = *v
		}
	default:
		if err := config.Decode(cfg, &c); err != nil {
			return nil, err
		}
	}
	return New(ctx, c), nil
}

// Lookup returns the component registered under id.
func (r *Root) Lookup(id string) (edge.Edge, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.components[id]
	return c, ok
}

// IDs returns the registered identifiers, sorted.
func (r *Root) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.components))
}

// Len returns the number of registered components.
func (r *Root) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.components)
}

// Loader returns the designated loader, or nil.
func (r *Root) Loader() edge.Edge {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loader
}

// Get returns a snapshot of the registry for an empty path. Otherwise the
// first segment names a component and the rest of the path is read from
// it. A missing component is absent, never an error.
func (r *Root) Get(path edge.Path) (any, error) {
	path = path.Compact()
	if len(path) == 0 {
		r.mu.RLock()
		defer r.mu.RUnlock()
		return maps.Clone(r.components), nil
	}

	c, ok := r.Lookup(fmt.Sprint(path[0]))
	if !ok {
		return nil, nil
	}
	if len(path) == 1 {
		return c, nil
	}
	return edge.Get(c, path[1:])
}

// Set registers or deregisters a component. path is [token, id]; its
// entries take precedence over those of a Registration.
//
// A nil or Absent value deregisters id and reports whether an entry was
// removed. Otherwise value is a Registration or a bare component, the id
// defaults to a generated one and the id used is returned.
func (r *Root) Set(value any, path edge.Path) (any, error) {
	token, _ := segment(path, 0)
	id, hasID := segment(path, 1)

	var comp edge.Edge
	switch v := value.(type) {
	case nil:
	case Registration:
		comp = v.Component
		id, hasID = orRegistration(id, hasID, v.ID)
		if len(path) == 0 || path[0] == nil {
			token = v.Token
		}
	case *Registration:
		if v != nil {
			comp = v.Component
			id, hasID = orRegistration(id, hasID, v.ID)
			if len(path) == 0 || path[0] == nil {
				token = v.Token
			}
		}
	case edge.Edge:
		comp = v
	default:
		if !edge.IsAbsent(value) {
			return nil, errs.Invalid.Errorf("%T is neither a registration nor a component", value)
		}
	}

	op := "register"
	if comp == nil {
		op = "deregister"
	}

	if !r.Authorized(token) {
		r.host.Metrics.RegistryOp(op, "forbidden")
		return nil, errs.Forbidden.Errorf("token is invalid")
	}

	if comp == nil {
		if !hasID {
			r.host.Metrics.RegistryOp(op, "invalid")
			return nil, errs.Invalid.Errorf("deregister requires an identifier")
		}
		return r.remove(id), nil
	}

	if !hasID {
		id = r.host.IDs.New()
	}
	r.insert(id, comp)
	return id, nil
}

// Authorized reports whether token is the registry token.
func (r *Root) Authorized(token string) bool {
	return subtle.ConstantTimeCompare([]byte(token), []byte(r.config.Token)) == 1
}

func (r *Root) insert(id string, comp edge.Edge) {
	r.mu.Lock()
	r.components[id] = comp
	var previous edge.Edge
	isLoader := id == LoaderID
	if isLoader {
		previous = r.loader
		r.loader = comp
	}
	n := len(r.components)
	r.mu.Unlock()

	r.host.Metrics.RegistryOp("register", "ok")
	r.host.Metrics.SetComponents(n)

	ctx := context.Background()
	if isLoader && previous != nil && previous != comp {
		r.logger.Warn().
			Any("from", nameOf(previous)).
			Any("to", nameOf(comp)).
			Msg("loader is changed")
		r.host.Events.Publish(ctx, events.Event{
			Name:      events.LoaderChanged,
			Source:    "registry",
			Component: id,
		})
	}
	r.logger.Debug().Str("id", id).Msg("component registered")
	r.host.Events.Publish(ctx, events.Event{
		Name:      events.ComponentRegistered,
		Source:    "registry",
		Component: id,
	})
}

func (r *Root) remove(id string) bool {
	r.mu.Lock()
	_, existed := r.components[id]
	delete(r.components, id)
	if existed && id == LoaderID {
		r.loader = nil
	}
	n := len(r.components)
	r.mu.Unlock()

	r.host.Metrics.RegistryOp("deregister", "ok")
	if !existed {
		return false
	}
	r.host.Metrics.SetComponents(n)
	r.logger.Debug().Str("id", id).Msg("component deregistered")
	r.host.Events.Publish(context.Background(), events.Event{
		Name:      events.ComponentDeregistered,
		Source:    "registry",
		Component: id,
	})
	return true
}

// segment returns path[i] as a string; nil and missing entries are absent.
func segment(path edge.Path, i int) (string, bool) {
	if i >= len(path) || path[i] == nil {
		return "", false
	}
	if s, ok := path[i].(string); ok {
		return s, true
	}
	return fmt.Sprint(path[i]), true
}

func orRegistration(id string, hasID bool, regID string) (string, bool) {
	if hasID || regID == "" {
		return id, hasID
	}
	return regID, true
}

func nameOf(c edge.Edge) any {
	name, err := edge.Get(c, edge.P("name"))
	if err != nil || name == nil {
		return fmt.Sprintf("%T", c)
	}
	return name
}
