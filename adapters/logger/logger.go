// Package logger provides the "logger" component: a configurable set of
// named zerolog loggers whose configuration is addressable like any other
// container.
//
// Configuration:
//
//	level:   global level applied at initialize (default: info)
//	loggers: per-name settings, e.g. {default: {level: debug}}
package logger

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"sync"

	"github.com/artpar/deepgraph/core/edge"
	"github.com/artpar/deepgraph/core/errs"
	"github.com/artpar/deepgraph/core/host"
	"github.com/rs/zerolog"
)

// Manager owns the logger configuration.
type Manager struct {
	mu     sync.RWMutex
	config *edge.Vector
	base   zerolog.Logger
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() map[string]any {
	return map[string]any{
		"level": "info",
		"loggers": map[string]any{
			"default": map[string]any{"level": "info"},
		},
	}
}

// New creates a manager over cfg. The base logger comes from the host
// carried by ctx.
func New(ctx context.Context, cfg map[string]any) *Manager {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Manager{
		config: edge.NewVector(cfg),
		base:   host.FromContext(ctx).Logger,
	}
}

// Build is the module constructor of the logger component.
func Build(ctx context.Context, cfg any, _ edge.Edge) (edge.Edge, error) {
	switch v := cfg.(type) {
	case nil:
		return New(ctx, nil), nil
	case map[string]any:
		return New(ctx, maps.Clone(v)), nil
	}
	return nil, errs.Invalid.Errorf("logger configuration must be a map, got %T", cfg)
}

// Get reads the configuration at path.
func (m *Manager) Get(path edge.Path) (any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.Get(path)
}

// Set writes the configuration at path. A single segment other than
// "level" or "loggers" names a logger.
func (m *Manager) Set(value any, path edge.Path) (any, error) {
	path = path.Compact()
	if len(path) == 1 {
		if k := fmt.Sprint(path[0]); k != "level" && k != "loggers" {
			path = edge.P("loggers", k)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config.Set(value, path)
}

// Invoke applies the configuration on "initialize" and supports the
// default get/set dispatch.
func (m *Manager) Invoke(ctx context.Context, intent edge.Intent, data any, opts edge.Options) (any, error) {
	switch intent.Verb {
	case "initialize":
		return m.Apply()
	case "get", "set":
		return edge.Dispatch(m, intent, data)
	}
	return nil, errs.UnknownIntent(intent.Verb)
}

// Apply sets zerolog's global level from the configuration ("level", then
// the default logger's level, then info) and returns the level applied.
func (m *Manager) Apply() (any, error) {
	lvl, err := m.level(edge.P("level"))
	if err != nil {
		return nil, err
	}
	if lvl == zerolog.NoLevel {
		if lvl, err = m.level(edge.P("loggers", "default", "level")); err != nil {
			return nil, err
		}
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	return lvl.String(), nil
}

// Logger returns the named logger at its configured level, falling back
// to the default logger's level.
func (m *Manager) Logger(name string) zerolog.Logger {
	lvl, err := m.level(edge.P("loggers", name, "level"))
	if err != nil || lvl == zerolog.NoLevel {
		lvl, _ = m.level(edge.P("loggers", "default", "level"))
	}
	l := m.base.With().Str("logger", name).Logger()
	if lvl != zerolog.NoLevel {
		l = l.Level(lvl)
	}
	return l
}

func (m *Manager) level(path edge.Path) (zerolog.Level, error) {
	v, err := m.Get(path)
	if err != nil || v == nil {
		return zerolog.NoLevel, err
	}
	s, ok := v.(string)
	if !ok {
		return zerolog.NoLevel, errs.Invalid.Errorf("level at %s must be a string, got %T", path, v)
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil {
		return zerolog.NoLevel, errs.Invalid.Errorf("level at %s: %v", path, err)
	}
	return lvl, nil
}
