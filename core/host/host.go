// Package host carries the environment of one running system (module
// catalog, event bus, metrics, logger and id generator) through
// context.Context, so that independent systems can share a process.
package host

import (
	"context"
	"sync"

	"github.com/artpar/deepgraph/adapters/idgen"
	"github.com/artpar/deepgraph/adapters/metrics"
	"github.com/artpar/deepgraph/core/events"
	"github.com/artpar/deepgraph/core/module"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Host is the per-system environment shared by its components.
type Host struct {
	Modules *module.Catalog
	Events  *events.Bus
	Metrics *metrics.Collector
	IDs     idgen.Generator
	Logger  zerolog.Logger
}

// New creates a host with an empty catalog, a bus, UUID identifiers and no
// metrics.
func New(logger zerolog.Logger) *Host {
	return &Host{
		Modules: module.NewCatalog(),
		Events:  events.NewBus(logger),
		IDs:     idgen.UUID{},
		Logger:  logger,
	}
}

type key struct{}

// WithContext returns a context carrying h. The host logger is also
// attached, so zerolog.Ctx works downstream.
func WithContext(ctx context.Context, h *Host) context.Context {
	ctx = h.Logger.WithContext(ctx)
	return context.WithValue(ctx, key{}, h)
}

// Bind returns ctx carrying h. Components call it on entry so that work
// they start runs in their own system whatever context the caller holds.
func Bind(ctx context.Context, h *Host) context.Context {
	if cur, ok := ctx.Value(key{}).(*Host); ok && cur == h {
		return ctx
	}
	return WithContext(ctx, h)
}

var fallback = sync.OnceValue(func() *Host {
	return New(log.Logger)
})

// FromContext returns the host carried by ctx, or a process-wide default
// host backed by the global logger.
func FromContext(ctx context.Context) *Host {
	if h, ok := ctx.Value(key{}).(*Host); ok {
		return h
	}
	return fallback()
}
