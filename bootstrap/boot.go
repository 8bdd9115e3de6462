package bootstrap

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/artpar/deepgraph/config"
	"github.com/artpar/deepgraph/core/edge"
	"github.com/artpar/deepgraph/core/errs"
	"github.com/artpar/deepgraph/core/events"
	"github.com/artpar/deepgraph/core/host"
	"github.com/artpar/deepgraph/core/module"
	"github.com/rs/zerolog"
)

// State is the lifecycle state of a Boot.
type State int

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// BootConfig configures a Boot. Empty fields fall back to the process
// arguments, then the environment, then the defaults of config.Starter and
// config.ConfigFile.
type BootConfig struct {
	// Starter is the module reference of the entry-point component.
	Starter string `yaml:"starter"`

	// Config is the starter configuration: a source reference, or data
	// that is shallow-copied before use.
	Config any `yaml:"config"`

	// Process supplies positional arguments and environment. The zero
	// value reads the environment of the running process.
	Process config.Process `yaml:"-"`
}

// Boot owns at most one live entry-point component, the starter, and
// forwards lifecycle commands to it.
type Boot struct {
	mu       sync.Mutex
	starter  edge.Edge
	starting bool

	cfg    BootConfig
	host   *host.Host
	logger zerolog.Logger
}

// NewBoot creates a stopped Boot using the host carried by ctx.
func NewBoot(ctx context.Context, cfg BootConfig) *Boot {
	if cfg.Process.Getenv == nil && cfg.Process.Args == nil {
		cfg.Process = config.OS(nil)
	}
	h := host.FromContext(ctx)
	return &Boot{
		cfg:    cfg,
		host:   h,
		logger: h.Logger.With().Str("component", "boot").Logger(),
	}
}

// BuildBoot is the module constructor of a Boot.
func BuildBoot(ctx context.Context, cfg any, _ edge.Edge) (edge.Edge, error) {
	var c BootConfig
	switch v := cfg.(type) {
	case nil:
	case BootConfig:
		c = v
	case map[string]any:
		c.Starter, _ = v["starter"].(string)
		c.Config = v["config"]
	default:
		return nil, errs.Invalid.Errorf("boot config must be a map, got %T", cfg)
	}
	return NewBoot(ctx, c), nil
}

// State reports whether a starter is attached.
func (b *Boot) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.starter != nil {
		return Running
	}
	return Stopped
}

// Starter returns the live starter, or nil when stopped.
func (b *Boot) Starter() edge.Edge {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.starter
}

// Start builds the starter and forwards "initialize" to it, returning its
// result. cfg and starter override the configured values when not empty.
// The starter stays attached when its initialize fails.
func (b *Boot) Start(ctx context.Context, cfg any, starter string) (any, error) {
	ctx = host.Bind(ctx, b.host)

	b.mu.Lock()
	if b.starter != nil || b.starting {
		b.mu.Unlock()
		b.host.Metrics.Transition("start", "already_exists")
		return nil, errs.AlreadyExists.Errorf("system is already started")
	}
	b.starting = true
	b.mu.Unlock()

	comp, ref, err := b.build(ctx, cfg, starter)

	b.mu.Lock()
	b.starting = false
	if err == nil {
		b.starter = comp
	}
	b.mu.Unlock()

	if err != nil {
		b.host.Metrics.Transition("start", "error")
		return nil, err
	}

	b.logger.Info().Str("starter", ref.String()).Msg("starting system")
	res, err := comp.Invoke(ctx, edge.Do("initialize"), nil, nil)
	if err != nil {
		b.host.Metrics.Transition("start", "error")
		b.logger.Error().Err(err).Str("starter", ref.String()).Msg("starter failed to initialize")
		return nil, err
	}

	b.host.Metrics.Transition("start", "ok")
	b.host.Events.Publish(ctx, events.Event{
		Name:   events.BootStarted,
		Source: "boot",
		Data:   map[string]any{"starter": ref.String()},
	})
	return res, nil
}

func (b *Boot) build(ctx context.Context, cfg any, starter string) (edge.Edge, module.Ref, error) {
	ref, err := module.ParseRef(config.Starter.Resolve(b.cfg.Process, starter, b.cfg.Starter))
	if err != nil {
		return nil, ref, err
	}
	forge, err := b.host.Modules.Builder(ref)
	if err != nil {
		return nil, ref, err
	}

	data, err := b.starterConfig(ctx, cfg)
	if err != nil {
		return nil, ref, err
	}
	comp, err := forge(ctx, data, nil)
	if err != nil {
		return nil, ref, fmt.Errorf("build starter %s: %w", ref, err)
	}
	if comp == nil {
		return nil, ref, errs.Invalid.Errorf("module %s built no component", ref)
	}
	return comp, ref, nil
}

// starterConfig resolves the configuration by precedence. A source
// reference is loaded; a table, even an empty one, is shallow-copied.
func (b *Boot) starterConfig(ctx context.Context, explicit any) (any, error) {
	raw := explicit
	if unset(raw) {
		raw = b.cfg.Config
	}
	if unset(raw) {
		raw = config.ConfigFile.Resolve(b.cfg.Process)
	}

	switch v := raw.(type) {
	case string:
		return config.LoadSource(ctx, b.host.Modules, v)
	case map[string]any:
		return maps.Clone(v), nil
	}
	return raw, nil
}

// unset reports a configuration that was not supplied. An empty table is
// a supplied configuration.
func unset(v any) bool {
	switch c := v.(type) {
	case nil:
		return true
	case string:
		return c == ""
	}
	return false
}

// Stop detaches the starter, then forwards "stop" to it.
func (b *Boot) Stop(ctx context.Context) (any, error) {
	ctx = host.Bind(ctx, b.host)

	b.mu.Lock()
	starter := b.starter
	b.starter = nil
	b.mu.Unlock()

	if starter == nil {
		b.host.Metrics.Transition("stop", "unavailable")
		return nil, errs.Unavailable.Errorf("system is not started")
	}

	b.logger.Info().Msg("stopping system")
	res, err := starter.Invoke(ctx, edge.Do("stop"), nil, nil)
	b.host.Events.Publish(ctx, events.Event{Name: events.BootStopped, Source: "boot"})
	if err != nil {
		b.host.Metrics.Transition("stop", "error")
		return nil, err
	}
	b.host.Metrics.Transition("stop", "ok")
	return res, nil
}

// Restart stops the system when it runs, then starts it.
func (b *Boot) Restart(ctx context.Context, cfg any, starter string) (any, error) {
	if _, err := b.Stop(ctx); err != nil && !errs.Is(err, errs.Unavailable) {
		return nil, err
	}
	return b.Start(ctx, cfg, starter)
}

// Invoke runs a lifecycle command:
//
//   - start, initialize: Start with data as configuration and opts["starter"]
//   - stop: Stop
//   - restart: Restart, same arguments as start
//   - get: Get at the intent path
func (b *Boot) Invoke(ctx context.Context, intent edge.Intent, data any, opts edge.Options) (any, error) {
	switch intent.Verb {
	case "start", "initialize":
		return b.Start(ctx, data, opts.String("starter"))
	case "stop":
		return b.Stop(ctx)
	case "restart":
		return b.Restart(ctx, data, opts.String("starter"))
	case "get":
		return b.Get(intent.Path)
	}
	return nil, errs.UnknownIntent(intent.Verb)
}

// Get reads "state", or "starter" (alias "root") followed by a path into
// the starter.
func (b *Boot) Get(path edge.Path) (any, error) {
	path = path.Compact()
	if len(path) == 0 {
		return map[string]any{"state": b.State().String(), "starter": b.Starter()}, nil
	}
	switch path[0] {
	case "state":
		return b.State().String(), nil
	case "starter", "root":
		starter := b.Starter()
		if starter == nil || len(path) == 1 {
			return starter, nil
		}
		return edge.Get(starter, path[1:])
	}
	return nil, nil
}

// Set always fails: the lifecycle is driven by commands only.
func (b *Boot) Set(value any, path edge.Path) (any, error) {
	return nil, errs.Forbidden.Errorf("boot is read-only")
}
