package registry

import (
	"context"
	"fmt"
	"maps"

	"github.com/artpar/deepgraph/config"
	"github.com/artpar/deepgraph/core/edge"
	"github.com/artpar/deepgraph/core/errs"
	"github.com/artpar/deepgraph/core/events"
	"github.com/artpar/deepgraph/core/host"
	"github.com/artpar/deepgraph/core/module"
)

type command int

const (
	cmdUnknown command = iota
	cmdLoad
	cmdRegister
	cmdDeregister
	cmdInitialize
	cmdQuit
)

func parseCommand(verb string) command {
	switch verb {
	case "get", "load":
		return cmdLoad
	case "set", "register":
		return cmdRegister
	case "delete", "deregister":
		return cmdDeregister
	case "initialize":
		return cmdInitialize
	case "quit", "stop", "uninitialize":
		return cmdQuit
	}
	return cmdUnknown
}

// Invoke runs a registry command:
//
//   - get, load: the registered component, or the loader's result on a miss
//   - set, register: register data, a component or a Registration; a bare
//     component takes "id" and "token" from opts
//   - delete, deregister: remove the identifier in data with opts["token"]
//   - initialize: build the loader and load the preloads
//   - quit (stop, uninitialize): clear the registry and quit the loader
func (r *Root) Invoke(ctx context.Context, intent edge.Intent, data any, opts edge.Options) (res any, err error) {
	ctx = host.Bind(ctx, r.host)
	defer func() {
		if err != nil {
			r.host.Metrics.InvokeError(errs.KindOf(err).String())
		}
	}()

	switch parseCommand(intent.Verb) {
	case cmdLoad:
		return r.load(ctx, intent, data, opts)
	case cmdRegister:
		if c, ok := data.(edge.Edge); ok {
			return r.Set(Registration{Component: c, ID: opts.String("id"), Token: opts.String("token")}, nil)
		}
		return r.Set(data, nil)
	case cmdDeregister:
		return r.deregister(data, opts)
	case cmdInitialize:
		return r.initialize(ctx)
	case cmdQuit:
		return r.quit(ctx, data, opts)
	}
	return nil, errs.UnknownIntent(intent.Verb)
}

func (r *Root) load(ctx context.Context, intent edge.Intent, data any, opts edge.Options) (any, error) {
	if data == nil && len(intent.Path) > 0 {
		data = fmt.Sprint(intent.Path[0])
	}
	if id, ok := data.(string); ok {
		if c, ok := r.Lookup(id); ok {
			return c, nil
		}
	}

	loader := r.Loader()
	if loader == nil {
		return nil, errs.Unavailable.Errorf("loader of root is not ready")
	}
	return loader.Invoke(ctx, edge.Do("load"), data, opts)
}

func (r *Root) deregister(data any, opts edge.Options) (any, error) {
	if opts != nil {
		return r.Set(nil, edge.P(opts["token"], data))
	}
	switch v := data.(type) {
	case edge.Path:
		return r.Set(nil, v)
	case []any:
		return r.Set(nil, edge.Path(v))
	case []string:
		return r.Set(nil, edge.Path(edge.ToSlice(v)))
	case Registration:
		v.Component = nil
		return r.Set(v, nil)
	case *Registration:
		if v != nil {
			return r.Set(Registration{ID: v.ID, Token: v.Token}, nil)
		}
	}
	return r.Set(nil, edge.P(nil, data))
}

// initialize builds the loader from the loader configuration, runs its
// initialize, designates it and loads the preloads in order.
func (r *Root) initialize(ctx context.Context) (any, error) {
	loaderConfig, err := r.loaderConfig(ctx)
	if err != nil {
		return nil, err
	}

	refSource := any(r.config.Loader)
	if m, ok := loaderConfig["module"]; ok && !edge.IsBlank(m) {
		refSource = m
	}
	ref, err := module.ParseRef(refSource)
	if err != nil {
		return nil, err
	}
	build, err := r.host.Modules.Builder(ref)
	if err != nil {
		return nil, err
	}

	loader, err := build(ctx, loaderConfig, r)
	if err != nil {
		return nil, fmt.Errorf("build loader %s: %w", ref, err)
	}
	if _, err := loader.Invoke(ctx, edge.Do("initialize"), nil, nil); err != nil {
		return nil, fmt.Errorf("initialize loader %s: %w", ref, err)
	}

	r.insert(LoaderID, loader)

	for _, id := range r.config.Preloads {
		if _, err := loader.Invoke(ctx, edge.Do("load"), id, nil); err != nil {
			return nil, fmt.Errorf("preload %s: %w", id, err)
		}
	}

	r.logger.Info().
		Str("loader", ref.String()).
		Strs("preloads", r.config.Preloads).
		Msg("system is started")
	r.host.Events.Publish(ctx, events.Event{
		Name:   events.SystemStarted,
		Source: "registry",
		Data:   map[string]any{"loader": ref.String()},
	})
	return r, nil
}

// loaderConfig resolves the loader configuration and injects the root
// token when the configuration carries none.
func (r *Root) loaderConfig(ctx context.Context) (map[string]any, error) {
	raw := r.config.LoaderConfig
	if src, ok := raw.(string); ok {
		loaded, err := config.LoadSource(ctx, r.host.Modules, src)
		if err != nil {
			return nil, err
		}
		raw = loaded
	}

	var cfg map[string]any
	switch v := raw.(type) {
	case nil:
		cfg = map[string]any{}
	case map[string]any:
		cfg = maps.Clone(v)
	default:
		cfg = map[string]any{}
		if err := config.Decode(v, &cfg); err != nil {
			return nil, err
		}
	}

	if _, ok := cfg["token"]; !ok && r.config.Token != "" {
		cfg["token"] = r.config.Token
	}
	return cfg, nil
}

func (r *Root) quit(ctx context.Context, data any, opts edge.Options) (any, error) {
	r.mu.Lock()
	clear(r.components)
	loader := r.loader
	r.loader = nil
	r.mu.Unlock()

	r.host.Metrics.SetComponents(0)
	r.logger.Info().Msg("system quit")
	r.host.Events.Publish(ctx, events.Event{Name: events.SystemQuit, Source: "registry"})

	if loader != nil {
		return loader.Invoke(ctx, edge.Do("quit"), data, opts)
	}
	return false, nil
}
