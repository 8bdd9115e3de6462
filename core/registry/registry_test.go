package registry_test

import (
	"context"
	"testing"

	"github.com/artpar/deepgraph/adapters/idgen"
	"github.com/artpar/deepgraph/adapters/logger"
	"github.com/artpar/deepgraph/core/edge"
	"github.com/artpar/deepgraph/core/errs"
	"github.com/artpar/deepgraph/core/events"
	"github.com/artpar/deepgraph/core/host"
	"github.com/artpar/deepgraph/core/loader"
	"github.com/artpar/deepgraph/core/registry"
	"github.com/artpar/deepgraph/examples/greetings"
	"github.com/rs/zerolog"
)

const token = "secret2+@#%"

func newHost() (*host.Host, context.Context) {
	h := host.New(zerolog.Nop())
	h.IDs = idgen.NewSequential("id")
	h.Modules.Provide("loader", loader.Build)
	h.Modules.Provide("logger", logger.Build)
	greetings.Register(h.Modules)
	return h, host.WithContext(context.Background(), h)
}

func component(name string) edge.Edge {
	return edge.NewVector(map[string]any{"name": name})
}

func TestRoot_SetForbidden(t *testing.T) {
	_, ctx := newHost()
	root := registry.New(ctx, registry.Config{Token: token})

	tests := []struct {
		name  string
		value any
		path  edge.Path
	}{
		{"registration wrong token", registry.Registration{Component: component("a"), ID: "a", Token: "wrong"}, nil},
		{"registration no token", registry.Registration{Component: component("a"), ID: "a"}, nil},
		{"registration no id", registry.Registration{Component: component("a"), Token: "wrong"}, nil},
		{"registration pointer", &registry.Registration{Component: component("a"), Token: "wrong"}, nil},
		{"path token overrides", registry.Registration{Component: component("a"), Token: token}, edge.P("wrong", "a")},
		{"bare component", component("a"), edge.P("wrong", "a")},
		{"bare component no path", component("a"), nil},
		{"deregister", nil, edge.P("wrong", "a")},
		{"deregister absent", edge.Absent, edge.P(nil, "a")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := root.Set(tt.value, tt.path)
			if !errs.Is(err, errs.Forbidden) {
				t.Errorf("Set() error = %v, want Forbidden", err)
			}
		})
	}
	if root.Len() != 0 {
		t.Errorf("registry mutated: %v", root.IDs())
	}
}

func TestRoot_RegisterDeregister(t *testing.T) {
	_, ctx := newHost()
	root := registry.New(ctx, registry.Config{Token: token})
	a := component("a")

	id, err := root.Set(registry.Registration{Component: a, ID: "a", Token: token}, nil)
	if err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if id != "a" {
		t.Errorf("Set() = %v, want a", id)
	}
	if got, _ := root.Get(edge.P("a")); got != a {
		t.Errorf("Get(a) = %v, want registered component", got)
	}
	if got, _ := root.Get(edge.P("a", "name")); got != "a" {
		t.Errorf("Get(a.name) = %v, want a", got)
	}

	removed, err := root.Set(nil, edge.P(token, "a"))
	if err != nil || removed != true {
		t.Fatalf("first deregister = %v, %v; want true", removed, err)
	}
	removed, err = root.Set(nil, edge.P(token, "a"))
	if err != nil || removed != false {
		t.Fatalf("second deregister = %v, %v; want false", removed, err)
	}

	if _, err := root.Set(nil, edge.P(token)); !errs.Is(err, errs.Invalid) {
		t.Errorf("deregister without id error = %v, want Invalid", err)
	}
}

func TestRoot_DeregisterRemovesOnlyTarget(t *testing.T) {
	_, ctx := newHost()
	root := registry.New(ctx, registry.Config{Token: token})

	for _, id := range []string{"a", "b", "c"} {
		if _, err := root.Set(component(id), edge.P(token, id)); err != nil {
			t.Fatalf("Set(%s) error = %v", id, err)
		}
	}
	if _, err := root.Set(edge.Absent, edge.P(token, "b")); err != nil {
		t.Fatalf("deregister error = %v", err)
	}

	ids := root.IDs()
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "c" {
		t.Errorf("IDs() = %v, want [a c]", ids)
	}
}

func TestRoot_GeneratedID(t *testing.T) {
	_, ctx := newHost()
	root := registry.New(ctx, registry.Config{Token: token})

	id, err := root.Set(registry.Registration{Component: component("x"), Token: token}, nil)
	if err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if id != "id1" {
		t.Errorf("generated id = %v, want id1", id)
	}
}

func TestRoot_SetRejectsNonComponents(t *testing.T) {
	_, ctx := newHost()
	root := registry.New(ctx, registry.Config{Token: token})

	if _, err := root.Set("not a component", edge.P(token, "x")); !errs.Is(err, errs.Invalid) {
		t.Errorf("Set(string) error = %v, want Invalid", err)
	}
}

func TestRoot_EmptyToken(t *testing.T) {
	_, ctx := newHost()
	root := registry.New(ctx, registry.Config{})

	if _, err := root.Set(component("x"), edge.P(nil, "x")); err != nil {
		t.Errorf("Set() without tokens error = %v", err)
	}
	if _, err := root.Set(component("y"), edge.P("guess", "y")); !errs.Is(err, errs.Forbidden) {
		t.Errorf("Set() with unexpected token error = %v, want Forbidden", err)
	}
}

func TestRoot_GetMissing(t *testing.T) {
	_, ctx := newHost()
	root := registry.New(ctx, registry.Config{Token: token})

	got, err := root.Get(edge.P("nobody"))
	if got != nil || err != nil {
		t.Errorf("Get(nobody) = %v, %v; want nil, nil", got, err)
	}
	snapshot, _ := root.Get(nil)
	if m, ok := snapshot.(map[string]edge.Edge); !ok || len(m) != 0 {
		t.Errorf("Get() = %#v, want empty snapshot", snapshot)
	}
}

func TestRoot_LoadWithoutLoader(t *testing.T) {
	_, ctx := newHost()
	root := registry.New(ctx, registry.Config{Token: token})

	if _, err := root.Invoke(ctx, edge.Do("load"), "Bob", nil); !errs.Is(err, errs.Unavailable) {
		t.Errorf("load error = %v, want Unavailable", err)
	}

	a := component("a")
	if _, err := root.Invoke(ctx, edge.Do("register"), a, edge.Options{"id": "a", "token": token}); err != nil {
		t.Fatalf("register error = %v", err)
	}
	got, err := root.Invoke(ctx, edge.Do("get"), "a", nil)
	if err != nil || got != a {
		t.Errorf("get(a) = %v, %v", got, err)
	}
	got, err = root.Invoke(ctx, edge.Do("load", "a"), nil, nil)
	if err != nil || got != a {
		t.Errorf("load with path = %v, %v", got, err)
	}
}

func TestRoot_UnknownIntent(t *testing.T) {
	_, ctx := newHost()
	root := registry.New(ctx, registry.Config{Token: token})

	if _, err := root.Invoke(ctx, edge.Do("fly"), nil, nil); !errs.Is(err, errs.Unknown) {
		t.Errorf("Invoke(fly) error = %v, want Unknown", err)
	}
}

func TestRoot_LoaderReplacement(t *testing.T) {
	h, ctx := newHost()
	root := registry.New(ctx, registry.Config{Token: token, LoaderConfig: map[string]any{}})
	if _, err := root.Invoke(ctx, edge.Do("initialize"), nil, nil); err != nil {
		t.Fatalf("initialize error = %v", err)
	}

	changed := 0
	h.Events.Subscribe(events.LoaderChanged, func(ctx context.Context, e events.Event) error {
		changed++
		return nil
	})

	replacement := component("replacement")
	if _, err := root.Set(replacement, edge.P(token, registry.LoaderID)); err != nil {
		t.Fatalf("Set(loader) error = %v", err)
	}
	if root.Loader() != replacement {
		t.Error("designated loader not replaced")
	}
	if changed != 1 {
		t.Errorf("loader.changed events = %d, want 1", changed)
	}

	if _, err := root.Set(nil, edge.P(token, registry.LoaderID)); err != nil {
		t.Fatalf("deregister loader error = %v", err)
	}
	if root.Loader() != nil {
		t.Error("loader still designated after deregistration")
	}
}

func TestRoot_InitializeFromCatalogSource(t *testing.T) {
	h, ctx := newHost()
	h.Modules.ProvideData("app/loader", map[string]any{
		"name":     "catalog",
		"vertices": "greetings/vertices",
	})
	root := registry.New(ctx, registry.Config{Token: token, LoaderConfig: "app/loader"})

	if _, err := root.Invoke(ctx, edge.Do("initialize"), nil, nil); err != nil {
		t.Fatalf("initialize error = %v", err)
	}
	if name, _ := root.Get(edge.P("loader", "name")); name != "catalog" {
		t.Errorf("loader name = %v, want catalog", name)
	}

	// The token was injected into the loader configuration, so the loader
	// may register.
	if _, err := root.Invoke(ctx, edge.Do("load"), "Bob", nil); err != nil {
		t.Fatalf("load error = %v", err)
	}
	if _, ok := root.Lookup("Bob"); !ok {
		t.Error("Bob not registered")
	}

	// The catalog data itself is not modified.
	data, _ := h.Modules.Resolve(mustRef(t, "app/loader"))
	if _, ok := data.(map[string]any)["token"]; ok {
		t.Error("token leaked into the catalog data")
	}
}

func TestRoot_InvokeWithForeignContext(t *testing.T) {
	_, ctx := newHost()
	root := registry.New(ctx, registry.Config{
		Token:        token,
		LoaderConfig: map[string]any{"vertices": "greetings/vertices"},
	})

	// A context without the host, as an HTTP handler would pass.
	bare := context.Background()
	if _, err := root.Invoke(bare, edge.Do("initialize"), nil, nil); err != nil {
		t.Fatalf("initialize error = %v", err)
	}
	bob, err := root.Invoke(bare, edge.Do("load"), "Bob", nil)
	if err != nil {
		t.Fatalf("load error = %v", err)
	}
	if _, err := bob.(edge.Edge).Invoke(bare, edge.Do("meet"), "alice", nil); err != nil {
		t.Fatalf("meet error = %v", err)
	}
	if _, ok := root.Lookup("alice"); !ok {
		t.Error("alice not registered in the root's own system")
	}
}

func TestRoot_InitializeErrors(t *testing.T) {
	_, ctx := newHost()

	root := registry.New(ctx, registry.Config{Token: token, Loader: "missing", LoaderConfig: map[string]any{}})
	if _, err := root.Invoke(ctx, edge.Do("initialize"), nil, nil); !errs.Is(err, errs.NotFound) {
		t.Errorf("missing loader module error = %v, want NotFound", err)
	}

	root = registry.New(ctx, registry.Config{Token: token, LoaderConfig: map[string]any{}, Preloads: []string{"ghost"}})
	if _, err := root.Invoke(ctx, edge.Do("initialize"), nil, nil); !errs.Is(err, errs.NotFound) {
		t.Errorf("missing preload error = %v, want NotFound", err)
	}
}

func TestRoot_Quit(t *testing.T) {
	h, ctx := newHost()
	root := registry.New(ctx, registry.Config{Token: token, LoaderConfig: map[string]any{"vertices": greetings.Vertices()}})

	quits := 0
	h.Events.Subscribe(events.SystemQuit, func(ctx context.Context, e events.Event) error {
		quits++
		return nil
	})

	if got, err := root.Invoke(ctx, edge.Do("quit"), nil, nil); err != nil || got != false {
		t.Errorf("quit before initialize = %v, %v; want false", got, err)
	}

	if _, err := root.Invoke(ctx, edge.Do("initialize"), nil, nil); err != nil {
		t.Fatalf("initialize error = %v", err)
	}
	if _, err := root.Invoke(ctx, edge.Do("load"), "Bob", nil); err != nil {
		t.Fatalf("load error = %v", err)
	}

	got, err := root.Invoke(ctx, edge.Do("stop"), nil, nil)
	if err != nil || got != true {
		t.Errorf("stop = %v, %v; want true from the loader", got, err)
	}
	if root.Len() != 0 || root.Loader() != nil {
		t.Errorf("registry not cleared: %v", root.IDs())
	}
	if quits != 2 {
		t.Errorf("system.quit events = %d, want 2", quits)
	}
	if _, err := root.Invoke(ctx, edge.Do("load"), "Bob", nil); !errs.Is(err, errs.Unavailable) {
		t.Errorf("load after quit error = %v, want Unavailable", err)
	}
}

func TestBuild(t *testing.T) {
	_, ctx := newHost()

	comp, err := registry.Build(ctx, map[string]any{
		"token":    token,
		"preloads": []any{"logger"},
	}, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	root := comp.(*registry.Root)
	if _, err := root.Set(component("x"), edge.P(token, "x")); err != nil {
		t.Errorf("token not applied: %v", err)
	}

	if _, err := registry.Build(ctx, map[string]any{"preloads": "logger: x"}, nil); !errs.Is(err, errs.Invalid) {
		t.Errorf("Build(bad) error = %v, want Invalid", err)
	}
}
