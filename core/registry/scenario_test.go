package registry_test

import (
	"context"
	"testing"

	"github.com/artpar/deepgraph/core/edge"
	"github.com/artpar/deepgraph/core/errs"
	"github.com/artpar/deepgraph/core/events"
	"github.com/artpar/deepgraph/core/module"
	"github.com/artpar/deepgraph/core/registry"
	"github.com/artpar/deepgraph/examples/greetings"
)

func mustRef(t *testing.T, s string) module.Ref {
	t.Helper()
	ref, err := module.ParseRef(s)
	if err != nil {
		t.Fatalf("ParseRef(%s) error = %v", s, err)
	}
	return ref
}

func scenarioVertices() map[string]any {
	v := greetings.Vertices()
	delete(v, "meet")
	v["logger"] = map[string]any{
		"module":     "logger",
		"initialize": true,
		"loggers": map[string]any{
			"default": map[string]any{"level": "DEBUG"},
		},
	}
	return v
}

func TestScenario_Greetings(t *testing.T) {
	h, ctx := newHost()
	root := registry.New(ctx, registry.Config{
		Token: token,
		LoaderConfig: map[string]any{
			"name":     "HelloWorld",
			"register": true,
			"vertices": scenarioVertices(),
		},
		Preloads: []string{"logger"},
	})

	registered := map[string]int{}
	h.Events.Subscribe(events.ComponentRegistered, func(ctx context.Context, e events.Event) error {
		registered[e.Component]++
		return nil
	})

	if got, _ := root.Get(edge.P("logger")); got != nil {
		t.Fatalf("logger registered before initialize: %v", got)
	}
	started, err := root.Invoke(ctx, edge.Do("initialize"), nil, nil)
	if err != nil {
		t.Fatalf("initialize error = %v", err)
	}
	if started != root {
		t.Errorf("initialize = %v, want the root", started)
	}
	if registered[registry.LoaderID] != 1 {
		t.Errorf("loader registered events = %d, want 1", registered[registry.LoaderID])
	}

	level, err := root.Get(edge.P("logger", "loggers", "default", "level"))
	if err != nil || level != "DEBUG" {
		t.Errorf("logger level = %v, %v; want DEBUG", level, err)
	}

	if got, _ := root.Get(edge.P("Bob")); got != nil {
		t.Fatal("Bob registered before load")
	}
	res, err := root.Invoke(ctx, edge.Do("load"), "Bob", nil)
	if err != nil {
		t.Fatalf("load Bob error = %v", err)
	}
	bob := res.(edge.Edge)
	if got, _ := root.Get(edge.P("Bob")); got != bob {
		t.Error("Bob not registered by load")
	}
	if name, _ := edge.Get(bob, edge.P("name")); name != "Bob" {
		t.Errorf("Bob name = %v", name)
	}
	if _, err := edge.Get(bob, edge.P("gender")); !errs.Is(err, errs.NotFound) {
		t.Errorf("Get(gender) error = %v, want NotFound", err)
	}
	if _, err := bob.Invoke(ctx, edge.Do("noop"), nil, nil); !errs.Is(err, errs.Unknown) {
		t.Errorf("Invoke(noop) error = %v, want Unknown", err)
	}

	if _, ok := root.Lookup("alice"); ok {
		t.Fatal("alice registered before meeting")
	}
	response, err := bob.Invoke(ctx, edge.Do("meet"), "alice", nil)
	if err != nil {
		t.Fatalf("meet error = %v", err)
	}
	if response != greetings.Welcome {
		t.Errorf("meet = %v, want %q", response, greetings.Welcome)
	}
	if _, ok := root.Lookup("alice"); !ok {
		t.Error("alice not registered after meeting")
	}
	if registered["alice"] != 1 || registered["Bob"] != 1 {
		t.Errorf("registered events = %v", registered)
	}

	if _, err := root.Invoke(ctx, edge.Do("deregister"), "Bob", nil); !errs.Is(err, errs.Forbidden) {
		t.Errorf("deregister without token error = %v, want Forbidden", err)
	}
	removed, err := root.Invoke(ctx, edge.Do("deregister"), "Bob", edge.Options{"token": token})
	if err != nil || removed != true {
		t.Fatalf("deregister = %v, %v; want true", removed, err)
	}
	if _, ok := root.Lookup("Bob"); ok {
		t.Error("Bob still registered")
	}

	res, err = root.Invoke(ctx, edge.Do("load"), "Bob", nil)
	if err != nil {
		t.Fatalf("reload Bob error = %v", err)
	}
	if res.(edge.Edge) == bob {
		t.Error("reload returned the old instance")
	}
	if name, _ := edge.Get(res, edge.P("name")); name != "Bob" {
		t.Errorf("new Bob name = %v", name)
	}
}

func TestScenario_MeetRelay(t *testing.T) {
	_, ctx := newHost()
	root := registry.New(ctx, registry.Config{
		Token:        token,
		LoaderConfig: map[string]any{"vertices": "greetings/vertices"},
		Preloads:     []string{"meet"},
	})

	if _, err := root.Invoke(ctx, edge.Do("initialize"), nil, nil); err != nil {
		t.Fatalf("initialize error = %v", err)
	}
	for _, id := range []string{"meet", "alice", "Bob"} {
		if _, ok := root.Lookup(id); !ok {
			t.Errorf("%s not registered after the relay ran", id)
		}
	}
}
