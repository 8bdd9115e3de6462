package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/artpar/deepgraph/adapters/clock"
	"github.com/rs/zerolog"
)

func TestNewBus(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	if bus == nil {
		t.Fatal("NewBus returned nil")
	}
	if len(bus.handlers) != 0 {
		t.Error("handlers map should be empty on creation")
	}
}

func TestPublishOrder(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var order []string
	record := func(tag string) Handler {
		return func(ctx context.Context, event Event) error {
			order = append(order, tag)
			return nil
		}
	}
	bus.Subscribe("*", record("all"))
	bus.Subscribe("component.*", record("component"))
	bus.Subscribe(ComponentRegistered, record("exact-1"))
	bus.Subscribe(ComponentRegistered, record("exact-2"))
	bus.Subscribe(ComponentDeregistered, record("other"))

	bus.Publish(context.Background(), Event{Name: ComponentRegistered, Component: "alice"})

	want := []string{"exact-1", "exact-2", "component", "all"}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %s, want %s", i, order[i], want[i])
		}
	}
}

func TestPublishPassesEvent(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var got Event
	bus.Subscribe(LoaderChanged, func(ctx context.Context, event Event) error {
		got = event
		return nil
	})
	bus.Publish(context.Background(), Event{
		Name:      LoaderChanged,
		Source:    "registry",
		Component: "loader",
		Data:      map[string]any{"replaced": true},
	})

	if got.Source != "registry" || got.Component != "loader" {
		t.Errorf("unexpected event %+v", got)
	}
	if got.Data["replaced"] != true {
		t.Errorf("Data = %v", got.Data)
	}
}

func TestPublishStampsTime(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	seq := clock.NewSequence(start, time.Second)
	bus.SetClock(seq)

	var got []time.Time
	bus.Subscribe("*", func(ctx context.Context, event Event) error {
		got = append(got, event.Time)
		return nil
	})

	bus.Publish(context.Background(), Event{Name: SystemStarted})
	seq.Skip(time.Minute)
	bus.Publish(context.Background(), Event{Name: SystemQuit})
	explicit := start.Add(time.Hour)
	bus.Publish(context.Background(), Event{Name: SystemQuit, Time: explicit})
	bus.Publish(context.Background(), Event{Name: SystemQuit})

	want := []time.Time{
		start,
		start.Add(time.Second + time.Minute),
		explicit,
		start.Add(2*time.Second + time.Minute),
	}
	if len(got) != len(want) {
		t.Fatalf("got %d events, want %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("event %d Time = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestPublishContinuesAfterError(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	calls := 0
	bus.Subscribe(SystemQuit, func(ctx context.Context, event Event) error {
		calls++
		return errors.New("boom")
	})
	bus.Subscribe(SystemQuit, func(ctx context.Context, event Event) error {
		calls++
		return nil
	})
	bus.Publish(context.Background(), Event{Name: SystemQuit})

	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestSubscribeFromHandler(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	bus.Subscribe(BootStarted, func(ctx context.Context, event Event) error {
		bus.Subscribe(BootStopped, func(ctx context.Context, event Event) error { return nil })
		return nil
	})

	done := make(chan struct{})
	go func() {
		bus.Publish(context.Background(), Event{Name: BootStarted})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish deadlocked when a handler subscribed")
	}
	if !bus.HasSubscribers(BootStopped) {
		t.Error("expected subscriber registered from handler")
	}
}

func TestHasSubscribers(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	if bus.HasSubscribers(ComponentLoaded) {
		t.Error("empty bus should have no subscribers")
	}

	bus.Subscribe("component.*", func(ctx context.Context, event Event) error { return nil })
	if !bus.HasSubscribers(ComponentLoaded) {
		t.Error("wildcard subscriber not found")
	}
	if bus.HasSubscribers(BootStarted) {
		t.Error("boot events should not match component wildcard")
	}
}

func TestNilBus(t *testing.T) {
	var bus *Bus
	bus.Publish(context.Background(), Event{Name: SystemStarted})
	if bus.HasSubscribers(SystemStarted) {
		t.Error("nil bus should have no subscribers")
	}
}
