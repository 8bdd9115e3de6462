package logger_test

import (
	"context"
	"testing"

	"github.com/artpar/deepgraph/adapters/logger"
	"github.com/artpar/deepgraph/core/edge"
	"github.com/artpar/deepgraph/core/errs"
	"github.com/rs/zerolog"
)

func TestBuild(t *testing.T) {
	ctx := context.Background()

	comp, err := logger.Build(ctx, map[string]any{
		"module": "logger",
		"loggers": map[string]any{
			"default": map[string]any{"level": "DEBUG"},
		},
	}, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	got, err := edge.Get(comp, edge.P("loggers", "default", "level"))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "DEBUG" {
		t.Errorf("loggers.default.level = %v, want DEBUG", got)
	}

	if _, err := logger.Build(ctx, "bad", nil); !errs.Is(err, errs.Invalid) {
		t.Errorf("Build(string) error = %v, want Invalid", err)
	}
}

func TestInitializeAppliesLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.GlobalLevel())

	m := logger.New(context.Background(), map[string]any{
		"loggers": map[string]any{"default": map[string]any{"level": "WARN"}},
	})
	got, err := m.Invoke(context.Background(), edge.Do("initialize"), nil, nil)
	if err != nil {
		t.Fatalf("initialize error = %v", err)
	}
	if got != "warn" {
		t.Errorf("applied level = %v, want warn", got)
	}
	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Errorf("global level = %v, want warn", zerolog.GlobalLevel())
	}

	if _, err := m.Set("error", edge.P("level")); err != nil {
		t.Fatalf("Set(level) error = %v", err)
	}
	if got, _ := m.Apply(); got != "error" {
		t.Errorf("applied level = %v, want error", got)
	}
}

func TestInvalidLevel(t *testing.T) {
	m := logger.New(context.Background(), map[string]any{"level": "loud"})
	if _, err := m.Apply(); !errs.Is(err, errs.Invalid) {
		t.Errorf("Apply() error = %v, want Invalid", err)
	}
}

func TestSetNamedLogger(t *testing.T) {
	m := logger.New(context.Background(), nil)

	if _, err := m.Set(map[string]any{"level": "debug"}, edge.P("http")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, _ := m.Get(edge.P("loggers", "http", "level"))
	if got != "debug" {
		t.Errorf("loggers.http.level = %v, want debug", got)
	}
	if l := m.Logger("http"); l.GetLevel() != zerolog.DebugLevel {
		t.Errorf("http logger level = %v, want debug", l.GetLevel())
	}
	if l := m.Logger("other"); l.GetLevel() != zerolog.InfoLevel {
		t.Errorf("fallback logger level = %v, want info", l.GetLevel())
	}
}

func TestUnknownIntent(t *testing.T) {
	m := logger.New(context.Background(), nil)
	if _, err := m.Invoke(context.Background(), edge.Do("rotate"), nil, nil); !errs.Is(err, errs.Unknown) {
		t.Errorf("Invoke(rotate) error = %v, want Unknown", err)
	}
	got, err := m.Invoke(context.Background(), edge.Do("get", "level"), nil, nil)
	if err != nil || got != "info" {
		t.Errorf("Invoke(get level) = %v, %v", got, err)
	}
}
