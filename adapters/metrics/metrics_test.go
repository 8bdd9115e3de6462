package metrics_test

import (
	"errors"
	"testing"
	"time"

	"github.com/artpar/deepgraph/adapters/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewWithRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	if m.Loads == nil || m.RegistryOps == nil || m.Components == nil {
		t.Fatal("collector fields not initialized")
	}
	if m.Transitions == nil || m.InvokeErrors == nil || m.ConfigReloads == nil {
		t.Fatal("collector fields not initialized")
	}
}

func TestObserveLoad(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	m.ObserveLoad("component", 2*time.Millisecond)
	m.ObserveLoad("component", time.Millisecond)
	m.ObserveLoad("data", 0)

	if got := testutil.ToFloat64(m.Loads.WithLabelValues("component")); got != 2 {
		t.Errorf("component loads = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Loads.WithLabelValues("data")); got != 1 {
		t.Errorf("data loads = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(m.LoadDuration); n != 2 {
		t.Errorf("load duration series = %d, want 2", n)
	}
}

func TestRegistryMetrics(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())

	m.RegistryOp("register", "ok")
	m.RegistryOp("register", "forbidden")
	m.RegistryOp("register", "ok")
	m.SetComponents(3)

	if got := testutil.ToFloat64(m.RegistryOps.WithLabelValues("register", "ok")); got != 2 {
		t.Errorf("register ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Components); got != 3 {
		t.Errorf("components = %v, want 3", got)
	}
}

func TestLifecycleMetrics(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())

	m.Transition("start", "ok")
	m.Transition("stop", "unavailable")
	m.InvokeError("not_found")

	if got := testutil.ToFloat64(m.Transitions.WithLabelValues("stop", "unavailable")); got != 1 {
		t.Errorf("stop transitions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.InvokeErrors.WithLabelValues("not_found")); got != 1 {
		t.Errorf("invoke errors = %v, want 1", got)
	}
}

func TestConfigReloaded(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())

	m.ConfigReloaded(nil)
	m.ConfigReloaded(errors.New("parse error"))

	if got := testutil.ToFloat64(m.ConfigReloads); got != 1 {
		t.Errorf("reloads = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ConfigReloadErrors); got != 1 {
		t.Errorf("reload errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ConfigLastReload); got == 0 {
		t.Error("last reload timestamp not set")
	}
}

func TestNilCollector(t *testing.T) {
	var m *metrics.Collector
	m.ObserveLoad("error", time.Second)
	m.RegistryOp("deregister", "ok")
	m.SetComponents(1)
	m.Transition("start", "ok")
	m.InvokeError("unknown")
	m.ConfigReloaded(nil)
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.NewWithRegistry(reg)

	defer func() {
		if recover() == nil {
			t.Error("expected panic registering twice with the same registry")
		}
	}()
	metrics.NewWithRegistry(reg)
}
