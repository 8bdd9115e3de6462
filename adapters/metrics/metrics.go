// Package metrics provides Prometheus metrics collection for the component
// runtime.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "deepgraph"

// Collector holds all Prometheus metrics of one running system.
// A nil *Collector records nothing.
type Collector struct {
	// Loader metrics
	Loads        *prometheus.CounterVec
	LoadDuration *prometheus.HistogramVec

	// Registry metrics
	RegistryOps *prometheus.CounterVec
	Components  prometheus.Gauge

	// Lifecycle metrics
	Transitions  *prometheus.CounterVec
	InvokeErrors *prometheus.CounterVec

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
	ConfigLastReload   prometheus.Gauge
}

// New creates a collector registered with the default Prometheus registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a new metrics collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		Loads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "loads_total",
				Help:      "Total number of loader resolutions by outcome",
			},
			[]string{"outcome"},
		),
		LoadDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "load_duration_seconds",
				Help:      "Time spent constructing components",
				Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"outcome"},
		),
		RegistryOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "registry_operations_total",
				Help:      "Total number of registry mutations by operation and result",
			},
			[]string{"op", "result"},
		),
		Components: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "registered_components",
				Help:      "Number of components currently registered",
			},
		),
		Transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lifecycle_transitions_total",
				Help:      "Total number of lifecycle transitions",
			},
			[]string{"command", "result"},
		),
		InvokeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invoke_errors_total",
				Help:      "Total number of failed invocations by error kind",
			},
			[]string{"kind"},
		),
		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reloads_total",
				Help:      "Total number of successful declaration reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reload_errors_total",
				Help:      "Total number of declaration reload errors",
			},
		),
		ConfigLastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "config_last_reload_timestamp",
				Help:      "Unix timestamp of last successful declaration reload",
			},
		),
	}
}

// ObserveLoad records a loader resolution. outcome is "component", "data"
// or "error".
func (c *Collector) ObserveLoad(outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.Loads.WithLabelValues(outcome).Inc()
	c.LoadDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// RegistryOp records a registry mutation.
func (c *Collector) RegistryOp(op, result string) {
	if c == nil {
		return
	}
	c.RegistryOps.WithLabelValues(op, result).Inc()
}

// SetComponents records the registry size.
func (c *Collector) SetComponents(n int) {
	if c == nil {
		return
	}
	c.Components.Set(float64(n))
}

// Transition records a lifecycle command.
func (c *Collector) Transition(command, result string) {
	if c == nil {
		return
	}
	c.Transitions.WithLabelValues(command, result).Inc()
}

// InvokeError records a failed invocation.
func (c *Collector) InvokeError(kind string) {
	if c == nil {
		return
	}
	c.InvokeErrors.WithLabelValues(kind).Inc()
}

// ConfigReloaded records the outcome of a declaration reload.
func (c *Collector) ConfigReloaded(err error) {
	if c == nil {
		return
	}
	if err != nil {
		c.ConfigReloadErrors.Inc()
		return
	}
	c.ConfigReloads.Inc()
	c.ConfigLastReload.SetToCurrentTime()
}
