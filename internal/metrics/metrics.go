// Package metrics exposes runtime observability data through a Prometheus
// registry. A single process-wide registry is created by Init and scraped
// through Metrics.Handler; every Record*/Set* method is a no-op on a nil
// *Metrics, so packages can call them unconditionally whether or not the
// runtime enabled metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics wraps the Prometheus collectors for one runtime instance.
type Metrics struct {
	registry *prometheus.Registry

	ticksTotal          *prometheus.CounterVec
	tickOverrunsTotal   *prometheus.CounterVec
	runnableDuration    *prometheus.HistogramVec
	publishesTotal      *prometheus.CounterVec
	operationCallsTotal *prometheus.CounterVec
	operationDuration   *prometheus.HistogramVec

	moduleState *prometheus.GaugeVec
	uptime      prometheus.GaugeFunc

	circuitBreakerState      *prometheus.GaugeVec
	circuitBreakerTripsTotal *prometheus.CounterVec
}

var defaultDurationBuckets = []float64{.1, .25, .5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000}

var global *Metrics

// Init creates the process-wide registry under the given namespace. Safe
// to call once at startup; later calls replace the previous registry.
func Init(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,

		ticksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ticks_total",
				Help:      "Total runnable invocations dispatched by the executor",
			},
			[]string{"module", "runnable"},
		),

		tickOverrunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tick_overruns_total",
				Help:      "Runnable invocations that exceeded their configured budget",
			},
			[]string{"module", "runnable"},
		),

		runnableDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "runnable_duration_milliseconds",
				Help:      "Wall-clock duration of a single runnable invocation",
				Buckets:   defaultDurationBuckets,
			},
			[]string{"module", "runnable"},
		),

		publishesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "data_element_publishes_total",
				Help:      "Total samples published on a data element",
			},
			[]string{"interface", "element"},
		),

		operationCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operation_calls_total",
				Help:      "Total operation invocations by result",
			},
			[]string{"interface", "operation", "result"},
		),

		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_milliseconds",
				Help:      "Duration of an operation call from request to result",
				Buckets:   defaultDurationBuckets,
			},
			[]string{"interface", "operation"},
		),

		moduleState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "module_state",
				Help:      "Current module lifecycle state (0=not_initialized,1=not_operational,2=starting,3=operational,4=shutdown)",
			},
			[]string{"module"},
		),

		circuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Current circuit breaker state (0=closed, 1=open, 2=half_open)",
			},
			[]string{"endpoint"},
		),

		circuitBreakerTripsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_trips_total",
				Help:      "Total circuit breaker state transitions",
			},
			[]string{"endpoint", "to_state"},
		),
	}

	startedAt := time.Now()
	m.uptime = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Time since the runtime started",
		},
		func() float64 { return time.Since(startedAt).Seconds() },
	)

	registry.MustRegister(
		m.ticksTotal,
		m.tickOverrunsTotal,
		m.runnableDuration,
		m.publishesTotal,
		m.operationCallsTotal,
		m.operationDuration,
		m.moduleState,
		m.uptime,
		m.circuitBreakerState,
		m.circuitBreakerTripsTotal,
	)

	global = m
	return m
}

// Global returns the process-wide instance, or nil if Init has not run.
func Global() *Metrics {
	return global
}

// RecordTick records one runnable invocation and its duration.
func (m *Metrics) RecordTick(module, runnable string, d time.Duration, overrun bool) {
	if m == nil {
		return
	}
	m.ticksTotal.WithLabelValues(module, runnable).Inc()
	m.runnableDuration.WithLabelValues(module, runnable).Observe(float64(d.Milliseconds()))
	if overrun {
		m.tickOverrunsTotal.WithLabelValues(module, runnable).Inc()
	}
}

// RecordPublish records one sample published on a data element.
func (m *Metrics) RecordPublish(iface, element string) {
	if m == nil {
		return
	}
	m.publishesTotal.WithLabelValues(iface, element).Inc()
}

// RecordOperationCall records one completed operation call.
func (m *Metrics) RecordOperationCall(iface, operation string, d time.Duration, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.operationCallsTotal.WithLabelValues(iface, operation, result).Inc()
	m.operationDuration.WithLabelValues(iface, operation).Observe(float64(d.Milliseconds()))
}

// SetModuleState records a module's current lifecycle state as an integer
// gauge, matching the ordinal of the runtime.State type.
func (m *Metrics) SetModuleState(module string, state int) {
	if m == nil {
		return
	}
	m.moduleState.WithLabelValues(module).Set(float64(state))
}

// SetCircuitBreakerState records the current state for a wire endpoint.
func (m *Metrics) SetCircuitBreakerState(endpoint string, state int) {
	if m == nil {
		return
	}
	m.circuitBreakerState.WithLabelValues(endpoint).Set(float64(state))
}

// RecordCircuitBreakerTrip records a circuit breaker state transition.
func (m *Metrics) RecordCircuitBreakerTrip(endpoint, toState string) {
	if m == nil {
		return
	}
	m.circuitBreakerTripsTotal.WithLabelValues(endpoint, toState).Inc()
}

// Handler returns the HTTP handler for Prometheus scraping.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("metrics not initialized"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying Prometheus registry, for tests that want
// to register additional collectors or inspect gathered families directly.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
