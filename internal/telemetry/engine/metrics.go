// Package engine provides opt-in, low-overhead Prometheus telemetry for the
// evaluation engine: tick counts, per-node evaluation duration, mesh
// rank-recompute counts, TryExcept capture counts, real-time clock drift,
// and per-slot live-key counts for nested sub-graph scheduling. Metrics
// stay bounded-cardinality-only: the one labeled metric (slot) is keyed by
// a fixed-size rendezvous slot pool, never by key identity. Recording is
// gated by an atomic enabled flag, and every metric is registered eagerly
// at init() time. There is no ANSI-rendered exporter loop here; that kind
// of log-line presentation layer is orthogonal to what this package needs
// to expose (Prometheus scraping).
package engine

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var modEnabled atomic.Bool

var (
	ticksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tsengine_ticks_total",
		Help: "Total number of evaluation ticks run",
	})
	nodesEvaluatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tsengine_nodes_evaluated_total",
		Help: "Total number of node evaluations across all ticks",
	})
	nodeEvalFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tsengine_node_eval_failures_total",
		Help: "Total number of node evaluations that returned an error",
	})
	nodeEvalDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tsengine_node_eval_duration_seconds",
		Help:    "Distribution of per-node evaluation wall time",
		Buckets: prometheus.ExponentialBuckets(1e-6, 4, 12),
	})
	meshRankRecomputeTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tsengine_mesh_rank_recompute_total",
		Help: "Total number of MeshNode rank recomputations triggered by AddGraphDependency",
	})
	tryExceptCapturesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tsengine_try_except_captures_total",
		Help: "Total number of failures captured at a TryExceptNode boundary",
	})
	clockDriftSeconds = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tsengine_realtime_clock_drift_seconds",
		Help: "Most recently observed gap between a RealTimeClock's scheduled and actual wakeup time",
	})
	// slotLiveKeys is labeled by rendezvous worker slot, not by key
	// identity: the slot pool is a small fixed size, so cardinality stays
	// bounded regardless of how many distinct TSD/mesh keys come and go.
	slotLiveKeys = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tsengine_nested_slot_live_keys",
		Help: "Number of live per-key sub-graphs currently assigned to each rendezvous worker slot",
	}, []string{"slot"})
)

func init() {
	prometheus.MustRegister(
		ticksTotal,
		nodesEvaluatedTotal,
		nodeEvalFailuresTotal,
		nodeEvalDuration,
		meshRankRecomputeTotal,
		tryExceptCapturesTotal,
		clockDriftSeconds,
		slotLiveKeys,
	)
}

// Enable turns metric recording on or off. Disabled by default so an
// embedding binary that never calls Enable pays no bookkeeping cost beyond
// the registration done in init().
func Enable(enabled bool) { modEnabled.Store(enabled) }

// Enabled reports whether metric recording is currently on.
func Enabled() bool { return modEnabled.Load() }

// StartMetricsEndpoint exposes /metrics on addr in a background goroutine.
func StartMetricsEndpoint(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		_ = server.ListenAndServe()
	}()
}

// ObserveMeshRankRecompute records one MeshNode rank recomputation.
func ObserveMeshRankRecompute() {
	if modEnabled.Load() {
		meshRankRecomputeTotal.Inc()
	}
}

// ObserveTryExceptCapture records one failure captured at a TryExceptNode
// boundary.
func ObserveTryExceptCapture() {
	if modEnabled.Load() {
		tryExceptCapturesTotal.Inc()
	}
}

// ObserveClockDrift records the gap between a RealTimeClock's intended and
// actual wakeup time.
func ObserveClockDrift(d time.Duration) {
	if modEnabled.Load() {
		clockDriftSeconds.Set(d.Seconds())
	}
}

// ObserveSlotLiveKeys records the current number of live per-key sub-graphs
// assigned to a rendezvous worker slot.
func ObserveSlotLiveKeys(slot string, count int) {
	if modEnabled.Load() {
		slotLiveKeys.WithLabelValues(slot).Set(float64(count))
	}
}
