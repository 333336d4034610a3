package main

import (
	"net/http"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReplicaMetrics bundles every counter and gauge this replica exposes
// about its CRDT views and sync traffic.
type ReplicaMetrics struct {
	OpsApplied      metrics.Counter
	OpsDropped      metrics.Counter
	Tombstones      metrics.Counter
	PendingMessages metrics.Gauge
	BetweenDepth    metrics.Histogram
}

// NewReplicaMetrics returns a ReplicaMetrics. When metricsAddr is
// empty every metric is backed by a discard sink, so recording calls
// are cheap no-ops rather than requiring callers to guard them; when
// it is set, every metric is backed by a real Prometheus collector
// served from that address.
func NewReplicaMetrics(metricsAddr string) *ReplicaMetrics {

	if metricsAddr == "" {
		return &ReplicaMetrics{
			OpsApplied:      discard.NewCounter(),
			OpsDropped:      discard.NewCounter(),
			Tombstones:      discard.NewCounter(),
			PendingMessages: discard.NewGauge(),
			BetweenDepth:    discard.NewHistogram(),
		}
	}

	return &ReplicaMetrics{
		OpsApplied: prometheus.NewCounterFrom(prom.CounterOpts{
			Namespace: "driftline",
			Subsystem: "replica",
			Name:      "ops_applied_total",
			Help:      "Number of CRDT operations applied to a local view",
		}, []string{"view"}),
		OpsDropped: prometheus.NewCounterFrom(prom.CounterOpts{
			Namespace: "driftline",
			Subsystem: "replica",
			Name:      "ops_dropped_total",
			Help:      "Number of CRDT operations dropped because their tag was tombstoned",
		}, []string{"view"}),
		Tombstones: prometheus.NewCounterFrom(prom.CounterOpts{
			Namespace: "driftline",
			Subsystem: "replica",
			Name:      "tombstones_total",
			Help:      "Number of tags recorded as tombstoned",
		}, []string{"view"}),
		PendingMessages: prometheus.NewGaugeFrom(prom.GaugeOpts{
			Namespace: "driftline",
			Subsystem: "comm",
			Name:      "pending_messages",
			Help:      "Number of sync messages currently held back awaiting a causal predecessor",
		}, nil),
		BetweenDepth: prometheus.NewHistogramFrom(prom.HistogramOpts{
			Namespace: "driftline",
			Subsystem: "crdt",
			Name:      "between_depth",
			Help:      "Number of Logoot positions minted by a single Between call",
			Buckets:   []float64{1, 2, 3, 4, 6, 8, 12, 16},
		}, nil),
	}
}

// runMetricsHTTP serves the Prometheus /metrics endpoint on addr,
// blocking until the server stops. A blank addr disables metrics
// serving entirely, matching NewReplicaMetrics's discard-mode choice.
func runMetricsHTTP(logger log.Logger, addr string) {

	if addr == "" {
		level.Debug(logger).Log("msg", "metrics addr is empty, not exposing prometheus metrics")
		return
	}

	http.Handle("/metrics", promhttp.Handler())

	level.Info(logger).Log("msg", "prometheus handler listening", "addr", addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		level.Warn(logger).Log("msg", "failed to serve prometheus metrics", "err", err)
	}
}
