package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	actions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "panel",
			Subsystem: "container",
			Name:      "actions_total",
			Help:      "Number of container actions requested by clients, by outcome.",
		}, []string{"action", "result"},
	)
	execDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "panel",
			Subsystem: "container",
			Name:      "exec_duration_seconds",
			Help:      "Duration of exec sessions run inside the container.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 300, 900},
		}, []string{"kind"},
	)
	connections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "panel",
			Subsystem: "hub",
			Name:      "connections",
			Help:      "Currently connected dashboard clients.",
		},
	)
	logChunks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "panel",
			Subsystem: "hub",
			Name:      "log_chunks_total",
			Help:      "Log chunks forwarded to clients.",
		},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{actions, execDuration, connections, logChunks}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler serves the DefaultGatherer.
func Handler() http.Handler { return promhttp.Handler() }

// The helpers below no-op until Register has succeeded.

func ObserveAction(action string, success bool) {
	if !regOK.Load() {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	actions.WithLabelValues(action, result).Inc()
}

func ObserveExec(kind string, d time.Duration) {
	if regOK.Load() {
		execDuration.WithLabelValues(kind).Observe(d.Seconds())
	}
}

func ConnectionOpened() {
	if regOK.Load() {
		connections.Inc()
	}
}

func ConnectionClosed() {
	if regOK.Load() {
		connections.Dec()
	}
}

func IncLogChunk() {
	if regOK.Load() {
		logChunks.Inc()
	}
}
