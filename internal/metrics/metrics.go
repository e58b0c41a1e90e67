// Package metrics exposes Prometheus instrumentation for the engine.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/craterdb/crater/internal/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SetsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crater_sets_total",
		Help: "Total number of successful set operations",
	})

	GetsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crater_gets_total",
		Help: "Total number of get operations",
	})

	GetMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crater_get_misses_total",
		Help: "Total number of get operations that found no value",
	})

	RotationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crater_segment_rotations_total",
		Help: "Total number of active segment rotations",
	})

	CompactionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crater_compactions_total",
		Help: "Total number of completed compaction cycles",
	})

	CompactionFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crater_compaction_failures_total",
		Help: "Total number of compaction cycles aborted by an error",
	})

	ReclaimedBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crater_compaction_reclaimed_bytes_total",
		Help: "Total bytes of superseded records reclaimed by compaction",
	})

	LiveSegments = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "crater_live_segments",
		Help: "Current number of segments in the store",
	})

	DroppedEventsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crater_dropped_events_total",
		Help: "Total notifications dropped because a subscriber channel was full",
	})
)

func init() {
	prometheus.MustRegister(SetsTotal, GetsTotal, GetMissesTotal, RotationsTotal,
		CompactionsTotal, CompactionFailuresTotal, ReclaimedBytesTotal,
		LiveSegments, DroppedEventsTotal)
}

// Handler returns the Prometheus scrape handler so a serving layer can mount
// it wherever it likes.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve starts a standalone exporter on the given port.
func Serve(port int) {
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", Handler())
		addr := fmt.Sprintf(":%d", port)
		logger.Info("Prometheus exporter listening on %s", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("metrics exporter stopped: %v", err)
		}
	}()
}
