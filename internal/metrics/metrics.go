// Package metrics provides Prometheus instrumentation for thumbnail jobs and trims.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the service reports to.
// Each instance owns its own registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	JobsFinished    *prometheus.CounterVec
	ActiveProducers prometheus.Gauge
	FramesExtracted prometheus.Counter
	FramesDelivered prometheus.Counter
	FramesDropped   prometheus.Counter
	FrameFailures   prometheus.Counter

	TrimsTotal   *prometheus.CounterVec
	TrimDuration prometheus.Histogram
}

// New creates a Metrics backed by a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		JobsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "videotrimmer_thumbnail_jobs_finished_total",
			Help: "Thumbnail streaming jobs that reached a terminal state, by status",
		}, []string{"status"}),
		ActiveProducers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "videotrimmer_active_producers",
			Help: "Number of thumbnail jobs currently producing frames",
		}),
		FramesExtracted: factory.NewCounter(prometheus.CounterOpts{
			Name: "videotrimmer_frames_extracted_total",
			Help: "Frames successfully extracted by streaming jobs",
		}),
		FramesDelivered: factory.NewCounter(prometheus.CounterOpts{
			Name: "videotrimmer_frames_delivered_total",
			Help: "Frames accepted by an attached sink",
		}),
		FramesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "videotrimmer_frames_dropped_total",
			Help: "Frames produced but not accepted by a sink",
		}),
		FrameFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "videotrimmer_frame_failures_total",
			Help: "Frames skipped because extraction failed",
		}),
		TrimsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "videotrimmer_trims_total",
			Help: "Trim operations, by result",
		}, []string{"result"}),
		TrimDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "videotrimmer_trim_duration_seconds",
			Help:    "Wall time of trim operations",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
	}
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
