// Package metrics exposes tracker health in Prometheus format.
package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"freeswim-tracker/internal/opencv/memory"
	"freeswim-tracker/internal/pipeline"
)

// Metrics holds all tracker metrics. It implements pipeline.Observer and
// control.Observer.
type Metrics struct {
	FramesProcessed atomic.Uint64
	FramesSkipped   atomic.Uint64
	ParticlesTotal  atomic.Uint64
	ParticlesKept   atomic.Uint64
	RecorderDropped atomic.Uint64
	LastSequence    atomic.Uint64

	skipped      *prometheus.CounterVec
	setters      *prometheus.CounterVec
	frameSeconds prometheus.Histogram

	registry *prometheus.Registry
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	m.registerPrometheusMetrics()
	return m
}

func (m *Metrics) registerPrometheusMetrics() {
	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "freeswim_frames_processed_total",
			Help: "Total frames run through the tracking routine",
		},
		func() float64 { return float64(m.FramesProcessed.Load()) },
	))

	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "freeswim_frames_skipped_total",
			Help: "Total ticks without a usable frame",
		},
		func() float64 { return float64(m.FramesSkipped.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "freeswim_particle_count_raw",
			Help: "Contours found in the latest frame",
		},
		func() float64 { return float64(m.ParticlesTotal.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "freeswim_particle_count_filtered",
			Help: "Particles accepted in the latest frame",
		},
		func() float64 { return float64(m.ParticlesKept.Load()) },
	))

	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "freeswim_recorder_dropped_total",
			Help: "Frames the recorder could not keep up with",
		},
		func() float64 { return float64(m.RecorderDropped.Load()) },
	))

	m.skipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "freeswim_frames_skipped_by_reason_total",
		Help: "Skipped ticks by reason",
	}, []string{"reason"})
	m.registry.MustRegister(m.skipped)

	m.setters = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "freeswim_setter_calls_total",
		Help: "Parameter setter calls by setter and outcome",
	}, []string{"setter", "outcome"})
	m.registry.MustRegister(m.setters)

	m.frameSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "freeswim_frame_processing_seconds",
		Help:    "Time spent on one frame",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	})
	m.registry.MustRegister(m.frameSeconds)
}

// FrameProcessed implements pipeline.Observer.
func (m *Metrics) FrameProcessed(result *pipeline.FrameResult, elapsed time.Duration) {
	m.FramesProcessed.Add(1)
	m.ParticlesTotal.Store(result.RawCount)
	m.ParticlesKept.Store(result.FilteredCount)
	m.LastSequence.Store(result.Sequence)
	m.frameSeconds.Observe(elapsed.Seconds())
}

// FrameSkipped implements pipeline.Observer.
func (m *Metrics) FrameSkipped(reason string) {
	m.FramesSkipped.Add(1)
	m.skipped.WithLabelValues(reason).Inc()
}

// SetterApplied implements control.Observer.
func (m *Metrics) SetterApplied(name string) {
	m.setters.WithLabelValues(name, "applied").Inc()
}

// SetterRejected implements control.Observer.
func (m *Metrics) SetterRejected(name string) {
	m.setters.WithLabelValues(name, "rejected").Inc()
}

// RecordDropped counts a frame the recorder had to discard.
func (m *Metrics) RecordDropped() {
	m.RecorderDropped.Add(1)
}

// WatchMemory exports the Mat pool counters.
func (m *Metrics) WatchMemory(mgr *memory.Manager) {
	stat := func(name, help string, pick func(memory.Stats) int64) {
		m.registry.MustRegister(prometheus.NewCounterFunc(
			prometheus.CounterOpts{Name: name, Help: help},
			func() float64 { return float64(pick(mgr.GetStats())) },
		))
	}
	stat("freeswim_mat_allocated_total", "Output Mats allocated", func(s memory.Stats) int64 { return s.Allocated })
	stat("freeswim_mat_pool_hits_total", "Output Mats served from the pool", func(s memory.Stats) int64 { return s.PoolHits })
	stat("freeswim_mat_discarded_total", "Output Mats closed instead of pooled", func(s memory.Stats) int64 { return s.Discarded })
}

// WatchCapture exports camera counters from stats.
func (m *Metrics) WatchCapture(stats func() (read, dropped, failed uint64)) {
	pick := func(i int) func() float64 {
		return func() float64 {
			r, d, f := stats()
			return float64([]uint64{r, d, f}[i])
		}
	}
	m.registry.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "freeswim_camera_frames_read_total", Help: "Frames read from the camera",
	}, pick(0)))
	m.registry.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "freeswim_camera_frames_overwritten_total", Help: "Frames replaced before the tracker took them",
	}, pick(1)))
	m.registry.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "freeswim_camera_read_failures_total", Help: "Failed camera reads",
	}, pick(2)))
}

// Registry is exposed for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
