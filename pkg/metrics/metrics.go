// Package metrics provides Prometheus metrics for the DMX output engine
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/james-see/opendmx/pkg/controller"
	"github.com/james-see/opendmx/pkg/dmx"
)

// EngineMetrics implements controller.Observer on top of Prometheus collectors
type EngineMetrics struct {
	FramesTotal     *prometheus.CounterVec
	FrameDuration   prometheus.Histogram
	TickOverruns    prometheus.Counter
	TickLag         prometheus.Histogram
	TransmitErrors  *prometheus.CounterVec
	StageGauge      prometheus.Gauge
	IntentsTotal    *prometheus.CounterVec
	IntentsRejected *prometheus.CounterVec
}

var _ controller.Observer = (*EngineMetrics)(nil)

// NewEngineMetrics creates the collectors and registers them with registry
func NewEngineMetrics(registry prometheus.Registerer) (*EngineMetrics, error) {
	m := &EngineMetrics{
		FramesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opendmx_frames_total",
				Help: "DMX frames transmitted, partitioned by generator stage.",
			},
			[]string{"stage"},
		),
		FrameDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "opendmx_frame_duration_seconds",
				Help:    "Time to send one frame including break and mark-after-break.",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 10), // 0.5ms to ~256ms
			},
		),
		TickOverruns: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "opendmx_tick_overruns_total",
				Help: "Ticks that started after their deadline.",
			},
		),
		TickLag: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "opendmx_tick_lag_seconds",
				Help:    "How far behind schedule an overrunning tick was.",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
		),
		TransmitErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opendmx_transmit_errors_total",
				Help: "Fatal output failures, partitioned by error kind.",
			},
			[]string{"kind"},
		),
		StageGauge: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "opendmx_generator_stage",
				Help: "Generator stage: 0 starting, 1 running, 2 draining, 3 stopped.",
			},
		),
		IntentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opendmx_intents_total",
				Help: "Operator intents applied, partitioned by source.",
			},
			[]string{"source"},
		),
		IntentsRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opendmx_intents_rejected_total",
				Help: "Operator intents rejected, partitioned by source.",
			},
			[]string{"source"},
		),
	}

	for _, c := range []prometheus.Collector{
		m.FramesTotal, m.FrameDuration, m.TickOverruns, m.TickLag,
		m.TransmitErrors, m.StageGauge, m.IntentsTotal, m.IntentsRejected,
	} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register engine metrics: %w", err)
		}
	}
	return m, nil
}

// StageChanged records the generator stage
func (m *EngineMetrics) StageChanged(stage controller.Stage) {
	m.StageGauge.Set(float64(stage))
}

// FrameSent counts a frame and its send time
func (m *EngineMetrics) FrameSent(stage controller.Stage, took time.Duration) {
	m.FramesTotal.WithLabelValues(stage.String()).Inc()
	m.FrameDuration.Observe(took.Seconds())
}

// TickOverrun counts a late tick
func (m *EngineMetrics) TickOverrun(behind time.Duration) {
	m.TickOverruns.Inc()
	m.TickLag.Observe(behind.Seconds())
}

// TransmitFailed counts a fatal output error
func (m *EngineMetrics) TransmitFailed(err error) {
	kind := string(dmx.KindOf(err))
	if kind == "" {
		kind = "unknown"
	}
	m.TransmitErrors.WithLabelValues(kind).Inc()
}

// IntentApplied counts an intent from source and whether it was accepted
func (m *EngineMetrics) IntentApplied(source string, err error) {
	if err != nil {
		m.IntentsRejected.WithLabelValues(source).Inc()
		return
	}
	m.IntentsTotal.WithLabelValues(source).Inc()
}
