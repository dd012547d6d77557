package metrics

import (
	"net/http"

	"github.com/cyclopcam/firewatch/pkg/nn"
	"github.com/cyclopcam/firewatch/server/notifications"
	"github.com/cyclopcam/firewatch/server/perfstats"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the detection pipeline
type Metrics struct {
	Frames        *prometheus.CounterVec // by status
	Confirmations *prometheus.CounterVec // by class
	Notifications *prometheus.CounterVec // by outcome
	ClassifyTime  prometheus.Histogram

	registry *prometheus.Registry
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	m.Frames = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "firewatch_frames_total",
		Help: "Frames submitted, by processing status",
	}, []string{"status"})
	m.Confirmations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "firewatch_confirmations_total",
		Help: "Confirmed fire/smoke events",
	}, []string{"class"})
	m.Notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "firewatch_notifications_total",
		Help: "Notification outcomes of confirmed events",
	}, []string{"outcome"})
	m.ClassifyTime = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "firewatch_classify_seconds",
		Help:    "Time taken by one classifier call",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
	})
	m.registry.MustRegister(m.Frames, m.Confirmations, m.Notifications, m.ClassifyTime)

	// Export zeros, so that rate() and alerting rules work before the first event
	for _, c := range []nn.Class{nn.Fire, nn.Smoke} {
		m.Confirmations.WithLabelValues(c.String())
	}
	for _, o := range notifications.AllOutcomes {
		m.Notifications.WithLabelValues(string(o))
	}
	m.registerPerfStats()
	return m
}

func (m *Metrics) registerPerfStats() {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "firewatch_decode_ms",
			Help: "Moving average of JPEG decode time",
		},
		func() float64 { return perfstats.Milliseconds(&perfstats.Stats.DecodeNanoseconds) },
	))
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "firewatch_dualview_ms",
			Help: "Moving average of fire/smoke view preparation time",
		},
		func() float64 { return perfstats.Milliseconds(&perfstats.Stats.DualViewNanoseconds) },
	))
}

// Register additional collectors, such as gauges that read live server state
func (m *Metrics) MustRegister(cs ...prometheus.Collector) {
	m.registry.MustRegister(cs...)
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
