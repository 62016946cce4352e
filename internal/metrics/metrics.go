// Package metrics exports watch results in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hamed0406/davprobe/internal/check"
)

type Metrics struct {
	reg      *prometheus.Registry
	status   *prometheus.GaugeVec
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
	probeOK  *prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		status: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "davprobe_status",
			Help: "Last check status per target: 0 OK, 1 warning, 2 critical, 3 unknown.",
		}, []string{"target"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "davprobe_check_duration_seconds",
			Help:    "Time taken by a full check sequence.",
			Buckets: prometheus.DefBuckets,
		}, []string{"target"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "davprobe_checks_total",
			Help: "Check sequences run, by target and resulting status.",
		}, []string{"target", "status"}),
		probeOK: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "davprobe_probe_success",
			Help: "Whether the individual probe passed on the last run (1) or not (0).",
		}, []string{"target", "probe"}),
	}
	m.reg.MustRegister(m.status, m.duration, m.runs, m.probeOK)
	return m
}

// Observe records one finished run for target.
func (m *Metrics) Observe(target string, res check.Result) {
	m.status.WithLabelValues(target).Set(float64(res.Status))
	m.duration.WithLabelValues(target).Observe(res.LatencyMS() / 1000)
	m.runs.WithLabelValues(target, res.Status.String()).Inc()
	for _, c := range res.Checks {
		v := 0.0
		if c.Success {
			v = 1
		}
		m.probeOK.WithLabelValues(target, c.Name).Set(v)
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }
