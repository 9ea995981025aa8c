package telemetry

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/DrSkyle/provtag/pkg/engine/report"
)

// JobName is the Pushgateway job label.
const JobName = "provtag_reconcile"

// RunMetrics holds the gauges for one run. Scheduled runs exit before any
// scrape, so they are pushed rather than served.
type RunMetrics struct {
	registry *prometheus.Registry

	resources    *prometheus.GaugeVec
	duration     prometheus.Gauge
	lastSuccess  prometheus.Gauge
	governorRate prometheus.Gauge
}

func NewRunMetrics() *RunMetrics {
	m := &RunMetrics{
		registry: prometheus.NewRegistry(),
		resources: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "provtag_resources",
			Help: "Resources seen in the last run, by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "provtag_run_duration_seconds",
			Help: "Wall time of the last run.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "provtag_last_success_timestamp_seconds",
			Help: "Unix time of the last run without failures.",
		}),
		governorRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "provtag_api_rate_per_second",
			Help: "Provider call rate the governor settled on.",
		}),
	}
	m.registry.MustRegister(m.resources, m.duration, m.lastSuccess, m.governorRate)
	return m
}

// Observe records a finished run. rate is the governor's final call rate.
func (m *RunMetrics) Observe(s *report.Summary, rate float64) {
	m.resources.WithLabelValues("already_tagged").Set(float64(s.AlreadyTagged))
	m.resources.WithLabelValues("resolved").Set(float64(s.Resolved))
	m.resources.WithLabelValues("resolved_unknown").Set(float64(s.ResolvedUnknown))
	m.resources.WithLabelValues("failed_resolution").Set(float64(s.FailedResolution))
	m.resources.WithLabelValues("failed_write").Set(float64(s.FailedWrite))
	m.resources.WithLabelValues("excluded").Set(float64(s.Excluded))
	m.duration.Set(s.Duration().Seconds())
	m.governorRate.Set(rate)
	if !s.Partial() && !s.Finished.IsZero() {
		m.lastSuccess.Set(float64(s.Finished.Unix()))
	}
}

// Gatherer exposes the registry.
func (m *RunMetrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Push replaces this job's metrics on the gateway at url.
func (m *RunMetrics) Push(ctx context.Context, url, region string) error {
	p := push.New(url, JobName).Gatherer(m.registry)
	if region != "" {
		p = p.Grouping("region", region)
	}
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}
