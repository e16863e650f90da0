// Package metrics exposes Prometheus instrumentation for review sessions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector bundles the session-level metrics.
type Collector struct {
	PhaseDuration   *prometheus.HistogramVec
	SessionRounds   prometheus.Histogram
	CritiquesFiled  *prometheus.CounterVec
	ResponsesFiled  *prometheus.CounterVec
	ActorFailures   *prometheus.CounterVec
	SessionOutcomes *prometheus.CounterVec
	TokensConsumed  prometheus.Counter
}

// NewCollector creates and registers the collector against reg. Pass
// prometheus.DefaultRegisterer in production; tests use a fresh registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		PhaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "review_phase_duration_seconds",
				Help:    "Review phase duration in seconds",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"phase"},
		),
		SessionRounds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "review_session_rounds",
				Help:    "Rounds completed per review session",
				Buckets: []float64{1, 2, 3, 4, 5, 6, 8, 10},
			},
		),
		CritiquesFiled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "review_critiques_filed_total",
				Help: "Critiques filed, by severity",
			},
			[]string{"severity"},
		),
		ResponsesFiled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "review_responses_filed_total",
				Help: "Responses filed, by disposition",
			},
			[]string{"disposition"},
		),
		ActorFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "review_actor_failures_total",
				Help: "Actor-level failures isolated per round, by kind",
			},
			[]string{"kind"},
		),
		SessionOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "review_session_outcomes_total",
				Help: "Terminal session states",
			},
			[]string{"state"},
		),
		TokensConsumed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "review_tokens_consumed_total",
				Help: "Total generation tokens consumed",
			},
		),
	}

	reg.MustRegister(
		c.PhaseDuration,
		c.SessionRounds,
		c.CritiquesFiled,
		c.ResponsesFiled,
		c.ActorFailures,
		c.SessionOutcomes,
		c.TokensConsumed,
	)
	return c
}
