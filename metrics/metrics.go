// Package metrics holds the Prometheus instruments shared by the server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GamesStarted counts games that transitioned from pending to active.
	GamesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dipcoord_games_started_total",
		Help: "Games that have started.",
	})

	// Resolutions counts phase resolution attempts by outcome.
	Resolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dipcoord_phase_resolutions_total",
		Help: "Phase resolution attempts by outcome.",
	}, []string{"outcome"})

	// SweepDuration observes scheduler sweep durations.
	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dipcoord_sweep_duration_seconds",
		Help:    "Duration of scheduled resolution sweeps.",
		Buckets: prometheus.DefBuckets,
	})

	// EngineCallDuration observes adjudicator round trips.
	EngineCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dipcoord_engine_call_duration_seconds",
		Help:    "Duration of adjudication service calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "outcome"})
)
