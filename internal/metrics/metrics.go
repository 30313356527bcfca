// Package metrics registers the optimizer's Prometheus collectors on the
// default registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EvolutionsTotal counts Evolve calls by outcome: evolved, stalled, busy, error.
	EvolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brandevo_evolutions_total",
		Help: "Evolution triggers by outcome",
	}, []string{"outcome"})

	EvolutionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "brandevo_evolution_duration_seconds",
		Help:    "Duration of evaluating passes that reached the store",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	})

	// ObservationsTotal counts submitted observations by result: accepted, malformed.
	ObservationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brandevo_observations_total",
		Help: "Engagement observations by ingestion result",
	}, []string{"result"})

	ObservationsPruned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "brandevo_observations_pruned_total",
		Help: "Observations discarded when their generation was superseded",
	})

	CurrentGeneration = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "brandevo_current_generation",
		Help: "Id of the generation currently serving parameters",
	})

	BestFitness = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "brandevo_best_fitness",
		Help: "Best fitness of the most recently evolved generation",
	})

	ScoredIndividuals = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "brandevo_scored_individuals",
		Help: "Scored individuals in the most recent evaluation",
	})

	TrendRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brandevo_trend_refresh_total",
		Help: "Trend context refreshes by result",
	}, []string{"result"})
)
