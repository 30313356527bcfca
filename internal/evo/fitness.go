package evo

import (
	"errors"

	"gonum.org/v1/gonum/stat"

	"brandevo/internal/config"
	"brandevo/internal/model"
)

// ErrInsufficientData is returned when no individual of a generation has any
// views. It resolves to a stalled evaluation, not a failure.
var ErrInsufficientData = errors.New("insufficient data: no individual is scorable")

type Weights struct {
	Likes  float64
	Shares float64
	Watch  float64
	Cost   float64
}

// FitnessEvaluator reduces engagement attributed to an individual into a
// scalar:
//
//	fitness = wL*(likes/views) + wS*(shares/views) + wW*watch - wC*clamp(cost/ceiling, 0, 1)
type FitnessEvaluator struct {
	weights     Weights
	costCeiling float64
}

func NewFitnessEvaluator(cfg config.Fitness) FitnessEvaluator {
	return FitnessEvaluator{
		weights: Weights{
			Likes:  cfg.LikesWeight,
			Shares: cfg.SharesWeight,
			Watch:  cfg.WatchWeight,
			Cost:   cfg.CostWeight,
		},
		costCeiling: cfg.CostCeiling,
	}
}

// Aggregate sums counts and takes view-weighted means of watch fraction and
// render cost. Observations without views carry no weight.
func Aggregate(observations []model.EngagementObservation) model.AggregatedEngagement {
	var agg model.AggregatedEngagement
	weights := make([]float64, 0, len(observations))
	watch := make([]float64, 0, len(observations))
	cost := make([]float64, 0, len(observations))
	for _, obs := range observations {
		agg.Observations++
		agg.Views += obs.Views
		agg.Likes += obs.Likes
		agg.Shares += obs.Shares
		if obs.Views <= 0 {
			continue
		}
		weights = append(weights, float64(obs.Views))
		watch = append(watch, obs.WatchFraction)
		cost = append(cost, obs.RenderCost)
	}
	if len(weights) > 0 {
		agg.WatchFraction = stat.Mean(watch, weights)
		agg.RenderCost = stat.Mean(cost, weights)
	}
	return agg
}

// Score returns the fitness of individual given observations from its
// generation. Observations for other slots are ignored. ok is false when the
// individual has no views.
func (e FitnessEvaluator) Score(individual model.Individual, observations []model.EngagementObservation) (float64, bool) {
	own := make([]model.EngagementObservation, 0, len(observations))
	for _, obs := range observations {
		if obs.Ref.Index == individual.Index {
			own = append(own, obs)
		}
	}
	return e.ScoreAggregate(Aggregate(own))
}

func (e FitnessEvaluator) ScoreAggregate(agg model.AggregatedEngagement) (float64, bool) {
	if agg.Views <= 0 {
		return 0, false
	}
	views := float64(agg.Views)
	normalizedCost := clamp01(agg.RenderCost / e.costCeiling)
	fitness := e.weights.Likes*(float64(agg.Likes)/views) +
		e.weights.Shares*(float64(agg.Shares)/views) +
		e.weights.Watch*agg.WatchFraction -
		e.weights.Cost*normalizedCost
	return fitness, true
}

// ScorePopulation scores every slot of population. Slots without views are
// tagged unscored and kept for audit. When no slot is scorable the tagged
// population is returned together with ErrInsufficientData.
func (e FitnessEvaluator) ScorePopulation(population model.Population, observations []model.EngagementObservation) (model.Population, error) {
	byIndex := make(map[int][]model.EngagementObservation, len(population))
	for _, obs := range observations {
		byIndex[obs.Ref.Index] = append(byIndex[obs.Ref.Index], obs)
	}

	scored := population.Clone()
	count := 0
	for i := range scored {
		own := byIndex[scored[i].Index]
		scored[i].Engagement = nil
		if len(own) > 0 {
			agg := Aggregate(own)
			scored[i].Engagement = &agg
		}
		fitness, ok := e.Score(scored[i], own)
		if !ok {
			scored[i].Status = model.IndividualUnscored
			scored[i].Fitness = 0
			continue
		}
		scored[i].Status = model.IndividualScored
		scored[i].Fitness = fitness
		count++
	}
	if count == 0 {
		return scored, ErrInsufficientData
	}
	return scored, nil
}

func clamp01(x float64) float64 {
	if x < 0 || x != x {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
