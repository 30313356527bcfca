package evo

import (
	"errors"
	"math"
	"testing"

	"brandevo/internal/config"
	"brandevo/internal/model"
)

func testEvaluator() FitnessEvaluator {
	return NewFitnessEvaluator(config.Default().Fitness)
}

func observation(index int, views, likes, shares int64, watch, cost float64) model.EngagementObservation {
	return model.EngagementObservation{
		Ref:           model.VectorRef{GenerationID: 0, Index: index},
		Views:         views,
		Likes:         likes,
		Shares:        shares,
		WatchFraction: watch,
		RenderCost:    cost,
	}
}

func TestFitnessFormulaExactness(t *testing.T) {
	individual := model.Individual{Index: 2}
	got, ok := testEvaluator().Score(individual, []model.EngagementObservation{
		observation(2, 100, 10, 5, 0.6, 0),
	})
	if !ok {
		t.Fatal("expected individual with views to be scorable")
	}
	if math.Abs(got-0.235) > 1e-12 {
		t.Fatalf("unexpected fitness: got=%v want=0.235", got)
	}
}

func TestFitnessIgnoresOtherSlots(t *testing.T) {
	individual := model.Individual{Index: 1}
	_, ok := testEvaluator().Score(individual, []model.EngagementObservation{
		observation(0, 100, 10, 5, 0.6, 0),
	})
	if ok {
		t.Fatal("expected observations for other slots to be ignored")
	}
}

func TestFitnessCostIsClampedToCeiling(t *testing.T) {
	e := testEvaluator()
	capped, _ := e.Score(model.Individual{}, []model.EngagementObservation{observation(0, 10, 0, 0, 0, 50)})
	atCeiling, _ := e.Score(model.Individual{}, []model.EngagementObservation{observation(0, 10, 0, 0, 0, 1)})
	if capped != atCeiling || math.Abs(capped+0.1) > 1e-12 {
		t.Fatalf("expected cost penalty capped at weight: capped=%v atCeiling=%v", capped, atCeiling)
	}
}

func TestAggregateUsesViewWeightedMeans(t *testing.T) {
	agg := Aggregate([]model.EngagementObservation{
		observation(0, 300, 30, 3, 1.0, 0.2),
		observation(0, 100, 10, 1, 0.2, 0.6),
		observation(0, 0, 0, 0, 0.9, 0.9),
	})
	if agg.Observations != 3 || agg.Views != 400 || agg.Likes != 40 || agg.Shares != 4 {
		t.Fatalf("unexpected sums: %+v", agg)
	}
	if math.Abs(agg.WatchFraction-0.8) > 1e-12 {
		t.Fatalf("unexpected watch fraction: %v", agg.WatchFraction)
	}
	if math.Abs(agg.RenderCost-0.3) > 1e-12 {
		t.Fatalf("unexpected render cost: %v", agg.RenderCost)
	}
}

func TestScorePopulationTagsUnscoredSlots(t *testing.T) {
	population := model.Population{{Index: 0}, {Index: 1}, {Index: 2}}
	scored, err := testEvaluator().ScorePopulation(population, []model.EngagementObservation{
		observation(1, 50, 5, 0, 0.5, 0),
		observation(2, 0, 0, 0, 0, 0),
	})
	if err != nil {
		t.Fatalf("score population: %v", err)
	}
	if scored[0].Status != model.IndividualUnscored || scored[0].Engagement != nil {
		t.Fatalf("expected slot 0 unscored without engagement: %+v", scored[0])
	}
	if scored[1].Status != model.IndividualScored {
		t.Fatalf("expected slot 1 scored: %+v", scored[1])
	}
	if scored[2].Status != model.IndividualUnscored || scored[2].Engagement == nil {
		t.Fatalf("expected slot 2 unscored with zero-view engagement: %+v", scored[2])
	}
	if population[1].Status != "" {
		t.Fatal("expected input population to stay untouched")
	}
}

func TestScorePopulationWithoutViewsIsInsufficient(t *testing.T) {
	population := model.Population{{Index: 0}, {Index: 1}}
	scored, err := testEvaluator().ScorePopulation(population, nil)
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got=%v", err)
	}
	if scored.ScoredCount() != 0 {
		t.Fatalf("expected no scored slots, got=%d", scored.ScoredCount())
	}
}
