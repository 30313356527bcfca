package evo

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"brandevo/internal/model"
)

func Summarize(population model.Population, eliteCount int) model.GenerationDiagnostics {
	out := model.GenerationDiagnostics{EliteCount: eliteCount}
	fitness := make([]float64, 0, len(population))
	for _, item := range population {
		if item.Engagement != nil {
			out.TotalViews += item.Engagement.Views
		}
		if item.Status != model.IndividualScored {
			out.UnscoredCount++
			continue
		}
		fitness = append(fitness, item.Fitness)
	}
	out.ScoredCount = len(fitness)
	if len(fitness) == 0 {
		return out
	}
	out.BestFitness = floats.Max(fitness)
	out.MinFitness = floats.Min(fitness)
	out.MeanFitness = stat.Mean(fitness, nil)
	return out
}

// ImprovementReached reports whether best clears ratio times the mean of
// previous best scores. A non-positive ratio or empty history always passes.
func ImprovementReached(best float64, previousBest []float64, ratio float64) bool {
	if ratio <= 0 || len(previousBest) == 0 {
		return true
	}
	mean := stat.Mean(previousBest, nil)
	if mean == 0 {
		return true
	}
	return best > ratio*mean
}
