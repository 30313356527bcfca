package evo

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"brandevo/internal/model"
)

// TrendBias folds a trend embedding into one centre shift per dimension.
// The embedding is split into len(dims) contiguous chunks and each shift is
// influence·span·tanh(mean(chunk)), so it never exceeds influence·span.
// It returns nil when there is nothing to apply.
func TrendBias(dims model.Dimensions, trend *model.TrendContext, influence float64) []float64 {
	if trend == nil || influence <= 0 || len(dims) == 0 || len(trend.Embedding) < len(dims) {
		return nil
	}
	chunk := len(trend.Embedding) / len(dims)
	bias := make([]float64, len(dims))
	for d, dim := range dims {
		start := d * chunk
		end := start + chunk
		if d == len(dims)-1 {
			end = len(trend.Embedding)
		}
		mean := stat.Mean(trend.Embedding[start:end], nil)
		if math.IsNaN(mean) || math.IsInf(mean, 0) {
			continue
		}
		bias[d] = influence * dim.Span() * math.Tanh(mean)
	}
	return bias
}
