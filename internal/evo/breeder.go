package evo

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/floats"

	"brandevo/internal/config"
	"brandevo/internal/model"
)

// Breeder seeds generation 0 and produces successor populations from the
// elites of a scored generation.
type Breeder struct {
	dims           model.Dimensions
	populationSize int
	eliteCount     int
	blend          float64
	strength       float64
	initialSpread  float64
	logger         *slog.Logger
}

func NewBreeder(cfg config.Evolution, logger *slog.Logger) *Breeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Breeder{
		dims:           cfg.Dimensions,
		populationSize: cfg.PopulationSize,
		eliteCount:     cfg.EliteCount,
		blend:          cfg.Blend,
		strength:       cfg.MutationStrength,
		initialSpread:  cfg.InitialSpread,
		logger:         logger.With("component", "breeder"),
	}
}

func (b *Breeder) Dimensions() model.Dimensions { return b.dims }

// Seed builds generation 0: slot 0 holds the defaults exactly and the rest
// are defaults perturbed by the initial spread.
func (b *Breeder) Seed(rng RandomSource) model.Population {
	defaults := b.dims.Defaults().Values()
	population := make(model.Population, 0, b.populationSize)
	population = append(population, model.Individual{
		Index:  0,
		Vector: model.NewParameterVector(defaults),
		Status: model.IndividualPending,
	})
	for slot := 1; slot < b.populationSize; slot++ {
		values := make([]float64, len(defaults))
		for d, dim := range b.dims {
			values[d] = dim.Clamp(defaults[d] + b.initialSpread*dim.Span()*rng.NormFloat64())
		}
		population = append(population, model.Individual{
			Index:  slot,
			Vector: model.NewParameterVector(values),
			Status: model.IndividualPending,
		})
	}
	return population
}

type Offspring struct {
	Population   model.Population
	Elite        model.ParameterVector
	EliteIndices []int
	// Degraded is set when fewer than the configured number of elites were
	// scorable.
	Degraded bool
	// TrendConditioned is set when bias shifted the mutation centre.
	TrendConditioned bool
}

// NextGeneration breeds the successor of a scored population. Slot 0 carries
// the elite centroid unmutated. Every other slot is
//
//	(1-β)·θ_elite + β·clamp(θ_elite + bias + η·span·N(0,1))
//
// clamped into bounds. bias may be nil.
func (b *Breeder) NextGeneration(scored model.Population, rng RandomSource, bias []float64) (Offspring, error) {
	elites := SelectElites(scored, b.eliteCount)
	if len(elites) == 0 {
		return Offspring{}, ErrInsufficientData
	}
	if bias != nil && len(bias) != len(b.dims) {
		return Offspring{}, fmt.Errorf("trend bias has %d dims, expected %d", len(bias), len(b.dims))
	}

	out := Offspring{
		EliteIndices: make([]int, 0, len(elites)),
		Degraded:     len(elites) < b.eliteCount,
	}
	for _, elite := range elites {
		out.EliteIndices = append(out.EliteIndices, elite.Index)
	}
	if out.Degraded {
		b.logger.Warn("degraded elite set", "wanted", b.eliteCount, "scored", len(elites))
	}

	centre, err := b.centroid(elites)
	if err != nil {
		return Offspring{}, err
	}
	out.Elite = model.NewParameterVector(centre)
	out.TrendConditioned = bias != nil && floats.Norm(bias, 2) > 0

	population := make(model.Population, 0, b.populationSize)
	population = append(population, model.Individual{
		Index:  0,
		Vector: out.Elite,
		Status: model.IndividualPending,
	})
	for slot := 1; slot < b.populationSize; slot++ {
		values := make([]float64, len(centre))
		for d, dim := range b.dims {
			shift := 0.0
			if bias != nil {
				shift = bias[d]
			}
			candidate := dim.Clamp(centre[d] + shift + b.strength*dim.Span()*rng.NormFloat64())
			values[d] = dim.Clamp((1-b.blend)*centre[d] + b.blend*candidate)
		}
		population = append(population, model.Individual{
			Index:  slot,
			Vector: model.NewParameterVector(values),
			Status: model.IndividualPending,
		})
	}
	out.Population = population
	return out, nil
}

func (b *Breeder) centroid(elites []model.Individual) ([]float64, error) {
	centre := make([]float64, len(b.dims))
	for _, elite := range elites {
		if elite.Vector.Len() != len(b.dims) {
			return nil, fmt.Errorf("elite %d has %d dims, expected %d", elite.Index, elite.Vector.Len(), len(b.dims))
		}
		floats.Add(centre, elite.Vector.Values())
	}
	floats.Scale(1/float64(len(elites)), centre)
	b.dims.ClampInPlace(centre)
	return centre, nil
}
