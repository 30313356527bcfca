package evo

import (
	"sort"

	"brandevo/internal/model"
)

// Rank returns the scored individuals ordered by fitness descending. Ties
// go to the lower slot index so ranking is reproducible.
func Rank(population model.Population) []model.Individual {
	ranked := make([]model.Individual, 0, len(population))
	for _, item := range population {
		if item.Status == model.IndividualScored {
			ranked = append(ranked, item)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Fitness == ranked[j].Fitness {
			return ranked[i].Index < ranked[j].Index
		}
		return ranked[i].Fitness > ranked[j].Fitness
	})
	return ranked
}

// SelectElites returns the top eliteCount ranked individuals, or every
// scored individual when fewer are available.
func SelectElites(population model.Population, eliteCount int) []model.Individual {
	ranked := Rank(population)
	if eliteCount < len(ranked) {
		ranked = ranked[:eliteCount]
	}
	return ranked
}
