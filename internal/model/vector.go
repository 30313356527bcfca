package model

import (
	"encoding/json"
	"math"
)

// ParameterVector is an immutable point in the tunable parameter space.
// The zero value is the empty vector.
type ParameterVector struct {
	values []float64
}

func NewParameterVector(values []float64) ParameterVector {
	return ParameterVector{values: append([]float64(nil), values...)}
}

func (v ParameterVector) Len() int {
	return len(v.values)
}

func (v ParameterVector) At(i int) float64 {
	return v.values[i]
}

// Values returns a copy of the components.
func (v ParameterVector) Values() []float64 {
	return append([]float64(nil), v.values...)
}

func (v ParameterVector) IsZero() bool {
	return len(v.values) == 0
}

// Equal reports bit-identical equality of all components.
func (v ParameterVector) Equal(other ParameterVector) bool {
	if len(v.values) != len(other.values) {
		return false
	}
	for i := range v.values {
		if math.Float64bits(v.values[i]) != math.Float64bits(other.values[i]) {
			return false
		}
	}
	return true
}

func (v ParameterVector) MarshalJSON() ([]byte, error) {
	if v.values == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(v.values)
}

func (v *ParameterVector) UnmarshalJSON(data []byte) error {
	var values []float64
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	v.values = values
	return nil
}

// Dimension describes one tunable component and its valid bounds.
type Dimension struct {
	Name    string  `json:"name" yaml:"name" validate:"required"`
	Min     float64 `json:"min" yaml:"min"`
	Max     float64 `json:"max" yaml:"max"`
	Default float64 `json:"default" yaml:"default"`
}

func (d Dimension) Span() float64 {
	return d.Max - d.Min
}

func (d Dimension) Clamp(x float64) float64 {
	if math.IsNaN(x) {
		return d.Default
	}
	if x < d.Min {
		return d.Min
	}
	if x > d.Max {
		return d.Max
	}
	return x
}

type Dimensions []Dimension

// DefaultDimensions is the brand parameter space: five music parameters
// (tempo, energy and three reserved) followed by three text/tone weights.
func DefaultDimensions() Dimensions {
	return Dimensions{
		{Name: "music_tempo", Min: 60, Max: 180, Default: 90},
		{Name: "music_energy", Min: 0, Max: 1, Default: 0.4},
		{Name: "music_danceability", Min: 0, Max: 1, Default: 0.3},
		{Name: "music_key_preference", Min: 0, Max: 11, Default: 0},
		{Name: "music_mood_weight", Min: 0, Max: 1, Default: 0.5},
		{Name: "text_jargon_level", Min: 0, Max: 1, Default: 0.3},
		{Name: "text_length_preference", Min: 0, Max: 1, Default: 0.5},
		{Name: "text_caption_style_weight", Min: 0, Max: 1, Default: 0.5},
	}
}

func (ds Dimensions) Defaults() ParameterVector {
	values := make([]float64, len(ds))
	for i, d := range ds {
		values[i] = d.Default
	}
	return ParameterVector{values: values}
}

// ClampInPlace clamps values component-wise to the dimension bounds.
func (ds Dimensions) ClampInPlace(values []float64) {
	for i := range values {
		values[i] = ds[i].Clamp(values[i])
	}
}

func (ds Dimensions) Contains(v ParameterVector) bool {
	if v.Len() != len(ds) {
		return false
	}
	for i, d := range ds {
		x := v.At(i)
		if math.IsNaN(x) || x < d.Min || x > d.Max {
			return false
		}
	}
	return true
}

func (ds Dimensions) Named(v ParameterVector) map[string]float64 {
	out := make(map[string]float64, len(ds))
	for i, d := range ds {
		if i >= v.Len() {
			break
		}
		out[d.Name] = v.At(i)
	}
	return out
}
