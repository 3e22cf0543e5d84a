package membership

import (
	"fmt"

	"openfuzz/internal/uod"
)

// Build samples shape at every Universe.Sample position.
func Build(shape Shape, universe uod.Universe) ([]float64, error) {
	if shape == nil {
		return nil, fmt.Errorf("%w: shape is required", ErrInvalidShape)
	}
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if err := universe.Validate(); err != nil {
		return nil, err
	}
	out := make([]float64, universe.Points)
	for i := range out {
		out[i] = shape.eval(universe.Sample(i))
	}
	return out, nil
}

// Singleton returns the crisp value as a vector holding 1 at its sample index.
func Singleton(universe uod.Universe, value float64) ([]float64, error) {
	if err := universe.Validate(); err != nil {
		return nil, err
	}
	out := make([]float64, universe.Points)
	out[universe.Index(value)] = 1
	return out, nil
}

// Cut returns a copy of set with every sample >= alpha replaced by alpha.
func Cut(set []float64, alpha float64) []float64 {
	out := make([]float64, len(set))
	for i, v := range set {
		if v >= alpha {
			out[i] = alpha
		} else {
			out[i] = v
		}
	}
	return out
}

// CutInPlace applies the alpha-cut to set directly.
func CutInPlace(set []float64, alpha float64) {
	for i, v := range set {
		if v >= alpha {
			set[i] = alpha
		}
	}
}
