package uod

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidDomain = errors.New("invalid universe of discourse")

// Universe is a discretized interval [Start, Stop] sampled at Points positions.
type Universe struct {
	Start  float64 `json:"start"`
	Stop   float64 `json:"stop"`
	Points int     `json:"points"`
}

// New validates and returns a universe.
func New(start, stop float64, points int) (Universe, error) {
	u := Universe{Start: start, Stop: stop, Points: points}
	if err := u.Validate(); err != nil {
		return Universe{}, err
	}
	return u, nil
}

func (u Universe) Validate() error {
	if u.Points < 2 {
		return fmt.Errorf("%w: points must be >= 2, got %d", ErrInvalidDomain, u.Points)
	}
	if !finite(u.Start) || !finite(u.Stop) {
		return fmt.Errorf("%w: bounds must be finite: [%g, %g]", ErrInvalidDomain, u.Start, u.Stop)
	}
	if u.Start >= u.Stop {
		return fmt.Errorf("%w: start %g must be below stop %g", ErrInvalidDomain, u.Start, u.Stop)
	}
	return nil
}

// Step is the sample spacing used by Sample and Value.
func (u Universe) Step() float64 {
	return (u.Stop - u.Start) / float64(u.Points)
}

// Index returns the clamped discretization index of value.
func (u Universe) Index(value float64) int {
	return ToIndex(value, u.Points, u.Start, u.Stop)
}

// Value returns the crisp position reported for sample index i.
func (u Universe) Value(index int) float64 {
	return ToValue(index, u.Points, u.Start, u.Stop)
}

// Sample returns the position membership functions are evaluated at for index i.
func (u Universe) Sample(index int) float64 {
	return u.Start + float64(index)*(u.Stop-u.Start)/float64(u.Points)
}

// Positions returns Value(i) for every sample.
func (u Universe) Positions() []float64 {
	out := make([]float64, u.Points)
	for i := range out {
		out[i] = u.Value(i)
	}
	return out
}

func (u Universe) Contains(value float64) bool {
	return value >= u.Start && value <= u.Stop
}

func (u Universe) Equal(other Universe) bool {
	return u.Start == other.Start && u.Stop == other.Stop && u.Points == other.Points
}

func (u Universe) String() string {
	return fmt.Sprintf("[%g, %g]/%d", u.Start, u.Stop, u.Points)
}

// ToIndex converts a universe value to a sample index, rounding half up.
//
// Values outside [start, stop] are clamped to the first or last sample rather
// than producing an out-of-range index. NaN maps to 0.
func ToIndex(value float64, points int, start, stop float64) int {
	if points <= 0 {
		return 0
	}
	x := ((value - start) * float64(points-1)) / (stop - start)
	if math.IsNaN(x) {
		return 0
	}
	if x <= 0 {
		return 0
	}
	if x >= float64(points-1) {
		return points - 1
	}
	approx := math.Floor(x)
	index := int(approx)
	if x-approx >= 0.5 {
		index++
	}
	return clamp(index, points)
}

// ToValue converts a sample index back to a universe value.
func ToValue(index, points int, start, stop float64) float64 {
	return start + float64(index+1)*(stop-start)/float64(points)
}

func clamp(index, points int) int {
	if index < 0 {
		return 0
	}
	if index > points-1 {
		return points - 1
	}
	return index
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
