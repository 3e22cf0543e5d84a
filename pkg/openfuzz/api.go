// Package openfuzz is the public surface of the discretized fuzzy inference
// engine.
//
// The free functions mirror the engine's building blocks: a universe of
// discourse, groups of fuzzy sets over it, rule evaluation into an aggregate
// and defuzzification of that aggregate. Client layers rule bases loaded from
// definitions and optional persistence of inference runs on top.
package openfuzz

import (
	"errors"

	"openfuzz/internal/defuzz"
	"openfuzz/internal/fuzzyset"
	"openfuzz/internal/implication"
	"openfuzz/internal/membership"
	"openfuzz/internal/uod"
)

type (
	Universe    = uod.Universe
	Group       = fuzzyset.Group
	Set         = fuzzyset.Set
	Shape       = membership.Shape
	Triangular  = membership.Triangular
	Trapezoidal = membership.Trapezoidal
	Gaussian    = membership.Gaussian

	Method          = implication.Method
	Operator        = implication.Operator
	DefuzzifyMethod = defuzz.Method
)

const (
	Mandani = implication.Mandani
	Zadeh   = implication.Zadeh
	Larsen  = implication.Larsen

	And = implication.And
	Or  = implication.Or

	COA       = defuzz.COA
	MOM       = defuzz.MOM
	LOM       = defuzz.LOM
	FOM       = defuzz.FOM
	MOMGlobal = defuzz.MOMGlobal
	LOMGlobal = defuzz.LOMGlobal
	FOMGlobal = defuzz.FOMGlobal
)

var (
	ErrAllocation      = fuzzyset.ErrAllocation
	ErrLengthMismatch  = fuzzyset.ErrLengthMismatch
	ErrInvalidDomain   = uod.ErrInvalidDomain
	ErrIndexOutOfRange = fuzzyset.ErrIndexOutOfRange
	ErrDomainMismatch  = implication.ErrDomainMismatch
	ErrInvalidShape    = membership.ErrInvalidShape
)

// CreateUniverse fails with ErrInvalidDomain when points < 2 or start >= stop.
func CreateUniverse(start, stop float64, points int) (Universe, error) {
	return uod.New(start, stop, points)
}

// CreateGroup allocates size fuzzy sets over universe, every sample set to fill.
func CreateGroup(universe Universe, size int, fill float64) (*Group, error) {
	return fuzzyset.NewGroup(universe, size, fill)
}

// Fuzzify samples shape into member index of group.
func Fuzzify(group *Group, index int, shape Shape) error {
	if group == nil {
		return errors.New("group is required")
	}
	return group.Fuzzify(index, shape)
}

// EvaluateRule1 evaluates "if group1[idx1] is value1 then consequent[consequentIdx]"
// and merges the implied set into aggregate.
func EvaluateRule1(group1 *Group, idx1 int, value1 float64, consequent *Group, consequentIdx int, method Method, aggregate []float64) error {
	return implication.EvaluateRule1(
		implication.Antecedent{Group: group1, Index: idx1, Value: value1},
		implication.Consequent{Group: consequent, Index: consequentIdx},
		method, aggregate)
}

// EvaluateRule2 is EvaluateRule1 with two antecedents joined by op.
func EvaluateRule2(group1 *Group, idx1 int, value1 float64, op Operator, group2 *Group, idx2 int, value2 float64, consequent *Group, consequentIdx int, method Method, aggregate []float64) error {
	return implication.EvaluateRule2(
		implication.Antecedent{Group: group1, Index: idx1, Value: value1},
		op,
		implication.Antecedent{Group: group2, Index: idx2, Value: value2},
		implication.Consequent{Group: consequent, Index: consequentIdx},
		method, aggregate)
}

// Defuzzify reduces aggregate to a crisp value. An all-zero aggregate yields 0.
func Defuzzify(aggregate []float64, universe Universe, method DefuzzifyMethod) (float64, error) {
	return defuzz.Reduce(aggregate, universe, method)
}

func NewAggregate(universe Universe) []float64 {
	return implication.NewAggregate(universe)
}

func ResetAggregate(aggregate []float64) {
	implication.Reset(aggregate)
}
