package implication

import (
	"errors"
	"fmt"

	"openfuzz/internal/fuzzyset"
	"openfuzz/internal/membership"
	"openfuzz/internal/uod"
)

var ErrDomainMismatch = errors.New("domain mismatch")

// Antecedent reads the degree of crisp Value in member Index of Group.
type Antecedent struct {
	Group *fuzzyset.Group
	Index int
	Value float64
}

// Consequent addresses the output set a rule implies.
type Consequent struct {
	Group *fuzzyset.Group
	Index int
}

// Firing returns the antecedent membership at the sample nearest its value.
func Firing(a Antecedent) (float64, error) {
	if a.Group == nil {
		return 0, errors.New("antecedent group is required")
	}
	set, err := a.Group.Set(a.Index)
	if err != nil {
		return 0, fmt.Errorf("antecedent: %w", err)
	}
	return set.Degree(a.Value), nil
}

// Contribution derives the output vector of one rule from its firing strength.
func Contribution(method Method, firing float64, consequent []float64) ([]float64, error) {
	switch method {
	case Mandani:
		return membership.Cut(consequent, firing), nil
	case Zadeh:
		out := make([]float64, len(consequent))
		for y, c := range consequent {
			out[y] = maximum(1-firing, minimum(firing, c))
		}
		return out, nil
	case Larsen:
		out := make([]float64, len(consequent))
		for y, c := range consequent {
			out[y] = firing * c
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
}

// EvaluateRule1 evaluates "if a then c" and merges the result into aggregate.
// Mandani rules accept antecedent and consequent universes of different
// resolution. Zadeh and Larsen rules need equal point counts and fail with
// ErrDomainMismatch otherwise.
func EvaluateRule1(a Antecedent, c Consequent, method Method, aggregate []float64) error {
	consequent, err := consequentValues(c, aggregate)
	if err != nil {
		return err
	}
	if err := checkAntecedentDomain(a, c, method); err != nil {
		return err
	}
	firing, err := Firing(a)
	if err != nil {
		return err
	}
	contribution, err := Contribution(method, firing, consequent)
	if err != nil {
		return err
	}
	return Merge(aggregate, contribution)
}

// EvaluateRule2 evaluates "if a1 op a2 then c" and merges the result into aggregate.
//
// Mandani combines the two firing strengths before clipping. Zadeh and Larsen
// build one contribution per antecedent and combine those pointwise. The
// resolution rules of EvaluateRule1 apply to both antecedents.
func EvaluateRule2(a1 Antecedent, op Operator, a2 Antecedent, c Consequent, method Method, aggregate []float64) error {
	if op != And && op != Or {
		return fmt.Errorf("unsupported operator: %s", op)
	}
	consequent, err := consequentValues(c, aggregate)
	if err != nil {
		return err
	}
	if err := checkAntecedentDomain(a1, c, method); err != nil {
		return err
	}
	if err := checkAntecedentDomain(a2, c, method); err != nil {
		return err
	}
	f1, err := Firing(a1)
	if err != nil {
		return err
	}
	f2, err := Firing(a2)
	if err != nil {
		return err
	}

	if method == Mandani {
		return Merge(aggregate, membership.Cut(consequent, op.Combine(f1, f2)))
	}

	first, err := Contribution(method, f1, consequent)
	if err != nil {
		return err
	}
	second, err := Contribution(method, f2, consequent)
	if err != nil {
		return err
	}
	for i := range first {
		first[i] = op.Combine(first[i], second[i])
	}
	return Merge(aggregate, first)
}

// Merge folds contribution into aggregate by pointwise maximum.
func Merge(aggregate, contribution []float64) error {
	if len(aggregate) != len(contribution) {
		return fmt.Errorf("%w: aggregate has %d samples, contribution %d", ErrDomainMismatch, len(aggregate), len(contribution))
	}
	for i, v := range contribution {
		if v > aggregate[i] {
			aggregate[i] = v
		}
	}
	return nil
}

// NewAggregate returns a zeroed aggregate for universe.
func NewAggregate(universe uod.Universe) []float64 {
	return make([]float64, universe.Points)
}

// Reset zeroes aggregate for the next inference cycle.
func Reset(aggregate []float64) {
	clear(aggregate)
}

func consequentValues(c Consequent, aggregate []float64) ([]float64, error) {
	if c.Group == nil {
		return nil, errors.New("consequent group is required")
	}
	set, err := c.Group.Set(c.Index)
	if err != nil {
		return nil, fmt.Errorf("consequent: %w", err)
	}
	if len(aggregate) != set.Len() {
		return nil, fmt.Errorf("%w: aggregate has %d samples, consequent universe %d", ErrDomainMismatch, len(aggregate), set.Len())
	}
	return set.Values(), nil
}

// Zadeh and Larsen rules require antecedent and consequent universes with the
// same number of points. Mandani rules only touch the consequent domain.
func checkAntecedentDomain(a Antecedent, c Consequent, method Method) error {
	if method == Mandani || a.Group == nil {
		return nil
	}
	in, out := a.Group.Universe().Points, c.Group.Universe().Points
	if in != out {
		return fmt.Errorf("%w: %s rule over %d antecedent points and %d consequent points", ErrDomainMismatch, method, in, out)
	}
	return nil
}
