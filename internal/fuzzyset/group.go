package fuzzyset

import (
	"errors"
	"fmt"

	"openfuzz/internal/membership"
	"openfuzz/internal/uod"
)

// MaxSamples bounds size*points for a single group.
const MaxSamples = 1 << 27

var (
	ErrAllocation        = errors.New("fuzzy set allocation failed")
	ErrLengthMismatch    = errors.New("sample count does not match universe")
	ErrIndexOutOfRange   = errors.New("membership index out of range")
	ErrInvalidMembership = errors.New("membership value outside [0,1]")
)

// Set is one sampled membership function.
type Set struct {
	name       string
	universe   uod.Universe
	membership []float64
}

// Group is an ordered collection of sets over a single universe.
type Group struct {
	universe uod.Universe
	sets     []Set
}

// NewGroup allocates size sets of universe.Points samples, each filled with fill.
func NewGroup(universe uod.Universe, size int, fill float64) (*Group, error) {
	if err := universe.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAllocation, err)
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: group size must be > 0, got %d", ErrAllocation, size)
	}
	if size > MaxSamples/universe.Points {
		return nil, fmt.Errorf("%w: %d sets of %d points exceeds %d samples", ErrAllocation, size, universe.Points, MaxSamples)
	}
	if !(fill >= 0 && fill <= 1) {
		return nil, fmt.Errorf("%w: fill %g", ErrInvalidMembership, fill)
	}

	backing := make([]float64, size*universe.Points)
	if fill != 0 {
		for i := range backing {
			backing[i] = fill
		}
	}
	sets := make([]Set, size)
	for i := range sets {
		lo := i * universe.Points
		sets[i] = Set{
			universe:   universe,
			membership: backing[lo : lo+universe.Points : lo+universe.Points],
		}
	}
	return &Group{universe: universe, sets: sets}, nil
}

func (g *Group) Len() int {
	return len(g.sets)
}

func (g *Group) Universe() uod.Universe {
	return g.universe
}

// Set returns the member at index. The returned Set shares its samples with the group.
func (g *Group) Set(index int) (*Set, error) {
	if err := g.checkIndex(index); err != nil {
		return nil, err
	}
	return &g.sets[index], nil
}

// Membership returns a copy of the samples of member index.
func (g *Group) Membership(index int) ([]float64, error) {
	if err := g.checkIndex(index); err != nil {
		return nil, err
	}
	return append([]float64(nil), g.sets[index].membership...), nil
}

// Fuzzify samples shape over the group universe into member index.
func (g *Group) Fuzzify(index int, shape membership.Shape) error {
	if err := g.checkIndex(index); err != nil {
		return err
	}
	values, err := membership.Build(shape, g.universe)
	if err != nil {
		return fmt.Errorf("fuzzify member %d: %w", index, err)
	}
	copy(g.sets[index].membership, values)
	return nil
}

// Assign replaces member index with explicit samples.
func (g *Group) Assign(index int, values []float64) error {
	if err := g.checkIndex(index); err != nil {
		return err
	}
	if len(values) != g.universe.Points {
		return fmt.Errorf("%w: member %d expects %d samples, got %d", ErrLengthMismatch, index, g.universe.Points, len(values))
	}
	for i, v := range values {
		if !(v >= 0 && v <= 1) {
			return fmt.Errorf("%w: member %d sample %d is %g", ErrInvalidMembership, index, i, v)
		}
	}
	copy(g.sets[index].membership, values)
	return nil
}

func (g *Group) Name(index int) (string, error) {
	if err := g.checkIndex(index); err != nil {
		return "", err
	}
	return g.sets[index].name, nil
}

func (g *Group) SetName(index int, name string) error {
	if err := g.checkIndex(index); err != nil {
		return err
	}
	g.sets[index].name = name
	return nil
}

// IndexOf returns the index of the first member named name.
func (g *Group) IndexOf(name string) (int, bool) {
	for i := range g.sets {
		if g.sets[i].name == name {
			return i, true
		}
	}
	return -1, false
}

func (g *Group) checkIndex(index int) error {
	if index < 0 || index >= len(g.sets) {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, index, len(g.sets))
	}
	return nil
}

func (s *Set) Name() string {
	return s.name
}

func (s *Set) Universe() uod.Universe {
	return s.universe
}

// Values exposes the samples without copying. Callers must not modify them.
func (s *Set) Values() []float64 {
	return s.membership
}

func (s *Set) Len() int {
	return len(s.membership)
}

// Degree reads the membership at the sample nearest to value.
func (s *Set) Degree(value float64) float64 {
	return s.membership[s.universe.Index(value)]
}
