package implication

import (
	"errors"
	"math"
	"testing"

	"openfuzz/internal/fuzzyset"
	"openfuzz/internal/membership"
	"openfuzz/internal/uod"
)

var unit = uod.Universe{Start: 0, Stop: 10, Points: 10}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// newInput returns a group whose members fire at 0.75 and 0.25 for any value.
func newInput(t *testing.T, u uod.Universe) *fuzzyset.Group {
	t.Helper()
	g, err := fuzzyset.NewGroup(u, 2, 0)
	if err != nil {
		t.Fatalf("new input group: %v", err)
	}
	if err := g.Assign(0, constant(u.Points, 0.75)); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := g.Assign(1, constant(u.Points, 0.25)); err != nil {
		t.Fatalf("assign: %v", err)
	}
	return g
}

// newOutput returns a group with a single triangle peaking at 5.
func newOutput(t *testing.T, u uod.Universe) *fuzzyset.Group {
	t.Helper()
	g, err := fuzzyset.NewGroup(u, 1, 0)
	if err != nil {
		t.Fatalf("new output group: %v", err)
	}
	if err := g.Fuzzify(0, membership.Triangular{X1: 0, X2: 5, X3: 10}); err != nil {
		t.Fatalf("fuzzify: %v", err)
	}
	return g
}

func assertVector(t *testing.T, got, want []float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got=%d want=%d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Fatalf("sample %d: got=%g want=%g (vector %v)", i, got[i], want[i], got)
		}
	}
}

func TestContributionMandaniClipsAtFiring(t *testing.T) {
	consequent := []float64{0, 0.2, 0.4, 0.6, 0.8, 1, 0.8, 0.6, 0.4, 0.2}
	for _, firing := range []float64{0, 0.3, 0.75, 1} {
		out, err := Contribution(Mandani, firing, consequent)
		if err != nil {
			t.Fatalf("contribution: %v", err)
		}
		for i, v := range out {
			if v > firing {
				t.Fatalf("firing=%g: sample %d exceeds firing: %g", firing, i, v)
			}
			if consequent[i] < firing && v != consequent[i] {
				t.Fatalf("firing=%g: sample %d changed below firing: %g", firing, i, v)
			}
		}
	}
}

func TestContributionZadehAndLarsen(t *testing.T) {
	consequent := []float64{0, 0.5, 1}

	zadeh, err := Contribution(Zadeh, 0.8, consequent)
	if err != nil {
		t.Fatalf("zadeh: %v", err)
	}
	assertVector(t, zadeh, []float64{0.2, 0.5, 0.8})

	weak, err := Contribution(Zadeh, 0.3, consequent)
	if err != nil {
		t.Fatalf("zadeh weak: %v", err)
	}
	assertVector(t, weak, []float64{0.7, 0.7, 0.7})

	larsen, err := Contribution(Larsen, 0.5, consequent)
	if err != nil {
		t.Fatalf("larsen: %v", err)
	}
	assertVector(t, larsen, []float64{0, 0.25, 0.5})

	if _, err := Contribution(Method(42), 0.5, consequent); !errors.Is(err, ErrUnknownMethod) {
		t.Fatalf("expected ErrUnknownMethod, got: %v", err)
	}
}

func TestEvaluateRule1Mandani(t *testing.T) {
	in := newInput(t, unit)
	out := newOutput(t, unit)
	aggregate := NewAggregate(unit)

	if err := EvaluateRule1(Antecedent{Group: in, Index: 0, Value: 3}, Consequent{Group: out, Index: 0}, Mandani, aggregate); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	assertVector(t, aggregate, []float64{0, 0.2, 0.4, 0.6, 0.75, 0.75, 0.75, 0.6, 0.4, 0.2})

	consequent, _ := out.Membership(0)
	if consequent[5] != 1 {
		t.Fatalf("consequent set must stay unclipped, got=%g", consequent[5])
	}
}

func TestMergeIsIdempotentAndCommutative(t *testing.T) {
	in := newInput(t, unit)
	out := newOutput(t, unit)

	once := NewAggregate(unit)
	strong := Antecedent{Group: in, Index: 0, Value: 1}
	weak := Antecedent{Group: in, Index: 1, Value: 1}
	c := Consequent{Group: out, Index: 0}
	if err := EvaluateRule1(strong, c, Larsen, once); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	twice := append([]float64(nil), once...)
	if err := EvaluateRule1(strong, c, Larsen, twice); err != nil {
		t.Fatalf("evaluate again: %v", err)
	}
	assertVector(t, twice, once)

	ab := NewAggregate(unit)
	ba := NewAggregate(unit)
	for _, a := range []Antecedent{strong, weak} {
		if err := EvaluateRule1(a, c, Zadeh, ab); err != nil {
			t.Fatalf("evaluate: %v", err)
		}
	}
	for _, a := range []Antecedent{weak, strong} {
		if err := EvaluateRule1(a, c, Zadeh, ba); err != nil {
			t.Fatalf("evaluate: %v", err)
		}
	}
	assertVector(t, ab, ba)

	Reset(ab)
	assertVector(t, ab, make([]float64, unit.Points))
}

func TestEvaluateRule2Mandani(t *testing.T) {
	in := newInput(t, unit)
	out := newOutput(t, unit)
	strong := Antecedent{Group: in, Index: 0, Value: 2}
	weak := Antecedent{Group: in, Index: 1, Value: 8}
	c := Consequent{Group: out, Index: 0}

	and := NewAggregate(unit)
	if err := EvaluateRule2(strong, And, weak, c, Mandani, and); err != nil {
		t.Fatalf("evaluate and: %v", err)
	}
	assertVector(t, and, []float64{0, 0.2, 0.25, 0.25, 0.25, 0.25, 0.25, 0.25, 0.25, 0.2})

	or := NewAggregate(unit)
	if err := EvaluateRule2(strong, Or, weak, c, Mandani, or); err != nil {
		t.Fatalf("evaluate or: %v", err)
	}
	assertVector(t, or, []float64{0, 0.2, 0.4, 0.6, 0.75, 0.75, 0.75, 0.6, 0.4, 0.2})

	if err := EvaluateRule2(strong, Operator(9), weak, c, Mandani, or); err == nil {
		t.Fatal("expected unsupported operator error")
	}
}

func TestEvaluateRule2CombinesContributions(t *testing.T) {
	in := newInput(t, unit)
	out := newOutput(t, unit)
	strong := Antecedent{Group: in, Index: 0, Value: 2}
	weak := Antecedent{Group: in, Index: 1, Value: 8}
	c := Consequent{Group: out, Index: 0}
	consequent, _ := out.Membership(0)

	and := NewAggregate(unit)
	if err := EvaluateRule2(strong, And, weak, c, Larsen, and); err != nil {
		t.Fatalf("evaluate and: %v", err)
	}
	or := NewAggregate(unit)
	if err := EvaluateRule2(strong, Or, weak, c, Larsen, or); err != nil {
		t.Fatalf("evaluate or: %v", err)
	}
	for i, v := range consequent {
		if math.Abs(and[i]-0.25*v) > 1e-12 {
			t.Fatalf("and sample %d: got=%g want=%g", i, and[i], 0.25*v)
		}
		if math.Abs(or[i]-0.75*v) > 1e-12 {
			t.Fatalf("or sample %d: got=%g want=%g", i, or[i], 0.75*v)
		}
	}
}

func TestEvaluateRuleErrors(t *testing.T) {
	in := newInput(t, unit)
	out := newOutput(t, unit)
	aggregate := NewAggregate(unit)

	err := EvaluateRule1(Antecedent{Group: in, Index: 5, Value: 1}, Consequent{Group: out, Index: 0}, Mandani, aggregate)
	if !errors.Is(err, fuzzyset.ErrIndexOutOfRange) {
		t.Fatalf("expected antecedent ErrIndexOutOfRange, got: %v", err)
	}
	err = EvaluateRule1(Antecedent{Group: in, Index: 0, Value: 1}, Consequent{Group: out, Index: 1}, Mandani, aggregate)
	if !errors.Is(err, fuzzyset.ErrIndexOutOfRange) {
		t.Fatalf("expected consequent ErrIndexOutOfRange, got: %v", err)
	}
	err = EvaluateRule1(Antecedent{Group: in, Index: 0, Value: 1}, Consequent{Group: out, Index: 0}, Mandani, make([]float64, 3))
	if !errors.Is(err, ErrDomainMismatch) {
		t.Fatalf("expected aggregate ErrDomainMismatch, got: %v", err)
	}

	wide := newInput(t, uod.Universe{Start: 0, Stop: 10, Points: 20})
	a := Antecedent{Group: wide, Index: 0, Value: 1}
	c := Consequent{Group: out, Index: 0}
	if err := EvaluateRule1(a, c, Mandani, aggregate); err != nil {
		t.Fatalf("mandani must accept differing antecedent points: %v", err)
	}
	coarse := newInput(t, uod.Universe{Start: 0, Stop: 10, Points: 11})
	fine := newOutput(t, uod.Universe{Start: 0, Stop: 10, Points: 21})
	ca := Antecedent{Group: coarse, Index: 0, Value: 1}
	fc := Consequent{Group: fine, Index: 0}
	if err := EvaluateRule1(ca, fc, Mandani, NewAggregate(fine.Universe())); err != nil {
		t.Fatalf("mandani 11 to 21 points: %v", err)
	}
	if err := EvaluateRule1(ca, fc, Larsen, NewAggregate(fine.Universe())); !errors.Is(err, ErrDomainMismatch) {
		t.Fatalf("expected larsen 11 to 21 points ErrDomainMismatch, got: %v", err)
	}
	if err := EvaluateRule1(a, c, Zadeh, aggregate); !errors.Is(err, ErrDomainMismatch) {
		t.Fatalf("expected zadeh ErrDomainMismatch, got: %v", err)
	}
	if err := EvaluateRule2(Antecedent{Group: in, Index: 0}, And, a, c, Larsen, aggregate); !errors.Is(err, ErrDomainMismatch) {
		t.Fatalf("expected larsen ErrDomainMismatch, got: %v", err)
	}
	if err := Merge(aggregate, []float64{1}); !errors.Is(err, ErrDomainMismatch) {
		t.Fatalf("expected merge ErrDomainMismatch, got: %v", err)
	}
}

func TestOperatorCombine(t *testing.T) {
	cases := []struct {
		op   Operator
		a, b float64
		want float64
	}{
		{op: And, a: 0.25, b: 0.75, want: 0.25},
		{op: And, a: 0.75, b: 0.25, want: 0.25},
		{op: Or, a: 0.25, b: 0.75, want: 0.75},
		{op: Or, a: 0, b: 0, want: 0},
	}
	for _, tc := range cases {
		if got := tc.op.Combine(tc.a, tc.b); got != tc.want {
			t.Fatalf("%s.Combine(%g, %g)=%g want=%g", tc.op, tc.a, tc.b, got, tc.want)
		}
	}
}

func TestParseMethodAndOperator(t *testing.T) {
	for name, want := range map[string]Method{"Mamdani": Mandani, "mandani": Mandani, "zadeh": Zadeh, "product": Larsen} {
		got, err := ParseMethod(name)
		if err != nil || got != want {
			t.Fatalf("ParseMethod(%q)=%v,%v want=%v", name, got, err, want)
		}
		if again, _ := ParseMethod(got.String()); again != got {
			t.Fatalf("method %v does not round trip through String", got)
		}
	}
	if _, err := ParseMethod("lukasiewicz"); !errors.Is(err, ErrUnknownMethod) {
		t.Fatalf("expected ErrUnknownMethod, got: %v", err)
	}
	if op, err := ParseOperator("OR"); err != nil || op != Or {
		t.Fatalf("unexpected ParseOperator(OR): %v %v", op, err)
	}
	if _, err := ParseOperator("xor"); err == nil {
		t.Fatal("expected unknown operator error")
	}
}
