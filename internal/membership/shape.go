package membership

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var ErrInvalidShape = errors.New("invalid membership shape")

// Shape is one of Triangular, Trapezoidal or Gaussian.
type Shape interface {
	// Kind returns the canonical shape tag.
	Kind() string
	Validate() error
	Params() []float64
	eval(x float64) float64
}

// Triangular rises from X1 to a peak at X2 and falls back to zero at X3.
// X1 == X2 gives a right triangle, X2 == X3 a left one.
type Triangular struct {
	X1, X2, X3 float64
}

// Trapezoidal ramps up over [X1, X2), holds 1 over [X2, X3) and ramps down over [X3, X4).
type Trapezoidal struct {
	X1, X2, X3, X4 float64
}

// Gaussian evaluates exp(-(x-Center)^2 / Sigma^2).
//
// Canonical switches the divisor to 2*Sigma^2, the textbook normal curve.
// The default keeps the narrower curve existing rule bases were tuned with.
type Gaussian struct {
	Center    float64
	Sigma     float64
	Canonical bool
}

const (
	KindTriangular  = "triangular"
	KindTrapezoidal = "trapezoidal"
	KindGaussian    = "gaussian"
)

func (Triangular) Kind() string  { return KindTriangular }
func (Trapezoidal) Kind() string { return KindTrapezoidal }
func (Gaussian) Kind() string    { return KindGaussian }

func (s Triangular) Params() []float64  { return []float64{s.X1, s.X2, s.X3} }
func (s Trapezoidal) Params() []float64 { return []float64{s.X1, s.X2, s.X3, s.X4} }
func (s Gaussian) Params() []float64    { return []float64{s.Center, s.Sigma} }

func (s Triangular) Validate() error {
	if err := requireFinite(s.Kind(), s.Params()); err != nil {
		return err
	}
	if s.X1 > s.X2 || s.X2 > s.X3 {
		return fmt.Errorf("%w: triangular requires x1<=x2<=x3, got %g,%g,%g", ErrInvalidShape, s.X1, s.X2, s.X3)
	}
	return nil
}

func (s Trapezoidal) Validate() error {
	if err := requireFinite(s.Kind(), s.Params()); err != nil {
		return err
	}
	if s.X1 > s.X2 || s.X2 > s.X3 || s.X3 > s.X4 {
		return fmt.Errorf("%w: trapezoidal requires x1<=x2<=x3<=x4, got %g,%g,%g,%g", ErrInvalidShape, s.X1, s.X2, s.X3, s.X4)
	}
	return nil
}

func (s Gaussian) Validate() error {
	if err := requireFinite(s.Kind(), s.Params()); err != nil {
		return err
	}
	if s.Sigma <= 0 {
		return fmt.Errorf("%w: gaussian sigma must be > 0, got %g", ErrInvalidShape, s.Sigma)
	}
	return nil
}

func (s Triangular) eval(j float64) float64 {
	switch {
	case j < s.X1:
		return 0
	case j < s.X2:
		return (j - s.X1) / (s.X2 - s.X1)
	case j < s.X3:
		return (s.X3 - j) / (s.X3 - s.X2)
	default:
		return 0
	}
}

func (s Trapezoidal) eval(j float64) float64 {
	switch {
	case j < s.X1:
		return 0
	case j < s.X2:
		return (j - s.X1) / (s.X2 - s.X1)
	case j < s.X3:
		return 1
	case j < s.X4:
		return (s.X4 - j) / (s.X4 - s.X3)
	default:
		return 0
	}
}

func (s Gaussian) eval(j float64) float64 {
	d := j - s.Center
	divisor := s.Sigma * s.Sigma
	if s.Canonical {
		divisor *= 2
	}
	return math.Exp(-(d * d) / divisor)
}

// Eval returns the membership degree of x without sampling.
func Eval(shape Shape, x float64) (float64, error) {
	if shape == nil {
		return 0, fmt.Errorf("%w: shape is required", ErrInvalidShape)
	}
	if err := shape.Validate(); err != nil {
		return 0, err
	}
	return shape.eval(x), nil
}

// Parse builds a shape from a config tag and its positional parameters.
func Parse(kind string, params []float64) (Shape, error) {
	var shape Shape
	switch normalizeKind(kind) {
	case KindTriangular:
		if len(params) != 3 {
			return nil, fmt.Errorf("%w: triangular takes 3 params, got %d", ErrInvalidShape, len(params))
		}
		shape = Triangular{X1: params[0], X2: params[1], X3: params[2]}
	case KindTrapezoidal:
		if len(params) != 4 {
			return nil, fmt.Errorf("%w: trapezoidal takes 4 params, got %d", ErrInvalidShape, len(params))
		}
		shape = Trapezoidal{X1: params[0], X2: params[1], X3: params[2], X4: params[3]}
	case KindGaussian:
		if len(params) != 2 {
			return nil, fmt.Errorf("%w: gaussian takes 2 params, got %d", ErrInvalidShape, len(params))
		}
		shape = Gaussian{Center: params[0], Sigma: params[1]}
	case "gaussian-canonical":
		if len(params) != 2 {
			return nil, fmt.Errorf("%w: gaussian takes 2 params, got %d", ErrInvalidShape, len(params))
		}
		shape = Gaussian{Center: params[0], Sigma: params[1], Canonical: true}
	default:
		return nil, fmt.Errorf("%w: unknown shape %q", ErrInvalidShape, kind)
	}
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	return shape, nil
}

func normalizeKind(kind string) string {
	normalized := strings.TrimSpace(strings.ToLower(kind))
	normalized = strings.ReplaceAll(normalized, "_", "-")
	switch normalized {
	case "triangular", "triangle", "trimf", "tri":
		return KindTriangular
	case "trapezoidal", "trapezoid", "trapmf", "trap":
		return KindTrapezoidal
	case "gaussian", "gauss", "gaussmf":
		return KindGaussian
	case "gaussian-canonical", "gaussmf-canonical":
		return "gaussian-canonical"
	default:
		return normalized
	}
}

func requireFinite(kind string, params []float64) error {
	for i, p := range params {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return fmt.Errorf("%w: %s param %d is not finite", ErrInvalidShape, kind, i)
		}
	}
	return nil
}
