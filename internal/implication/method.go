package implication

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownMethod = errors.New("unknown implication method")

// Method selects how a firing strength shapes the consequent set.
type Method int

const (
	// Mandani clips the consequent at the firing strength.
	Mandani Method = iota
	// Zadeh applies max(1-f, min(f, c)).
	Zadeh
	// Larsen scales the consequent by the firing strength.
	Larsen
)

func (m Method) String() string {
	switch m {
	case Mandani:
		return "mandani"
	case Zadeh:
		return "zadeh"
	case Larsen:
		return "larsen"
	default:
		return fmt.Sprintf("method(%d)", int(m))
	}
}

func ParseMethod(name string) (Method, error) {
	switch strings.TrimSpace(strings.ToLower(name)) {
	case "mandani", "mamdani", "min", "clip":
		return Mandani, nil
	case "zadeh":
		return Zadeh, nil
	case "larsen", "product", "prod":
		return Larsen, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, name)
	}
}

// Operator combines two antecedents.
type Operator int

const (
	And Operator = iota
	Or
)

func (o Operator) String() string {
	switch o {
	case And:
		return "and"
	case Or:
		return "or"
	default:
		return fmt.Sprintf("operator(%d)", int(o))
	}
}

// Combine folds two firing strengths or membership degrees: min for And, max for Or.
func (o Operator) Combine(a, b float64) float64 {
	if o == Or {
		return maximum(a, b)
	}
	return minimum(a, b)
}

func ParseOperator(name string) (Operator, error) {
	switch strings.TrimSpace(strings.ToLower(name)) {
	case "and", "min", "&&":
		return And, nil
	case "or", "max", "||":
		return Or, nil
	default:
		return 0, fmt.Errorf("unknown operator: %q", name)
	}
}

func minimum(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maximum(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
