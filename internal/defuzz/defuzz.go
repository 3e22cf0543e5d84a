package defuzz

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"

	"openfuzz/internal/implication"
	"openfuzz/internal/uod"
)

var (
	ErrDomainMismatch = implication.ErrDomainMismatch
	ErrUnknownMethod  = errors.New("unknown defuzzification method")
)

type Method int

const (
	// COA is the centroid of area.
	COA Method = iota
	// MOM is the mean of maxima.
	MOM
	// LOM is the last of maxima.
	LOM
	// FOM is the first of maxima.
	FOM
	MOMGlobal
	LOMGlobal
	FOMGlobal
)

func (m Method) String() string {
	switch m {
	case COA:
		return "coa"
	case MOM:
		return "mom"
	case LOM:
		return "lom"
	case FOM:
		return "fom"
	case MOMGlobal:
		return "mom-global"
	case LOMGlobal:
		return "lom-global"
	case FOMGlobal:
		return "fom-global"
	default:
		return fmt.Sprintf("method(%d)", int(m))
	}
}

func ParseMethod(name string) (Method, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(strings.ToLower(name)), "_", "-")
	switch normalized {
	case "coa", "centroid", "cog":
		return COA, nil
	case "mom":
		return MOM, nil
	case "lom":
		return LOM, nil
	case "fom", "som":
		return FOM, nil
	case "mom-global":
		return MOMGlobal, nil
	case "lom-global":
		return LOMGlobal, nil
	case "fom-global", "som-global":
		return FOMGlobal, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, name)
	}
}

// Reduce defuzzifies aggregate, whose samples sit at universe.Value(i).
func Reduce(aggregate []float64, universe uod.Universe, method Method) (float64, error) {
	if err := universe.Validate(); err != nil {
		return 0, err
	}
	if len(aggregate) != universe.Points {
		return 0, fmt.Errorf("%w: aggregate has %d samples, universe %d", ErrDomainMismatch, len(aggregate), universe.Points)
	}
	if method < COA || method > FOMGlobal {
		return 0, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
	if floats.Max(aggregate) <= 0 {
		return 0, nil
	}

	switch method {
	case COA:
		return centroid(aggregate, universe), nil
	case MOM:
		return meanOfMaxima(aggregate, universe), nil
	case LOM:
		_, last := trailingMaxima(aggregate)
		return universe.Value(last), nil
	case FOM:
		first, _ := trailingMaxima(aggregate)
		return universe.Value(first), nil
	case MOMGlobal:
		return meanOfGlobalMaxima(aggregate, universe), nil
	case LOMGlobal:
		peak := floats.Max(aggregate)
		for i := len(aggregate) - 1; i >= 0; i-- {
			if aggregate[i] == peak {
				return universe.Value(i), nil
			}
		}
		return 0, nil
	case FOMGlobal:
		return universe.Value(floats.MaxIdx(aggregate)), nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
}

func centroid(aggregate []float64, universe uod.Universe) float64 {
	mass := floats.Sum(aggregate)
	if mass == 0 {
		return 0
	}
	return floats.Dot(aggregate, universe.Positions()) / mass
}

// meanOfMaxima averages every sample that equals the running maximum at the
// moment the scan reaches it. Samples counted before a larger maximum shows
// up stay counted.
func meanOfMaxima(aggregate []float64, universe uod.Universe) float64 {
	running := 0.0
	sum := 0.0
	n := 0
	for i, v := range aggregate {
		if v > running {
			running = v
		}
		if v == running {
			sum += universe.Value(i)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// trailingMaxima tracks the two most recent strictly increasing extrema and
// returns their sample indices. LOM reports the larger, FOM the smaller.
func trailingMaxima(aggregate []float64) (firstPos, lastPos int) {
	var firstMax, lastMax float64
	for i, v := range aggregate {
		current := firstMax
		if v > current {
			current = v
		}
		if current <= firstMax {
			continue
		}
		switch {
		case current > lastMax:
			firstMax, firstPos = lastMax, lastPos
			lastMax, lastPos = current, i
		case current < lastMax:
			firstMax, firstPos = current, i
		}
	}
	return firstPos, lastPos
}

func meanOfGlobalMaxima(aggregate []float64, universe uod.Universe) float64 {
	peak := floats.Max(aggregate)
	sum := 0.0
	n := 0
	for i, v := range aggregate {
		if v == peak {
			sum += universe.Value(i)
			n++
		}
	}
	return sum / float64(n)
}
