package stats

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/HdrHistogram/hdrhistogram-go"
	"gonum.org/v1/gonum/floats"

	"openfuzz/internal/model"
)

// OutputScale is the fixed-point resolution outputs are histogrammed with.
const OutputScale = 1000

var ErrInvalidSweep = errors.New("invalid sweep")

type Inferer interface {
	Infer(ctx context.Context, inputs map[string]float64) (model.InferenceResult, error)
}

type SweepOptions struct {
	Input  string
	Output string
	From   float64
	To     float64
	Steps  int
	// Fixed holds the crisp values of every other input.
	Fixed map[string]float64
}

type SweepPoint struct {
	Input  float64 `json:"input"`
	Output float64 `json:"output"`
}

type SweepReport struct {
	Input  string       `json:"input"`
	Output string       `json:"output"`
	Points []SweepPoint `json:"points"`
	Min    float64      `json:"min"`
	Max    float64      `json:"max"`
	Mean   float64      `json:"mean"`
	P50    float64      `json:"p50"`
	P90    float64      `json:"p90"`
	P99    float64      `json:"p99"`
	Trend  string       `json:"trend"`
}

const (
	TrendConstant   = "constant"
	TrendIncreasing = "non-decreasing"
	TrendDecreasing = "non-increasing"
	TrendMixed      = "mixed"
)

// Sweep evaluates sys at Steps evenly spaced values of one input and
// summarises the response of one output.
func Sweep(ctx context.Context, sys Inferer, opts SweepOptions) (SweepReport, error) {
	if opts.Steps < 2 {
		return SweepReport{}, fmt.Errorf("%w: steps must be >= 2, got %d", ErrInvalidSweep, opts.Steps)
	}
	if math.IsNaN(opts.From) || math.IsNaN(opts.To) || math.IsInf(opts.From, 0) || math.IsInf(opts.To, 0) {
		return SweepReport{}, fmt.Errorf("%w: range must be finite", ErrInvalidSweep)
	}
	if opts.Input == "" || opts.Output == "" {
		return SweepReport{}, fmt.Errorf("%w: input and output are required", ErrInvalidSweep)
	}

	inputs := make(map[string]float64, len(opts.Fixed)+1)
	for k, v := range opts.Fixed {
		inputs[k] = v
	}

	report := SweepReport{
		Input:  opts.Input,
		Output: opts.Output,
		Points: make([]SweepPoint, 0, opts.Steps),
	}
	outputs := make([]float64, 0, opts.Steps)
	step := (opts.To - opts.From) / float64(opts.Steps-1)
	for i := 0; i < opts.Steps; i++ {
		if err := ctx.Err(); err != nil {
			return SweepReport{}, err
		}
		x := opts.From + float64(i)*step
		inputs[opts.Input] = x
		res, err := sys.Infer(ctx, inputs)
		if err != nil {
			return SweepReport{}, fmt.Errorf("sweep %s=%g: %w", opts.Input, x, err)
		}
		y, ok := res.Outputs[opts.Output]
		if !ok {
			return SweepReport{}, fmt.Errorf("%w: unknown output %s", ErrInvalidSweep, opts.Output)
		}
		report.Points = append(report.Points, SweepPoint{Input: x, Output: y})
		outputs = append(outputs, y)
	}

	report.Min = floats.Min(outputs)
	report.Max = floats.Max(outputs)
	report.Mean = floats.Sum(outputs) / float64(len(outputs))
	report.P50, report.P90, report.P99 = quantiles(outputs, report.Min, report.Max)
	report.Trend = trend(outputs)
	return report, nil
}

// quantiles records outputs relative to lo so negative universes fit the
// histogram's non-negative range.
func quantiles(outputs []float64, lo, hi float64) (p50, p90, p99 float64) {
	highest := int64(math.Ceil((hi-lo)*OutputScale)) + 1
	if highest < 2 {
		highest = 2
	}
	hg := hdrhistogram.New(1, highest, 3)
	for _, y := range outputs {
		_ = hg.RecordValue(int64(math.Round((y - lo) * OutputScale)))
	}
	at := func(q float64) float64 {
		v := lo + float64(hg.ValueAtQuantile(q))/OutputScale
		return math.Min(math.Max(v, lo), hi)
	}
	return at(50), at(90), at(99)
}

func trend(outputs []float64) string {
	up, down := false, false
	for i := 1; i < len(outputs); i++ {
		switch {
		case outputs[i] > outputs[i-1]:
			up = true
		case outputs[i] < outputs[i-1]:
			down = true
		}
	}
	switch {
	case up && down:
		return TrendMixed
	case up:
		return TrendIncreasing
	case down:
		return TrendDecreasing
	default:
		return TrendConstant
	}
}

// WriteSweepCSV writes the response curve as input,output rows.
func WriteSweepCSV(w io.Writer, report SweepReport) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{report.Input, report.Output}); err != nil {
		return err
	}
	for _, p := range report.Points {
		if err := writer.Write([]string{
			strconv.FormatFloat(p.Input, 'f', -1, 64),
			strconv.FormatFloat(p.Output, 'f', -1, 64),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
