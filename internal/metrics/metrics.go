package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	InferenceCyclesH = "The total number of completed inference cycles"
	InferenceCyclesN = "openfuzz_inference_cycles"
	InferenceErrorsH = "The total number of inference cycles that failed"
	InferenceErrorsN = "openfuzz_inference_errors"
	RulesEvaluatedH  = "The total number of rules evaluated, by implication method"
	RulesEvaluatedN  = "openfuzz_rules_evaluated"
	DefuzzifiedH     = "The total number of aggregates defuzzified, by reduction method"
	DefuzzifiedN     = "openfuzz_defuzzified"
	InputsClampedH   = "The total number of crisp inputs outside their universe of discourse"
	InputsClampedN   = "openfuzz_inputs_clamped"
)

// Metrics counts inference activity. A nil *Metrics is valid and records nothing.
type Metrics struct {
	cycles        prometheus.Counter
	errors        prometheus.Counter
	rules         *prometheus.CounterVec
	defuzzified   *prometheus.CounterVec
	inputsClamped prometheus.Counter
}

// New registers the inference metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		cycles: f.NewCounter(prometheus.CounterOpts{
			Name: InferenceCyclesN,
			Help: InferenceCyclesH,
		}),
		errors: f.NewCounter(prometheus.CounterOpts{
			Name: InferenceErrorsN,
			Help: InferenceErrorsH,
		}),
		rules: f.NewCounterVec(prometheus.CounterOpts{
			Name: RulesEvaluatedN,
			Help: RulesEvaluatedH,
		}, []string{"method"}),
		defuzzified: f.NewCounterVec(prometheus.CounterOpts{
			Name: DefuzzifiedN,
			Help: DefuzzifiedH,
		}, []string{"method"}),
		inputsClamped: f.NewCounter(prometheus.CounterOpts{
			Name: InputsClampedN,
			Help: InputsClampedH,
		}),
	}
}

func (m *Metrics) CycleCompleted() {
	if m == nil {
		return
	}
	m.cycles.Inc()
}

func (m *Metrics) CycleFailed() {
	if m == nil {
		return
	}
	m.errors.Inc()
}

func (m *Metrics) RuleEvaluated(method string) {
	if m == nil {
		return
	}
	m.rules.WithLabelValues(method).Inc()
}

func (m *Metrics) Defuzzified(method string) {
	if m == nil {
		return
	}
	m.defuzzified.WithLabelValues(method).Inc()
}

func (m *Metrics) InputClamped() {
	if m == nil {
		return
	}
	m.inputsClamped.Inc()
}
