package inference

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"openfuzz/internal/defuzz"
	"openfuzz/internal/fuzzyset"
	"openfuzz/internal/implication"
	"openfuzz/internal/membership"
	"openfuzz/internal/metrics"
	"openfuzz/internal/model"
	"openfuzz/internal/uod"
)

var (
	ErrMissingInput    = errors.New("missing crisp input")
	ErrUnknownVariable = errors.New("unknown variable")
	ErrUnknownSet      = errors.New("unknown fuzzy set")
)

type Option func(*System)

func WithLogger(log *zap.Logger) Option {
	return func(s *System) {
		if log != nil {
			s.log = log
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *System) {
		s.metrics = m
	}
}

type variable struct {
	name      string
	group     *fuzzyset.Group
	method    defuzz.Method
	aggregate []float64
}

type clause struct {
	variable *variable
	index    int
}

type rule struct {
	antecedents []clause
	op          implication.Operator
	consequent  clause
	method      implication.Method
}

type System struct {
	name    string
	def     model.SystemDefinition
	inputs  map[string]*variable
	outputs map[string]*variable
	order   []string
	rules   []rule

	log     *zap.Logger
	metrics *metrics.Metrics
}

// New compiles def into a System.
func New(def model.SystemDefinition, opts ...Option) (*System, error) {
	s := &System{
		name:    def.Name,
		def:     def,
		inputs:  make(map[string]*variable, len(def.Inputs)),
		outputs: make(map[string]*variable, len(def.Outputs)),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, spec := range def.Inputs {
		v, err := buildVariable(spec, false)
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", spec.Name, err)
		}
		if _, exists := s.inputs[spec.Name]; exists {
			return nil, fmt.Errorf("duplicate input variable: %s", spec.Name)
		}
		s.inputs[spec.Name] = v
	}
	for _, spec := range def.Outputs {
		v, err := buildVariable(spec, true)
		if err != nil {
			return nil, fmt.Errorf("output %q: %w", spec.Name, err)
		}
		if _, exists := s.outputs[spec.Name]; exists {
			return nil, fmt.Errorf("duplicate output variable: %s", spec.Name)
		}
		s.outputs[spec.Name] = v
		s.order = append(s.order, spec.Name)
	}
	for i, spec := range def.Rules {
		r, err := s.compileRule(spec)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		s.rules = append(s.rules, r)
	}

	s.log.Debug("compiled inference system",
		zap.String("system", s.name),
		zap.Int("inputs", len(s.inputs)),
		zap.Int("outputs", len(s.outputs)),
		zap.Int("rules", len(s.rules)))
	return s, nil
}

func buildVariable(spec model.VariableSpec, output bool) (*variable, error) {
	universe, err := uod.New(spec.Start, spec.Stop, spec.Points)
	if err != nil {
		return nil, err
	}
	if len(spec.Sets) == 0 {
		return nil, errors.New("at least one fuzzy set is required")
	}
	group, err := fuzzyset.NewGroup(universe, len(spec.Sets), 0)
	if err != nil {
		return nil, err
	}
	for i, set := range spec.Sets {
		if _, exists := group.IndexOf(set.Name); exists {
			return nil, fmt.Errorf("duplicate fuzzy set: %s", set.Name)
		}
		shape, err := membership.Parse(set.Shape, set.Params)
		if err != nil {
			return nil, fmt.Errorf("set %q: %w", set.Name, err)
		}
		if err := group.Fuzzify(i, shape); err != nil {
			return nil, fmt.Errorf("set %q: %w", set.Name, err)
		}
		if err := group.SetName(i, set.Name); err != nil {
			return nil, err
		}
	}

	v := &variable{name: spec.Name, group: group}
	if output {
		v.method = defuzz.COA
		if spec.Defuzzify != "" {
			if v.method, err = defuzz.ParseMethod(spec.Defuzzify); err != nil {
				return nil, err
			}
		}
		v.aggregate = implication.NewAggregate(universe)
	}
	return v, nil
}

func (s *System) compileRule(spec model.RuleSpec) (rule, error) {
	if len(spec.If) < 1 || len(spec.If) > 2 {
		return rule{}, fmt.Errorf("rules take one or two antecedents, got %d", len(spec.If))
	}
	r := rule{method: implication.Mandani, op: implication.And}
	if spec.Method != "" {
		method, err := implication.ParseMethod(spec.Method)
		if err != nil {
			return rule{}, err
		}
		r.method = method
	}
	if spec.Operator != "" {
		if len(spec.If) == 1 {
			return rule{}, errors.New("operator requires two antecedents")
		}
		op, err := implication.ParseOperator(spec.Operator)
		if err != nil {
			return rule{}, err
		}
		r.op = op
	}
	for _, c := range spec.If {
		resolved, err := resolve(s.inputs, c)
		if err != nil {
			return rule{}, err
		}
		r.antecedents = append(r.antecedents, resolved)
	}
	consequent, err := resolve(s.outputs, spec.Then)
	if err != nil {
		return rule{}, err
	}
	r.consequent = consequent
	if r.method != implication.Mandani {
		out := consequent.variable.group.Universe().Points
		for _, a := range r.antecedents {
			if in := a.variable.group.Universe().Points; in != out {
				return rule{}, fmt.Errorf("%w: %s rule over %d antecedent points (%s) and %d consequent points (%s)",
					implication.ErrDomainMismatch, r.method, in, a.variable.name, out, consequent.variable.name)
			}
		}
	}
	return r, nil
}

func resolve(vars map[string]*variable, c model.ClauseSpec) (clause, error) {
	v, ok := vars[c.Variable]
	if !ok {
		return clause{}, fmt.Errorf("%w: %s", ErrUnknownVariable, c.Variable)
	}
	idx, ok := v.group.IndexOf(c.Set)
	if !ok {
		return clause{}, fmt.Errorf("%w: %s.%s", ErrUnknownSet, c.Variable, c.Set)
	}
	return clause{variable: v, index: idx}, nil
}

func (s *System) Name() string {
	return s.name
}

// Definition returns the definition the system was compiled from.
func (s *System) Definition() model.SystemDefinition {
	return s.def
}

func (s *System) Inputs() []string {
	return sortedKeys(s.inputs)
}

// Outputs lists output variables in definition order.
func (s *System) Outputs() []string {
	return append([]string(nil), s.order...)
}

// Group returns the fuzzy set group of an input or output variable.
func (s *System) Group(name string) (*fuzzyset.Group, bool) {
	if v, ok := s.inputs[name]; ok {
		return v.group, true
	}
	if v, ok := s.outputs[name]; ok {
		return v.group, true
	}
	return nil, false
}

// Infer runs one inference cycle for the crisp inputs.
func (s *System) Infer(ctx context.Context, inputs map[string]float64) (model.InferenceResult, error) {
	result, err := s.infer(ctx, inputs)
	if err != nil {
		s.metrics.CycleFailed()
		s.log.Debug("inference failed", zap.String("system", s.name), zap.Error(err))
		return model.InferenceResult{}, err
	}
	s.metrics.CycleCompleted()
	return result, nil
}

func (s *System) infer(ctx context.Context, inputs map[string]float64) (model.InferenceResult, error) {
	if err := ctx.Err(); err != nil {
		return model.InferenceResult{}, err
	}
	for name, v := range s.inputs {
		value, ok := inputs[name]
		if !ok {
			return model.InferenceResult{}, fmt.Errorf("%w: %s", ErrMissingInput, name)
		}
		if u := v.group.Universe(); !u.Contains(value) {
			s.metrics.InputClamped()
			s.log.Warn("crisp input outside universe of discourse, clamping",
				zap.String("variable", name),
				zap.Float64("value", value),
				zap.Stringer("universe", u))
		}
	}
	for name := range inputs {
		if _, ok := s.inputs[name]; !ok {
			return model.InferenceResult{}, fmt.Errorf("%w: %s", ErrUnknownVariable, name)
		}
	}

	for _, out := range s.outputs {
		implication.Reset(out.aggregate)
	}

	result := model.InferenceResult{
		Inputs:  make(map[string]float64, len(inputs)),
		Outputs: make(map[string]float64, len(s.outputs)),
		Firings: make([]model.RuleFiring, 0, len(s.rules)),
	}
	for name, value := range inputs {
		result.Inputs[name] = value
	}

	for i, r := range s.rules {
		firing, err := s.evaluate(r, inputs)
		if err != nil {
			return model.InferenceResult{}, fmt.Errorf("rule %d: %w", i, err)
		}
		s.metrics.RuleEvaluated(r.method.String())
		result.Firings = append(result.Firings, model.RuleFiring{
			Rule:   i,
			Output: r.consequent.variable.name,
			Firing: firing,
		})
	}

	for _, name := range s.order {
		out := s.outputs[name]
		crisp, err := defuzz.Reduce(out.aggregate, out.group.Universe(), out.method)
		if err != nil {
			return model.InferenceResult{}, fmt.Errorf("defuzzify %s: %w", name, err)
		}
		s.metrics.Defuzzified(out.method.String())
		result.Outputs[name] = crisp
		s.log.Debug("defuzzified output",
			zap.String("system", s.name),
			zap.String("output", name),
			zap.Stringer("method", out.method),
			zap.Float64("value", crisp))
	}
	return result, nil
}

func (s *System) evaluate(r rule, inputs map[string]float64) (float64, error) {
	c := implication.Consequent{Group: r.consequent.variable.group, Index: r.consequent.index}
	aggregate := r.consequent.variable.aggregate

	first := s.antecedent(r.antecedents[0], inputs)
	f1, err := implication.Firing(first)
	if err != nil {
		return 0, err
	}
	if len(r.antecedents) == 1 {
		return f1, implication.EvaluateRule1(first, c, r.method, aggregate)
	}

	second := s.antecedent(r.antecedents[1], inputs)
	f2, err := implication.Firing(second)
	if err != nil {
		return 0, err
	}
	return r.op.Combine(f1, f2), implication.EvaluateRule2(first, r.op, second, c, r.method, aggregate)
}

func (s *System) antecedent(c clause, inputs map[string]float64) implication.Antecedent {
	return implication.Antecedent{
		Group: c.variable.group,
		Index: c.index,
		Value: inputs[c.variable.name],
	}
}

func sortedKeys(m map[string]*variable) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
