package inference

import "openfuzz/internal/model"

const (
	DemoInput  = "temperature"
	DemoOutput = "duty"
)

// TemperatureController maps a temperature in [5, 45] onto a duty cycle in
// [0, 100] with three Mandani rules and centroid reduction.
func TemperatureController() model.SystemDefinition {
	return model.SystemDefinition{
		Name: "temperature-controller",
		Inputs: []model.VariableSpec{{
			Name:   DemoInput,
			Start:  5,
			Stop:   45,
			Points: 10000,
			Sets: []model.SetSpec{
				{Name: "cold", Shape: "triangular", Params: []float64{5, 5, 28}},
				{Name: "warm", Shape: "triangular", Params: []float64{25, 28.5, 35}},
				{Name: "hot", Shape: "triangular", Params: []float64{30, 45, 45}},
			},
		}},
		Outputs: []model.VariableSpec{{
			Name:   DemoOutput,
			Start:  0,
			Stop:   100,
			Points: 10000,
			Sets: []model.SetSpec{
				{Name: "minimum", Shape: "triangular", Params: []float64{0, 0, 20}},
				{Name: "medium", Shape: "triangular", Params: []float64{20, 40, 70}},
				{Name: "maximum", Shape: "triangular", Params: []float64{50, 100, 100}},
			},
			Defuzzify: "coa",
		}},
		Rules: []model.RuleSpec{
			{If: []model.ClauseSpec{{Variable: DemoInput, Set: "cold"}}, Then: model.ClauseSpec{Variable: DemoOutput, Set: "minimum"}, Method: "mandani"},
			{If: []model.ClauseSpec{{Variable: DemoInput, Set: "warm"}}, Then: model.ClauseSpec{Variable: DemoOutput, Set: "medium"}, Method: "mandani"},
			{If: []model.ClauseSpec{{Variable: DemoInput, Set: "hot"}}, Then: model.ClauseSpec{Variable: DemoOutput, Set: "maximum"}, Method: "mandani"},
		},
	}
}
