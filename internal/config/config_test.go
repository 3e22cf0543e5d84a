package config

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"openfuzz/internal/implication"
	"openfuzz/internal/inference"
	"openfuzz/internal/model"
)

const fanTOML = `
name = "fan"

[[inputs]]
name = "temp"
start = 0.0
stop = 40.0
points = 101

  [[inputs.sets]]
  name = "cool"
  shape = "trapmf"
  params = [0.0, 0.0, 15.0, 25.0]

  [[inputs.sets]]
  name = "hot"
  shape = "gaussian"
  params = [40.0, 10.0]

[[outputs]]
name = "speed"
start = 0.0
stop = 100.0
points = 101
defuzzify = "centroid"

  [[outputs.sets]]
  name = "slow"
  shape = "triangular"
  params = [0.0, 0.0, 50.0]

  [[outputs.sets]]
  name = "fast"
  shape = "triangular"
  params = [50.0, 100.0, 100.0]

[[rules]]
if = [{ variable = "temp", set = "cool" }]
then = { variable = "speed", set = "slow" }

[[rules]]
if = [{ variable = "temp", set = "hot" }]
then = { variable = "speed", set = "fast" }
method = "larsen"
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadTOML(t *testing.T) {
	def, err := Load(writeFile(t, "fan.toml", fanTOML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if def.Name != "fan" || len(def.Inputs) != 1 || len(def.Outputs) != 1 || len(def.Rules) != 2 {
		t.Fatalf("unexpected definition: %+v", def)
	}
	if def.Rules[1].Method != "larsen" || def.Outputs[0].Defuzzify != "centroid" {
		t.Fatalf("unexpected rule or output settings: %+v", def)
	}

	s, err := inference.New(def)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	res, err := s.Infer(context.Background(), map[string]float64{"temp": 5})
	if err != nil {
		t.Fatalf("infer: %v", err)
	}
	if speed := res.Outputs["speed"]; speed <= 0 || speed >= 50 {
		t.Fatalf("expected a slow speed for a cool input, got=%g", speed)
	}
}

func TestRoundTripDemo(t *testing.T) {
	want := inference.TemperatureController()
	for _, name := range []string{"demo.toml", "demo.yaml", "demo.yml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			if err := Save(path, want); err != nil {
				t.Fatalf("save: %v", err)
			}
			got, err := Load(path)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("round trip mismatch:\n got=%+v\nwant=%+v", got, want)
			}
		})
	}
}

func TestRoundTripKeepsBehaviour(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.yaml")
	if err := Save(path, inference.TemperatureController()); err != nil {
		t.Fatalf("save: %v", err)
	}
	def, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	s, err := inference.New(def)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	res, err := s.Infer(context.Background(), map[string]float64{inference.DemoInput: 30})
	if err != nil {
		t.Fatalf("infer: %v", err)
	}
	if got := res.Outputs[inference.DemoOutput]; math.Abs(got-43.486867786402286) > 1e-6 {
		t.Fatalf("unexpected duty: %g", got)
	}
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	if _, err := Decode(strings.NewReader(fanTOML+"\ncolour = \"red\"\n"), FormatTOML); err == nil {
		t.Fatal("expected unknown toml field to fail")
	}
	yamlDoc := "name: fan\nflavour: spicy\n"
	if _, err := Decode(strings.NewReader(yamlDoc), FormatYAML); err == nil {
		t.Fatal("expected unknown yaml field to fail")
	}
}

func TestValidateErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(string) string
	}{
		{name: "missing name", mutate: func(s string) string { return strings.Replace(s, `name = "fan"`, `name = ""`, 1) }},
		{name: "inverted universe", mutate: func(s string) string { return strings.Replace(s, "stop = 40.0", "stop = -1.0", 1) }},
		{name: "too few points", mutate: func(s string) string { return strings.Replace(s, "points = 101", "points = 1", 1) }},
		{name: "unknown shape", mutate: func(s string) string { return strings.Replace(s, `"gaussian"`, `"sigmoid"`, 1) }},
		{name: "unknown set", mutate: func(s string) string { return strings.Replace(s, `set = "hot"`, `set = "scorching"`, 1) }},
		{name: "unknown method", mutate: func(s string) string { return strings.Replace(s, `"larsen"`, `"goedel"`, 1) }},
		{name: "bad operator", mutate: func(s string) string {
			return strings.Replace(s, `method = "larsen"`, `operator = "xor"`, 1)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tc.mutate(fanTOML)), FormatTOML)
			if !errors.Is(err, ErrInvalidDefinition) {
				t.Fatalf("expected ErrInvalidDefinition, got: %v", err)
			}
		})
	}
}

func TestValidateRejectsLarsenAcrossResolutions(t *testing.T) {
	def := model.SystemDefinition{
		Name: "mixed",
		Inputs: []model.VariableSpec{
			{Name: "temp", Start: 0, Stop: 10, Points: 11, Sets: []model.SetSpec{
				{Name: "hot", Shape: "triangular", Params: []float64{5, 10, 10}},
			}},
		},
		Outputs: []model.VariableSpec{
			{Name: "speed", Start: 0, Stop: 10, Points: 21, Sets: []model.SetSpec{
				{Name: "fast", Shape: "triangular", Params: []float64{5, 10, 10}},
			}},
		},
		Rules: []model.RuleSpec{{
			If:     []model.ClauseSpec{{Variable: "temp", Set: "hot"}},
			Then:   model.ClauseSpec{Variable: "speed", Set: "fast"},
			Method: "larsen",
		}},
	}
	err := Validate(def)
	if !errors.Is(err, ErrInvalidDefinition) || !errors.Is(err, implication.ErrDomainMismatch) {
		t.Fatalf("expected domain mismatch, got: %v", err)
	}
	if err := CheckStructure(def); err != nil {
		t.Fatalf("structure check should not compile rules: %v", err)
	}

	def.Rules[0].Method = ""
	if err := Validate(def); err != nil {
		t.Fatalf("mandani rule across resolutions: %v", err)
	}
}

func TestReadSkipsCompilation(t *testing.T) {
	doc := strings.Replace(fanTOML, `set = "hot"`, `set = "scorching"`, 1)
	path := writeFile(t, "fan.toml", doc)
	if _, err := Read(path); err != nil {
		t.Fatalf("read: %v", err)
	}
	if _, err := Load(path); !errors.Is(err, ErrInvalidDefinition) {
		t.Fatalf("expected load to compile and fail, got: %v", err)
	}
	bad := writeFile(t, "bad.toml", strings.Replace(fanTOML, `name = "fan"`, `name = ""`, 1))
	if _, err := Read(bad); !errors.Is(err, ErrInvalidDefinition) {
		t.Fatalf("expected structural failure, got: %v", err)
	}
}

func TestFormatOf(t *testing.T) {
	if f, err := FormatOf("a/b.TOML"); err != nil || f != FormatTOML {
		t.Fatalf("unexpected format: %v %v", f, err)
	}
	if _, err := FormatOf("system.json"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got: %v", err)
	}
}
