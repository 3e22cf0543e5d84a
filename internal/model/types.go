package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// SystemDefinition describes a complete rule base: linguistic variables, their
// sets and the rules connecting them.
type SystemDefinition struct {
	Name    string         `json:"name" toml:"name" yaml:"name" validate:"required"`
	Inputs  []VariableSpec `json:"inputs" toml:"inputs" yaml:"inputs" validate:"required,min=1,dive"`
	Outputs []VariableSpec `json:"outputs" toml:"outputs" yaml:"outputs" validate:"required,min=1,dive"`
	Rules   []RuleSpec     `json:"rules" toml:"rules" yaml:"rules" validate:"required,min=1,dive"`
}

// VariableSpec is one linguistic variable over its own universe of discourse.
type VariableSpec struct {
	Name   string    `json:"name" toml:"name" yaml:"name" validate:"required"`
	Start  float64   `json:"start" toml:"start" yaml:"start"`
	Stop   float64   `json:"stop" toml:"stop" yaml:"stop" validate:"gtfield=Start"`
	Points int       `json:"points" toml:"points" yaml:"points" validate:"gte=2"`
	Sets   []SetSpec `json:"sets" toml:"sets" yaml:"sets" validate:"required,min=1,dive"`
	// Defuzzify names the reduction method of an output variable.
	Defuzzify string `json:"defuzzify,omitempty" toml:"defuzzify,omitempty" yaml:"defuzzify,omitempty"`
}

type SetSpec struct {
	Name   string    `json:"name" toml:"name" yaml:"name" validate:"required"`
	Shape  string    `json:"shape" toml:"shape" yaml:"shape" validate:"required"`
	Params []float64 `json:"params" toml:"params" yaml:"params" validate:"required,min=2,max=4"`
}

// ClauseSpec reads "Variable is Set".
type ClauseSpec struct {
	Variable string `json:"variable" toml:"variable" yaml:"variable" validate:"required"`
	Set      string `json:"set" toml:"set" yaml:"set" validate:"required"`
}

type RuleSpec struct {
	If       []ClauseSpec `json:"if" toml:"if" yaml:"if" validate:"required,min=1,max=2,dive"`
	Operator string       `json:"operator,omitempty" toml:"operator,omitempty" yaml:"operator,omitempty" validate:"omitempty,oneof=and or AND OR min max"`
	Then     ClauseSpec   `json:"then" toml:"then" yaml:"then"`
	Method   string       `json:"method,omitempty" toml:"method,omitempty" yaml:"method,omitempty"`
}

// RuleFiring reports the strength one rule fired with during an inference cycle.
type RuleFiring struct {
	Rule   int     `json:"rule"`
	Output string  `json:"output"`
	Firing float64 `json:"firing"`
}

type InferenceResult struct {
	Inputs  map[string]float64 `json:"inputs"`
	Outputs map[string]float64 `json:"outputs"`
	Firings []RuleFiring       `json:"firings,omitempty"`
}

// DefinitionRecord is a stored SystemDefinition.
type DefinitionRecord struct {
	VersionedRecord
	Name       string           `json:"name"`
	SavedAtUTC string           `json:"saved_at_utc"`
	Definition SystemDefinition `json:"definition"`
}

// InferenceRecord is one persisted inference cycle.
type InferenceRecord struct {
	VersionedRecord
	ID           string          `json:"id"`
	System       string          `json:"system"`
	CreatedAtUTC string          `json:"created_at_utc"`
	Result       InferenceResult `json:"result"`
}
