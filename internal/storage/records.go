package storage

import (
	"time"

	"github.com/google/uuid"

	"openfuzz/internal/model"
)

func NewDefinitionRecord(def model.SystemDefinition, now time.Time) model.DefinitionRecord {
	return model.DefinitionRecord{
		VersionedRecord: CurrentVersion(),
		Name:            def.Name,
		SavedAtUTC:      now.UTC().Format(time.RFC3339Nano),
		Definition:      def,
	}
}

// NewInferenceRecord assigns a random id to one inference cycle of system.
func NewInferenceRecord(system string, result model.InferenceResult, now time.Time) model.InferenceRecord {
	return model.InferenceRecord{
		VersionedRecord: CurrentVersion(),
		ID:              uuid.NewString(),
		System:          system,
		CreatedAtUTC:    now.UTC().Format(time.RFC3339Nano),
		Result:          result,
	}
}

func cloneResult(in model.InferenceResult) model.InferenceResult {
	out := model.InferenceResult{
		Firings: append([]model.RuleFiring(nil), in.Firings...),
	}
	if in.Inputs != nil {
		out.Inputs = make(map[string]float64, len(in.Inputs))
		for k, v := range in.Inputs {
			out.Inputs[k] = v
		}
	}
	if in.Outputs != nil {
		out.Outputs = make(map[string]float64, len(in.Outputs))
		for k, v := range in.Outputs {
			out.Outputs[k] = v
		}
	}
	return out
}
