package storage

import (
	"context"

	"openfuzz/internal/model"
)

// Store persists system definitions and the inference cycles run against them.
type Store interface {
	Init(ctx context.Context) error
	SaveDefinition(ctx context.Context, record model.DefinitionRecord) error
	GetDefinition(ctx context.Context, name string) (model.DefinitionRecord, bool, error)
	ListDefinitions(ctx context.Context) ([]string, error)
	SaveInference(ctx context.Context, record model.InferenceRecord) error
	GetInference(ctx context.Context, id string) (model.InferenceRecord, bool, error)
	// ListInferences returns up to limit records, newest first. A limit <= 0
	// returns every record.
	ListInferences(ctx context.Context, limit int) ([]model.InferenceRecord, error)
}
