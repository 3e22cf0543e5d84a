package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"openfuzz/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// CurrentVersion stamps new records.
func CurrentVersion() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func EncodeDefinition(record model.DefinitionRecord) ([]byte, error) {
	return json.Marshal(record)
}

func DecodeDefinition(data []byte) (model.DefinitionRecord, error) {
	var record model.DefinitionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.DefinitionRecord{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return model.DefinitionRecord{}, err
	}
	return record, nil
}

func EncodeInference(record model.InferenceRecord) ([]byte, error) {
	return json.Marshal(record)
}

func DecodeInference(data []byte) (model.InferenceRecord, error) {
	var record model.InferenceRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.InferenceRecord{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return model.InferenceRecord{}, err
	}
	return record, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return fmt.Errorf("%w: schema=%d codec=%d", ErrVersionMismatch, v.SchemaVersion, v.CodecVersion)
	}
	return nil
}
