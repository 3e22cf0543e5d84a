package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"openfuzz/internal/inference"
	"openfuzz/internal/model"
)

type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported config format")
	ErrInvalidDefinition = errors.New("invalid system definition")
)

var validate = validator.New()

// FormatOf derives the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Load reads, decodes and validates the definition at path.
func Load(path string) (model.SystemDefinition, error) {
	def, err := Read(path)
	if err != nil {
		return model.SystemDefinition{}, err
	}
	if err := Validate(def); err != nil {
		return model.SystemDefinition{}, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// Read decodes the definition at path and runs the structural checks only.
// Callers that compile the definition themselves use it instead of Load.
func Read(path string) (model.SystemDefinition, error) {
	format, err := FormatOf(path)
	if err != nil {
		return model.SystemDefinition{}, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return model.SystemDefinition{}, fmt.Errorf("read config: %w", err)
	}
	def, err := decode(bytes.NewReader(raw), format)
	if err != nil {
		return model.SystemDefinition{}, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// Decode rejects unknown fields in either format.
func Decode(r io.Reader, format Format) (model.SystemDefinition, error) {
	def, err := decode(r, format)
	if err != nil {
		return model.SystemDefinition{}, err
	}
	if err := Validate(def); err != nil {
		return model.SystemDefinition{}, err
	}
	return def, nil
}

func decode(r io.Reader, format Format) (model.SystemDefinition, error) {
	var def model.SystemDefinition
	switch format {
	case FormatTOML:
		if err := toml.NewDecoder(r).DisallowUnknownFields().Decode(&def); err != nil {
			return model.SystemDefinition{}, fmt.Errorf("decode toml: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil {
			return model.SystemDefinition{}, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		return model.SystemDefinition{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err := CheckStructure(def); err != nil {
		return model.SystemDefinition{}, err
	}
	return def, nil
}

// CheckStructure runs the struct tag checks without sampling any set.
func CheckStructure(def model.SystemDefinition) error {
	if err := validate.Struct(def); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}
	return nil
}

// Compile checks def and builds the runnable system. Unknown shapes, sets and
// methods and mismatched rule domains surface here as ErrInvalidDefinition.
func Compile(def model.SystemDefinition, opts ...inference.Option) (*inference.System, error) {
	if err := CheckStructure(def); err != nil {
		return nil, err
	}
	sys, err := inference.New(def, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}
	return sys, nil
}

func Validate(def model.SystemDefinition) error {
	_, err := Compile(def)
	return err
}

func Encode(w io.Writer, def model.SystemDefinition, format Format) error {
	switch format {
	case FormatTOML:
		return toml.NewEncoder(w).Encode(def)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(def); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// Save writes def to path in the format its extension names.
func Save(path string, def model.SystemDefinition) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := Encode(&buf, def, format); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
