package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/gilliangoud/RRCLiveLaps/errors"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var schemaJSON []byte

var loadSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
})

// Schema returns the JSON schema configuration documents are checked against
func Schema() []byte {
	return schemaJSON
}

// ValidateDocument checks a raw JSON configuration document against the schema.
// Unknown keys are rejected.
func ValidateDocument(data []byte) error {
	schema, err := loadSchema()
	if err != nil {
		return errors.WrapFatal(err, "config", "ValidateDocument", "compile schema")
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return errors.WrapInvalid(fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err),
			"config", "ValidateDocument", "decode document")
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return errors.WrapInvalid(
		fmt.Errorf("%w: %s", errors.ErrInvalidConfig, strings.Join(problems, "; ")),
		"config", "ValidateDocument", "schema validation")
}

// ValidateSchema checks a decoded configuration against the schema
func ValidateSchema(cfg *Config) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "config", "ValidateSchema", "encode configuration")
	}
	return ValidateDocument(data)
}
