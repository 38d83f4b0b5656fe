// Package schemas holds the JSON Schemas for the run descriptor and the result
// artifact and validates documents against them.
package schemas

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Schema names.
const (
	Result     = "result.schema.json"
	Descriptor = "descriptor.schema.json"
)

//go:embed result.schema.json
var resultSchema []byte

//go:embed descriptor.schema.json
var descriptorSchema []byte

var embedded = map[string][]byte{
	Result:     resultSchema,
	Descriptor: descriptorSchema,
}

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Schema string
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s validation failed:", ve.Schema)
	for i, err := range ve.Errors {
		fmt.Fprintf(&sb, "\n  %d. %s: %s", i+1, err.Field, err.Message)
	}
	return sb.String()
}

// SchemaLoadError represents errors loading the schema or the document
type SchemaLoadError struct {
	Schema  string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("load schema %s: %s: %v", e.Schema, e.Message, e.Cause)
	}
	return fmt.Sprintf("load schema %s: %s", e.Schema, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

// Validate checks JSON data against one of the embedded schemas.
func Validate(schema string, data []byte) error {
	content, ok := embedded[schema]
	if !ok {
		return &SchemaLoadError{Schema: schema, Message: "unknown schema"}
	}

	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(content), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return &SchemaLoadError{
			Schema:  schema,
			Message: "validation failed during load",
			Cause:   err,
		}
	}
	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Schema: schema,
		Errors: make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}
	return validationErr
}
