// Package schemas validates structured model output against the embedded JSON Schemas
// and the struct rules of the result types.
package schemas

import (
	"fmt"
	"strings"
	"sync"

	schemafiles "github.com/jonathan/campaign-briefing/schemas"
	"github.com/xeipuuv/gojsonschema"
)

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

// SchemaLoadError represents errors loading or parsing the schema itself
type SchemaLoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Path, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// Issues renders the field errors on one line, "field: message; field: message".
func (ve *ValidationError) Issues() string {
	parts := make([]string, 0, len(ve.Errors))
	for _, err := range ve.Errors {
		parts = append(parts, err.Field+": "+err.Message)
	}
	return strings.Join(parts, "; ")
}

// Fields returns the distinct field paths in first-seen order.
func (ve *ValidationError) Fields() []string {
	seen := make(map[string]bool, len(ve.Errors))
	fields := make([]string, 0, len(ve.Errors))
	for _, err := range ve.Errors {
		if seen[err.Field] {
			continue
		}
		seen[err.Field] = true
		fields = append(fields, err.Field)
	}
	return fields
}

var (
	embeddedOnce    sync.Once
	embeddedSchemas map[string]*gojsonschema.Schema
	embeddedErrs    map[string]error
)

// embeddedSchema returns the compiled form of an embedded schema. Every
// embedded schema is compiled once, on first use.
func embeddedSchema(name string) (*gojsonschema.Schema, error) {
	embeddedOnce.Do(func() {
		embeddedSchemas = make(map[string]*gojsonschema.Schema, len(schemafiles.Names))
		embeddedErrs = make(map[string]error)
		for _, n := range schemafiles.Names {
			compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemafiles.MustLoad(n)))
			if err != nil {
				embeddedErrs[n] = err
				continue
			}
			embeddedSchemas[n] = compiled
		}
	})

	if err, ok := embeddedErrs[name]; ok {
		return nil, &SchemaLoadError{Path: name, Message: "schema does not compile", Cause: err}
	}
	compiled, ok := embeddedSchemas[name]
	if !ok {
		return nil, &SchemaLoadError{Path: name, Message: "embedded schema missing"}
	}
	return compiled, nil
}

// ValidateEmbedded validates JSON content against one of the embedded schemas.
func ValidateEmbedded(name, jsonContent string) error {
	schema, err := embeddedSchema(name)
	if err != nil {
		return err
	}

	result, err := schema.Validate(gojsonschema.NewStringLoader(jsonContent))
	if err != nil {
		return &SchemaLoadError{Path: name, Message: "document could not be loaded", Cause: err}
	}
	if result.Valid() {
		return nil
	}
	return toValidationError(result)
}

func toValidationError(result *gojsonschema.Result) *ValidationError {
	validationErr := &ValidationError{
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
