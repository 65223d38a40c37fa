// Package schemas checks cached collection documents against the JSON
// Schemas embedded in the top-level schemas directory. A document key maps
// to "<key>.schema.json"; keys without a schema are not checked.
package schemas

import (
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/jonathan/hrms/schemas"
	"github.com/xeipuuv/gojsonschema"
)

// SchemaError lists the violations found in one document.
type SchemaError struct {
	Document string
	Errors   []FieldError
}

// FieldError is a single violation. Field is the gojsonschema path, for
// example "0.mobile".
type FieldError struct {
	Field   string
	Message string
}

func (e *SchemaError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "validation of %s failed:", e.Document)
	for i, fe := range e.Errors {
		fmt.Fprintf(&sb, "\n  %d. %s: %s", i+1, fe.Field, fe.Message)
	}
	return sb.String()
}

// SchemaLoadError means an embedded schema is missing or does not compile.
type SchemaLoadError struct {
	Path  string
	Cause error
}

func (e *SchemaLoadError) Error() string {
	return fmt.Sprintf("failed to load schema %s: %v", e.Path, e.Cause)
}

func (e *SchemaLoadError) Unwrap() error { return e.Cause }

var compiled sync.Map // key -> *gojsonschema.Schema

func fileName(key string) string { return key + ".schema.json" }

// Has reports whether an embedded schema exists for the document key.
func Has(key string) bool {
	_, err := fs.Stat(schemas.FS, fileName(key))
	return err == nil
}

// Schema returns the compiled schema for a document key. Compiled schemas
// are kept for the life of the process.
func Schema(key string) (*gojsonschema.Schema, error) {
	if s, ok := compiled.Load(key); ok {
		return s.(*gojsonschema.Schema), nil
	}
	data, err := fs.ReadFile(schemas.FS, fileName(key))
	if err != nil {
		return nil, &SchemaLoadError{Path: fileName(key), Cause: err}
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, &SchemaLoadError{Path: fileName(key), Cause: err}
	}
	actual, _ := compiled.LoadOrStore(key, s)
	return actual.(*gojsonschema.Schema), nil
}

// ValidateDocument checks doc against the schema named after key. A doc
// that is not JSON at all is reported as a root violation.
func ValidateDocument(key string, doc []byte) error {
	if !Has(key) {
		return nil
	}
	s, err := Schema(key)
	if err != nil {
		return err
	}

	result, err := s.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return &SchemaError{Document: key, Errors: []FieldError{{Field: "(root)", Message: err.Error()}}}
	}
	if result.Valid() {
		return nil
	}

	out := &SchemaError{Document: key, Errors: make([]FieldError, 0, len(result.Errors()))}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		out.Errors = append(out.Errors, FieldError{Field: field, Message: desc.Description()})
	}
	return out
}
