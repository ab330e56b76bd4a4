// Package schema provides JSON Schema validation for ABI manifests: the
// manifest structure itself, and every embedded type schema against the
// draft-07 meta-schema.
package schema

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed all:schemas
var schemaFS embed.FS

// MetaSchemaURL is the meta-schema type schemas are checked against.
const MetaSchemaURL = "http://json-schema.org/draft-07/schema"

// SchemaError represents a single schema validation error.
type SchemaError struct {
	Path       string `json:"path"`
	Message    string `json:"message"`
	ParseError bool   `json:"-"` // true when the error is a JSON parse or read failure
}

func (e SchemaError) String() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// SchemaValidator validates ABI manifests against the embedded JSON schemas.
type SchemaValidator struct {
	manifest *jsonschema.Schema
	meta     *jsonschema.Schema
	printer  *message.Printer
}

// NewSchemaValidator creates a new validator with the embedded schemas loaded.
func NewSchemaValidator() (*SchemaValidator, error) {
	c := jsonschema.NewCompiler()

	// Resource URLs are relative to schemas/v1/ so that $ref paths like
	// "definitions/root.json" resolve against the embedded files.
	const schemaRoot = "schemas/v1/"
	err := fs.WalkDir(schemaFS, "schemas", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}

		data, err := schemaFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read embedded schema %s: %w", path, err)
		}

		schemaDoc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("parse embedded schema %s: %w", path, err)
		}

		id := strings.TrimPrefix(path, schemaRoot)
		if err := c.AddResource(id, schemaDoc); err != nil {
			return fmt.Errorf("add schema resource %s (id=%s): %w", path, id, err)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load embedded schemas: %w", err)
	}

	manifest, err := c.Compile("abi-manifest.json")
	if err != nil {
		return nil, fmt.Errorf("compile manifest schema: %w", err)
	}

	// The draft-07 meta-schema ships with the jsonschema module.
	meta, err := c.Compile(MetaSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile meta-schema: %w", err)
	}

	return &SchemaValidator{
		manifest: manifest,
		meta:     meta,
		printer:  message.NewPrinter(language.English),
	}, nil
}

// Load reads and decodes the manifest at docPath into the generic form the
// validator works on. Numbers are kept as json.Number.
func Load(docPath string) (any, []SchemaError) {
	data, err := os.ReadFile(docPath)
	if err != nil {
		return nil, []SchemaError{{Message: fmt.Sprintf("failed to read file: %v", err), ParseError: true}}
	}
	return Decode(data)
}

// Decode parses raw manifest bytes into the generic form.
func Decode(data []byte) (any, []SchemaError) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, []SchemaError{{Message: fmt.Sprintf("failed to parse JSON: %v", err), ParseError: true}}
	}
	return doc, nil
}

// Validate validates the manifest at the given path: first its structure,
// then, if that passes, every type schema it carries.
func (v *SchemaValidator) Validate(docPath string) (manifestErrs, typeSchemaErrs []SchemaError) {
	doc, errs := Load(docPath)
	if errs != nil {
		return errs, nil
	}
	if errs := v.ValidateDocument(doc); len(errs) > 0 {
		return errs, nil
	}
	return nil, v.ValidateTypeSchemas(doc)
}

// ValidateDocument validates an already-parsed manifest against the manifest schema.
func (v *SchemaValidator) ValidateDocument(doc any) []SchemaError {
	return v.validate(v.manifest, doc, nil)
}

// ValidateTypeSchemas checks every type schema, and the root schema if
// present, against the draft-07 meta-schema. Paths in the returned errors
// are JSON pointers into the whole manifest.
func (v *SchemaValidator) ValidateTypeSchemas(doc any) []SchemaError {
	var errors []SchemaError
	for _, loc := range typeSchemaLocations(doc) {
		errors = append(errors, v.validate(v.meta, loc.value, loc.pointer)...)
	}
	return errors
}

// ValidateSchema checks a single schema document against the meta-schema.
func (v *SchemaValidator) ValidateSchema(schemaDoc any) []SchemaError {
	return v.validate(v.meta, schemaDoc, nil)
}

func (v *SchemaValidator) validate(sch *jsonschema.Schema, doc any, prefix []string) []SchemaError {
	err := sch.Validate(doc)
	if err == nil {
		return nil
	}

	validationErr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []SchemaError{{Path: pointer(prefix), Message: err.Error()}}
	}

	return v.collectErrors(validationErr, prefix)
}

// collectErrors recursively collects all leaf validation errors from a ValidationError.
func (v *SchemaValidator) collectErrors(ve *jsonschema.ValidationError, prefix []string) []SchemaError {
	var errors []SchemaError

	if len(ve.Causes) == 0 {
		msg := ve.ErrorKind.LocalizedString(v.printer)
		if msg != "" {
			loc := append(append([]string{}, prefix...), ve.InstanceLocation...)
			errors = append(errors, SchemaError{
				Path:    pointer(loc),
				Message: msg,
			})
		}
	} else {
		for _, cause := range ve.Causes {
			errors = append(errors, v.collectErrors(cause, prefix)...)
		}
	}

	return errors
}

func pointer(loc []string) string {
	if len(loc) == 0 {
		return ""
	}
	return "/" + strings.Join(loc, "/")
}

type schemaLocation struct {
	pointer []string
	value   any
}

// typeSchemaLocations finds the type schemas of either manifest shape.
func typeSchemaLocations(doc any) []schemaLocation {
	root, ok := doc.(map[string]any)
	if !ok {
		return nil
	}
	var out []schemaLocation
	base := []string{}
	if abi, ok := root["abi"].(map[string]any); ok {
		base = []string{"abi"}
		if rs, ok := abi["root_schema"]; ok && rs != nil {
			out = append(out, schemaLocation{pointer: []string{"abi", "root_schema"}, value: rs})
		}
		root = abi
	}
	types, _ := root["types"].([]any)
	for i, t := range types {
		entry, ok := t.(map[string]any)
		if !ok {
			continue
		}
		s, ok := entry["schema"]
		if !ok {
			continue
		}
		loc := append(append([]string{}, base...), "types", strconv.Itoa(i), "schema")
		out = append(out, schemaLocation{pointer: loc, value: s})
	}
	return out
}
