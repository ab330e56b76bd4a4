package abi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// Schema is the JSON-Schema subset an ABI producer emits. Keywords outside
// the subset are ignored on decode.
type Schema struct {
	// Bool is set for the boolean schemas true and false.
	Bool *bool

	Ref                  string
	Title                string
	Description          string
	Type                 TypeSet
	Format               string
	Items                *Items
	Properties           Properties
	Required             []string
	AdditionalProperties *Schema
	Enum                 []json.RawMessage
	Const                json.RawMessage
	OneOf                []*Schema
	AnyOf                []*Schema
	AllOf                []*Schema
	Definitions          Properties
	Nullable             bool
}

// schemaJSON mirrors Schema for the object form. Definitions from both
// "definitions" and "$defs" are merged by Schema.UnmarshalJSON.
type schemaJSON struct {
	Ref                  string            `json:"$ref,omitempty"`
	Title                string            `json:"title,omitempty"`
	Description          string            `json:"description,omitempty"`
	Type                 TypeSet           `json:"type,omitempty"`
	Format               string            `json:"format,omitempty"`
	Items                *Items            `json:"items,omitempty"`
	Properties           Properties        `json:"properties,omitempty"`
	Required             []string          `json:"required,omitempty"`
	AdditionalProperties *Schema           `json:"additionalProperties,omitempty"`
	Enum                 []json.RawMessage `json:"enum,omitempty"`
	Const                json.RawMessage   `json:"const,omitempty"`
	OneOf                []*Schema         `json:"oneOf,omitempty"`
	AnyOf                []*Schema         `json:"anyOf,omitempty"`
	AllOf                []*Schema         `json:"allOf,omitempty"`
	Definitions          Properties        `json:"definitions,omitempty"`
	Defs                 Properties        `json:"$defs,omitempty"`
	Nullable             bool              `json:"nullable,omitempty"`
}

// UnmarshalJSON decodes either a boolean schema or a schema object.
func (s *Schema) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("true")):
		*s = Schema{Bool: boolPtr(true)}
		return nil
	case bytes.Equal(data, []byte("false")):
		*s = Schema{Bool: boolPtr(false)}
		return nil
	}
	var raw schemaJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Schema{
		Ref:                  raw.Ref,
		Title:                raw.Title,
		Description:          raw.Description,
		Type:                 raw.Type,
		Format:               raw.Format,
		Items:                raw.Items,
		Properties:           raw.Properties,
		Required:             raw.Required,
		AdditionalProperties: raw.AdditionalProperties,
		Enum:                 raw.Enum,
		Const:                raw.Const,
		OneOf:                raw.OneOf,
		AnyOf:                raw.AnyOf,
		AllOf:                raw.AllOf,
		Definitions:          append(raw.Definitions, raw.Defs...),
		Nullable:             raw.Nullable,
	}
	return nil
}

// MarshalJSON produces a canonical encoding: keyword order is fixed and
// property order is preserved, so two equal schemas encode identically.
func (s *Schema) MarshalJSON() ([]byte, error) {
	if s.Bool != nil {
		return json.Marshal(*s.Bool)
	}
	return json.Marshal(schemaJSON{
		Ref:                  s.Ref,
		Title:                s.Title,
		Description:          s.Description,
		Type:                 s.Type,
		Format:               s.Format,
		Items:                s.Items,
		Properties:           s.Properties,
		Required:             s.Required,
		AdditionalProperties: s.AdditionalProperties,
		Enum:                 s.Enum,
		Const:                s.Const,
		OneOf:                s.OneOf,
		AnyOf:                s.AnyOf,
		AllOf:                s.AllOf,
		Definitions:          s.Definitions,
		Nullable:             s.Nullable,
	})
}

// Equal reports whether two schemas have the same canonical encoding.
func (s *Schema) Equal(o *Schema) bool {
	if s == nil || o == nil {
		return s == o
	}
	a, errA := json.Marshal(s)
	b, errB := json.Marshal(o)
	return errA == nil && errB == nil && bytes.Equal(a, b)
}

// IsRequired reports whether the named property is listed in required.
func (s *Schema) IsRequired(name string) bool {
	return slices.Contains(s.Required, name)
}

// Accepts reports whether the schema's type set contains t.
func (s *Schema) Accepts(t string) bool {
	return slices.Contains(s.Type, t)
}

// IsNull reports whether the schema only admits null.
func (s *Schema) IsNull() bool {
	return len(s.Type) == 1 && s.Type[0] == "null"
}

// TypeSet is the "type" keyword, which may be a single name or a list.
type TypeSet []string

// UnmarshalJSON accepts "string" or ["string", "null"].
func (t *TypeSet) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*t = TypeSet{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("type: expected string or array of strings")
	}
	*t = many
	return nil
}

// MarshalJSON encodes a single type as a string.
func (t TypeSet) MarshalJSON() ([]byte, error) {
	if len(t) == 1 {
		return json.Marshal(t[0])
	}
	return json.Marshal([]string(t))
}

// NonNull returns the type names other than "null".
func (t TypeSet) NonNull() []string {
	out := make([]string, 0, len(t))
	for _, name := range t {
		if name != "null" {
			out = append(out, name)
		}
	}
	return out
}

// Items is the "items" keyword: one schema for every element, or a tuple.
type Items struct {
	Single *Schema
	Tuple  []*Schema
}

// UnmarshalJSON decodes a schema or an array of schemas.
func (it *Items) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, &it.Tuple)
	}
	it.Single = new(Schema)
	return json.Unmarshal(data, it.Single)
}

// MarshalJSON encodes the form that was decoded.
func (it *Items) MarshalJSON() ([]byte, error) {
	if it.Tuple != nil {
		return json.Marshal(it.Tuple)
	}
	return json.Marshal(it.Single)
}

// Property is a named schema inside "properties" or "definitions".
type Property struct {
	Name   string
	Schema *Schema
}

// Properties keeps object members in document order.
type Properties []Property

// UnmarshalJSON decodes a JSON object while preserving member order.
func (p *Properties) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}
	var out Properties
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected member name, got %v", tok)
		}
		s := new(Schema)
		if err := dec.Decode(s); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		out = append(out, Property{Name: name, Schema: s})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*p = out
	return nil
}

// MarshalJSON encodes the members in order.
func (p Properties) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, prop := range p {
		if i > 0 {
			b.WriteByte(',')
		}
		name, err := json.Marshal(prop.Name)
		if err != nil {
			return nil, err
		}
		b.Write(name)
		b.WriteByte(':')
		value, err := json.Marshal(prop.Schema)
		if err != nil {
			return nil, err
		}
		b.Write(value)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// Lookup returns the schema with the given name, or nil.
func (p Properties) Lookup(name string) *Schema {
	for _, prop := range p {
		if prop.Name == name {
			return prop.Schema
		}
	}
	return nil
}

func boolPtr(b bool) *bool { return &b }
