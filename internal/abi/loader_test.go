package abi

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/foundry-zero/abigen/internal/diag"
)

func TestLoadManifest_Flat(t *testing.T) {
	m, err := LoadManifest(filepath.Join("..", "..", "examples", "adder", "adder-metadata.json"))
	if err != nil {
		t.Fatalf("LoadManifest returned error: %v", err)
	}
	if m.Shape != ShapeFlat {
		t.Errorf("expected flat shape, got %s", m.Shape)
	}
	if m.RootSchema != nil {
		t.Error("flat manifest should have no root schema")
	}
	if len(m.Types) != 1 {
		t.Fatalf("expected 1 type, got %d", len(m.Types))
	}

	pair := m.Types[0]
	if pair.ID != 0 || pair.Path != "$.types[0]" || pair.SchemaPath() != "$.types[0].schema" {
		t.Errorf("unexpected type entry %+v", pair)
	}
	if pair.Schema.Title != "Pair" || !pair.Schema.Accepts("array") {
		t.Errorf("unexpected Pair schema: %+v", pair.Schema)
	}
	if pair.Schema.Items == nil || pair.Schema.Items.Single == nil || pair.Schema.Items.Single.Format != "int64" {
		t.Errorf("Pair items should be int64 integers")
	}

	if len(m.Methods) != 1 {
		t.Fatalf("expected 1 method, got %d", len(m.Methods))
	}
	add := m.Methods[0]
	if add.Name != "add" || !add.IsView || add.Mutating() {
		t.Errorf("unexpected method %+v", add)
	}
	if len(add.Args) != 2 || add.Result == nil || *add.Result != 0 {
		t.Errorf("add should take two Pairs and return one")
	}
	if add.ArgPaths[1] != "$.methods[0].args[1]" || add.ResultPath != "$.methods[0].result" {
		t.Errorf("unexpected paths %v %q", add.ArgPaths, add.ResultPath)
	}
	if m.LookupType(0) != &m.Types[0] || m.LookupType(1) != nil {
		t.Error("LookupType returned the wrong entry")
	}
}

func TestLoadManifest_Root(t *testing.T) {
	m, err := LoadManifest(filepath.Join("..", "..", "examples", "ledger", "ledger.abi.json"))
	if err != nil {
		t.Fatalf("LoadManifest returned error: %v", err)
	}
	if m.Shape != ShapeRoot {
		t.Errorf("expected root shape, got %s", m.Shape)
	}
	if m.SchemaVersion != "0.4.0" {
		t.Errorf("expected schema version 0.4.0, got %q", m.SchemaVersion)
	}
	if m.Metadata.Name != "ledger" || m.Metadata.Version != "0.1.0" {
		t.Errorf("unexpected metadata %+v", m.Metadata)
	}
	if m.RootSchema == nil || m.RootSchemaPath != "$.abi.root_schema" {
		t.Fatal("expected root schema")
	}

	var names []string
	for _, d := range m.RootSchema.Definitions {
		names = append(names, d.Name)
	}
	if got := strings.Join(names, ","); got != "Account,U128,Status,Action,RenameArgs" {
		t.Errorf("definitions out of document order: %s", got)
	}

	byName := make(map[string]Method)
	for _, method := range m.Methods {
		byName[method.Name] = method
	}
	if !byName["new"].IsInit || !byName["new"].Mutating() {
		t.Error("new should be an initializer")
	}
	if byName["get_account"].Mutating() {
		t.Error("get_account is a view")
	}
	if byName["apply"].Result != nil {
		t.Error("apply returns nothing")
	}
	transfer := byName["transfer"]
	if len(transfer.Args) != 2 || transfer.Args[1] != 3 {
		t.Errorf("transfer args = %v", transfer.Args)
	}
	if !strings.HasSuffix(transfer.ArgPaths[1], ".params[1].type_id") || !strings.HasSuffix(transfer.ResultPath, ".result.type_id") {
		t.Errorf("unexpected paths %v %q", transfer.ArgPaths, transfer.ResultPath)
	}
}

func TestLoadManifest_NonexistentFile(t *testing.T) {
	_, err := LoadManifest("nonexistent.json")
	if !errors.Is(err, diag.MalformedManifest) {
		t.Errorf("expected MalformedManifest, got %v", err)
	}
}

func TestParseManifest_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind diag.Kind
		path string
	}{
		{
			name: "invalid json",
			src:  `{"types": [`,
			kind: diag.MalformedManifest,
			path: "$",
		},
		{
			name: "duplicate type id",
			src:  `{"types": [{"id": 1, "schema": {"type": "string"}}, {"id": 1, "schema": {"type": "boolean"}}], "methods": []}`,
			kind: diag.MalformedManifest,
			path: "$.types[1].id",
		},
		{
			name: "duplicate method name",
			src:  `{"types": [], "methods": [{"name": "a", "args": []}, {"name": "a", "args": []}]}`,
			kind: diag.MalformedManifest,
			path: "$.methods[1].name",
		},
		{
			name: "duplicate function name",
			src:  `{"abi": {"functions": [{"name": "f"}, {"name": "f"}], "types": []}}`,
			kind: diag.MalformedManifest,
			path: "$.abi.functions[1].name",
		},
		{
			name: "missing schema",
			src:  `{"types": [{"id": 0}], "methods": []}`,
			kind: diag.MalformedSchema,
			path: "$.types[0].schema",
		},
		{
			name: "schema of wrong kind",
			src:  `{"types": [{"id": 0, "schema": {"type": 7}}], "methods": []}`,
			kind: diag.MalformedSchema,
			path: "$.types[0].schema",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest([]byte(tt.src))
			if err == nil {
				t.Fatal("expected error")
			}
			if diag.KindOf(err) != tt.kind {
				t.Errorf("kind = %v, want %v (err: %v)", diag.KindOf(err), tt.kind, err)
			}
			var de *diag.Error
			if !errors.As(err, &de) {
				t.Fatalf("expected *diag.Error, got %T", err)
			}
			if de.Path != tt.path {
				t.Errorf("path = %q, want %q", de.Path, tt.path)
			}
		})
	}
}

func TestParseManifest_NullRootSchema(t *testing.T) {
	m, err := ParseManifest([]byte(`{"abi": {"functions": [], "types": [], "root_schema": null}}`))
	if err != nil {
		t.Fatal(err)
	}
	if m.RootSchema != nil || m.RootSchemaPath != "" {
		t.Error("null root_schema should be treated as absent")
	}
}

func TestSchema_Decode(t *testing.T) {
	var s Schema
	src := `{
		"title": "T",
		"type": ["object", "null"],
		"properties": {"z": {"type": "string"}, "a": true},
		"required": ["z"],
		"additionalProperties": false,
		"definitions": {"A": {"type": "integer"}},
		"$defs": {"B": {"type": "number"}},
		"items": [{"type": "string"}, {"type": "boolean"}],
		"x-unknown": 1
	}`
	if err := json.Unmarshal([]byte(src), &s); err != nil {
		t.Fatal(err)
	}
	if s.Properties[0].Name != "z" || s.Properties[1].Name != "a" {
		t.Error("properties should keep document order")
	}
	if s.Properties.Lookup("a").Bool == nil || !*s.Properties.Lookup("a").Bool {
		t.Error("boolean property schema not decoded")
	}
	if s.Properties.Lookup("missing") != nil {
		t.Error("Lookup of missing member should be nil")
	}
	if !s.IsRequired("z") || s.IsRequired("a") {
		t.Error("IsRequired mismatch")
	}
	if got := s.Type.NonNull(); len(got) != 1 || got[0] != "object" {
		t.Errorf("NonNull = %v", got)
	}
	if s.AdditionalProperties == nil || *s.AdditionalProperties.Bool {
		t.Error("additionalProperties false not decoded")
	}
	if len(s.Definitions) != 2 || s.Definitions[1].Name != "B" {
		t.Errorf("definitions and $defs should merge, got %d", len(s.Definitions))
	}
	if len(s.Items.Tuple) != 2 {
		t.Error("tuple items not decoded")
	}
	if s.IsNull() {
		t.Error("schema admits more than null")
	}
}

func TestSchema_Equal(t *testing.T) {
	decode := func(src string) *Schema {
		t.Helper()
		s := new(Schema)
		if err := json.Unmarshal([]byte(src), s); err != nil {
			t.Fatal(err)
		}
		return s
	}
	a := decode(`{"title": "P", "type": "object", "properties": {"x": {"type": "integer"}}}`)
	b := decode(`{"properties": {"x": {"type": "integer"}}, "type": "object", "title": "P", "x-extra": true}`)
	c := decode(`{"title": "P", "type": "object", "properties": {"x": {"type": "string"}}}`)

	if !a.Equal(b) {
		t.Error("keyword order and unknown keywords should not affect equality")
	}
	if a.Equal(c) {
		t.Error("different property types should not be equal")
	}
	if a.Equal(nil) {
		t.Error("non-nil schema equal to nil")
	}
}
