package report

import (
	"encoding/json"
	"testing"

	"github.com/foundry-zero/abigen/internal/diag"
)

func TestFormatJSONEmpty(t *testing.T) {
	r := NewReport("adder-metadata.json")
	r.SchemaValid = true

	data, err := FormatJSON(r)
	if err != nil {
		t.Fatalf("FormatJSON: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if m["file"] != "adder-metadata.json" {
		t.Errorf("file = %v", m["file"])
	}
	if m["schema_valid"] != true {
		t.Errorf("schema_valid = %v", m["schema_valid"])
	}

	// errors and warnings should be empty arrays, not null
	for _, key := range []string{"errors", "warnings"} {
		arr, ok := m[key].([]any)
		if !ok {
			t.Errorf("%q should be an array", key)
			continue
		}
		if len(arr) != 0 {
			t.Errorf("%q should be empty", key)
		}
	}

	summary, ok := m["summary"].(map[string]any)
	if !ok {
		t.Fatal("summary missing or wrong type")
	}
	if summary["error_count"] != float64(0) {
		t.Errorf("error_count = %v", summary["error_count"])
	}
	if summary["warning_count"] != float64(0) {
		t.Errorf("warning_count = %v", summary["warning_count"])
	}
}

func TestFormatJSONWithFindings(t *testing.T) {
	r := NewReport("bad.json")
	r.AddFinding(NewError(diag.MissingTypeName, "object with properties has no title", Location{
		File: "bad.json",
		Path: "$.types[0].schema",
	}))
	r.AddFinding(NewWarning(diag.FormatFailure, "format failure", Location{File: "bad.json"}))

	data, err := FormatJSON(r)
	if err != nil {
		t.Fatalf("FormatJSON: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	errors, ok := m["errors"].([]any)
	if !ok || len(errors) != 1 {
		t.Fatalf("errors should have 1 item, got %v", m["errors"])
	}
	errObj := errors[0].(map[string]any)
	if errObj["kind"] != "MISSING_TYPE_NAME" {
		t.Errorf("error kind = %v", errObj["kind"])
	}
	if errObj["severity"] != "error" {
		t.Errorf("error severity = %v", errObj["severity"])
	}
	loc := errObj["location"].(map[string]any)
	if loc["path"] != "$.types[0].schema" {
		t.Errorf("error path = %v", loc["path"])
	}

	warnings, ok := m["warnings"].([]any)
	if !ok || len(warnings) != 1 {
		t.Fatalf("warnings should have 1 item, got %v", m["warnings"])
	}
	warnObj := warnings[0].(map[string]any)
	if warnObj["severity"] != "warning" {
		t.Errorf("warning severity = %v", warnObj["severity"])
	}

	summary := m["summary"].(map[string]any)
	if summary["error_count"] != float64(1) {
		t.Errorf("error_count = %v", summary["error_count"])
	}
	if summary["warning_count"] != float64(1) {
		t.Errorf("warning_count = %v", summary["warning_count"])
	}
}

func TestFormatJSONRoundTrip(t *testing.T) {
	r := NewReport("test.json")
	r.SchemaValid = true
	r.Output = "out/test.go"
	r.AddFinding(NewError(diag.UnresolvedReference, "bad ref", Location{File: "test.json", Path: "$.types[1].schema"}))

	data, err := FormatJSON(r)
	if err != nil {
		t.Fatalf("FormatJSON: %v", err)
	}

	var r2 Report
	if err := json.Unmarshal(data, &r2); err != nil {
		t.Fatalf("round-trip unmarshal: %v", err)
	}
	if r2.File != r.File || r2.Output != r.Output {
		t.Errorf("mismatch: %+v vs %+v", r2, r)
	}
	if len(r2.Errors) != 1 {
		t.Errorf("errors len = %d, want 1", len(r2.Errors))
	}
}

func TestFormatJSONRequiredKeys(t *testing.T) {
	r := NewReport("x.json")
	data, err := FormatJSON(r)
	if err != nil {
		t.Fatalf("FormatJSON: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	required := []string{"file", "schema_valid", "types", "methods", "errors", "warnings", "summary"}
	for _, key := range required {
		if _, ok := m[key]; !ok {
			t.Errorf("missing required key %q", key)
		}
	}
}

func TestFormatJSONAll(t *testing.T) {
	data, err := FormatJSONAll(nil)
	if err != nil {
		t.Fatalf("FormatJSONAll: %v", err)
	}
	if string(data) != "[]" {
		t.Errorf("empty list = %s, want []", data)
	}

	data, err = FormatJSONAll([]*Report{NewReport("a.json"), NewReport("b.json")})
	if err != nil {
		t.Fatalf("FormatJSONAll: %v", err)
	}
	var list []map[string]any
	if err := json.Unmarshal(data, &list); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(list) != 2 || list[1]["file"] != "b.json" {
		t.Errorf("list = %v", list)
	}
}
