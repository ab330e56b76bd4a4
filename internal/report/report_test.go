package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/foundry-zero/abigen/internal/diag"
)

func TestSeverityString(t *testing.T) {
	tests := []struct {
		sev  Severity
		want string
	}{
		{SeverityError, "error"},
		{SeverityWarning, "warning"},
		{Severity(99), "severity(99)"},
	}
	for _, tt := range tests {
		if got := tt.sev.String(); got != tt.want {
			t.Errorf("Severity(%d).String() = %q, want %q", tt.sev, got, tt.want)
		}
	}
}

func TestSeverityMarshalText(t *testing.T) {
	type wrapper struct {
		Sev Severity `json:"sev"`
	}
	w := wrapper{Sev: SeverityWarning}
	data, err := json.Marshal(w)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	want := `{"sev":"warning"}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}

	var back wrapper
	if err := json.Unmarshal([]byte(`{"sev":"fatal"}`), &back); err == nil {
		t.Error("expected error for unknown severity")
	}
}

func TestNewFinding(t *testing.T) {
	loc := Location{File: "adder.json", Path: "$.types[0].schema"}
	f := NewFinding(diag.MissingTypeName, SeverityError, "object has no title", loc)

	if f.Kind != "MISSING_TYPE_NAME" {
		t.Errorf("Kind = %q, want MISSING_TYPE_NAME", f.Kind)
	}
	if f.Severity != SeverityError {
		t.Errorf("Severity = %v, want SeverityError", f.Severity)
	}
	if f.Message != "object has no title" {
		t.Errorf("Message = %q, want %q", f.Message, "object has no title")
	}
	if f.Location != loc {
		t.Errorf("Location = %+v, want %+v", f.Location, loc)
	}
}

func TestNewErrorAndNewWarning(t *testing.T) {
	loc := Location{File: "f.json", Path: "$.methods[0]"}
	e := NewError(diag.UnknownTypeID, "type id 3", loc)
	if e.Severity != SeverityError {
		t.Errorf("NewError severity = %v, want SeverityError", e.Severity)
	}

	w := NewWarning(diag.FormatFailure, "gofmt failed", loc)
	if w.Severity != SeverityWarning {
		t.Errorf("NewWarning severity = %v, want SeverityWarning", w.Severity)
	}
}

func TestFromError(t *testing.T) {
	inner := diag.New(diag.UnknownTypeID, "$.methods[0].result", "type id 7")
	err := fmt.Errorf("synthesize: %w",
		diag.Wrap(diag.UnresolvedReturnType, "$.methods[0].result", inner, "method %q", "get"))

	f := FromError("a.json", SeverityError, err)
	if f.Kind != string(diag.UnresolvedReturnType) {
		t.Errorf("Kind = %q", f.Kind)
	}
	if f.Location.Path != "$.methods[0].result" || f.Location.File != "a.json" {
		t.Errorf("Location = %+v", f.Location)
	}
	want := `unresolved return type: method "get": $.methods[0].result: unknown type id: type id 7`
	if f.Message != want {
		t.Errorf("Message = %q, want %q", f.Message, want)
	}

	plain := FromError("a.json", SeverityWarning, errors.New("boom"))
	if plain.Kind != "" || plain.Message != "boom" || plain.Severity != SeverityWarning {
		t.Errorf("plain finding = %+v", plain)
	}
}

func TestReportAddFinding(t *testing.T) {
	r := NewReport("ledger.abi.json")

	if r.HasErrors() {
		t.Error("new report should not have errors")
	}
	if r.HasWarnings() {
		t.Error("new report should not have warnings")
	}

	loc := Location{File: "ledger.abi.json", Path: "$"}
	r.AddFinding(NewError(diag.MalformedManifest, "bad", loc))
	r.AddError(diag.New(diag.MalformedSchema, "$.abi.types[0].schema/type", "bad type"))
	r.AddWarning(diag.New(diag.FormatFailure, "", "gofmt failed"))

	if r.Summary.ErrorCount != 2 {
		t.Errorf("ErrorCount = %d, want 2", r.Summary.ErrorCount)
	}
	if r.Summary.WarningCount != 1 {
		t.Errorf("WarningCount = %d, want 1", r.Summary.WarningCount)
	}
	if !r.HasErrors() {
		t.Error("report should have errors")
	}
	if !r.HasWarnings() {
		t.Error("report should have warnings")
	}
	if len(r.Errors) != 2 {
		t.Errorf("len(Errors) = %d, want 2", len(r.Errors))
	}
	if got := r.Errors[1].Location.File; got != "ledger.abi.json" {
		t.Errorf("AddError location file = %q", got)
	}
	if len(r.Warnings) != 1 {
		t.Errorf("len(Warnings) = %d, want 1", len(r.Warnings))
	}
}

func TestTotals(t *testing.T) {
	a := NewReport("a.json")
	a.AddError(errors.New("x"))
	b := NewReport("b.json")
	b.AddError(errors.New("y"))
	b.AddWarning(errors.New("z"))

	got := Totals([]*Report{a, b})
	if got.ErrorCount != 2 || got.WarningCount != 1 {
		t.Errorf("Totals = %+v", got)
	}
}

func TestNewReportEmptySlices(t *testing.T) {
	r := NewReport("x.json")
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	// Errors and Warnings should be [] not null in JSON
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	for _, key := range []string{"errors", "warnings"} {
		v, ok := m[key]
		if !ok {
			t.Errorf("missing key %q in JSON", key)
			continue
		}
		arr, ok := v.([]any)
		if !ok {
			t.Errorf("key %q is not an array", key)
			continue
		}
		if len(arr) != 0 {
			t.Errorf("key %q has %d items, want 0", key, len(arr))
		}
	}
	if _, ok := m["output"]; ok {
		t.Error("empty output should be omitted")
	}
}

func TestLocationOmitsEmptyPath(t *testing.T) {
	loc := Location{File: "f.json"}
	data, err := json.Marshal(loc)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if _, ok := m["path"]; ok {
		t.Error("empty path should be omitted from JSON")
	}
}
