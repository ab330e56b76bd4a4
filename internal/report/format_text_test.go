package report

import (
	"strings"
	"testing"

	"github.com/foundry-zero/abigen/internal/diag"
)

func TestFormatTextEmpty(t *testing.T) {
	r := NewReport("adder-metadata.json")
	r.SchemaValid = true
	out := FormatText(r)

	if !strings.Contains(out, "File: adder-metadata.json") {
		t.Error("output should contain file name")
	}
	if !strings.Contains(out, "0 errors, 0 warnings") {
		t.Errorf("expected zero summary, got:\n%s", out)
	}
	if strings.Contains(out, "wrote") {
		t.Errorf("no output line expected:\n%s", out)
	}
}

func TestFormatTextWritten(t *testing.T) {
	r := NewReport("adder-metadata.json")
	r.Output = "out/adder-metadata.go"
	r.Types = 1
	r.Methods = 1

	out := FormatText(r)
	if !strings.Contains(out, "wrote out/adder-metadata.go (1 types, 1 methods)") {
		t.Errorf("output line missing:\n%s", out)
	}
}

func TestFormatTextWithFindings(t *testing.T) {
	r := NewReport("bad.json")
	r.AddFinding(NewError(diag.UnknownTypeID, "unknown type id: type id 9", Location{
		File: "bad.json",
		Path: "$.methods[0].args[1]",
	}))
	r.AddFinding(NewWarning(diag.FormatFailure, "format failure", Location{
		File: "bad.json",
	}))

	out := FormatText(r)

	// Check errors appear before warnings
	errIdx := strings.Index(out, "UNKNOWN_TYPE_ID")
	warnIdx := strings.Index(out, "FORMAT_FAILURE")
	if errIdx < 0 || warnIdx < 0 {
		t.Fatalf("missing kinds in output:\n%s", out)
	}
	if errIdx > warnIdx {
		t.Error("errors should appear before warnings")
	}

	if !strings.Contains(out, "[UNKNOWN_TYPE_ID] error: unknown type id: type id 9 at $.methods[0].args[1]") {
		t.Errorf("error finding not formatted correctly:\n%s", out)
	}
	if !strings.Contains(out, "[FORMAT_FAILURE] warning: format failure\n") {
		t.Errorf("warning finding not formatted correctly:\n%s", out)
	}
	if !strings.Contains(out, "1 errors, 1 warnings") {
		t.Errorf("summary wrong:\n%s", out)
	}
}

func TestFormatTextPlainError(t *testing.T) {
	r := NewReport("test.json")
	r.AddFinding(Finding{Severity: SeverityError, Message: "boom", Location: Location{File: "test.json"}})

	out := FormatText(r)
	if !strings.Contains(out, "[-] error: boom") {
		t.Errorf("plain error not formatted correctly:\n%s", out)
	}
}
