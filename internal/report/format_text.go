package report

import (
	"fmt"
	"strings"
)

// FormatText returns a human-readable string representation of the report.
// Each finding is on its own line with kind, severity, message, and location.
// A summary line is appended at the end.
func FormatText(r *Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "File: %s\n", r.File)
	if r.Output != "" {
		fmt.Fprintf(&b, "  wrote %s (%d types, %d methods)\n", r.Output, r.Types, r.Methods)
	}

	for _, f := range r.Errors {
		writeFinding(&b, f)
	}
	for _, f := range r.Warnings {
		writeFinding(&b, f)
	}

	fmt.Fprintf(&b, "\n%d errors, %d warnings\n", r.Summary.ErrorCount, r.Summary.WarningCount)
	return b.String()
}

func writeFinding(b *strings.Builder, f Finding) {
	kind := f.Kind
	if kind == "" {
		kind = "-"
	}
	fmt.Fprintf(b, "  [%s] %s: %s", kind, f.Severity, f.Message)
	if f.Location.Path != "" {
		fmt.Fprintf(b, " at %s", f.Location.Path)
	}
	b.WriteString("\n")
}
