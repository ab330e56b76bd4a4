// Package report defines the per-manifest outcome of a generation run: the
// errors and warnings found, and what was written.
package report

import (
	"errors"
	"fmt"

	"github.com/foundry-zero/abigen/internal/diag"
)

// Severity indicates whether a finding is an error or a warning.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// String returns "error" or "warning".
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler so JSON output uses the string form.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for JSON round-tripping.
func (s *Severity) UnmarshalText(text []byte) error {
	switch string(text) {
	case "error":
		*s = SeverityError
	case "warning":
		*s = SeverityWarning
	default:
		return fmt.Errorf("unknown severity %q", text)
	}
	return nil
}

// Location identifies where in a manifest a finding occurred.
type Location struct {
	File string `json:"file"`
	Path string `json:"path,omitempty"` // JSON path like "$.types[0].schema/properties/a"
}

// Finding represents a single error or warning.
type Finding struct {
	Kind     string   `json:"kind"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Location Location `json:"location"`
}

// NewFinding creates a Finding with the given parameters.
func NewFinding(kind diag.Kind, severity Severity, message string, loc Location) Finding {
	return Finding{
		Kind:     string(kind),
		Severity: severity,
		Message:  message,
		Location: loc,
	}
}

// NewError creates an error-severity Finding.
func NewError(kind diag.Kind, message string, loc Location) Finding {
	return NewFinding(kind, SeverityError, message, loc)
}

// NewWarning creates a warning-severity Finding.
func NewWarning(kind diag.Kind, message string, loc Location) Finding {
	return NewFinding(kind, SeverityWarning, message, loc)
}

// FromError converts err into a Finding for file. A *diag.Error contributes
// its kind, path and message; any other error is reported as-is.
func FromError(file string, severity Severity, err error) Finding {
	var de *diag.Error
	if !errors.As(err, &de) {
		return Finding{Severity: severity, Message: err.Error(), Location: Location{File: file}}
	}
	msg := de.Kind.Error()
	if de.Detail != "" {
		msg += ": " + de.Detail
	}
	if de.Err != nil {
		msg += ": " + de.Err.Error()
	}
	return NewFinding(de.Kind, severity, msg, Location{File: file, Path: de.Path})
}

// Summary holds aggregate counts for a report.
type Summary struct {
	ErrorCount   int `json:"error_count"`
	WarningCount int `json:"warning_count"`
}

// Report collects the outcome of generating one manifest.
type Report struct {
	File        string    `json:"file"`
	Shape       string    `json:"shape,omitempty"`
	SchemaValid bool      `json:"schema_valid"`
	Output      string    `json:"output,omitempty"` // written file, empty on failure
	Types       int       `json:"types"`
	Methods     int       `json:"methods"`
	Errors      []Finding `json:"errors"`
	Warnings    []Finding `json:"warnings"`
	Summary     Summary   `json:"summary"`
}

// NewReport creates a Report for the given file with empty finding slices.
func NewReport(file string) *Report {
	return &Report{
		File:     file,
		Errors:   []Finding{},
		Warnings: []Finding{},
	}
}

// AddFinding appends a finding to the appropriate slice (Errors or Warnings)
// and updates the summary counts.
func (r *Report) AddFinding(f Finding) {
	switch f.Severity {
	case SeverityError:
		r.Errors = append(r.Errors, f)
		r.Summary.ErrorCount++
	case SeverityWarning:
		r.Warnings = append(r.Warnings, f)
		r.Summary.WarningCount++
	}
}

// AddError records err as an error finding.
func (r *Report) AddError(err error) {
	r.AddFinding(FromError(r.File, SeverityError, err))
}

// AddWarning records err as a warning finding.
func (r *Report) AddWarning(err error) {
	r.AddFinding(FromError(r.File, SeverityWarning, err))
}

// HasErrors returns true if the report contains any error-severity findings.
func (r *Report) HasErrors() bool {
	return r.Summary.ErrorCount > 0
}

// HasWarnings returns true if the report contains any warning-severity findings.
func (r *Report) HasWarnings() bool {
	return r.Summary.WarningCount > 0
}

// Totals sums the summaries of several reports.
func Totals(reports []*Report) Summary {
	var s Summary
	for _, r := range reports {
		s.ErrorCount += r.Summary.ErrorCount
		s.WarningCount += r.Summary.WarningCount
	}
	return s
}
