// Package diag defines the error taxonomy shared by every stage of the ABI
// compiler. Each failure carries a Kind, the manifest it came from and a
// JSON path locating the offending input.
package diag

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a compiler failure. Kind implements error so that
// errors.Is(err, diag.UnknownTypeID) matches any Error of that kind anywhere
// in a wrap chain.
type Kind string

const (
	MalformedManifest    Kind = "MALFORMED_MANIFEST"
	MalformedSchema      Kind = "MALFORMED_SCHEMA"
	MissingTypeName      Kind = "MISSING_TYPE_NAME"
	UnresolvedReference  Kind = "UNRESOLVED_REFERENCE"
	UnknownTypeID        Kind = "UNKNOWN_TYPE_ID"
	UnresolvedReturnType Kind = "UNRESOLVED_RETURN_TYPE"
	OutputWriteFailure   Kind = "OUTPUT_WRITE_FAILURE"
	DuplicateTypeName    Kind = "DUPLICATE_TYPE_NAME"

	// FormatFailure is only ever reported as a warning unless strict mode
	// promotes it.
	FormatFailure Kind = "FORMAT_FAILURE"
)

var descriptions = map[Kind]string{
	MalformedManifest:    "malformed manifest",
	MalformedSchema:      "malformed schema",
	MissingTypeName:      "missing type name",
	UnresolvedReference:  "unresolved reference",
	UnknownTypeID:        "unknown type id",
	UnresolvedReturnType: "unresolved return type",
	OutputWriteFailure:   "output write failure",
	DuplicateTypeName:    "duplicate type name",
	FormatFailure:        "format failure",
}

// Error returns the human-readable description of the kind.
func (k Kind) Error() string {
	if d, ok := descriptions[k]; ok {
		return d
	}
	return strings.ToLower(strings.ReplaceAll(string(k), "_", " "))
}

// Error is a located compiler failure.
type Error struct {
	Kind     Kind
	Manifest string // manifest path, stamped by the compiler
	Path     string // JSON path like "$.types[0].schema/properties/a"
	Detail   string
	Err      error // optional cause
}

// New creates an Error of the given kind.
func New(kind Kind, path string, format string, args ...any) *Error {
	return &Error{Kind: kind, Path: path, Detail: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given kind around cause.
func Wrap(kind Kind, path string, cause error, format string, args ...any) *Error {
	e := New(kind, path, format, args...)
	e.Err = cause
	return e
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Manifest != "" {
		b.WriteString(e.Manifest)
		b.WriteString(": ")
	}
	if e.Path != "" {
		b.WriteString(e.Path)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.Error())
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns the kind of the outermost Error in err's chain, or "" when
// err carries no Error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// WithManifest stamps path on the outermost Error in err's chain when it has
// no manifest yet, and returns err.
func WithManifest(err error, path string) error {
	var de *Error
	if errors.As(err, &de) && de.Manifest == "" {
		de.Manifest = path
	}
	return err
}
