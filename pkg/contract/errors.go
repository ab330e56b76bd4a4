package contract

import "fmt"

// CallKind tells a query from a transaction.
type CallKind string

const (
	KindView CallKind = "view"
	KindCall CallKind = "call"
)

// RemoteCallError is returned when the Contract fails to execute a method.
type RemoteCallError struct {
	Method string
	Kind   CallKind
	Err    error
}

func (e *RemoteCallError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Kind, e.Method, e.Err)
}

func (e *RemoteCallError) Unwrap() error { return e.Err }

// EncodeError is returned when the arguments of a method cannot be encoded.
type EncodeError struct {
	Method string
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode arguments of %q: %v", e.Method, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// DecodeError is returned when a result does not decode into the declared
// type.
type DecodeError struct {
	Method string
	Raw    []byte
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode result of %q: %v", e.Method, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
