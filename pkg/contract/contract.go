// Package contract is the runtime imported by generated clients. It encodes
// arguments, dispatches calls through a Contract and decodes results.
//
// Transport is not provided here: a Contract implementation talks to a node,
// a sandbox or anything else able to execute a named method over JSON.
package contract

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
)

// Worker is the execution-context handle a call runs against.
type Worker interface {
	// NetworkID identifies the network the worker is connected to.
	NetworkID() string
}

// Contract dispatches raw JSON calls to one deployed contract.
type Contract interface {
	// View runs a read-only method.
	View(ctx context.Context, w Worker, method string, args []byte) ([]byte, error)
	// Call submits a state-changing method with attached gas and deposit.
	Call(ctx context.Context, w Worker, method string, args []byte, gas Gas, deposit Balance) ([]byte, error)
}

// Gas is the execution allowance attached to a transaction.
type Gas uint64

// Balance is a token amount in the smallest denomination. A nil Balance is
// zero.
type Balance = *big.Int

type noArgs struct{}

func (noArgs) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// NoArgs is forwarded by methods that take no arguments. It encodes as null.
var NoArgs any = noArgs{}

// Args packs positional arguments. They encode as a JSON array.
func Args(args ...any) []any {
	if args == nil {
		return []any{}
	}
	return args
}

// Discard accepts and drops any result.
type Discard struct{}

// UnmarshalJSON implements json.Unmarshaler.
func (*Discard) UnmarshalJSON([]byte) error {
	return nil
}

// View encodes args, runs method as a query and decodes the result into T.
func View[T any](ctx context.Context, c Contract, w Worker, method string, args any) (T, error) {
	var zero T
	data, err := encode(method, args)
	if err != nil {
		return zero, err
	}
	raw, err := c.View(ctx, w, method, data)
	if err != nil {
		return zero, &RemoteCallError{Method: method, Kind: KindView, Err: err}
	}
	return decode[T](method, raw)
}

// Transact encodes args, submits method as a transaction with gas and
// deposit attached and decodes the result into T.
func Transact[T any](ctx context.Context, c Contract, w Worker, gas Gas, deposit Balance, method string, args any) (T, error) {
	var zero T
	data, err := encode(method, args)
	if err != nil {
		return zero, err
	}
	if deposit == nil {
		deposit = new(big.Int)
	}
	raw, err := c.Call(ctx, w, method, data, gas, deposit)
	if err != nil {
		return zero, &RemoteCallError{Method: method, Kind: KindCall, Err: err}
	}
	return decode[T](method, raw)
}

func encode(method string, args any) ([]byte, error) {
	data, err := json.Marshal(args)
	if err != nil {
		return nil, &EncodeError{Method: method, Err: err}
	}
	return data, nil
}

func decode[T any](method string, raw []byte) (T, error) {
	var out T
	if len(bytes.TrimSpace(raw)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, &DecodeError{Method: method, Raw: raw, Err: err}
	}
	return out, nil
}
