// Package sandbox provides an in-memory Worker and Contract for exercising
// generated clients without a network. Contract behaviour is supplied as Go
// handlers.
package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"go.uber.org/zap"

	"github.com/foundry-zero/abigen/pkg/contract"
)

var (
	// ErrMethodNotFound is returned for a method with no handler.
	ErrMethodNotFound = errors.New("method not found")
	// ErrNotView is returned when a change method is invoked as a query.
	ErrNotView = errors.New("method is not a view")
	// ErrZeroGas is returned when a transaction carries no gas.
	ErrZeroGas = errors.New("transaction has no gas attached")
	// ErrWrongNetwork is returned when the worker is not the one the
	// contract was deployed on.
	ErrWrongNetwork = errors.New("worker is on a different network")
)

// DefaultNetwork is the network id of workers created by NewWorker.
const DefaultNetwork = "sandbox"

// Worker is an in-memory execution context.
type Worker struct {
	network string
}

// NewWorker returns a Worker on DefaultNetwork.
func NewWorker() *Worker {
	return &Worker{network: DefaultNetwork}
}

// NewWorkerOn returns a Worker on the named network.
func NewWorkerOn(network string) *Worker {
	return &Worker{network: network}
}

// NetworkID implements contract.Worker. A nil Worker is on no network.
func (w *Worker) NetworkID() string {
	if w == nil {
		return ""
	}
	return w.network
}

// Call is one invocation handed to a Handler.
type Call struct {
	Method  string
	Args    []byte
	View    bool
	Gas     contract.Gas
	Deposit *big.Int
}

// Bind decodes the positional arguments into targets. Null or absent
// arguments bind nothing.
func (c *Call) Bind(targets ...any) error {
	if len(c.Args) == 0 || string(c.Args) == "null" {
		if len(targets) != 0 {
			return fmt.Errorf("%s: expected %d arguments, got none", c.Method, len(targets))
		}
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(c.Args, &raw); err != nil {
		return fmt.Errorf("%s: arguments: %w", c.Method, err)
	}
	if len(raw) != len(targets) {
		return fmt.Errorf("%s: expected %d arguments, got %d", c.Method, len(targets), len(raw))
	}
	for i, t := range targets {
		if err := json.Unmarshal(raw[i], t); err != nil {
			return fmt.Errorf("%s: argument %d: %w", c.Method, i, err)
		}
	}
	return nil
}

// Handler executes a method. The returned value is encoded as the JSON
// result; a nil value produces an empty result.
type Handler func(ctx context.Context, call *Call) (any, error)

type method struct {
	handler Handler
	view    bool
}

// Option configures a Contract.
type Option func(*Contract)

// WithLogger sets the logger calls are reported to.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Contract) {
		c.logger = logger
	}
}

// Contract is an in-memory deployed contract. Calls are executed one at a
// time.
type Contract struct {
	network string
	logger  *zap.Logger

	mu      sync.Mutex
	methods map[string]method
}

var _ contract.Contract = (*Contract)(nil)

// Deploy creates an empty contract on w's network.
func (w *Worker) Deploy(opts ...Option) *Contract {
	c := &Contract{
		network: w.network,
		logger:  zap.NewNop(),
		methods: make(map[string]method),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HandleView registers a read-only method.
func (c *Contract) HandleView(name string, h Handler) *Contract {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.methods[name] = method{handler: h, view: true}
	return c
}

// HandleChange registers a state-changing method.
func (c *Contract) HandleChange(name string, h Handler) *Contract {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.methods[name] = method{handler: h}
	return c
}

// View implements contract.Contract.
func (c *Contract) View(ctx context.Context, w contract.Worker, name string, args []byte) ([]byte, error) {
	return c.exec(ctx, w, &Call{Method: name, Args: args, View: true})
}

// Call implements contract.Contract.
func (c *Contract) Call(ctx context.Context, w contract.Worker, name string, args []byte, gas contract.Gas, deposit contract.Balance) ([]byte, error) {
	if gas == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrZeroGas)
	}
	if deposit == nil {
		deposit = new(big.Int)
	}
	return c.exec(ctx, w, &Call{Method: name, Args: args, Gas: gas, Deposit: deposit})
}

func (c *Contract) exec(ctx context.Context, w contract.Worker, call *Call) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if w == nil || w.NetworkID() != c.network {
		return nil, ErrWrongNetwork
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.methods[call.Method]
	if !ok {
		return nil, fmt.Errorf("%s: %w", call.Method, ErrMethodNotFound)
	}
	if call.View && !m.view {
		return nil, fmt.Errorf("%s: %w", call.Method, ErrNotView)
	}

	c.logger.Debug("executing call",
		zap.String("method", call.Method),
		zap.Bool("view", call.View),
		zap.Uint64("gas", uint64(call.Gas)),
		zap.ByteString("args", call.Args),
	)
	result, err := m.handler(ctx, call)
	if err != nil {
		c.logger.Debug("call failed", zap.String("method", call.Method), zap.Error(err))
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	return json.Marshal(result)
}
