// Package synth builds the client stub descriptors for the methods of an ABI
// manifest.
package synth

import (
	"strconv"

	"go.uber.org/zap"

	"github.com/foundry-zero/abigen/internal/abi"
	"github.com/foundry-zero/abigen/internal/codegen"
	"github.com/foundry-zero/abigen/internal/diag"
	"github.com/foundry-zero/abigen/internal/registry"
)

// reserved are identifiers already taken on the generated container.
var reserved = map[string]bool{
	"Contract": true,
}

// Synthesizer resolves method signatures against a populated registry.
type Synthesizer struct {
	reg    *registry.Registry
	logger *zap.Logger
}

// New returns a Synthesizer reading types from reg.
func New(reg *registry.Registry, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{reg: reg, logger: logger}
}

// Synthesize returns one stub per method, in manifest order. Two methods
// whose names map to the same Go identifier are rejected.
func (s *Synthesizer) Synthesize(methods []abi.Method) ([]codegen.Method, error) {
	out := make([]codegen.Method, 0, len(methods))
	seen := make(map[string]abi.Method, len(methods))
	for _, m := range methods {
		stub, err := s.Method(m)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[stub.Name]; ok {
			return nil, diag.New(diag.MalformedManifest, m.Path+".name",
				"method %q maps to Go identifier %s, already used by %q", m.Name, stub.Name, prev.Name)
		}
		seen[stub.Name] = m
		out = append(out, stub)
	}
	return out, nil
}

// Method builds the stub for a single method.
func (s *Synthesizer) Method(m abi.Method) (codegen.Method, error) {
	name := codegen.ExportName(m.Name)
	if name == "" {
		return codegen.Method{}, diag.New(diag.MalformedManifest, m.Path+".name",
			"method name %q yields no Go identifier", m.Name)
	}
	if reserved[name] {
		name += "_"
	}

	stub := codegen.Method{
		Remote:     m.Name,
		Name:       name,
		Convention: codegen.Query,
	}
	if m.Mutating() {
		stub.Convention = codegen.Transaction
	}

	for j, id := range m.Args {
		t, err := s.reg.Resolve(id)
		if err != nil {
			return codegen.Method{}, diag.New(diag.UnknownTypeID, argPath(m, j),
				"argument %d of method %q references type id %d", j, m.Name, id)
		}
		stub.Params = append(stub.Params, codegen.Param{Name: "arg" + strconv.Itoa(j), Type: t})
	}

	if m.Result != nil {
		t, err := s.reg.Resolve(*m.Result)
		if err != nil {
			cause := diag.New(diag.UnknownTypeID, m.ResultPath, "type id %d", *m.Result)
			return codegen.Method{}, diag.Wrap(diag.UnresolvedReturnType, m.ResultPath, cause,
				"method %q", m.Name)
		}
		stub.Result = t
	}

	s.logger.Debug("synthesized stub",
		zap.String("method", m.Name),
		zap.String("stub", stub.Name),
		zap.Stringer("convention", stub.Convention),
		zap.String("signature", stub.Signature()),
	)
	return stub, nil
}

func argPath(m abi.Method, j int) string {
	if j < len(m.ArgPaths) {
		return m.ArgPaths[j]
	}
	return m.Path
}
