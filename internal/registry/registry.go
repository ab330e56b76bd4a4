// Package registry maps the numeric type ids of an ABI manifest to the Go
// type expressions generated for them.
package registry

import (
	"github.com/foundry-zero/abigen/internal/codegen"
	"github.com/foundry-zero/abigen/internal/diag"
)

// Registry is an append-only id to type mapping. It is built once per
// manifest and is not safe for concurrent mutation.
type Registry struct {
	types map[uint32]codegen.Type
	order []uint32
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{types: make(map[uint32]codegen.Type)}
}

// Register binds id to t. Rebinding an id is rejected.
func (r *Registry) Register(id uint32, t codegen.Type) error {
	if prev, ok := r.types[id]; ok {
		return diag.New(diag.MalformedManifest, "", "type id %d already registered as %s", id, prev)
	}
	r.types[id] = t
	r.order = append(r.order, id)
	return nil
}

// Resolve returns the type bound to id, or an UnknownTypeID error.
func (r *Registry) Resolve(id uint32) (codegen.Type, error) {
	t, ok := r.types[id]
	if !ok {
		return nil, diag.New(diag.UnknownTypeID, "", "type id %d", id)
	}
	return t, nil
}

// Name returns the rendered Go type of id.
func (r *Registry) Name(id uint32) (string, error) {
	t, err := r.Resolve(id)
	if err != nil {
		return "", err
	}
	return t.String(), nil
}

// IDs returns the registered ids in registration order.
func (r *Registry) IDs() []uint32 {
	return append([]uint32(nil), r.order...)
}

// Len returns the number of registered ids.
func (r *Registry) Len() int {
	return len(r.order)
}
