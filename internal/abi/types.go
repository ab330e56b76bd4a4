// Package abi defines the Go types an ABI manifest is decoded into: the type
// catalogue, the method list and the JSON-Schema subset used by type
// definitions.
package abi

// Shape identifies which of the accepted manifest layouts a document used.
type Shape int

const (
	// ShapeFlat is {"types": [...], "methods": [...]}.
	ShapeFlat Shape = iota
	// ShapeRoot is {"abi": {"functions": [...], "types": [...], "root_schema": {...}}}.
	ShapeRoot
)

// String returns "flat" or "root".
func (s Shape) String() string {
	if s == ShapeRoot {
		return "root"
	}
	return "flat"
}

// Manifest is the in-memory model of one ABI manifest.
type Manifest struct {
	Shape         Shape
	SchemaVersion string
	Metadata      Metadata
	Types         []TypeEntry
	Methods       []Method
	// RootSchema carries shared definitions referenced by type schemas.
	// It is nil for flat manifests.
	RootSchema *Schema
	// RootSchemaPath locates RootSchema in the document.
	RootSchemaPath string
}

// Metadata holds the optional descriptive header of an ABI root document.
type Metadata struct {
	Name    string   `json:"name,omitempty"`
	Version string   `json:"version,omitempty"`
	Authors []string `json:"authors,omitempty"`
}

// TypeEntry is one element of the type catalogue.
type TypeEntry struct {
	ID     uint32
	Schema *Schema
	Path   string // "$.types[0]" or "$.abi.types[0]"
}

// SchemaPath returns the JSON path of the entry's schema.
func (t TypeEntry) SchemaPath() string {
	return t.Path + ".schema"
}

// Method is one callable declared by the manifest.
type Method struct {
	Name   string
	Args   []uint32
	Result *uint32
	IsView bool
	// IsInit marks initializer functions; they mutate state.
	IsInit bool

	Path       string
	ArgPaths   []string
	ResultPath string
}

// Mutating reports whether the method needs the transaction calling
// convention.
func (m Method) Mutating() bool {
	return !m.IsView || m.IsInit
}

// LookupType returns the catalogue entry with the given id, or nil.
func (m *Manifest) LookupType(id uint32) *TypeEntry {
	for i := range m.Types {
		if m.Types[i].ID == id {
			return &m.Types[i]
		}
	}
	return nil
}
