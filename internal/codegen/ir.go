// Package codegen holds the in-memory tree of a generated Go client file and
// turns it into source text.
package codegen

import (
	"path"
	"strings"
)

// Type is a Go type expression.
type Type interface {
	String() string
	isType()
}

// Builtin is a predeclared type or literal type such as int64, any or struct{}.
type Builtin string

func (b Builtin) String() string { return string(b) }
func (Builtin) isType()          {}

// Common builtins.
const (
	Any   Builtin = "any"
	Empty Builtin = "struct{}"
)

// Named refers to a type declared in the generated file.
type Named string

func (n Named) String() string { return string(n) }
func (Named) isType()          {}

// Qualified refers to a type exported by an imported package.
type Qualified struct {
	Path string
	Name string
}

func (q Qualified) String() string { return path.Base(q.Path) + "." + q.Name }
func (Qualified) isType()          {}

// Slice is []Elem.
type Slice struct{ Elem Type }

func (s Slice) String() string { return "[]" + s.Elem.String() }
func (Slice) isType()          {}

// Pointer is *Elem.
type Pointer struct{ Elem Type }

func (p Pointer) String() string { return "*" + p.Elem.String() }
func (Pointer) isType()          {}

// Map is map[Key]Elem.
type Map struct{ Key, Elem Type }

func (m Map) String() string { return "map[" + m.Key.String() + "]" + m.Elem.String() }
func (Map) isType()          {}

// Nilable reports whether the zero value of t is nil, so an optional value of
// that type needs no extra pointer.
func Nilable(t Type) bool {
	switch t := t.(type) {
	case Slice, Pointer, Map:
		return true
	case Builtin:
		return t == Any
	}
	return false
}

// PointerTo returns *t unless t is already a pointer.
func PointerTo(t Type) Type {
	if _, ok := t.(Pointer); ok {
		return t
	}
	return Pointer{Elem: t}
}

// Imports returns the import paths referenced by t.
func Imports(t Type) []string {
	switch t := t.(type) {
	case Qualified:
		return []string{t.Path}
	case Slice:
		return Imports(t.Elem)
	case Pointer:
		return Imports(t.Elem)
	case Map:
		return append(Imports(t.Key), Imports(t.Elem)...)
	}
	return nil
}

// Decl is a top-level type declaration.
type Decl interface {
	DeclName() string
}

// AliasDecl is "type Name = Target", or "type Name Target" when Defined is
// set. Recursive types must be defined since an alias cannot refer to itself.
type AliasDecl struct {
	Name    string
	Doc     string
	Target  Type
	Defined bool
}

// StructDecl is a struct type with JSON-tagged fields.
type StructDecl struct {
	Name   string
	Doc    string
	Fields []Field
}

// Field is one struct member. Optional fields carry omitempty.
type Field struct {
	Name     string
	JSONName string
	Doc      string
	Type     Type
	Optional bool
}

// EnumDecl is a defined type over Base plus a const block of its values.
type EnumDecl struct {
	Name   string
	Doc    string
	Base   Builtin
	Values []EnumValue
}

// EnumValue is one constant; Literal is the Go literal of its value.
type EnumValue struct {
	Name    string
	Literal string
}

// VariantKind selects how a union variant is encoded on the wire.
type VariantKind int

const (
	// VariantTagged is {"tag": payload}.
	VariantTagged VariantKind = iota
	// VariantUnit is the bare string "tag".
	VariantUnit
	// VariantUntagged is the payload itself.
	VariantUntagged
)

// Variant is one alternative of a UnionDecl. Unit variants have no Type.
type Variant struct {
	Name string
	Tag  string
	Kind VariantKind
	Type Type
}

// FieldType returns the Go type of the variant's field in the union struct.
func (v Variant) FieldType() Type {
	if v.Kind == VariantUnit {
		return Builtin("bool")
	}
	return PointerTo(v.Type)
}

// UnionDecl is a struct with one field per variant, at most one of which is
// set, plus JSON codecs built on the runtime union helpers.
type UnionDecl struct {
	Name     string
	Doc      string
	Variants []Variant
}

func (d *AliasDecl) DeclName() string  { return d.Name }
func (d *StructDecl) DeclName() string { return d.Name }
func (d *EnumDecl) DeclName() string   { return d.Name }
func (d *UnionDecl) DeclName() string  { return d.Name }

// Convention is the calling convention of a stub.
type Convention int

const (
	// Query stubs are read-only: (ctx, worker, args...).
	Query Convention = iota
	// Transaction stubs mutate state: (ctx, worker, gas, deposit, args...).
	Transaction
)

func (c Convention) String() string {
	if c == Transaction {
		return "transaction"
	}
	return "query"
}

// Param is a positional stub parameter.
type Param struct {
	Name string
	Type Type
}

// Method describes one stub on the container.
type Method struct {
	// Remote is the method name sent to the contract, verbatim.
	Remote string
	// Name is the exported Go identifier of the stub.
	Name       string
	Params     []Param
	Result     Type // nil when the method returns nothing
	Convention Convention
}

// Signature renders the parameter list and result the way the stub declares
// them, without the context and execution-handle parameters.
func (m Method) Signature() string {
	parts := make([]string, 0, len(m.Params))
	for _, p := range m.Params {
		parts = append(parts, p.Name+" "+p.Type.String())
	}
	sig := "(" + strings.Join(parts, ", ") + ")"
	if m.Result != nil {
		sig += " " + m.Result.String()
	}
	return sig
}

// ContainerDecl is the struct that carries a contract handle and owns every
// stub.
type ContainerDecl struct {
	Name    string
	Methods []Method
}

// File is one generated Go source file.
type File struct {
	Package string
	// Header lines are written as // comments above the package clause.
	Header []string
	// Runtime is the import path of the contract runtime package.
	Runtime   string
	Decls     []Decl
	Container *ContainerDecl
}

// Rt returns a type exported by the runtime package.
func (f *File) Rt(name string) Qualified {
	return Qualified{Path: f.Runtime, Name: name}
}

func (f *File) runtimePkg() string { return path.Base(f.Runtime) }
