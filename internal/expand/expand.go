// Package expand turns the JSON-Schema type definitions of an ABI manifest
// into Go type declarations.
package expand

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/foundry-zero/abigen/internal/abi"
	"github.com/foundry-zero/abigen/internal/codegen"
	"github.com/foundry-zero/abigen/internal/diag"
)

// entry tracks one named declaration.
type entry struct {
	name   string
	schema *abi.Schema
	path   string
	slot   int

	inProgress bool
	// cyclic is set when the type was referenced while being expanded.
	cyclic bool
}

type definition struct {
	schema *abi.Schema
	path   string
}

// Expander expands schemas into Go types, accumulating the declarations it
// needs along the way. One Expander serves one manifest.
type Expander struct {
	logger *zap.Logger

	defs     map[string]definition
	rootDefs []string
	defTypes map[string]codegen.Type

	root     *abi.Schema
	rootPath string
	rootType codegen.Type

	byName map[string]*entry
	decls  []codegen.Decl
}

// New returns an empty Expander.
func New(logger *zap.Logger) *Expander {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Expander{
		logger:   logger,
		defs:     make(map[string]definition),
		defTypes: make(map[string]codegen.Type),
		byName:   make(map[string]*entry),
	}
}

// SetRoot registers the shared root schema. Its definitions are collected
// and will be expanded by ExpandDefinitions; the root itself is only
// expanded when something refers to "#".
func (e *Expander) SetRoot(s *abi.Schema, path string) error {
	e.root = s
	e.rootPath = path
	for _, d := range s.Definitions {
		e.rootDefs = append(e.rootDefs, d.Name)
	}
	return e.collect(s, path)
}

// AddDefinitions collects the definitions carried by a type schema so that
// references to them resolve regardless of declaration order.
func (e *Expander) AddDefinitions(s *abi.Schema, path string) error {
	return e.collect(s, path)
}

func (e *Expander) collect(s *abi.Schema, path string) error {
	if s == nil {
		return nil
	}
	for _, d := range s.Definitions {
		dpath := path + "/definitions/" + escape(d.Name)
		if prev, ok := e.defs[d.Name]; ok {
			if !prev.schema.Equal(d.Schema) {
				return diag.New(diag.DuplicateTypeName, dpath,
					"definition %q differs from the one at %s", d.Name, prev.path)
			}
			continue
		}
		e.defs[d.Name] = definition{schema: d.Schema, path: dpath}
		if err := e.collect(d.Schema, dpath); err != nil {
			return err
		}
	}
	return nil
}

// ExpandDefinitions expands every root schema definition in document order.
func (e *Expander) ExpandDefinitions() error {
	for _, key := range e.rootDefs {
		if _, err := e.expandDefinition(key, e.defs[key].path); err != nil {
			return err
		}
	}
	return nil
}

// Expand returns the Go type for s, declaring whatever named types it needs.
// Expanding a schema that was already expanded returns the same type and
// declares nothing new.
func (e *Expander) Expand(s *abi.Schema, path string) (codegen.Type, error) {
	return e.expand(s, path, "")
}

// Decls returns the declarations in first-expansion order.
func (e *Expander) Decls() []codegen.Decl {
	out := make([]codegen.Decl, 0, len(e.decls))
	for _, d := range e.decls {
		if d != nil {
			out = append(out, d)
		}
	}
	return out
}

// expand is the recursive worker. name, when set, is the type name to use in
// place of the schema's title.
func (e *Expander) expand(s *abi.Schema, path, name string) (codegen.Type, error) {
	if s == nil || s.Bool != nil {
		return codegen.Any, nil
	}
	if s.Ref != "" {
		return e.resolveRef(s.Ref, path)
	}
	if name == "" {
		name = s.Title
	}

	switch {
	case len(s.AllOf) > 0:
		return e.expandAllOf(s, path, name)
	case len(s.OneOf) > 0:
		return e.expandUnion(s, s.OneOf, path+"/oneOf", name)
	case len(s.AnyOf) > 0:
		return e.expandUnion(s, s.AnyOf, path+"/anyOf", name)
	case len(s.Enum) > 0:
		return e.expandEnum(s, s.Enum, path, name)
	case len(s.Const) > 0:
		return e.expandEnum(s, []json.RawMessage{s.Const}, path, name)
	}

	types := s.Type.NonNull()
	nullable := s.Nullable || (len(types) > 0 && len(types) < len(s.Type))

	var (
		t   codegen.Type
		err error
	)
	switch len(types) {
	case 0:
		switch {
		case s.IsNull():
			t, err = e.named(s, path, name, codegen.Empty)
		case len(s.Properties) > 0 || s.AdditionalProperties != nil:
			t, err = e.expandObject(s, path, name)
		case s.Items != nil:
			t, err = e.expandArray(s, path, name)
		default:
			t, err = e.named(s, path, name, codegen.Any)
		}
	case 1:
		t, err = e.expandTyped(types[0], s, path, name)
	default:
		t, err = e.named(s, path, name, codegen.Any)
	}
	if err != nil {
		return nil, err
	}
	if nullable && !codegen.Nilable(t) {
		t = codegen.Pointer{Elem: t}
	}
	return t, nil
}

func (e *Expander) expandTyped(typ string, s *abi.Schema, path, name string) (codegen.Type, error) {
	switch typ {
	case "integer":
		return e.named(s, path, name, integerType(s.Format))
	case "number":
		return e.named(s, path, name, numberType(s.Format))
	case "string":
		return e.named(s, path, name, codegen.Builtin("string"))
	case "boolean":
		return e.named(s, path, name, codegen.Builtin("bool"))
	case "null":
		return e.named(s, path, name, codegen.Empty)
	case "array":
		return e.expandArray(s, path, name)
	case "object":
		return e.expandObject(s, path, name)
	}
	return nil, diag.New(diag.MalformedSchema, path+"/type", "unknown type %q", typ)
}

// named declares an alias for a leaf type when the schema carries a name,
// and otherwise returns the type itself.
func (e *Expander) named(s *abi.Schema, path, name string, t codegen.Type) (codegen.Type, error) {
	if name == "" {
		return t, nil
	}
	ent, existing, err := e.declare(name, s, path)
	if err != nil || existing {
		return e.ref(ent), err
	}
	e.finish(ent, &codegen.AliasDecl{Name: ent.name, Doc: s.Description, Target: t})
	return codegen.Named(ent.name), nil
}

func (e *Expander) expandArray(s *abi.Schema, path, name string) (codegen.Type, error) {
	var ent *entry
	if name != "" {
		var (
			existing bool
			err      error
		)
		ent, existing, err = e.declare(name, s, path)
		if err != nil || existing {
			return e.ref(ent), err
		}
	}

	var elem codegen.Type = codegen.Any
	switch {
	case s.Items == nil:
	case s.Items.Single != nil:
		t, err := e.expand(s.Items.Single, path+"/items", "")
		if err != nil {
			return nil, err
		}
		elem = t
	case len(s.Items.Tuple) > 0:
		var first codegen.Type
		same := true
		for i, item := range s.Items.Tuple {
			t, err := e.expand(item, path+"/items/"+strconv.Itoa(i), "")
			if err != nil {
				return nil, err
			}
			if first == nil {
				first = t
			} else if t.String() != first.String() {
				same = false
			}
		}
		if same {
			elem = first
		}
	}

	t := codegen.Slice{Elem: elem}
	if ent == nil {
		return t, nil
	}
	e.finish(ent, &codegen.AliasDecl{Name: ent.name, Doc: s.Description, Target: t, Defined: ent.cyclic})
	return codegen.Named(ent.name), nil
}

func (e *Expander) expandObject(s *abi.Schema, path, name string) (codegen.Type, error) {
	if len(s.Properties) == 0 {
		return e.expandMap(s, path, name)
	}
	if name == "" {
		return nil, diag.New(diag.MissingTypeName, path, "object with properties has no title")
	}
	ent, existing, err := e.declare(name, s, path)
	if err != nil || existing {
		return e.ref(ent), err
	}

	decl := &codegen.StructDecl{Name: ent.name, Doc: s.Description}
	var names codegen.Uniquer
	for _, p := range s.Properties {
		fpath := path + "/properties/" + escape(p.Name)
		ft, err := e.expand(p.Schema, fpath, "")
		if err != nil {
			return nil, err
		}
		if n, ok := ft.(codegen.Named); ok {
			if dep := e.byName[string(n)]; dep != nil && dep.inProgress {
				ft = codegen.Pointer{Elem: ft}
			}
		}
		optional := !s.IsRequired(p.Name)
		if optional && !codegen.Nilable(ft) {
			ft = codegen.Pointer{Elem: ft}
		}
		fname := codegen.ExportName(p.Name)
		if fname == "" {
			fname = "Field"
		}
		field := codegen.Field{
			Name:     names.Unique(fname),
			JSONName: p.Name,
			Type:     ft,
			Optional: optional,
		}
		if p.Schema != nil && p.Schema.Title == "" {
			field.Doc = p.Schema.Description
		}
		decl.Fields = append(decl.Fields, field)
	}
	e.finish(ent, decl)
	return codegen.Named(ent.name), nil
}

func (e *Expander) expandMap(s *abi.Schema, path, name string) (codegen.Type, error) {
	var ent *entry
	if name != "" {
		var (
			existing bool
			err      error
		)
		ent, existing, err = e.declare(name, s, path)
		if err != nil || existing {
			return e.ref(ent), err
		}
	}
	var elem codegen.Type = codegen.Any
	if ap := s.AdditionalProperties; ap != nil && ap.Bool == nil {
		t, err := e.expand(ap, path+"/additionalProperties", "")
		if err != nil {
			return nil, err
		}
		elem = t
	}
	t := codegen.Map{Key: codegen.Builtin("string"), Elem: elem}
	if ent == nil {
		return t, nil
	}
	e.finish(ent, &codegen.AliasDecl{Name: ent.name, Doc: s.Description, Target: t, Defined: ent.cyclic})
	return codegen.Named(ent.name), nil
}

func (e *Expander) expandEnum(s *abi.Schema, raw []json.RawMessage, path, name string) (codegen.Type, error) {
	values := make([]any, 0, len(raw))
	allStrings, allInts := true, true
	for i, r := range raw {
		dec := json.NewDecoder(bytes.NewReader(r))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, diag.Wrap(diag.MalformedSchema, path+"/enum/"+strconv.Itoa(i), err, "invalid enum value")
		}
		switch v := v.(type) {
		case string:
			allInts = false
		case json.Number:
			allStrings = false
			if _, err := v.Int64(); err != nil {
				allInts = false
			}
		default:
			allStrings, allInts = false, false
		}
		values = append(values, v)
	}

	var base codegen.Builtin
	switch {
	case allStrings:
		base = "string"
	case allInts:
		base = "int64"
	default:
		return e.named(s, path, name, codegen.Any)
	}
	if name == "" {
		return base, nil
	}

	ent, existing, err := e.declare(name, s, path)
	if err != nil || existing {
		return e.ref(ent), err
	}
	decl := &codegen.EnumDecl{Name: ent.name, Doc: s.Description, Base: base}
	var names codegen.Uniquer
	for i, v := range values {
		var suffix, literal string
		switch v := v.(type) {
		case string:
			suffix = codegen.ExportName(v)
			literal = strconv.Quote(v)
		case json.Number:
			n, _ := v.Int64()
			literal = strconv.FormatInt(n, 10)
			suffix = literal
			if n < 0 {
				suffix = "Neg" + strings.TrimPrefix(literal, "-")
			}
		}
		if suffix == "" {
			suffix = "Value" + strconv.Itoa(i)
		}
		decl.Values = append(decl.Values, codegen.EnumValue{
			Name:    names.Unique(ent.name + suffix),
			Literal: literal,
		})
	}
	e.finish(ent, decl)
	return codegen.Named(ent.name), nil
}

func (e *Expander) expandUnion(s *abi.Schema, variants []*abi.Schema, path, name string) (codegen.Type, error) {
	type indexed struct {
		schema *abi.Schema
		path   string
	}
	var (
		members  []indexed
		nullable bool
	)
	for i, v := range variants {
		if v != nil && v.Bool == nil && v.Ref == "" && v.IsNull() {
			nullable = true
			continue
		}
		members = append(members, indexed{schema: v, path: path + "/" + strconv.Itoa(i)})
	}

	switch len(members) {
	case 0:
		return e.named(s, path, name, codegen.Empty)
	case 1:
		var ent *entry
		if name != "" {
			var (
				existing bool
				err      error
			)
			ent, existing, err = e.declare(name, s, path)
			if err != nil || existing {
				return e.ref(ent), err
			}
		}
		t, err := e.expand(members[0].schema, members[0].path, "")
		if err != nil {
			return nil, err
		}
		if nullable && !codegen.Nilable(t) {
			t = codegen.Pointer{Elem: t}
		}
		if ent == nil {
			return t, nil
		}
		e.finish(ent, &codegen.AliasDecl{Name: ent.name, Doc: s.Description, Target: t})
		return codegen.Named(ent.name), nil
	}

	if name == "" {
		return nil, diag.New(diag.MissingTypeName, path, "union of %d variants has no title", len(members))
	}
	ent, existing, err := e.declare(name, s, path)
	if err != nil || existing {
		return e.ref(ent), err
	}

	decl := &codegen.UnionDecl{Name: ent.name, Doc: s.Description}
	var names codegen.Uniquer
	for i, m := range members {
		vs := m.schema
		switch {
		case isUnitEnum(vs):
			for _, tag := range unitTags(vs) {
				vname := codegen.ExportName(tag)
				if vname == "" {
					vname = "Variant" + strconv.Itoa(i)
				}
				decl.Variants = append(decl.Variants, codegen.Variant{
					Name: names.Unique(vname),
					Tag:  tag,
					Kind: codegen.VariantUnit,
				})
			}
		case isExternallyTagged(vs):
			p := vs.Properties[0]
			t, err := e.expand(p.Schema, m.path+"/properties/"+escape(p.Name), "")
			if err != nil {
				return nil, err
			}
			vname := codegen.ExportName(p.Name)
			if vname == "" {
				vname = "Variant" + strconv.Itoa(i)
			}
			decl.Variants = append(decl.Variants, codegen.Variant{
				Name: names.Unique(vname),
				Tag:  p.Name,
				Kind: codegen.VariantTagged,
				Type: t,
			})
		default:
			t, err := e.expand(vs, m.path, "")
			if err != nil {
				return nil, err
			}
			vname := "Variant" + strconv.Itoa(i)
			switch {
			case vs != nil && vs.Ref != "":
				if n := codegen.ExportName(refName(vs.Ref)); n != "" {
					vname = n
				}
			case vs != nil && vs.Title != "":
				if n := codegen.ExportName(vs.Title); n != "" {
					vname = n
				}
			}
			decl.Variants = append(decl.Variants, codegen.Variant{
				Name: names.Unique(vname),
				Kind: codegen.VariantUntagged,
				Type: t,
			})
		}
	}
	e.finish(ent, decl)

	var t codegen.Type = codegen.Named(ent.name)
	if nullable {
		t = codegen.Pointer{Elem: t}
	}
	return t, nil
}

// expandAllOf handles a single-member allOf as the member itself and merges
// the properties of several object members into one struct.
func (e *Expander) expandAllOf(s *abi.Schema, path, name string) (codegen.Type, error) {
	if len(s.AllOf) == 1 {
		inner := s.AllOf[0]
		if inner != nil && inner.Ref != "" && name != "" {
			ent, existing, err := e.declare(name, s, path)
			if err != nil || existing {
				return e.ref(ent), err
			}
			t, err := e.expand(inner, path+"/allOf/0", "")
			if err != nil {
				return nil, err
			}
			e.finish(ent, &codegen.AliasDecl{Name: ent.name, Doc: s.Description, Target: t})
			return codegen.Named(ent.name), nil
		}
		if name == "" && inner != nil && inner.Ref == "" {
			name = inner.Title
		}
		if inner != nil && inner.Ref == "" && name != "" && inner.Title != name {
			cp := *inner
			cp.Title = name
			if cp.Description == "" {
				cp.Description = s.Description
			}
			inner = &cp
		}
		return e.expand(inner, path+"/allOf/0", "")
	}

	merged := &abi.Schema{
		Title:       name,
		Description: s.Description,
		Type:        abi.TypeSet{"object"},
	}
	for i, member := range s.AllOf {
		mpath := path + "/allOf/" + strconv.Itoa(i)
		for member != nil && member.Ref != "" {
			def, ok := e.defs[refName(member.Ref)]
			if !ok {
				return nil, diag.New(diag.UnresolvedReference, mpath, "reference %q not found", member.Ref)
			}
			member = def.schema
		}
		if member == nil || member.Bool != nil {
			continue
		}
		if len(member.Properties) == 0 && !member.Accepts("object") {
			return nil, diag.New(diag.MalformedSchema, mpath, "allOf member is not an object schema")
		}
		merged.Properties = append(merged.Properties, member.Properties...)
		merged.Required = append(merged.Required, member.Required...)
	}
	return e.expand(merged, path, "")
}

func (e *Expander) resolveRef(ref, path string) (codegen.Type, error) {
	if ref == "#" {
		if e.root == nil {
			return nil, diag.New(diag.UnresolvedReference, path, "reference %q but the manifest has no root schema", ref)
		}
		if e.rootType != nil {
			return e.rootType, nil
		}
		t, err := e.expand(e.root, e.rootPath, "")
		if err != nil {
			return nil, err
		}
		e.rootType = t
		return t, nil
	}
	key := refName(ref)
	if key == "" {
		return nil, diag.New(diag.UnresolvedReference, path, "unsupported reference %q", ref)
	}
	if _, ok := e.defs[key]; !ok {
		return nil, diag.New(diag.UnresolvedReference, path, "reference %q not found", ref)
	}
	return e.expandDefinition(key, path)
}

func (e *Expander) expandDefinition(key, from string) (codegen.Type, error) {
	if t, ok := e.defTypes[key]; ok {
		return t, nil
	}
	def := e.defs[key]
	name := def.schema.Title
	if name == "" {
		name = key
	}
	t, err := e.expand(def.schema, def.path, name)
	if err != nil {
		return nil, err
	}
	// Only memoize completed expansions; an in-progress one is resolved
	// through its entry.
	if n, ok := t.(codegen.Named); !ok || !e.byName[string(n)].inProgress {
		e.defTypes[key] = t
	}
	e.logger.Debug("expanded definition", zap.String("key", key), zap.String("type", t.String()), zap.String("from", from))
	return t, nil
}

// declare reserves a declaration slot for name. existing is true when a
// structurally identical schema was declared under that name before.
func (e *Expander) declare(name string, s *abi.Schema, path string) (ent *entry, existing bool, err error) {
	goName := codegen.ExportName(name)
	if goName == "" {
		return nil, false, diag.New(diag.MissingTypeName, path, "title %q yields no Go identifier", name)
	}
	if prev, ok := e.byName[goName]; ok {
		if prev.schema == s || prev.schema.Equal(s) {
			if prev.inProgress {
				prev.cyclic = true
			}
			return prev, true, nil
		}
		return nil, false, diag.New(diag.DuplicateTypeName, path,
			"type %s is already declared by %s with a different schema", goName, prev.path)
	}
	ent = &entry{
		name:       goName,
		schema:     s,
		path:       path,
		slot:       len(e.decls),
		inProgress: true,
	}
	e.decls = append(e.decls, nil)
	e.byName[goName] = ent
	return ent, false, nil
}

func (e *Expander) finish(ent *entry, d codegen.Decl) {
	ent.inProgress = false
	e.decls[ent.slot] = d
	e.logger.Debug("declared type", zap.String("name", ent.name), zap.String("path", ent.path))
}

func (e *Expander) ref(ent *entry) codegen.Type {
	if ent == nil {
		return nil
	}
	return codegen.Named(ent.name)
}

// Lookup returns the declaration named name, if any.
func (e *Expander) Lookup(name string) codegen.Decl {
	ent, ok := e.byName[name]
	if !ok {
		return nil
	}
	return e.decls[ent.slot]
}

func integerType(format string) codegen.Builtin {
	switch format {
	case "int8", "int16", "int32", "int64", "uint8", "uint16", "uint32", "uint64", "int", "uint":
		return codegen.Builtin(format)
	}
	return "int64"
}

func numberType(format string) codegen.Builtin {
	if format == "float" {
		return "float32"
	}
	return "float64"
}

func isUnitEnum(s *abi.Schema) bool {
	if s == nil || s.Bool != nil || s.Ref != "" || len(s.Properties) > 0 {
		return false
	}
	return len(unitTags(s)) > 0
}

func unitTags(s *abi.Schema) []string {
	raw := s.Enum
	if len(raw) == 0 && len(s.Const) > 0 {
		raw = []json.RawMessage{s.Const}
	}
	tags := make([]string, 0, len(raw))
	for _, r := range raw {
		var tag string
		if err := json.Unmarshal(r, &tag); err != nil {
			return nil
		}
		tags = append(tags, tag)
	}
	return tags
}

// isExternallyTagged matches {"type":"object","required":[tag],"properties":{tag: payload}}.
func isExternallyTagged(s *abi.Schema) bool {
	if s == nil || s.Bool != nil || s.Ref != "" || len(s.Properties) != 1 {
		return false
	}
	return len(s.Required) == 1 && s.Required[0] == s.Properties[0].Name
}

// refName extracts the definition key from "#/definitions/Key" or
// "#/$defs/Key".
func refName(ref string) string {
	for _, prefix := range []string{"#/definitions/", "#/$defs/"} {
		if key, ok := strings.CutPrefix(ref, prefix); ok && key != "" && !strings.Contains(key, "/") {
			return unescape(key)
		}
	}
	return ""
}

func escape(s string) string {
	return strings.NewReplacer("~", "~0", "/", "~1").Replace(s)
}

func unescape(s string) string {
	return strings.NewReplacer("~1", "/", "~0", "~").Replace(s)
}

