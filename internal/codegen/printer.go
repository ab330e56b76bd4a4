package codegen

import (
	"bytes"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// builder accumulates source lines at the current indentation.
type builder struct {
	buf    bytes.Buffer
	indent int
}

func (b *builder) P(format string, args ...any) {
	if format == "" {
		b.buf.WriteString("\n")
		return
	}
	for i := 0; i < b.indent; i++ {
		b.buf.WriteString("\t")
	}
	fmt.Fprintf(&b.buf, format, args...)
	b.buf.WriteString("\n")
}

func (b *builder) In()  { b.indent++ }
func (b *builder) Out() { b.indent-- }

func (b *builder) comment(text string) {
	for _, line := range splitCommentLines(text) {
		if line == "" {
			b.P("//")
			continue
		}
		b.P("// %s", line)
	}
}

// GoPrinter serialises a File into Go source. The output is valid Go but not
// necessarily gofmt-aligned; Format takes care of that.
type GoPrinter struct{}

// Print renders f.
func (GoPrinter) Print(f *File) []byte {
	b := &builder{}
	for _, line := range f.Header {
		if line == "" {
			b.P("//")
			continue
		}
		b.P("// %s", line)
	}
	if len(f.Header) > 0 {
		b.P("")
	}
	b.P("package %s", f.Package)
	b.P("")

	printImports(b, importSet(f))

	for _, d := range f.Decls {
		switch d := d.(type) {
		case *AliasDecl:
			printAlias(b, d)
		case *StructDecl:
			printStruct(b, d)
		case *EnumDecl:
			printEnum(b, d)
		case *UnionDecl:
			printUnion(b, f, d)
		}
		b.P("")
	}

	if f.Container != nil {
		printContainer(b, f, f.Container)
	}
	return append(bytes.TrimRight(b.buf.Bytes(), "\n"), '\n')
}

func importSet(f *File) []string {
	seen := make(map[string]bool)
	add := func(paths ...string) {
		for _, p := range paths {
			seen[p] = true
		}
	}
	for _, d := range f.Decls {
		switch d := d.(type) {
		case *AliasDecl:
			add(Imports(d.Target)...)
		case *StructDecl:
			for _, fd := range d.Fields {
				add(Imports(fd.Type)...)
			}
		case *UnionDecl:
			add(f.Runtime)
			for _, v := range d.Variants {
				if v.Type != nil {
					add(Imports(v.Type)...)
				}
			}
		}
	}
	if f.Container != nil {
		add(f.Runtime)
		if len(f.Container.Methods) > 0 {
			add("context")
		}
		for _, m := range f.Container.Methods {
			for _, p := range m.Params {
				add(Imports(p.Type)...)
			}
			if m.Result != nil {
				add(Imports(m.Result)...)
			}
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// printImports writes the standard library group first, then the rest.
func printImports(b *builder, paths []string) {
	if len(paths) == 0 {
		return
	}
	var std, other []string
	for _, p := range paths {
		if first, _, _ := strings.Cut(p, "/"); strings.Contains(first, ".") {
			other = append(other, p)
		} else {
			std = append(std, p)
		}
	}
	b.P("import (")
	b.In()
	for _, p := range std {
		b.P("%s", strconv.Quote(p))
	}
	if len(std) > 0 && len(other) > 0 {
		b.P("")
	}
	for _, p := range other {
		b.P("%s", strconv.Quote(p))
	}
	b.Out()
	b.P(")")
	b.P("")
}

func printAlias(b *builder, d *AliasDecl) {
	b.comment(d.Doc)
	if d.Defined {
		b.P("type %s %s", d.Name, d.Target)
		return
	}
	b.P("type %s = %s", d.Name, d.Target)
}

func printStruct(b *builder, d *StructDecl) {
	b.comment(d.Doc)
	if len(d.Fields) == 0 {
		b.P("type %s struct{}", d.Name)
		return
	}
	b.P("type %s struct {", d.Name)
	b.In()
	for _, fd := range d.Fields {
		b.comment(fd.Doc)
		tag := fd.JSONName
		if fd.Optional {
			tag += ",omitempty"
		}
		b.P("%s %s `json:%s`", fd.Name, fd.Type, strconv.Quote(tag))
	}
	b.Out()
	b.P("}")
}

func printEnum(b *builder, d *EnumDecl) {
	b.comment(d.Doc)
	b.P("type %s %s", d.Name, d.Base)
	if len(d.Values) == 0 {
		return
	}
	b.P("")
	b.P("const (")
	b.In()
	for _, v := range d.Values {
		b.P("%s %s = %s", v.Name, d.Name, v.Literal)
	}
	b.Out()
	b.P(")")
}

func printUnion(b *builder, f *File, d *UnionDecl) {
	rt := f.runtimePkg()

	b.comment(d.Doc)
	if d.Doc != "" {
		b.P("//")
	}
	b.P("// Exactly one field of %s is set.", d.Name)
	b.P("type %s struct {", d.Name)
	b.In()
	for _, v := range d.Variants {
		b.P("%s %s", v.Name, v.FieldType())
	}
	b.Out()
	b.P("}")
	b.P("")

	b.P("func (u %s) MarshalJSON() ([]byte, error) {", d.Name)
	b.In()
	b.P("return %s.EncodeUnion(%s, u.variants()...)", rt, strconv.Quote(d.Name))
	b.Out()
	b.P("}")
	b.P("")

	b.P("func (u *%s) UnmarshalJSON(data []byte) error {", d.Name)
	b.In()
	b.P("*u = %s{}", d.Name)
	b.P("return %s.DecodeUnion(data, %s, u.variants()...)", rt, strconv.Quote(d.Name))
	b.Out()
	b.P("}")
	b.P("")

	b.P("func (u *%s) variants() []%s.Variant {", d.Name, rt)
	b.In()
	b.P("return []%s.Variant{", rt)
	b.In()
	for _, v := range d.Variants {
		switch v.Kind {
		case VariantUnit:
			b.P("%s.Unit(%s, &u.%s),", rt, strconv.Quote(v.Tag), v.Name)
		case VariantTagged:
			b.P("%s.Tagged(%s, &u.%s),", rt, strconv.Quote(v.Tag), v.Name)
		default:
			b.P("%s.Untagged(&u.%s),", rt, v.Name)
		}
	}
	b.Out()
	b.P("}")
	b.Out()
	b.P("}")
}

func printContainer(b *builder, f *File, c *ContainerDecl) {
	rt := f.runtimePkg()

	b.P("// %s is a typed client for a deployed contract.", c.Name)
	b.P("type %s struct {", c.Name)
	b.In()
	b.P("Contract %s", f.Rt("Contract"))
	b.Out()
	b.P("}")
	b.P("")
	b.P("// New%s returns a client bound to c.", c.Name)
	b.P("func New%s(c %s) *%s {", c.Name, f.Rt("Contract"), c.Name)
	b.In()
	b.P("return &%s{Contract: c}", c.Name)
	b.Out()
	b.P("}")

	for _, m := range c.Methods {
		b.P("")
		printMethod(b, f, rt, c.Name, m)
	}
}

func printMethod(b *builder, f *File, rt, container string, m Method) {
	params := []string{"ctx context.Context", "worker " + f.Rt("Worker").String()}
	if m.Convention == Transaction {
		params = append(params, "gas "+f.Rt("Gas").String(), "deposit "+f.Rt("Balance").String())
	}
	names := make([]string, 0, len(m.Params))
	for _, p := range m.Params {
		params = append(params, p.Name+" "+p.Type.String())
		names = append(names, p.Name)
	}

	args := rt + ".NoArgs"
	if len(names) > 0 {
		args = rt + ".Args(" + strings.Join(names, ", ") + ")"
	}

	result := Type(Qualified{Path: f.Runtime, Name: "Discard"})
	results := "error"
	if m.Result != nil {
		result = m.Result
		results = "(" + m.Result.String() + ", error)"
	}

	var call string
	if m.Convention == Transaction {
		call = fmt.Sprintf("%s.Transact[%s](ctx, c.Contract, worker, gas, deposit, %s, %s)",
			rt, result, strconv.Quote(m.Remote), args)
	} else {
		call = fmt.Sprintf("%s.View[%s](ctx, c.Contract, worker, %s, %s)",
			rt, result, strconv.Quote(m.Remote), args)
	}

	b.P("// %s calls %q as a %s.", m.Name, m.Remote, m.Convention)
	b.P("func (c *%s) %s(%s) %s {", container, m.Name, strings.Join(params, ", "), results)
	b.In()
	if m.Result != nil {
		b.P("return %s", call)
	} else {
		b.P("_, err := %s", call)
		b.P("return err")
	}
	b.Out()
	b.P("}")
}

func splitCommentLines(comment string) []string {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil
	}
	lines := strings.Split(comment, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, strings.TrimRight(line, " \t\r"))
	}
	return out
}
