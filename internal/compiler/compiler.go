// Package compiler drives the generation pipeline for ABI manifests:
// validation, type expansion, method synthesis, printing, formatting and
// writing the generated Go client.
package compiler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/foundry-zero/abigen/internal/abi"
	"github.com/foundry-zero/abigen/internal/codegen"
	"github.com/foundry-zero/abigen/internal/config"
	"github.com/foundry-zero/abigen/internal/diag"
	"github.com/foundry-zero/abigen/internal/expand"
	"github.com/foundry-zero/abigen/internal/registry"
	"github.com/foundry-zero/abigen/internal/report"
	"github.com/foundry-zero/abigen/internal/schema"
	"github.com/foundry-zero/abigen/internal/synth"
)

// Generator is the name written into generated file headers.
const Generator = "abigen"

// Result is what compiling one manifest produced. Fields are filled as far
// as the pipeline got, so a failed compilation still carries the stages
// that succeeded.
type Result struct {
	Manifest    string
	SchemaValid bool
	ABI         *abi.Manifest
	Registry    *registry.Registry
	File        *codegen.File
	// Source is the generated code, formatted unless formatting was
	// disabled or failed.
	Source []byte
	// Output is the destination path, set once the file has been written.
	Output   string
	Warnings []error
}

// Compiler turns ABI manifests into Go clients. It holds no per-manifest
// state; every Compile call starts from scratch.
type Compiler struct {
	cfg    config.Config
	sv     *schema.SchemaValidator
	logger *zap.Logger
	format FormatFunc
}

// FormatFunc formats generated source. filename is only used in messages.
type FormatFunc func(filename string, src []byte) ([]byte, error)

// Option configures a Compiler.
type Option func(*Compiler)

// WithFormatter replaces the gofmt pass.
func WithFormatter(f FormatFunc) Option {
	return func(c *Compiler) {
		c.format = f
	}
}

// New creates a Compiler for cfg. Only the naming settings of cfg are
// checked here; Generate additionally needs an output directory.
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*Compiler, error) {
	if err := cfg.ValidateNames(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	sv, err := schema.NewSchemaValidator()
	if err != nil {
		return nil, fmt.Errorf("initialize schema validator: %w", err)
	}
	c := &Compiler{cfg: *cfg, sv: sv, logger: logger, format: codegen.Format}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Compile reads the manifest at path and generates its client in memory.
// Errors are *diag.Error values stamped with path; several validation
// failures are joined.
func (c *Compiler) Compile(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		res := &Result{Manifest: path}
		return res, diag.WithManifest(diag.Wrap(diag.MalformedManifest, "", err, "failed to read manifest"), path)
	}
	return c.CompileBytes(path, data)
}

// CompileBytes generates the client for a manifest already in memory. name
// is used for diagnostics, the file header and the output file name.
func (c *Compiler) CompileBytes(name string, data []byte) (*Result, error) {
	res := &Result{Manifest: name}
	err := c.compile(res, data)
	return res, stamp(err, name)
}

func (c *Compiler) compile(res *Result, data []byte) error {
	logger := c.logger.With(zap.String("manifest", res.Manifest))

	doc, errs := schema.Decode(data)
	if errs != nil {
		return schemaErrors(diag.MalformedManifest, errs)
	}
	if errs := c.sv.ValidateDocument(doc); len(errs) > 0 {
		return schemaErrors(diag.MalformedManifest, errs)
	}
	if errs := c.sv.ValidateTypeSchemas(doc); len(errs) > 0 {
		return schemaErrors(diag.MalformedSchema, errs)
	}
	res.SchemaValid = true

	m, err := abi.ParseManifest(data)
	if err != nil {
		return err
	}
	res.ABI = m

	exp := expand.New(logger)
	if m.RootSchema != nil {
		if err := exp.SetRoot(m.RootSchema, m.RootSchemaPath); err != nil {
			return err
		}
	}
	for _, t := range m.Types {
		if err := exp.AddDefinitions(t.Schema, t.SchemaPath()); err != nil {
			return err
		}
	}
	if err := exp.ExpandDefinitions(); err != nil {
		return err
	}

	reg := registry.New()
	for _, t := range m.Types {
		typ, err := exp.Expand(t.Schema, t.SchemaPath())
		if err != nil {
			return err
		}
		if err := reg.Register(t.ID, typ); err != nil {
			return err
		}
	}
	res.Registry = reg

	stubs, err := synth.New(reg, logger).Synthesize(m.Methods)
	if err != nil {
		return err
	}

	file := &codegen.File{
		Package:   c.cfg.Package,
		Header:    Header(res.Manifest, m),
		Runtime:   c.cfg.RuntimeImport,
		Decls:     exp.Decls(),
		Container: &codegen.ContainerDecl{Name: c.cfg.Container, Methods: stubs},
	}
	if err := checkIdentifiers(file); err != nil {
		return err
	}
	res.File = file

	src := codegen.GoPrinter{}.Print(file)
	if c.cfg.Format {
		formatted, err := c.format(OutputName(res.Manifest), src)
		if err != nil {
			ferr := diag.Wrap(diag.FormatFailure, "", err, "keeping unformatted output")
			if c.cfg.Strict {
				return ferr
			}
			logger.Warn("formatting failed", zap.Error(err))
			res.Warnings = append(res.Warnings, stamp(ferr, res.Manifest))
		} else {
			src = formatted
		}
	}
	res.Source = src
	return nil
}

// Generate compiles the manifest at path and writes the client to
// <out_dir>/<name>.go. Nothing is written when compilation fails.
func (c *Compiler) Generate(path string) (*Result, error) {
	if err := c.cfg.Validate(); err != nil {
		return &Result{Manifest: path}, err
	}
	res, err := c.Compile(path)
	if err != nil {
		return res, err
	}
	out := filepath.Join(c.cfg.OutDir, OutputName(path))
	if err := codegen.WriteFile(out, res.Source); err != nil {
		return res, stamp(diag.Wrap(diag.OutputWriteFailure, "", err, "failed to write %s", out), path)
	}
	res.Output = out
	c.logger.Info("generated client",
		zap.String("manifest", path),
		zap.String("output", out),
		zap.Int("types", len(res.File.Decls)),
		zap.Int("methods", len(res.File.Container.Methods)),
	)
	return res, nil
}

// Run generates every manifest in order, independently of one another, and
// returns one report per manifest.
func (c *Compiler) Run(paths []string) []*report.Report {
	reports := make([]*report.Report, 0, len(paths))
	for _, path := range paths {
		reports = append(reports, c.generateReport(path))
	}
	return reports
}

func (c *Compiler) generateReport(path string) *report.Report {
	r := report.NewReport(path)
	res, err := c.Generate(path)
	r.SchemaValid = res.SchemaValid
	if res.ABI != nil {
		r.Shape = res.ABI.Shape.String()
	}
	for _, e := range Split(err) {
		r.AddError(e)
	}
	if err != nil {
		return r
	}
	for _, w := range res.Warnings {
		r.AddWarning(w)
	}
	r.Output = res.Output
	r.Types = len(res.File.Decls)
	r.Methods = len(res.File.Container.Methods)
	return r
}

// OutputName returns the generated file name for a manifest: its base name
// with the last extension replaced by ".go".
func OutputName(manifest string) string {
	base := filepath.Base(manifest)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".go"
}

// Header returns the comment lines written above the package clause.
func Header(manifest string, m *abi.Manifest) []string {
	lines := []string{
		fmt.Sprintf("Code generated by %s from %s. DO NOT EDIT.", Generator, filepath.Base(manifest)),
	}
	if m == nil {
		return lines
	}
	if md := m.Metadata; md.Name != "" {
		contract := md.Name
		if md.Version != "" {
			contract += " " + md.Version
		}
		lines = append(lines, "", "Contract: "+contract)
		if len(md.Authors) > 0 {
			lines = append(lines, "Authors: "+strings.Join(md.Authors, ", "))
		}
	}
	if m.SchemaVersion != "" {
		lines = append(lines, "ABI schema version: "+m.SchemaVersion)
	}
	return lines
}

// Split returns the individual errors of a joined compilation error.
func Split(err error) []error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*diag.Error); ok {
		return []error{err}
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}

func schemaErrors(kind diag.Kind, errs []schema.SchemaError) error {
	out := make([]error, 0, len(errs))
	for _, se := range errs {
		out = append(out, diag.New(kind, se.Path, "%s", se.Message))
	}
	if len(out) == 1 {
		return out[0]
	}
	return errors.Join(out...)
}

func stamp(err error, manifest string) error {
	for _, e := range Split(err) {
		diag.WithManifest(e, manifest)
	}
	return err
}

// checkIdentifiers rejects generated files in which two package-level
// identifiers coincide.
func checkIdentifiers(f *codegen.File) error {
	seen := make(map[string]string)
	claim := func(name, what string) error {
		if prev, ok := seen[name]; ok {
			return diag.New(diag.DuplicateTypeName, "", "%s %s collides with %s", what, name, prev)
		}
		seen[name] = what
		return nil
	}
	if f.Container != nil {
		if err := claim(f.Container.Name, "container"); err != nil {
			return err
		}
		if err := claim("New"+f.Container.Name, "constructor"); err != nil {
			return err
		}
	}
	for _, d := range f.Decls {
		if err := claim(d.DeclName(), "type"); err != nil {
			return err
		}
		if e, ok := d.(*codegen.EnumDecl); ok {
			for _, v := range e.Values {
				if err := claim(v.Name, "constant of "+e.Name); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
