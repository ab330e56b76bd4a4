package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/foundry-zero/abigen/internal/codegen"
	"github.com/foundry-zero/abigen/internal/compiler"
	"github.com/foundry-zero/abigen/internal/report"
)

func (c *cli) runInspect(_ *cobra.Command, args []string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	logger, err := c.newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	comp, err := compiler.New(cfg, logger, c.compilerOpts...)
	if err != nil {
		return err
	}
	path := args[0]
	res, err := comp.Compile(path)
	if err != nil {
		r := report.NewReport(path)
		for _, e := range compiler.Split(err) {
			r.AddError(e)
		}
		fmt.Fprint(c.stdout, report.FormatText(r))
		c.code = exitFailed
		return nil
	}

	fmt.Fprintf(c.stdout, "File: %s (%s)\n\nTypes:\n", path, res.ABI.Shape)
	types := newTable(c, "ID", "Go type")
	for _, id := range res.Registry.IDs() {
		t, _ := res.Registry.Resolve(id)
		types.Append([]string{strconv.FormatUint(uint64(id), 10), t.String()})
	}
	types.Render()

	fmt.Fprintf(c.stdout, "\nMethods of %s:\n", res.File.Container.Name)
	methods := newTable(c, "Method", "Go name", "Convention", "Parameters", "Result")
	for _, m := range res.File.Container.Methods {
		methods.Append([]string{m.Remote, m.Name, m.Convention.String(), params(m), result(m)})
	}
	methods.Render()
	return nil
}

func newTable(c *cli, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(c.stdout)
	table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	table.SetCenterSeparator("|")
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader(header)
	return table
}

func params(m codegen.Method) string {
	if len(m.Params) == 0 {
		return "-"
	}
	out := make([]string, 0, len(m.Params))
	for _, p := range m.Params {
		out = append(out, p.Name+" "+p.Type.String())
	}
	return strings.Join(out, ", ")
}

func result(m codegen.Method) string {
	if m.Result == nil {
		return "-"
	}
	return m.Result.String()
}
