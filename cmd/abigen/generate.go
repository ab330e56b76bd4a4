package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foundry-zero/abigen/internal/compiler"
	"github.com/foundry-zero/abigen/internal/report"
)

func (c *cli) runGenerate(_ *cobra.Command, args []string) error {
	format := c.stringFlag("report")
	if err := reportFormat(format); err != nil {
		return err
	}
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	paths, err := manifests(args, cfg)
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
	reports := comp.Run(paths)

	for _, r := range reports {
		if r.HasErrors() || (cfg.Strict && r.HasWarnings()) {
			c.code = exitFailed
		}
	}
	if c.boolFlag("quiet") {
		return nil
	}
	return c.printReports(reports, format)
}

func (c *cli) printReports(reports []*report.Report, format string) error {
	switch format {
	case "json":
		data, err := report.FormatJSONAll(reports)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.stdout, string(data))
	default:
		for _, r := range reports {
			fmt.Fprint(c.stdout, report.FormatText(r))
		}
	}
	return nil
}
