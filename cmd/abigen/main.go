// Command abigen generates typed Go clients from contract ABI manifests.
//
// Usage:
//
//	abigen [generate] [flags] manifest.json [manifest.json ...]
//	abigen inspect [flags] manifest.json
//
// Exit codes:
//
//	0  Every manifest was generated (warnings allowed unless --strict)
//	1  One or more manifests failed to generate
//	2  Usage or configuration error (bad flags, missing output directory)
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/foundry-zero/abigen/internal/compiler"
	"github.com/foundry-zero/abigen/internal/config"
)

const version = "0.1.0"

const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	return (&cli{stdout: stdout, stderr: stderr}).run(args)
}

func (c *cli) run(args []string) int {
	stdout, stderr := c.stdout, c.stderr
	root := c.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	return c.code
}

type cli struct {
	stdout, stderr io.Writer
	code           int

	// compilerOpts are passed to every compiler the command creates.
	compilerOpts []compiler.Option

	configFile string
	logLevel   string

	// genFlags holds the flags that map onto config keys.
	genFlags *pflag.FlagSet
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "abigen [manifest ...]",
		Short:         "Generate typed Go clients from contract ABI manifests",
		Version:       version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          c.runGenerate,
	}
	root.SetVersionTemplate("abigen {{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVar(&c.configFile, "config", "", "configuration file (YAML, TOML or JSON)")
	pf.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn or error")

	c.genFlags = pflag.NewFlagSet("generate", pflag.ContinueOnError)
	c.genFlags.String("out-dir", "", "directory generated files are written to (default $OUT_DIR)")
	c.genFlags.String("package", config.Default.Package, "package name of generated files")
	c.genFlags.String("container", config.Default.Container, "name of the generated client type")
	c.genFlags.String("runtime-import", config.Default.RuntimeImport, "import path of the contract runtime")
	c.genFlags.Bool("format", config.Default.Format, "gofmt generated files")
	c.genFlags.Bool("strict", false, "treat formatting warnings as errors")
	c.genFlags.String("report", "text", "report format: text or json")
	c.genFlags.Bool("quiet", false, "suppress the report (exit code only)")
	pf.AddFlagSet(c.genFlags)

	root.AddCommand(
		&cobra.Command{
			Use:   "generate [manifest ...]",
			Short: "Generate a client for each manifest",
			RunE:  c.runGenerate,
		},
		&cobra.Command{
			Use:   "inspect manifest",
			Short: "Show the types and methods a manifest generates",
			Args:  cobra.ExactArgs(1),
			RunE:  c.runInspect,
		},
	)
	return root
}

var flagKeys = map[string]string{
	"out-dir":        config.CfgOutDir,
	"package":        config.CfgPackage,
	"container":      config.CfgContainer,
	"runtime-import": config.CfgRuntimeImport,
	"format":         config.CfgFormat,
	"strict":         config.CfgStrict,
}

// loadConfig merges flags, environment, the optional config file and
// defaults, in that order of precedence.
func (c *cli) loadConfig() (*config.Config, error) {
	v := config.NewViper()
	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, c.genFlags.Lookup(flag)); err != nil {
			return nil, err
		}
	}
	if c.configFile != "" {
		if err := config.ReadFile(v, c.configFile); err != nil {
			return nil, err
		}
	}
	if c.logLevel != "" {
		v.Set(config.CfgLogLevel, c.logLevel)
	}
	return config.Load(v)
}

func (c *cli) newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(c.stderr), level)
	return zap.New(core), nil
}

func (c *cli) stringFlag(name string) string {
	s, _ := c.genFlags.GetString(name)
	return s
}

func (c *cli) boolFlag(name string) bool {
	b, _ := c.genFlags.GetBool(name)
	return b
}

func manifests(args []string, cfg *config.Config) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	if len(cfg.Manifests) > 0 {
		return cfg.Manifests, nil
	}
	return nil, errors.New("no input manifests specified")
}

func reportFormat(s string) error {
	if s != "text" && s != "json" {
		return fmt.Errorf("invalid report format %q (use text or json)", s)
	}
	return nil
}
