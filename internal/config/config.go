// Package config loads generator settings from flags, environment and an
// optional configuration file.
package config

import (
	"errors"
	"fmt"
	"go/token"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
	"golang.org/x/mod/module"
)

// Configuration keys.
const (
	CfgOutDir        = "out_dir"
	CfgPackage       = "package"
	CfgContainer     = "container"
	CfgRuntimeImport = "runtime_import"
	CfgFormat        = "format"
	CfgStrict        = "strict"
	CfgLogLevel      = "log_level"
	CfgManifests     = "manifests"
)

// EnvPrefix is prepended to every key to form its environment variable.
const EnvPrefix = "ABIGEN"

// DefaultRuntimeImport is the runtime package generated clients import.
const DefaultRuntimeImport = "github.com/foundry-zero/abigen/pkg/contract"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds the generator settings.
type Config struct {
	OutDir        string   `mapstructure:"out_dir"`
	Package       string   `mapstructure:"package"`
	Container     string   `mapstructure:"container"`
	RuntimeImport string   `mapstructure:"runtime_import"`
	Format        bool     `mapstructure:"format"`
	Strict        bool     `mapstructure:"strict"`
	LogLevel      string   `mapstructure:"log_level"`
	Manifests     []string `mapstructure:"manifests"`
}

// Default is the configuration used when nothing is set.
var Default = Config{
	Package:       "ext",
	Container:     "ExtContract",
	RuntimeImport: DefaultRuntimeImport,
	Format:        true,
	LogLevel:      "info",
	Manifests:     []string{},
}

// NewViper returns a viper instance with defaults registered and the
// environment bound. out_dir additionally falls back to $OUT_DIR.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv(CfgOutDir, EnvPrefix+"_OUT_DIR", "OUT_DIR")

	v.SetDefault(CfgOutDir, Default.OutDir)
	v.SetDefault(CfgPackage, Default.Package)
	v.SetDefault(CfgContainer, Default.Container)
	v.SetDefault(CfgRuntimeImport, Default.RuntimeImport)
	v.SetDefault(CfgFormat, Default.Format)
	v.SetDefault(CfgStrict, Default.Strict)
	v.SetDefault(CfgLogLevel, Default.LogLevel)
	v.SetDefault(CfgManifests, Default.Manifests)
	return v
}

// ReadFile merges the configuration file at path into v. The format is
// taken from the file extension.
func ReadFile(v *viper.Viper, path string) error {
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("%w: read config file %s: %v", ErrInvalid, path, err)
	}
	return nil
}

// Load decodes the settings held by v.
func Load(v *viper.Viper) (*Config, error) {
	cfg := Default
	cfg.Manifests = nil
	hook := viper.DecodeHook(mapstructure.StringToSliceHookFunc(","))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	cfg.Manifests = trimEmpty(cfg.Manifests)
	return &cfg, nil
}

// Validate checks everything a generation run needs.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.OutDir) == "" {
		return fmt.Errorf("%w: %s is required (flag --out-dir, $%s_OUT_DIR or $OUT_DIR)", ErrInvalid, CfgOutDir, EnvPrefix)
	}
	return c.ValidateNames()
}

// ValidateNames checks the identifiers and import path used in generated
// code, and the log level.
func (c *Config) ValidateNames() error {
	if !token.IsIdentifier(c.Package) || c.Package == "_" {
		return fmt.Errorf("%w: %s %q is not a Go package name", ErrInvalid, CfgPackage, c.Package)
	}
	if !token.IsIdentifier(c.Container) || !token.IsExported(c.Container) {
		return fmt.Errorf("%w: %s %q is not an exported Go identifier", ErrInvalid, CfgContainer, c.Container)
	}
	if err := module.CheckImportPath(c.RuntimeImport); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalid, CfgRuntimeImport, err)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (zapcore.Level, error) {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return lvl, fmt.Errorf("%w: %s: %v", ErrInvalid, CfgLogLevel, err)
	}
	return lvl, nil
}

func trimEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
