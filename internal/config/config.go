package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/fd-manager/fdm/internal/normalize"
)

// FileName is the default config file name, written by "fdm init".
const FileName = "fdm.yaml"

// Environment variables that override the file.
const (
	EnvPassword = "FDM_PASSWORD"
	EnvAddr     = "FDM_ADDR"
)

// DefaultPassword is the shared password of a new install.
const DefaultPassword = "mysecurepass"

// Config represents the top-level fdm.yaml configuration.
type Config struct {
	Auth     AuthConfig     `yaml:"auth"`
	Columns  ColumnsConfig  `yaml:"columns"`
	Maturity MaturityConfig `yaml:"maturity"`
	Server   ServerConfig   `yaml:"server"`
	Export   ExportConfig   `yaml:"export"`
}

// AuthConfig holds the shared password that gates the web UI.
type AuthConfig struct {
	Password string `yaml:"password"`
}

// ColumnsConfig controls how uploaded headers map to record fields.
type ColumnsConfig struct {
	Mode         string            `yaml:"mode"` // "strict" or "preserve"
	LooseHeaders bool              `yaml:"loose_headers"`
	DayFirst     bool              `yaml:"day_first"`
	Aliases      map[string]string `yaml:"aliases,omitempty"` // merged over the built-in aliases
}

// MaturityConfig controls derived maturity dates and the maturing-soon flag.
type MaturityConfig struct {
	TermMonths int `yaml:"term_months"`
	SoonDays   int `yaml:"soon_days"`
}

// ServerConfig controls "fdm serve".
type ServerConfig struct {
	Addr          string        `yaml:"addr"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	SweepSchedule string        `yaml:"sweep_schedule"` // cron spec for pruning idle sessions
}

// ExportConfig controls downloads.
type ExportConfig struct {
	Format   string `yaml:"format"`
	FileName string `yaml:"file_name"`
}

// Load reads an fdm.yaml file from disk. Fields the file omits keep their
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields Default.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new install.
func Default() *Config {
	return &Config{
		Auth: AuthConfig{Password: DefaultPassword},
		Columns: ColumnsConfig{
			Mode:     string(normalize.ModeStrict),
			DayFirst: true,
		},
		Maturity: MaturityConfig{
			TermMonths: 60,
			SoonDays:   30,
		},
		Server: ServerConfig{
			Addr:          ":8080",
			SessionTTL:    12 * time.Hour,
			SweepSchedule: "@every 10m",
		},
		Export: ExportConfig{
			Format:   "xlsx",
			FileName: "updated_fdr.xlsx",
		},
	}
}

// LoadEnvFile loads variables from a .env file into the process
// environment. A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from environment variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvPassword); ok && v != "" {
		c.Auth.Password = v
	}
	if v, ok := lookup(EnvAddr); ok && v != "" {
		c.Server.Addr = v
	}
}

// Validate checks the config for values the application cannot run with.
func (c *Config) Validate() error {
	var problems []string
	if c.Auth.Password == "" {
		problems = append(problems, "auth.password must not be empty")
	}
	if c.Maturity.SoonDays < 0 {
		problems = append(problems, "maturity.soon_days must not be negative")
	}
	if c.Server.Addr == "" {
		problems = append(problems, "server.addr must not be empty")
	}
	if c.Server.SessionTTL <= 0 {
		problems = append(problems, "server.session_ttl must be positive")
	}
	switch strings.ToLower(c.Export.Format) {
	case "xlsx", "csv":
	default:
		problems = append(problems, fmt.Sprintf("export.format %q must be xlsx or csv", c.Export.Format))
	}
	if err := c.NormalizeOptions().Validate(); err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// NormalizeOptions returns the normalization options described by the config.
func (c *Config) NormalizeOptions() normalize.Options {
	opts := normalize.DefaultOptions()
	opts.Aliases = normalize.MergeAliases(opts.Aliases, c.Columns.Aliases)
	opts.Mode = normalize.Mode(strings.ToLower(c.Columns.Mode))
	opts.LooseHeaders = c.Columns.LooseHeaders
	opts.DayFirst = c.Columns.DayFirst
	opts.TermMonths = c.Maturity.TermMonths
	return opts
}

// SoonHorizon is how close to maturity a deposit is flagged.
func (c *Config) SoonHorizon() time.Duration {
	return time.Duration(c.Maturity.SoonDays) * 24 * time.Hour
}
