package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultModel     = "gemini-3-pro-preview"
	DefaultBaseURL   = "https://generativelanguage.googleapis.com/v1beta"
	DefaultTransport = TransportREST
	DefaultMaxRows   = 500
	DefaultAddr      = ":8080"

	TransportREST = "rest"
	TransportSDK  = "sdk"
)

// Drivers lists the supported row sources.
var Drivers = []string{"sqlite", "duckdb", "pgx", "csv"}

// Secret is a credential that masks itself when printed.
type Secret string

// String masks the secret, keeping the first and last four characters of long values.
func (s Secret) String() string {
	if s == "" {
		return "Not set"
	}
	if len(s) > 8 {
		return string(s[:4]) + "****" + string(s[len(s)-4:])
	}
	return "****"
}

// Reveal returns the raw secret for use on the wire.
func (s Secret) Reveal() string { return string(s) }

// IsSet reports whether a secret was configured.
func (s Secret) IsSet() bool { return strings.TrimSpace(string(s)) != "" }

type Config struct {
	APIKey      Secret `yaml:"api_key,omitempty" koanf:"api_key"`
	Model       string `yaml:"model" koanf:"model"`
	Persona     string `yaml:"persona,omitempty" koanf:"persona"`
	PersonaName string `yaml:"persona_name,omitempty" koanf:"persona_name"`
	Transport   string `yaml:"transport" koanf:"transport"`
	BaseURL     string `yaml:"base_url,omitempty" koanf:"base_url"`
	MaxRows     int    `yaml:"max_rows" koanf:"max_rows"`

	Source SourceConfig `yaml:"source" koanf:"source"`
	Server ServerConfig `yaml:"server" koanf:"server"`
	Log    LogConfig    `yaml:"log" koanf:"log"`
}

// SourceConfig selects where rows come from.
type SourceConfig struct {
	Driver string            `yaml:"driver" koanf:"driver"`
	DSN    string            `yaml:"dsn,omitempty" koanf:"dsn"`
	Query  string            `yaml:"query,omitempty" koanf:"query"`
	File   string            `yaml:"file,omitempty" koanf:"file"`
	Labels map[string]string `yaml:"labels,omitempty" koanf:"labels"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" koanf:"addr"`
}

type LogConfig struct {
	Level string `yaml:"level" koanf:"level"`
	File  string `yaml:"file,omitempty" koanf:"file"`
}

// Generation is the read-only view of the settings one narrative request needs.
type Generation struct {
	APIKey    Secret
	Persona   string
	ModelName string
}

func DefaultConfig() *Config {
	return &Config{
		Model:       DefaultModel,
		PersonaName: "chronarch",
		Transport:   DefaultTransport,
		BaseURL:     DefaultBaseURL,
		MaxRows:     DefaultMaxRows,
		Source: SourceConfig{
			Driver: "sqlite",
		},
		Server: ServerConfig{
			Addr: DefaultAddr,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Generation returns the per-request generation settings. Persona is the
// inline persona text only; library lookups happen in the persona package.
func (c *Config) Generation() Generation {
	model := strings.TrimSpace(c.Model)
	if model == "" {
		model = DefaultModel
	}
	return Generation{
		APIKey:    c.APIKey,
		Persona:   c.Persona,
		ModelName: model,
	}
}

// Validate reports configuration values that cannot work.
func (c *Config) Validate() error {
	var errs []error

	switch c.Transport {
	case TransportREST, TransportSDK:
	default:
		errs = append(errs, fmt.Errorf("unknown transport %q (want %q or %q)", c.Transport, TransportREST, TransportSDK))
	}

	if c.MaxRows <= 0 {
		errs = append(errs, fmt.Errorf("max_rows must be positive, got %d", c.MaxRows))
	}

	if c.Source.Driver != "" && !knownDriver(c.Source.Driver) {
		errs = append(errs, fmt.Errorf("unknown source driver %q (available: %s)", c.Source.Driver, strings.Join(Drivers, ", ")))
	}

	return errors.Join(errs...)
}

func knownDriver(name string) bool {
	for _, d := range Drivers {
		if d == name {
			return true
		}
	}
	return false
}

func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "narrator"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Exists reports whether a config file is present at path, or at the default
// location when path is empty.
func Exists(path string) bool {
	if path == "" {
		var err error
		if path, err = ConfigPath(); err != nil {
			return false
		}
	}
	_, err := os.Stat(path)
	return err == nil
}

// Save writes the config as YAML to path, or to the default location when
// path is empty.
func (c *Config) Save(path string) error {
	if path == "" {
		var err error
		if path, err = ConfigPath(); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}
