package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is stripped from environment variables before they are mapped to
// config keys. A double underscore marks nesting: NARRATOR_SOURCE__DSN -> source.dsn.
const EnvPrefix = "NARRATOR_"

// apiKeyEnvFallbacks fill api_key when no other layer set it.
var apiKeyEnvFallbacks = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}

// flagKeys maps CLI flag names to config keys where they differ.
var flagKeys = map[string]string{
	"api-key":  "api_key",
	"persona":  "persona_name",
	"driver":   "source.driver",
	"dsn":      "source.dsn",
	"query":    "source.query",
	"file":     "source.file",
	"addr":     "server.addr",
	"log-file": "log.file",
	"max-rows": "max_rows",
}

// Load reads configuration from defaults, the YAML file, environment variables
// and explicitly set flags, in increasing order of precedence. path may be
// empty, in which case the default location is used if it exists. The returned
// string is the config file actually read ("" when none was found).
func Load(path string, flags *pflag.FlagSet) (*Config, string, error) {
	k := koanf.New(".")

	def := DefaultConfig()
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"model":         def.Model,
		"persona_name":  def.PersonaName,
		"transport":     def.Transport,
		"base_url":      def.BaseURL,
		"max_rows":      def.MaxRows,
		"source.driver": def.Source.Driver,
		"server.addr":   def.Server.Addr,
		"log.level":     def.Log.Level,
	}, "."), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load defaults: %w", err)
	}

	used := path
	if used == "" {
		if p, err := ConfigPath(); err == nil && Exists(p) {
			used = p
		}
	}
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, "", fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, "", fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, "", fmt.Errorf("unable to decode config: %w", err)
	}

	if !cfg.APIKey.IsSet() {
		for _, name := range apiKeyEnvFallbacks {
			if v := os.Getenv(name); v != "" {
				cfg.APIKey = Secret(v)
				break
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, used, err
	}

	return &cfg, used, nil
}
