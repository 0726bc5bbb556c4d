package configs

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// envPrefix is the prefix for all environment variables, e.g. TOOLARR_API_KEY.
const envPrefix = "toolarr"

// FileConfig defines the structure loaded from the YAML configuration file.
// Everything here can also come from environment variables, which win.
type FileConfig struct {
	ServerURL string            `yaml:"server_url"`
	APIKey    string            `yaml:"api_key"`
	SchemaURL string            `yaml:"schema_url"`
	CoreTools []string          `yaml:"core_tools"`
	Simplify  map[string]struct {
		Fields []string `yaml:"fields"`
	} `yaml:"simplify"`
}

// Config holds the final application configuration, merged from the YAML file
// and TOOLARR_-prefixed environment variables (env wins).
type Config struct {
	// Config file path, loaded from env first.
	ConfigFilePath string `envconfig:"CONFIG_FILE" default:"configs/toolarr.yaml"`

	// Upstream media server.
	ServerURL string `envconfig:"SERVER_URL" default:"http://localhost:8989"`
	APIKey    string `envconfig:"API_KEY"`

	// Explicit schema document URL. Empty means derive it from ServerURL by
	// probing the well-known schema paths.
	SchemaURL string `envconfig:"SCHEMA_URL"`

	// Names of catalog tools registered directly on the MCP server at
	// startup, alongside the meta-tools.
	CoreTools []string `envconfig:"CORE_TOOLS" default:"get_series,get_series_by_id,get_calendar,get_queue,get_wanted_missing"`

	// Per-category response field allowlists, from the YAML file only. Empty
	// selects the built-in defaults.
	SimplifyFields map[string][]string

	ListenAddr               string        `envconfig:"LISTEN_ADDR" default:":8080"`
	HTTPClientTimeout        time.Duration `envconfig:"HTTP_CLIENT_TIMEOUT" default:"30s"`
	ShutdownTimeout          time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
	ServerReadTimeout        time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"5s"`
	ServerWriteTimeout       time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"10s"`
	ServerIdleTimeout        time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"120s"`
	OtelExporterOtlpEndpoint string        `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelExporterOtlpInsecure bool          `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"true"`
	LogLevel                 string        `envconfig:"LOG_LEVEL" default:"info"`

	// LogFile redirects logs when the MCP transport owns stdout (stdio mode).
	LogFile string `envconfig:"LOG_FILE"`
}

// SchemaSourceURL returns the URL the schema fetcher should start from.
func (c *Config) SchemaSourceURL() string {
	if c.SchemaURL != "" {
		return c.SchemaURL
	}
	return c.ServerURL
}

// SchemaHeaders returns the headers sent when fetching the schema document.
func (c *Config) SchemaHeaders() map[string]string {
	if c.APIKey == "" {
		return nil
	}
	return map[string]string{"X-Api-Key": c.APIKey}
}

// ParsedLogLevel returns the slog.Level for the configured LogLevel string.
func (c *Config) ParsedLogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info":
		fallthrough
	default:
		return slog.LevelInfo
	}
}

// Load loads configuration first from environment variables (to get the file
// path), then from the YAML file, and finally re-applies environment variables
// so they override file settings.
func Load() (*Config, error) {
	var initialCfg Config
	if err := envconfig.Process(envPrefix, &initialCfg); err != nil {
		return nil, fmt.Errorf("failed to process initial environment variables: %w", err)
	}

	fileCfg := FileConfig{}
	explicitPath := envSet("CONFIG_FILE")
	if initialCfg.ConfigFilePath != "" {
		yamlFile, err := os.ReadFile(initialCfg.ConfigFilePath)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(yamlFile, &fileCfg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal config file %q: %w", initialCfg.ConfigFilePath, err)
			}
			slog.Info("Loaded configuration from file.", "path", initialCfg.ConfigFilePath)
		case errors.Is(err, fs.ErrNotExist) && !explicitPath:
			// Default path absent is fine; env vars carry the config.
			slog.Info("No config file found, using defaults and environment variables.",
				"path", initialCfg.ConfigFilePath)
		default:
			return nil, fmt.Errorf("failed to read config file %q: %w", initialCfg.ConfigFilePath, err)
		}
	}

	// File values fill in only where the environment did not set the field
	// explicitly, so env always wins without a second envconfig pass (which
	// would re-apply defaults over file values).
	finalCfg := initialCfg
	if fileCfg.ServerURL != "" && !envSet("SERVER_URL") {
		finalCfg.ServerURL = fileCfg.ServerURL
	}
	if fileCfg.APIKey != "" && !envSet("API_KEY") {
		finalCfg.APIKey = fileCfg.APIKey
	}
	if fileCfg.SchemaURL != "" && !envSet("SCHEMA_URL") {
		finalCfg.SchemaURL = fileCfg.SchemaURL
	}
	if len(fileCfg.CoreTools) > 0 && !envSet("CORE_TOOLS") {
		finalCfg.CoreTools = fileCfg.CoreTools
	}
	if len(fileCfg.Simplify) > 0 {
		finalCfg.SimplifyFields = make(map[string][]string, len(fileCfg.Simplify))
		for category, policy := range fileCfg.Simplify {
			finalCfg.SimplifyFields[category] = policy.Fields
		}
	}
	return &finalCfg, nil
}

func envSet(name string) bool {
	_, ok := os.LookupEnv(strings.ToUpper(envPrefix) + "_" + name)
	return ok
}
