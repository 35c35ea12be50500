// Package config loads console settings from the environment and an optional
// YAML file. Environment variables always win over the file.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Prefix is the environment variable prefix for every setting.
const Prefix = "GEOAI"

// Config holds all application configuration.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development" yaml:"environment"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" yaml:"log_level"`
	ConfigFile  string `envconfig:"CONFIG_FILE" yaml:"-"`

	// GeoAI REST API
	BaseURL        string        `envconfig:"BASE_URL" default:"http://localhost:8000" yaml:"base_url"`
	HTTPTimeout    time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s" yaml:"http_timeout"`
	RetryAttempts  int           `envconfig:"RETRY_ATTEMPTS" default:"3" yaml:"retry_attempts"`
	RateLimitRPS   float64       `envconfig:"RATE_LIMIT_RPS" default:"10" yaml:"rate_limit_rps"`
	RateLimitBurst int           `envconfig:"RATE_LIMIT_BURST" default:"20" yaml:"rate_limit_burst"`
	LookupCacheTTL time.Duration `envconfig:"LOOKUP_CACHE_TTL" default:"5m" yaml:"lookup_cache_ttl"`

	// Local state
	StateDB string `envconfig:"STATE_DB" yaml:"state_db"`

	// Polling and alerts
	CreatePollInterval time.Duration `envconfig:"CREATE_POLL_INTERVAL" default:"5s" yaml:"create_poll_interval"`
	TaskPollInterval   time.Duration `envconfig:"TASK_POLL_INTERVAL" default:"10s" yaml:"task_poll_interval"`
	FilesPollInterval  time.Duration `envconfig:"FILES_POLL_INTERVAL" default:"5s" yaml:"files_poll_interval"`
	AlertTTL           time.Duration `envconfig:"ALERT_TTL" default:"6s" yaml:"alert_ttl"`
	PageLimit          int           `envconfig:"PAGE_LIMIT" default:"10" yaml:"page_limit"`

	// Console API
	ConsoleListenAddr  string `envconfig:"CONSOLE_LISTEN_ADDR" default:"127.0.0.1:8090" yaml:"console_listen_addr"`
	ConsoleAuthMode    string `envconfig:"CONSOLE_AUTH_MODE" default:"api-key" yaml:"console_auth_mode"`
	ConsoleAPIKey      string `envconfig:"CONSOLE_API_KEY" yaml:"console_api_key"`
	ConsoleCORSOrigins string `envconfig:"CONSOLE_CORS_ORIGINS" yaml:"console_cors_origins"`
	ConsoleRateRPS     float64 `envconfig:"CONSOLE_RATE_RPS" default:"20" yaml:"console_rate_rps"`
	ConsoleRateBurst   int     `envconfig:"CONSOLE_RATE_BURST" default:"40" yaml:"console_rate_burst"`
}

// Load reads configuration from GEOAI_* environment variables, layered over
// the YAML file named by GEOAI_CONFIG_FILE when set.
func Load() (*Config, error) {
	return LoadWithPrefix(Prefix, "")
}

// LoadWithPrefix reads configuration with a prefix. A non-empty file
// overrides the CONFIG_FILE variable.
func LoadWithPrefix(prefix, file string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return nil, fmt.Errorf("loading config with prefix %s: %w", prefix, err)
	}

	if file == "" {
		file = cfg.ConfigFile
	}
	if file != "" {
		fc, err := ReadFile(file)
		if err != nil {
			return nil, err
		}
		cfg.overlay(fc, prefix)
		cfg.ConfigFile = file
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ReadFile parses a YAML config file, expanding ${VAR} references first.
func ReadFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return ParseYAML(raw)
}

// ParseYAML parses YAML config bytes.
func ParseYAML(data []byte) (*Config, error) {
	var fc Config
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), &fc); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	return &fc, nil
}

// overlay copies values set in the file unless the matching environment
// variable was given explicitly.
func (c *Config) overlay(f *Config, prefix string) {
	fromEnv := func(key string) bool {
		name := key
		if prefix != "" {
			name = prefix + "_" + key
		}
		_, ok := os.LookupEnv(name)
		return ok
	}
	str := func(dst *string, v, key string) {
		if v != "" && !fromEnv(key) {
			*dst = v
		}
	}
	dur := func(dst *time.Duration, v time.Duration, key string) {
		if v > 0 && !fromEnv(key) {
			*dst = v
		}
	}
	num := func(dst *int, v int, key string) {
		if v > 0 && !fromEnv(key) {
			*dst = v
		}
	}

	str(&c.Environment, f.Environment, "ENVIRONMENT")
	str(&c.LogLevel, f.LogLevel, "LOG_LEVEL")
	str(&c.BaseURL, f.BaseURL, "BASE_URL")
	dur(&c.HTTPTimeout, f.HTTPTimeout, "HTTP_TIMEOUT")
	num(&c.RetryAttempts, f.RetryAttempts, "RETRY_ATTEMPTS")
	if f.RateLimitRPS > 0 && !fromEnv("RATE_LIMIT_RPS") {
		c.RateLimitRPS = f.RateLimitRPS
	}
	num(&c.RateLimitBurst, f.RateLimitBurst, "RATE_LIMIT_BURST")
	dur(&c.LookupCacheTTL, f.LookupCacheTTL, "LOOKUP_CACHE_TTL")
	str(&c.StateDB, f.StateDB, "STATE_DB")
	dur(&c.CreatePollInterval, f.CreatePollInterval, "CREATE_POLL_INTERVAL")
	dur(&c.TaskPollInterval, f.TaskPollInterval, "TASK_POLL_INTERVAL")
	dur(&c.FilesPollInterval, f.FilesPollInterval, "FILES_POLL_INTERVAL")
	dur(&c.AlertTTL, f.AlertTTL, "ALERT_TTL")
	num(&c.PageLimit, f.PageLimit, "PAGE_LIMIT")
	str(&c.ConsoleListenAddr, f.ConsoleListenAddr, "CONSOLE_LISTEN_ADDR")
	str(&c.ConsoleAuthMode, f.ConsoleAuthMode, "CONSOLE_AUTH_MODE")
	str(&c.ConsoleAPIKey, f.ConsoleAPIKey, "CONSOLE_API_KEY")
	str(&c.ConsoleCORSOrigins, f.ConsoleCORSOrigins, "CONSOLE_CORS_ORIGINS")
	if f.ConsoleRateRPS > 0 && !fromEnv("CONSOLE_RATE_RPS") {
		c.ConsoleRateRPS = f.ConsoleRateRPS
	}
	num(&c.ConsoleRateBurst, f.ConsoleRateBurst, "CONSOLE_RATE_BURST")
}

// Validate checks settings that would otherwise fail later and obscurely.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: invalid base URL %q", c.BaseURL)
	}
	for name, d := range map[string]time.Duration{
		"create poll interval": c.CreatePollInterval,
		"task poll interval":   c.TaskPollInterval,
		"files poll interval":  c.FilesPollInterval,
		"alert ttl":            c.AlertTTL,
	} {
		if d <= 0 {
			return fmt.Errorf("config: %s must be positive", name)
		}
	}
	if c.PageLimit <= 0 {
		return fmt.Errorf("config: page limit must be positive")
	}
	switch c.ConsoleAuthMode {
	case "api-key", "none":
	default:
		return fmt.Errorf("config: unknown console auth mode %q", c.ConsoleAuthMode)
	}
	return nil
}

// IsDevelopment reports whether human-readable logging should be used.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

// StatePath returns the state database path, defaulting to the user config dir.
func (c *Config) StatePath() string {
	if c.StateDB != "" {
		return c.StateDB
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "geoai-state.db"
	}
	return filepath.Join(dir, "geoai", "state.db")
}

// CORSOriginList returns the parsed list of allowed console origins.
func (c *Config) CORSOriginList() []string {
	if c.ConsoleCORSOrigins == "" {
		return nil
	}
	var origins []string
	for _, o := range strings.Split(c.ConsoleCORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// envVarPattern matches ${VAR_NAME} and $VAR_NAME.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandEnvVars replaces ${VAR} and $VAR with the environment value.
// Missing vars become empty strings.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.TrimPrefix(match, "${")
		name = strings.TrimSuffix(name, "}")
		name = strings.TrimPrefix(name, "$")
		return os.Getenv(name)
	})
}
