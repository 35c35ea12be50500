package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "geoai.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "http://localhost:8000", cfg.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.CreatePollInterval)
	assert.Equal(t, 10*time.Second, cfg.TaskPollInterval)
	assert.Equal(t, 6*time.Second, cfg.AlertTTL)
	assert.Equal(t, 10, cfg.PageLimit)
	assert.Equal(t, "api-key", cfg.ConsoleAuthMode)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_EnvOverrides(t *testing.T) {
	os.Clearenv()
	t.Setenv("GEOAI_BASE_URL", "https://geoai.example.com")
	t.Setenv("GEOAI_TASK_POLL_INTERVAL", "2s")
	t.Setenv("GEOAI_ENVIRONMENT", "production")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://geoai.example.com", cfg.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.TaskPollInterval)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoad_FileLayeredUnderEnv(t *testing.T) {
	os.Clearenv()
	t.Setenv("GEOAI_TOKEN", "secret-key")
	path := writeFile(t, `
base_url: https://file.example.com
create_poll_interval: 1s
page_limit: 25
console_api_key: ${GEOAI_TOKEN}
log_level: debug
`)
	t.Setenv("GEOAI_LOG_LEVEL", "warn")

	cfg, err := LoadWithPrefix(Prefix, path)
	require.NoError(t, err)
	assert.Equal(t, "https://file.example.com", cfg.BaseURL)
	assert.Equal(t, time.Second, cfg.CreatePollInterval)
	assert.Equal(t, 25, cfg.PageLimit)
	assert.Equal(t, "secret-key", cfg.ConsoleAPIKey)
	assert.Equal(t, "warn", cfg.LogLevel, "explicit env var wins over the file")
	assert.Equal(t, 10*time.Second, cfg.TaskPollInterval, "unset keys keep defaults")
	assert.Equal(t, path, cfg.ConfigFile)
}

func TestLoad_ConfigFileFromEnv(t *testing.T) {
	os.Clearenv()
	path := writeFile(t, "alert_ttl: 3s\n")
	t.Setenv("GEOAI_CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.AlertTTL)
}

func TestLoad_MissingFile(t *testing.T) {
	os.Clearenv()
	_, err := LoadWithPrefix(Prefix, filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad url", "GEOAI_BASE_URL", "not a url"},
		{"zero interval", "GEOAI_CREATE_POLL_INTERVAL", "0s"},
		{"bad auth mode", "GEOAI_CONSOLE_AUTH_MODE", "oauth"},
		{"bad duration", "GEOAI_ALERT_TTL", "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestParseYAML_Invalid(t *testing.T) {
	_, err := ParseYAML([]byte("base_url: [unterminated"))
	assert.Error(t, err)
}

func TestStatePath(t *testing.T) {
	cfg := &Config{StateDB: "/tmp/x.db"}
	assert.Equal(t, "/tmp/x.db", cfg.StatePath())

	cfg.StateDB = ""
	assert.NotEmpty(t, cfg.StatePath())
}

func TestCORSOriginList(t *testing.T) {
	cfg := &Config{ConsoleCORSOrigins: " http://a.test, ,http://b.test "}
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOriginList())

	cfg.ConsoleCORSOrigins = ""
	assert.Nil(t, cfg.CORSOriginList())
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("HOST", "geoai")
	assert.Equal(t, "http://geoai:8000", expandEnvVars("http://${HOST}:8000"))
	assert.Equal(t, "geoai-", expandEnvVars("$HOST-$MISSING_VAR_XYZ"))
}
