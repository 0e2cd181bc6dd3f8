package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultsWhenFileMissing(t *testing.T) {
	c, err := LoadFrom(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	assert.Equal(t, "3000", c.AppPort)
	assert.Equal(t, 168, c.TokenTTLHours)
	assert.Equal(t, 60, c.RateLimitPerMinute)
	assert.Equal(t, []string{"*"}, c.AllowedOrigins)
	assert.Equal(t, "mysql", c.DBDriver)
	assert.Equal(t, "3306", c.DBPort)
	assert.Equal(t, 6379, c.RedisPort)
	assert.Equal(t, "release", c.GinMode)
	assert.NotEmpty(t, c.LocalStorePath)
}

func TestGroupedSectionsWinOverFlatKeys(t *testing.T) {
	path := writeConfig(t, `{
		"AppPort": "8080",
		"JWTSecret": "flat",
		"app": {"JWTSecret": "grouped", "SeedDemo": true},
		"database": {"DBDriver": "postgres", "DBName": "forum"},
		"redis": {"RedisHost": "cache"},
		"local": {"LocalStorePath": "/tmp/qf"}
	}`)

	c, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "8080", c.AppPort)
	assert.Equal(t, "grouped", c.JWTSecret)
	assert.True(t, c.SeedDemo)
	assert.Equal(t, "postgres", c.DBDriver)
	assert.Equal(t, "5432", c.DBPort, "postgres picks its own default port")
	assert.Equal(t, "forum", c.DBName)
	assert.Equal(t, "cache", c.RedisHost)
	assert.Equal(t, "/tmp/qf", c.LocalStorePath)
}

func TestInvalidJSONFails(t *testing.T) {
	_, err := LoadFrom(writeConfig(t, `{"AppPort":`))
	assert.Error(t, err)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("TOKEN_TTL_HOURS", "2")
	t.Setenv("METRICS_ENABLED", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "not-a-number")

	c, err := LoadFrom(writeConfig(t, `{"AppPort": "8080"}`))
	require.NoError(t, err)
	assert.Equal(t, "9090", c.AppPort)
	assert.Equal(t, 2, c.TokenTTLHours)
	assert.True(t, c.MetricsEnabled)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.AllowedOrigins)
	assert.Equal(t, 60, c.RateLimitPerMinute)
}

func TestValidateServer(t *testing.T) {
	c := AppConfig{DBDriver: "sqlite"}
	assert.Error(t, c.ValidateServer(), "secret is required")

	c.JWTSecret = "s"
	assert.NoError(t, c.ValidateServer())

	c.DBDriver = "oracle"
	assert.Error(t, c.ValidateServer())
}
