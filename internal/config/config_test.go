package config_test

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/tripflow/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{config.EnvLogLevel, config.EnvRedisAddr, config.EnvHTTPAddr, config.EnvMaxInputSize, config.EnvEncryptionKey} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tripflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, config.DriverMemory, cfg.Store.Driver)
	assert.Equal(t, 30*time.Minute, cfg.Store.Redis.TTL)
}

func TestLoad_FileOverDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
log_level: debug
store:
  driver: redis
  redis:
    addr: redis:6380
    db: 2
    ttl: 1h
    lock: false
input:
  max_size: 128
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, config.DriverRedis, cfg.Store.Driver)
	assert.Equal(t, "redis:6380", cfg.Store.Redis.Addr)
	assert.Equal(t, 2, cfg.Store.Redis.DB)
	assert.Equal(t, time.Hour, cfg.Store.Redis.TTL)
	assert.False(t, cfg.Store.Redis.Lock)
	assert.Equal(t, "tripflow:session:", cfg.Store.Redis.Prefix, "unset keys keep their default")
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 128, cfg.Input.MaxSize)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.EnvLogLevel, "warn")
	t.Setenv(config.EnvRedisAddr, "cache:6379")
	t.Setenv(config.EnvHTTPAddr, "127.0.0.1:9000")
	t.Setenv(config.EnvMaxInputSize, "64")

	path := writeConfig(t, "log_level: debug\nhttp:\n  addr: \":7000\"\n")
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "cache:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTP.Addr)
	assert.Equal(t, 64, cfg.Input.MaxSize)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = config.Load(writeConfig(t, "store: [unterminated"))
	assert.Error(t, err)

	t.Setenv(config.EnvMaxInputSize, "lots")
	_, err = config.Load("")
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"unknown driver", func(c *config.Config) { c.Store.Driver = "etcd" }},
		{"empty file dir", func(c *config.Config) { c.Store.Driver = config.DriverFile; c.Store.File.Dir = "" }},
		{"empty redis addr", func(c *config.Config) { c.Store.Driver = config.DriverRedis; c.Store.Redis.Addr = "" }},
		{"negative ttl", func(c *config.Config) { c.Store.Driver = config.DriverRedis; c.Store.Redis.TTL = -time.Second }},
		{"empty http addr", func(c *config.Config) { c.HTTP.Addr = "" }},
		{"bad log level", func(c *config.Config) { c.LogLevel = "verbose" }},
		{"zero input size", func(c *config.Config) { c.Input.MaxSize = 0 }},
		{"short encryption key", func(c *config.Config) { c.Store.Encryption.Key = base64.StdEncoding.EncodeToString([]byte("short")) }},
		{"bad fallback key", func(c *config.Config) {
			c.Store.Encryption.Key = testKey
			c.Store.Encryption.FallbackKeys = []string{"%%%"}
		}},
		{"bad mask pattern", func(c *config.Config) { c.Telemetry.Mask = []string{"("} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidConfig)
		})
	}

	assert.NoError(t, config.Default().Validate())
}

var testKey = base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))

func TestLoad_EncryptionAndMask(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
store:
  encryption:
    fallback_keys: ["`+testKey+`"]
telemetry:
  mask: ["_city$", "^budget$"]
  trace: true
`)
	t.Setenv(config.EnvEncryptionKey, testKey)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Store.Encryption.Enabled())
	assert.Equal(t, testKey, cfg.Store.Encryption.Key)
	assert.Len(t, cfg.Store.Encryption.FallbackKeys, 1)
	assert.Equal(t, []string{"_city$", "^budget$"}, cfg.Telemetry.Mask)
	assert.True(t, cfg.Telemetry.Trace)

	assert.False(t, config.Default().Store.Encryption.Enabled())
}
