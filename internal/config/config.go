package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/aretw0/tripflow/internal/logging"
	"github.com/aretw0/tripflow/pkg/adapters/file"
	"github.com/aretw0/tripflow/pkg/persistence/middleware"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the file.
const (
	EnvLogLevel      = "TRIPFLOW_LOG_LEVEL"
	EnvRedisAddr     = "TRIPFLOW_REDIS_ADDR"
	EnvHTTPAddr      = "TRIPFLOW_HTTP_ADDR"
	EnvMaxInputSize  = "TRIPFLOW_MAX_INPUT_SIZE"
	EnvEncryptionKey = "TRIPFLOW_ENCRYPTION_KEY"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverRedis  = "redis"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the runtime configuration of the tripflow binary.
type Config struct {
	LogLevel  string          `yaml:"log_level"`
	Store     StoreConfig     `yaml:"store"`
	HTTP      HTTPConfig      `yaml:"http"`
	Input     InputConfig     `yaml:"input"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type StoreConfig struct {
	Driver     string           `yaml:"driver"`
	File       FileConfig       `yaml:"file"`
	Redis      RedisConfig      `yaml:"redis"`
	Encryption EncryptionConfig `yaml:"encryption"`
}

// EncryptionConfig holds base64 AES-256 keys. An empty Key disables encryption.
type EncryptionConfig struct {
	Key          string   `yaml:"key"`
	FallbackKeys []string `yaml:"fallback_keys"`
}

// Enabled reports whether states are sealed at rest.
func (e EncryptionConfig) Enabled() bool {
	return e.Key != ""
}

// TelemetryConfig controls what leaves the process in outcome events.
type TelemetryConfig struct {
	// Mask lists regular expressions of property keys whose values are hidden.
	Mask []string `yaml:"mask"`
	// Trace records a span per turn and logs it at debug level.
	Trace bool `yaml:"trace"`
}

type FileConfig struct {
	Dir string `yaml:"dir"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
	Lock     bool          `yaml:"lock"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type InputConfig struct {
	MaxSize int `yaml:"max_size"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		LogLevel: "info",
		Store: StoreConfig{
			Driver: DriverMemory,
			File:   FileConfig{Dir: file.DefaultDir},
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "tripflow:session:",
				TTL:    30 * time.Minute,
				Lock:   true,
			},
		},
		HTTP:  HTTPConfig{Addr: ":8080"},
		Input: InputConfig{MaxSize: 4096},
	}
}

// Load reads path over the defaults and applies environment overrides.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup(EnvRedisAddr); ok && v != "" {
		c.Store.Redis.Addr = v
	}
	if v, ok := lookup(EnvHTTPAddr); ok && v != "" {
		c.HTTP.Addr = v
	}
	if v, ok := lookup(EnvEncryptionKey); ok && v != "" {
		c.Store.Encryption.Key = v
	}
	if v, ok := lookup(EnvMaxInputSize); ok && v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a number", ErrInvalidConfig, EnvMaxInputSize, v)
		}
		c.Input.MaxSize = size
	}
	return nil
}

// Validate reports the first inconsistency found.
func (c Config) Validate() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	switch c.Store.Driver {
	case DriverMemory:
	case DriverFile:
		if c.Store.File.Dir == "" {
			return fmt.Errorf("%w: store.file.dir is empty", ErrInvalidConfig)
		}
	case DriverRedis:
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("%w: store.redis.addr is empty", ErrInvalidConfig)
		}
		if c.Store.Redis.TTL < 0 {
			return fmt.Errorf("%w: store.redis.ttl is negative", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store driver %q", ErrInvalidConfig, c.Store.Driver)
	}
	if c.Store.Encryption.Enabled() {
		if _, err := middleware.DecodeKeys(c.Store.Encryption.Key, c.Store.Encryption.FallbackKeys...); err != nil {
			return fmt.Errorf("%w: store.encryption: %w", ErrInvalidConfig, err)
		}
	}
	for _, p := range c.Telemetry.Mask {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("%w: telemetry.mask %q: %w", ErrInvalidConfig, p, err)
		}
	}
	if c.HTTP.Addr == "" {
		return fmt.Errorf("%w: http.addr is empty", ErrInvalidConfig)
	}
	if c.Input.MaxSize <= 0 {
		return fmt.Errorf("%w: input.max_size must be positive", ErrInvalidConfig)
	}
	return nil
}
