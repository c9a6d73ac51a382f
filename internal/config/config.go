// Package config loads the canvas configuration from a TOML or YAML file,
// applies CANVAS_* environment overrides and validates the result.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"canvas/internal/optimistic"
	"canvas/internal/remote"
)

const (
	Development = "development"
	Production  = "production"
)

type Config struct {
	Environment string        `toml:"environment" yaml:"environment" validate:"oneof=development production"`
	Log         LogConfig     `toml:"log" yaml:"log"`
	Server      ServerConfig  `toml:"server" yaml:"server"`
	Storage     StorageConfig `toml:"storage" yaml:"storage"`
	Remote      RemoteConfig  `toml:"remote" yaml:"remote"`
	Sync        SyncConfig    `toml:"sync" yaml:"sync"`
}

type LogConfig struct {
	Level string `toml:"level" yaml:"level" validate:"oneof=debug info warn error"`
}

type ServerConfig struct {
	Addr        string   `toml:"addr" yaml:"addr" validate:"required"`
	CORSOrigins []string `toml:"cors_origins" yaml:"cors_origins"`
	// Keepalive pings KeepaliveURL on the KeepaliveSpec cron schedule.
	// An empty URL disables the job.
	KeepaliveSpec string `toml:"keepalive_spec" yaml:"keepalive_spec" validate:"required"`
	KeepaliveURL  string `toml:"keepalive_url" yaml:"keepalive_url" validate:"omitempty,url"`
}

type StorageConfig struct {
	Driver string `toml:"driver" yaml:"driver" validate:"oneof=sqlite postgres mysql"`
	DSN    string `toml:"dsn" yaml:"dsn" validate:"required"`
}

type RemoteConfig struct {
	BaseURL          string        `toml:"base_url" yaml:"base_url" validate:"required,url"`
	Timeout          time.Duration `toml:"timeout" yaml:"timeout" validate:"gt=0"`
	ListAttempts     int           `toml:"list_attempts" yaml:"list_attempts" validate:"min=1,max=10"`
	BreakerThreshold float64       `toml:"breaker_threshold" yaml:"breaker_threshold" validate:"gt=0,lte=1"`
	BreakerTimeout   time.Duration `toml:"breaker_timeout" yaml:"breaker_timeout" validate:"gt=0"`
}

type SyncConfig struct {
	RetryDelay      time.Duration `toml:"retry_delay" yaml:"retry_delay" validate:"gt=0"`
	MaxRetries      int           `toml:"max_retries" yaml:"max_retries" validate:"min=0,max=50"`
	CallTimeout     time.Duration `toml:"call_timeout" yaml:"call_timeout" validate:"gt=0"`
	RefreshInterval time.Duration `toml:"refresh_interval" yaml:"refresh_interval" validate:"gt=0"`
}

var validate = validator.New()

// Default returns the configuration used when no file is given.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	p := optimistic.DefaultPolicy()
	r := remote.DefaultConfig("http://localhost:8080")
	return &Config{
		Environment: Development,
		Log:         LogConfig{Level: "info"},
		Server: ServerConfig{
			Addr:          ":8080",
			CORSOrigins:   []string{"http://localhost:3000"},
			KeepaliveSpec: "*/14 * * * *",
		},
		Storage: StorageConfig{
			Driver: "sqlite",
			DSN:    filepath.Join(homeDir, ".local", "share", "canvas", "canvas.db"),
		},
		Remote: RemoteConfig{
			BaseURL:          r.BaseURL,
			Timeout:          r.Timeout,
			ListAttempts:     r.ListAttempts,
			BreakerThreshold: r.Breaker.FailureThreshold,
			BreakerTimeout:   r.Breaker.Timeout,
		},
		Sync: SyncConfig{
			RetryDelay:      p.RetryDelay,
			MaxRetries:      p.MaxRetries,
			CallTimeout:     p.CallTimeout,
			RefreshInterval: 2 * time.Second,
		},
	}
}

// Load reads path (when non-empty) over the defaults, applies environment
// overrides and validates. The format follows the file extension.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Environment = getEnv("CANVAS_ENVIRONMENT", c.Environment)
	c.Log.Level = getEnv("CANVAS_LOG_LEVEL", c.Log.Level)

	c.Server.Addr = getEnv("CANVAS_SERVER_ADDR", c.Server.Addr)
	if origins := os.Getenv("CANVAS_CORS_ORIGINS"); origins != "" {
		c.Server.CORSOrigins = strings.Split(origins, ",")
	}
	c.Server.KeepaliveURL = getEnv("CANVAS_KEEPALIVE_URL", c.Server.KeepaliveURL)

	c.Storage.Driver = getEnv("CANVAS_STORAGE_DRIVER", c.Storage.Driver)
	c.Storage.DSN = getEnv("CANVAS_STORAGE_DSN", c.Storage.DSN)

	c.Remote.BaseURL = getEnv("CANVAS_REMOTE_URL", c.Remote.BaseURL)
	c.Remote.Timeout = getEnvDuration("CANVAS_REMOTE_TIMEOUT", c.Remote.Timeout)

	c.Sync.RetryDelay = getEnvDuration("CANVAS_SYNC_RETRY_DELAY", c.Sync.RetryDelay)
	c.Sync.MaxRetries = getEnvInt("CANVAS_SYNC_MAX_RETRIES", c.Sync.MaxRetries)
	c.Sync.RefreshInterval = getEnvDuration("CANVAS_SYNC_REFRESH_INTERVAL", c.Sync.RefreshInterval)
}

// Validate checks the struct tags of every section.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(verrs))
			for _, e := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", e.Namespace(), e.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) IsDevelopment() bool { return c.Environment == Development }

// Policy converts the sync section into the engine's retry policy.
func (c *Config) Policy() optimistic.Policy {
	return optimistic.Policy{
		RetryDelay:  c.Sync.RetryDelay,
		MaxRetries:  c.Sync.MaxRetries,
		CallTimeout: c.Sync.CallTimeout,
	}
}

// RemoteClient converts the remote section into an HTTP client config.
func (c *Config) RemoteClient() remote.Config {
	rc := remote.DefaultConfig(c.Remote.BaseURL)
	rc.Timeout = c.Remote.Timeout
	rc.ListAttempts = c.Remote.ListAttempts
	rc.Breaker.FailureThreshold = c.Remote.BreakerThreshold
	rc.Breaker.Timeout = c.Remote.BreakerTimeout
	return rc
}

// NewLogger builds the zap logger matching the environment and level.
func (c *Config) NewLogger() (*zap.Logger, error) {
	var zc zap.Config
	if c.IsDevelopment() {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	level, err := zap.ParseAtomicLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc.Level = level
	// stdout carries MCP stdio traffic
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
