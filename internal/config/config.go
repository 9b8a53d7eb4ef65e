package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var (
	once     sync.Once
	instance *Config
)

// PathEnv names the variable pointing at the YAML config file.
const PathEnv = "ZLIBSEARCH_CONFIG"

// DefaultPath is used when PathEnv is unset.
const DefaultPath = "zlibsearch.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ZLIBSEARCH_"

// ComponentConfig holds the network settings of a listening component.
type ComponentConfig struct {
	Host string `yaml:"host" env:"HOST"`
	Port int    `yaml:"port" env:"PORT"`
}

// ServerConfig configures the HTTP search API.
type ServerConfig struct {
	ComponentConfig   `yaml:",inline"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" env:"READ_HEADER_TIMEOUT"`
	IdleTimeout       time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// IndexConfig points at the on-disk search index.
type IndexConfig struct {
	Path string `yaml:"path" env:"PATH"`
}

// SearchConfig holds request defaults of the /search endpoint.
type SearchConfig struct {
	DefaultLimit uint `yaml:"default_limit" env:"DEFAULT_LIMIT"`
}

// LogConfig configures logrus.
type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
	JSON  bool   `yaml:"json" env:"JSON"`
	Path  string `yaml:"path" env:"PATH"` // empty means stdout only
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	Path    string `yaml:"path" env:"PATH"`
}

// GRPCHealthConfig controls the optional gRPC health service.
type GRPCHealthConfig struct {
	ComponentConfig `yaml:",inline"`
	Enabled         bool `yaml:"enabled" env:"ENABLED"`
}

// RateLimitConfig configures the global request limiter. RPS <= 0 disables it.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" env:"RPS"`
	Burst int     `yaml:"burst" env:"BURST"`
}

// CORSConfig toggles permissive CORS headers for browser clients.
type CORSConfig struct {
	Enabled bool `yaml:"enabled" env:"ENABLED"`
}

// Config is the root of zlibsearch.yaml.
type Config struct {
	Server     ServerConfig     `yaml:"server" envPrefix:"SERVER_"`
	Index      IndexConfig      `yaml:"index" envPrefix:"INDEX_"`
	Search     SearchConfig     `yaml:"search" envPrefix:"SEARCH_"`
	Log        LogConfig        `yaml:"log" envPrefix:"LOG_"`
	Metrics    MetricsConfig    `yaml:"metrics" envPrefix:"METRICS_"`
	GRPCHealth GRPCHealthConfig `yaml:"grpc_health" envPrefix:"GRPC_HEALTH_"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit" envPrefix:"RATE_LIMIT_"`
	CORS       CORSConfig       `yaml:"cors" envPrefix:"CORS_"`
}

// Default returns the configuration used when nothing overrides it.
// The API listens on loopback port 7070.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ComponentConfig:   ComponentConfig{Host: "127.0.0.1", Port: 7070},
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       60 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
		Index:   IndexConfig{Path: "index.db"},
		Search:  SearchConfig{DefaultLimit: 30},
		Log:     LogConfig{Level: "info"},
		Metrics: MetricsConfig{Enabled: true, Path: "/metrics"},
		GRPCHealth: GRPCHealthConfig{
			ComponentConfig: ComponentConfig{Host: "127.0.0.1", Port: 7071},
		},
		RateLimit: RateLimitConfig{Burst: 1},
	}
}

// Load builds a Config from defaults, the YAML file at path and the
// environment, in that order. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	return cfg, cfg.Validate()
}

// Get returns the process-wide configuration (singleton).
func Get() *Config {
	once.Do(func() {
		_ = godotenv.Load(".env")

		path := os.Getenv(PathEnv)
		if path == "" {
			path = DefaultPath
		}

		cfg, err := Load(path)
		if err != nil {
			logrus.Fatalf("[CONFIG ERROR] %v", err)
		}
		instance = cfg
	})
	return instance
}

// Validate checks the values the binaries cannot run without.
func (c *Config) Validate() error {
	if c.Server.Host == "" {
		return ErrInvalid("server.host is required")
	}
	if !validPort(c.Server.Port) {
		return ErrInvalid(fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if c.Index.Path == "" {
		return ErrInvalid("index.path is required")
	}
	if c.Metrics.Enabled && (c.Metrics.Path == "" || c.Metrics.Path[0] != '/') {
		return ErrInvalid("metrics.path must start with /")
	}
	if c.GRPCHealth.Enabled {
		if !validPort(c.GRPCHealth.Port) {
			return ErrInvalid(fmt.Sprintf("grpc_health.port %d out of range", c.GRPCHealth.Port))
		}
		if c.GRPCHealth.Address() == c.Server.Address() {
			return ErrInvalid("grpc_health must not share the HTTP address")
		}
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst < 1 {
		return ErrInvalid("rate_limit.burst must be at least 1")
	}
	return nil
}

func validPort(p int) bool { return p > 0 && p < 65536 }

type invalidErr string

func (e invalidErr) Error() string { return string(e) }

// ErrInvalid wraps a validation message as an error.
func ErrInvalid(msg string) error { return invalidErr(msg) }

// Address returns host:port.
func (c ComponentConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// BaseURL returns http://host:port, handy for clients of the API.
func (c ComponentConfig) BaseURL() string {
	return "http://" + c.Address()
}
