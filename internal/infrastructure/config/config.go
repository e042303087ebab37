package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is prepended to every environment variable, e.g.
// SIDECAR_BACKEND_ADDR or SIDECAR_TRACING_EXPORTER.
const EnvPrefix = "SIDECAR"

// Exporter kinds understood by the trace exporter.
const (
	ExporterLog  = "log"
	ExporterOTLP = "otlp"
	ExporterNone = "none"
)

// Config holds all sidecar configuration.
type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
	Logging LogConfig     `yaml:"logging"`
}

// BackendConfig points at the inventory gRPC service.
type BackendConfig struct {
	// Addr is the TCP address dialed on every trigger.
	Addr string `yaml:"addr" split_words:"true"`
	// Authority is sent as the HTTP/2 :authority of each call.
	Authority string `yaml:"authority" split_words:"true"`
}

// MetricsConfig holds the scrape endpoint configuration.
type MetricsConfig struct {
	Addr      string `yaml:"addr" split_words:"true"`
	Path      string `yaml:"path" split_words:"true"`
	Namespace string `yaml:"namespace" split_words:"true"`
}

// TracingConfig holds span export configuration.
type TracingConfig struct {
	ServiceName   string        `yaml:"service_name" split_words:"true"`
	Exporter      string        `yaml:"exporter" split_words:"true"`
	Endpoint      string        `yaml:"endpoint" split_words:"true"`
	QueueSize     int           `yaml:"queue_size" split_words:"true"`
	ExportTimeout time.Duration `yaml:"export_timeout" split_words:"true"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `yaml:"level" split_words:"true"`
	Development bool   `yaml:"development" split_words:"true"`
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			Addr:      "127.0.0.1:15441",
			Authority: "localhost:15441",
		},
		Metrics: MetricsConfig{
			Addr:      "127.0.0.1:33333",
			Path:      "/metrics",
			Namespace: "sidecar",
		},
		Tracing: TracingConfig{
			ServiceName:   "exp-rkt-grpc",
			Exporter:      ExporterLog,
			Endpoint:      "127.0.0.1:4317",
			QueueSize:     1000,
			ExportTimeout: 5 * time.Second,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
	}
}

// Load builds configuration from defaults, then the optional YAML file at
// path, then SIDECAR_* environment variables. Later sources win. The result
// is not validated: callers apply their own overrides first, then Validate.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate rejects configurations the sidecar cannot start with.
func (c *Config) Validate() error {
	var problems []string

	if c.Backend.Addr == "" {
		problems = append(problems, "backend address is empty")
	}
	if c.Metrics.Addr == "" {
		problems = append(problems, "metrics address is empty")
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		problems = append(problems, fmt.Sprintf("metrics path %q must start with /", c.Metrics.Path))
	}

	switch c.Tracing.Exporter {
	case ExporterLog, ExporterNone:
	case ExporterOTLP:
		if c.Tracing.Endpoint == "" {
			problems = append(problems, "otlp exporter needs an endpoint")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown trace exporter %q", c.Tracing.Exporter))
	}

	if c.Tracing.QueueSize <= 0 {
		problems = append(problems, "trace queue size must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// BackendAuthority returns the authority to present to the backend,
// falling back to the dial address.
func (c *Config) BackendAuthority() string {
	if c.Backend.Authority != "" {
		return c.Backend.Authority
	}
	return c.Backend.Addr
}
