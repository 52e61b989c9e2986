// Package config loads the runtime's static configuration: a YAML
// topology/schedule manifest layered with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ExecutorConfig controls the tick scheduler.
type ExecutorConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"`
}

// LoggingConfig controls the operational logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Namespace string `yaml:"namespace"`
}

// TracingConfig controls OpenTelemetry span export.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Exporter   string  `yaml:"exporter"` // otlp-http, stdout
	Endpoint   string  `yaml:"endpoint"`
	SampleRate float64 `yaml:"sample_rate"`
}

// WireConfig holds endpoints for the two External bridge transports.
type WireConfig struct {
	RedisAddr string `yaml:"redis_addr"`
	GRPCAddr  string `yaml:"grpc_addr"`
}

// RunnableOverride overrides a single runnable's scheduling parameters,
// the Go-native analogue of the original's generated ConstructorToken
// wiring: the code generator is out of scope, so the static schedule is
// described in the manifest instead.
type RunnableOverride struct {
	Module    string        `yaml:"module"`
	Runnable  string        `yaml:"runnable"`
	Period    time.Duration `yaml:"period"`
	Offset    time.Duration `yaml:"offset"`
	Budget    time.Duration `yaml:"budget"`
	RunAfter  []string      `yaml:"run_after"`
}

// Config is the full static configuration tree for one vafrun process.
type Config struct {
	Executor  ExecutorConfig     `yaml:"executor"`
	Logging   LoggingConfig      `yaml:"logging"`
	Metrics   MetricsConfig      `yaml:"metrics"`
	Tracing   TracingConfig      `yaml:"tracing"`
	Wire      WireConfig         `yaml:"wire"`
	Schedule  []RunnableOverride `yaml:"schedule"`
}

// DefaultConfig returns the configuration a zero-config `vafrun run`
// invocation uses.
func DefaultConfig() Config {
	return Config{
		Executor: ExecutorConfig{
			TickInterval: 10 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Addr:      ":9100",
			Namespace: "vaf",
		},
		Tracing: TracingConfig{
			Enabled:    false,
			Exporter:   "otlp-http",
			Endpoint:   "localhost:4318",
			SampleRate: 1.0,
		},
		Wire: WireConfig{
			RedisAddr: "localhost:6379",
			GRPCAddr:  ":50051",
		},
	}
}

// Load reads a YAML manifest from path, starting from DefaultConfig and
// overriding only the fields present in the file. An empty path returns
// the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv layers environment variable overrides onto cfg, matching the
// grounding repo's env-over-file precedence.
func ApplyEnv(cfg Config) Config {
	if v := os.Getenv("VAF_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = normalizeLevel(v)
	}
	if v := os.Getenv("VAF_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("VAF_TICK_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Executor.TickInterval = d
		}
	}
	if v := os.Getenv("VAF_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("VAF_METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics.Enabled = b
		}
	}
	if v := os.Getenv("VAF_TRACING_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tracing.Enabled = b
		}
	}
	if v := os.Getenv("VAF_TRACING_ENDPOINT"); v != "" {
		cfg.Tracing.Endpoint = v
	}
	if v := os.Getenv("VAF_WIRE_REDIS_ADDR"); v != "" {
		cfg.Wire.RedisAddr = v
	}
	if v := os.Getenv("VAF_WIRE_GRPC_ADDR"); v != "" {
		cfg.Wire.GRPCAddr = v
	}
	return cfg
}

// OverrideFor looks up a schedule override for module/runnable, if the
// manifest declared one.
func (c Config) OverrideFor(module, runnable string) (RunnableOverride, bool) {
	for _, o := range c.Schedule {
		if o.Module == module && o.Runnable == runnable {
			return o, true
		}
	}
	return RunnableOverride{}, false
}

func normalizeLevel(level string) string {
	return strings.ToLower(strings.TrimSpace(level))
}
