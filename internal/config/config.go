// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the polarion-node configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	nodelog "github.com/Jasbris/polarion-node/internal/log"
	"github.com/Jasbris/polarion-node/internal/operation/transport"
	pkgerrors "github.com/Jasbris/polarion-node/pkg/errors"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Tracing exporters.
const (
	ExporterNone     = "none"
	ExporterStdout   = "stdout"
	ExporterOTLPHTTP = "otlp-http"
	ExporterOTLPGRPC = "otlp-grpc"
)

// Config is the complete polarion-node configuration.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	HTTP    HTTPConfig    `yaml:"http"`
	Secrets SecretsConfig `yaml:"secrets"`
	Tracing TracingConfig `yaml:"tracing"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	AddSource bool   `yaml:"add_source"`
}

// HTTPConfig configures the outbound transport.
type HTTPConfig struct {
	// Timeout bounds each attempt.
	Timeout     time.Duration   `yaml:"timeout"`
	TLSInsecure bool            `yaml:"tls_insecure"`
	UserAgent   string          `yaml:"user_agent,omitempty"`
	Retry       RetryConfig     `yaml:"retry"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
}

// RetryConfig applies to idempotent methods only.
type RetryConfig struct {
	// MaxAttempts includes the first attempt. 1 disables retries.
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

// RateLimitConfig throttles requests. Zero disables the limiter.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// SecretsConfig selects where the credential is written.
type SecretsConfig struct {
	// Backend pins writes to env, keychain or file. Empty picks the
	// highest-priority writable backend.
	Backend string `yaml:"backend,omitempty"`
	// FilePath overrides the encrypted file location.
	FilePath string `yaml:"file_path,omitempty"`
}

// TracingConfig configures span export.
type TracingConfig struct {
	Exporter    string  `yaml:"exporter"`
	Endpoint    string  `yaml:"endpoint,omitempty"`
	Insecure    bool    `yaml:"insecure"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// MetricsConfig configures metric export.
type MetricsConfig struct {
	// TextfilePath receives Prometheus text format after each run.
	TextfilePath string `yaml:"textfile_path,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: string(nodelog.FormatText),
		},
		HTTP: HTTPConfig{
			Timeout: 30 * time.Second,
			Retry: RetryConfig{
				MaxAttempts:    3,
				InitialBackoff: time.Second,
				MaxBackoff:     30 * time.Second,
			},
		},
		Tracing: TracingConfig{
			Exporter:    ExporterNone,
			ServiceName: "polarion-node",
			SampleRatio: 1,
		},
	}
}

// Load reads configPath over the defaults, applies environment overrides
// and validates. An empty configPath reads the default location when the
// file exists.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	explicit := configPath != ""
	if !explicit {
		var err error
		if configPath, err = ConfigPath(); err != nil {
			return nil, &pkgerrors.ConfigError{Key: "config_file", Reason: "cannot determine config directory", Cause: err}
		}
	}

	if err := cfg.loadFromFile(configPath); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, &pkgerrors.ConfigError{
				Key:    "config_file",
				Reason: fmt.Sprintf("failed to load from %s", configPath),
				Cause:  err,
			}
		}
	}

	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, &pkgerrors.ConfigError{
			Key:    "validation",
			Reason: "configuration validation failed",
			Cause:  err,
		}
	}
	return cfg, nil
}

// Save writes cfg as YAML to path, or the default location when empty.
func Save(path string, cfg *Config) error {
	if path == "" {
		var err error
		if path, err = ConfigPath(); err != nil {
			return err
		}
	}
	path, err := expandHome(path)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace config: %w", err)
	}
	return nil
}

func (c *Config) loadFromFile(path string) error {
	path, err := expandHome(path)
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// loadFromEnv applies environment overrides. Malformed values are ignored.
func (c *Config) loadFromEnv() {
	if val := os.Getenv("POLARION_NODE_LOG_LEVEL"); val != "" {
		c.Log.Level = strings.ToLower(val)
	} else if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = strings.ToLower(val)
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = strings.ToLower(val)
	}
	if val := os.Getenv("LOG_SOURCE"); val != "" {
		c.Log.AddSource = val == "1" || strings.ToLower(val) == "true"
	}

	if val := os.Getenv("POLARION_NODE_HTTP_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.HTTP.Timeout = d
		}
	}
	if val := os.Getenv("POLARION_NODE_RATE_LIMIT"); val != "" {
		if rps, err := strconv.ParseFloat(val, 64); err == nil {
			c.HTTP.RateLimit.RequestsPerSecond = rps
		}
	}
	if val := os.Getenv("POLARION_NODE_SECRETS_BACKEND"); val != "" {
		c.Secrets.Backend = val
	}

	if val := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); val != "" {
		c.Tracing.Endpoint = val
		if c.Tracing.Exporter == ExporterNone {
			c.Tracing.Exporter = ExporterOTLPHTTP
		}
	}
	if val := os.Getenv("OTEL_SERVICE_NAME"); val != "" {
		c.Tracing.ServiceName = val
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []string

	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("log.level must be one of [trace, debug, info, warn, error], got %q", c.Log.Level))
	}
	if c.Log.Format != string(nodelog.FormatJSON) && c.Log.Format != string(nodelog.FormatText) {
		errs = append(errs, fmt.Sprintf("log.format must be one of [json, text], got %q", c.Log.Format))
	}

	if c.HTTP.Timeout <= 0 {
		errs = append(errs, fmt.Sprintf("http.timeout must be positive, got %v", c.HTTP.Timeout))
	}
	if c.HTTP.Retry.MaxAttempts < 1 {
		errs = append(errs, fmt.Sprintf("http.retry.max_attempts must be at least 1, got %d", c.HTTP.Retry.MaxAttempts))
	}
	if c.HTTP.Retry.InitialBackoff < 0 || c.HTTP.Retry.MaxBackoff < c.HTTP.Retry.InitialBackoff {
		errs = append(errs, "http.retry backoffs must satisfy 0 <= initial_backoff <= max_backoff")
	}
	if c.HTTP.RateLimit.RequestsPerSecond < 0 || c.HTTP.RateLimit.Burst < 0 {
		errs = append(errs, "http.rate_limit values must be non-negative")
	}

	switch c.Secrets.Backend {
	case "", "env", "keychain", "file":
	default:
		errs = append(errs, fmt.Sprintf("secrets.backend must be one of [env, keychain, file], got %q", c.Secrets.Backend))
	}

	switch c.Tracing.Exporter {
	case ExporterNone, ExporterStdout:
	case ExporterOTLPHTTP, ExporterOTLPGRPC:
		if c.Tracing.Endpoint == "" {
			errs = append(errs, fmt.Sprintf("tracing.endpoint is required for exporter %q", c.Tracing.Exporter))
		}
	default:
		errs = append(errs, fmt.Sprintf("tracing.exporter must be one of [none, stdout, otlp-http, otlp-grpc], got %q", c.Tracing.Exporter))
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		errs = append(errs, fmt.Sprintf("tracing.sample_ratio must be between 0 and 1, got %v", c.Tracing.SampleRatio))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w:\n  - %s", ErrInvalidConfig, strings.Join(errs, "\n  - "))
	}
	return nil
}

// LogConfig converts the log section for the log package.
func (c *Config) LogConfig() *nodelog.Config {
	cfg := nodelog.DefaultConfig()
	cfg.Level = c.Log.Level
	cfg.Format = nodelog.Format(c.Log.Format)
	cfg.AddSource = c.Log.AddSource
	return cfg
}

// TransportConfig converts the http section for the transport package.
func (c *Config) TransportConfig() *transport.HTTPTransportConfig {
	retry := transport.DefaultRetryConfig()
	retry.MaxAttempts = c.HTTP.Retry.MaxAttempts
	retry.InitialBackoff = c.HTTP.Retry.InitialBackoff
	retry.MaxBackoff = c.HTTP.Retry.MaxBackoff

	return &transport.HTTPTransportConfig{
		Timeout:     c.HTTP.Timeout,
		TLSInsecure: c.HTTP.TLSInsecure,
		UserAgent:   c.HTTP.UserAgent,
		RetryConfig: retry,
	}
}
