// Package config loads ShareGuard's static configuration: logging,
// telemetry, the control plane database and API server, and the scan,
// store, monitor, health, and notify subsystem tunables enumerated in
// the configuration reference.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (SHAREGUARD_*)
//  3. Configuration file (YAML or TOML)
//  4. Default values (lowest priority)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is ShareGuard's top-level configuration.
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing.
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Database configures the control plane database (SQLite or PostgreSQL):
	// the persistent store for snapshots, change history, issues, and score
	// history.
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`

	// Metrics contains Prometheus metrics server configuration.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// API contains control plane HTTP/WebSocket server configuration.
	API APIConfig `mapstructure:"api" yaml:"api"`

	// Scanner tunes the ACL Scanner's recursion and exclusion behavior.
	Scanner ScannerConfig `mapstructure:"scanner" yaml:"scanner"`

	// Store tunes the Snapshot Store's cache validity and reaper.
	Store StoreConfig `mapstructure:"store" yaml:"store"`

	// Monitor tunes the Change Monitor's poll cycle.
	Monitor MonitorConfig `mapstructure:"monitor" yaml:"monitor"`

	// Health tunes the Health Analyzer's detector thresholds.
	Health HealthConfig `mapstructure:"health" yaml:"health"`

	// Notify tunes the Notification Service's delivery queue.
	Notify NotifyConfig `mapstructure:"notify" yaml:"notify"`

	// WorkerPool bounds concurrent blocking platform calls (DACL reads,
	// SID/group lookups) issued by the scanner and monitor.
	WorkerPool WorkerPoolConfig `mapstructure:"worker_pool" yaml:"worker_pool"`

	// Auth configures JWT validation for the control plane API. ShareGuard
	// validates tokens issued by an external identity provider; it never
	// issues or refreshes tokens itself.
	Auth AuthConfig `mapstructure:"auth" yaml:"auth"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format.
	// Valid values: text, json.
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written: stdout, stderr, or a file path.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port).
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure controls whether to use an insecure (non-TLS) connection.
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0).
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`
}

// DatabaseConfig configures the control plane's persistence backend.
type DatabaseConfig struct {
	// Driver selects the backend.
	// Valid values: sqlite, postgres.
	Driver string `mapstructure:"driver" validate:"required,oneof=sqlite postgres" yaml:"driver"`

	// DSN is the driver-specific data source name: a file path for sqlite,
	// a connection string for postgres.
	DSN string `mapstructure:"dsn" validate:"required" yaml:"dsn"`

	// MaxOpenConns bounds concurrent database connections.
	MaxOpenConns int `mapstructure:"max_open_conns" validate:"omitempty,gt=0" yaml:"max_open_conns"`
}

// MetricsConfig configures the Prometheus metrics HTTP endpoint.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// ListenAddr is the metrics server's bind address.
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`
}

// APIConfig configures the control plane's HTTP and WebSocket server.
type APIConfig struct {
	// ListenAddr is the API server's bind address.
	ListenAddr string `mapstructure:"listen_addr" validate:"required" yaml:"listen_addr"`

	// ReadTimeout bounds how long the server waits to read a request.
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout bounds how long a handler has to write a response.
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`

	// RequestTimeout is passed to the API server's Config, distinct from
	// the above connection-level timeouts. The router does not read it: its
	// per-request timeout middleware is fixed at 30s.
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
}

// ScannerConfig tunes the ACL Scanner.
type ScannerConfig struct {
	// MaxDepth caps subfolder recursion depth.
	MaxDepth int `mapstructure:"max_depth" validate:"gte=0" yaml:"max_depth"`

	// BatchSize is loaded, defaulted and validated, but no component reads
	// it: the scanner walks a subtree without batching.
	BatchSize int `mapstructure:"batch_size" validate:"gt=0" yaml:"batch_size"`

	// ExcludedPaths lists path prefixes the scanner never descends into.
	ExcludedPaths []string `mapstructure:"excluded_paths" yaml:"excluded_paths"`
}

// StoreConfig tunes the Snapshot Store.
type StoreConfig struct {
	// CacheTTLSeconds is how long a cached Snapshot is considered valid
	// before a rescan is required.
	CacheTTLSeconds int `mapstructure:"cache_ttl_seconds" validate:"gt=0" yaml:"cache_ttl_seconds"`

	// ReapRetentionHours is how long a superseded Snapshot is retained
	// before the reaper deletes it.
	ReapRetentionHours int `mapstructure:"reap_retention_hours" validate:"gt=0" yaml:"reap_retention_hours"`
}

// MonitorConfig tunes the Change Monitor.
type MonitorConfig struct {
	// CheckIntervalSeconds is the poll period between monitor cycles.
	CheckIntervalSeconds int `mapstructure:"check_interval_seconds" validate:"gt=0" yaml:"check_interval_seconds"`
}

// HealthConfig tunes the Health Analyzer's detector thresholds.
type HealthConfig struct {
	// MaxACECount is the excessive_ace_count trigger threshold.
	MaxACECount int `mapstructure:"max_ace_count" validate:"gt=0" yaml:"max_ace_count"`

	// MaxDirectUserACEs is the direct_user_ace severity pivot.
	MaxDirectUserACEs int `mapstructure:"max_direct_user_aces" validate:"gt=0" yaml:"max_direct_user_aces"`

	// CriticalGroups flags an Allow ACE as over_permissive_groups when the
	// trustee's full name contains any of these substrings.
	CriticalGroups []string `mapstructure:"critical_groups" yaml:"critical_groups"`
}

// NotifyConfig tunes the Notification Service.
type NotifyConfig struct {
	// QueueCapacity bounds the service's internal fan-out queue.
	QueueCapacity int `mapstructure:"queue_capacity" validate:"gt=0" yaml:"queue_capacity"`
}

// WorkerPoolConfig bounds concurrent blocking platform calls.
type WorkerPoolConfig struct {
	// Workers is the fixed number of goroutines draining the job queue.
	Workers int `mapstructure:"workers" validate:"gt=0" yaml:"workers"`

	// QueueSize bounds how many jobs may be queued before Submit blocks.
	QueueSize int `mapstructure:"queue_size" validate:"gt=0" yaml:"queue_size"`
}

// AuthConfig configures control plane JWT validation.
type AuthConfig struct {
	// Enabled controls whether the API requires a bearer token. Disabling
	// this is only appropriate for local development.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// JWKSURL is the JSON Web Key Set endpoint used to validate token
	// signatures, published by the external identity provider.
	JWKSURL string `mapstructure:"jwks_url" validate:"required_if=Enabled true" yaml:"jwks_url"`

	// Issuer is the expected "iss" claim.
	Issuer string `mapstructure:"issuer" yaml:"issuer"`

	// Audience is the expected "aud" claim.
	Audience string `mapstructure:"audience" yaml:"audience"`
}

// Load loads configuration from file, environment, and defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if _, err := readConfigFile(v); err != nil {
		return nil, err
	}

	// v.Unmarshal runs regardless of whether a config file was found: viper
	// still applies SHAREGUARD_* environment overrides over the (possibly
	// all-zero) bound values, and ApplyDefaults fills the rest.
	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration, returning a user-friendly error if no
// config file exists at the resolved path.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  shareguard init\n\n"+
				"Or specify a custom config file:\n"+
				"  shareguard <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s\n\n"+
			"Please create the configuration file:\n"+
			"  shareguard init --config %s",
			configPath, configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig writes cfg to path as YAML.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures environment variable and config file resolution.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("SHAREGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only answers for keys viper already knows, so bind every
	// Config key explicitly; Unmarshal then sees env overrides even when no
	// config file sets the key.
	var bindEnv func(t reflect.Type, prefix string)
	bindEnv = func(t reflect.Type, prefix string) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			key := prefix + f.Tag.Get("mapstructure")
			if f.Type.Kind() == reflect.Struct {
				bindEnv(f.Type, key+".")
				continue
			}
			_ = v.BindEnv(key)
		}
	}
	bindEnv(reflect.TypeOf(Config{}), "")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if present. A missing file
// is not an error: the caller falls back to defaults.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// durationDecodeHook converts strings and numbers to time.Duration,
// allowing config files and env vars to use human-readable durations like
// "30s" or "5m".
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory: $XDG_CONFIG_HOME/shareguard,
// falling back to ~/.config/shareguard, then the current directory.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "shareguard")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "shareguard")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists reports whether a config file exists at the default
// location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir exposes the resolved configuration directory, for the init
// command.
func GetConfigDir() string {
	return getConfigDir()
}
