package config

import (
	"strings"
	"time"

	"github.com/shareguard/shareguard/pkg/acl"
	"github.com/shareguard/shareguard/pkg/health"
)

// ApplyDefaults sets default values for any unspecified configuration
// fields. Zero values (0, "", false, nil) are replaced with defaults;
// explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyDatabaseDefaults(&cfg.Database)
	applyMetricsDefaults(&cfg.Metrics)
	applyAPIDefaults(&cfg.API)
	applyScannerDefaults(&cfg.Scanner)
	applyStoreDefaults(&cfg.Store)
	applyMonitorDefaults(&cfg.Monitor)
	applyHealthDefaults(&cfg.Health)
	applyNotifyDefaults(&cfg.Notify)
	applyWorkerPoolDefaults(&cfg.WorkerPool)
	applyAuthDefaults(&cfg.Auth)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 15 * time.Second
	}
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
}

func applyDatabaseDefaults(cfg *DatabaseConfig) {
	if cfg.Driver == "" {
		cfg.Driver = "sqlite"
	}
	if cfg.DSN == "" {
		cfg.DSN = "shareguard.db"
	}
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 10
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":9090"
	}
}

func applyAPIDefaults(cfg *APIConfig) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 15 * time.Second
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
}

// applyScannerDefaults mirrors the Scanner's own DefaultMaxDepth and
// DefaultExcludedPaths so a zero-value config field and an un-configured
// Scanner agree on behavior.
func applyScannerDefaults(cfg *ScannerConfig) {
	if cfg.MaxDepth == 0 {
		cfg.MaxDepth = acl.DefaultMaxDepth
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 1000
	}
	if len(cfg.ExcludedPaths) == 0 {
		cfg.ExcludedPaths = acl.DefaultExcludedPaths
	}
}

func applyStoreDefaults(cfg *StoreConfig) {
	if cfg.CacheTTLSeconds == 0 {
		cfg.CacheTTLSeconds = 86400
	}
	if cfg.ReapRetentionHours == 0 {
		cfg.ReapRetentionHours = 48
	}
}

func applyMonitorDefaults(cfg *MonitorConfig) {
	if cfg.CheckIntervalSeconds == 0 {
		cfg.CheckIntervalSeconds = 60
	}
}

// applyHealthDefaults mirrors health.DefaultDetectorConfig so a zero-value
// config field and an un-configured Analyzer agree on behavior.
func applyHealthDefaults(cfg *HealthConfig) {
	defaults := health.DefaultDetectorConfig()
	if cfg.MaxACECount == 0 {
		cfg.MaxACECount = defaults.MaxACECount
	}
	if cfg.MaxDirectUserACEs == 0 {
		cfg.MaxDirectUserACEs = defaults.MaxDirectUserACEs
	}
	if len(cfg.CriticalGroups) == 0 {
		cfg.CriticalGroups = defaults.CriticalGroupSubstrings
	}
}

func applyNotifyDefaults(cfg *NotifyConfig) {
	if cfg.QueueCapacity == 0 {
		cfg.QueueCapacity = 1024
	}
}

func applyWorkerPoolDefaults(cfg *WorkerPoolConfig) {
	if cfg.Workers == 0 {
		cfg.Workers = 8
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = 256
	}
}

func applyAuthDefaults(cfg *AuthConfig) {
	// Enabled defaults to false only for local development; production
	// deployments must set auth.enabled: true explicitly.
}

// GetDefaultConfig returns a fully-defaulted Config, used when no config
// file is found.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ToDetectorConfig converts HealthConfig to the health package's own
// DetectorConfig, carrying over the Analyzer's excluded-trustee lists from
// its defaults (not currently exposed as configuration keys).
func (c HealthConfig) ToDetectorConfig() health.DetectorConfig {
	defaults := health.DefaultDetectorConfig()
	return health.DetectorConfig{
		MaxACECount:                c.MaxACECount,
		MaxDirectUserACEs:          c.MaxDirectUserACEs,
		CriticalGroupSubstrings:    c.CriticalGroups,
		ExcludedDirectUserNames:    defaults.ExcludedDirectUserNames,
		ExcludedDirectUserPrefixes: defaults.ExcludedDirectUserPrefixes,
	}
}
