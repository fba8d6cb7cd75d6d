package config

import "testing"

func validConfig() *Config {
	cfg := GetDefaultConfig()
	cfg.Database.DSN = "test.db"
	return cfg
}

func TestValidate_AcceptsDefaultConfig(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Errorf("expected default config to be valid, got: %v", err)
	}
}

func TestValidate_RejectsInvalidLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "VERBOSE"

	if err := Validate(cfg); err == nil {
		t.Error("expected validation error for invalid log level")
	}
}

func TestValidate_RejectsMissingDSN(t *testing.T) {
	cfg := validConfig()
	cfg.Database.DSN = ""

	if err := Validate(cfg); err == nil {
		t.Error("expected validation error for missing database DSN")
	}
}

func TestValidate_RejectsZeroShutdownTimeout(t *testing.T) {
	cfg := validConfig()
	cfg.ShutdownTimeout = 0

	if err := Validate(cfg); err == nil {
		t.Error("expected validation error for zero shutdown timeout")
	}
}

func TestValidate_RequiresJWKSURLWhenAuthEnabled(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.Enabled = true
	cfg.Auth.JWKSURL = ""

	if err := Validate(cfg); err == nil {
		t.Error("expected validation error when auth is enabled without a jwks_url")
	}
}
