// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

package config

import "time"

// Config holds all application configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all settings
//  2. Config File: Optional YAML config file
//  3. Environment Variables: Override any setting
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    logging.Fatal().Err(err).Msg("Failed to load configuration")
//	}
//	store, err := database.Open(ctx, &cfg.Database)
type Config struct {
	Access      AccessConfig      `koanf:"access"`
	Lockout     LockoutConfig     `koanf:"lockout"`
	Credentials CredentialsConfig `koanf:"credentials"`
	Database    DatabaseConfig    `koanf:"database"`
	Logging     LoggingConfig     `koanf:"logging"`
	Dispatch    DispatchConfig    `koanf:"dispatch"`
	Supervisor  SupervisorConfig  `koanf:"supervisor"`
}

// AccessConfig holds the master enforcement switch.
//
// When Enabled is false every session and guard check succeeds and every
// identity is treated as unrestricted. Intended for single-user installs.
type AccessConfig struct {
	Enabled bool `koanf:"enabled"`

	// PolicyPath optionally replaces the embedded role-grant policy (Casbin CSV).
	PolicyPath string `koanf:"policy_path"`
}

// LockoutConfig controls brute-force protection on login.
type LockoutConfig struct {
	// MaxAttempts is the number of consecutive failures that triggers a lockout.
	MaxAttempts int `koanf:"max_attempts"`

	// Duration is the lockout window.
	Duration time.Duration `koanf:"duration"`

	// AttemptsPerSecond paces login attempts process-wide. 0 disables pacing.
	AttemptsPerSecond float64 `koanf:"attempts_per_second"`

	// Burst is the limiter burst when AttemptsPerSecond > 0.
	Burst int `koanf:"burst"`
}

// CredentialsConfig controls hashing, temporary secrets and minimum strength.
type CredentialsConfig struct {
	BcryptCost      int  `koanf:"bcrypt_cost"`
	TempSecretBytes int  `koanf:"temp_secret_bytes"`
	MinLength       int  `koanf:"min_length"`
	MinCharClasses  int  `koanf:"min_char_classes"`
	ForbidCommon    bool `koanf:"forbid_common"`
	ForbidLoginName bool `koanf:"forbid_login_name"`
}

// Policy returns the credential policy described by the config.
func (c CredentialsConfig) Policy() CredentialPolicy {
	return CredentialPolicy{
		MinLength:       c.MinLength,
		MinCharClasses:  c.MinCharClasses,
		ForbidCommon:    c.ForbidCommon,
		ForbidLoginName: c.ForbidLoginName,
	}
}

// DatabaseConfig selects and tunes the credential store.
type DatabaseConfig struct {
	// Driver is "sqlite" (modernc.org/sqlite) or "duckdb".
	Driver string `koanf:"driver"`
	Path   string `koanf:"path"`

	// BusyTimeout is applied to SQLite so a concurrent writer waits instead of failing.
	BusyTimeout time.Duration `koanf:"busy_timeout"`

	// Circuit breaker around store calls.
	BreakerMaxRequests uint32        `koanf:"breaker_max_requests"`
	BreakerInterval    time.Duration `koanf:"breaker_interval"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout"`
	BreakerFailures    uint32        `koanf:"breaker_failures"`
}

// LoggingConfig holds logging settings for zerolog.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: console)
//   - LOG_CALLER: true/false - include caller file:line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// DispatchConfig sizes the background worker pool used by UI callers.
type DispatchConfig struct {
	Workers   int `koanf:"workers"`
	QueueSize int `koanf:"queue_size"`
}

// SupervisorConfig holds suture tree tuning.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold"`
	FailureBackoff   time.Duration `koanf:"failure_backoff"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`
}

// Load reads configuration from defaults, the config file and environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
