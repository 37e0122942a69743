// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"schoolgate.yaml",
	"schoolgate.yml",
	"/etc/schoolgate/config.yaml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Access: AccessConfig{
			Enabled: true,
		},
		Lockout: LockoutConfig{
			MaxAttempts:       5,
			Duration:          15 * time.Minute,
			AttemptsPerSecond: 0,
			Burst:             3,
		},
		Credentials: CredentialsConfig{
			BcryptCost:      12,
			TempSecretBytes: 12, // 16 base64url characters
			MinLength:       8,
			MinCharClasses:  2,
			ForbidCommon:    true,
			ForbidLoginName: true,
		},
		Database: DatabaseConfig{
			Driver:             "sqlite",
			Path:               "schoolgate.db",
			BusyTimeout:        5 * time.Second,
			BreakerMaxRequests: 1,
			BreakerInterval:    time.Minute,
			BreakerTimeout:     30 * time.Second,
			BreakerFailures:    5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Caller: false,
		},
		Dispatch: DispatchConfig{
			Workers:   2,
			QueueSize: 32,
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
	}
}

// Default returns the built-in defaults without reading a file or the environment.
func Default() *Config {
	return defaultConfig()
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in defaults
//  2. Config File: Optional YAML config file (if found)
//  3. Environment Variables: Override any setting
func LoadWithKoanf() (*Config, error) {
	return LoadFile(findConfigFile())
}

// LoadFile loads configuration with an explicit YAML file path.
// An empty path skips the file layer.
func LoadFile(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// ACCESS_ENABLED -> access.enabled, DB_PATH -> database.path, ...
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// ConfigFile returns the config file that Load would use, or "".
func ConfigFile() string {
	return findConfigFile()
}

// envMappings maps environment variable names (lower-cased) to koanf paths.
var envMappings = map[string]string{
	"access_enabled":     "access.enabled",
	"access_policy_path": "access.policy_path",

	"lockout_max_attempts": "lockout.max_attempts",
	"lockout_duration":     "lockout.duration",
	"login_rate":           "lockout.attempts_per_second",
	"login_burst":          "lockout.burst",

	"bcrypt_cost":              "credentials.bcrypt_cost",
	"temp_secret_bytes":        "credentials.temp_secret_bytes",
	"secret_min_length":        "credentials.min_length",
	"secret_min_classes":       "credentials.min_char_classes",
	"secret_forbid_common":     "credentials.forbid_common",
	"secret_forbid_login_name": "credentials.forbid_login_name",

	"db_driver":               "database.driver",
	"db_path":                 "database.path",
	"db_busy_timeout":         "database.busy_timeout",
	"db_breaker_max_requests": "database.breaker_max_requests",
	"db_breaker_interval":     "database.breaker_interval",
	"db_breaker_timeout":      "database.breaker_timeout",
	"db_breaker_failures":     "database.breaker_failures",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"dispatch_workers":    "dispatch.workers",
	"dispatch_queue_size": "dispatch.queue_size",

	"supervisor_failure_threshold": "supervisor.failure_threshold",
	"supervisor_failure_backoff":   "supervisor.failure_backoff",
	"supervisor_shutdown_timeout":  "supervisor.shutdown_timeout",
}

// envTransformFunc transforms environment variable names to koanf config paths.
// Unmapped variables return "" and are skipped, so unrelated environment
// variables never leak into the configuration.
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}

// WatchConfigFile sets up a file watcher for hot-reload capability.
// The returned provider must be unwatched by the caller.
func WatchConfigFile(path string, callback func()) (*file.File, error) {
	provider := file.Provider(path)
	err := provider.Watch(func(_ interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}
	return provider, nil
}
