// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

package config

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	if err := c.validateLockout(); err != nil {
		return err
	}
	if err := c.validateCredentials(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateDispatch(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateLockout() error {
	if c.Lockout.MaxAttempts < 1 {
		return fmt.Errorf("lockout.max_attempts must be at least 1, got %d", c.Lockout.MaxAttempts)
	}
	if c.Lockout.Duration <= 0 {
		return fmt.Errorf("lockout.duration must be positive, got %s", c.Lockout.Duration)
	}
	if c.Lockout.AttemptsPerSecond < 0 {
		return fmt.Errorf("lockout.attempts_per_second must not be negative")
	}
	if c.Lockout.AttemptsPerSecond > 0 && c.Lockout.Burst < 1 {
		return fmt.Errorf("lockout.burst must be at least 1 when pacing is enabled")
	}
	return nil
}

func (c *Config) validateCredentials() error {
	if c.Credentials.BcryptCost < bcrypt.MinCost || c.Credentials.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("credentials.bcrypt_cost must be between %d and %d, got %d",
			bcrypt.MinCost, bcrypt.MaxCost, c.Credentials.BcryptCost)
	}
	// 9 bytes is 72 bits of entropy, the floor for a one-time secret.
	if c.Credentials.TempSecretBytes < 9 {
		return fmt.Errorf("credentials.temp_secret_bytes must be at least 9, got %d", c.Credentials.TempSecretBytes)
	}
	if c.Credentials.MinLength < 1 {
		return fmt.Errorf("credentials.min_length must be at least 1")
	}
	if c.Credentials.MinCharClasses < 0 || c.Credentials.MinCharClasses > 4 {
		return fmt.Errorf("credentials.min_char_classes must be between 0 and 4")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case "sqlite", "duckdb":
	default:
		return fmt.Errorf("database.driver must be sqlite or duckdb, got %q", c.Database.Driver)
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Database.BreakerFailures == 0 {
		return fmt.Errorf("database.breaker_failures must be at least 1")
	}
	return nil
}

func (c *Config) validateDispatch() error {
	if c.Dispatch.Workers < 1 {
		return fmt.Errorf("dispatch.workers must be at least 1, got %d", c.Dispatch.Workers)
	}
	if c.Dispatch.QueueSize < 1 {
		return fmt.Errorf("dispatch.queue_size must be at least 1, got %d", c.Dispatch.QueueSize)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
		return nil
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
}
