// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

/*
Package config provides centralized configuration management for Schoolgate.

# Configuration Sources

Configuration is loaded with Koanf v2 in three layers, later layers winning:
  - Built-in defaults (defaultConfig)
  - Optional YAML file (CONFIG_PATH, ./schoolgate.yaml, /etc/schoolgate/config.yaml)
  - Environment variables (explicit mapping in envTransformFunc)

# Environment Variables

Access control:
  - ACCESS_ENABLED: master enforcement switch (default: true)

Lockout:
  - LOCKOUT_MAX_ATTEMPTS: failed attempts before lockout (default: 5)
  - LOCKOUT_DURATION: lockout window (default: 15m)
  - LOGIN_RATE: process-wide login attempts per second, 0 disables (default: 0)
  - LOGIN_BURST: burst for LOGIN_RATE (default: 3)

Credentials:
  - BCRYPT_COST: bcrypt work factor (default: 12)
  - TEMP_SECRET_BYTES: random bytes in a temporary secret (default: 12)
  - SECRET_MIN_LENGTH: minimum secret length (default: 8)
  - SECRET_MIN_CLASSES: minimum character classes (default: 2)

Database:
  - DB_DRIVER: sqlite or duckdb (default: sqlite)
  - DB_PATH: database file (default: schoolgate.db)

Logging:
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

Dispatch:
  - DISPATCH_WORKERS, DISPATCH_QUEUE_SIZE

# Enforcement Switch

The access.enabled value is exposed as a Switch. The switch is consulted at
call time by the session and guard packages, and SwitchWatcher keeps it in
sync with the config file while the application runs.

# Credential Policy

CredentialPolicy enforces minimum strength only: length, character-class
count, a common-secret list and inequality with the login name.
*/
package config
