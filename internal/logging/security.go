// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

package logging

import (
	"strings"

	"github.com/rs/zerolog"
)

// SecurityEvent is an operational log record for an access control event.
// It complements, and never replaces, the persisted access log.
type SecurityEvent struct {
	// Action is the access log action (e.g. "login.failure").
	Action string
	// IdentityID is the target identity (if known).
	IdentityID string
	// ActorID is the acting administrator for administrative actions.
	ActorID string
	// LoginName is the attempted login name.
	LoginName string
	// Origin describes where the attempt came from (workstation, console).
	Origin string
	// Success indicates if the operation was successful.
	Success bool
	// Error is the error message if the operation failed.
	Error string
}

// SecurityLogger writes access control events with sanitized identifiers.
type SecurityLogger struct {
	logger zerolog.Logger
}

// NewSecurityLogger creates a security logger on top of the global logger.
func NewSecurityLogger() *SecurityLogger {
	return &SecurityLogger{logger: WithComponent("access")}
}

// NewSecurityLoggerWithLogger creates a security logger with a custom zerolog logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewSecurityLoggerWithLogger(logger zerolog.Logger) *SecurityLogger {
	return &SecurityLogger{logger: logger.With().Str("component", "access").Logger()}
}

// LogEvent logs a security event. Failures are logged at warn level.
func (l *SecurityLogger) LogEvent(event *SecurityEvent) {
	e := l.logger.Info()
	if !event.Success {
		e = l.logger.Warn()
	}
	e = e.Str("action", event.Action).Bool("success", event.Success)

	if event.IdentityID != "" {
		e = e.Str("identity_id", SanitizeIdentityID(event.IdentityID))
	}
	if event.ActorID != "" {
		e = e.Str("actor_id", SanitizeIdentityID(event.ActorID))
	}
	if event.LoginName != "" {
		e = e.Str("login", SanitizeLoginName(event.LoginName))
	}
	if event.Origin != "" {
		e = e.Str("origin", truncateString(event.Origin, 64))
	}
	if event.Error != "" {
		e = e.Str("error", SanitizeError(event.Error))
	}

	e.Msg("access event")
}

// SanitizeIdentityID masks an identity ID.
// Example: "0b5e6f0a-1c2d-4e5f-8a9b-0c1d2e3f4a5b" -> "0b5e...4a5b"
func SanitizeIdentityID(id string) string {
	if id == "" {
		return ""
	}
	if len(id) <= 8 {
		return "***"
	}
	return id[:4] + "..." + id[len(id)-4:]
}

// SanitizeLoginName masks a login name, keeping the first 2 characters.
// Example: "ines.silva" -> "in***"
func SanitizeLoginName(name string) string {
	if name == "" {
		return ""
	}
	if len(name) <= 2 {
		return "***"
	}
	return name[:2] + "***"
}

// SanitizeError removes potentially sensitive information from error messages.
func SanitizeError(err string) string {
	lowerErr := strings.ToLower(err)
	for _, pattern := range []string{"password", "secret", "hash", "credential"} {
		if strings.Contains(lowerErr, pattern) {
			return "authentication error"
		}
	}
	return truncateString(err, 200)
}

// SanitizeValue sanitizes a value based on its key name.
func SanitizeValue(key, value string) string {
	switch strings.ToLower(key) {
	case "secret", "password", "credential", "credential_hash", "temporary_secret":
		if value == "" {
			return ""
		}
		return "***"
	case "login", "login_name":
		return SanitizeLoginName(value)
	case "identity_id", "actor_id":
		return SanitizeIdentityID(value)
	default:
		return value
	}
}

// truncateString truncates a string to a maximum length.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
