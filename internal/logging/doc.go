// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

// Package logging provides centralized zerolog-based logging for Schoolgate.
//
// The package keeps one global zerolog logger that every other package writes
// through. It provides:
//
//   - JSON output for deployments, console output for the admin console
//   - Context-aware logging with correlation ID propagation
//   - An slog bridge for libraries that expect *slog.Logger (sutureslog)
//   - Sanitizers for login names and identity IDs in security events
//
// # Quick Start
//
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "console",
//	})
//
//	logging.Info().Msg("Credential store opened")
//	logging.Ctx(ctx).Warn().Str("login", logging.SanitizeLoginName(name)).Msg("Login locked")
//
// # Secrets
//
// Secrets and credential hashes must never be passed to a log event. Login
// names are masked with SanitizeLoginName and identity IDs with SanitizeIdentityID.
//
// Always terminate log chains with .Msg() or .Send():
//
//	logging.Info().Str("key", "value").Msg("message")  // Correct
//	logging.Info().Str("key", "value")                 // WRONG - log not emitted
package logging
