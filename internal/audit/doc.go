// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

/*
Package audit defines the access log vocabulary.

Every authentication and identity-administration outcome is recorded as one
immutable models.AccessLogEntry. This package owns the action names, the
builders that populate entries consistently, the query Filter understood by
the store, and the exporters used by the admin console.

# Actions

	login.success          credentials accepted
	login.failure          wrong secret, attempts remaining
	login.unknown_user     no identity with that login name
	login.locked           attempt while the lockout window is open
	login.lockout          the failure that triggered a lockout
	login.inactive         identity is deactivated
	logout                 session cleared
	credential.changed     owner changed their secret
	credential.change_failed
	credential.reset       administrator issued a temporary secret
	identity.created
	identity.activated
	identity.deactivated

Guard denials are not access log entries; they are counted in metrics.

# Export

ExportJSONLines writes one JSON object per line. CEFExporter renders the
Common Event Format for SIEM ingestion.
*/
package audit
