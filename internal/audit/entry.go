// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

package audit

import (
	"time"

	"github.com/tomtom215/schoolgate/internal/models"
)

// LoginEntry records a login attempt. identityID is empty for unknown users.
func LoginEntry(action, identityID, loginAttempted, origin, detail string, now time.Time) *models.AccessLogEntry {
	return &models.AccessLogEntry{
		IdentityID:     identityID,
		LoginAttempted: loginAttempted,
		Action:         action,
		Detail:         detail,
		Origin:         origin,
		Timestamp:      now.UTC(),
	}
}

// SelfEntry records an action an identity performed on itself.
func SelfEntry(action, identityID, detail string, now time.Time) *models.AccessLogEntry {
	return &models.AccessLogEntry{
		IdentityID: identityID,
		Action:     action,
		Detail:     detail,
		Timestamp:  now.UTC(),
	}
}

// AdminEntry records an administrative action on target by actor.
func AdminEntry(action, targetID, actorID, detail string, now time.Time) *models.AccessLogEntry {
	return &models.AccessLogEntry{
		IdentityID: targetID,
		ActorID:    actorID,
		Action:     action,
		Detail:     detail,
		Timestamp:  now.UTC(),
	}
}
