// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

package models

import "time"

// AccessLogEntry is an immutable audit record.
//
// IdentityID is empty for attempts against an unknown login name.
// ActorID is set for administrative actions and names the acting administrator.
type AccessLogEntry struct {
	ID             int64     `json:"id"`
	IdentityID     string    `json:"identity_id,omitempty"`
	ActorID        string    `json:"actor_id,omitempty"`
	LoginAttempted string    `json:"login_attempted,omitempty"`
	Action         string    `json:"action"`
	Detail         string    `json:"detail,omitempty"`
	Origin         string    `json:"origin,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}
