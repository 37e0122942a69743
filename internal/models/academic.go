// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

package models

import "time"

// AcademicPeriod is a school year or term. At most one period is current.
type AcademicPeriod struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	StartsOn time.Time `json:"starts_on"`
	EndsOn   time.Time `json:"ends_on"`
	Current  bool      `json:"current"`
}

// TeachingAssignment records that an identity teaches an organizational unit
// (class or section) during an academic period.
type TeachingAssignment struct {
	IdentityID string `json:"identity_id"`
	UnitID     int64  `json:"unit_id"`
	PeriodID   string `json:"period_id"`
}
