// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

/*
Package models defines the data structures shared by the Schoolgate access
control packages.

Key Components:

  - Identity: an authenticatable account linked to a staff record
  - Role: closed enumeration of Administrator, Coordinator and Teacher
  - Permission: catalog entry with a namespaced code (e.g. "students.create")
  - Override: per-identity Add/Remove layered on top of the role baseline
  - AccessLogEntry: immutable audit record written by the auth service
  - AcademicPeriod, TeachingAssignment: inputs to row-level scoping

Usage:
  - Persistence in internal/database
  - Permission resolution in internal/authz
  - Authentication flows in internal/auth
  - Unit scoping in internal/scope
*/
package models
