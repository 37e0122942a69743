// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

package authz

import "github.com/tomtom215/schoolgate/internal/models"

// Permission codes referenced from Go code. The catalog below is the full list.
const (
	PermStudentsView     = "students.view"
	PermStudentsCreate   = "students.create"
	PermStudentsEdit     = "students.edit"
	PermClassesView      = "classes.view"
	PermClassesManage    = "classes.manage"
	PermGradesView       = "grades.view"
	PermGradesEdit       = "grades.edit"
	PermAttendanceView   = "attendance.view"
	PermAttendanceRecord = "attendance.record"
	PermStaffView        = "staff.view"
	PermStaffManage      = "staff.manage"
	PermReportsGenerate  = "reports.generate"
	PermDocumentsUpload  = "documents.upload"
	PermPeriodsManage    = "periods.manage"
	PermIdentitiesManage = "identities.manage"
	PermAccessLogView    = "access_log.view"
)

// Catalog is the permission reference data seeded into the store.
var Catalog = []models.Permission{
	{Code: PermStudentsView, Module: "students", Description: "View student records"},
	{Code: PermStudentsCreate, Module: "students", Description: "Create student records"},
	{Code: PermStudentsEdit, Module: "students", Description: "Edit student records"},
	{Code: PermClassesView, Module: "classes", Description: "View classes and sections"},
	{Code: PermClassesManage, Module: "classes", Description: "Create classes and assign teachers"},
	{Code: PermGradesView, Module: "grades", Description: "View grades"},
	{Code: PermGradesEdit, Module: "grades", Description: "Enter and edit grades"},
	{Code: PermAttendanceView, Module: "attendance", Description: "View attendance"},
	{Code: PermAttendanceRecord, Module: "attendance", Description: "Record attendance"},
	{Code: PermStaffView, Module: "staff", Description: "View staff records"},
	{Code: PermStaffManage, Module: "staff", Description: "Create and edit staff records"},
	{Code: PermReportsGenerate, Module: "reports", Description: "Generate PDF reports"},
	{Code: PermDocumentsUpload, Module: "documents", Description: "Upload documents"},
	{Code: PermPeriodsManage, Module: "academic", Description: "Manage academic periods"},
	{Code: PermIdentitiesManage, Module: "access", Description: "Create, reset and deactivate identities"},
	{Code: PermAccessLogView, Module: "access", Description: "View the access log"},
}

// InCatalog reports whether code is a known permission.
func InCatalog(code string) bool {
	for _, p := range Catalog {
		if p.Code == code {
			return true
		}
	}
	return false
}
