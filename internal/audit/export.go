// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

package audit

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/schoolgate/internal/models"
)

// ExportJSONLines writes one JSON object per entry, newline separated.
func ExportJSONLines(w io.Writer, entries []models.AccessLogEntry) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for i := range entries {
		if err := enc.Encode(&entries[i]); err != nil {
			return fmt.Errorf("encode entry %d: %w", entries[i].ID, err)
		}
	}
	return bw.Flush()
}

// CEFExporter exports entries in Common Event Format (for SIEM integration).
type CEFExporter struct {
	DeviceVendor  string
	DeviceProduct string
	DeviceVersion string
}

// NewCEFExporter creates a new CEF exporter with defaults.
func NewCEFExporter() *CEFExporter {
	return &CEFExporter{
		DeviceVendor:  "Schoolgate",
		DeviceProduct: "AccessControl",
		DeviceVersion: "1.0",
	}
}

// Export writes entries to w in CEF format, one per line.
// CEF Format: CEF:Version|Device Vendor|Device Product|Device Version|Signature ID|Name|Severity|Extension
func (e *CEFExporter) Export(w io.Writer, entries []models.AccessLogEntry) error {
	bw := bufio.NewWriter(w)
	for idx := range entries {
		entry := &entries[idx]
		_, err := fmt.Fprintf(bw, "CEF:0|%s|%s|%s|%s|%s|%d|%s\n",
			e.escape(e.DeviceVendor),
			e.escape(e.DeviceProduct),
			e.escape(e.DeviceVersion),
			e.escape(entry.Action),
			e.escape(describe(entry)),
			cefSeverity(SeverityOf(entry.Action)),
			e.buildExtension(entry),
		)
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}

// cefSeverity maps our severity to CEF severity (0-10).
func cefSeverity(severity Severity) int {
	switch severity {
	case SeverityInfo:
		return 3
	case SeverityWarning:
		return 5
	case SeverityCritical:
		return 8
	default:
		return 0
	}
}

func (e *CEFExporter) buildExtension(entry *models.AccessLogEntry) string {
	parts := []string{fmt.Sprintf("rt=%d", entry.Timestamp.UnixMilli())}

	if entry.ActorID != "" {
		parts = append(parts, "suid="+e.escape(entry.ActorID))
	}
	if entry.IdentityID != "" {
		parts = append(parts, "duid="+e.escape(entry.IdentityID))
	}
	if entry.LoginAttempted != "" {
		parts = append(parts, "duser="+e.escape(entry.LoginAttempted))
	}
	if entry.Origin != "" {
		parts = append(parts, "shost="+e.escape(entry.Origin))
	}
	parts = append(parts,
		"act="+e.escape(entry.Action),
		"outcome="+string(OutcomeOf(entry.Action)),
		fmt.Sprintf("externalId=%d", entry.ID),
	)
	return strings.Join(parts, " ")
}

// escape escapes special characters for CEF format.
func (e *CEFExporter) escape(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "=", "\\=")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	return s
}

func describe(entry *models.AccessLogEntry) string {
	if entry.Detail != "" {
		return entry.Detail
	}
	return entry.Action
}

// Stats summarizes a set of entries.
type Stats struct {
	Total            int64            `json:"total"`
	ByAction         map[string]int64 `json:"by_action"`
	BySeverity       map[string]int64 `json:"by_severity"`
	ByOutcome        map[string]int64 `json:"by_outcome"`
	Oldest           *time.Time       `json:"oldest,omitempty"`
	Newest           *time.Time       `json:"newest,omitempty"`
	DistinctAccounts int              `json:"distinct_accounts"`
}

// Summarize computes Stats over entries.
func Summarize(entries []models.AccessLogEntry) *Stats {
	stats := &Stats{
		Total:      int64(len(entries)),
		ByAction:   make(map[string]int64),
		BySeverity: make(map[string]int64),
		ByOutcome:  make(map[string]int64),
	}
	accounts := make(map[string]struct{})

	for idx := range entries {
		entry := &entries[idx]
		stats.ByAction[entry.Action]++
		stats.BySeverity[string(SeverityOf(entry.Action))]++
		stats.ByOutcome[string(OutcomeOf(entry.Action))]++
		if entry.IdentityID != "" {
			accounts[entry.IdentityID] = struct{}{}
		}

		ts := entry.Timestamp
		if stats.Oldest == nil || ts.Before(*stats.Oldest) {
			stats.Oldest = &ts
		}
		if stats.Newest == nil || ts.After(*stats.Newest) {
			stats.Newest = &ts
		}
	}
	stats.DistinctAccounts = len(accounts)
	return stats
}
