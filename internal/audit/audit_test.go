// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

package audit

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/schoolgate/internal/models"
)

var t0 = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func sampleEntries() []models.AccessLogEntry {
	return []models.AccessLogEntry{
		{ID: 1, IdentityID: "a", LoginAttempted: "ines", Action: ActionLoginFailure, Origin: "desk-1", Timestamp: t0},
		{ID: 2, IdentityID: "a", LoginAttempted: "ines", Action: ActionLoginSuccess, Origin: "desk-1", Timestamp: t0.Add(time.Minute)},
		{ID: 3, LoginAttempted: "nobody", Action: ActionLoginUnknownUser, Timestamp: t0.Add(2 * time.Minute)},
		{ID: 4, IdentityID: "b", ActorID: "a", Action: ActionCredentialReset, Detail: "temporary secret issued", Timestamp: t0.Add(3 * time.Minute)},
	}
}

func TestFilterMatches(t *testing.T) {
	since := t0.Add(time.Minute)
	until := t0.Add(3 * time.Minute)

	tests := []struct {
		name   string
		filter Filter
		want   []int64
	}{
		{"empty filter", Filter{}, []int64{1, 2, 3, 4}},
		{"by identity", Filter{IdentityID: "a"}, []int64{1, 2}},
		{"by actor", Filter{ActorID: "a"}, []int64{4}},
		{"by actions", Filter{Actions: []string{ActionLoginSuccess, ActionLoginUnknownUser}}, []int64{2, 3}},
		{"since inclusive until exclusive", Filter{Since: &since, Until: &until}, []int64{2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []int64
			entries := sampleEntries()
			for i := range entries {
				if tt.filter.Matches(&entries[i]) {
					got = append(got, entries[i].ID)
				}
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestFilterEffectiveLimit(t *testing.T) {
	tests := []struct {
		limit, want int
	}{
		{0, DefaultLimit},
		{-3, DefaultLimit},
		{25, 25},
		{MaxLimit + 1, MaxLimit},
	}
	for _, tt := range tests {
		f := Filter{Limit: tt.limit}
		if got := f.EffectiveLimit(); got != tt.want {
			t.Errorf("EffectiveLimit(%d) = %d, want %d", tt.limit, got, tt.want)
		}
	}
}

func TestClassification(t *testing.T) {
	if SeverityOf(ActionLoginLockout) != SeverityCritical {
		t.Error("lockout should be critical")
	}
	if SeverityOf(ActionLoginSuccess) != SeverityInfo {
		t.Error("success should be info")
	}
	if OutcomeOf(ActionLoginLocked) != OutcomeFailure {
		t.Error("locked attempt is a failure")
	}
	if OutcomeOf(ActionIdentityCreated) != OutcomeSuccess {
		t.Error("identity creation is a success")
	}
	for _, a := range Actions {
		if !KnownAction(a) {
			t.Errorf("%s not known", a)
		}
	}
	if KnownAction("login.maybe") {
		t.Error("unexpected known action")
	}
}

func TestEntryBuilders(t *testing.T) {
	local := time.Date(2026, 3, 2, 9, 0, 0, 0, time.FixedZone("CET", 3600))

	e := LoginEntry(ActionLoginUnknownUser, "", "ghost", "desk-2", "", local)
	if e.IdentityID != "" || e.LoginAttempted != "ghost" || e.Origin != "desk-2" {
		t.Errorf("unexpected login entry %+v", e)
	}
	if e.Timestamp.Location() != time.UTC {
		t.Error("timestamps must be stored in UTC")
	}

	a := AdminEntry(ActionIdentityDeactivated, "target", "admin", "", local)
	if a.IdentityID != "target" || a.ActorID != "admin" {
		t.Errorf("unexpected admin entry %+v", a)
	}

	s := SelfEntry(ActionLogout, "me", "", local)
	if s.ActorID != "" || s.IdentityID != "me" {
		t.Errorf("unexpected self entry %+v", s)
	}
}

func TestExportJSONLines(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportJSONLines(&buf, sampleEntries()); err != nil {
		t.Fatalf("ExportJSONLines: %v", err)
	}

	scanner := bufio.NewScanner(&buf)
	var lines int
	for scanner.Scan() {
		var e models.AccessLogEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("line %d is not JSON: %v", lines+1, err)
		}
		lines++
		if e.ID != int64(lines) {
			t.Errorf("line %d has id %d", lines, e.ID)
		}
	}
	if lines != 4 {
		t.Errorf("expected 4 lines, got %d", lines)
	}
}

func TestExportJSONLinesEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportJSONLines(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestCEFExporter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewCEFExporter().Export(&buf, sampleEntries()); err != nil {
		t.Fatalf("Export: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "CEF:0|Schoolgate|AccessControl|1.0|login.failure|") {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if !strings.Contains(lines[0], "outcome=failure") || !strings.Contains(lines[0], "shost=desk-1") {
		t.Errorf("missing extension fields: %s", lines[0])
	}
	if !strings.Contains(lines[3], "suid=a") || !strings.Contains(lines[3], "temporary secret issued") {
		t.Errorf("reset line missing actor or detail: %s", lines[3])
	}
}

func TestCEFEscape(t *testing.T) {
	e := NewCEFExporter()
	if got := e.escape("a|b=c\\d\ne"); got != `a\|b\=c\\d e` {
		t.Errorf("escape = %q", got)
	}
}

func TestSummarize(t *testing.T) {
	stats := Summarize(sampleEntries())
	if stats.Total != 4 {
		t.Errorf("Total = %d", stats.Total)
	}
	if stats.ByOutcome[string(OutcomeFailure)] != 2 {
		t.Errorf("failures = %d", stats.ByOutcome[string(OutcomeFailure)])
	}
	if stats.DistinctAccounts != 2 {
		t.Errorf("DistinctAccounts = %d", stats.DistinctAccounts)
	}
	if !stats.Oldest.Equal(t0) || !stats.Newest.Equal(t0.Add(3*time.Minute)) {
		t.Errorf("range = %v..%v", stats.Oldest, stats.Newest)
	}

	empty := Summarize(nil)
	if empty.Total != 0 || empty.Oldest != nil {
		t.Error("empty summary should be zero")
	}
}
