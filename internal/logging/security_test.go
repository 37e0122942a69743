// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestSanitizeLoginName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"ab", "***"},
		{"ines.silva", "in***"},
	}
	for _, tt := range tests {
		if got := SanitizeLoginName(tt.input); got != tt.expected {
			t.Errorf("SanitizeLoginName(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestSanitizeIdentityID(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"short", "***"},
		{"0b5e6f0a-1c2d-4e5f-8a9b-0c1d2e3f4a5b", "0b5e...4a5b"},
	}
	for _, tt := range tests {
		if got := SanitizeIdentityID(tt.input); got != tt.expected {
			t.Errorf("SanitizeIdentityID(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestSanitizeError(t *testing.T) {
	if got := SanitizeError("bcrypt: hashedSecret is not the hash of the given password"); got != "authentication error" {
		t.Errorf("expected generic message, got %q", got)
	}
	if got := SanitizeError("database is locked"); got != "database is locked" {
		t.Errorf("unexpected rewrite: %q", got)
	}
	long := strings.Repeat("x", 300)
	if got := SanitizeError(long); len(got) != 203 {
		t.Errorf("expected truncation to 200+..., got length %d", len(got))
	}
}

func TestSanitizeValue(t *testing.T) {
	tests := []struct {
		key, value, expected string
	}{
		{"secret", "hunter22", "***"},
		{"temporary_secret", "", ""},
		{"login", "ines.silva", "in***"},
		{"actor_id", "0b5e6f0a-1c2d-4e5f", "0b5e...4e5f"},
		{"unit", "10", "10"},
	}
	for _, tt := range tests {
		if got := SanitizeValue(tt.key, tt.value); got != tt.expected {
			t.Errorf("SanitizeValue(%q, %q) = %q, want %q", tt.key, tt.value, got, tt.expected)
		}
	}
}

func TestSecurityLoggerLogEvent(t *testing.T) {
	var buf bytes.Buffer
	sl := NewSecurityLoggerWithLogger(NewTestLogger(&buf))

	sl.LogEvent(&SecurityEvent{
		Action:     "login.failure",
		IdentityID: "0b5e6f0a-1c2d-4e5f-8a9b-0c1d2e3f4a5b",
		LoginName:  "ines.silva",
		Success:    false,
		Error:      "wrong secret",
	})

	out := buf.String()
	for _, want := range []string{`"level":"warn"`, `"action":"login.failure"`, `"login":"in***"`, `"identity_id":"0b5e...4a5b"`, `"component":"access"`, `"error":"authentication error"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s: %s", want, out)
		}
	}
	if strings.Contains(out, "ines.silva") {
		t.Errorf("login name leaked: %s", out)
	}
}
