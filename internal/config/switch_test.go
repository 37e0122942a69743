// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

package config

import (
	"os"
	"testing"
)

func TestSwitch(t *testing.T) {
	sw := NewSwitch(true)
	if !sw.Enabled() {
		t.Fatal("expected enabled")
	}
	if changed := sw.Set(true); changed {
		t.Error("Set to same value should report no change")
	}
	if changed := sw.Set(false); !changed {
		t.Error("Set to new value should report change")
	}
	if sw.Enabled() {
		t.Error("expected disabled")
	}
}

func TestNilSwitchIsEnforced(t *testing.T) {
	var sw *Switch
	if !sw.Enabled() {
		t.Error("nil switch should report enforced")
	}
}

func TestSwitchWatcherApply(t *testing.T) {
	path := writeConfig(t, "access:\n  enabled: true\n")
	sw := NewSwitch(true)
	w := NewSwitchWatcher(path, sw)

	if err := os.WriteFile(path, []byte("access:\n  enabled: false\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := w.Apply(); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if sw.Enabled() {
		t.Error("expected switch off after reload")
	}

	// A broken file keeps the previous state.
	if err := os.WriteFile(path, []byte("database:\n  driver: oracle\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := w.Apply(); err == nil {
		t.Error("expected reload error")
	}
	if sw.Enabled() {
		t.Error("switch changed on failed reload")
	}
}
