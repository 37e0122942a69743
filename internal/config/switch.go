// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

package config

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/tomtom215/schoolgate/internal/logging"
)

// Switch is the access control master switch. It is safe for concurrent use.
type Switch struct {
	enabled atomic.Bool
}

// NewSwitch returns a switch in the given state.
func NewSwitch(enabled bool) *Switch {
	s := &Switch{}
	s.enabled.Store(enabled)
	return s
}

// Enabled reports whether access control is enforced. A nil switch is
// always on.
func (s *Switch) Enabled() bool {
	return s == nil || s.enabled.Load()
}

// Set changes the switch state and reports whether it changed.
func (s *Switch) Set(enabled bool) bool {
	return s.enabled.Swap(enabled) != enabled
}

// SwitchWatcher keeps a Switch in sync with access.enabled in a config file.
// It implements suture.Service.
type SwitchWatcher struct {
	path   string
	sw     *Switch
	reload func(path string) (*Config, error)
}

// NewSwitchWatcher creates a watcher for path.
func NewSwitchWatcher(path string, sw *Switch) *SwitchWatcher {
	return &SwitchWatcher{path: path, sw: sw, reload: LoadFile}
}

// Apply reloads the config file and updates the switch.
// A config that fails to load leaves the switch untouched.
func (w *SwitchWatcher) Apply() error {
	cfg, err := w.reload(w.path)
	if err != nil {
		return fmt.Errorf("reload %s: %w", w.path, err)
	}
	if w.sw.Set(cfg.Access.Enabled) {
		logging.Warn().
			Bool("enabled", cfg.Access.Enabled).
			Str("path", w.path).
			Msg("Access control switch changed")
	}
	return nil
}

// Serve watches the file until ctx is cancelled.
func (w *SwitchWatcher) Serve(ctx context.Context) error {
	provider, err := WatchConfigFile(w.path, func() {
		if err := w.Apply(); err != nil {
			logging.Error().Err(err).Msg("Config reload failed, keeping previous access switch")
		}
	})
	if err != nil {
		return err
	}
	<-ctx.Done()
	if err := provider.Unwatch(); err != nil {
		logging.Debug().Err(err).Msg("Config watcher close failed")
	}
	return ctx.Err()
}

// String implements fmt.Stringer for suture logging.
func (w *SwitchWatcher) String() string {
	return "config-watcher"
}
