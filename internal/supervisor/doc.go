// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

/*
Package supervisor runs the background services of Schoolgate under suture v4.

# Overview

	RootSupervisor ("schoolgate")
	├── CoreSupervisor ("core-layer")
	│   └── dispatch.Dispatcher
	└── ConfigSupervisor ("config-layer")
	    └── config.SwitchWatcher (when a config file is in use)

A crashed service is restarted with backoff. Failures are counted per layer,
so a watcher stuck on a broken config file does not restart the dispatcher.
Supervisor events are logged through the zerolog slog bridge.

# Usage

	tree := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfigFrom(cfg.Supervisor))
	tree.AddCoreService(dispatcher)
	if path := config.ConfigFile(); path != "" {
	    tree.AddConfigService(config.NewSwitchWatcher(path, sw))
	}
	errCh := tree.ServeBackground(ctx)
*/
package supervisor
