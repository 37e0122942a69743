// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

// Package main is the schoolgate admin console.
//
// The console wires the access control core the same way the desktop
// application does: configuration (Koanf v2), zerolog logging, the credential
// store with its seeded permission catalog, the auth service, a session and
// the scope resolver. The interactive console additionally runs the job
// dispatcher and the access switch watcher under a suture supervisor tree.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest priority wins):
//   - Environment variables (ACCESS_ENABLED, DB_PATH, LOCKOUT_MAX_ATTEMPTS, ...)
//   - Config file (CONFIG_PATH or ./config.yaml)
//   - Built-in defaults
//
// # Example Usage
//
// First run on an empty store:
//
//	schoolgate bootstrap -staff-ref S-0001 -login director
//	schoolgate create -as director -staff-ref S-0042 -login ines -role teacher
//
// Administration:
//
//	schoolgate reset -as director ines
//	schoolgate deactivate -as director ines
//	schoolgate log -as director -identity ines -format cef
//
// Secrets are read from standard input, one per line.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/schoolgate/internal/authz"
	"github.com/tomtom215/schoolgate/internal/config"
	"github.com/tomtom215/schoolgate/internal/logging"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func newRegistry() *CommandRegistry {
	r := NewCommandRegistry()
	r.Register(bootstrapCommand)
	r.Register(createCommand)
	r.Register(resetCommand)
	r.Register(activateCommand)
	r.Register(deactivateCommand)
	r.Register(passwdCommand)
	r.Register(identitiesCommand)
	r.Register(unitsCommand)
	r.Register(logCommand)
	r.Register(metricsCommand)
	r.Register(consoleCommand)
	return r
}

// run executes one command and returns the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	registry := newRegistry()
	if len(args) < 1 {
		registry.PrintHelp(stderr)
		return 2
	}
	switch args[0] {
	case "help", "-h", "--help":
		registry.PrintHelp(stdout)
		return 0
	}
	cmd, ok := registry.Lookup(args[0])
	if !ok {
		fmt.Fprintf(stderr, "unknown command: %s\n\n", args[0])
		registry.PrintHelp(stderr)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	policy, err := authz.NewPolicy(cfg.Access.PolicyPath)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to load role policy")
		return 1
	}

	store, err := openStore(ctx, cfg, policy)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to open credential store")
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	a, err := newApp(cfg, store, policy, stdin, stdout, stderr)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to initialize auth service")
		return 1
	}

	if err := cmd.Run(ctx, a, cmd, args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			return 2
		}
		fmt.Fprintf(stderr, "error: %s\n", describeError(err))
		return 1
	}
	return 0
}
