// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/schoolgate/internal/auth"
	"github.com/tomtom215/schoolgate/internal/authz"
	"github.com/tomtom215/schoolgate/internal/config"
	"github.com/tomtom215/schoolgate/internal/database"
	"github.com/tomtom215/schoolgate/internal/logging"
	"github.com/tomtom215/schoolgate/internal/models"
	"github.com/tomtom215/schoolgate/internal/scope"
	"github.com/tomtom215/schoolgate/internal/session"
)

// consoleOrigin is recorded as the origin of logins made from this binary.
const consoleOrigin = "console"

// app holds the wired components shared by every command.
type app struct {
	cfg    *config.Config
	store  database.Store
	policy *authz.Policy
	sw     *config.Switch
	svc    *auth.Service
	sess   *session.Context
	scopes *scope.Resolver

	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer
}

// newApp wires the service layer on top of an open store.
func newApp(cfg *config.Config, store database.Store, policy *authz.Policy, in io.Reader, out, errOut io.Writer) (*app, error) {
	sw := config.NewSwitch(cfg.Access.Enabled)
	svc, err := auth.NewService(store, cfg)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:    cfg,
		store:  store,
		policy: policy,
		sw:     sw,
		svc:    svc,
		sess:   session.New(sw),
		scopes: scope.NewResolver(store, sw),
		in:     bufio.NewReader(in),
		out:    out,
		errOut: errOut,
	}, nil
}

// openStore opens the configured store and seeds reference data from the
// role policy.
func openStore(ctx context.Context, cfg *config.Config, policy *authz.Policy) (*database.SQLStore, error) {
	grants, err := policy.Grants()
	if err != nil {
		return nil, fmt.Errorf("load role grants: %w", err)
	}

	store, err := database.Open(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := database.Seed(ctx, store, authz.Catalog, grants); err != nil {
		if closeErr := store.Close(); closeErr != nil {
			logging.Error().Err(closeErr).Msg("Error closing database")
		}
		return nil, fmt.Errorf("seed reference data: %w", err)
	}

	logging.Info().
		Str("driver", store.Driver()).
		Str("path", cfg.Database.Path).
		Bool("access_enabled", cfg.Access.Enabled).
		Msg("Credential store ready")
	return store, nil
}

// readLine prompts on errOut and reads one line from the input.
func (a *app) readLine(prompt string) (string, error) {
	fmt.Fprint(a.errOut, prompt)
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// signIn logs loginName in, prompting for the secret, and fills the session.
func (a *app) signIn(ctx context.Context, loginName string) (*auth.Principal, error) {
	secret, err := a.readLine(fmt.Sprintf("Secret for %s: ", loginName))
	if err != nil {
		return nil, err
	}
	p, err := a.svc.Login(ctx, loginName, secret, consoleOrigin)
	if err != nil {
		return nil, err
	}
	a.sess.Set(p.Identity, p.Permissions)
	if p.MustResetCredential() {
		fmt.Fprintf(a.errOut, "%s must change their secret before continuing (schoolgate passwd %s)\n",
			p.Identity.LoginName, p.Identity.LoginName)
	}
	return p, nil
}

// actor returns the logged-in identity. Commands sign in before calling it.
func (a *app) actor() (*models.Identity, error) {
	ident, ok := a.sess.Get()
	if !ok {
		return nil, errors.New("not logged in")
	}
	return ident, nil
}

// lookup resolves a login name to an identity.
func (a *app) lookup(ctx context.Context, loginName string) (*models.Identity, error) {
	ident, err := a.store.IdentityByLoginName(ctx, models.NormalizeLoginName(loginName))
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("no identity with login name %q", loginName)
	}
	return ident, err
}

// printJSON writes v as indented JSON.
func (a *app) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, string(data))
	return err
}
