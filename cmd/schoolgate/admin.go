// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

package main

import (
	"context"
	"fmt"

	"github.com/tomtom215/schoolgate/internal/auth"
	"github.com/tomtom215/schoolgate/internal/authz"
	"github.com/tomtom215/schoolgate/internal/guard"
	"github.com/tomtom215/schoolgate/internal/models"
)

var bootstrapCommand = &Command{
	Name:        "bootstrap",
	Description: "Create the first administrator on an empty store",
	Usage:       "schoolgate bootstrap -staff-ref <ref> -login <name>",
	Examples:    []string{"schoolgate bootstrap -staff-ref S-0001 -login director"},
	Run:         runBootstrap,
}

func runBootstrap(ctx context.Context, a *app, c *Command, args []string) error {
	fs := c.NewFlagSet(a.errOut)
	staffRef := fs.String("staff-ref", "", "staff record reference")
	login := fs.String("login", "", "login name of the administrator")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *staffRef == "" || *login == "" {
		fs.Usage()
		return errUsage
	}

	secret, err := a.readLine("New secret: ")
	if err != nil {
		return err
	}
	ident, err := a.svc.BootstrapAdministrator(ctx, *staffRef, *login, secret)
	if err != nil {
		return err
	}
	return a.printJSON(ident)
}

var createCommand = &Command{
	Name:        "create",
	Description: "Create an identity (administrator only)",
	Usage:       "schoolgate create -as <admin> -staff-ref <ref> -login <name> -role <role> [-set-secret]",
	Examples: []string{
		"schoolgate create -as director -staff-ref S-0042 -login ines -role teacher",
	},
	Run: runCreate,
}

// createdOutput is printed by create. The temporary secret is shown once.
type createdOutput struct {
	Identity        *models.Identity `json:"identity"`
	TemporarySecret string           `json:"temporary_secret,omitempty"`
}

func runCreate(ctx context.Context, a *app, c *Command, args []string) error {
	fs := c.NewFlagSet(a.errOut)
	as := fs.String("as", "", "administrator performing the change")
	staffRef := fs.String("staff-ref", "", "staff record reference")
	login := fs.String("login", "", "login name of the new identity")
	role := fs.String("role", "teacher", "administrator, coordinator or teacher")
	setSecret := fs.Bool("set-secret", false, "prompt for the initial secret instead of generating one")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *as == "" {
		fs.Usage()
		return errUsage
	}

	if _, err := a.signIn(ctx, *as); err != nil {
		return err
	}
	defer a.signOut(ctx)

	var secret string
	if *setSecret {
		var err error
		if secret, err = a.readLine(fmt.Sprintf("Secret for %s: ", *login)); err != nil {
			return err
		}
	}

	return guard.Do(ctx, a.sess, guard.Permission(authz.PermIdentitiesManage), func(ctx context.Context) error {
		actor, err := a.actor()
		if err != nil {
			return err
		}
		created, err := a.svc.CreateIdentity(ctx, auth.NewIdentity{
			StaffRef:  *staffRef,
			LoginName: *login,
			Role:      *role,
			Secret:    secret,
			ActorID:   actor.ID,
		})
		if err != nil {
			return err
		}
		return a.printJSON(createdOutput{Identity: created.Identity, TemporarySecret: created.TemporarySecret})
	})
}

var resetCommand = &Command{
	Name:        "reset",
	Description: "Issue a temporary secret for an identity (administrator only)",
	Usage:       "schoolgate reset -as <admin> <login>",
	Examples:    []string{"schoolgate reset -as director ines"},
	Run:         runReset,
}

func runReset(ctx context.Context, a *app, c *Command, args []string) error {
	fs := c.NewFlagSet(a.errOut)
	as := fs.String("as", "", "administrator performing the reset")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *as == "" || fs.NArg() != 1 {
		fs.Usage()
		return errUsage
	}

	if _, err := a.signIn(ctx, *as); err != nil {
		return err
	}
	defer a.signOut(ctx)

	return guard.Do(ctx, a.sess, guard.Permission(authz.PermIdentitiesManage), func(ctx context.Context) error {
		actor, err := a.actor()
		if err != nil {
			return err
		}
		target, err := a.lookup(ctx, fs.Arg(0))
		if err != nil {
			return err
		}
		secret, err := a.svc.ResetCredential(ctx, target.ID, actor.ID)
		if err != nil {
			return err
		}
		return a.printJSON(map[string]string{
			"login_name":       target.LoginName,
			"temporary_secret": secret,
		})
	})
}

var activateCommand = &Command{
	Name:        "activate",
	Description: "Re-enable a deactivated identity (administrator only)",
	Usage:       "schoolgate activate -as <admin> <login>",
	Run: func(ctx context.Context, a *app, c *Command, args []string) error {
		return runSetActive(ctx, a, c, args, true)
	},
}

var deactivateCommand = &Command{
	Name:        "deactivate",
	Description: "Disable an identity without removing it (administrator only)",
	Usage:       "schoolgate deactivate -as <admin> <login>",
	Run: func(ctx context.Context, a *app, c *Command, args []string) error {
		return runSetActive(ctx, a, c, args, false)
	},
}

func runSetActive(ctx context.Context, a *app, c *Command, args []string, active bool) error {
	fs := c.NewFlagSet(a.errOut)
	as := fs.String("as", "", "administrator performing the change")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *as == "" || fs.NArg() != 1 {
		fs.Usage()
		return errUsage
	}

	if _, err := a.signIn(ctx, *as); err != nil {
		return err
	}
	defer a.signOut(ctx)

	return guard.Do(ctx, a.sess, guard.Permission(authz.PermIdentitiesManage), func(ctx context.Context) error {
		actor, err := a.actor()
		if err != nil {
			return err
		}
		target, err := a.lookup(ctx, fs.Arg(0))
		if err != nil {
			return err
		}
		if active {
			err = a.svc.Activate(ctx, target.ID, actor.ID)
		} else {
			err = a.svc.Deactivate(ctx, target.ID, actor.ID)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s: active=%t\n", target.LoginName, active)
		return nil
	})
}

var passwdCommand = &Command{
	Name:        "passwd",
	Description: "Change your own secret",
	Usage:       "schoolgate passwd <login>",
	Examples:    []string{"schoolgate passwd ines"},
	Run:         runPasswd,
}

func runPasswd(ctx context.Context, a *app, c *Command, args []string) error {
	fs := c.NewFlagSet(a.errOut)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errUsage
	}

	ident, err := a.lookup(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	oldSecret, err := a.readLine("Current secret: ")
	if err != nil {
		return err
	}
	newSecret, err := a.readLine("New secret: ")
	if err != nil {
		return err
	}
	confirm, err := a.readLine("Repeat new secret: ")
	if err != nil {
		return err
	}
	if confirm != newSecret {
		return fmt.Errorf("secrets do not match")
	}

	if err := a.svc.ChangeCredential(ctx, ident.ID, oldSecret, newSecret); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "secret changed")
	return nil
}

var identitiesCommand = &Command{
	Name:        "identities",
	Description: "List identities (requires identities.manage)",
	Usage:       "schoolgate identities -as <login>",
	Run:         runIdentities,
}

func runIdentities(ctx context.Context, a *app, c *Command, args []string) error {
	fs := c.NewFlagSet(a.errOut)
	as := fs.String("as", "", "identity performing the query")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *as == "" {
		fs.Usage()
		return errUsage
	}

	if _, err := a.signIn(ctx, *as); err != nil {
		return err
	}
	defer a.signOut(ctx)

	list := guard.Wrap(a.sess, guard.Permission(authz.PermIdentitiesManage), a.store.ListIdentities)
	idents, err := list(ctx)
	if err != nil {
		return err
	}
	return a.printJSON(idents)
}

var unitsCommand = &Command{
	Name:        "units",
	Description: "Show the organizational units an identity may see",
	Usage:       "schoolgate units -as <login>",
	Run:         runUnits,
}

// unitsOutput is printed by units.
type unitsOutput struct {
	LoginName    string  `json:"login_name"`
	Role         string  `json:"role"`
	Unrestricted bool    `json:"unrestricted"`
	Units        []int64 `json:"units"`
}

func runUnits(ctx context.Context, a *app, c *Command, args []string) error {
	fs := c.NewFlagSet(a.errOut)
	as := fs.String("as", "", "identity to resolve")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *as == "" {
		fs.Usage()
		return errUsage
	}

	p, err := a.signIn(ctx, *as)
	if err != nil {
		return err
	}
	defer a.signOut(ctx)

	s, err := a.scopes.SessionUnits(ctx, a.sess)
	if err != nil {
		return err
	}
	units := s.Units()
	if units == nil {
		units = []int64{}
	}
	return a.printJSON(unitsOutput{
		LoginName:    p.Identity.LoginName,
		Role:         p.Identity.Role.String(),
		Unrestricted: s.IsUnrestricted(),
		Units:        units,
	})
}

// signOut ends the command's session. A failed logout is only logged; the
// command result stands.
func (a *app) signOut(ctx context.Context) {
	if err := a.svc.Logout(ctx, a.sess); err != nil {
		fmt.Fprintf(a.errOut, "warning: logout not recorded: %v\n", err)
	}
}
