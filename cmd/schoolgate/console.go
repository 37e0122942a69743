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
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tomtom215/schoolgate/internal/audit"
	"github.com/tomtom215/schoolgate/internal/auth"
	"github.com/tomtom215/schoolgate/internal/authz"
	"github.com/tomtom215/schoolgate/internal/config"
	"github.com/tomtom215/schoolgate/internal/dispatch"
	"github.com/tomtom215/schoolgate/internal/guard"
	"github.com/tomtom215/schoolgate/internal/logging"
	"github.com/tomtom215/schoolgate/internal/metrics"
	"github.com/tomtom215/schoolgate/internal/models"
	"github.com/tomtom215/schoolgate/internal/scope"
	"github.com/tomtom215/schoolgate/internal/supervisor"
)

var consoleCommand = &Command{
	Name:        "console",
	Description: "Interactive session with login, permission checks and the access log",
	Usage:       "schoolgate console",
	Examples: []string{
		"schoolgate console",
		"printf 'login ines Chalk-Board-42\\nunits\\nquit\\n' | schoolgate console",
	},
	Run: runConsole,
}

const consoleHelp = `commands:
  login <name> <secret>     start a session
  logout                    end the session
  whoami                    show the session identity and permissions
  can <permission>          check a permission against the session
  baseline <role> <perm>    check a permission against a role's baseline
  units                     show the visible organizational units
  passwd <old> <new>        change the session identity's secret
  log [n]                   show the last n access log entries
  metrics                   print process metrics
  quit                      leave the console`

// console is a line-oriented front end. Every handler and every job result
// runs on the loop goroutine; store work goes through the dispatcher.
type console struct {
	app   *app
	d     *dispatch.Dispatcher
	loop  *dispatch.ChannelLoop
	quit  context.CancelFunc
	ready chan struct{}
}

func runConsole(ctx context.Context, a *app, _ *Command, _ []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loop := dispatch.NewChannelLoop(16)
	defer loop.Close()
	d := dispatch.New(a.cfg.Dispatch, loop)

	tree := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfigFrom(a.cfg.Supervisor))
	tree.AddCoreService(d)
	if path := config.ConfigFile(); path != "" {
		tree.AddConfigService(config.NewSwitchWatcher(path, a.sw))
	}
	treeDone := tree.ServeBackground(ctx)

	c := &console{app: a, d: d, loop: loop, quit: cancel, ready: make(chan struct{}, 1)}
	go c.readLines(ctx)

	fmt.Fprintln(a.out, "schoolgate console, type 'help' for commands")
	err := loop.Run(ctx)
	cancel()

	if treeErr := <-treeDone; treeErr != nil && !errors.Is(treeErr, context.Canceled) {
		logging.Warn().Err(treeErr).Msg("Supervisor tree stopped with error")
	}
	if a.sess.IsLoggedIn() {
		a.signOut(context.WithoutCancel(ctx))
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// readLines feeds input to the loop one command at a time.
func (c *console) readLines(ctx context.Context) {
	scanner := bufio.NewScanner(c.app.in)
	for {
		fmt.Fprint(c.app.errOut, "> ")
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		c.loop.Post(func() { c.handle(line) })
		select {
		case <-c.ready:
		case <-ctx.Done():
			return
		}
	}
	c.loop.Post(c.quit)
}

// done marks the current command finished so the next line is read.
func (c *console) done() {
	select {
	case c.ready <- struct{}{}:
	default:
	}
}

func (c *console) printf(format string, args ...any) {
	fmt.Fprintf(c.app.out, format, args...)
}

func (c *console) fail(err error) {
	c.printf("error: %s\n", describeError(err))
	c.done()
}

// submit runs job on the dispatcher and reports a rejected submission.
func submit[T any](c *console, job func(context.Context) (T, error), then func(T, error)) {
	err := dispatch.Go(c.d, job, func(v T, err error) {
		then(v, err)
		c.done()
	})
	if err != nil {
		c.fail(err)
	}
}

func (c *console) handle(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		c.done()
		return
	}
	a := c.app

	switch cmd, args := fields[0], fields[1:]; cmd {
	case "help":
		c.printf("%s\n", consoleHelp)
		c.done()

	case "quit", "exit":
		c.quit()

	case "login":
		if len(args) != 2 {
			c.fail(errors.New("usage: login <name> <secret>"))
			return
		}
		submit(c, func(ctx context.Context) (*auth.Principal, error) {
			return a.svc.Login(ctx, args[0], args[1], consoleOrigin)
		}, func(p *auth.Principal, err error) {
			if err != nil {
				c.printf("error: %s\n", describeError(err))
				return
			}
			a.sess.Set(p.Identity, p.Permissions)
			c.printf("welcome %s (%s)\n", p.Identity.LoginName, p.Identity.Role)
			if p.MustResetCredential() {
				c.printf("you must change your secret now: passwd <old> <new>\n")
			}
		})

	case "logout":
		submit(c, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, a.svc.Logout(ctx, a.sess)
		}, func(_ struct{}, err error) {
			if err != nil {
				c.printf("error: %s\n", describeError(err))
				return
			}
			c.printf("logged out\n")
		})

	case "whoami":
		ident, ok := a.sess.Get()
		if !ok {
			c.fail(errors.New("not logged in"))
			return
		}
		perms := a.sess.Permissions()
		granted := "all"
		if !perms.IsAll() {
			granted = strings.Join(perms.Codes(), ", ")
		}
		c.printf("%s role=%s permissions=[%s]\n", ident.LoginName, ident.Role, granted)
		c.done()

	case "can":
		if len(args) != 1 || !authz.InCatalog(args[0]) {
			c.fail(errors.New("usage: can <permission>"))
			return
		}
		if denial := guard.Check(a.sess, guard.Permission(args[0])); denial != nil {
			c.printf("no: %s\n", denial.Error())
		} else {
			c.printf("yes\n")
		}
		c.done()

	case "baseline":
		if len(args) != 2 || !authz.InCatalog(args[1]) {
			c.fail(errors.New("usage: baseline <role> <permission>"))
			return
		}
		role, err := models.ParseRole(args[0])
		if err != nil {
			c.fail(err)
			return
		}
		allowed, err := a.policy.Enforce(role, args[1])
		if err != nil {
			c.fail(err)
			return
		}
		if allowed {
			c.printf("yes: %s has %s\n", role, args[1])
		} else {
			c.printf("no: %s lacks %s\n", role, args[1])
		}
		c.done()

	case "units":
		submit(c, func(ctx context.Context) (scope.Scope, error) {
			return a.scopes.SessionUnits(ctx, a.sess)
		}, func(s scope.Scope, err error) {
			if err != nil {
				c.printf("error: %s\n", describeError(err))
				return
			}
			c.printf("%s\n", s)
		})

	case "passwd":
		ident, ok := a.sess.Get()
		if !ok || len(args) != 2 {
			c.fail(errors.New("usage: passwd <old> <new> (after login)"))
			return
		}
		submit(c, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, a.svc.ChangeCredential(ctx, ident.ID, args[0], args[1])
		}, func(_ struct{}, err error) {
			if err != nil {
				c.printf("error: %s\n", describeError(err))
				return
			}
			c.printf("secret changed\n")
		})

	case "log":
		limit := 10
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n <= 0 {
				c.fail(errors.New("usage: log [n]"))
				return
			}
			limit = n
		}
		query := guard.Wrap(a.sess, guard.Permission(authz.PermAccessLogView),
			func(ctx context.Context) ([]models.AccessLogEntry, error) {
				return a.store.QueryAccessLog(ctx, audit.Filter{Limit: limit, Descending: true})
			})
		submit(c, query, func(entries []models.AccessLogEntry, err error) {
			if err == nil {
				err = audit.ExportJSONLines(a.out, entries)
			}
			if err != nil {
				c.printf("error: %s\n", describeError(err))
			}
		})

	case "metrics":
		if err := metrics.WriteText(a.out, prometheus.DefaultGatherer); err != nil {
			c.fail(err)
			return
		}
		c.done()

	default:
		c.fail(fmt.Errorf("unknown command %q, type 'help'", cmd))
	}
}

// describeError renders an error for the operator.
func describeError(err error) string {
	var denial *guard.Denial
	if errors.As(err, &denial) {
		return denial.Error()
	}
	var authErr *auth.Error
	if errors.As(err, &authErr) {
		switch authErr.Kind {
		case auth.KindAccountLocked:
			return fmt.Sprintf("account locked, try again in %d minute(s)", authErr.RemainingMinutes)
		case auth.KindInvalidCredentials:
			if authErr.RemainingAttempts > 0 {
				return fmt.Sprintf("invalid login name or secret (%d attempt(s) left)", authErr.RemainingAttempts)
			}
			return "invalid login name or secret"
		}
		return authErr.Error()
	}
	return err.Error()
}
