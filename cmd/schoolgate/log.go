// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tomtom215/schoolgate/internal/audit"
	"github.com/tomtom215/schoolgate/internal/authz"
	"github.com/tomtom215/schoolgate/internal/guard"
	"github.com/tomtom215/schoolgate/internal/metrics"
	"github.com/tomtom215/schoolgate/internal/models"
)

var logCommand = &Command{
	Name:        "log",
	Description: "Export the access log (requires access_log.view)",
	Usage:       "schoolgate log -as <login> [-format jsonl|cef|summary] [-identity <login>] [-action a,b] [-since RFC3339] [-until RFC3339] [-limit n]",
	Examples: []string{
		"schoolgate log -as director -identity ines -limit 20",
		"schoolgate log -as director -action login.lockout,login.locked -format cef",
		"schoolgate log -as director -since 2026-09-01T00:00:00Z -format summary",
	},
	Run: runLog,
}

// logOptions are the parsed flags of the log command.
type logOptions struct {
	format   string
	identity string
	actions  string
	since    string
	until    string
	limit    int
	newest   bool
}

func runLog(ctx context.Context, a *app, c *Command, args []string) error {
	fs := c.NewFlagSet(a.errOut)
	as := fs.String("as", "", "identity performing the export")
	var opts logOptions
	fs.StringVar(&opts.format, "format", "jsonl", "output format: jsonl, cef or summary")
	fs.StringVar(&opts.identity, "identity", "", "only entries about this login name")
	fs.StringVar(&opts.actions, "action", "", "comma separated actions to include")
	fs.StringVar(&opts.since, "since", "", "inclusive lower bound (RFC 3339)")
	fs.StringVar(&opts.until, "until", "", "exclusive upper bound (RFC 3339)")
	fs.IntVar(&opts.limit, "limit", audit.DefaultLimit, "maximum number of entries")
	fs.BoolVar(&opts.newest, "newest-first", false, "order newest entries first")
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

	return guard.Do(ctx, a.sess, guard.Permission(authz.PermAccessLogView), func(ctx context.Context) error {
		filter, err := a.buildFilter(ctx, opts)
		if err != nil {
			return err
		}
		entries, err := a.store.QueryAccessLog(ctx, filter)
		if err != nil {
			return err
		}
		return a.writeLog(opts.format, entries)
	})
}

// buildFilter turns command flags into an access log filter.
func (a *app) buildFilter(ctx context.Context, opts logOptions) (audit.Filter, error) {
	filter := audit.Filter{Limit: opts.limit, Descending: opts.newest}

	if opts.identity != "" {
		ident, err := a.lookup(ctx, opts.identity)
		if err != nil {
			return filter, err
		}
		filter.IdentityID = ident.ID
	}
	if opts.actions != "" {
		for _, action := range strings.Split(opts.actions, ",") {
			action = strings.TrimSpace(action)
			if !audit.KnownAction(action) {
				return filter, fmt.Errorf("unknown action %q", action)
			}
			filter.Actions = append(filter.Actions, action)
		}
	}
	var err error
	if filter.Since, err = parseTime(opts.since); err != nil {
		return filter, fmt.Errorf("invalid -since: %w", err)
	}
	if filter.Until, err = parseTime(opts.until); err != nil {
		return filter, fmt.Errorf("invalid -until: %w", err)
	}
	return filter, nil
}

func parseTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}

func (a *app) writeLog(format string, entries []models.AccessLogEntry) error {
	switch format {
	case "jsonl":
		return audit.ExportJSONLines(a.out, entries)
	case "cef":
		return audit.NewCEFExporter().Export(a.out, entries)
	case "summary":
		return a.printJSON(audit.Summarize(entries))
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

var metricsCommand = &Command{
	Name:        "metrics",
	Description: "Print process metrics in Prometheus text format",
	Usage:       "schoolgate metrics",
	Run: func(_ context.Context, a *app, _ *Command, _ []string) error {
		return metrics.WriteText(a.out, prometheus.DefaultGatherer)
	},
}
