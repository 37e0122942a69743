// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

// Package dispatch moves blocking work (logins, store writes) off the UI loop.
//
// A Dispatcher runs jobs on a small worker pool and posts every result back
// to the Loop, so completion callbacks may touch the session and UI state
// directly:
//
//	d := dispatch.New(cfg.Dispatch, loop)
//	tree.AddService(d)
//	err := dispatch.Go(d,
//	    func(ctx context.Context) (*auth.Principal, error) {
//	        return svc.Login(ctx, name, secret, origin)
//	    },
//	    func(p *auth.Principal, err error) {
//	        // runs on the loop
//	    })
//
// Submit never blocks: a full queue returns ErrQueueFull.
package dispatch
