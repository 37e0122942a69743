// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

package dispatch

import (
	"context"
	"sync"
)

// Loop is the single goroutine that owns UI state. Post must be safe to call
// from any goroutine; fn must run on the loop.
type Loop interface {
	Post(fn func())
}

// ChannelLoop is a Loop backed by a buffered channel. The owner drains it
// with Run or Next.
type ChannelLoop struct {
	ch        chan func()
	done      chan struct{}
	closeOnce sync.Once
}

var _ Loop = (*ChannelLoop)(nil)

// NewChannelLoop creates a loop buffering up to size callbacks.
func NewChannelLoop(size int) *ChannelLoop {
	if size <= 0 {
		size = 16
	}
	return &ChannelLoop{
		ch:   make(chan func(), size),
		done: make(chan struct{}),
	}
}

// Post queues fn, blocking while the buffer is full. After Close, fn is
// dropped.
func (l *ChannelLoop) Post(fn func()) {
	select {
	case l.ch <- fn:
	case <-l.done:
	}
}

// Run executes callbacks until ctx is cancelled or the loop is closed.
func (l *ChannelLoop) Run(ctx context.Context) error {
	for {
		select {
		case fn := <-l.ch:
			fn()
		case <-l.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Next executes exactly one callback, waiting for it if necessary.
func (l *ChannelLoop) Next(ctx context.Context) error {
	select {
	case fn := <-l.ch:
		fn()
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops Run and unblocks pending Posts. It is idempotent.
func (l *ChannelLoop) Close() {
	l.closeOnce.Do(func() { close(l.done) })
}
