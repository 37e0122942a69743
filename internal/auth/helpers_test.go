// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/schoolgate/internal/authz"
	"github.com/tomtom215/schoolgate/internal/config"
	"github.com/tomtom215/schoolgate/internal/database"
	"github.com/tomtom215/schoolgate/internal/models"
)

const (
	adminSecret   = "Harbour-Lamp-71"
	teacherSecret = "Chalk-Board-42"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	ctx     context.Context
	svc     *Service
	store   *database.MemoryStore
	clock   *testClock
	admin   *models.Identity
	teacher *models.Identity
}

func testServiceConfig() *config.Config {
	cfg := config.Default()
	cfg.Credentials.BcryptCost = bcrypt.MinCost
	return cfg
}

// setup returns a seeded store with one administrator and one teacher ("ines").
func setup(t *testing.T) *fixture {
	t.Helper()
	return setupWithConfig(t, testServiceConfig())
}

func setupWithConfig(t *testing.T, cfg *config.Config) *fixture {
	t.Helper()
	ctx := context.Background()

	policy, err := authz.NewPolicy("")
	require.NoError(t, err)
	grants, err := policy.Grants()
	require.NoError(t, err)

	store := database.NewMemoryStore()
	require.NoError(t, database.Seed(ctx, store, authz.Catalog, grants))

	clock := &testClock{now: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)}
	svc, err := NewService(store, cfg, WithClock(clock.Now))
	require.NoError(t, err)

	admin, err := svc.BootstrapAdministrator(ctx, "A-1", "director", adminSecret)
	require.NoError(t, err)

	created, err := svc.CreateIdentity(ctx, NewIdentity{
		StaffRef:  "T-1",
		LoginName: "ines",
		Role:      "teacher",
		Secret:    teacherSecret,
		ActorID:   admin.ID,
	})
	require.NoError(t, err)

	return &fixture{ctx: ctx, svc: svc, store: store, clock: clock, admin: admin, teacher: created.Identity}
}

func (f *fixture) identity(t *testing.T, id string) *models.Identity {
	t.Helper()
	ident, err := f.store.IdentityByID(f.ctx, id)
	require.NoError(t, err)
	return ident
}

func (f *fixture) logLen() int {
	return len(f.store.AccessLog())
}

func (f *fixture) lastEntry(t *testing.T) models.AccessLogEntry {
	t.Helper()
	log := f.store.AccessLog()
	require.NotEmpty(t, log)
	return log[len(log)-1]
}
