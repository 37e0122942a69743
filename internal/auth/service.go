// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/tomtom215/schoolgate/internal/authz"
	"github.com/tomtom215/schoolgate/internal/config"
	"github.com/tomtom215/schoolgate/internal/database"
	"github.com/tomtom215/schoolgate/internal/logging"
	"github.com/tomtom215/schoolgate/internal/metrics"
	"github.com/tomtom215/schoolgate/internal/models"
)

// maxSecretBytes is the longest secret bcrypt accepts.
const maxSecretBytes = 72

// Principal is an authenticated identity with its resolved permissions.
type Principal struct {
	Identity    *models.Identity
	Permissions authz.Set
}

// MustResetCredential reports whether the caller should force a credential
// change before letting the user continue.
func (p *Principal) MustResetCredential() bool {
	return p.Identity != nil && p.Identity.MustResetCredential
}

// Service authenticates identities and administers credentials.
// All persistent effects go through a database.Store transaction together
// with their access log entry.
type Service struct {
	store    database.Store
	lockout  lockoutPolicy
	policy   config.CredentialPolicy
	cost     int
	tempLen  int
	limiter  *rate.Limiter
	security *logging.SecurityLogger
	now      func() time.Time
	newID    func() string

	// dummyHash is compared against when the login name is unknown.
	dummyHash []byte
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now. Used by tests to step through lockout windows.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithSecurityLogger replaces the default security logger.
func WithSecurityLogger(l *logging.SecurityLogger) Option {
	return func(s *Service) { s.security = l }
}

// WithIDGenerator replaces the identity ID generator.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// NewService creates a Service over store using the lockout and credential
// sections of cfg.
func NewService(store database.Store, cfg *config.Config, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	if cfg == nil {
		cfg = config.Default()
	}

	s := &Service{
		store:    store,
		lockout:  newLockoutPolicy(cfg.Lockout),
		policy:   cfg.Credentials.Policy(),
		cost:     cfg.Credentials.BcryptCost,
		tempLen:  cfg.Credentials.TempSecretBytes,
		security: logging.NewSecurityLogger(),
		now:      time.Now,
		newID:    newIdentityID,
	}
	if s.cost == 0 {
		s.cost = bcrypt.DefaultCost
	}
	if s.tempLen <= 0 {
		s.tempLen = 12
	}
	if cfg.Lockout.AttemptsPerSecond > 0 {
		burst := cfg.Lockout.Burst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.Lockout.AttemptsPerSecond), burst)
	}
	for _, opt := range opts {
		opt(s)
	}

	seed, err := generateSecret(16)
	if err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}
	s.dummyHash, err = bcrypt.GenerateFromPassword([]byte(seed), s.cost)
	if err != nil {
		return nil, fmt.Errorf("auth: prepare dummy hash: %w", err)
	}
	return s, nil
}

// clock returns the current time in UTC.
func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// throttle waits for the login limiter. It only fails when ctx ends first.
func (s *Service) throttle(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return &Error{Kind: KindStoreUnavailable, Message: "login aborted while throttled", Err: err}
	}
	return nil
}

func (s *Service) hashSecret(secret string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(secret), s.cost)
	if err != nil {
		return "", validationError("secret cannot be hashed", err)
	}
	return string(h), nil
}

// verify compares secret with hash. An empty or malformed hash never matches.
func (s *Service) verify(hash, secret string) bool {
	if hash == "" {
		s.burn(secret)
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// burn spends the same bcrypt work as a real comparison.
func (s *Service) burn(secret string) {
	_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(secret))
}

// checkSecret applies the strength policy.
func (s *Service) checkSecret(secret, loginName string) error {
	if len(secret) > maxSecretBytes {
		return validationError(fmt.Sprintf("secret must be at most %d bytes", maxSecretBytes), nil)
	}
	if err := s.policy.Check(secret, loginName); err != nil {
		return validationError("secret is too weak", err)
	}
	return nil
}

// requireAdministrator verifies actorID names an active administrator.
func requireAdministrator(ctx context.Context, q database.Queries, actorID string) (*models.Identity, error) {
	if actorID == "" {
		return nil, validationError(errAdministratorRequired, nil)
	}
	actor, err := q.IdentityByID(ctx, actorID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, validationError(errAdministratorRequired, nil)
	}
	if err != nil {
		return nil, storeError(err)
	}
	if !actor.Active || actor.Role != models.RoleAdministrator {
		return nil, validationError(errAdministratorRequired, nil)
	}
	return actor, nil
}

// loadIdentity reads id, mapping a missing row to a validation error.
func loadIdentity(ctx context.Context, q database.Queries, id string) (*models.Identity, error) {
	ident, err := q.IdentityByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, validationError("unknown identity", nil)
	}
	if err != nil {
		return nil, storeError(err)
	}
	return ident, nil
}

// ResolvePermissions computes the permission set of ident from its role
// grants and overrides.
func (s *Service) ResolvePermissions(ctx context.Context, ident *models.Identity) (authz.Set, error) {
	p, err := resolvePermissions(ctx, s.store, ident)
	if err != nil {
		return authz.Set{}, storeError(err)
	}
	return p, nil
}

func resolvePermissions(ctx context.Context, q database.Queries, ident *models.Identity) (authz.Set, error) {
	if ident.Role == models.RoleAdministrator {
		metrics.RecordPermissionResolution(ident.Role.String())
		return authz.All(), nil
	}
	grants, err := q.RoleGrants(ctx, ident.Role)
	if err != nil {
		return authz.Set{}, err
	}
	overrides, err := q.Overrides(ctx, ident.ID)
	if err != nil {
		return authz.Set{}, err
	}
	metrics.RecordPermissionResolution(ident.Role.String())
	return authz.Resolve(ident.Role, grants, overrides), nil
}

// generateSecret returns n random bytes encoded as unpadded base64url.
func generateSecret(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func (s *Service) logEvent(action, identityID, actorID, loginName, origin string, err error) {
	ev := &logging.SecurityEvent{
		Action:     action,
		IdentityID: identityID,
		ActorID:    actorID,
		LoginName:  loginName,
		Origin:     origin,
		Success:    err == nil,
	}
	if err != nil {
		ev.Error = err.Error()
	}
	s.security.LogEvent(ev)
}
