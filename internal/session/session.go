// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

package session

import (
	"sync"

	"github.com/tomtom215/schoolgate/internal/authz"
	"github.com/tomtom215/schoolgate/internal/models"
)

// Enforcement reports whether access control is switched on.
// *config.Switch satisfies it.
type Enforcement interface {
	Enabled() bool
}

type alwaysEnforced struct{}

func (alwaysEnforced) Enabled() bool { return true }

// Context holds the identity logged in on this workstation and its resolved
// permissions. It is created once at startup and passed to whatever needs it.
//
// Every query consults the Enforcement at call time. While enforcement is off
// all queries succeed, including IsLoggedIn on an empty context.
type Context struct {
	mu          sync.RWMutex
	identity    *models.Identity
	perms       authz.Set
	enforcement Enforcement
}

// New returns an empty context. A nil enforcement is treated as always on.
func New(enforcement Enforcement) *Context {
	if enforcement == nil {
		enforcement = alwaysEnforced{}
	}
	return &Context{enforcement: enforcement}
}

// Set replaces the held identity and permission set.
func (c *Context) Set(identity *models.Identity, perms authz.Set) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.identity = identity.Clone()
	c.perms = perms
}

// Get returns a copy of the held identity.
func (c *Context) Get() (*models.Identity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.identity == nil {
		return nil, false
	}
	return c.identity.Clone(), true
}

// Permissions returns the cached permission set. It is empty when nobody is
// logged in.
func (c *Context) Permissions() authz.Set {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.perms
}

// Clear drops the held identity. Clearing an empty context is a no-op.
func (c *Context) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.identity = nil
	c.perms = authz.Set{}
}

// Enforced reports the current state of the enforcement switch.
func (c *Context) Enforced() bool {
	return c.enforcement.Enabled()
}

func (c *Context) IsLoggedIn() bool {
	if !c.Enforced() {
		return true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identity != nil
}

func (c *Context) HasPermission(code string) bool {
	if !c.Enforced() {
		return true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identity != nil && c.perms.Has(code)
}

// HasAnyPermission is false for an empty list while enforcement is on.
func (c *Context) HasAnyPermission(codes ...string) bool {
	if !c.Enforced() {
		return true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identity != nil && c.perms.HasAny(codes...)
}

// HasAllPermissions is true for an empty list once someone is logged in.
func (c *Context) HasAllPermissions(codes ...string) bool {
	if !c.Enforced() {
		return true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identity != nil && c.perms.HasAll(codes...)
}

func (c *Context) IsRole(role models.Role) bool {
	if !c.Enforced() {
		return true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identity != nil && c.identity.Role == role
}
