// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

package database

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/schoolgate/internal/audit"
	"github.com/tomtom215/schoolgate/internal/models"
)

// MemoryStore implements Store using in-memory storage.
// Suitable for tests and demos. Data is lost on close.
//
// Transactions work on a copy of the state that replaces the live state on
// commit, so a failed transaction leaves nothing behind.
type MemoryStore struct {
	mu    sync.RWMutex
	txMu  sync.Mutex
	state *memState
	fault func(op string) error
}

var _ Store = (*MemoryStore)(nil)

type memState struct {
	identities  map[string]*models.Identity
	permissions map[string]models.Permission
	grants      map[models.Role][]string
	overrides   map[string]map[string]models.OverrideKind
	periods     map[string]models.AcademicPeriod
	assignments map[models.TeachingAssignment]struct{}
	log         []models.AccessLogEntry
	nextLogID   int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: &memState{
			identities:  make(map[string]*models.Identity),
			permissions: make(map[string]models.Permission),
			grants:      make(map[models.Role][]string),
			overrides:   make(map[string]map[string]models.OverrideKind),
			periods:     make(map[string]models.AcademicPeriod),
			assignments: make(map[models.TeachingAssignment]struct{}),
		},
	}
}

// SetFault installs a hook called before every operation with the operation
// name. A non-nil return is returned from the operation. Pass nil to clear.
func (s *MemoryStore) SetFault(fault func(op string) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = fault
}

// AccessLog returns a copy of every entry in insertion order.
func (s *MemoryStore) AccessLog() []models.AccessLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.state.log)
}

func (st *memState) clone() *memState {
	c := &memState{
		identities:  make(map[string]*models.Identity, len(st.identities)),
		permissions: maps.Clone(st.permissions),
		grants:      make(map[models.Role][]string, len(st.grants)),
		overrides:   make(map[string]map[string]models.OverrideKind, len(st.overrides)),
		periods:     maps.Clone(st.periods),
		assignments: maps.Clone(st.assignments),
		log:         slices.Clone(st.log),
		nextLogID:   st.nextLogID,
	}
	for id, ident := range st.identities {
		c.identities[id] = ident.Clone()
	}
	for role, codes := range st.grants {
		c.grants[role] = slices.Clone(codes)
	}
	for id, ov := range st.overrides {
		c.overrides[id] = maps.Clone(ov)
	}
	return c
}

// ops returns operations bound to the live state. Callers hold mu.
func (s *MemoryStore) ops() *memOps {
	return &memOps{st: s.state, fault: s.fault}
}

// WithTx implements Store.
func (s *MemoryStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	fault := s.fault
	work := s.state.clone()
	s.mu.RUnlock()

	if fault != nil {
		if err := fault("begin"); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := fn(&memOps{st: work, fault: fault}); err != nil {
		return err
	}

	if fault != nil {
		if err := fault("commit"); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.state = work
	s.mu.Unlock()
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) IdentityByID(ctx context.Context, id string) (*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ops().IdentityByID(ctx, id)
}

func (s *MemoryStore) IdentityByLoginName(ctx context.Context, loginName string) (*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ops().IdentityByLoginName(ctx, loginName)
}

func (s *MemoryStore) ListIdentities(ctx context.Context) ([]models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ops().ListIdentities(ctx)
}

func (s *MemoryStore) CountActiveAdministrators(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ops().CountActiveAdministrators(ctx)
}

func (s *MemoryStore) Permissions(ctx context.Context) ([]models.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ops().Permissions(ctx)
}

func (s *MemoryStore) RoleGrants(ctx context.Context, role models.Role) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ops().RoleGrants(ctx, role)
}

func (s *MemoryStore) Overrides(ctx context.Context, identityID string) ([]models.Override, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ops().Overrides(ctx, identityID)
}

func (s *MemoryStore) CurrentPeriod(ctx context.Context) (*models.AcademicPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ops().CurrentPeriod(ctx)
}

func (s *MemoryStore) Periods(ctx context.Context) ([]models.AcademicPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ops().Periods(ctx)
}

func (s *MemoryStore) AssignedUnits(ctx context.Context, identityID, periodID string) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ops().AssignedUnits(ctx, identityID, periodID)
}

func (s *MemoryStore) QueryAccessLog(ctx context.Context, filter audit.Filter) ([]models.AccessLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ops().QueryAccessLog(ctx, filter)
}

// memOps implements Tx over a memState.
type memOps struct {
	st    *memState
	fault func(op string) error
}

var _ Tx = (*memOps)(nil)

func (o *memOps) check(op string) error {
	if o.fault == nil {
		return nil
	}
	return o.fault(op)
}

func (o *memOps) IdentityByID(_ context.Context, id string) (*models.Identity, error) {
	if err := o.check("identity_by_id"); err != nil {
		return nil, err
	}
	ident, ok := o.st.identities[id]
	if !ok {
		return nil, ErrNotFound
	}
	return ident.Clone(), nil
}

func (o *memOps) IdentityByLoginName(_ context.Context, loginName string) (*models.Identity, error) {
	if err := o.check("identity_by_login_name"); err != nil {
		return nil, err
	}
	name := models.NormalizeLoginName(loginName)
	for _, ident := range o.st.identities {
		if ident.LoginName == name {
			return ident.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (o *memOps) ListIdentities(_ context.Context) ([]models.Identity, error) {
	if err := o.check("list_identities"); err != nil {
		return nil, err
	}
	out := make([]models.Identity, 0, len(o.st.identities))
	for _, ident := range o.st.identities {
		out = append(out, *ident.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LoginName < out[j].LoginName })
	return out, nil
}

func (o *memOps) CountActiveAdministrators(_ context.Context) (int, error) {
	if err := o.check("count_administrators"); err != nil {
		return 0, err
	}
	n := 0
	for _, ident := range o.st.identities {
		if ident.Role == models.RoleAdministrator && ident.Active {
			n++
		}
	}
	return n, nil
}

func (o *memOps) InsertIdentity(_ context.Context, ident *models.Identity) error {
	if err := o.check("insert_identity"); err != nil {
		return err
	}
	if ident.ID == "" {
		return fmt.Errorf("insert identity: empty id")
	}
	name := models.NormalizeLoginName(ident.LoginName)
	for _, existing := range o.st.identities {
		if existing.ID == ident.ID || existing.LoginName == name || existing.StaffRef == ident.StaffRef {
			return fmt.Errorf("%w: identity %s", ErrConflict, name)
		}
	}
	c := ident.Clone()
	c.LoginName = name
	o.st.identities[c.ID] = c
	return nil
}

func (o *memOps) UpdateIdentity(_ context.Context, ident *models.Identity) error {
	if err := o.check("update_identity"); err != nil {
		return err
	}
	existing, ok := o.st.identities[ident.ID]
	if !ok {
		return ErrNotFound
	}
	c := ident.Clone()
	c.LoginName = existing.LoginName
	c.StaffRef = existing.StaffRef
	c.CreatedAt = existing.CreatedAt
	o.st.identities[c.ID] = c
	return nil
}

func (o *memOps) Permissions(_ context.Context) ([]models.Permission, error) {
	if err := o.check("permissions"); err != nil {
		return nil, err
	}
	out := slices.Collect(maps.Values(o.st.permissions))
	sort.Slice(out, func(i, j int) bool {
		if out[i].Module != out[j].Module {
			return out[i].Module < out[j].Module
		}
		return out[i].Code < out[j].Code
	})
	return out, nil
}

func (o *memOps) UpsertPermission(_ context.Context, p models.Permission) error {
	if err := o.check("upsert_permission"); err != nil {
		return err
	}
	o.st.permissions[p.Code] = p
	return nil
}

func (o *memOps) RoleGrants(_ context.Context, role models.Role) ([]string, error) {
	if err := o.check("role_grants"); err != nil {
		return nil, err
	}
	return slices.Clone(o.st.grants[role]), nil
}

func (o *memOps) ReplaceRoleGrants(_ context.Context, role models.Role, codes []string) error {
	if err := o.check("replace_role_grants"); err != nil {
		return err
	}
	if !role.Valid() {
		return fmt.Errorf("replace role grants: %w", models.ErrInvalidRole)
	}
	unique := slices.Clone(codes)
	slices.Sort(unique)
	o.st.grants[role] = slices.Compact(unique)
	return nil
}

func (o *memOps) Overrides(_ context.Context, identityID string) ([]models.Override, error) {
	if err := o.check("overrides"); err != nil {
		return nil, err
	}
	byCode := o.st.overrides[identityID]
	codes := slices.Sorted(maps.Keys(byCode))
	out := make([]models.Override, 0, len(codes))
	for _, code := range codes {
		out = append(out, models.Override{IdentityID: identityID, Code: code, Kind: byCode[code]})
	}
	return out, nil
}

func (o *memOps) SetOverride(_ context.Context, ov models.Override) error {
	if err := o.check("set_override"); err != nil {
		return err
	}
	if o.st.overrides[ov.IdentityID] == nil {
		o.st.overrides[ov.IdentityID] = make(map[string]models.OverrideKind)
	}
	o.st.overrides[ov.IdentityID][ov.Code] = ov.Kind
	return nil
}

func (o *memOps) DeleteOverride(_ context.Context, identityID, code string) error {
	if err := o.check("delete_override"); err != nil {
		return err
	}
	delete(o.st.overrides[identityID], code)
	return nil
}

func (o *memOps) CurrentPeriod(_ context.Context) (*models.AcademicPeriod, error) {
	if err := o.check("current_period"); err != nil {
		return nil, err
	}
	for _, p := range o.st.periods {
		if p.Current {
			c := p
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (o *memOps) Periods(_ context.Context) ([]models.AcademicPeriod, error) {
	if err := o.check("periods"); err != nil {
		return nil, err
	}
	out := slices.Collect(maps.Values(o.st.periods))
	sort.Slice(out, func(i, j int) bool { return out[i].StartsOn.Before(out[j].StartsOn) })
	return out, nil
}

func (o *memOps) SavePeriod(_ context.Context, p *models.AcademicPeriod) error {
	if err := o.check("save_period"); err != nil {
		return err
	}
	if p.Current {
		for id, other := range o.st.periods {
			if id != p.ID && other.Current {
				other.Current = false
				o.st.periods[id] = other
			}
		}
	}
	o.st.periods[p.ID] = *p
	return nil
}

func (o *memOps) AssignedUnits(_ context.Context, identityID, periodID string) ([]int64, error) {
	if err := o.check("assigned_units"); err != nil {
		return nil, err
	}
	var out []int64
	for a := range o.st.assignments {
		if a.IdentityID == identityID && a.PeriodID == periodID {
			out = append(out, a.UnitID)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (o *memOps) AssignUnit(_ context.Context, a models.TeachingAssignment) error {
	if err := o.check("assign_unit"); err != nil {
		return err
	}
	o.st.assignments[a] = struct{}{}
	return nil
}

func (o *memOps) UnassignUnit(_ context.Context, a models.TeachingAssignment) error {
	if err := o.check("unassign_unit"); err != nil {
		return err
	}
	delete(o.st.assignments, a)
	return nil
}

func (o *memOps) AppendAccessLog(_ context.Context, e *models.AccessLogEntry) error {
	if err := o.check("append_access_log"); err != nil {
		return err
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	o.st.nextLogID++
	e.ID = o.st.nextLogID
	o.st.log = append(o.st.log, *e)
	return nil
}

func (o *memOps) QueryAccessLog(_ context.Context, f audit.Filter) ([]models.AccessLogEntry, error) {
	if err := o.check("query_access_log"); err != nil {
		return nil, err
	}
	var matched []models.AccessLogEntry
	for i := range o.st.log {
		if f.Matches(&o.st.log[i]) {
			matched = append(matched, o.st.log[i])
		}
	}
	if f.Descending {
		slices.Reverse(matched)
	}

	offset := max(f.Offset, 0)
	if offset >= len(matched) {
		return nil, nil
	}
	end := min(offset+f.EffectiveLimit(), len(matched))
	return matched[offset:end], nil
}
