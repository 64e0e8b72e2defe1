// Package storagetest provides an in-memory Store for unit tests. It
// mirrors the gateway semantics of the Postgres implementation: scope
// checking, tenant predicate filtering, duplicate detection and the
// advisory lock behavior, without a database.
package storagetest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/timeclock-server/timeclock-server-pro/internal/models"
	"github.com/timeclock-server/timeclock-server-pro/internal/storage"
	"github.com/timeclock-server/timeclock-server-pro/internal/tenant"
)

// Store is an in-memory storage.Store. The zero value is not usable;
// call New.
type Store struct {
	mu sync.Mutex

	tenants    map[uuid.UUID]*models.Tenant
	employees  map[uuid.UUID]*models.Employee
	centers    map[uuid.UUID]*models.Center
	categories map[uuid.UUID]*models.Category
	punches    map[uuid.UUID]*models.Punch
	seals      map[uuid.UUID]*models.PunchSeal
	breaks     map[uuid.UUID]*models.Break
	leaves     map[uuid.UUID]*models.LeaveRequest
	statuses   map[uuid.UUID]*models.DailyStatus
	overtime   map[uuid.UUID]*models.OvertimeEntry
	reminders  map[uuid.UUID]*models.ReminderLog

	namedLocks map[int64]bool

	// EmployeeLockBusy makes TryEmployeeLock report the lock as taken,
	// simulating a concurrent transition.
	EmployeeLockBusy bool
	// NamedLockBusy makes TryNamedLock report the lock as taken.
	NamedLockBusy bool
}

// New creates an empty in-memory store
func New() *Store {
	return &Store{
		tenants:    make(map[uuid.UUID]*models.Tenant),
		employees:  make(map[uuid.UUID]*models.Employee),
		centers:    make(map[uuid.UUID]*models.Center),
		categories: make(map[uuid.UUID]*models.Category),
		punches:    make(map[uuid.UUID]*models.Punch),
		seals:      make(map[uuid.UUID]*models.PunchSeal),
		breaks:     make(map[uuid.UUID]*models.Break),
		leaves:     make(map[uuid.UUID]*models.LeaveRequest),
		statuses:   make(map[uuid.UUID]*models.DailyStatus),
		overtime:   make(map[uuid.UUID]*models.OvertimeEntry),
		reminders:  make(map[uuid.UUID]*models.ReminderLog),
		namedLocks: make(map[int64]bool),
	}
}

var _ storage.Store = (*Store)(nil)

func checkScope(scope tenant.Scope) error {
	if !scope.Valid() {
		return tenant.ErrNoScope
	}
	return nil
}

// visible reports whether a row with the given tenant belongs to the scope
func visible(scope tenant.Scope, tenantID uuid.UUID) bool {
	return scope.Bypass || scope.TenantID == tenantID
}

// stamp resolves the tenant id a new row gets, like the insert path of
// the Postgres gateway.
func stamp(scope tenant.Scope, tenantID uuid.UUID) (uuid.UUID, error) {
	if !scope.Bypass {
		return scope.TenantID, nil
	}
	if tenantID == uuid.Nil {
		return uuid.Nil, storage.ErrInvalidData
	}
	return tenantID, nil
}

func ensureID(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}

// ========== Transactions ==========

// BeginTx returns the store itself. The fake has no rollback isolation;
// tests assert on committed state only.
func (s *Store) BeginTx(ctx context.Context) (storage.Store, error) { return s, nil }

// Commit is a no-op
func (s *Store) Commit() error { return nil }

// Rollback is a no-op
func (s *Store) Rollback() error { return nil }

// ========== Advisory locks ==========

func (s *Store) TryEmployeeLock(ctx context.Context, employeeID uuid.UUID) (bool, error) {
	return !s.EmployeeLockBusy, nil
}

func (s *Store) TryNamedLock(ctx context.Context, id int64) (bool, error) {
	if s.NamedLockBusy {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.namedLocks[id] {
		return false, nil
	}
	s.namedLocks[id] = true
	return true, nil
}

// ReleaseNamedLock mirrors the Postgres gateway, which errors when the
// lock is not held on the releasing session.
func (s *Store) ReleaseNamedLock(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.namedLocks[id] {
		return fmt.Errorf("named lock %d is not held", id)
	}
	delete(s.namedLocks, id)
	return nil
}

// ========== Tenants ==========

func (s *Store) CreateTenant(ctx context.Context, t *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.tenants {
		if other.Slug == t.Slug {
			return storage.ErrDuplicateKey
		}
	}
	t.ID = ensureID(t.ID)
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	cp := *t
	s.tenants[t.ID] = &cp
	return nil
}

func (s *Store) GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *Store) GetTenantBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tenants {
		if t.Slug == slug {
			cp := *t
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) UpdateTenant(ctx context.Context, t *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[t.ID]; !ok {
		return storage.ErrNotFound
	}
	t.UpdatedAt = time.Now().UTC()
	cp := *t
	s.tenants[t.ID] = &cp
	return nil
}

func (s *Store) ListTenants(ctx context.Context, limit, offset int) ([]*models.Tenant, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return page(out, limit, offset), int64(len(s.tenants)), nil
}

// ========== Employees ==========

func (s *Store) CreateEmployee(ctx context.Context, scope tenant.Scope, e *models.Employee) error {
	if err := checkScope(scope); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tid, err := stamp(scope, e.TenantID)
	if err != nil {
		return err
	}
	for _, other := range s.employees {
		if other.TenantID == tid && (other.Username == e.Username || other.Email == e.Email) {
			return storage.ErrDuplicateKey
		}
	}
	e.TenantID = tid
	e.ID = ensureID(e.ID)
	now := time.Now().UTC()
	e.CreatedAt, e.UpdatedAt = now, now
	cp := *e
	s.employees[e.ID] = &cp
	return nil
}

func (s *Store) GetEmployee(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.Employee, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.employees[id]
	if !ok || !visible(scope, e.TenantID) {
		return nil, storage.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *Store) GetEmployeeByUsername(ctx context.Context, scope tenant.Scope, username string) (*models.Employee, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.employees {
		if visible(scope, e.TenantID) && e.Username == username {
			cp := *e
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) UpdateEmployee(ctx context.Context, scope tenant.Scope, e *models.Employee) error {
	if err := checkScope(scope); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.employees[e.ID]
	if !ok || !visible(scope, cur.TenantID) {
		return storage.ErrNotFound
	}
	for _, other := range s.employees {
		if other.ID != e.ID && other.TenantID == cur.TenantID && (other.Username == e.Username || other.Email == e.Email) {
			return storage.ErrDuplicateKey
		}
	}
	e.TenantID = cur.TenantID
	e.UpdatedAt = time.Now().UTC()
	cp := *e
	s.employees[e.ID] = &cp
	return nil
}

func (s *Store) DeleteEmployee(ctx context.Context, scope tenant.Scope, id uuid.UUID) error {
	if err := checkScope(scope); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.employees[id]
	if !ok || !visible(scope, e.TenantID) {
		return storage.ErrNotFound
	}
	delete(s.employees, id)
	return nil
}

func (s *Store) ListEmployees(ctx context.Context, scope tenant.Scope, f storage.EmployeeFilters, limit, offset int) ([]*models.Employee, int64, error) {
	if err := checkScope(scope); err != nil {
		return nil, 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.Employee{}
	for _, e := range s.employees {
		if !visible(scope, e.TenantID) {
			continue
		}
		if f.ActiveOnly && !e.IsActive {
			continue
		}
		if f.CenterID != nil && (e.CenterID == nil || *e.CenterID != *f.CenterID) {
			continue
		}
		if f.CategoryID != nil && (e.CategoryID == nil || *e.CategoryID != *f.CategoryID) {
			continue
		}
		if f.Search != "" {
			needle := strings.ToLower(f.Search)
			if !strings.Contains(strings.ToLower(e.FullName), needle) &&
				!strings.Contains(strings.ToLower(e.Username), needle) {
				continue
			}
		}
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return page(out, limit, offset), int64(len(out)), nil
}

func (s *Store) CountEmployees(ctx context.Context, scope tenant.Scope) (int64, error) {
	if err := checkScope(scope); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, e := range s.employees {
		if visible(scope, e.TenantID) {
			n++
		}
	}
	return n, nil
}

func (s *Store) LockEmployee(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.Employee, error) {
	return s.GetEmployee(ctx, scope, id)
}

func (s *Store) ListReminderEmployees(ctx context.Context, scope tenant.Scope) ([]*models.Employee, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.Employee{}
	for _, e := range s.employees {
		if !visible(scope, e.TenantID) || !e.IsActive || !e.RemindersEnabled {
			continue
		}
		t, ok := s.tenants[e.TenantID]
		if !ok || !t.IsActive || !t.Plan.Features().EmailNotifications {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

// ========== Centers ==========

func (s *Store) CreateCenter(ctx context.Context, scope tenant.Scope, c *models.Center) error {
	if err := checkScope(scope); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tid, err := stamp(scope, c.TenantID)
	if err != nil {
		return err
	}
	for _, other := range s.centers {
		if other.TenantID == tid && other.Name == c.Name {
			return storage.ErrDuplicateKey
		}
	}
	c.TenantID = tid
	c.ID = ensureID(c.ID)
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	cp := *c
	s.centers[c.ID] = &cp
	return nil
}

func (s *Store) GetCenter(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.Center, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.centers[id]
	if !ok || !visible(scope, c.TenantID) {
		return nil, storage.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *Store) GetCenterByName(ctx context.Context, scope tenant.Scope, name string) (*models.Center, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.centers {
		if visible(scope, c.TenantID) && c.Name == name {
			cp := *c
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) UpdateCenter(ctx context.Context, scope tenant.Scope, c *models.Center) error {
	if err := checkScope(scope); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.centers[c.ID]
	if !ok || !visible(scope, cur.TenantID) {
		return storage.ErrNotFound
	}
	c.TenantID = cur.TenantID
	c.UpdatedAt = time.Now().UTC()
	cp := *c
	s.centers[c.ID] = &cp
	return nil
}

func (s *Store) DeleteCenter(ctx context.Context, scope tenant.Scope, id uuid.UUID) error {
	if err := checkScope(scope); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.centers[id]
	if !ok || !visible(scope, c.TenantID) {
		return storage.ErrNotFound
	}
	for _, e := range s.employees {
		if e.CenterID != nil && *e.CenterID == id {
			return storage.ErrReferenced
		}
	}
	delete(s.centers, id)
	return nil
}

func (s *Store) ListCenters(ctx context.Context, scope tenant.Scope) ([]*models.Center, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.Center{}
	for _, c := range s.centers {
		if visible(scope, c.TenantID) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ========== Categories ==========

func (s *Store) CreateCategory(ctx context.Context, scope tenant.Scope, c *models.Category) error {
	if err := checkScope(scope); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tid, err := stamp(scope, c.TenantID)
	if err != nil {
		return err
	}
	for _, other := range s.categories {
		if other.TenantID == tid && other.Name == c.Name {
			return storage.ErrDuplicateKey
		}
	}
	c.TenantID = tid
	c.ID = ensureID(c.ID)
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	cp := *c
	s.categories[c.ID] = &cp
	return nil
}

func (s *Store) GetCategory(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.Category, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok || !visible(scope, c.TenantID) {
		return nil, storage.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *Store) GetCategoryByName(ctx context.Context, scope tenant.Scope, name string) (*models.Category, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.categories {
		if visible(scope, c.TenantID) && c.Name == name {
			cp := *c
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) UpdateCategory(ctx context.Context, scope tenant.Scope, c *models.Category) error {
	if err := checkScope(scope); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.categories[c.ID]
	if !ok || !visible(scope, cur.TenantID) {
		return storage.ErrNotFound
	}
	c.TenantID = cur.TenantID
	c.UpdatedAt = time.Now().UTC()
	cp := *c
	s.categories[c.ID] = &cp
	return nil
}

func (s *Store) DeleteCategory(ctx context.Context, scope tenant.Scope, id uuid.UUID) error {
	if err := checkScope(scope); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok || !visible(scope, c.TenantID) {
		return storage.ErrNotFound
	}
	for _, e := range s.employees {
		if e.CategoryID != nil && *e.CategoryID == id {
			return storage.ErrReferenced
		}
	}
	delete(s.categories, id)
	return nil
}

func (s *Store) ListCategories(ctx context.Context, scope tenant.Scope) ([]*models.Category, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.Category{}
	for _, c := range s.categories {
		if visible(scope, c.TenantID) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ========== Punches ==========

func (s *Store) CreatePunch(ctx context.Context, scope tenant.Scope, p *models.Punch) error {
	if err := checkScope(scope); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tid, err := stamp(scope, p.TenantID)
	if err != nil {
		return err
	}
	p.TenantID = tid
	p.ID = ensureID(p.ID)
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	cp := clonePunch(p)
	s.punches[p.ID] = cp
	return nil
}

func (s *Store) GetPunch(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.Punch, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.punches[id]
	if !ok || !visible(scope, p.TenantID) {
		return nil, storage.ErrNotFound
	}
	return clonePunch(p), nil
}

func (s *Store) GetOpenPunch(ctx context.Context, scope tenant.Scope, employeeID uuid.UUID) (*models.Punch, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *models.Punch
	for _, p := range s.punches {
		if !visible(scope, p.TenantID) || p.EmployeeID != employeeID || p.CheckOut != nil {
			continue
		}
		if latest == nil || p.CheckIn.After(latest.CheckIn) {
			latest = p
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}
	return clonePunch(latest), nil
}

func (s *Store) UpdatePunch(ctx context.Context, scope tenant.Scope, p *models.Punch) error {
	if err := checkScope(scope); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.punches[p.ID]
	if !ok || !visible(scope, cur.TenantID) {
		return storage.ErrNotFound
	}
	p.TenantID = cur.TenantID
	p.UpdatedAt = time.Now().UTC()
	s.punches[p.ID] = clonePunch(p)
	return nil
}

func (s *Store) DeletePunch(ctx context.Context, scope tenant.Scope, id uuid.UUID) error {
	if err := checkScope(scope); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.punches[id]
	if !ok || !visible(scope, p.TenantID) {
		return storage.ErrNotFound
	}
	delete(s.punches, id)
	for bid, b := range s.breaks {
		if b.PunchID == id {
			delete(s.breaks, bid)
		}
	}
	for sid, ps := range s.seals {
		if ps.PunchID == id {
			delete(s.seals, sid)
		}
	}
	return nil
}

func (s *Store) ListPunches(ctx context.Context, scope tenant.Scope, f storage.PunchFilters, limit, offset int) ([]*models.Punch, int64, error) {
	if err := checkScope(scope); err != nil {
		return nil, 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.Punch{}
	for _, p := range s.punches {
		if !visible(scope, p.TenantID) {
			continue
		}
		if f.EmployeeID != nil && p.EmployeeID != *f.EmployeeID {
			continue
		}
		if f.From != nil && p.Date.Before(*f.From) {
			continue
		}
		if f.To != nil && p.Date.After(*f.To) {
			continue
		}
		if f.OpenOnly && p.CheckOut != nil {
			continue
		}
		out = append(out, clonePunch(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckIn.After(out[j].CheckIn) })
	return page(out, limit, offset), int64(len(out)), nil
}

func (s *Store) ListOpenPunchesForDate(ctx context.Context, scope tenant.Scope, date time.Time) ([]*models.Punch, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.Punch{}
	for _, p := range s.punches {
		if visible(scope, p.TenantID) && p.CheckOut == nil && p.Date.Equal(date) {
			out = append(out, clonePunch(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckIn.Before(out[j].CheckIn) })
	return out, nil
}

func (s *Store) ListClosedPunchesBetween(ctx context.Context, scope tenant.Scope, employeeID uuid.UUID, from, to time.Time) ([]*models.Punch, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.Punch{}
	for _, p := range s.punches {
		if !visible(scope, p.TenantID) || p.EmployeeID != employeeID || p.CheckOut == nil {
			continue
		}
		if p.Date.Before(from) || p.Date.After(to) {
			continue
		}
		out = append(out, clonePunch(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].CheckIn.Before(out[j].CheckIn)
	})
	return out, nil
}

func clonePunch(p *models.Punch) *models.Punch {
	cp := *p
	if p.CheckOut != nil {
		v := *p.CheckOut
		cp.CheckOut = &v
	}
	if p.ModifiedBy != nil {
		v := *p.ModifiedBy
		cp.ModifiedBy = &v
	}
	return &cp
}

// ========== Seals ==========

func (s *Store) CreateSeal(ctx context.Context, scope tenant.Scope, ps *models.PunchSeal) error {
	if err := checkScope(scope); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tid, err := stamp(scope, ps.TenantID)
	if err != nil {
		return err
	}
	ps.TenantID = tid
	ps.ID = ensureID(ps.ID)
	ps.CreatedAt = time.Now().UTC()
	cp := *ps
	s.seals[ps.ID] = &cp
	return nil
}

func (s *Store) ListSealsForPunch(ctx context.Context, scope tenant.Scope, punchID uuid.UUID) ([]*models.PunchSeal, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.PunchSeal{}
	for _, ps := range s.seals {
		if visible(scope, ps.TenantID) && ps.PunchID == punchID {
			cp := *ps
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ListUnsealedPunches(ctx context.Context, scope tenant.Scope, from, to time.Time) ([]*models.Punch, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.Punch{}
	for _, p := range s.punches {
		if !visible(scope, p.TenantID) || p.CheckOut == nil {
			continue
		}
		if p.Date.Before(from) || p.Date.After(to) {
			continue
		}
		sealed := false
		for _, ps := range s.seals {
			if ps.PunchID == p.ID && ps.Action == models.SealCheckOut {
				sealed = true
				break
			}
		}
		if !sealed {
			out = append(out, clonePunch(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// ========== Breaks ==========

func (s *Store) CreateBreak(ctx context.Context, scope tenant.Scope, b *models.Break) error {
	if err := checkScope(scope); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tid, err := stamp(scope, b.TenantID)
	if err != nil {
		return err
	}
	b.TenantID = tid
	b.ID = ensureID(b.ID)
	b.CreatedAt = time.Now().UTC()
	s.breaks[b.ID] = cloneBreak(b)
	return nil
}

func (s *Store) GetBreak(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.Break, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.breaks[id]
	if !ok || !visible(scope, b.TenantID) {
		return nil, storage.ErrNotFound
	}
	return cloneBreak(b), nil
}

func (s *Store) GetActiveBreak(ctx context.Context, scope tenant.Scope, employeeID uuid.UUID) (*models.Break, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.breaks {
		if visible(scope, b.TenantID) && b.EmployeeID == employeeID && b.End == nil {
			return cloneBreak(b), nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) UpdateBreak(ctx context.Context, scope tenant.Scope, b *models.Break) error {
	if err := checkScope(scope); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.breaks[b.ID]
	if !ok || !visible(scope, cur.TenantID) {
		return storage.ErrNotFound
	}
	b.TenantID = cur.TenantID
	s.breaks[b.ID] = cloneBreak(b)
	return nil
}

func (s *Store) ListBreaksForPunch(ctx context.Context, scope tenant.Scope, punchID uuid.UUID) ([]*models.Break, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.Break{}
	for _, b := range s.breaks {
		if visible(scope, b.TenantID) && b.PunchID == punchID {
			out = append(out, cloneBreak(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func cloneBreak(b *models.Break) *models.Break {
	cp := *b
	if b.End != nil {
		v := *b.End
		cp.End = &v
	}
	if b.Attachment != nil {
		v := *b.Attachment
		cp.Attachment = &v
	}
	return &cp
}

// ========== Leave requests ==========

func (s *Store) CreateLeaveRequest(ctx context.Context, scope tenant.Scope, r *models.LeaveRequest) error {
	if err := checkScope(scope); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tid, err := stamp(scope, r.TenantID)
	if err != nil {
		return err
	}
	r.TenantID = tid
	r.ID = ensureID(r.ID)
	now := time.Now().UTC()
	r.CreatedAt, r.UpdatedAt = now, now
	s.leaves[r.ID] = cloneLeave(r)
	return nil
}

func (s *Store) GetLeaveRequest(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.LeaveRequest, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.leaves[id]
	if !ok || !visible(scope, r.TenantID) {
		return nil, storage.ErrNotFound
	}
	return cloneLeave(r), nil
}

func (s *Store) UpdateLeaveRequest(ctx context.Context, scope tenant.Scope, r *models.LeaveRequest) error {
	if err := checkScope(scope); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.leaves[r.ID]
	if !ok || !visible(scope, cur.TenantID) {
		return storage.ErrNotFound
	}
	r.TenantID = cur.TenantID
	r.UpdatedAt = time.Now().UTC()
	s.leaves[r.ID] = cloneLeave(r)
	return nil
}

func (s *Store) ListLeaveRequests(ctx context.Context, scope tenant.Scope, f storage.LeaveFilters, limit, offset int) ([]*models.LeaveRequest, int64, error) {
	if err := checkScope(scope); err != nil {
		return nil, 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.LeaveRequest{}
	for _, r := range s.leaves {
		if !visible(scope, r.TenantID) {
			continue
		}
		if f.EmployeeID != nil && r.EmployeeID != *f.EmployeeID {
			continue
		}
		if f.Status != nil && r.Status != *f.Status {
			continue
		}
		if f.UnreadOnly && r.ReadByAdmin {
			continue
		}
		out = append(out, cloneLeave(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, offset), int64(len(out)), nil
}

func (s *Store) CountPendingLeaveRequests(ctx context.Context, scope tenant.Scope) (int64, error) {
	if err := checkScope(scope); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, r := range s.leaves {
		if visible(scope, r.TenantID) && r.Status == models.LeavePending {
			n++
		}
	}
	return n, nil
}

func (s *Store) MarkLeaveRequestsRead(ctx context.Context, scope tenant.Scope, readAt time.Time) error {
	if err := checkScope(scope); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.leaves {
		if visible(scope, r.TenantID) && !r.ReadByAdmin {
			r.ReadByAdmin = true
			at := readAt
			r.ReadAt = &at
			r.UpdatedAt = readAt
		}
	}
	return nil
}

func cloneLeave(r *models.LeaveRequest) *models.LeaveRequest {
	cp := *r
	if r.ApprovedBy != nil {
		v := *r.ApprovedBy
		cp.ApprovedBy = &v
	}
	if r.DecidedAt != nil {
		v := *r.DecidedAt
		cp.DecidedAt = &v
	}
	if r.ReadAt != nil {
		v := *r.ReadAt
		cp.ReadAt = &v
	}
	if r.Attachment != nil {
		v := *r.Attachment
		cp.Attachment = &v
	}
	return &cp
}

// ========== Daily statuses ==========

func (s *Store) UpsertDailyStatus(ctx context.Context, scope tenant.Scope, ds *models.DailyStatus) error {
	if err := checkScope(scope); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tid, err := stamp(scope, ds.TenantID)
	if err != nil {
		return err
	}
	ds.TenantID = tid
	now := time.Now().UTC()
	for _, cur := range s.statuses {
		if cur.TenantID == tid && cur.EmployeeID == ds.EmployeeID && cur.Date.Equal(ds.Date) {
			cur.Status = ds.Status
			cur.SourceKind = ds.SourceKind
			cur.Notes = ds.Notes
			cur.AdminNotes = ds.AdminNotes
			cur.UpdatedAt = now
			ds.ID = cur.ID
			return nil
		}
	}
	ds.ID = ensureID(ds.ID)
	ds.CreatedAt, ds.UpdatedAt = now, now
	cp := *ds
	s.statuses[ds.ID] = &cp
	return nil
}

func (s *Store) GetDailyStatus(ctx context.Context, scope tenant.Scope, employeeID uuid.UUID, date time.Time) (*models.DailyStatus, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ds := range s.statuses {
		if visible(scope, ds.TenantID) && ds.EmployeeID == employeeID && ds.Date.Equal(date) {
			cp := *ds
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) ListDailyStatuses(ctx context.Context, scope tenant.Scope, employeeID uuid.UUID, from, to time.Time) ([]*models.DailyStatus, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.DailyStatus{}
	for _, ds := range s.statuses {
		if !visible(scope, ds.TenantID) || ds.EmployeeID != employeeID {
			continue
		}
		if ds.Date.Before(from) || ds.Date.After(to) {
			continue
		}
		cp := *ds
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *Store) DeleteDailyStatus(ctx context.Context, scope tenant.Scope, id uuid.UUID) error {
	if err := checkScope(scope); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ds, ok := s.statuses[id]
	if !ok || !visible(scope, ds.TenantID) {
		return storage.ErrNotFound
	}
	delete(s.statuses, id)
	return nil
}

// ========== Overtime ==========

func (s *Store) CreateOvertimeEntry(ctx context.Context, scope tenant.Scope, e *models.OvertimeEntry) error {
	if err := checkScope(scope); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tid, err := stamp(scope, e.TenantID)
	if err != nil {
		return err
	}
	for _, other := range s.overtime {
		if other.TenantID == tid && other.EmployeeID == e.EmployeeID && other.WeekStart.Equal(e.WeekStart) {
			return storage.ErrDuplicateKey
		}
	}
	e.TenantID = tid
	e.ID = ensureID(e.ID)
	now := time.Now().UTC()
	e.CreatedAt, e.UpdatedAt = now, now
	s.overtime[e.ID] = cloneOvertime(e)
	return nil
}

func (s *Store) GetOvertimeEntry(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.OvertimeEntry, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.overtime[id]
	if !ok || !visible(scope, e.TenantID) {
		return nil, storage.ErrNotFound
	}
	return cloneOvertime(e), nil
}

func (s *Store) GetOvertimeEntryForWeek(ctx context.Context, scope tenant.Scope, employeeID uuid.UUID, weekStart time.Time) (*models.OvertimeEntry, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.overtime {
		if visible(scope, e.TenantID) && e.EmployeeID == employeeID && e.WeekStart.Equal(weekStart) {
			return cloneOvertime(e), nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) UpdateOvertimeEntry(ctx context.Context, scope tenant.Scope, e *models.OvertimeEntry) error {
	if err := checkScope(scope); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.overtime[e.ID]
	if !ok || !visible(scope, cur.TenantID) {
		return storage.ErrNotFound
	}
	e.TenantID = cur.TenantID
	e.UpdatedAt = time.Now().UTC()
	s.overtime[e.ID] = cloneOvertime(e)
	return nil
}

func (s *Store) ListOvertimeEntries(ctx context.Context, scope tenant.Scope, f storage.OvertimeFilters, limit, offset int) ([]*models.OvertimeEntry, int64, error) {
	if err := checkScope(scope); err != nil {
		return nil, 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.OvertimeEntry{}
	for _, e := range s.overtime {
		if !visible(scope, e.TenantID) {
			continue
		}
		if f.EmployeeID != nil && e.EmployeeID != *f.EmployeeID {
			continue
		}
		if f.Status != nil && e.Status != *f.Status {
			continue
		}
		if f.WeekStart != nil && !e.WeekStart.Equal(*f.WeekStart) {
			continue
		}
		out = append(out, cloneOvertime(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WeekStart.After(out[j].WeekStart) })
	return page(out, limit, offset), int64(len(out)), nil
}

func cloneOvertime(e *models.OvertimeEntry) *models.OvertimeEntry {
	cp := *e
	if e.DecidedBy != nil {
		v := *e.DecidedBy
		cp.DecidedBy = &v
	}
	if e.DecidedAt != nil {
		v := *e.DecidedAt
		cp.DecidedAt = &v
	}
	return &cp
}

// ========== Reminder logs ==========

func (s *Store) CreateReminderLog(ctx context.Context, scope tenant.Scope, l *models.ReminderLog) error {
	if err := checkScope(scope); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tid, err := stamp(scope, l.TenantID)
	if err != nil {
		return err
	}
	l.TenantID = tid
	l.ID = ensureID(l.ID)
	l.CreatedAt = time.Now().UTC()
	cp := *l
	s.reminders[l.ID] = &cp
	return nil
}

func (s *Store) CountRemindersBetween(ctx context.Context, scope tenant.Scope, employeeID uuid.UUID, kind models.ReminderKind, from, to time.Time) (int64, error) {
	if err := checkScope(scope); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, l := range s.reminders {
		if !visible(scope, l.TenantID) || l.EmployeeID != employeeID || l.Kind != kind || !l.Success {
			continue
		}
		if l.SentAt.Before(from) || !l.SentAt.Before(to) {
			continue
		}
		n++
	}
	return n, nil
}

// Close is a no-op
func (s *Store) Close() error { return nil }

func page[T any](in []T, limit, offset int) []T {
	if offset >= len(in) {
		return []T{}
	}
	in = in[offset:]
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}
