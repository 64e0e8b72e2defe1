package overtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/timeclock-server/timeclock-server-pro/internal/models"
	"github.com/timeclock-server/timeclock-server-pro/internal/storage"
	"github.com/timeclock-server/timeclock-server-pro/internal/tenant"
	"github.com/timeclock-server/timeclock-server-pro/pkg/dateutil"
)

// Common errors
var (
	ErrNotPending    = errors.New("entry is not pending")
	ErrNoClosedPunch = errors.New("no closed punch in week to balance against")
)

// ToleranceSeconds is the band around the contract total inside which
// no overtime entry is raised.
const ToleranceSeconds = 3600

// Aggregator computes weekly worked-vs-contract entries and applies
// admin decisions on them.
type Aggregator struct {
	store storage.Store
	loc   *time.Location
}

// NewAggregator creates an overtime aggregator
func NewAggregator(store storage.Store, loc *time.Location) *Aggregator {
	return &Aggregator{
		store: store,
		loc:   loc,
	}
}

// GenerateWeek computes entries for every active employee of the
// tenant for the week containing ref. Entries are created when the
// delta leaves the tolerance band and refreshed only while pending;
// decided entries are never touched. Employees with no contract hours
// are skipped.
func (a *Aggregator) GenerateWeek(ctx context.Context, tc *tenant.Context, ref time.Time) (int, error) {
	scope := tc.Scope()
	weekStart, weekEnd := dateutil.WeekBounds(ref, a.loc)

	employees, _, err := a.store.ListEmployees(ctx, scope, storage.EmployeeFilters{ActiveOnly: true}, 10000, 0)
	if err != nil {
		return 0, err
	}

	touched := 0
	for _, emp := range employees {
		if emp.WeeklyHours == 0 {
			continue
		}
		changed, err := a.generateFor(ctx, scope, emp, weekStart, weekEnd)
		if err != nil {
			log.Error().Err(err).
				Str("employeeID", emp.ID.String()).
				Msg("Failed to generate overtime entry")
			continue
		}
		if changed {
			touched++
		}
	}
	return touched, nil
}

func (a *Aggregator) generateFor(ctx context.Context, scope tenant.Scope, emp *models.Employee, weekStart, weekEnd time.Time) (bool, error) {
	worked, err := a.workedSeconds(ctx, scope, emp.ID, weekStart, weekEnd)
	if err != nil {
		return false, err
	}

	contract := int64(emp.WeeklyHours) * 3600
	delta := worked - contract

	existing, err := a.store.GetOvertimeEntryForWeek(ctx, scope, emp.ID, weekStart)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return false, err
	}

	if existing != nil {
		if existing.Status != models.OvertimePending {
			return false, nil
		}
		if existing.WorkedSeconds == worked {
			return false, nil
		}
		existing.WorkedSeconds = worked
		existing.ContractSeconds = contract
		existing.DeltaSeconds = delta
		return true, a.store.UpdateOvertimeEntry(ctx, scope, existing)
	}

	// the band is inclusive; exactly one hour over or under raises nothing
	if delta >= -ToleranceSeconds && delta <= ToleranceSeconds {
		return false, nil
	}

	entry := &models.OvertimeEntry{
		TenantID:        emp.TenantID,
		EmployeeID:      emp.ID,
		WeekStart:       weekStart,
		WeekEnd:         weekEnd,
		WorkedSeconds:   worked,
		ContractSeconds: contract,
		DeltaSeconds:    delta,
		Status:          models.OvertimePending,
	}
	if err := a.store.CreateOvertimeEntry(ctx, scope, entry); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			// concurrent generate run won the insert
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// workedSeconds sums the closed punches of the week. Breaks stay in
// the total: the contract hours are presence hours.
func (a *Aggregator) workedSeconds(ctx context.Context, scope tenant.Scope, employeeID uuid.UUID, weekStart, weekEnd time.Time) (int64, error) {
	punches, err := a.store.ListClosedPunchesBetween(ctx, scope, employeeID, weekStart, weekEnd)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, p := range punches {
		total += int64(p.Duration() / time.Second)
	}
	return total, nil
}

// Approve accepts a pending entry as-is
func (a *Aggregator) Approve(ctx context.Context, tc *tenant.Context, id uuid.UUID, notes string) (*models.OvertimeEntry, error) {
	return a.decide(ctx, tc, id, models.OvertimeApproved, notes)
}

// Reject discards a pending entry
func (a *Aggregator) Reject(ctx context.Context, tc *tenant.Context, id uuid.UUID, notes string) (*models.OvertimeEntry, error) {
	return a.decide(ctx, tc, id, models.OvertimeRejected, notes)
}

func (a *Aggregator) decide(ctx context.Context, tc *tenant.Context, id uuid.UUID, status models.OvertimeStatus, notes string) (*models.OvertimeEntry, error) {
	scope := tc.Scope()

	entry, err := a.store.GetOvertimeEntry(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if entry.Status != models.OvertimePending {
		return nil, ErrNotPending
	}

	now := time.Now().UTC()
	adminID := tc.EmployeeID
	entry.Status = status
	entry.DecidedBy = &adminID
	entry.DecidedAt = &now
	entry.Notes = notes
	if err := a.store.UpdateOvertimeEntry(ctx, scope, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// AutoBalance adjusts a pending entry by shifting the check-out of the
// week's last closed punch so the week total matches the contract. The
// edit is recorded in the punch's admin notes and the entry ends up
// adjusted with a zero delta.
func (a *Aggregator) AutoBalance(ctx context.Context, tc *tenant.Context, id uuid.UUID, notes string) (*models.OvertimeEntry, error) {
	scope := tc.Scope()

	tx, err := a.store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	entry, err := tx.GetOvertimeEntry(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if entry.Status != models.OvertimePending {
		return nil, ErrNotPending
	}

	punches, err := tx.ListClosedPunchesBetween(ctx, scope, entry.EmployeeID, entry.WeekStart, entry.WeekEnd)
	if err != nil {
		return nil, err
	}
	if len(punches) == 0 {
		return nil, ErrNoClosedPunch
	}

	last := punches[len(punches)-1]
	shifted := last.CheckOut.Add(-time.Duration(entry.DeltaSeconds) * time.Second)
	if shifted.Before(last.CheckIn) {
		shifted = last.CheckIn
	}

	adminID := tc.EmployeeID
	audit := fmt.Sprintf("check-out moved from %s to %s balancing week %s",
		last.CheckOut.UTC().Format(time.RFC3339),
		shifted.UTC().Format(time.RFC3339),
		entry.WeekStart.Format("2006-01-02"))
	if last.AdminNotes != "" {
		last.AdminNotes += "\n"
	}
	last.AdminNotes += audit
	last.CheckOut = &shifted
	last.ModifiedBy = &adminID
	if err := tx.UpdatePunch(ctx, scope, last); err != nil {
		return nil, err
	}

	worked, err := a.recomputeWorked(ctx, tx, scope, entry)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entry.WorkedSeconds = worked
	entry.DeltaSeconds = worked - entry.ContractSeconds
	entry.Status = models.OvertimeAdjusted
	entry.DecidedBy = &adminID
	entry.DecidedAt = &now
	entry.Notes = notes
	if err := tx.UpdateOvertimeEntry(ctx, scope, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return entry, nil
}

func (a *Aggregator) recomputeWorked(ctx context.Context, tx storage.Store, scope tenant.Scope, entry *models.OvertimeEntry) (int64, error) {
	punches, err := tx.ListClosedPunchesBetween(ctx, scope, entry.EmployeeID, entry.WeekStart, entry.WeekEnd)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, p := range punches {
		total += int64(p.Duration() / time.Second)
	}
	return total, nil
}
