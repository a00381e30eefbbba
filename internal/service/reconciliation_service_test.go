package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"stitcherp/internal/ledger"
	"stitcherp/internal/model"
	"stitcherp/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ── Stubs ─────────────────────────────────────────────────────────────────────

func pairKey(workOrderID, machineID uuid.UUID) string {
	return workOrderID.String() + "/" + machineID.String()
}

// stubAllocRepo is an in-memory AllocationRepository.
type stubAllocRepo struct {
	mu     sync.Mutex
	byID   map[uuid.UUID]*model.MachineAllocation
	byPair map[string]*model.MachineAllocation
}

func newStubAllocRepo() *stubAllocRepo {
	return &stubAllocRepo{
		byID:   make(map[uuid.UUID]*model.MachineAllocation),
		byPair: make(map[string]*model.MachineAllocation),
	}
}

func (r *stubAllocRepo) DB() *gorm.DB { return nil }

func (r *stubAllocRepo) CreateTx(_ context.Context, _ *gorm.DB, a *model.MachineAllocation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	clone := *a
	r.byID[a.ID] = &clone
	r.byPair[pairKey(a.WorkOrderID, a.MachineID)] = &clone
	return nil
}

func (r *stubAllocRepo) FindByID(_ context.Context, id uuid.UUID) (*model.MachineAllocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *a
	return &clone, nil
}

func (r *stubAllocRepo) FindByPair(_ context.Context, workOrderID, machineID uuid.UUID) (*model.MachineAllocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byPair[pairKey(workOrderID, machineID)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *a
	return &clone, nil
}

func (r *stubAllocRepo) FindByPairForUpdateTx(ctx context.Context, _ *gorm.DB, workOrderID, machineID uuid.UUID) (*model.MachineAllocation, error) {
	return r.FindByPair(ctx, workOrderID, machineID)
}

func (r *stubAllocRepo) ListByWorkOrder(_ context.Context, workOrderID uuid.UUID) ([]model.MachineAllocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.MachineAllocation
	for _, a := range r.byID {
		if a.WorkOrderID == workOrderID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *stubAllocRepo) UpdateDerivedTx(_ context.Context, _ *gorm.DB, id uuid.UUID, pending decimal.Decimal, status string, completedAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	a.PendingStitches = pending
	a.Status = status
	a.CompletedAt = completedAt
	return nil
}

func (r *stubAllocRepo) DeleteByWorkOrderTx(_ context.Context, _ *gorm.DB, workOrderID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, a := range r.byID {
		if a.WorkOrderID == workOrderID {
			delete(r.byPair, pairKey(a.WorkOrderID, a.MachineID))
			delete(r.byID, id)
		}
	}
	return nil
}

func (r *stubAllocRepo) DeleteTx(_ context.Context, _ *gorm.DB, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.byPair, pairKey(a.WorkOrderID, a.MachineID))
	delete(r.byID, id)
	return nil
}

var _ repository.AllocationRepository = (*stubAllocRepo)(nil)

// stubLedger serves canned totals per pair.
type stubLedger struct {
	mu     sync.Mutex
	totals map[string]ledger.Totals
	err    error
}

func newStubLedger() *stubLedger {
	return &stubLedger{totals: make(map[string]ledger.Totals)}
}

func (l *stubLedger) set(workOrderID, machineID uuid.UUID, t ledger.Totals) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.totals[pairKey(workOrderID, machineID)] = t
}

func (l *stubLedger) TotalProduced(_ context.Context, _ *gorm.DB, workOrderID, machineID uuid.UUID) (ledger.Totals, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return ledger.Totals{}, l.err
	}
	t, ok := l.totals[pairKey(workOrderID, machineID)]
	if !ok {
		return ledger.Totals{Stitches: decimal.Zero}, nil
	}
	return t, nil
}

var _ ProductionLedger = (*stubLedger)(nil)

// ── Helpers ───────────────────────────────────────────────────────────────────

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func day(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func seedAllocation(repo *stubAllocRepo, assigned string, estimatedDays int) *model.MachineAllocation {
	a := &model.MachineAllocation{
		WorkOrderID:      uuid.New(),
		MachineID:        uuid.New(),
		AssignedStitches: dec(assigned),
		PendingStitches:  dec(assigned),
		EstimatedDays:    estimatedDays,
		Status:           model.AllocationOpen,
	}
	_ = repo.CreateTx(context.Background(), nil, a)
	return a
}

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestRecalculatePartialProduction(t *testing.T) {
	repo := newStubAllocRepo()
	led := newStubLedger()
	svc := NewReconciliationService(repo, led)

	a := seedAllocation(repo, "1000", 5)
	led.set(a.WorkOrderID, a.MachineID, ledger.Totals{
		Stitches:  dec("400"),
		FirstDate: day("2026-01-10"),
		LastDate:  day("2026-01-11"),
	})

	outcome, err := svc.Recalculate(context.Background(), a.WorkOrderID, a.MachineID)
	require.NoError(t, err)
	require.True(t, outcome.Found)
	assert.True(t, outcome.Pending.Equal(dec("600")))
	assert.Equal(t, model.AllocationOpen, outcome.Status)
	assert.Nil(t, outcome.CompletedAt)

	stored, err := repo.FindByPair(context.Background(), a.WorkOrderID, a.MachineID)
	require.NoError(t, err)
	assert.True(t, stored.PendingStitches.Equal(dec("600")))
	assert.Equal(t, model.AllocationOpen, stored.Status)
}

func TestRecalculateCompletedWithinEstimate(t *testing.T) {
	repo := newStubAllocRepo()
	led := newStubLedger()
	svc := NewReconciliationService(repo, led)

	a := seedAllocation(repo, "1000", 5)
	last := day("2026-01-12")
	led.set(a.WorkOrderID, a.MachineID, ledger.Totals{
		Stitches:  dec("1000"),
		FirstDate: day("2026-01-10"),
		LastDate:  last,
	})

	outcome, err := svc.Recalculate(context.Background(), a.WorkOrderID, a.MachineID)
	require.NoError(t, err)
	assert.Equal(t, model.AllocationCompleted, outcome.Status)
	assert.True(t, outcome.Pending.IsZero())
	require.NotNil(t, outcome.CompletedAt)
	assert.True(t, outcome.CompletedAt.Equal(*last))
	assert.Equal(t, 3, outcome.ActualDays)
}

func TestRecalculateDelayedWhenOverEstimate(t *testing.T) {
	repo := newStubAllocRepo()
	led := newStubLedger()
	svc := NewReconciliationService(repo, led)

	a := seedAllocation(repo, "1000", 2)
	led.set(a.WorkOrderID, a.MachineID, ledger.Totals{
		Stitches:  dec("1000"),
		FirstDate: day("2026-01-10"),
		LastDate:  day("2026-01-13"),
	})

	outcome, err := svc.Recalculate(context.Background(), a.WorkOrderID, a.MachineID)
	require.NoError(t, err)
	assert.Equal(t, 4, outcome.ActualDays)
	assert.Equal(t, model.AllocationDelayed, outcome.Status)
	require.NotNil(t, outcome.CompletedAt)
}

func TestRecalculateSingleDayCompletion(t *testing.T) {
	repo := newStubAllocRepo()
	led := newStubLedger()
	svc := NewReconciliationService(repo, led)

	a := seedAllocation(repo, "500", 1)
	d := day("2026-02-01")
	led.set(a.WorkOrderID, a.MachineID, ledger.Totals{
		Stitches:  dec("500"),
		FirstDate: d,
		LastDate:  d,
	})

	outcome, err := svc.Recalculate(context.Background(), a.WorkOrderID, a.MachineID)
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.ActualDays)
	assert.Equal(t, model.AllocationCompleted, outcome.Status)
}

func TestRecalculateOverproducedStaysNegative(t *testing.T) {
	repo := newStubAllocRepo()
	led := newStubLedger()
	svc := NewReconciliationService(repo, led)

	a := seedAllocation(repo, "1000", 5)
	led.set(a.WorkOrderID, a.MachineID, ledger.Totals{
		Stitches:  dec("1200"),
		FirstDate: day("2026-01-10"),
		LastDate:  day("2026-01-14"),
	})

	outcome, err := svc.Recalculate(context.Background(), a.WorkOrderID, a.MachineID)
	require.NoError(t, err)
	assert.True(t, outcome.Pending.Equal(dec("-200")), "overproduction must not be clamped")
	assert.Equal(t, model.AllocationOverproduced, outcome.Status)
	require.NotNil(t, outcome.CompletedAt)

	stored, _ := repo.FindByPair(context.Background(), a.WorkOrderID, a.MachineID)
	assert.True(t, stored.PendingStitches.IsNegative())
}

func TestRecalculateZeroProducedStaysOpen(t *testing.T) {
	repo := newStubAllocRepo()
	led := newStubLedger()
	svc := NewReconciliationService(repo, led)

	a := seedAllocation(repo, "1000", 5)

	outcome, err := svc.Recalculate(context.Background(), a.WorkOrderID, a.MachineID)
	require.NoError(t, err)
	assert.True(t, outcome.Pending.Equal(dec("1000")))
	assert.Equal(t, model.AllocationOpen, outcome.Status)
	assert.Nil(t, outcome.CompletedAt)
}

func TestRecalculateIdempotent(t *testing.T) {
	repo := newStubAllocRepo()
	led := newStubLedger()
	svc := NewReconciliationService(repo, led)

	a := seedAllocation(repo, "1000", 5)
	led.set(a.WorkOrderID, a.MachineID, ledger.Totals{
		Stitches:  dec("300"),
		FirstDate: day("2026-01-10"),
		LastDate:  day("2026-01-10"),
	})

	first, err := svc.Recalculate(context.Background(), a.WorkOrderID, a.MachineID)
	require.NoError(t, err)
	second, err := svc.Recalculate(context.Background(), a.WorkOrderID, a.MachineID)
	require.NoError(t, err)

	assert.True(t, first.Pending.Equal(second.Pending))
	assert.Equal(t, first.Status, second.Status)
	assert.False(t, second.StatusChanged(), "re-running against unchanged events must not flip status")
}

func TestRecalculateMissingAllocationIsNoOp(t *testing.T) {
	repo := newStubAllocRepo()
	svc := NewReconciliationService(repo, newStubLedger())

	outcome, err := svc.Recalculate(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.False(t, outcome.Found)
}

func TestRecalculateLedgerErrorPropagates(t *testing.T) {
	repo := newStubAllocRepo()
	led := newStubLedger()
	led.err = errors.New("source daily_production: connection reset")
	svc := NewReconciliationService(repo, led)

	a := seedAllocation(repo, "1000", 5)

	_, err := svc.Recalculate(context.Background(), a.WorkOrderID, a.MachineID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	// Derived state must be untouched on failure.
	stored, _ := repo.FindByPair(context.Background(), a.WorkOrderID, a.MachineID)
	assert.True(t, stored.PendingStitches.Equal(dec("1000")))
}

func TestRecalculateStatusChangeReported(t *testing.T) {
	repo := newStubAllocRepo()
	led := newStubLedger()
	svc := NewReconciliationService(repo, led)

	a := seedAllocation(repo, "1000", 5)
	led.set(a.WorkOrderID, a.MachineID, ledger.Totals{
		Stitches:  dec("1000"),
		FirstDate: day("2026-01-10"),
		LastDate:  day("2026-01-10"),
	})

	outcome, err := svc.Recalculate(context.Background(), a.WorkOrderID, a.MachineID)
	require.NoError(t, err)
	assert.Equal(t, model.AllocationOpen, outcome.PreviousStatus)
	assert.Equal(t, model.AllocationCompleted, outcome.Status)
	assert.True(t, outcome.StatusChanged())
}

func TestRecalculateConcurrentWritersConverge(t *testing.T) {
	repo := newStubAllocRepo()
	led := newStubLedger()
	svc := NewReconciliationService(repo, led)

	a := seedAllocation(repo, "1000", 5)
	led.set(a.WorkOrderID, a.MachineID, ledger.Totals{
		Stitches:  dec("700"),
		FirstDate: day("2026-01-10"),
		LastDate:  day("2026-01-12"),
	})

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Recalculate(context.Background(), a.WorkOrderID, a.MachineID); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent recalculation failed: %v", err)
	}

	stored, err := repo.FindByPair(context.Background(), a.WorkOrderID, a.MachineID)
	require.NoError(t, err)
	assert.True(t, stored.PendingStitches.Equal(dec("300")),
		fmt.Sprintf("expected 300 pending, got %s", stored.PendingStitches))
	assert.Equal(t, model.AllocationOpen, stored.Status)
}
