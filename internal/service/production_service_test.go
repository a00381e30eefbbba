package service

import (
	"context"
	"testing"

	"stitcherp/internal/dto"
	"stitcherp/internal/ledger"
	"stitcherp/internal/model"
	"stitcherp/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ── Stubs ─────────────────────────────────────────────────────────────────────

type stubShiftRepo struct {
	entries map[uuid.UUID]*model.ShiftProduction
}

func newStubShiftRepo() *stubShiftRepo {
	return &stubShiftRepo{entries: make(map[uuid.UUID]*model.ShiftProduction)}
}

func (r *stubShiftRepo) DB() *gorm.DB { return nil }

func (r *stubShiftRepo) CreateTx(_ context.Context, _ *gorm.DB, e *model.ShiftProduction) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	clone := *e
	r.entries[e.ID] = &clone
	return nil
}

func (r *stubShiftRepo) FindByID(_ context.Context, id uuid.UUID) (*model.ShiftProduction, error) {
	e, ok := r.entries[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *e
	return &clone, nil
}

func (r *stubShiftRepo) UpdateTx(_ context.Context, _ *gorm.DB, e *model.ShiftProduction) error {
	if _, ok := r.entries[e.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	clone := *e
	r.entries[e.ID] = &clone
	return nil
}

func (r *stubShiftRepo) DeleteTx(_ context.Context, _ *gorm.DB, id uuid.UUID) error {
	delete(r.entries, id)
	return nil
}

var _ repository.ShiftProductionRepository = (*stubShiftRepo)(nil)

type stubDailyRepo struct {
	entries map[uuid.UUID]*model.DailyProduction
}

func newStubDailyRepo() *stubDailyRepo {
	return &stubDailyRepo{entries: make(map[uuid.UUID]*model.DailyProduction)}
}

func (r *stubDailyRepo) DB() *gorm.DB { return nil }

func (r *stubDailyRepo) CreateTx(_ context.Context, _ *gorm.DB, e *model.DailyProduction) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	clone := *e
	r.entries[e.ID] = &clone
	return nil
}

func (r *stubDailyRepo) FindByID(_ context.Context, id uuid.UUID) (*model.DailyProduction, error) {
	e, ok := r.entries[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *e
	return &clone, nil
}

func (r *stubDailyRepo) UpdateTx(_ context.Context, _ *gorm.DB, e *model.DailyProduction) error {
	if _, ok := r.entries[e.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	clone := *e
	r.entries[e.ID] = &clone
	return nil
}

func (r *stubDailyRepo) DeleteTx(_ context.Context, _ *gorm.DB, id uuid.UUID) error {
	delete(r.entries, id)
	return nil
}

var _ repository.DailyProductionRepository = (*stubDailyRepo)(nil)

// ── Fixtures ──────────────────────────────────────────────────────────────────

type productionFixture struct {
	svc       ProductionService
	shiftRepo *stubShiftRepo
	allocRepo *stubAllocRepo
	ledger    *stubLedger
}

func newProductionFixture() *productionFixture {
	shiftRepo := newStubShiftRepo()
	dailyRepo := newStubDailyRepo()
	allocRepo := newStubAllocRepo()
	led := newStubLedger()
	recon := NewReconciliationService(allocRepo, led)
	return &productionFixture{
		svc:       NewProductionService(shiftRepo, dailyRepo, recon, nil, nil),
		shiftRepo: shiftRepo,
		allocRepo: allocRepo,
		ledger:    led,
	}
}

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestLogShiftReconcilesAllocation(t *testing.T) {
	f := newProductionFixture()
	a := seedAllocation(f.allocRepo, "1000", 5)

	// The ledger reflects the event totals after this entry lands.
	f.ledger.set(a.WorkOrderID, a.MachineID, ledger.Totals{
		Stitches:  dec("400"),
		FirstDate: day("2026-01-10"),
		LastDate:  day("2026-01-10"),
	})

	resp, err := f.svc.LogShift(context.Background(), dto.ShiftProductionRequest{
		WorkOrderID:    a.WorkOrderID.String(),
		MachineID:      a.MachineID.String(),
		Shift:          "day",
		Stitches:       dec("400"),
		ProductionDate: "2026-01-10",
		Operator:       "nadeem",
	})
	require.NoError(t, err)
	assert.Equal(t, model.AllocationOpen, resp.AllocationStatus)
	assert.True(t, resp.PendingStitches.Equal(dec("600")))

	stored, err := f.allocRepo.FindByPair(context.Background(), a.WorkOrderID, a.MachineID)
	require.NoError(t, err)
	assert.True(t, stored.PendingStitches.Equal(dec("600")))
}

func TestLogShiftWithoutAllocationStillLogs(t *testing.T) {
	f := newProductionFixture()

	resp, err := f.svc.LogShift(context.Background(), dto.ShiftProductionRequest{
		WorkOrderID:    uuid.NewString(),
		MachineID:      uuid.NewString(),
		Shift:          "night",
		Stitches:       dec("250"),
		ProductionDate: "2026-01-10",
	})
	require.NoError(t, err, "production without an allocation is valid; reconciliation is a no-op")
	assert.Empty(t, resp.AllocationStatus)
	assert.Len(t, f.shiftRepo.entries, 1)
}

func TestLogShiftRejectsNonPositiveStitches(t *testing.T) {
	f := newProductionFixture()

	_, err := f.svc.LogShift(context.Background(), dto.ShiftProductionRequest{
		WorkOrderID:    uuid.NewString(),
		MachineID:      uuid.NewString(),
		Shift:          "day",
		Stitches:       dec("0"),
		ProductionDate: "2026-01-10",
	})
	require.Error(t, err)
	assert.Len(t, f.shiftRepo.entries, 0)
}

func TestUpdateShiftMovedPairReconcilesBoth(t *testing.T) {
	f := newProductionFixture()
	a := seedAllocation(f.allocRepo, "1000", 5)
	b := seedAllocation(f.allocRepo, "800", 5)

	// Entry initially on pair a.
	f.ledger.set(a.WorkOrderID, a.MachineID, ledger.Totals{
		Stitches: dec("300"), FirstDate: day("2026-01-10"), LastDate: day("2026-01-10"),
	})
	resp, err := f.svc.LogShift(context.Background(), dto.ShiftProductionRequest{
		WorkOrderID:    a.WorkOrderID.String(),
		MachineID:      a.MachineID.String(),
		Shift:          "day",
		Stitches:       dec("300"),
		ProductionDate: "2026-01-10",
	})
	require.NoError(t, err)

	// The edit moves it to pair b; afterwards a has no events and b has all.
	f.ledger.set(a.WorkOrderID, a.MachineID, ledger.Totals{})
	f.ledger.set(b.WorkOrderID, b.MachineID, ledger.Totals{
		Stitches: dec("300"), FirstDate: day("2026-01-10"), LastDate: day("2026-01-10"),
	})

	_, err = f.svc.UpdateShift(context.Background(), uuid.MustParse(resp.ID), dto.ShiftProductionRequest{
		WorkOrderID:    b.WorkOrderID.String(),
		MachineID:      b.MachineID.String(),
		Shift:          "day",
		Stitches:       dec("300"),
		ProductionDate: "2026-01-10",
	})
	require.NoError(t, err)

	oldAlloc, _ := f.allocRepo.FindByPair(context.Background(), a.WorkOrderID, a.MachineID)
	newAlloc, _ := f.allocRepo.FindByPair(context.Background(), b.WorkOrderID, b.MachineID)
	assert.True(t, oldAlloc.PendingStitches.Equal(dec("1000")), "previous pair must be re-derived without the entry")
	assert.True(t, newAlloc.PendingStitches.Equal(dec("500")))
}

func TestDeleteShiftReconcilesPair(t *testing.T) {
	f := newProductionFixture()
	a := seedAllocation(f.allocRepo, "1000", 5)

	f.ledger.set(a.WorkOrderID, a.MachineID, ledger.Totals{
		Stitches: dec("1000"), FirstDate: day("2026-01-10"), LastDate: day("2026-01-10"),
	})
	resp, err := f.svc.LogShift(context.Background(), dto.ShiftProductionRequest{
		WorkOrderID:    a.WorkOrderID.String(),
		MachineID:      a.MachineID.String(),
		Shift:          "day",
		Stitches:       dec("1000"),
		ProductionDate: "2026-01-10",
	})
	require.NoError(t, err)
	assert.Equal(t, model.AllocationCompleted, resp.AllocationStatus)

	// Deleting the only entry reopens the allocation.
	f.ledger.set(a.WorkOrderID, a.MachineID, ledger.Totals{})
	require.NoError(t, f.svc.DeleteShift(context.Background(), uuid.MustParse(resp.ID)))

	stored, _ := f.allocRepo.FindByPair(context.Background(), a.WorkOrderID, a.MachineID)
	assert.Equal(t, model.AllocationOpen, stored.Status)
	assert.True(t, stored.PendingStitches.Equal(dec("1000")))
	assert.Nil(t, stored.CompletedAt)
}

func TestDeleteShiftNotFound(t *testing.T) {
	f := newProductionFixture()
	err := f.svc.DeleteShift(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLogDailyReconcilesAllocation(t *testing.T) {
	f := newProductionFixture()
	a := seedAllocation(f.allocRepo, "1000", 5)

	f.ledger.set(a.WorkOrderID, a.MachineID, ledger.Totals{
		Stitches: dec("1200"), FirstDate: day("2026-01-10"), LastDate: day("2026-01-12"),
	})
	resp, err := f.svc.LogDaily(context.Background(), dto.DailyProductionRequest{
		WorkOrderID:    a.WorkOrderID.String(),
		MachineID:      a.MachineID.String(),
		Stitches:       dec("1200"),
		ProductionDate: "2026-01-12",
		Note:           "double shift",
	})
	require.NoError(t, err)
	assert.Equal(t, model.AllocationOverproduced, resp.AllocationStatus)
	assert.True(t, resp.PendingStitches.Equal(dec("-200")))
}
