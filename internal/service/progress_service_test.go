package service

import (
	"context"
	"testing"

	"stitcherp/internal/ledger"
	"stitcherp/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Redis is nil in these tests: reads fall through to the database path, which
// is exactly the logic under test.

func TestProgressComputesDerivedFields(t *testing.T) {
	repo := newStubAllocRepo()
	led := newStubLedger()
	recon := NewReconciliationService(repo, led)
	svc := NewProgressService(repo, led, nil)

	a := seedAllocation(repo, "1000", 5)
	led.set(a.WorkOrderID, a.MachineID, ledger.Totals{
		Stitches:  dec("400"),
		FirstDate: day("2026-01-10"),
		LastDate:  day("2026-01-11"),
	})
	_, err := recon.Recalculate(context.Background(), a.WorkOrderID, a.MachineID)
	require.NoError(t, err)

	resp, err := svc.Get(context.Background(), a.WorkOrderID, a.MachineID)
	require.NoError(t, err)
	assert.True(t, resp.AssignedStitches.Equal(dec("1000")))
	assert.True(t, resp.PendingStitches.Equal(dec("600")))
	assert.True(t, resp.CompletedStitches.Equal(dec("400")))
	assert.Equal(t, 2, resp.ActualDaysUsed)
	assert.Equal(t, model.AllocationOpen, resp.Status)
	assert.Equal(t, OnTime, resp.OnTimeStatus)
	assert.Nil(t, resp.CompletedAt)
}

func TestProgressDelayedNoteWhenOverEstimate(t *testing.T) {
	repo := newStubAllocRepo()
	led := newStubLedger()
	svc := NewProgressService(repo, led, nil)

	a := seedAllocation(repo, "1000", 2)
	led.set(a.WorkOrderID, a.MachineID, ledger.Totals{
		Stitches:  dec("500"),
		FirstDate: day("2026-01-10"),
		LastDate:  day("2026-01-14"),
	})

	resp, err := svc.Get(context.Background(), a.WorkOrderID, a.MachineID)
	require.NoError(t, err)
	assert.Equal(t, 5, resp.ActualDaysUsed)
	assert.Equal(t, DelayedNote, resp.OnTimeStatus)
}

func TestProgressUnknownPair(t *testing.T) {
	svc := NewProgressService(newStubAllocRepo(), newStubLedger(), nil)

	_, err := svc.Get(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestProgressInvalidateWithoutRedisIsSafe(t *testing.T) {
	svc := NewProgressService(newStubAllocRepo(), newStubLedger(), nil)
	svc.Invalidate(context.Background(), uuid.New(), uuid.New())
}
