package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stitcherp/internal/ledger"
	"stitcherp/internal/model"
	"stitcherp/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductionLedger is the aggregate read the engine depends on; the concrete
// source set behind it is irrelevant here.
type ProductionLedger interface {
	TotalProduced(ctx context.Context, db *gorm.DB, workOrderID, machineID uuid.UUID) (ledger.Totals, error)
}

// ReconcileOutcome reports what a recalculation decided, so callers can react
// (cache invalidation, status alerts) after their transaction commits.
type ReconcileOutcome struct {
	Found          bool
	Pending        decimal.Decimal
	Produced       decimal.Decimal
	ActualDays     int
	Status         string
	PreviousStatus string
	CompletedAt    *time.Time
}

// StatusChanged reports whether the recalculation moved the allocation to a
// different lifecycle status.
func (o *ReconcileOutcome) StatusChanged() bool {
	return o.Found && o.Status != o.PreviousStatus
}

// ReconciliationService recomputes the derived state of one allocation from
// the production ledger. Recomputation is always full, never incremental:
// events may be backdated, edited out of order or deleted, and only a full
// re-read of current totals stays correct in all of those cases.
type ReconciliationService interface {
	// Recalculate runs RecalculateTx in its own transaction.
	Recalculate(ctx context.Context, workOrderID, machineID uuid.UUID) (*ReconcileOutcome, error)
	// RecalculateTx recomputes pending stitches, status and completion date
	// inside the caller's transaction. A missing allocation is a no-op: there
	// is nothing to reconcile. Any load failure propagates, because a silently
	// skipped recalculation would leave stale derived state behind, which is
	// worse than a visible error.
	RecalculateTx(ctx context.Context, tx *gorm.DB, workOrderID, machineID uuid.UUID) (*ReconcileOutcome, error)
}

type reconciliationService struct {
	repo   repository.AllocationRepository
	ledger ProductionLedger
}

func NewReconciliationService(repo repository.AllocationRepository, ledger ProductionLedger) ReconciliationService {
	return &reconciliationService{repo: repo, ledger: ledger}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

func (s *reconciliationService) Recalculate(ctx context.Context, workOrderID, machineID uuid.UUID) (*ReconcileOutcome, error) {
	var outcome *ReconcileOutcome
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var txErr error
		outcome, txErr = s.RecalculateTx(ctx, tx, workOrderID, machineID)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

func (s *reconciliationService) RecalculateTx(ctx context.Context, tx *gorm.DB, workOrderID, machineID uuid.UUID) (*ReconcileOutcome, error) {
	// 1. Lock the allocation row so concurrent recalculations of the same pair
	// serialize here; each one re-reads totals after acquiring the lock, so
	// the last commit always reflects the full event history.
	alloc, err := s.repo.FindByPairForUpdateTx(ctx, tx, workOrderID, machineID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &ReconcileOutcome{Found: false}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reconcile %s/%s: load allocation: %w", workOrderID, machineID, err)
	}

	// 2. Full re-aggregation across all production sources.
	totals, err := s.ledger.TotalProduced(ctx, tx, workOrderID, machineID)
	if err != nil {
		return nil, fmt.Errorf("reconcile %s/%s: %w", workOrderID, machineID, err)
	}

	// 3. Exact remainder. Negative means overproduction and stays negative.
	pending := alloc.AssignedStitches.Sub(totals.Stitches)
	actualDays := ledger.SpanDays(totals.FirstDate, totals.LastDate)

	// 4. Status derivation, in priority order.
	status, completedAt := deriveStatus(pending, totals, actualDays, alloc.EstimatedDays)

	// 5. One atomic write of all three derived fields.
	if err := s.repo.UpdateDerivedTx(ctx, tx, alloc.ID, pending, status, completedAt); err != nil {
		return nil, fmt.Errorf("reconcile %s/%s: persist: %w", workOrderID, machineID, err)
	}

	return &ReconcileOutcome{
		Found:          true,
		Pending:        pending,
		Produced:       totals.Stitches,
		ActualDays:     actualDays,
		Status:         status,
		PreviousStatus: alloc.Status,
		CompletedAt:    completedAt,
	}, nil
}

func deriveStatus(pending decimal.Decimal, totals ledger.Totals, actualDays, estimatedDays int) (string, *time.Time) {
	switch {
	case pending.IsNegative():
		return model.AllocationOverproduced, totals.LastDate
	case pending.IsZero() && totals.Stitches.IsPositive():
		if estimatedDays > 0 && actualDays > estimatedDays {
			return model.AllocationDelayed, totals.LastDate
		}
		return model.AllocationCompleted, totals.LastDate
	default:
		return model.AllocationOpen, nil
	}
}
