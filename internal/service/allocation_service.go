package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stitcherp/internal/dto"
	"stitcherp/internal/model"
	"stitcherp/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// allocationTolerance is the accepted drift between the summed machine
// assignments and the work order's planned total.
var allocationTolerance = decimal.NewFromFloat(0.01)

// AllocationCheck is the result of validating assignments against the plan.
type AllocationCheck struct {
	Valid         bool
	AssignedTotal decimal.Decimal
	ExpectedTotal decimal.Decimal
}

// ValidateAllocation compares the summed assigned stitches against the work
// order's planned total (stitchPerUnit * max(repeats, 1)) within tolerance.
// Pure function; callers decide what to do with a mismatch. The save flow
// deliberately does NOT block on it: downstream workflows rely on being able
// to save partially-allocated orders.
func ValidateAllocation(order *model.WorkOrder, assigned []decimal.Decimal) AllocationCheck {
	total := decimal.Zero
	for _, a := range assigned {
		total = total.Add(a)
	}
	expected := order.PlannedStitches()
	diff := total.Sub(expected).Abs()
	return AllocationCheck{
		Valid:         diff.LessThanOrEqual(allocationTolerance),
		AssignedTotal: total,
		ExpectedTotal: expected,
	}
}

// ProgressCache invalidates cached progress reads for a pair. Implemented by
// the progress service; nil-safe at every call site.
type ProgressCache interface {
	Invalidate(ctx context.Context, workOrderID, machineID uuid.UUID)
}

type AllocationService interface {
	// Replace swaps the work order's machine assignment set for the given one,
	// initializing pending = assigned and then reconciling every pair so that
	// pre-existing production is reflected immediately.
	Replace(ctx context.Context, workOrderID uuid.UUID, req dto.SaveAllocationsRequest) (*dto.AllocationSetResponse, error)
	ListByWorkOrder(ctx context.Context, workOrderID uuid.UUID) ([]dto.AllocationResponse, error)
	// Delete removes one machine assignment entirely.
	Delete(ctx context.Context, id uuid.UUID) error
}

type allocationService struct {
	repo          repository.AllocationRepository
	workOrderRepo repository.WorkOrderRepository
	machineRepo   repository.MachineRepository
	recon         ReconciliationService
	cache         ProgressCache
}

func NewAllocationService(
	repo repository.AllocationRepository,
	workOrderRepo repository.WorkOrderRepository,
	machineRepo repository.MachineRepository,
	recon ReconciliationService,
	cache ProgressCache,
) AllocationService {
	return &allocationService{
		repo:          repo,
		workOrderRepo: workOrderRepo,
		machineRepo:   machineRepo,
		recon:         recon,
		cache:         cache,
	}
}

func (s *allocationService) Replace(ctx context.Context, workOrderID uuid.UUID, req dto.SaveAllocationsRequest) (*dto.AllocationSetResponse, error) {
	order, err := s.workOrderRepo.FindByID(ctx, workOrderID)
	if err != nil {
		return nil, fmt.Errorf("work order %s not found", workOrderID)
	}

	type resolvedAssignment struct {
		machineID uuid.UUID
		req       dto.MachineAssignmentRequest
	}
	resolved := make([]resolvedAssignment, 0, len(req.Assignments))
	assigned := make([]decimal.Decimal, 0, len(req.Assignments))
	seen := make(map[uuid.UUID]bool, len(req.Assignments))

	for _, a := range req.Assignments {
		mid, err := uuid.Parse(a.MachineID)
		if err != nil {
			return nil, fmt.Errorf("invalid machine_id: %w", err)
		}
		if seen[mid] {
			return nil, fmt.Errorf("machine %s assigned twice", a.MachineID)
		}
		seen[mid] = true
		if _, err := s.machineRepo.FindByID(ctx, mid); err != nil {
			return nil, fmt.Errorf("machine %s not found", a.MachineID)
		}
		resolved = append(resolved, resolvedAssignment{machineID: mid, req: a})
		assigned = append(assigned, a.AssignedStitches)
	}

	// Non-blocking plan check: a mismatch is logged and reported back, but the
	// save goes through.
	check := ValidateAllocation(order, assigned)
	if !check.Valid {
		log.Warn().
			Str("work_order", order.OrderNo).
			Str("assigned_total", check.AssignedTotal.String()).
			Str("expected_total", check.ExpectedTotal.String()).
			Msg("allocation total does not match planned stitches")
	}

	var allocs []model.MachineAllocation
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.DeleteByWorkOrderTx(ctx, tx, workOrderID); err != nil {
			return err
		}
		for _, r := range resolved {
			repeats := r.req.Repeats
			if repeats < 1 {
				repeats = 1
			}
			alloc := model.MachineAllocation{
				WorkOrderID:       workOrderID,
				MachineID:         r.machineID,
				AssignedStitches:  r.req.AssignedStitches,
				PendingStitches:   r.req.AssignedStitches,
				AvgStitchesPerDay: r.req.AvgStitchesPerDay,
				Repeats:           repeats,
				EstimatedDays:     r.req.EstimatedDays,
				Status:            model.AllocationOpen,
			}
			if err := s.repo.CreateTx(ctx, tx, &alloc); err != nil {
				return err
			}
			// Production for this pair may pre-exist a re-allocation; derive
			// state from the ledger right away.
			if _, err := s.recon.RecalculateTx(ctx, tx, workOrderID, r.machineID); err != nil {
				return err
			}
			allocs = append(allocs, alloc)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	if s.cache != nil {
		for _, a := range allocs {
			s.cache.Invalidate(ctx, a.WorkOrderID, a.MachineID)
		}
	}

	current, err := s.repo.ListByWorkOrder(ctx, workOrderID)
	if err != nil {
		return nil, err
	}
	resp := &dto.AllocationSetResponse{
		WorkOrderID: workOrderID.String(),
		Check: dto.AllocationCheckResponse{
			Valid:         check.Valid,
			AssignedTotal: check.AssignedTotal,
			ExpectedTotal: check.ExpectedTotal,
		},
	}
	for i := range current {
		resp.Allocations = append(resp.Allocations, allocationToResponse(&current[i]))
	}
	return resp, nil
}

func (s *allocationService) ListByWorkOrder(ctx context.Context, workOrderID uuid.UUID) ([]dto.AllocationResponse, error) {
	allocs, err := s.repo.ListByWorkOrder(ctx, workOrderID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.AllocationResponse, 0, len(allocs))
	for i := range allocs {
		out = append(out, allocationToResponse(&allocs[i]))
	}
	return out, nil
}

func (s *allocationService) Delete(ctx context.Context, id uuid.UUID) error {
	alloc, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("allocation %s not found", id)
	}
	if err != nil {
		return err
	}
	if err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		return s.repo.DeleteTx(ctx, tx, id)
	}); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, alloc.WorkOrderID, alloc.MachineID)
	}
	return nil
}

func allocationToResponse(a *model.MachineAllocation) dto.AllocationResponse {
	resp := dto.AllocationResponse{
		ID:                a.ID.String(),
		WorkOrderID:       a.WorkOrderID.String(),
		MachineID:         a.MachineID.String(),
		AssignedStitches:  a.AssignedStitches,
		PendingStitches:   a.PendingStitches,
		AvgStitchesPerDay: a.AvgStitchesPerDay,
		Repeats:           a.Repeats,
		EstimatedDays:     a.EstimatedDays,
		Status:            a.Status,
	}
	if a.Machine != nil {
		resp.MachineCode = a.Machine.Code
	}
	if a.CompletedAt != nil {
		s := a.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &s
	}
	return resp
}
