package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stitcherp/internal/dto"
	"stitcherp/internal/model"
	"stitcherp/internal/repository"
	"stitcherp/internal/worker"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const productionDateLayout = "2006-01-02"

// ProductionService handles every mutation of production events. Each write
// and the reconciliation it triggers are two phases of one transaction, so a
// reader never observes an event committed without its derived allocation
// state.
type ProductionService interface {
	LogShift(ctx context.Context, req dto.ShiftProductionRequest) (*dto.ProductionEntryResponse, error)
	UpdateShift(ctx context.Context, id uuid.UUID, req dto.ShiftProductionRequest) (*dto.ProductionEntryResponse, error)
	DeleteShift(ctx context.Context, id uuid.UUID) error

	LogDaily(ctx context.Context, req dto.DailyProductionRequest) (*dto.ProductionEntryResponse, error)
	UpdateDaily(ctx context.Context, id uuid.UUID, req dto.DailyProductionRequest) (*dto.ProductionEntryResponse, error)
	DeleteDaily(ctx context.Context, id uuid.UUID) error
}

type productionService struct {
	shiftRepo  repository.ShiftProductionRepository
	dailyRepo  repository.DailyProductionRepository
	recon      ReconciliationService
	cache      ProgressCache
	dispatcher *worker.Dispatcher
}

func NewProductionService(
	shiftRepo repository.ShiftProductionRepository,
	dailyRepo repository.DailyProductionRepository,
	recon ReconciliationService,
	cache ProgressCache,
	dispatcher *worker.Dispatcher,
) ProductionService {
	return &productionService{
		shiftRepo:  shiftRepo,
		dailyRepo:  dailyRepo,
		recon:      recon,
		cache:      cache,
		dispatcher: dispatcher,
	}
}

// parsePair resolves the wire pair key. Date format is validated at binding;
// the parse here guards service-level callers.
func parsePair(workOrderID, machineID, date string) (uuid.UUID, uuid.UUID, time.Time, error) {
	wo, err := uuid.Parse(workOrderID)
	if err != nil {
		return uuid.Nil, uuid.Nil, time.Time{}, fmt.Errorf("invalid work_order_id: %w", err)
	}
	m, err := uuid.Parse(machineID)
	if err != nil {
		return uuid.Nil, uuid.Nil, time.Time{}, fmt.Errorf("invalid machine_id: %w", err)
	}
	d, err := time.Parse(productionDateLayout, date)
	if err != nil {
		return uuid.Nil, uuid.Nil, time.Time{}, fmt.Errorf("invalid production_date: %w", err)
	}
	return wo, m, d, nil
}

// afterReconcile runs the post-commit side effects: progress cache
// invalidation and, when the status just moved into a trouble state, a
// best-effort alert job.
func (s *productionService) afterReconcile(ctx context.Context, workOrderID, machineID uuid.UUID, outcome *ReconcileOutcome) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, workOrderID, machineID)
	}
	if s.dispatcher == nil || outcome == nil || !outcome.StatusChanged() {
		return
	}
	if outcome.Status == model.AllocationDelayed || outcome.Status == model.AllocationOverproduced {
		_ = s.dispatcher.EnqueueStatusAlert(ctx, worker.StatusAlertPayload{
			WorkOrderID: workOrderID.String(),
			MachineID:   machineID.String(),
			Status:      outcome.Status,
			Pending:     outcome.Pending.String(),
		})
	}
}

// ── Shift entries ────────────────────────────────────────────────────────────

func (s *productionService) LogShift(ctx context.Context, req dto.ShiftProductionRequest) (*dto.ProductionEntryResponse, error) {
	wo, m, date, err := parsePair(req.WorkOrderID, req.MachineID, req.ProductionDate)
	if err != nil {
		return nil, err
	}
	if !req.Stitches.IsPositive() {
		return nil, errors.New("stitches must be positive")
	}

	entry := model.ShiftProduction{
		WorkOrderID:    wo,
		MachineID:      m,
		Shift:          req.Shift,
		Stitches:       req.Stitches,
		ProductionDate: date,
		Operator:       req.Operator,
	}
	var outcome *ReconcileOutcome
	txErr := runTx(ctx, s.shiftRepo.DB(), func(tx *gorm.DB) error {
		if err := s.shiftRepo.CreateTx(ctx, tx, &entry); err != nil {
			return err
		}
		outcome, err = s.recon.RecalculateTx(ctx, tx, wo, m)
		return err
	})
	if txErr != nil {
		return nil, txErr
	}
	s.afterReconcile(ctx, wo, m, outcome)
	return shiftToResponse(&entry, outcome), nil
}

func (s *productionService) UpdateShift(ctx context.Context, id uuid.UUID, req dto.ShiftProductionRequest) (*dto.ProductionEntryResponse, error) {
	entry, err := s.shiftRepo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("shift entry %s not found", id)
	}
	if err != nil {
		return nil, err
	}

	wo, m, date, err := parsePair(req.WorkOrderID, req.MachineID, req.ProductionDate)
	if err != nil {
		return nil, err
	}
	if !req.Stitches.IsPositive() {
		return nil, errors.New("stitches must be positive")
	}

	prevWO, prevM := entry.WorkOrderID, entry.MachineID
	entry.WorkOrderID = wo
	entry.MachineID = m
	entry.Shift = req.Shift
	entry.Stitches = req.Stitches
	entry.ProductionDate = date
	entry.Operator = req.Operator

	var outcome, prevOutcome *ReconcileOutcome
	txErr := runTx(ctx, s.shiftRepo.DB(), func(tx *gorm.DB) error {
		if err := s.shiftRepo.UpdateTx(ctx, tx, entry); err != nil {
			return err
		}
		if outcome, err = s.recon.RecalculateTx(ctx, tx, wo, m); err != nil {
			return err
		}
		// An edit that moved the entry to another pair leaves the old pair's
		// totals changed too.
		if prevWO != wo || prevM != m {
			if prevOutcome, err = s.recon.RecalculateTx(ctx, tx, prevWO, prevM); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	s.afterReconcile(ctx, wo, m, outcome)
	if prevOutcome != nil {
		s.afterReconcile(ctx, prevWO, prevM, prevOutcome)
	}
	return shiftToResponse(entry, outcome), nil
}

func (s *productionService) DeleteShift(ctx context.Context, id uuid.UUID) error {
	entry, err := s.shiftRepo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("shift entry %s not found", id)
	}
	if err != nil {
		return err
	}

	var outcome *ReconcileOutcome
	txErr := runTx(ctx, s.shiftRepo.DB(), func(tx *gorm.DB) error {
		if err := s.shiftRepo.DeleteTx(ctx, tx, id); err != nil {
			return err
		}
		outcome, err = s.recon.RecalculateTx(ctx, tx, entry.WorkOrderID, entry.MachineID)
		return err
	})
	if txErr != nil {
		return txErr
	}
	s.afterReconcile(ctx, entry.WorkOrderID, entry.MachineID, outcome)
	return nil
}

// ── Daily entries ────────────────────────────────────────────────────────────

func (s *productionService) LogDaily(ctx context.Context, req dto.DailyProductionRequest) (*dto.ProductionEntryResponse, error) {
	wo, m, date, err := parsePair(req.WorkOrderID, req.MachineID, req.ProductionDate)
	if err != nil {
		return nil, err
	}
	if !req.Stitches.IsPositive() {
		return nil, errors.New("stitches must be positive")
	}

	entry := model.DailyProduction{
		WorkOrderID:    wo,
		MachineID:      m,
		Stitches:       req.Stitches,
		ProductionDate: date,
		Note:           req.Note,
	}
	var outcome *ReconcileOutcome
	txErr := runTx(ctx, s.dailyRepo.DB(), func(tx *gorm.DB) error {
		if err := s.dailyRepo.CreateTx(ctx, tx, &entry); err != nil {
			return err
		}
		outcome, err = s.recon.RecalculateTx(ctx, tx, wo, m)
		return err
	})
	if txErr != nil {
		return nil, txErr
	}
	s.afterReconcile(ctx, wo, m, outcome)
	return dailyToResponse(&entry, outcome), nil
}

func (s *productionService) UpdateDaily(ctx context.Context, id uuid.UUID, req dto.DailyProductionRequest) (*dto.ProductionEntryResponse, error) {
	entry, err := s.dailyRepo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("daily entry %s not found", id)
	}
	if err != nil {
		return nil, err
	}

	wo, m, date, err := parsePair(req.WorkOrderID, req.MachineID, req.ProductionDate)
	if err != nil {
		return nil, err
	}
	if !req.Stitches.IsPositive() {
		return nil, errors.New("stitches must be positive")
	}

	prevWO, prevM := entry.WorkOrderID, entry.MachineID
	entry.WorkOrderID = wo
	entry.MachineID = m
	entry.Stitches = req.Stitches
	entry.ProductionDate = date
	entry.Note = req.Note

	var outcome, prevOutcome *ReconcileOutcome
	txErr := runTx(ctx, s.dailyRepo.DB(), func(tx *gorm.DB) error {
		if err := s.dailyRepo.UpdateTx(ctx, tx, entry); err != nil {
			return err
		}
		if outcome, err = s.recon.RecalculateTx(ctx, tx, wo, m); err != nil {
			return err
		}
		if prevWO != wo || prevM != m {
			if prevOutcome, err = s.recon.RecalculateTx(ctx, tx, prevWO, prevM); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	s.afterReconcile(ctx, wo, m, outcome)
	if prevOutcome != nil {
		s.afterReconcile(ctx, prevWO, prevM, prevOutcome)
	}
	return dailyToResponse(entry, outcome), nil
}

func (s *productionService) DeleteDaily(ctx context.Context, id uuid.UUID) error {
	entry, err := s.dailyRepo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("daily entry %s not found", id)
	}
	if err != nil {
		return err
	}

	var outcome *ReconcileOutcome
	txErr := runTx(ctx, s.dailyRepo.DB(), func(tx *gorm.DB) error {
		if err := s.dailyRepo.DeleteTx(ctx, tx, id); err != nil {
			return err
		}
		outcome, err = s.recon.RecalculateTx(ctx, tx, entry.WorkOrderID, entry.MachineID)
		return err
	})
	if txErr != nil {
		return txErr
	}
	s.afterReconcile(ctx, entry.WorkOrderID, entry.MachineID, outcome)
	return nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

func shiftToResponse(e *model.ShiftProduction, outcome *ReconcileOutcome) *dto.ProductionEntryResponse {
	resp := &dto.ProductionEntryResponse{
		ID:             e.ID.String(),
		WorkOrderID:    e.WorkOrderID.String(),
		MachineID:      e.MachineID.String(),
		Shift:          e.Shift,
		Stitches:       e.Stitches,
		ProductionDate: e.ProductionDate.Format(productionDateLayout),
		Operator:       e.Operator,
	}
	applyOutcome(resp, outcome)
	return resp
}

func dailyToResponse(e *model.DailyProduction, outcome *ReconcileOutcome) *dto.ProductionEntryResponse {
	resp := &dto.ProductionEntryResponse{
		ID:             e.ID.String(),
		WorkOrderID:    e.WorkOrderID.String(),
		MachineID:      e.MachineID.String(),
		Stitches:       e.Stitches,
		ProductionDate: e.ProductionDate.Format(productionDateLayout),
		Note:           e.Note,
	}
	applyOutcome(resp, outcome)
	return resp
}

func applyOutcome(resp *dto.ProductionEntryResponse, outcome *ReconcileOutcome) {
	if outcome == nil || !outcome.Found {
		return
	}
	resp.AllocationStatus = outcome.Status
	resp.PendingStitches = outcome.Pending
}
