package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"stitcherp/internal/dto"
	"stitcherp/internal/model"
	"stitcherp/internal/rate"
	"stitcherp/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const billNoAttempts = 3

var ErrBillNumberConflict = errors.New("billing: could not allocate a unique bill number")

// BillingService owns bills and their line items. Item amounts are always
// recomputed through the rate engine (any client-supplied amount is
// discarded) and the bill total is always the full sum of current item
// amounts, recomputed inside the same transaction as the item mutation.
type BillingService interface {
	CreateBill(ctx context.Context, req dto.CreateBillRequest) (*dto.BillResponse, error)
	GetBill(ctx context.Context, id uuid.UUID) (*dto.BillResponse, error)
	DeleteBill(ctx context.Context, id uuid.UUID) error

	AddItem(ctx context.Context, billID uuid.UUID, req dto.BillItemRequest) (*dto.BillItemResponse, error)
	UpdateItem(ctx context.Context, billID, itemID uuid.UUID, req dto.BillItemRequest) (*dto.BillItemResponse, error)
	DeleteItem(ctx context.Context, billID, itemID uuid.UUID) error
}

type billingService struct {
	repo        repository.BillRepository
	recon       ReconciliationService
	cache       ProgressCache
	defaultMode string
}

func NewBillingService(repo repository.BillRepository, recon ReconciliationService, cache ProgressCache, defaultMode string) BillingService {
	if defaultMode == "" {
		defaultMode = model.BillModeDaily
	}
	return &billingService{repo: repo, recon: recon, cache: cache, defaultMode: defaultMode}
}

// ── Bill lifecycle ───────────────────────────────────────────────────────────

func (s *billingService) CreateBill(ctx context.Context, req dto.CreateBillRequest) (*dto.BillResponse, error) {
	mode := req.Mode
	if mode == "" {
		mode = s.defaultMode
	}
	billDate, err := time.Parse(productionDateLayout, req.BillDate)
	if err != nil {
		return nil, fmt.Errorf("invalid bill_date: %w", err)
	}

	items := make([]model.BillItem, 0, len(req.Items))
	for i, itemReq := range req.Items {
		item, err := buildItem(itemReq)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		items = append(items, *item)
	}

	var bill model.Bill
	// The generated number can race another request in the same scope; the
	// unique index is the arbiter and a conflict restarts the transaction
	// with a freshly computed number.
	for attempt := 0; attempt < billNoAttempts; attempt++ {
		bill = model.Bill{
			Mode:      mode,
			BillDate:  billDate,
			PartyName: req.PartyName,
		}
		txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
			billNo, err := s.nextBillNumberTx(ctx, tx, mode, billDate)
			if err != nil {
				return err
			}
			bill.BillNo = billNo
			bill.Items = items
			if err := s.repo.CreateTx(ctx, tx, &bill); err != nil {
				return err
			}
			total, err := s.repo.SumItemAmountsTx(ctx, tx, bill.ID)
			if err != nil {
				return err
			}
			bill.TotalAmount = total
			if err := s.repo.UpdateTotalTx(ctx, tx, bill.ID, total); err != nil {
				return err
			}
			return s.reconcileLinkedTx(ctx, tx, bill.Items)
		})
		if txErr == nil {
			s.invalidateLinked(ctx, bill.Items)
			return billToResponse(&bill), nil
		}
		if !isUniqueViolation(txErr) {
			return nil, txErr
		}
	}
	return nil, ErrBillNumberConflict
}

func (s *billingService) GetBill(ctx context.Context, id uuid.UUID) (*dto.BillResponse, error) {
	bill, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("bill %s not found", id)
	}
	return billToResponse(bill), nil
}

func (s *billingService) DeleteBill(ctx context.Context, id uuid.UUID) error {
	bill, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("bill %s not found", id)
	}
	if err != nil {
		return err
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		// Cascade: items go with the bill, and every pair they fed must be
		// re-derived without them.
		if err := s.repo.DeleteTx(ctx, tx, id); err != nil {
			return err
		}
		return s.reconcileLinkedTx(ctx, tx, bill.Items)
	})
	if txErr != nil {
		return txErr
	}
	s.invalidateLinked(ctx, bill.Items)
	return nil
}

// ── Line items ───────────────────────────────────────────────────────────────

func (s *billingService) AddItem(ctx context.Context, billID uuid.UUID, req dto.BillItemRequest) (*dto.BillItemResponse, error) {
	if _, err := s.repo.FindByID(ctx, billID); err != nil {
		return nil, fmt.Errorf("bill %s not found", billID)
	}
	item, err := buildItem(req)
	if err != nil {
		return nil, err
	}
	item.BillID = billID

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.CreateItemTx(ctx, tx, item); err != nil {
			return err
		}
		if err := s.recomputeTotalTx(ctx, tx, billID); err != nil {
			return err
		}
		return s.reconcileLinkedTx(ctx, tx, []model.BillItem{*item})
	})
	if txErr != nil {
		return nil, txErr
	}
	s.invalidateLinked(ctx, []model.BillItem{*item})
	return itemToResponse(item), nil
}

func (s *billingService) UpdateItem(ctx context.Context, billID, itemID uuid.UUID, req dto.BillItemRequest) (*dto.BillItemResponse, error) {
	existing, err := s.repo.FindItemByID(ctx, itemID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("bill item %s not found", itemID)
	}
	if err != nil {
		return nil, err
	}
	if existing.BillID != billID {
		return nil, fmt.Errorf("bill item %s does not belong to bill %s", itemID, billID)
	}

	// A fresh snapshot is built for the edit; the one already persisted for
	// prior readers is superseded, not rewritten.
	updated, err := buildItem(req)
	if err != nil {
		return nil, err
	}
	prev := *existing
	updated.ID = existing.ID
	updated.BillID = existing.BillID
	updated.CreatedAt = existing.CreatedAt

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.UpdateItemTx(ctx, tx, updated); err != nil {
			return err
		}
		if err := s.recomputeTotalTx(ctx, tx, billID); err != nil {
			return err
		}
		return s.reconcileLinkedTx(ctx, tx, []model.BillItem{prev, *updated})
	})
	if txErr != nil {
		return nil, txErr
	}
	s.invalidateLinked(ctx, []model.BillItem{prev, *updated})
	return itemToResponse(updated), nil
}

func (s *billingService) DeleteItem(ctx context.Context, billID, itemID uuid.UUID) error {
	existing, err := s.repo.FindItemByID(ctx, itemID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("bill item %s not found", itemID)
	}
	if err != nil {
		return err
	}
	if existing.BillID != billID {
		return fmt.Errorf("bill item %s does not belong to bill %s", itemID, billID)
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.DeleteItemTx(ctx, tx, itemID); err != nil {
			return err
		}
		if err := s.recomputeTotalTx(ctx, tx, billID); err != nil {
			return err
		}
		return s.reconcileLinkedTx(ctx, tx, []model.BillItem{*existing})
	})
	if txErr != nil {
		return txErr
	}
	s.invalidateLinked(ctx, []model.BillItem{*existing})
	return nil
}

// ── internals ────────────────────────────────────────────────────────────────

// nextBillNumberTx computes the next sequential number in the bill's scope:
// daily mode restarts per bill date, yearly mode per calendar year.
func (s *billingService) nextBillNumberTx(ctx context.Context, tx *gorm.DB, mode string, billDate time.Time) (string, error) {
	var prefix, format string
	switch mode {
	case model.BillModeYearly:
		prefix = fmt.Sprintf("BILL-%d-", billDate.Year())
		format = "%s%04d"
	default:
		prefix = fmt.Sprintf("BILL-%s-", billDate.Format("20060102"))
		format = "%s%03d"
	}

	last, err := s.repo.LastBillNoWithPrefixTx(ctx, tx, prefix)
	if err != nil {
		return "", err
	}
	seq := 1
	if last != "" {
		var n int
		if _, err := fmt.Sscanf(last[len(prefix):], "%d", &n); err == nil {
			seq = n + 1
		}
	}
	return fmt.Sprintf(format, prefix, seq), nil
}

func (s *billingService) recomputeTotalTx(ctx context.Context, tx *gorm.DB, billID uuid.UUID) error {
	total, err := s.repo.SumItemAmountsTx(ctx, tx, billID)
	if err != nil {
		return err
	}
	return s.repo.UpdateTotalTx(ctx, tx, billID, total)
}

// reconcileLinkedTx re-derives every distinct pair the given items feed.
func (s *billingService) reconcileLinkedTx(ctx context.Context, tx *gorm.DB, items []model.BillItem) error {
	type pair struct{ wo, m uuid.UUID }
	seen := make(map[pair]bool)
	for i := range items {
		item := &items[i]
		if !item.Linked() {
			continue
		}
		p := pair{*item.WorkOrderID, *item.MachineID}
		if seen[p] {
			continue
		}
		seen[p] = true
		if _, err := s.recon.RecalculateTx(ctx, tx, p.wo, p.m); err != nil {
			return err
		}
	}
	return nil
}

func (s *billingService) invalidateLinked(ctx context.Context, items []model.BillItem) {
	if s.cache == nil {
		return
	}
	for i := range items {
		if items[i].Linked() {
			s.cache.Invalidate(ctx, *items[i].WorkOrderID, *items[i].MachineID)
		}
	}
}

// buildItem maps the request onto a model row, pricing it through the rate
// engine. Whatever amount the client sent is ignored.
func buildItem(req dto.BillItemRequest) (*model.BillItem, error) {
	rateType := rate.Type(req.RateType)
	if !rateType.Valid() {
		return nil, fmt.Errorf("%w: %q", rate.ErrUnknownType, req.RateType)
	}

	wo, m, prodDate, err := parseLinkage(req)
	if err != nil {
		return nil, err
	}

	res, err := rate.Calculate(rate.Inputs{
		Stitches:      req.Stitches,
		Rate:          req.Rate,
		Yards:         req.Yards,
		Repeats:       req.Repeats,
		Pieces:        req.Pieces,
		DStitch:       req.DStitch,
		MachineGazana: req.MachineGazana,
	}, rateType)
	if err != nil {
		return nil, err
	}

	details, err := json.Marshal(res.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("marshal formula snapshot: %w", err)
	}

	repeats := req.Repeats
	if repeats < 1 {
		repeats = 1
	}
	return &model.BillItem{
		DesignNo:       req.DesignNo,
		Collection:     req.Collection,
		Component:      req.Component,
		RateType:       string(rateType),
		Stitches:       req.Stitches,
		Rate:           req.Rate,
		Yards:          req.Yards,
		Repeats:        repeats,
		Pieces:         req.Pieces,
		DStitch:        req.DStitch,
		MachineGazana:  req.MachineGazana,
		Amount:         res.Amount,
		FormulaDetails: details,
		WorkOrderID:    wo,
		MachineID:      m,
		ProductionDate: prodDate,
	}, nil
}

// parseLinkage requires the production linkage to be all-or-nothing.
func parseLinkage(req dto.BillItemRequest) (*uuid.UUID, *uuid.UUID, *time.Time, error) {
	set := 0
	for _, present := range []bool{req.WorkOrderID != nil, req.MachineID != nil, req.ProductionDate != nil} {
		if present {
			set++
		}
	}
	if set == 0 {
		return nil, nil, nil, nil
	}
	if set != 3 {
		return nil, nil, nil, errors.New("production linkage requires work_order_id, machine_id and production_date together")
	}
	wo, err := uuid.Parse(*req.WorkOrderID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid work_order_id: %w", err)
	}
	m, err := uuid.Parse(*req.MachineID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid machine_id: %w", err)
	}
	d, err := time.Parse(productionDateLayout, *req.ProductionDate)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid production_date: %w", err)
	}
	return &wo, &m, &d, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func billToResponse(b *model.Bill) *dto.BillResponse {
	resp := &dto.BillResponse{
		ID:          b.ID.String(),
		BillNo:      b.BillNo,
		Mode:        b.Mode,
		BillDate:    b.BillDate.Format(productionDateLayout),
		PartyName:   b.PartyName,
		TotalAmount: b.TotalAmount,
	}
	for i := range b.Items {
		resp.Items = append(resp.Items, *itemToResponse(&b.Items[i]))
	}
	return resp
}

func itemToResponse(item *model.BillItem) *dto.BillItemResponse {
	return &dto.BillItemResponse{
		ID:             item.ID.String(),
		DesignNo:       item.DesignNo,
		Collection:     item.Collection,
		Component:      item.Component,
		RateType:       item.RateType,
		Stitches:       item.Stitches,
		Rate:           item.Rate,
		Amount:         item.Amount,
		FormulaDetails: json.RawMessage(item.FormulaDetails),
	}
}
