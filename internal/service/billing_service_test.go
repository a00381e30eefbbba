package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"stitcherp/internal/dto"
	"stitcherp/internal/model"
	"stitcherp/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ── Stubs ─────────────────────────────────────────────────────────────────────

type stubBillRepo struct {
	mu    sync.Mutex
	bills map[uuid.UUID]*model.Bill
	items map[uuid.UUID]*model.BillItem
}

func newStubBillRepo() *stubBillRepo {
	return &stubBillRepo{
		bills: make(map[uuid.UUID]*model.Bill),
		items: make(map[uuid.UUID]*model.BillItem),
	}
}

func (r *stubBillRepo) DB() *gorm.DB { return nil }

func (r *stubBillRepo) CreateTx(_ context.Context, _ *gorm.DB, b *model.Bill) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	for i := range b.Items {
		if b.Items[i].ID == uuid.Nil {
			b.Items[i].ID = uuid.New()
		}
		b.Items[i].BillID = b.ID
		clone := b.Items[i]
		r.items[clone.ID] = &clone
	}
	clone := *b
	clone.Items = nil
	r.bills[b.ID] = &clone
	return nil
}

func (r *stubBillRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Bill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bills[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *b
	for _, item := range r.items {
		if item.BillID == id {
			clone.Items = append(clone.Items, *item)
		}
	}
	return &clone, nil
}

func (r *stubBillRepo) LastBillNoWithPrefixTx(_ context.Context, _ *gorm.DB, prefix string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	last := ""
	for _, b := range r.bills {
		if strings.HasPrefix(b.BillNo, prefix) && b.BillNo > last {
			last = b.BillNo
		}
	}
	return last, nil
}

func (r *stubBillRepo) UpdateTotalTx(_ context.Context, _ *gorm.DB, billID uuid.UUID, total decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bills[billID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	b.TotalAmount = total
	return nil
}

func (r *stubBillRepo) DeleteTx(_ context.Context, _ *gorm.DB, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for itemID, item := range r.items {
		if item.BillID == id {
			delete(r.items, itemID)
		}
	}
	delete(r.bills, id)
	return nil
}

func (r *stubBillRepo) CreateItemTx(_ context.Context, _ *gorm.DB, item *model.BillItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	clone := *item
	r.items[item.ID] = &clone
	return nil
}

func (r *stubBillRepo) FindItemByID(_ context.Context, id uuid.UUID) (*model.BillItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *item
	return &clone, nil
}

func (r *stubBillRepo) UpdateItemTx(_ context.Context, _ *gorm.DB, item *model.BillItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[item.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	clone := *item
	r.items[item.ID] = &clone
	return nil
}

func (r *stubBillRepo) DeleteItemTx(_ context.Context, _ *gorm.DB, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

func (r *stubBillRepo) ListItemsTx(_ context.Context, _ *gorm.DB, billID uuid.UUID) ([]model.BillItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.BillItem
	for _, item := range r.items {
		if item.BillID == billID {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (r *stubBillRepo) SumItemAmountsTx(_ context.Context, _ *gorm.DB, billID uuid.UUID) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := decimal.Zero
	for _, item := range r.items {
		if item.BillID == billID {
			sum = sum.Add(item.Amount)
		}
	}
	return sum, nil
}

var _ repository.BillRepository = (*stubBillRepo)(nil)

// stubRecon records which pairs were reconciled.
type stubRecon struct {
	mu    sync.Mutex
	pairs []string
}

func (s *stubRecon) Recalculate(ctx context.Context, workOrderID, machineID uuid.UUID) (*ReconcileOutcome, error) {
	return s.RecalculateTx(ctx, nil, workOrderID, machineID)
}

func (s *stubRecon) RecalculateTx(_ context.Context, _ *gorm.DB, workOrderID, machineID uuid.UUID) (*ReconcileOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pairs = append(s.pairs, pairKey(workOrderID, machineID))
	return &ReconcileOutcome{Found: true}, nil
}

var _ ReconciliationService = (*stubRecon)(nil)

// ── Helpers ───────────────────────────────────────────────────────────────────

func newBillingFixture(defaultMode string) (BillingService, *stubBillRepo, *stubRecon) {
	repo := newStubBillRepo()
	recon := &stubRecon{}
	return NewBillingService(repo, recon, nil, defaultMode), repo, recon
}

func hdsItem(stitches, rate string) dto.BillItemRequest {
	return dto.BillItemRequest{
		RateType: "HDS",
		Stitches: dec(stitches),
		Rate:     dec(rate),
	}
}

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestCreateBillIgnoresClientAmount(t *testing.T) {
	svc, _, _ := newBillingFixture("")

	item := hdsItem("1000", "2")
	item.Amount = dec("999999") // must be discarded

	resp, err := svc.CreateBill(context.Background(), dto.CreateBillRequest{
		BillDate:  "2026-01-15",
		PartyName: "Crescent Textiles",
		Items:     []dto.BillItemRequest{item},
	})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	// HDS: 1000 * 2 * 0.1 = 200
	assert.True(t, resp.Items[0].Amount.Equal(dec("200")),
		"got %s", resp.Items[0].Amount)
	assert.True(t, resp.TotalAmount.Equal(dec("200")))
	assert.Contains(t, string(resp.Items[0].FormulaDetails), "HDS")
}

func TestBillNumberDailySequence(t *testing.T) {
	svc, _, _ := newBillingFixture("daily")

	first, err := svc.CreateBill(context.Background(), dto.CreateBillRequest{
		BillDate: "2026-01-15", PartyName: "A",
	})
	require.NoError(t, err)
	second, err := svc.CreateBill(context.Background(), dto.CreateBillRequest{
		BillDate: "2026-01-15", PartyName: "B",
	})
	require.NoError(t, err)
	other, err := svc.CreateBill(context.Background(), dto.CreateBillRequest{
		BillDate: "2026-01-16", PartyName: "C",
	})
	require.NoError(t, err)

	assert.Equal(t, "BILL-20260115-001", first.BillNo)
	assert.Equal(t, "BILL-20260115-002", second.BillNo)
	assert.Equal(t, "BILL-20260116-001", other.BillNo, "daily sequence restarts per date")
}

func TestBillNumberYearlySequence(t *testing.T) {
	svc, _, _ := newBillingFixture("yearly")

	first, err := svc.CreateBill(context.Background(), dto.CreateBillRequest{
		BillDate: "2026-01-15", PartyName: "A",
	})
	require.NoError(t, err)
	second, err := svc.CreateBill(context.Background(), dto.CreateBillRequest{
		BillDate: "2026-06-20", PartyName: "B",
	})
	require.NoError(t, err)

	assert.Equal(t, "BILL-2026-0001", first.BillNo)
	assert.Equal(t, "BILL-2026-0002", second.BillNo, "yearly sequence spans the calendar year")
}

func TestAddItemRecomputesTotal(t *testing.T) {
	svc, _, _ := newBillingFixture("")

	bill, err := svc.CreateBill(context.Background(), dto.CreateBillRequest{
		BillDate: "2026-01-15", PartyName: "A",
		Items: []dto.BillItemRequest{hdsItem("1000", "2")}, // 200
	})
	require.NoError(t, err)

	billID := uuid.MustParse(bill.ID)
	_, err = svc.AddItem(context.Background(), billID, dto.BillItemRequest{
		RateType: "FUSING", Rate: dec("1.5"), // flat: 100 * 1.5 = 150
	})
	require.NoError(t, err)

	got, err := svc.GetBill(context.Background(), billID)
	require.NoError(t, err)
	assert.True(t, got.TotalAmount.Equal(dec("350")), "got %s", got.TotalAmount)
}

func TestDeleteItemRecomputesTotalFromFullSum(t *testing.T) {
	svc, _, _ := newBillingFixture("")

	bill, err := svc.CreateBill(context.Background(), dto.CreateBillRequest{
		BillDate: "2026-01-15", PartyName: "A",
		Items: []dto.BillItemRequest{
			hdsItem("1000", "2"), // 200
			hdsItem("2000", "2"), // 400
			hdsItem("3000", "2"), // 600
		},
	})
	require.NoError(t, err)
	assert.True(t, bill.TotalAmount.Equal(dec("1200")))

	billID := uuid.MustParse(bill.ID)
	itemID := uuid.MustParse(bill.Items[1].ID)
	require.NoError(t, svc.DeleteItem(context.Background(), billID, itemID))

	got, err := svc.GetBill(context.Background(), billID)
	require.NoError(t, err)
	assert.True(t, got.TotalAmount.Equal(dec("800")), "got %s", got.TotalAmount)
	assert.Len(t, got.Items, 2)
}

func TestUpdateItemRebuildsAmountAndSnapshot(t *testing.T) {
	svc, repo, _ := newBillingFixture("")

	bill, err := svc.CreateBill(context.Background(), dto.CreateBillRequest{
		BillDate: "2026-01-15", PartyName: "A",
		Items:    []dto.BillItemRequest{hdsItem("1000", "2")},
	})
	require.NoError(t, err)
	billID := uuid.MustParse(bill.ID)
	itemID := uuid.MustParse(bill.Items[0].ID)

	updated, err := svc.UpdateItem(context.Background(), billID, itemID, hdsItem("5000", "2"))
	require.NoError(t, err)
	// HDS: 5000 * 2 * 0.1 = 1000
	assert.True(t, updated.Amount.Equal(dec("1000")), "got %s", updated.Amount)
	assert.Equal(t, itemID.String(), updated.ID, "item identity survives the edit")
	assert.NotEqual(t, string(bill.Items[0].FormulaDetails), string(updated.FormulaDetails),
		"edit must produce a fresh snapshot")

	stored, err := repo.FindItemByID(context.Background(), itemID)
	require.NoError(t, err)
	assert.Equal(t, billID, stored.BillID)

	got, err := svc.GetBill(context.Background(), billID)
	require.NoError(t, err)
	assert.True(t, got.TotalAmount.Equal(dec("1000")))
}

func TestUnknownRateTypeRejected(t *testing.T) {
	svc, _, _ := newBillingFixture("")

	_, err := svc.CreateBill(context.Background(), dto.CreateBillRequest{
		BillDate: "2026-01-15", PartyName: "A",
		Items: []dto.BillItemRequest{{RateType: "PER_METER", Rate: dec("2"), Stitches: dec("100")}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PER_METER")
}

func TestPartialLinkageRejected(t *testing.T) {
	svc, _, _ := newBillingFixture("")
	wo := uuid.NewString()

	item := hdsItem("1000", "2")
	item.WorkOrderID = &wo // machine and date missing

	_, err := svc.CreateBill(context.Background(), dto.CreateBillRequest{
		BillDate: "2026-01-15", PartyName: "A",
		Items:    []dto.BillItemRequest{item},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "together")
}

func TestLinkedItemTriggersReconciliation(t *testing.T) {
	svc, _, recon := newBillingFixture("")

	wo := uuid.New()
	m := uuid.New()
	woStr, mStr, date := wo.String(), m.String(), "2026-01-15"

	item := hdsItem("1000", "2")
	item.WorkOrderID = &woStr
	item.MachineID = &mStr
	item.ProductionDate = &date

	bill, err := svc.CreateBill(context.Background(), dto.CreateBillRequest{
		BillDate: "2026-01-15", PartyName: "A",
		Items:    []dto.BillItemRequest{item},
	})
	require.NoError(t, err)
	assert.Contains(t, recon.pairs, pairKey(wo, m),
		"a linked item is production and must reconcile its pair")

	// Deleting the bill re-derives the pair without the item.
	before := len(recon.pairs)
	require.NoError(t, svc.DeleteBill(context.Background(), uuid.MustParse(bill.ID)))
	assert.Greater(t, len(recon.pairs), before)
}

func TestCreateBillInvalidDate(t *testing.T) {
	svc, _, _ := newBillingFixture("")
	_, err := svc.CreateBill(context.Background(), dto.CreateBillRequest{
		BillDate: "15-01-2026", PartyName: "A",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bill_date")
}
