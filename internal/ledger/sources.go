package ledger

import (
	"context"
	"time"

	"stitcherp/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// sumRow is the scan target shared by all SQL-backed sources.
type sumRow struct {
	Total decimal.Decimal
	First *time.Time
	Last  *time.Time
}

func (r sumRow) totals() SourceTotals {
	return SourceTotals{Stitches: r.Total, FirstDate: r.First, LastDate: r.Last}
}

const sumSelect = "COALESCE(SUM(stitches), 0) AS total, MIN(production_date) AS first, MAX(production_date) AS last"

// ShiftSource sums per-shift production entries.
type ShiftSource struct{}

func (ShiftSource) Name() string { return "shift_production" }

func (ShiftSource) SumFor(ctx context.Context, db *gorm.DB, workOrderID, machineID uuid.UUID) (SourceTotals, error) {
	var row sumRow
	err := db.WithContext(ctx).
		Model(&model.ShiftProduction{}).
		Select(sumSelect).
		Where("work_order_id = ? AND machine_id = ?", workOrderID, machineID).
		Scan(&row).Error
	if err != nil {
		return SourceTotals{}, err
	}
	return row.totals(), nil
}

// DailySource sums daily aggregate entries.
type DailySource struct{}

func (DailySource) Name() string { return "daily_production" }

func (DailySource) SumFor(ctx context.Context, db *gorm.DB, workOrderID, machineID uuid.UUID) (SourceTotals, error) {
	var row sumRow
	err := db.WithContext(ctx).
		Model(&model.DailyProduction{}).
		Select(sumSelect).
		Where("work_order_id = ? AND machine_id = ?", workOrderID, machineID).
		Scan(&row).Error
	if err != nil {
		return SourceTotals{}, err
	}
	return row.totals(), nil
}

// BillItemSource sums production implied by saved daily-billing line items
// that carry a production linkage. Pure billing lines (no linkage) never
// count, so the same stitches are not billed and double-counted.
type BillItemSource struct{}

func (BillItemSource) Name() string { return "bill_items" }

func (BillItemSource) SumFor(ctx context.Context, db *gorm.DB, workOrderID, machineID uuid.UUID) (SourceTotals, error) {
	var row sumRow
	err := db.WithContext(ctx).
		Model(&model.BillItem{}).
		Select(sumSelect).
		Where("work_order_id = ? AND machine_id = ? AND production_date IS NOT NULL", workOrderID, machineID).
		Scan(&row).Error
	if err != nil {
		return SourceTotals{}, err
	}
	return row.totals(), nil
}

// Default returns the full source set used in production wiring.
func Default() *Ledger {
	return New(ShiftSource{}, DailySource{}, BillItemSource{})
}
