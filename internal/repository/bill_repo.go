package repository

import (
	"context"

	"stitcherp/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BillRepository is the data access contract for bills and their line items.
type BillRepository interface {
	CreateTx(ctx context.Context, tx *gorm.DB, b *model.Bill) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Bill, error)
	// LastBillNoWithPrefixTx returns the highest persisted bill number sharing
	// the given scope prefix, or "" when none exists yet.
	LastBillNoWithPrefixTx(ctx context.Context, tx *gorm.DB, prefix string) (string, error)
	UpdateTotalTx(ctx context.Context, tx *gorm.DB, billID uuid.UUID, total decimal.Decimal) error
	DeleteTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) error

	CreateItemTx(ctx context.Context, tx *gorm.DB, item *model.BillItem) error
	FindItemByID(ctx context.Context, id uuid.UUID) (*model.BillItem, error)
	UpdateItemTx(ctx context.Context, tx *gorm.DB, item *model.BillItem) error
	DeleteItemTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	ListItemsTx(ctx context.Context, tx *gorm.DB, billID uuid.UUID) ([]model.BillItem, error)
	// SumItemAmountsTx is the full-sum total: never derived from a cached
	// value, always recomputed from the current item rows.
	SumItemAmountsTx(ctx context.Context, tx *gorm.DB, billID uuid.UUID) (decimal.Decimal, error)

	DB() *gorm.DB
}

type billRepo struct{ db *gorm.DB }

func NewBillRepository(db *gorm.DB) BillRepository { return &billRepo{db: db} }

func (r *billRepo) DB() *gorm.DB { return r.db }

func (r *billRepo) CreateTx(ctx context.Context, tx *gorm.DB, b *model.Bill) error {
	return tx.WithContext(ctx).Create(b).Error
}

func (r *billRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Bill, error) {
	var b model.Bill
	err := r.db.WithContext(ctx).Preload("Items").First(&b, "id = ?", id).Error
	return &b, err
}

func (r *billRepo) LastBillNoWithPrefixTx(ctx context.Context, tx *gorm.DB, prefix string) (string, error) {
	var billNo string
	err := tx.WithContext(ctx).
		Model(&model.Bill{}).
		Select("bill_no").
		Where("bill_no LIKE ?", prefix+"%").
		Order("bill_no DESC").
		Limit(1).
		Scan(&billNo).Error
	return billNo, err
}

func (r *billRepo) UpdateTotalTx(ctx context.Context, tx *gorm.DB, billID uuid.UUID, total decimal.Decimal) error {
	return tx.WithContext(ctx).
		Model(&model.Bill{}).
		Where("id = ?", billID).
		Update("total_amount", total).Error
}

func (r *billRepo) DeleteTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	// Items first. Cascade is also declared at the schema level, but the
	// explicit delete keeps behavior identical on stores without FK support.
	if err := tx.WithContext(ctx).Delete(&model.BillItem{}, "bill_id = ?", id).Error; err != nil {
		return err
	}
	return tx.WithContext(ctx).Delete(&model.Bill{}, "id = ?", id).Error
}

func (r *billRepo) CreateItemTx(ctx context.Context, tx *gorm.DB, item *model.BillItem) error {
	return tx.WithContext(ctx).Create(item).Error
}

func (r *billRepo) FindItemByID(ctx context.Context, id uuid.UUID) (*model.BillItem, error) {
	var item model.BillItem
	err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error
	return &item, err
}

func (r *billRepo) UpdateItemTx(ctx context.Context, tx *gorm.DB, item *model.BillItem) error {
	return tx.WithContext(ctx).Save(item).Error
}

func (r *billRepo) DeleteItemTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return tx.WithContext(ctx).Delete(&model.BillItem{}, "id = ?", id).Error
}

func (r *billRepo) ListItemsTx(ctx context.Context, tx *gorm.DB, billID uuid.UUID) ([]model.BillItem, error) {
	var items []model.BillItem
	err := tx.WithContext(ctx).
		Where("bill_id = ?", billID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

func (r *billRepo) SumItemAmountsTx(ctx context.Context, tx *gorm.DB, billID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := tx.WithContext(ctx).
		Model(&model.BillItem{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("bill_id = ?", billID).
		Scan(&total).Error
	return total, err
}
