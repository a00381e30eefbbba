package repository

import (
	"context"

	"stitcherp/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ShiftProductionRepository persists per-shift production entries. Mutations
// take a tx because every event write shares a transaction with the pair's
// reconciliation.
type ShiftProductionRepository interface {
	CreateTx(ctx context.Context, tx *gorm.DB, e *model.ShiftProduction) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ShiftProduction, error)
	UpdateTx(ctx context.Context, tx *gorm.DB, e *model.ShiftProduction) error
	DeleteTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	DB() *gorm.DB
}

type shiftProductionRepo struct{ db *gorm.DB }

func NewShiftProductionRepository(db *gorm.DB) ShiftProductionRepository {
	return &shiftProductionRepo{db: db}
}

func (r *shiftProductionRepo) DB() *gorm.DB { return r.db }

func (r *shiftProductionRepo) CreateTx(ctx context.Context, tx *gorm.DB, e *model.ShiftProduction) error {
	return tx.WithContext(ctx).Create(e).Error
}

func (r *shiftProductionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.ShiftProduction, error) {
	var e model.ShiftProduction
	err := r.db.WithContext(ctx).First(&e, "id = ?", id).Error
	return &e, err
}

func (r *shiftProductionRepo) UpdateTx(ctx context.Context, tx *gorm.DB, e *model.ShiftProduction) error {
	return tx.WithContext(ctx).Save(e).Error
}

func (r *shiftProductionRepo) DeleteTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return tx.WithContext(ctx).Delete(&model.ShiftProduction{}, "id = ?", id).Error
}

// DailyProductionRepository persists daily aggregate entries.
type DailyProductionRepository interface {
	CreateTx(ctx context.Context, tx *gorm.DB, e *model.DailyProduction) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.DailyProduction, error)
	UpdateTx(ctx context.Context, tx *gorm.DB, e *model.DailyProduction) error
	DeleteTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	DB() *gorm.DB
}

type dailyProductionRepo struct{ db *gorm.DB }

func NewDailyProductionRepository(db *gorm.DB) DailyProductionRepository {
	return &dailyProductionRepo{db: db}
}

func (r *dailyProductionRepo) DB() *gorm.DB { return r.db }

func (r *dailyProductionRepo) CreateTx(ctx context.Context, tx *gorm.DB, e *model.DailyProduction) error {
	return tx.WithContext(ctx).Create(e).Error
}

func (r *dailyProductionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.DailyProduction, error) {
	var e model.DailyProduction
	err := r.db.WithContext(ctx).First(&e, "id = ?", id).Error
	return &e, err
}

func (r *dailyProductionRepo) UpdateTx(ctx context.Context, tx *gorm.DB, e *model.DailyProduction) error {
	return tx.WithContext(ctx).Save(e).Error
}

func (r *dailyProductionRepo) DeleteTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return tx.WithContext(ctx).Delete(&model.DailyProduction{}, "id = ?", id).Error
}
