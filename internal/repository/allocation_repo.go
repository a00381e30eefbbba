package repository

import (
	"context"
	"time"

	"stitcherp/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllocationRepository is the data access contract for machine allocations.
// Services depend on this interface, not on the concrete GORM implementation,
// enabling clean unit testing via stubs.
type AllocationRepository interface {
	CreateTx(ctx context.Context, tx *gorm.DB, a *model.MachineAllocation) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.MachineAllocation, error)
	FindByPair(ctx context.Context, workOrderID, machineID uuid.UUID) (*model.MachineAllocation, error)
	// FindByPairForUpdateTx locks the allocation row (SELECT … FOR UPDATE) so
	// concurrent recalculations of the same pair serialize.
	FindByPairForUpdateTx(ctx context.Context, tx *gorm.DB, workOrderID, machineID uuid.UUID) (*model.MachineAllocation, error)
	ListByWorkOrder(ctx context.Context, workOrderID uuid.UUID) ([]model.MachineAllocation, error)
	// UpdateDerivedTx writes the three derived fields in one atomic update.
	// No other code path may touch pending_stitches, status or completed_at.
	UpdateDerivedTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, pending decimal.Decimal, status string, completedAt *time.Time) error
	DeleteByWorkOrderTx(ctx context.Context, tx *gorm.DB, workOrderID uuid.UUID) error
	DeleteTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) error

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type allocationRepo struct{ db *gorm.DB }

func NewAllocationRepository(db *gorm.DB) AllocationRepository { return &allocationRepo{db: db} }

func (r *allocationRepo) DB() *gorm.DB { return r.db }

func (r *allocationRepo) CreateTx(ctx context.Context, tx *gorm.DB, a *model.MachineAllocation) error {
	return tx.WithContext(ctx).Create(a).Error
}

func (r *allocationRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.MachineAllocation, error) {
	var a model.MachineAllocation
	err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error
	return &a, err
}

func (r *allocationRepo) FindByPair(ctx context.Context, workOrderID, machineID uuid.UUID) (*model.MachineAllocation, error) {
	var a model.MachineAllocation
	err := r.db.WithContext(ctx).
		Where("work_order_id = ? AND machine_id = ?", workOrderID, machineID).
		First(&a).Error
	return &a, err
}

func (r *allocationRepo) FindByPairForUpdateTx(ctx context.Context, tx *gorm.DB, workOrderID, machineID uuid.UUID) (*model.MachineAllocation, error) {
	var a model.MachineAllocation
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("work_order_id = ? AND machine_id = ?", workOrderID, machineID).
		First(&a).Error
	return &a, err
}

func (r *allocationRepo) ListByWorkOrder(ctx context.Context, workOrderID uuid.UUID) ([]model.MachineAllocation, error) {
	var allocs []model.MachineAllocation
	err := r.db.WithContext(ctx).
		Preload("Machine").
		Where("work_order_id = ?", workOrderID).
		Order("created_at ASC").
		Find(&allocs).Error
	return allocs, err
}

func (r *allocationRepo) UpdateDerivedTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, pending decimal.Decimal, status string, completedAt *time.Time) error {
	return tx.WithContext(ctx).
		Model(&model.MachineAllocation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"pending_stitches": pending,
			"status":           status,
			"completed_at":     completedAt,
		}).Error
}

func (r *allocationRepo) DeleteByWorkOrderTx(ctx context.Context, tx *gorm.DB, workOrderID uuid.UUID) error {
	return tx.WithContext(ctx).
		Where("work_order_id = ?", workOrderID).
		Delete(&model.MachineAllocation{}).Error
}

func (r *allocationRepo) DeleteTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return tx.WithContext(ctx).Delete(&model.MachineAllocation{}, "id = ?", id).Error
}
