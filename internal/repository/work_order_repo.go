package repository

import (
	"context"

	"stitcherp/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WorkOrderRepository interface {
	Create(ctx context.Context, w *model.WorkOrder) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.WorkOrder, error)
	List(ctx context.Context) ([]model.WorkOrder, error)
	DB() *gorm.DB
}

type workOrderRepo struct{ db *gorm.DB }

func NewWorkOrderRepository(db *gorm.DB) WorkOrderRepository { return &workOrderRepo{db: db} }

func (r *workOrderRepo) DB() *gorm.DB { return r.db }

func (r *workOrderRepo) Create(ctx context.Context, w *model.WorkOrder) error {
	return r.db.WithContext(ctx).Create(w).Error
}

func (r *workOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.WorkOrder, error) {
	var w model.WorkOrder
	err := r.db.WithContext(ctx).First(&w, "id = ?", id).Error
	return &w, err
}

func (r *workOrderRepo) List(ctx context.Context) ([]model.WorkOrder, error) {
	var orders []model.WorkOrder
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&orders).Error
	return orders, err
}

type MachineRepository interface {
	Create(ctx context.Context, m *model.Machine) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Machine, error)
	List(ctx context.Context) ([]model.Machine, error)
}

type machineRepo struct{ db *gorm.DB }

func NewMachineRepository(db *gorm.DB) MachineRepository { return &machineRepo{db: db} }

func (r *machineRepo) Create(ctx context.Context, m *model.Machine) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *machineRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Machine, error) {
	var m model.Machine
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	return &m, err
}

func (r *machineRepo) List(ctx context.Context) ([]model.Machine, error) {
	var machines []model.Machine
	err := r.db.WithContext(ctx).Where("active = ?", true).Order("code ASC").Find(&machines).Error
	return machines, err
}
