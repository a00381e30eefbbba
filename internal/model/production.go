package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShiftProduction is one per-shift production entry logged from the floor.
// It is one of three independent sources the production ledger sums over.
type ShiftProduction struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	WorkOrderID    uuid.UUID       `gorm:"type:uuid;not null;index:idx_shift_pair"`
	MachineID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_shift_pair"`
	Shift          string          `gorm:"type:varchar(10);not null"` // "day" | "night"
	Stitches       decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	ProductionDate time.Time       `gorm:"not null;index"`
	Operator       string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName overrides GORM's default pluralization.
func (ShiftProduction) TableName() string { return "shift_production" }

// DailyProduction is a whole-day aggregate entry, logged by supervisors who
// record one figure per machine per day instead of per-shift detail.
type DailyProduction struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	WorkOrderID    uuid.UUID       `gorm:"type:uuid;not null;index:idx_daily_pair"`
	MachineID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_daily_pair"`
	Stitches       decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	ProductionDate time.Time       `gorm:"not null;index"`
	Note           string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName overrides GORM's default pluralization.
func (DailyProduction) TableName() string { return "daily_production" }
