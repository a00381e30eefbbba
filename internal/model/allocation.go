package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Allocation lifecycle statuses, derived by reconciliation and never set by hand.
const (
	AllocationOpen         = "open"
	AllocationCompleted    = "completed"
	AllocationDelayed      = "delayed"
	AllocationOverproduced = "overproduced"
)

// MachineAllocation assigns a portion of a work order's planned stitches to one
// machine. PendingStitches, Status and CompletedAt are denormalized values
// recomputed in full from the production ledger on every event mutation; they
// must never be incremented or patched directly.
//
// Invariant after every reconciliation:
//
//	PendingStitches == AssignedStitches − sum(produced across all sources)
//
// PendingStitches may go negative: overproduction is a valid state and is
// never clamped.
type MachineAllocation struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	WorkOrderID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_alloc_pair"`
	MachineID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_alloc_pair"`
	AssignedStitches  decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	PendingStitches   decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	AvgStitchesPerDay decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	Repeats           int             `gorm:"not null;default:1"`
	EstimatedDays     int             `gorm:"not null;default:0"`
	Status            string          `gorm:"type:varchar(20);not null;default:'open';index"`
	CompletedAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time

	WorkOrder *WorkOrder `gorm:"foreignKey:WorkOrderID"`
	Machine   *Machine   `gorm:"foreignKey:MachineID"`
}

// TableName overrides GORM's default pluralization.
func (MachineAllocation) TableName() string { return "machine_allocations" }
