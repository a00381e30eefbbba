package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bill numbering modes: daily bills restart the sequence each day, yearly
// bills each calendar year.
const (
	BillModeDaily  = "daily"
	BillModeYearly = "yearly"
)

// Bill groups billing line items under one generated bill number.
// TotalAmount is always recomputed as the full sum of item amounts after any
// item mutation, never maintained incrementally.
type Bill struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BillNo      string          `gorm:"uniqueIndex;not null"`
	Mode        string          `gorm:"type:varchar(10);not null;default:'daily'"`
	BillDate    time.Time       `gorm:"not null;index"`
	PartyName   string          `gorm:"not null"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Items []BillItem `gorm:"foreignKey:BillID;constraint:OnDelete:CASCADE"`
}

// BillItem is one monetary line on a bill. Amount is always computed
// server-side by the rate formula engine; FormulaDetails is the write-once
// JSON snapshot of exactly which formula and inputs produced that amount.
// An edit produces a fresh snapshot; history already exported to prior
// readers is never rewritten in place.
//
// When a daily-billing item carries a (WorkOrderID, MachineID, ProductionDate)
// linkage, its stitches also count as production: the item row doubles as the
// third production-ledger source.
type BillItem struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BillID uuid.UUID `gorm:"type:uuid;not null;index"`

	DesignNo   string
	Collection string
	Component  string

	RateType      string           `gorm:"type:varchar(20);not null"`
	Stitches      decimal.Decimal  `gorm:"type:decimal(14,2);not null;default:0"`
	Rate          decimal.Decimal  `gorm:"type:decimal(14,4);not null"`
	Yards         *decimal.Decimal `gorm:"type:decimal(14,4)"`
	Repeats       int              `gorm:"not null;default:1"`
	Pieces        int              `gorm:"not null;default:0"`
	DStitch       decimal.Decimal  `gorm:"type:decimal(14,2);not null;default:0"`
	MachineGazana decimal.Decimal  `gorm:"type:decimal(10,2);not null;default:0"`

	Amount         decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	FormulaDetails []byte          `gorm:"type:jsonb;not null"`

	// Production linkage, nil for pure billing lines.
	WorkOrderID    *uuid.UUID `gorm:"type:uuid;index:idx_bill_item_pair"`
	MachineID      *uuid.UUID `gorm:"type:uuid;index:idx_bill_item_pair"`
	ProductionDate *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Linked reports whether this item contributes to the production ledger.
func (i *BillItem) Linked() bool {
	return i.WorkOrderID != nil && i.MachineID != nil && i.ProductionDate != nil
}
