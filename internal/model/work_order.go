package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WorkOrder is a contract line item: a design to be embroidered for a party,
// with a planned quantity of StitchPerUnit * max(Repeats, 1) stitches.
type WorkOrder struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrderNo       string          `gorm:"uniqueIndex;not null"`
	DesignNo      string          `gorm:"index;not null"`
	Collection    string
	PartyName     string          `gorm:"not null"`
	StitchPerUnit decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Repeats       int             `gorm:"not null;default:1"`
	Pieces        int             `gorm:"not null;default:0"`
	Status        string          `gorm:"type:varchar(20);not null;default:'active'"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PlannedStitches is the authoritative planned total the machine allocations
// must add up to: StitchPerUnit * max(Repeats, 1).
func (w *WorkOrder) PlannedStitches() decimal.Decimal {
	repeats := w.Repeats
	if repeats < 1 {
		repeats = 1
	}
	return w.StitchPerUnit.Mul(decimal.NewFromInt(int64(repeats)))
}
