package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Machine is an embroidery machine on the factory floor.
// Gazana is the working width of the frame, consumed by yard-based billing.
type Machine struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Code      string          `gorm:"uniqueIndex;not null"`
	Name      string          `gorm:"not null"`
	Gazana    decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	Active    bool            `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
