package dto

import "github.com/shopspring/decimal"

// ShiftProductionRequest logs or edits one per-shift production entry.
type ShiftProductionRequest struct {
	WorkOrderID    string          `json:"work_order_id" validate:"required,uuid"`
	MachineID      string          `json:"machine_id" validate:"required,uuid"`
	Shift          string          `json:"shift" validate:"required,oneof=day night"`
	Stitches       decimal.Decimal `json:"stitches" validate:"required,gt=0"`
	ProductionDate string          `json:"production_date" validate:"required,datetime=2006-01-02"`
	Operator       string          `json:"operator"`
}

// DailyProductionRequest logs or edits one daily aggregate entry.
type DailyProductionRequest struct {
	WorkOrderID    string          `json:"work_order_id" validate:"required,uuid"`
	MachineID      string          `json:"machine_id" validate:"required,uuid"`
	Stitches       decimal.Decimal `json:"stitches" validate:"required,gt=0"`
	ProductionDate string          `json:"production_date" validate:"required,datetime=2006-01-02"`
	Note           string          `json:"note"`
}

type ProductionEntryResponse struct {
	ID             string          `json:"id"`
	WorkOrderID    string          `json:"work_order_id"`
	MachineID      string          `json:"machine_id"`
	Shift          string          `json:"shift,omitempty"`
	Stitches       decimal.Decimal `json:"stitches"`
	ProductionDate string          `json:"production_date"`
	Operator       string          `json:"operator,omitempty"`
	Note           string          `json:"note,omitempty"`
	// Allocation state after the reconciliation this entry triggered.
	AllocationStatus string          `json:"allocation_status,omitempty"`
	PendingStitches  decimal.Decimal `json:"pending_stitches"`
}
