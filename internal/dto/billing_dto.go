package dto

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// BillItemRequest carries the quantity inputs for one billing line. The
// Amount field is accepted for wire compatibility with older clients but is
// always discarded: the server recomputes it through the rate engine.
type BillItemRequest struct {
	DesignNo   string `json:"design_no"`
	Collection string `json:"collection"`
	Component  string `json:"component"`

	RateType      string           `json:"rate_type" validate:"required"`
	Stitches      decimal.Decimal  `json:"stitches" validate:"omitempty,gte=0"`
	Rate          decimal.Decimal  `json:"rate" validate:"required,gt=0"`
	Yards         *decimal.Decimal `json:"yards,omitempty"`
	Repeats       int              `json:"repeats" validate:"omitempty,gte=1"`
	Pieces        int              `json:"pieces" validate:"omitempty,gte=0"`
	DStitch       decimal.Decimal  `json:"d_stitch" validate:"omitempty,gte=0"`
	MachineGazana decimal.Decimal  `json:"machine_gazana" validate:"omitempty,gte=0"`

	Amount decimal.Decimal `json:"amount"` // ignored, see above

	// Optional production linkage: all three or none.
	WorkOrderID    *string `json:"work_order_id,omitempty" validate:"omitempty,uuid"`
	MachineID      *string `json:"machine_id,omitempty" validate:"omitempty,uuid"`
	ProductionDate *string `json:"production_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

type CreateBillRequest struct {
	Mode      string            `json:"mode" validate:"omitempty,oneof=daily yearly"`
	BillDate  string            `json:"bill_date" validate:"required,datetime=2006-01-02"`
	PartyName string            `json:"party_name" validate:"required"`
	Items     []BillItemRequest `json:"items" validate:"omitempty,dive"`
}

type BillItemResponse struct {
	ID             string          `json:"id"`
	DesignNo       string          `json:"design_no,omitempty"`
	Collection     string          `json:"collection,omitempty"`
	Component      string          `json:"component,omitempty"`
	RateType       string          `json:"rate_type"`
	Stitches       decimal.Decimal `json:"stitches"`
	Rate           decimal.Decimal `json:"rate"`
	Amount         decimal.Decimal `json:"amount"`
	FormulaDetails json.RawMessage `json:"formula_details"`
}

type BillResponse struct {
	ID          string             `json:"id"`
	BillNo      string             `json:"bill_no"`
	Mode        string             `json:"mode"`
	BillDate    string             `json:"bill_date"`
	PartyName   string             `json:"party_name"`
	TotalAmount decimal.Decimal    `json:"total_amount"`
	Items       []BillItemResponse `json:"items"`
}
