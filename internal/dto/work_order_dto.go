package dto

import "github.com/shopspring/decimal"

type CreateWorkOrderRequest struct {
	OrderNo       string          `json:"order_no" validate:"required"`
	DesignNo      string          `json:"design_no" validate:"required"`
	Collection    string          `json:"collection"`
	PartyName     string          `json:"party_name" validate:"required"`
	StitchPerUnit decimal.Decimal `json:"stitch_per_unit" validate:"required,gt=0"`
	Repeats       int             `json:"repeats" validate:"omitempty,gte=1"`
	Pieces        int             `json:"pieces" validate:"omitempty,gte=0"`
}

type WorkOrderResponse struct {
	ID            string          `json:"id"`
	OrderNo       string          `json:"order_no"`
	DesignNo      string          `json:"design_no"`
	Collection    string          `json:"collection,omitempty"`
	PartyName     string          `json:"party_name"`
	StitchPerUnit decimal.Decimal `json:"stitch_per_unit"`
	Repeats       int             `json:"repeats"`
	Pieces        int             `json:"pieces"`
	Status        string          `json:"status"`
	PlannedTotal  decimal.Decimal `json:"planned_total"`
}

type CreateMachineRequest struct {
	Code   string          `json:"code" validate:"required"`
	Name   string          `json:"name" validate:"required"`
	Gazana decimal.Decimal `json:"gazana" validate:"omitempty,gte=0"`
}

type MachineResponse struct {
	ID     string          `json:"id"`
	Code   string          `json:"code"`
	Name   string          `json:"name"`
	Gazana decimal.Decimal `json:"gazana"`
	Active bool            `json:"active"`
}
