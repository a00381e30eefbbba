package dto

import "github.com/shopspring/decimal"

// MachineAssignmentRequest is one machine's share of a work order's plan.
type MachineAssignmentRequest struct {
	MachineID         string          `json:"machine_id" validate:"required,uuid"`
	AssignedStitches  decimal.Decimal `json:"assigned_stitches" validate:"required,gt=0"`
	AvgStitchesPerDay decimal.Decimal `json:"avg_stitches_per_day" validate:"omitempty,gte=0"`
	EstimatedDays     int             `json:"estimated_days" validate:"omitempty,gte=0"`
	Repeats           int             `json:"repeats" validate:"omitempty,gte=1"`
}

// SaveAllocationsRequest replaces the full machine assignment set of a work order.
type SaveAllocationsRequest struct {
	Assignments []MachineAssignmentRequest `json:"assignments" validate:"required,min=1,dive"`
}

// AllocationCheckResponse reports the plan-total validation outcome. A
// mismatch is informational; the save proceeds regardless.
type AllocationCheckResponse struct {
	Valid         bool            `json:"valid"`
	AssignedTotal decimal.Decimal `json:"assigned_total"`
	ExpectedTotal decimal.Decimal `json:"expected_total"`
}

type AllocationResponse struct {
	ID                string          `json:"id"`
	WorkOrderID       string          `json:"work_order_id"`
	MachineID         string          `json:"machine_id"`
	MachineCode       string          `json:"machine_code,omitempty"`
	AssignedStitches  decimal.Decimal `json:"assigned_stitches"`
	PendingStitches   decimal.Decimal `json:"pending_stitches"`
	AvgStitchesPerDay decimal.Decimal `json:"avg_stitches_per_day"`
	Repeats           int             `json:"repeats"`
	EstimatedDays     int             `json:"estimated_days"`
	Status            string          `json:"status"`
	CompletedAt       *string         `json:"completed_at,omitempty"`
}

type AllocationSetResponse struct {
	WorkOrderID string                  `json:"work_order_id"`
	Check       AllocationCheckResponse `json:"check"`
	Allocations []AllocationResponse    `json:"allocations"`
}

// AllocationProgressResponse is the derived read model for one allocation.
type AllocationProgressResponse struct {
	WorkOrderID       string          `json:"work_order_id"`
	MachineID         string          `json:"machine_id"`
	AssignedStitches  decimal.Decimal `json:"assigned_stitches"`
	PendingStitches   decimal.Decimal `json:"pending_stitches"`
	CompletedStitches decimal.Decimal `json:"completed_stitches"`
	AvgStitchesPerDay decimal.Decimal `json:"avg_stitches_per_day"`
	EstimatedDays     int             `json:"estimated_days"`
	ActualDaysUsed    int             `json:"actual_days_used"`
	Status            string          `json:"status"`
	OnTimeStatus      string          `json:"on_time_status"`
	CompletedAt       *string         `json:"completed_at,omitempty"`
}
