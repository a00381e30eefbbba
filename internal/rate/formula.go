// Package rate computes billing amounts from quantity inputs.
//
// Each rate type is its own formula with its own input set; the engine never
// unifies them into a generic expression. Every calculation returns a Snapshot
// recording the formula name, the inputs that were actually used and the
// result, so the amount on a persisted bill line can always be audited even
// after the formula code changes.
package rate

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Type selects which billing formula applies. Closed enum.
type Type string

const (
	HDS       Type = "HDS"
	Sheet     Type = "SHEET"
	Fusing    Type = "FUSING"
	YardBased Type = "YARD_BASED"
)

// Valid reports whether t is one of the known rate types.
func (t Type) Valid() bool {
	switch t {
	case HDS, Sheet, Fusing, YardBased:
		return true
	}
	return false
}

var (
	ErrUnknownType         = errors.New("rate: unknown rate type")
	ErrNonPositiveRate     = errors.New("rate: rate must be positive")
	ErrNonPositiveStitches = errors.New("rate: stitches must be positive")
)

// Formula constants. FUSING is a deliberate flat-rate case: the amount is
// rate * fusingFlatUnits regardless of stitches.
var (
	hdsFactor       = decimal.NewFromFloat(0.1)
	sheetFactor     = decimal.NewFromFloat(0.277)
	fusingFlatUnits = decimal.NewFromInt(100)
	yardRateFactor  = decimal.NewFromFloat(2.77)
	thousand        = decimal.NewFromInt(1000)
	hundred         = decimal.NewFromInt(100)
)

// Inputs are the quantity inputs a formula may consume. Not every formula
// reads every field; the snapshot records only the ones it used.
type Inputs struct {
	Stitches      decimal.Decimal
	Rate          decimal.Decimal
	Yards         *decimal.Decimal
	Repeats       int
	Pieces        int
	DStitch       decimal.Decimal
	MachineGazana decimal.Decimal
}

// Snapshot is the audit record of one calculation. It is serialized to JSON
// and stored write-once alongside the bill item it priced.
type Snapshot struct {
	Formula      string            `json:"formula"`
	Inputs       map[string]string `json:"inputs"`
	Intermediate map[string]string `json:"intermediate,omitempty"`
	Result       string            `json:"result"`
	CalculatedAt time.Time         `json:"calculated_at"`
}

// Result carries the monetary amount, rounded to 2 decimals, and its snapshot.
type Result struct {
	Amount   decimal.Decimal
	Snapshot Snapshot
}

// Calculate applies the formula selected by t to in.
//
// Rounding is deterministic: monetary amounts round to 2 decimal places,
// intermediate per-unit rates to 4.
func Calculate(in Inputs, t Type) (*Result, error) {
	switch t {
	case HDS:
		return calcHDS(in)
	case Sheet:
		return calcSheet(in)
	case Fusing:
		return calcFusing(in)
	case YardBased:
		return calcYardBased(in)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
}

// calcHDS: amount = stitches * rate * 0.1
func calcHDS(in Inputs) (*Result, error) {
	if !in.Rate.IsPositive() {
		return nil, ErrNonPositiveRate
	}
	if !in.Stitches.IsPositive() {
		return nil, ErrNonPositiveStitches
	}
	amount := in.Stitches.Mul(in.Rate).Mul(hdsFactor).Round(2)
	return &Result{
		Amount: amount,
		Snapshot: newSnapshot(string(HDS), map[string]string{
			"stitches": in.Stitches.String(),
			"rate":     in.Rate.String(),
			"factor":   hdsFactor.String(),
		}, nil, amount),
	}, nil
}

// calcSheet: amount = stitches * rate * 0.277
func calcSheet(in Inputs) (*Result, error) {
	if !in.Rate.IsPositive() {
		return nil, ErrNonPositiveRate
	}
	if !in.Stitches.IsPositive() {
		return nil, ErrNonPositiveStitches
	}
	amount := in.Stitches.Mul(in.Rate).Mul(sheetFactor).Round(2)
	return &Result{
		Amount: amount,
		Snapshot: newSnapshot(string(Sheet), map[string]string{
			"stitches": in.Stitches.String(),
			"rate":     in.Rate.String(),
			"factor":   sheetFactor.String(),
		}, nil, amount),
	}, nil
}

// calcFusing: amount = 100 * rate. Stitches are ignored on purpose: fusing
// work is billed flat per application.
func calcFusing(in Inputs) (*Result, error) {
	if !in.Rate.IsPositive() {
		return nil, ErrNonPositiveRate
	}
	amount := fusingFlatUnits.Mul(in.Rate).Round(2)
	return &Result{
		Amount: amount,
		Snapshot: newSnapshot(string(Fusing), map[string]string{
			"rate":       in.Rate.String(),
			"flat_units": fusingFlatUnits.String(),
		}, nil, amount),
	}, nil
}

// calcYardBased prices fabric by the yard:
//
//	fabricYards = (machineGazana / dStitch) * stitches
//	ratePerYard = (dStitch / 1000) * 2.77 * rate   (rounded to 4 decimals)
//	amount      = fabricYards * ratePerYard        (rounded to 2 decimals)
//
// When yard inputs are unavailable (dStitch or machineGazana not positive) it
// falls back to the HDS-style per-thousand formula (stitches/1000) * rate * 100.
func calcYardBased(in Inputs) (*Result, error) {
	if !in.Rate.IsPositive() {
		return nil, ErrNonPositiveRate
	}
	if !in.Stitches.IsPositive() {
		return nil, ErrNonPositiveStitches
	}

	if !in.DStitch.IsPositive() || !in.MachineGazana.IsPositive() {
		amount := in.Stitches.Div(thousand).Mul(in.Rate).Mul(hundred).Round(2)
		return &Result{
			Amount: amount,
			Snapshot: newSnapshot(string(YardBased), map[string]string{
				"stitches": in.Stitches.String(),
				"rate":     in.Rate.String(),
			}, map[string]string{
				"fallback": "per_thousand_stitches",
			}, amount),
		}, nil
	}

	fabricYards := in.MachineGazana.Div(in.DStitch).Mul(in.Stitches)
	ratePerYard := in.DStitch.Div(thousand).Mul(yardRateFactor).Mul(in.Rate).Round(4)
	amount := fabricYards.Mul(ratePerYard).Round(2)

	return &Result{
		Amount: amount,
		Snapshot: newSnapshot(string(YardBased), map[string]string{
			"stitches":       in.Stitches.String(),
			"rate":           in.Rate.String(),
			"d_stitch":       in.DStitch.String(),
			"machine_gazana": in.MachineGazana.String(),
		}, map[string]string{
			"fabric_yards":  fabricYards.Round(4).String(),
			"rate_per_yard": ratePerYard.String(),
		}, amount),
	}, nil
}

func newSnapshot(formula string, inputs, intermediate map[string]string, amount decimal.Decimal) Snapshot {
	return Snapshot{
		Formula:      formula,
		Inputs:       inputs,
		Intermediate: intermediate,
		Result:       amount.StringFixed(2),
		CalculatedAt: time.Now().UTC(),
	}
}
