// Package ledger aggregates produced stitches for a (work order, machine)
// pair across every independent production-logging source.
//
// Sources are small adapters sharing one SumFor contract; the reconciliation
// engine depends only on the aggregate, so sources can be added or removed
// without touching the state machine. All reads are side-effect free.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SourceTotals is one source's contribution for a pair. Dates are nil when the
// source holds no events for the pair.
type SourceTotals struct {
	Stitches  decimal.Decimal
	FirstDate *time.Time
	LastDate  *time.Time
}

// Source sums produced stitches for a pair from one physical event table.
// Implementations take the db handle per call so they run inside whatever
// transaction the caller holds.
type Source interface {
	Name() string
	SumFor(ctx context.Context, db *gorm.DB, workOrderID, machineID uuid.UUID) (SourceTotals, error)
}

// Totals is the union across all sources.
type Totals struct {
	Stitches  decimal.Decimal
	FirstDate *time.Time
	LastDate  *time.Time
}

// Ledger unions the contributions of its sources.
type Ledger struct {
	sources []Source
}

func New(sources ...Source) *Ledger {
	return &Ledger{sources: sources}
}

// TotalProduced sums stitches for the pair across all sources and tracks the
// earliest and latest production dates seen. A structurally absent source
// (its table does not exist) contributes zero instead of failing: schemas
// differ between deployments and an empty source is not an error. Any other
// source error aborts the aggregation.
func (l *Ledger) TotalProduced(ctx context.Context, db *gorm.DB, workOrderID, machineID uuid.UUID) (Totals, error) {
	totals := Totals{Stitches: decimal.Zero}
	for _, src := range l.sources {
		st, err := src.SumFor(ctx, db, workOrderID, machineID)
		if err != nil {
			if isUndefinedTable(err) {
				continue
			}
			return Totals{}, fmt.Errorf("ledger: source %s: %w", src.Name(), err)
		}
		totals.Stitches = totals.Stitches.Add(st.Stitches)
		if st.FirstDate != nil && (totals.FirstDate == nil || st.FirstDate.Before(*totals.FirstDate)) {
			totals.FirstDate = st.FirstDate
		}
		if st.LastDate != nil && (totals.LastDate == nil || st.LastDate.After(*totals.LastDate)) {
			totals.LastDate = st.LastDate
		}
	}
	return totals, nil
}

// SpanDays is the inclusive day span between first and last production dates:
// ceil(last − first) + 1, or 0 when either date is missing. A single
// production day yields 1.
func SpanDays(first, last *time.Time) int {
	if first == nil || last == nil {
		return 0
	}
	span := last.Sub(*first)
	if span < 0 {
		span = 0
	}
	days := int(span.Hours() / 24)
	if span%(24*time.Hour) != 0 {
		days++
	}
	return days + 1
}

// isUndefinedTable matches PostgreSQL SQLSTATE 42P01 (undefined_table).
func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42P01"
}
