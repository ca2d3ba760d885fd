package periods

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-erp/atlas-erp/internal/ledger/shared"
	"github.com/atlas-erp/atlas-erp/internal/platform/db"
)

// Repository persists fiscal periods.
type Repository interface {
	Create(ctx context.Context, period Period) (Period, error)
	Get(ctx context.Context, tenantID, id int64) (Period, error)
	List(ctx context.Context, tenantID int64) ([]Period, error)
	FindByDate(ctx context.Context, tenantID int64, date time.Time) (Period, error)
	// Transition locks the period row, applies fn, and persists the result.
	// When fn leaves the status unchanged the row is left untouched.
	Transition(ctx context.Context, tenantID, id int64, fn func(Period) (Period, error)) (Period, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the pg-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const periodColumns = `id, tenant_id, code, name, start_date, end_date, status, closed_at, locked_at, locked_by, created_at, updated_at`

func scanPeriod(row pgx.Row) (Period, error) {
	var p Period
	err := row.Scan(&p.ID, &p.TenantID, &p.Code, &p.Name, &p.StartDate, &p.EndDate, &p.Status, &p.ClosedAt, &p.LockedAt, &p.LockedBy, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *repository) Create(ctx context.Context, period Period) (Period, error) {
	var created Period
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var exists bool
		// The exclusion constraint on fiscal_periods is the hard guarantee;
		// this pre-check produces a friendlier error for the common case.
		err := tx.QueryRow(ctx, `SELECT EXISTS (
SELECT 1 FROM fiscal_periods WHERE tenant_id = $1 AND start_date <= $3 AND end_date >= $2
)`, period.TenantID, period.StartDate, period.EndDate).Scan(&exists)
		if err != nil {
			return err
		}
		if exists {
			return shared.ErrPeriodOverlap
		}
		row := tx.QueryRow(ctx, `INSERT INTO fiscal_periods (tenant_id, code, name, start_date, end_date, status)
VALUES ($1, $2, $3, $4, $5, 'OPEN') RETURNING `+periodColumns,
			period.TenantID, period.Code, period.Name, period.StartDate, period.EndDate)
		created, err = scanPeriod(row)
		return err
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && (pgErr.Code == "23P01" || pgErr.Code == "23505") {
			return Period{}, shared.ErrPeriodOverlap
		}
		return Period{}, err
	}
	return created, nil
}

func (r *repository) Get(ctx context.Context, tenantID, id int64) (Period, error) {
	row := r.db.QueryRow(ctx, `SELECT `+periodColumns+` FROM fiscal_periods WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	period, err := scanPeriod(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, shared.ErrPeriodNotFound
		}
		return Period{}, err
	}
	return period, nil
}

func (r *repository) List(ctx context.Context, tenantID int64) ([]Period, error) {
	rows, err := r.db.Query(ctx, `SELECT `+periodColumns+` FROM fiscal_periods WHERE tenant_id = $1 ORDER BY start_date`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Period
	for rows.Next() {
		period, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, period)
	}
	return out, rows.Err()
}

// FindByDate returns the period covering the date regardless of status.
// The caller decides whether a closed period is an error.
func (r *repository) FindByDate(ctx context.Context, tenantID int64, date time.Time) (Period, error) {
	row := r.db.QueryRow(ctx, `SELECT `+periodColumns+` FROM fiscal_periods
WHERE tenant_id = $1 AND $2 BETWEEN start_date AND end_date ORDER BY start_date LIMIT 1`, tenantID, date)
	period, err := scanPeriod(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, shared.ErrPeriodNotFound
		}
		return Period{}, err
	}
	return period, nil
}

func (r *repository) Transition(ctx context.Context, tenantID, id int64, fn func(Period) (Period, error)) (Period, error) {
	var result Period
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT `+periodColumns+` FROM fiscal_periods WHERE tenant_id = $1 AND id = $2 FOR UPDATE`, tenantID, id)
		period, err := scanPeriod(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return shared.ErrPeriodNotFound
			}
			return err
		}
		next, err := fn(period)
		if err != nil {
			return err
		}
		if next.Status == period.Status {
			result = period
			return nil
		}
		row = tx.QueryRow(ctx, `UPDATE fiscal_periods
SET status = $3, closed_at = $4, locked_at = $5, locked_by = $6, updated_at = NOW()
WHERE tenant_id = $1 AND id = $2 RETURNING `+periodColumns,
			tenantID, id, next.Status, next.ClosedAt, next.LockedAt, next.LockedBy)
		result, err = scanPeriod(row)
		return err
	})
	if err != nil {
		return Period{}, err
	}
	return result, nil
}
