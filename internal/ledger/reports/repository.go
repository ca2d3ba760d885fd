package reports

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-erp/atlas-erp/internal/ledger/accounts"
	"github.com/atlas-erp/atlas-erp/internal/ledger/shared"
)

// Repository reads aggregated ledger data for reporting.
type Repository interface {
	PeriodBalances(ctx context.Context, tenantID, periodID int64) ([]AccountBalance, error)
	CashBalances(ctx context.Context, tenantID, periodID int64) ([]AccountBalance, error)
	GeneralLedger(ctx context.Context, tenantID, accountID int64, from, to time.Time) (GeneralLedger, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the pg-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

// PeriodBalances returns every account with movement in or before the
// period. Opening folds all prior periods into a debit-positive net.
func (r *repository) PeriodBalances(ctx context.Context, tenantID, periodID int64) ([]AccountBalance, error) {
	return r.queryBalances(ctx, tenantID, periodID, false)
}

// CashBalances restricts PeriodBalances to accounts with the cash sub-type.
func (r *repository) CashBalances(ctx context.Context, tenantID, periodID int64) ([]AccountBalance, error) {
	return r.queryBalances(ctx, tenantID, periodID, true)
}

func (r *repository) queryBalances(ctx context.Context, tenantID, periodID int64, cashOnly bool) ([]AccountBalance, error) {
	query := `
SELECT a.id, a.code, a.name, a.type, a.sub_type,
       COALESCE(SUM(CASE WHEN p.end_date < tp.start_date THEN b.period_debit - b.period_credit END), 0) AS opening,
       COALESCE(SUM(CASE WHEN b.period_id = tp.id THEN b.period_debit END), 0) AS debit,
       COALESCE(SUM(CASE WHEN b.period_id = tp.id THEN b.period_credit END), 0) AS credit
FROM fiscal_periods tp
JOIN account_balances b ON b.tenant_id = tp.tenant_id
JOIN fiscal_periods p ON p.id = b.period_id
JOIN accounts a ON a.id = b.account_id
WHERE tp.tenant_id = $1 AND tp.id = $2
  AND (p.id = tp.id OR p.end_date < tp.start_date)`
	if cashOnly {
		query += ` AND a.sub_type = 'CASH'`
	}
	query += `
GROUP BY a.id, a.code, a.name, a.type, a.sub_type
HAVING COALESCE(SUM(b.period_debit), 0) <> 0 OR COALESCE(SUM(b.period_credit), 0) <> 0
ORDER BY a.code`

	rows, err := r.db.Query(ctx, query, tenantID, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AccountBalance
	for rows.Next() {
		var b AccountBalance
		if err := rows.Scan(&b.AccountID, &b.Code, &b.Name, &b.Type, &b.SubType, &b.Opening, &b.Debit, &b.Credit); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// GeneralLedger returns the posted activity of one account in date order,
// with the opening balance accumulated from everything before the range.
func (r *repository) GeneralLedger(ctx context.Context, tenantID, accountID int64, from, to time.Time) (GeneralLedger, error) {
	var gl GeneralLedger
	err := r.db.QueryRow(ctx, `SELECT id, code, name FROM accounts WHERE tenant_id = $1 AND id = $2`, tenantID, accountID).
		Scan(&gl.AccountID, &gl.Code, &gl.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return GeneralLedger{}, shared.ErrAccountNotFound
		}
		return GeneralLedger{}, err
	}

	err = r.db.QueryRow(ctx, `
SELECT COALESCE(SUM(CASE WHEN l.side = 'DEBIT' THEN l.amount ELSE -l.amount END), 0)
FROM journal_lines l
JOIN journal_entries e ON e.id = l.entry_id
WHERE e.tenant_id = $1 AND l.account_id = $2 AND e.status = 'POSTED' AND e.entry_date < $3`,
		tenantID, accountID, from).Scan(&gl.Opening)
	if err != nil {
		return GeneralLedger{}, err
	}

	rows, err := r.db.Query(ctx, `
SELECT e.id, e.number, e.entry_date, e.description, l.side, l.amount, l.memo
FROM journal_lines l
JOIN journal_entries e ON e.id = l.entry_id
WHERE e.tenant_id = $1 AND l.account_id = $2 AND e.status = 'POSTED'
  AND e.entry_date >= $3 AND e.entry_date <= $4
ORDER BY e.entry_date, e.number, l.position`,
		tenantID, accountID, from, to)
	if err != nil {
		return GeneralLedger{}, err
	}
	defer rows.Close()

	running := gl.Opening
	for rows.Next() {
		var line GeneralLedgerLine
		if err := rows.Scan(&line.EntryID, &line.Number, &line.EntryDate, &line.Description, &line.Side, &line.Amount, &line.Memo); err != nil {
			return GeneralLedger{}, err
		}
		delta := line.Amount
		if line.Side == accounts.SideCredit {
			delta = delta.Neg()
		}
		running = running.Add(delta)
		line.Running = running
		gl.Lines = append(gl.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return GeneralLedger{}, err
	}
	gl.Closing = running
	return gl, nil
}
