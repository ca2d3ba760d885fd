package journals

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/atlas-erp/atlas-erp/internal/ledger/accounts"
	"github.com/atlas-erp/atlas-erp/internal/ledger/periods"
	"github.com/atlas-erp/atlas-erp/internal/ledger/shared"
	internalshared "github.com/atlas-erp/atlas-erp/internal/shared"
)

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetEntryWithLines(ctx context.Context, tenantID, entryID int64) (JournalEntry, error)
	List(ctx context.Context, tenantID int64, filter ListFilter) ([]JournalEntry, int, error)
	ListAuditTrail(ctx context.Context, tenantID, entryID int64) ([]internalshared.AuditLog, error)
}

// TxRepository exposes operations that must share one transaction. The
// posting engine uses it so balance updates, status changes, and audit rows
// commit or roll back together.
type TxRepository interface {
	InsertEntry(ctx context.Context, entry JournalEntry) (JournalEntry, error)
	InsertLines(ctx context.Context, entryID int64, lines []JournalLine) ([]JournalLine, error)
	GetEntryForUpdate(ctx context.Context, tenantID, entryID int64) (JournalEntry, error)
	GetLines(ctx context.Context, entryID int64) ([]JournalLine, error)
	UpdateEntryStatus(ctx context.Context, tenantID, entryID int64, status EntryStatus, periodID *int64, postedBy *string, postedAt *time.Time) error
	GetAccountsByIDs(ctx context.Context, tenantID int64, ids []int64) (map[int64]accounts.Account, error)
	FindPeriodByDateForUpdate(ctx context.Context, tenantID int64, date time.Time) (periods.Period, error)
	FindNextOpenPeriodAfter(ctx context.Context, tenantID int64, date time.Time) (periods.Period, error)
	UpsertAccountBalance(ctx context.Context, tenantID, accountID, periodID int64, debit, credit decimal.Decimal) error
	LinkSource(ctx context.Context, tenantID int64, referenceType string, reference uuid.UUID, entryID int64) error
	InsertAuditLog(ctx context.Context, log internalshared.AuditLog) error
}

// Repository persists journal entries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes fn within a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("journals repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

const entryColumns = `id, tenant_id, number, description, entry_date, status, period_id, posted_by, posted_at, reverses_entry_id, reference, reference_type, created_at, updated_at`

func scanEntry(row pgx.Row) (JournalEntry, error) {
	var e JournalEntry
	err := row.Scan(&e.ID, &e.TenantID, &e.Number, &e.Description, &e.EntryDate, &e.Status, &e.PeriodID, &e.PostedBy, &e.PostedAt, &e.ReversesID, &e.Reference, &e.ReferenceType, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (r *txRepository) InsertEntry(ctx context.Context, entry JournalEntry) (JournalEntry, error) {
	// Numbers are per-tenant and gapless for drafts created in sequence; the
	// unique constraint catches concurrent writers.
	row := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (tenant_id, number, description, entry_date, status, reverses_entry_id, reference, reference_type)
VALUES ($1, (SELECT COALESCE(MAX(number), 0) + 1 FROM journal_entries WHERE tenant_id = $1), $2, $3, $4, $5, $6, $7)
RETURNING `+entryColumns,
		entry.TenantID, entry.Description, entry.EntryDate, entry.Status, entry.ReversesID, entry.Reference, entry.ReferenceType)
	return scanEntry(row)
}

func (r *txRepository) InsertLines(ctx context.Context, entryID int64, lines []JournalLine) ([]JournalLine, error) {
	out := make([]JournalLine, 0, len(lines))
	for idx, line := range lines {
		var id int64
		err := r.tx.QueryRow(ctx, `INSERT INTO journal_lines (entry_id, account_id, side, amount, memo, position)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			entryID, line.AccountID, line.Side, line.Amount, line.Memo, idx).Scan(&id)
		if err != nil {
			return nil, err
		}
		line.ID = id
		line.EntryID = entryID
		line.Position = idx
		out = append(out, line)
	}
	return out, nil
}

func (r *txRepository) GetEntryForUpdate(ctx context.Context, tenantID, entryID int64) (JournalEntry, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE tenant_id = $1 AND id = $2 FOR UPDATE`, tenantID, entryID)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, shared.ErrJournalNotFound
		}
		return JournalEntry{}, err
	}
	return entry, nil
}

func scanLines(rows pgx.Rows) ([]JournalLine, error) {
	defer rows.Close()
	var lines []JournalLine
	for rows.Next() {
		var line JournalLine
		if err := rows.Scan(&line.ID, &line.EntryID, &line.AccountID, &line.Side, &line.Amount, &line.Memo, &line.Position); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (r *txRepository) GetLines(ctx context.Context, entryID int64) ([]JournalLine, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, entry_id, account_id, side, amount, memo, position FROM journal_lines WHERE entry_id = $1 ORDER BY position`, entryID)
	if err != nil {
		return nil, err
	}
	return scanLines(rows)
}

func (r *txRepository) UpdateEntryStatus(ctx context.Context, tenantID, entryID int64, status EntryStatus, periodID *int64, postedBy *string, postedAt *time.Time) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries
SET status = $3, period_id = COALESCE($4, period_id), posted_by = COALESCE($5, posted_by), posted_at = COALESCE($6, posted_at), updated_at = NOW()
WHERE tenant_id = $1 AND id = $2`, tenantID, entryID, status, periodID, postedBy, postedAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrJournalNotFound
	}
	return nil
}

func (r *txRepository) GetAccountsByIDs(ctx context.Context, tenantID int64, ids []int64) (map[int64]accounts.Account, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, tenant_id, code, name, type, sub_type, description, is_active, created_at, updated_at
FROM accounts WHERE tenant_id = $1 AND id = ANY($2)`, tenantID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]accounts.Account, len(ids))
	for rows.Next() {
		var a accounts.Account
		if err := rows.Scan(&a.ID, &a.TenantID, &a.Code, &a.Name, &a.Type, &a.SubType, &a.Description, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out[a.ID] = a
	}
	return out, rows.Err()
}

const periodColumns = `id, tenant_id, code, name, start_date, end_date, status, closed_at, locked_at, locked_by, created_at, updated_at`

func scanPeriod(row pgx.Row) (periods.Period, error) {
	var p periods.Period
	err := row.Scan(&p.ID, &p.TenantID, &p.Code, &p.Name, &p.StartDate, &p.EndDate, &p.Status, &p.ClosedAt, &p.LockedAt, &p.LockedBy, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// FindPeriodByDateForUpdate locks the period covering the date so posting
// serialises against close/lock transitions.
func (r *txRepository) FindPeriodByDateForUpdate(ctx context.Context, tenantID int64, date time.Time) (periods.Period, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+periodColumns+` FROM fiscal_periods
WHERE tenant_id = $1 AND $2 BETWEEN start_date AND end_date ORDER BY start_date LIMIT 1 FOR UPDATE`, tenantID, date)
	period, err := scanPeriod(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return periods.Period{}, shared.ErrPeriodNotFound
		}
		return periods.Period{}, err
	}
	return period, nil
}

func (r *txRepository) FindNextOpenPeriodAfter(ctx context.Context, tenantID int64, date time.Time) (periods.Period, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+periodColumns+` FROM fiscal_periods
WHERE tenant_id = $1 AND status = 'OPEN' AND start_date >= $2 ORDER BY start_date LIMIT 1 FOR UPDATE`, tenantID, date)
	period, err := scanPeriod(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return periods.Period{}, shared.ErrPeriodNotFound
		}
		return periods.Period{}, err
	}
	return period, nil
}

func (r *txRepository) UpsertAccountBalance(ctx context.Context, tenantID, accountID, periodID int64, debit, credit decimal.Decimal) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO account_balances (tenant_id, account_id, period_id, period_debit, period_credit)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (tenant_id, account_id, period_id)
DO UPDATE SET period_debit = account_balances.period_debit + EXCLUDED.period_debit,
              period_credit = account_balances.period_credit + EXCLUDED.period_credit,
              updated_at = NOW()`,
		tenantID, accountID, periodID, debit, credit)
	return err
}

func (r *txRepository) LinkSource(ctx context.Context, tenantID int64, referenceType string, reference uuid.UUID, entryID int64) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO source_links (tenant_id, reference_type, reference_id, entry_id) VALUES ($1, $2, $3, $4)`,
		tenantID, referenceType, reference, entryID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return shared.ErrSourceAlreadyLinked
		}
		return err
	}
	return nil
}

func (r *txRepository) InsertAuditLog(ctx context.Context, log internalshared.AuditLog) error {
	metaJSON, err := json.Marshal(log.Meta)
	if err != nil {
		return err
	}
	_, err = r.tx.Exec(ctx, `INSERT INTO audit_logs (tenant_id, actor, action, entity, entity_id, meta, occurred_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		log.TenantID, log.Actor, log.Action, log.Entity, log.EntityID, metaJSON, log.At)
	return err
}

// GetEntryWithLines loads a single entry outside of any transaction.
func (r *Repository) GetEntryWithLines(ctx context.Context, tenantID, entryID int64) (JournalEntry, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE tenant_id = $1 AND id = $2`, tenantID, entryID)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, shared.ErrJournalNotFound
		}
		return JournalEntry{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, entry_id, account_id, side, amount, memo, position FROM journal_lines WHERE entry_id = $1 ORDER BY position`, entryID)
	if err != nil {
		return JournalEntry{}, err
	}
	entry.Lines, err = scanLines(rows)
	if err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

// List returns entries matching the filter plus the total row count.
func (r *Repository) List(ctx context.Context, tenantID int64, filter ListFilter) ([]JournalEntry, int, error) {
	where := `WHERE e.tenant_id = $1`
	args := []any{tenantID}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		where += ` AND e.status = $` + itoa(len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where += ` AND e.entry_date >= $` + itoa(len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where += ` AND e.entry_date <= $` + itoa(len(args))
	}
	if filter.AccountID != nil {
		args = append(args, *filter.AccountID)
		where += ` AND EXISTS (SELECT 1 FROM journal_lines l WHERE l.entry_id = e.id AND l.account_id = $` + itoa(len(args)) + `)`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM journal_entries e `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, perPage, (page-1)*perPage)
	query := `SELECT ` + prefixColumns("e.", entryColumns) + ` FROM journal_entries e ` + where +
		` ORDER BY e.number DESC LIMIT $` + itoa(len(args)-1) + ` OFFSET $` + itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var entries []JournalEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, entry)
	}
	return entries, total, rows.Err()
}

// ListAuditTrail returns the audit records for one journal entry, oldest
// first.
func (r *Repository) ListAuditTrail(ctx context.Context, tenantID, entryID int64) ([]internalshared.AuditLog, error) {
	rows, err := r.pool.Query(ctx, `SELECT tenant_id, actor, action, entity, entity_id, meta, occurred_at
FROM audit_logs WHERE tenant_id = $1 AND entity = 'journal_entry' AND entity_id = $2 ORDER BY occurred_at`, tenantID, itoa64(entryID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var logs []internalshared.AuditLog
	for rows.Next() {
		var log internalshared.AuditLog
		var metaJSON []byte
		if err := rows.Scan(&log.TenantID, &log.Actor, &log.Action, &log.Entity, &log.EntityID, &metaJSON, &log.At); err != nil {
			return nil, err
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &log.Meta); err != nil {
				return nil, err
			}
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
