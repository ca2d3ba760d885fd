package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-erp/atlas-erp/internal/ledger/shared"
)

// Repository persists chart of accounts entries.
type Repository interface {
	Create(ctx context.Context, account Account) (Account, error)
	Get(ctx context.Context, tenantID, id int64) (Account, error)
	List(ctx context.Context, tenantID int64, filter ListFilter) ([]Account, error)
	Update(ctx context.Context, account Account) (Account, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the pg-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const accountColumns = `id, tenant_id, code, name, type, sub_type, description, is_active, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.TenantID, &a.Code, &a.Name, &a.Type, &a.SubType, &a.Description, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *repository) Create(ctx context.Context, account Account) (Account, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO accounts (tenant_id, code, name, type, sub_type, description, is_active)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING `+accountColumns,
		account.TenantID, account.Code, account.Name, account.Type, account.SubType, account.Description, account.IsActive)
	created, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Account{}, shared.ErrDuplicateCode
		}
		return Account{}, err
	}
	return created, nil
}

func (r *repository) Get(ctx context.Context, tenantID, id int64) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrAccountNotFound
		}
		return Account{}, err
	}
	return account, nil
}

func (r *repository) List(ctx context.Context, tenantID int64, filter ListFilter) ([]Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE tenant_id=$1`
	args := []any{tenantID}
	if filter.Type != nil {
		args = append(args, *filter.Type)
		query += ` AND type=$2`
	}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		switch len(args) {
		case 2:
			query += ` AND is_active=$2`
		case 3:
			query += ` AND is_active=$3`
		}
	}
	query += ` ORDER BY code`
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *repository) Update(ctx context.Context, account Account) (Account, error) {
	row := r.db.QueryRow(ctx, `UPDATE accounts SET name=$3, description=$4, is_active=$5, updated_at=NOW()
WHERE tenant_id=$1 AND id=$2 RETURNING `+accountColumns,
		account.TenantID, account.ID, account.Name, account.Description, account.IsActive)
	updated, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrAccountNotFound
		}
		return Account{}, err
	}
	return updated, nil
}
