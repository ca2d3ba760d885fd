package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/atlas-erp/atlas-erp/internal/jobs"
	"github.com/atlas-erp/atlas-erp/internal/shared"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// idempotencyRetention bounds how long processed request keys are kept.
const idempotencyRetention = 24 * time.Hour

// LedgerIntegrityJob scans for violations of the double-entry invariants:
// posted entries whose lines do not balance, and per-period account balances
// that drifted from the posted lines backing them. It also purges expired
// idempotency keys while it has the database to itself.
type LedgerIntegrityJob struct {
	Pool        *pgxpool.Pool
	Idempotency *shared.IdempotencyStore
	Logger      *slog.Logger
	Metrics     *jobmetrics.Metrics
}

// NewLedgerIntegrityJob wires dependencies for the integrity handler.
func NewLedgerIntegrityJob(pool *pgxpool.Pool, idempotency *shared.IdempotencyStore, logger *slog.Logger, metrics *jobmetrics.Metrics) *LedgerIntegrityJob {
	return &LedgerIntegrityJob{Pool: pool, Idempotency: idempotency, Logger: logger, Metrics: metrics}
}

// Handle processes integrity scan tasks.
func (j *LedgerIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("ledger integrity: handler not configured")
	}
	var payload LedgerIntegrityPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskLedgerIntegrity)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Int64("tenant_id", payload.TenantID))
	logger.Info("starting ledger integrity scan")

	unbalanced, err := j.scanUnbalancedEntries(ctx, payload.TenantID, logger)
	if err != nil {
		resultErr = err
		return resultErr
	}
	drifted, err := j.scanBalanceDrift(ctx, payload.TenantID, logger)
	if err != nil {
		resultErr = err
		return resultErr
	}

	if j.Idempotency != nil {
		if err := j.Idempotency.Cleanup(ctx, idempotencyRetention); err != nil {
			logger.Warn("idempotency cleanup", slog.Any("error", err))
		}
	}

	logger.Info("ledger integrity scan finished",
		slog.Int("unbalanced_entries", unbalanced),
		slog.Int("drifted_balances", drifted))
	return resultErr
}

// scanUnbalancedEntries finds posted entries whose debit and credit sums
// differ. These should be impossible; each is a critical anomaly.
func (j *LedgerIntegrityJob) scanUnbalancedEntries(ctx context.Context, tenantID int64, logger *slog.Logger) (int, error) {
	rows, err := j.Pool.Query(ctx, `
SELECT e.tenant_id, e.id, e.number,
       COALESCE(SUM(CASE WHEN l.side = 'DEBIT' THEN l.amount ELSE 0 END), 0) AS debit,
       COALESCE(SUM(CASE WHEN l.side = 'CREDIT' THEN l.amount ELSE 0 END), 0) AS credit
FROM journal_entries e
JOIN journal_lines l ON l.entry_id = e.id
WHERE e.status = 'POSTED' AND ($1 = 0 OR e.tenant_id = $1)
GROUP BY e.tenant_id, e.id, e.number
HAVING COALESCE(SUM(CASE WHEN l.side = 'DEBIT' THEN l.amount ELSE 0 END), 0)
    <> COALESCE(SUM(CASE WHEN l.side = 'CREDIT' THEN l.amount ELSE 0 END), 0)`,
		tenantID)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	perTenant := make(map[int64]int)
	total := 0
	for rows.Next() {
		var tenant, entryID, number int64
		var debit, credit string
		if err := rows.Scan(&tenant, &entryID, &number, &debit, &credit); err != nil {
			return 0, err
		}
		logger.Error("unbalanced posted entry",
			slog.Int64("tenant_id", tenant),
			slog.Int64("entry_id", entryID),
			slog.Int64("number", number),
			slog.String("debit", debit),
			slog.String("credit", credit))
		perTenant[tenant]++
		total++
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	for tenant, count := range perTenant {
		j.metrics().AddAnomalies("critical", tenant, count)
	}
	return total, nil
}

// scanBalanceDrift compares account_balances rows with the posted lines that
// should back them.
func (j *LedgerIntegrityJob) scanBalanceDrift(ctx context.Context, tenantID int64, logger *slog.Logger) (int, error) {
	rows, err := j.Pool.Query(ctx, `
SELECT b.tenant_id, b.account_id, b.period_id, b.period_debit, b.period_credit,
       COALESCE(l.debit, 0), COALESCE(l.credit, 0)
FROM account_balances b
LEFT JOIN (
  SELECT e.tenant_id, jl.account_id, e.period_id,
         SUM(CASE WHEN jl.side = 'DEBIT' THEN jl.amount ELSE 0 END) AS debit,
         SUM(CASE WHEN jl.side = 'CREDIT' THEN jl.amount ELSE 0 END) AS credit
  FROM journal_lines jl
  JOIN journal_entries e ON e.id = jl.entry_id
  WHERE e.status = 'POSTED'
  GROUP BY e.tenant_id, jl.account_id, e.period_id
) l ON l.tenant_id = b.tenant_id AND l.account_id = b.account_id AND l.period_id = b.period_id
WHERE ($1 = 0 OR b.tenant_id = $1)
  AND (b.period_debit <> COALESCE(l.debit, 0) OR b.period_credit <> COALESCE(l.credit, 0))`,
		tenantID)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	perTenant := make(map[int64]int)
	total := 0
	for rows.Next() {
		var tenant, accountID, periodID int64
		var storedDebit, storedCredit, lineDebit, lineCredit string
		if err := rows.Scan(&tenant, &accountID, &periodID, &storedDebit, &storedCredit, &lineDebit, &lineCredit); err != nil {
			return 0, err
		}
		logger.Warn("account balance drift",
			slog.Int64("tenant_id", tenant),
			slog.Int64("account_id", accountID),
			slog.Int64("period_id", periodID),
			slog.String("stored_debit", storedDebit),
			slog.String("line_debit", lineDebit),
			slog.String("stored_credit", storedCredit),
			slog.String("line_credit", lineCredit))
		perTenant[tenant]++
		total++
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	for tenant, count := range perTenant {
		j.metrics().AddAnomalies("warning", tenant, count)
	}
	return total, nil
}

func (j *LedgerIntegrityJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *LedgerIntegrityJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
