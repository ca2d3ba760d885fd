package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	jobmetrics "github.com/atlas-erp/atlas-erp/internal/jobs"
	"github.com/atlas-erp/atlas-erp/internal/ledger/reports"
)

// ReportsWarmupJob pre-populates report caches for every open period so the
// first request after an invalidation does not pay the aggregation cost.
type ReportsWarmupJob struct {
	Reports *reports.Service
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewReportsWarmupJob wires dependencies for the warmup handler.
func NewReportsWarmupJob(reportsSvc *reports.Service, pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReportsWarmupJob {
	return &ReportsWarmupJob{Reports: reportsSvc, Pool: pool, Logger: logger, Metrics: metrics}
}

type warmupScope struct {
	TenantID int64
	PeriodID int64
}

// Handle processes report warmup tasks.
func (j *ReportsWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reports == nil || j.Pool == nil {
		return errors.New("reports warmup: handler not configured")
	}
	var payload ReportsWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskReportsWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Int64("tenant_id", payload.TenantID))
	logger.Info("starting reports warmup")

	scopes, err := j.fetchScopes(ctx, payload.TenantID)
	if err != nil {
		resultErr = err
		logger.Error("load warmup scopes", slog.Any("error", err))
		return resultErr
	}
	if len(scopes) == 0 {
		logger.Info("no open periods to warm")
		return resultErr
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(4)
	for _, scope := range scopes {
		scope := scope
		group.Go(func() error {
			return j.warmScope(groupCtx, scope)
		})
	}
	if err := group.Wait(); err != nil {
		resultErr = err
		logger.Error("warm reports", slog.Any("error", err))
		return resultErr
	}

	logger.Info("reports warmup finished", slog.Int("scopes", len(scopes)))
	return resultErr
}

// fetchScopes lists open periods, optionally restricted to one tenant.
func (j *ReportsWarmupJob) fetchScopes(ctx context.Context, tenantID int64) ([]warmupScope, error) {
	rows, err := j.Pool.Query(ctx, `SELECT tenant_id, id FROM fiscal_periods
WHERE status = 'OPEN' AND ($1 = 0 OR tenant_id = $1) ORDER BY tenant_id, start_date`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scopes []warmupScope
	for rows.Next() {
		var scope warmupScope
		if err := rows.Scan(&scope.TenantID, &scope.PeriodID); err != nil {
			return nil, err
		}
		scopes = append(scopes, scope)
	}
	return scopes, rows.Err()
}

func (j *ReportsWarmupJob) warmScope(ctx context.Context, scope warmupScope) error {
	if _, err := j.Reports.TrialBalance(ctx, scope.TenantID, scope.PeriodID); err != nil {
		return err
	}
	if _, err := j.Reports.ProfitAndLoss(ctx, scope.TenantID, scope.PeriodID); err != nil {
		return err
	}
	if _, err := j.Reports.BalanceSheet(ctx, scope.TenantID, scope.PeriodID); err != nil {
		return err
	}
	_, err := j.Reports.CashFlow(ctx, scope.TenantID, scope.PeriodID)
	return err
}

func (j *ReportsWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *ReportsWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
