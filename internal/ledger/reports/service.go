package reports

import (
	"context"
	"fmt"
	"time"
)

// Service assembles ledger reports, caching results until the next posting.
type Service struct {
	repo  Repository
	cache *Cache
}

// NewService constructs the reporting service. The cache may be nil.
func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// TrialBalance builds the trial balance for one fiscal period.
func (s *Service) TrialBalance(ctx context.Context, tenantID, periodID int64) (TrialBalance, error) {
	loader := func(ctx context.Context) (interface{}, error) {
		balances, err := s.repo.PeriodBalances(ctx, tenantID, periodID)
		if err != nil {
			return nil, err
		}
		return BuildTrialBalance(balances), nil
	}
	var tb TrialBalance
	if err := s.cached(ctx, tenantID, &tb, loader, "tb", itoa(periodID)); err != nil {
		return TrialBalance{}, err
	}
	return tb, nil
}

// ProfitAndLoss builds the income statement for one fiscal period.
func (s *Service) ProfitAndLoss(ctx context.Context, tenantID, periodID int64) (ProfitAndLoss, error) {
	loader := func(ctx context.Context) (interface{}, error) {
		balances, err := s.repo.PeriodBalances(ctx, tenantID, periodID)
		if err != nil {
			return nil, err
		}
		return BuildProfitAndLoss(balances), nil
	}
	var pl ProfitAndLoss
	if err := s.cached(ctx, tenantID, &pl, loader, "pl", itoa(periodID)); err != nil {
		return ProfitAndLoss{}, err
	}
	return pl, nil
}

// BalanceSheet builds the balance sheet as of one fiscal period.
func (s *Service) BalanceSheet(ctx context.Context, tenantID, periodID int64) (BalanceSheet, error) {
	loader := func(ctx context.Context) (interface{}, error) {
		balances, err := s.repo.PeriodBalances(ctx, tenantID, periodID)
		if err != nil {
			return nil, err
		}
		return BuildBalanceSheet(balances), nil
	}
	var bs BalanceSheet
	if err := s.cached(ctx, tenantID, &bs, loader, "bs", itoa(periodID)); err != nil {
		return BalanceSheet{}, err
	}
	return bs, nil
}

// CashFlow builds the cash movement report for one fiscal period.
func (s *Service) CashFlow(ctx context.Context, tenantID, periodID int64) (CashFlow, error) {
	loader := func(ctx context.Context) (interface{}, error) {
		balances, err := s.repo.CashBalances(ctx, tenantID, periodID)
		if err != nil {
			return nil, err
		}
		return BuildCashFlow(balances), nil
	}
	var cf CashFlow
	if err := s.cached(ctx, tenantID, &cf, loader, "cf", itoa(periodID)); err != nil {
		return CashFlow{}, err
	}
	return cf, nil
}

// GeneralLedgerReport returns account activity for a date range. GL output is
// not cached; the line detail makes hit rates poor.
func (s *Service) GeneralLedgerReport(ctx context.Context, tenantID, accountID int64, from, to time.Time) (GeneralLedger, error) {
	return s.repo.GeneralLedger(ctx, tenantID, accountID, from, to)
}

func (s *Service) cached(ctx context.Context, tenantID int64, dest interface{}, loader func(context.Context) (interface{}, error), parts ...string) error {
	keyParts := append([]string{"reports", itoa(tenantID)}, parts...)
	key, err := s.cache.BuildKey(ctx, tenantID, keyParts...)
	if err != nil {
		return err
	}
	return s.cache.FetchJSON(ctx, key, dest, loader)
}

func itoa(n int64) string {
	return fmt.Sprintf("%d", n)
}
