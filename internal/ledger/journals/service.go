package journals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atlas-erp/atlas-erp/internal/ledger/accounts"
	"github.com/atlas-erp/atlas-erp/internal/ledger/periods"
	"github.com/atlas-erp/atlas-erp/internal/ledger/shared"
	internalshared "github.com/atlas-erp/atlas-erp/internal/shared"
)

// PostingObserver receives posting outcomes for metrics.
type PostingObserver interface {
	ObservePosting(outcome string)
	ObserveRejection(reason string)
}

// CacheInvalidator bumps cached report versions after a balance mutation.
type CacheInvalidator interface {
	Bump(ctx context.Context, tenantID int64) error
}

// Service coordinates drafting, posting, rejecting, and reversing journal
// entries.
type Service struct {
	repo     RepositoryPort
	observer PostingObserver
	cache    CacheInvalidator
	now      func() time.Time
}

// NewService constructs the journal service.
func NewService(repo RepositoryPort, observer PostingObserver, cache CacheInvalidator) *Service {
	return &Service{repo: repo, observer: observer, cache: cache, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateEntry validates and persists a balanced draft. Drafts do not touch
// account balances until posted.
func (s *Service) CreateEntry(ctx context.Context, tenantID int64, actor string, req CreateEntryRequest) (JournalEntry, error) {
	if err := req.Validate(); err != nil {
		return JournalEntry{}, err
	}
	entryDate, err := req.ParsedDate()
	if err != nil {
		return JournalEntry{}, fmt.Errorf("%w: bad entry date", shared.ErrInvalidLine)
	}
	var entry JournalEntry
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ids := make([]int64, 0, len(req.Lines))
		for _, line := range req.Lines {
			ids = append(ids, line.AccountID)
		}
		known, err := tx.GetAccountsByIDs(ctx, tenantID, ids)
		if err != nil {
			return err
		}
		for _, line := range req.Lines {
			account, ok := known[line.AccountID]
			if !ok {
				return fmt.Errorf("%w: account %d", shared.ErrAccountNotFound, line.AccountID)
			}
			if !account.IsActive {
				return fmt.Errorf("%w: account %s", shared.ErrAccountInactive, account.Code)
			}
		}
		inserted, err := tx.InsertEntry(ctx, JournalEntry{
			TenantID:      tenantID,
			Description:   req.Description,
			EntryDate:     entryDate,
			Status:        EntryStatusDraft,
			Reference:     req.Reference,
			ReferenceType: req.ReferenceType,
		})
		if err != nil {
			return err
		}
		lines := make([]JournalLine, 0, len(req.Lines))
		for _, line := range req.Lines {
			lines = append(lines, JournalLine{
				AccountID: line.AccountID,
				Side:      accounts.Side(line.Side),
				Amount:    line.Amount,
				Memo:      line.Memo,
			})
		}
		inserted.Lines, err = tx.InsertLines(ctx, inserted.ID, lines)
		if err != nil {
			return err
		}
		if err := tx.InsertAuditLog(ctx, s.auditLog(tenantID, actor, "journal.create", inserted.ID, map[string]any{
			"number": inserted.Number,
		})); err != nil {
			return err
		}
		entry = inserted
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

// Post moves a draft to POSTED and applies its lines to the account balances
// of the period covering the entry date. The period must be OPEN. Everything
// commits atomically with the posting audit record.
func (s *Service) Post(ctx context.Context, tenantID, entryID int64, actor string) (JournalEntry, error) {
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, tenantID, entryID)
		if err != nil {
			return err
		}
		if current.Status != EntryStatusDraft {
			return fmt.Errorf("%w: entry %d is %s", shared.ErrInvalidStatus, current.ID, current.Status)
		}
		lines, err := tx.GetLines(ctx, current.ID)
		if err != nil {
			return err
		}
		period, err := tx.FindPeriodByDateForUpdate(ctx, tenantID, current.EntryDate)
		if err != nil {
			return err
		}
		if period.Status != periods.PeriodStatusOpen {
			return fmt.Errorf("%w: period %s is %s", shared.ErrPeriodClosed, period.Code, period.Status)
		}
		if err := verifyBalanced(lines); err != nil {
			return err
		}
		if err := s.applyLines(ctx, tx, tenantID, period.ID, lines); err != nil {
			return err
		}
		now := s.now()
		if err := tx.UpdateEntryStatus(ctx, tenantID, current.ID, EntryStatusPosted, &period.ID, &actor, &now); err != nil {
			return err
		}
		if current.Reference != nil {
			if err := tx.LinkSource(ctx, tenantID, current.ReferenceType, *current.Reference, current.ID); err != nil {
				return err
			}
		}
		if err := tx.InsertAuditLog(ctx, s.auditLog(tenantID, actor, "journal.post", current.ID, map[string]any{
			"number": current.Number,
			"period": period.Code,
		})); err != nil {
			return err
		}
		current.Status = EntryStatusPosted
		current.PeriodID = &period.ID
		current.PostedBy = &actor
		current.PostedAt = &now
		current.Lines = lines
		entry = current
		return nil
	})
	if err != nil {
		s.observePostingError(err)
		return JournalEntry{}, err
	}
	if s.observer != nil {
		s.observer.ObservePosting("posted")
	}
	s.invalidate(ctx, tenantID)
	return entry, nil
}

// Reject moves a draft to REJECTED. Rejected entries never touch balances.
func (s *Service) Reject(ctx context.Context, tenantID, entryID int64, actor, reason string) (JournalEntry, error) {
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, tenantID, entryID)
		if err != nil {
			return err
		}
		if current.Status != EntryStatusDraft {
			return fmt.Errorf("%w: entry %d is %s", shared.ErrInvalidStatus, current.ID, current.Status)
		}
		if err := tx.UpdateEntryStatus(ctx, tenantID, current.ID, EntryStatusRejected, nil, nil, nil); err != nil {
			return err
		}
		if err := tx.InsertAuditLog(ctx, s.auditLog(tenantID, actor, "journal.reject", current.ID, map[string]any{
			"number": current.Number,
			"reason": reason,
		})); err != nil {
			return err
		}
		current.Status = EntryStatusRejected
		entry = current
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

// Reverse posts a mirror-image entry for a posted original. The original
// stays POSTED; the reversal links back through ReversesID. When the
// original's period is no longer open the reversal falls forward into the
// next open period.
func (s *Service) Reverse(ctx context.Context, tenantID, entryID int64, actor, description string) (JournalEntry, error) {
	var reversal JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		original, err := tx.GetEntryForUpdate(ctx, tenantID, entryID)
		if err != nil {
			return err
		}
		if original.Status != EntryStatusPosted {
			return fmt.Errorf("%w: entry %d is %s", shared.ErrInvalidStatus, original.ID, original.Status)
		}
		lines, err := tx.GetLines(ctx, original.ID)
		if err != nil {
			return err
		}
		period, err := tx.FindPeriodByDateForUpdate(ctx, tenantID, original.EntryDate)
		if err != nil {
			return err
		}
		targetDate := original.EntryDate
		if period.Status != periods.PeriodStatusOpen {
			next, err := tx.FindNextOpenPeriodAfter(ctx, tenantID, period.EndDate.AddDate(0, 0, 1))
			if err != nil {
				if errors.Is(err, shared.ErrPeriodNotFound) {
					return fmt.Errorf("%w: no open period for reversal", shared.ErrPeriodClosed)
				}
				return err
			}
			period = next
			targetDate = next.StartDate
		}
		mirrored := reverseLines(lines)
		now := s.now()
		inserted, err := tx.InsertEntry(ctx, JournalEntry{
			TenantID:    tenantID,
			Description: defaultReversalDescription(description, original.Number),
			EntryDate:   targetDate,
			Status:      EntryStatusDraft,
			ReversesID:  &original.ID,
		})
		if err != nil {
			return err
		}
		inserted.Lines, err = tx.InsertLines(ctx, inserted.ID, mirrored)
		if err != nil {
			return err
		}
		if err := s.applyLines(ctx, tx, tenantID, period.ID, inserted.Lines); err != nil {
			return err
		}
		if err := tx.UpdateEntryStatus(ctx, tenantID, inserted.ID, EntryStatusPosted, &period.ID, &actor, &now); err != nil {
			return err
		}
		if err := tx.InsertAuditLog(ctx, s.auditLog(tenantID, actor, "journal.reverse", original.ID, map[string]any{
			"number":          original.Number,
			"reversal_id":     inserted.ID,
			"reversal_number": inserted.Number,
		})); err != nil {
			return err
		}
		inserted.Status = EntryStatusPosted
		inserted.PeriodID = &period.ID
		inserted.PostedBy = &actor
		inserted.PostedAt = &now
		reversal = inserted
		return nil
	})
	if err != nil {
		s.observePostingError(err)
		return JournalEntry{}, err
	}
	if s.observer != nil {
		s.observer.ObservePosting("reversed")
	}
	s.invalidate(ctx, tenantID)
	return reversal, nil
}

// Get loads an entry with its lines.
func (s *Service) Get(ctx context.Context, tenantID, entryID int64) (JournalEntry, error) {
	return s.repo.GetEntryWithLines(ctx, tenantID, entryID)
}

// List returns entries with pagination metadata.
func (s *Service) List(ctx context.Context, tenantID int64, filter ListFilter) ([]JournalEntry, internalshared.Pagination, error) {
	entries, total, err := s.repo.List(ctx, tenantID, filter)
	if err != nil {
		return nil, internalshared.Pagination{}, err
	}
	return entries, internalshared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// AuditTrail returns the audit records for one entry.
func (s *Service) AuditTrail(ctx context.Context, tenantID, entryID int64) ([]internalshared.AuditLog, error) {
	if _, err := s.repo.GetEntryWithLines(ctx, tenantID, entryID); err != nil {
		return nil, err
	}
	return s.repo.ListAuditTrail(ctx, tenantID, entryID)
}

// applyLines folds each line into the per-period balance of its account.
func (s *Service) applyLines(ctx context.Context, tx TxRepository, tenantID, periodID int64, lines []JournalLine) error {
	for _, line := range lines {
		debit, credit := line.SignedDelta()
		if err := tx.UpsertAccountBalance(ctx, tenantID, line.AccountID, periodID, debit, credit); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) auditLog(tenantID int64, actor, action string, entryID int64, meta map[string]any) internalshared.AuditLog {
	return internalshared.AuditLog{
		TenantID: tenantID,
		Actor:    actor,
		Action:   action,
		Entity:   "journal_entry",
		EntityID: itoa64(entryID),
		Meta:     meta,
		At:       s.now(),
	}
}

func (s *Service) invalidate(ctx context.Context, tenantID int64) {
	if s.cache != nil {
		_ = s.cache.Bump(ctx, tenantID)
	}
}

func (s *Service) observePostingError(err error) {
	if s.observer == nil {
		return
	}
	switch {
	case errors.Is(err, shared.ErrPeriodClosed):
		s.observer.ObserveRejection("period_closed")
	case errors.Is(err, shared.ErrInvalidStatus):
		s.observer.ObserveRejection("invalid_status")
	case errors.Is(err, shared.ErrUnbalanced):
		s.observer.ObserveRejection("unbalanced")
	default:
		s.observer.ObserveRejection("error")
	}
	s.observer.ObservePosting("failed")
}

// verifyBalanced re-checks the balance invariant at posting time. Drafts are
// validated on create, but the stored lines are the source of truth.
func verifyBalanced(lines []JournalLine) error {
	if len(lines) < 2 {
		return shared.ErrTooFewLines
	}
	debit, credit := lines[0].SignedDelta()
	for _, line := range lines[1:] {
		d, c := line.SignedDelta()
		debit = debit.Add(d)
		credit = credit.Add(c)
	}
	if !debit.Equal(credit) {
		return fmt.Errorf("%w: debits %s != credits %s", shared.ErrUnbalanced, debit.String(), credit.String())
	}
	return nil
}

func defaultReversalDescription(description string, number int64) string {
	if description != "" {
		return description
	}
	return fmt.Sprintf("Reversal of JE %d", number)
}
