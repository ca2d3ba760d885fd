package periods

import (
	"context"
	"fmt"
	"time"

	"github.com/atlas-erp/atlas-erp/internal/ledger/shared"
	internalshared "github.com/atlas-erp/atlas-erp/internal/shared"
)

const dateLayout = "2006-01-02"

// AuditPort records period lifecycle changes.
type AuditPort interface {
	Record(ctx context.Context, log internalshared.AuditLog) error
}

// Service manages the fiscal calendar.
type Service struct {
	repo  Repository
	audit AuditPort
	now   func() time.Time
}

// NewService constructs the period service.
func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Create opens a new fiscal period. Windows must not overlap existing
// periods for the tenant, regardless of their status.
func (s *Service) Create(ctx context.Context, tenantID int64, actor string, req CreatePeriodRequest) (Period, error) {
	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		return Period{}, fmt.Errorf("%w: bad start date", shared.ErrInvalidLine)
	}
	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		return Period{}, fmt.Errorf("%w: bad end date", shared.ErrInvalidLine)
	}
	if end.Before(start) {
		return Period{}, fmt.Errorf("%w: end date precedes start date", shared.ErrInvalidLine)
	}
	period, err := s.repo.Create(ctx, Period{
		TenantID:  tenantID,
		Code:      req.Code,
		Name:      req.Name,
		StartDate: start,
		EndDate:   end,
		Status:    PeriodStatusOpen,
	})
	if err != nil {
		return Period{}, err
	}
	s.record(ctx, tenantID, actor, "period.create", period, nil)
	return period, nil
}

// Get retrieves a period by id.
func (s *Service) Get(ctx context.Context, tenantID, id int64) (Period, error) {
	return s.repo.Get(ctx, tenantID, id)
}

// List returns periods ordered by start date.
func (s *Service) List(ctx context.Context, tenantID int64) ([]Period, error) {
	return s.repo.List(ctx, tenantID)
}

// FindByDate returns the period covering the date.
func (s *Service) FindByDate(ctx context.Context, tenantID int64, date time.Time) (Period, error) {
	return s.repo.FindByDate(ctx, tenantID, date)
}

// Close moves an open period to CLOSED. Closing a closed period is a no-op;
// closing a locked period is rejected.
func (s *Service) Close(ctx context.Context, tenantID, id int64, actor string) (Period, error) {
	var transitioned bool
	period, err := s.repo.Transition(ctx, tenantID, id, func(p Period) (Period, error) {
		switch p.Status {
		case PeriodStatusClosed:
			return p, nil
		case PeriodStatusLocked:
			return Period{}, fmt.Errorf("%w: period %s is locked", shared.ErrInvalidPeriodTransition, p.Code)
		}
		now := s.now()
		p.Status = PeriodStatusClosed
		p.ClosedAt = &now
		transitioned = true
		return p, nil
	})
	if err != nil {
		return Period{}, err
	}
	if transitioned {
		s.record(ctx, tenantID, actor, "period.close", period, nil)
	}
	return period, nil
}

// Lock moves a closed period to LOCKED. Locking a locked period is a no-op.
// An open period cannot be locked directly; it must be closed first.
func (s *Service) Lock(ctx context.Context, tenantID, id int64, actor string) (Period, error) {
	var transitioned bool
	period, err := s.repo.Transition(ctx, tenantID, id, func(p Period) (Period, error) {
		switch p.Status {
		case PeriodStatusLocked:
			return p, nil
		case PeriodStatusOpen:
			return Period{}, fmt.Errorf("%w: period %s must be closed before locking", shared.ErrInvalidPeriodTransition, p.Code)
		}
		now := s.now()
		p.Status = PeriodStatusLocked
		p.LockedAt = &now
		p.LockedBy = &actor
		transitioned = true
		return p, nil
	})
	if err != nil {
		return Period{}, err
	}
	if transitioned {
		s.record(ctx, tenantID, actor, "period.lock", period, nil)
	}
	return period, nil
}

func (s *Service) record(ctx context.Context, tenantID int64, actor, action string, period Period, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if meta == nil {
		meta = map[string]any{}
	}
	meta["code"] = period.Code
	meta["status"] = string(period.Status)
	_ = s.audit.Record(ctx, internalshared.AuditLog{
		TenantID: tenantID,
		Actor:    actor,
		Action:   action,
		Entity:   "fiscal_period",
		EntityID: fmt.Sprintf("%d", period.ID),
		Meta:     meta,
		At:       s.now(),
	})
}
