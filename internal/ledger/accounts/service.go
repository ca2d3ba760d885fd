package accounts

import (
	"context"
	"fmt"
	"time"

	"github.com/atlas-erp/atlas-erp/internal/ledger/shared"
	internalshared "github.com/atlas-erp/atlas-erp/internal/shared"
)

// AuditPort records registry changes for compliance.
type AuditPort interface {
	Record(ctx context.Context, log internalshared.AuditLog) error
}

// Service manages the chart of accounts.
type Service struct {
	repo  Repository
	audit AuditPort
	now   func() time.Time
}

// NewService constructs the account registry service.
func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Create registers a new account. The code must be unique per tenant.
func (s *Service) Create(ctx context.Context, tenantID int64, actor string, req CreateAccountRequest) (Account, error) {
	accountType := AccountType(req.Type)
	if !accountType.Valid() {
		return Account{}, fmt.Errorf("%w: unknown account type %q", shared.ErrInvalidLine, req.Type)
	}
	account := Account{
		TenantID:    tenantID,
		Code:        req.Code,
		Name:        req.Name,
		Type:        accountType,
		SubType:     req.SubType,
		Description: req.Description,
		IsActive:    true,
	}
	created, err := s.repo.Create(ctx, account)
	if err != nil {
		return Account{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, internalshared.AuditLog{
			TenantID: tenantID,
			Actor:    actor,
			Action:   "account.create",
			Entity:   "account",
			EntityID: fmt.Sprintf("%d", created.ID),
			Meta:     map[string]any{"code": created.Code, "type": string(created.Type)},
			At:       s.now(),
		})
	}
	return created, nil
}

// Get retrieves a single account.
func (s *Service) Get(ctx context.Context, tenantID, id int64) (Account, error) {
	return s.repo.Get(ctx, tenantID, id)
}

// List returns tenant accounts ordered by code.
func (s *Service) List(ctx context.Context, tenantID int64, filter ListFilter) ([]Account, error) {
	return s.repo.List(ctx, tenantID, filter)
}

// Update applies a partial update. Deactivation is the only way to retire an
// account; rows are never deleted.
func (s *Service) Update(ctx context.Context, tenantID, id int64, actor string, req UpdateAccountRequest) (Account, error) {
	account, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return Account{}, err
	}
	deactivated := false
	if req.Name != nil {
		account.Name = *req.Name
	}
	if req.Description != nil {
		account.Description = *req.Description
	}
	if req.IsActive != nil {
		deactivated = account.IsActive && !*req.IsActive
		account.IsActive = *req.IsActive
	}
	updated, err := s.repo.Update(ctx, account)
	if err != nil {
		return Account{}, err
	}
	if s.audit != nil && deactivated {
		_ = s.audit.Record(ctx, internalshared.AuditLog{
			TenantID: tenantID,
			Actor:    actor,
			Action:   "account.deactivate",
			Entity:   "account",
			EntityID: fmt.Sprintf("%d", updated.ID),
			Meta:     map[string]any{"code": updated.Code},
			At:       s.now(),
		})
	}
	return updated, nil
}
