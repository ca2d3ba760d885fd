package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas-erp/atlas-erp/internal/ledger/shared"
	internalshared "github.com/atlas-erp/atlas-erp/internal/shared"
)

type mockRepository struct {
	nextID   int64
	accounts map[int64]Account
}

func newMockRepository() *mockRepository {
	return &mockRepository{nextID: 1, accounts: make(map[int64]Account)}
}

func (m *mockRepository) Create(_ context.Context, account Account) (Account, error) {
	for _, existing := range m.accounts {
		if existing.TenantID == account.TenantID && existing.Code == account.Code {
			return Account{}, shared.ErrDuplicateCode
		}
	}
	account.ID = m.nextID
	m.nextID++
	account.CreatedAt = time.Now()
	account.UpdatedAt = account.CreatedAt
	m.accounts[account.ID] = account
	return account, nil
}

func (m *mockRepository) Get(_ context.Context, tenantID, id int64) (Account, error) {
	account, ok := m.accounts[id]
	if !ok || account.TenantID != tenantID {
		return Account{}, shared.ErrAccountNotFound
	}
	return account, nil
}

func (m *mockRepository) List(_ context.Context, tenantID int64, filter ListFilter) ([]Account, error) {
	var out []Account
	for _, account := range m.accounts {
		if account.TenantID != tenantID {
			continue
		}
		if filter.Type != nil && account.Type != *filter.Type {
			continue
		}
		if filter.IsActive != nil && account.IsActive != *filter.IsActive {
			continue
		}
		out = append(out, account)
	}
	return out, nil
}

func (m *mockRepository) Update(_ context.Context, account Account) (Account, error) {
	if _, ok := m.accounts[account.ID]; !ok {
		return Account{}, shared.ErrAccountNotFound
	}
	account.UpdatedAt = time.Now()
	m.accounts[account.ID] = account
	return account, nil
}

type recordingAudit struct {
	logs []internalshared.AuditLog
}

func (r *recordingAudit) Record(_ context.Context, log internalshared.AuditLog) error {
	r.logs = append(r.logs, log)
	return nil
}

func TestServiceCreate(t *testing.T) {
	repo := newMockRepository()
	audit := &recordingAudit{}
	svc := NewService(repo, audit)

	account, err := svc.Create(context.Background(), 1, "alice", CreateAccountRequest{
		Code: "1000",
		Name: "Cash",
		Type: "ASSET",
	})
	require.NoError(t, err)
	assert.True(t, account.IsActive)
	assert.Equal(t, AccountTypeAsset, account.Type)
	assert.Equal(t, SideDebit, account.NormalBalance())
	require.Len(t, audit.logs, 1)
	assert.Equal(t, "account.create", audit.logs[0].Action)
	assert.Equal(t, "alice", audit.logs[0].Actor)
}

func TestServiceCreateRejectsUnknownType(t *testing.T) {
	svc := NewService(newMockRepository(), nil)

	_, err := svc.Create(context.Background(), 1, "alice", CreateAccountRequest{
		Code: "9999",
		Name: "Mystery",
		Type: "CONTRA",
	})
	require.ErrorIs(t, err, shared.ErrInvalidLine)
}

func TestServiceCreateDuplicateCode(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)

	_, err := svc.Create(context.Background(), 1, "alice", CreateAccountRequest{Code: "1000", Name: "Cash", Type: "ASSET"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), 1, "alice", CreateAccountRequest{Code: "1000", Name: "Petty Cash", Type: "ASSET"})
	require.ErrorIs(t, err, shared.ErrDuplicateCode)

	// Same code under a different tenant is allowed.
	_, err = svc.Create(context.Background(), 2, "alice", CreateAccountRequest{Code: "1000", Name: "Cash", Type: "ASSET"})
	require.NoError(t, err)
}

func TestServiceDeactivate(t *testing.T) {
	repo := newMockRepository()
	audit := &recordingAudit{}
	svc := NewService(repo, audit)

	account, err := svc.Create(context.Background(), 1, "alice", CreateAccountRequest{Code: "1000", Name: "Cash", Type: "ASSET"})
	require.NoError(t, err)

	inactive := false
	updated, err := svc.Update(context.Background(), 1, account.ID, "bob", UpdateAccountRequest{IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	require.Len(t, audit.logs, 2)
	assert.Equal(t, "account.deactivate", audit.logs[1].Action)
	assert.Equal(t, "bob", audit.logs[1].Actor)

	// Re-applying the same state is not another deactivation.
	_, err = svc.Update(context.Background(), 1, account.ID, "bob", UpdateAccountRequest{IsActive: &inactive})
	require.NoError(t, err)
	assert.Len(t, audit.logs, 2)
}

func TestServiceGetWrongTenant(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)

	account, err := svc.Create(context.Background(), 1, "alice", CreateAccountRequest{Code: "1000", Name: "Cash", Type: "ASSET"})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), 2, account.ID)
	require.ErrorIs(t, err, shared.ErrAccountNotFound)
}
