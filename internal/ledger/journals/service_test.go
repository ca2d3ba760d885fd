package journals

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas-erp/atlas-erp/internal/ledger/accounts"
	"github.com/atlas-erp/atlas-erp/internal/ledger/periods"
	"github.com/atlas-erp/atlas-erp/internal/ledger/shared"
	internalshared "github.com/atlas-erp/atlas-erp/internal/shared"
)

type balanceKey struct {
	accountID int64
	periodID  int64
}

type balance struct {
	debit  decimal.Decimal
	credit decimal.Decimal
}

// mockRepository implements RepositoryPort and TxRepository in memory.
// WithTx is not transactional; tests only exercise logic, not rollback.
type mockRepository struct {
	nextEntryID int64
	nextLineID  int64
	accounts    map[int64]accounts.Account
	periods     map[int64]periods.Period
	entries     map[int64]JournalEntry
	lines       map[int64][]JournalLine
	balances    map[balanceKey]balance
	sources     map[string]int64
	audits      []internalshared.AuditLog
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		nextEntryID: 1,
		nextLineID:  1,
		accounts:    make(map[int64]accounts.Account),
		periods:     make(map[int64]periods.Period),
		entries:     make(map[int64]JournalEntry),
		lines:       make(map[int64][]JournalLine),
		balances:    make(map[balanceKey]balance),
		sources:     make(map[string]int64),
	}
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *mockRepository) InsertEntry(_ context.Context, entry JournalEntry) (JournalEntry, error) {
	entry.ID = m.nextEntryID
	entry.Number = m.nextEntryID
	m.nextEntryID++
	entry.CreatedAt = time.Now()
	entry.UpdatedAt = entry.CreatedAt
	stored := entry
	stored.Lines = nil
	m.entries[entry.ID] = stored
	return entry, nil
}

func (m *mockRepository) InsertLines(_ context.Context, entryID int64, lines []JournalLine) ([]JournalLine, error) {
	out := make([]JournalLine, 0, len(lines))
	for idx, line := range lines {
		line.ID = m.nextLineID
		m.nextLineID++
		line.EntryID = entryID
		line.Position = idx
		out = append(out, line)
	}
	m.lines[entryID] = out
	return out, nil
}

func (m *mockRepository) GetEntryForUpdate(_ context.Context, tenantID, entryID int64) (JournalEntry, error) {
	entry, ok := m.entries[entryID]
	if !ok || entry.TenantID != tenantID {
		return JournalEntry{}, shared.ErrJournalNotFound
	}
	return entry, nil
}

func (m *mockRepository) GetLines(_ context.Context, entryID int64) ([]JournalLine, error) {
	return m.lines[entryID], nil
}

func (m *mockRepository) UpdateEntryStatus(_ context.Context, tenantID, entryID int64, status EntryStatus, periodID *int64, postedBy *string, postedAt *time.Time) error {
	entry, ok := m.entries[entryID]
	if !ok || entry.TenantID != tenantID {
		return shared.ErrJournalNotFound
	}
	entry.Status = status
	if periodID != nil {
		entry.PeriodID = periodID
	}
	if postedBy != nil {
		entry.PostedBy = postedBy
	}
	if postedAt != nil {
		entry.PostedAt = postedAt
	}
	m.entries[entryID] = entry
	return nil
}

func (m *mockRepository) GetAccountsByIDs(_ context.Context, tenantID int64, ids []int64) (map[int64]accounts.Account, error) {
	out := make(map[int64]accounts.Account)
	for _, id := range ids {
		if account, ok := m.accounts[id]; ok && account.TenantID == tenantID {
			out[id] = account
		}
	}
	return out, nil
}

func (m *mockRepository) FindPeriodByDateForUpdate(_ context.Context, tenantID int64, date time.Time) (periods.Period, error) {
	for _, period := range m.periods {
		if period.TenantID == tenantID && period.Contains(date) {
			return period, nil
		}
	}
	return periods.Period{}, shared.ErrPeriodNotFound
}

func (m *mockRepository) FindNextOpenPeriodAfter(_ context.Context, tenantID int64, date time.Time) (periods.Period, error) {
	var best *periods.Period
	for _, period := range m.periods {
		if period.TenantID != tenantID || period.Status != periods.PeriodStatusOpen || period.StartDate.Before(date) {
			continue
		}
		if best == nil || period.StartDate.Before(best.StartDate) {
			p := period
			best = &p
		}
	}
	if best == nil {
		return periods.Period{}, shared.ErrPeriodNotFound
	}
	return *best, nil
}

func (m *mockRepository) UpsertAccountBalance(_ context.Context, tenantID, accountID, periodID int64, debit, credit decimal.Decimal) error {
	key := balanceKey{accountID: accountID, periodID: periodID}
	b := m.balances[key]
	b.debit = b.debit.Add(debit)
	b.credit = b.credit.Add(credit)
	m.balances[key] = b
	return nil
}

func (m *mockRepository) LinkSource(_ context.Context, tenantID int64, referenceType string, reference uuid.UUID, entryID int64) error {
	key := referenceType + ":" + reference.String()
	if _, ok := m.sources[key]; ok {
		return shared.ErrSourceAlreadyLinked
	}
	m.sources[key] = entryID
	return nil
}

func (m *mockRepository) InsertAuditLog(_ context.Context, log internalshared.AuditLog) error {
	m.audits = append(m.audits, log)
	return nil
}

func (m *mockRepository) GetEntryWithLines(_ context.Context, tenantID, entryID int64) (JournalEntry, error) {
	entry, ok := m.entries[entryID]
	if !ok || entry.TenantID != tenantID {
		return JournalEntry{}, shared.ErrJournalNotFound
	}
	entry.Lines = m.lines[entryID]
	return entry, nil
}

func (m *mockRepository) List(_ context.Context, tenantID int64, filter ListFilter) ([]JournalEntry, int, error) {
	var out []JournalEntry
	for _, entry := range m.entries {
		if entry.TenantID != tenantID {
			continue
		}
		if filter.Status != nil && entry.Status != *filter.Status {
			continue
		}
		out = append(out, entry)
	}
	return out, len(out), nil
}

func (m *mockRepository) ListAuditTrail(_ context.Context, tenantID, entryID int64) ([]internalshared.AuditLog, error) {
	id := itoa64(entryID)
	var out []internalshared.AuditLog
	for _, log := range m.audits {
		if log.TenantID == tenantID && log.Entity == "journal_entry" && log.EntityID == id {
			out = append(out, log)
		}
	}
	return out, nil
}

func seedAccounts(repo *mockRepository) {
	repo.accounts[1] = accounts.Account{ID: 1, TenantID: 1, Code: "1000", Name: "Cash", Type: accounts.AccountTypeAsset, IsActive: true}
	repo.accounts[2] = accounts.Account{ID: 2, TenantID: 1, Code: "4000", Name: "Sales Revenue", Type: accounts.AccountTypeRevenue, IsActive: true}
	repo.accounts[3] = accounts.Account{ID: 3, TenantID: 1, Code: "9000", Name: "Retired", Type: accounts.AccountTypeExpense, IsActive: false}
}

func seedPeriod(repo *mockRepository, id int64, status periods.PeriodStatus, start, end time.Time) {
	repo.periods[id] = periods.Period{
		ID:        id,
		TenantID:  1,
		Code:      start.Format("2006-01"),
		StartDate: start,
		EndDate:   end,
		Status:    status,
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func draftEntry(t *testing.T, svc *Service) JournalEntry {
	t.Helper()
	entry, err := svc.CreateEntry(context.Background(), 1, "alice", balancedRequest())
	require.NoError(t, err)
	require.Equal(t, EntryStatusDraft, entry.Status)
	return entry
}

func newTestService() (*Service, *mockRepository) {
	repo := newMockRepository()
	seedAccounts(repo)
	seedPeriod(repo, 10, periods.PeriodStatusOpen, date(2026, time.January, 1), date(2026, time.January, 31))
	return NewService(repo, nil, nil), repo
}

func TestCreateEntryUnknownAccount(t *testing.T) {
	svc, _ := newTestService()
	req := balancedRequest()
	req.Lines[0].AccountID = 99
	_, err := svc.CreateEntry(context.Background(), 1, "alice", req)
	require.ErrorIs(t, err, shared.ErrAccountNotFound)
}

func TestCreateEntryInactiveAccount(t *testing.T) {
	svc, _ := newTestService()
	req := balancedRequest()
	req.Lines[0].AccountID = 3
	_, err := svc.CreateEntry(context.Background(), 1, "alice", req)
	require.ErrorIs(t, err, shared.ErrAccountInactive)
}

func TestPostHappyPath(t *testing.T) {
	svc, repo := newTestService()
	entry := draftEntry(t, svc)

	// Drafts must not touch balances.
	assert.Empty(t, repo.balances)

	posted, err := svc.Post(context.Background(), 1, entry.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, EntryStatusPosted, posted.Status)
	require.NotNil(t, posted.PostedBy)
	assert.Equal(t, "bob", *posted.PostedBy)
	require.NotNil(t, posted.PeriodID)
	assert.Equal(t, int64(10), *posted.PeriodID)

	cash := repo.balances[balanceKey{accountID: 1, periodID: 10}]
	revenue := repo.balances[balanceKey{accountID: 2, periodID: 10}]
	assert.True(t, cash.debit.Equal(decimal.RequireFromString("150.00")))
	assert.True(t, cash.credit.IsZero())
	assert.True(t, revenue.credit.Equal(decimal.RequireFromString("150.00")))

	// The posting audit record commits with the balances.
	trail, err := svc.AuditTrail(context.Background(), 1, entry.ID)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, "journal.create", trail[0].Action)
	assert.Equal(t, "journal.post", trail[1].Action)
}

func TestPostTwiceRejected(t *testing.T) {
	svc, repo := newTestService()
	entry := draftEntry(t, svc)

	_, err := svc.Post(context.Background(), 1, entry.ID, "bob")
	require.NoError(t, err)
	_, err = svc.Post(context.Background(), 1, entry.ID, "bob")
	require.ErrorIs(t, err, shared.ErrInvalidStatus)

	// Balances applied exactly once.
	cash := repo.balances[balanceKey{accountID: 1, periodID: 10}]
	assert.True(t, cash.debit.Equal(decimal.RequireFromString("150.00")))
}

func TestPostClosedPeriod(t *testing.T) {
	svc, repo := newTestService()
	entry := draftEntry(t, svc)
	seedPeriod(repo, 10, periods.PeriodStatusClosed, date(2026, time.January, 1), date(2026, time.January, 31))

	_, err := svc.Post(context.Background(), 1, entry.ID, "bob")
	require.ErrorIs(t, err, shared.ErrPeriodClosed)

	// Entry stays a draft and no balance moved.
	current, err := svc.Get(context.Background(), 1, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, EntryStatusDraft, current.Status)
	assert.Empty(t, repo.balances)
}

func TestPostNoPeriod(t *testing.T) {
	svc, repo := newTestService()
	entry := draftEntry(t, svc)
	delete(repo.periods, 10)

	_, err := svc.Post(context.Background(), 1, entry.ID, "bob")
	require.ErrorIs(t, err, shared.ErrPeriodNotFound)
}

func TestPostLinksSourceOnce(t *testing.T) {
	svc, _ := newTestService()
	ref := uuid.New()

	first := balancedRequest()
	first.Reference = &ref
	first.ReferenceType = "invoice"
	entry, err := svc.CreateEntry(context.Background(), 1, "alice", first)
	require.NoError(t, err)
	_, err = svc.Post(context.Background(), 1, entry.ID, "alice")
	require.NoError(t, err)

	second := balancedRequest()
	second.Reference = &ref
	second.ReferenceType = "invoice"
	dup, err := svc.CreateEntry(context.Background(), 1, "alice", second)
	require.NoError(t, err)
	_, err = svc.Post(context.Background(), 1, dup.ID, "alice")
	require.ErrorIs(t, err, shared.ErrSourceAlreadyLinked)
}

func TestRejectDraft(t *testing.T) {
	svc, repo := newTestService()
	entry := draftEntry(t, svc)

	rejected, err := svc.Reject(context.Background(), 1, entry.ID, "bob", "wrong amounts")
	require.NoError(t, err)
	assert.Equal(t, EntryStatusRejected, rejected.Status)
	assert.Empty(t, repo.balances)

	// A rejected entry cannot be posted.
	_, err = svc.Post(context.Background(), 1, entry.ID, "bob")
	require.ErrorIs(t, err, shared.ErrInvalidStatus)
}

func TestReverseMirrorsLines(t *testing.T) {
	svc, repo := newTestService()
	entry := draftEntry(t, svc)
	_, err := svc.Post(context.Background(), 1, entry.ID, "bob")
	require.NoError(t, err)

	reversal, err := svc.Reverse(context.Background(), 1, entry.ID, "bob", "")
	require.NoError(t, err)
	assert.Equal(t, EntryStatusPosted, reversal.Status)
	require.NotNil(t, reversal.ReversesID)
	assert.Equal(t, entry.ID, *reversal.ReversesID)
	require.Len(t, reversal.Lines, 2)
	assert.Equal(t, accounts.SideCredit, reversal.Lines[0].Side)
	assert.Equal(t, accounts.SideDebit, reversal.Lines[1].Side)

	// The original remains posted.
	original, err := svc.Get(context.Background(), 1, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, EntryStatusPosted, original.Status)

	// Net balance for both accounts returns to zero.
	cash := repo.balances[balanceKey{accountID: 1, periodID: 10}]
	assert.True(t, cash.debit.Equal(cash.credit))
}

func TestReverseFallsForwardToOpenPeriod(t *testing.T) {
	svc, repo := newTestService()
	entry := draftEntry(t, svc)
	_, err := svc.Post(context.Background(), 1, entry.ID, "bob")
	require.NoError(t, err)

	seedPeriod(repo, 10, periods.PeriodStatusClosed, date(2026, time.January, 1), date(2026, time.January, 31))
	seedPeriod(repo, 11, periods.PeriodStatusOpen, date(2026, time.February, 1), date(2026, time.February, 28))

	reversal, err := svc.Reverse(context.Background(), 1, entry.ID, "bob", "")
	require.NoError(t, err)
	require.NotNil(t, reversal.PeriodID)
	assert.Equal(t, int64(11), *reversal.PeriodID)
	assert.Equal(t, date(2026, time.February, 1), reversal.EntryDate)

	// The mirrored amounts land in the open period, not the closed one.
	feb := repo.balances[balanceKey{accountID: 1, periodID: 11}]
	assert.True(t, feb.credit.Equal(decimal.RequireFromString("150.00")))
}

func TestReverseWithoutOpenPeriod(t *testing.T) {
	svc, repo := newTestService()
	entry := draftEntry(t, svc)
	_, err := svc.Post(context.Background(), 1, entry.ID, "bob")
	require.NoError(t, err)

	seedPeriod(repo, 10, periods.PeriodStatusLocked, date(2026, time.January, 1), date(2026, time.January, 31))

	_, err = svc.Reverse(context.Background(), 1, entry.ID, "bob", "")
	require.ErrorIs(t, err, shared.ErrPeriodClosed)
}

func TestReverseDraftRejected(t *testing.T) {
	svc, _ := newTestService()
	entry := draftEntry(t, svc)

	_, err := svc.Reverse(context.Background(), 1, entry.ID, "bob", "")
	require.ErrorIs(t, err, shared.ErrInvalidStatus)
}

func TestTenantIsolation(t *testing.T) {
	svc, _ := newTestService()
	entry := draftEntry(t, svc)

	_, err := svc.Post(context.Background(), 2, entry.ID, "mallory")
	require.ErrorIs(t, err, shared.ErrJournalNotFound)
	_, err = svc.Get(context.Background(), 2, entry.ID)
	require.ErrorIs(t, err, shared.ErrJournalNotFound)
}
