package periods

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas-erp/atlas-erp/internal/ledger/shared"
)

type mockRepository struct {
	nextID  int64
	periods map[int64]Period
}

func newMockRepository() *mockRepository {
	return &mockRepository{nextID: 1, periods: make(map[int64]Period)}
}

func (m *mockRepository) Create(_ context.Context, period Period) (Period, error) {
	for _, existing := range m.periods {
		if existing.TenantID != period.TenantID {
			continue
		}
		if !period.StartDate.After(existing.EndDate) && !period.EndDate.Before(existing.StartDate) {
			return Period{}, shared.ErrPeriodOverlap
		}
	}
	period.ID = m.nextID
	m.nextID++
	m.periods[period.ID] = period
	return period, nil
}

func (m *mockRepository) Get(_ context.Context, tenantID, id int64) (Period, error) {
	period, ok := m.periods[id]
	if !ok || period.TenantID != tenantID {
		return Period{}, shared.ErrPeriodNotFound
	}
	return period, nil
}

func (m *mockRepository) List(_ context.Context, tenantID int64) ([]Period, error) {
	var out []Period
	for _, period := range m.periods {
		if period.TenantID == tenantID {
			out = append(out, period)
		}
	}
	return out, nil
}

func (m *mockRepository) FindByDate(_ context.Context, tenantID int64, date time.Time) (Period, error) {
	for _, period := range m.periods {
		if period.TenantID == tenantID && period.Contains(date) {
			return period, nil
		}
	}
	return Period{}, shared.ErrPeriodNotFound
}

func (m *mockRepository) Transition(_ context.Context, tenantID, id int64, fn func(Period) (Period, error)) (Period, error) {
	period, ok := m.periods[id]
	if !ok || period.TenantID != tenantID {
		return Period{}, shared.ErrPeriodNotFound
	}
	next, err := fn(period)
	if err != nil {
		return Period{}, err
	}
	m.periods[id] = next
	return next, nil
}

func mustCreate(t *testing.T, svc *Service, tenantID int64, code, start, end string) Period {
	t.Helper()
	period, err := svc.Create(context.Background(), tenantID, "tester", CreatePeriodRequest{
		Code:      code,
		Name:      code,
		StartDate: start,
		EndDate:   end,
	})
	require.NoError(t, err)
	return period
}

func TestServiceCreateOverlap(t *testing.T) {
	svc := NewService(newMockRepository(), nil)

	mustCreate(t, svc, 1, "2026-01", "2026-01-01", "2026-01-31")

	_, err := svc.Create(context.Background(), 1, "tester", CreatePeriodRequest{
		Code:      "2026-01b",
		Name:      "January again",
		StartDate: "2026-01-15",
		EndDate:   "2026-02-15",
	})
	require.ErrorIs(t, err, shared.ErrPeriodOverlap)

	// Adjacent windows do not overlap.
	mustCreate(t, svc, 1, "2026-02", "2026-02-01", "2026-02-28")

	// A different tenant can reuse the same window.
	mustCreate(t, svc, 2, "2026-01", "2026-01-01", "2026-01-31")
}

func TestServiceCreateRejectsInvertedDates(t *testing.T) {
	svc := NewService(newMockRepository(), nil)

	_, err := svc.Create(context.Background(), 1, "tester", CreatePeriodRequest{
		Code:      "bad",
		Name:      "Bad",
		StartDate: "2026-02-01",
		EndDate:   "2026-01-01",
	})
	require.ErrorIs(t, err, shared.ErrInvalidLine)
}

func TestServiceCloseAndLock(t *testing.T) {
	svc := NewService(newMockRepository(), nil)
	period := mustCreate(t, svc, 1, "2026-01", "2026-01-01", "2026-01-31")

	// Lock before close is rejected.
	_, err := svc.Lock(context.Background(), 1, period.ID, "tester")
	require.ErrorIs(t, err, shared.ErrInvalidPeriodTransition)

	closed, err := svc.Close(context.Background(), 1, period.ID, "tester")
	require.NoError(t, err)
	assert.Equal(t, PeriodStatusClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)

	// Closing again is idempotent.
	again, err := svc.Close(context.Background(), 1, period.ID, "tester")
	require.NoError(t, err)
	assert.Equal(t, closed.ClosedAt, again.ClosedAt)

	locked, err := svc.Lock(context.Background(), 1, period.ID, "tester")
	require.NoError(t, err)
	assert.Equal(t, PeriodStatusLocked, locked.Status)
	require.NotNil(t, locked.LockedBy)
	assert.Equal(t, "tester", *locked.LockedBy)

	// Locking again is idempotent; closing a locked period is rejected.
	_, err = svc.Lock(context.Background(), 1, period.ID, "tester")
	require.NoError(t, err)
	_, err = svc.Close(context.Background(), 1, period.ID, "tester")
	require.ErrorIs(t, err, shared.ErrInvalidPeriodTransition)
}

func TestServiceFindByDate(t *testing.T) {
	svc := NewService(newMockRepository(), nil)
	period := mustCreate(t, svc, 1, "2026-01", "2026-01-01", "2026-01-31")

	found, err := svc.FindByDate(context.Background(), 1, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, period.ID, found.ID)

	_, err = svc.FindByDate(context.Background(), 1, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.ErrorIs(t, err, shared.ErrPeriodNotFound)
}
