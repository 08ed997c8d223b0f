package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/events"
	"fintrack/internal/storage"
)

type recordingPublisher struct {
	published []events.EntryEvent
	fail      error
}

func (p *recordingPublisher) Publish(ctx context.Context, ev events.EntryEvent) error {
	if p.fail != nil {
		return p.fail
	}
	p.published = append(p.published, ev)
	return nil
}

// countingStore wraps a store and records how often Find is called.
type countingStore struct {
	storage.EntryStore
	finds int
}

func (c *countingStore) Find(ctx context.Context, p core.Predicate, s storage.Sort) ([]core.Entry, error) {
	c.finds++
	return c.EntryStore.Find(ctx, p, s)
}

func newService(t *testing.T) (*EntryService, *storage.MemoryStore, *recordingPublisher) {
	t.Helper()
	store := storage.NewMemoryStore()
	pub := &recordingPublisher{}
	return NewEntryService(store, pub), store, pub
}

func createAt(t *testing.T, store *storage.MemoryStore, svc *EntryService, e core.NewEntry, at time.Time) core.Entry {
	t.Helper()
	store.SetClock(func() time.Time { return at })
	entry, err := svc.Create(context.Background(), e)
	require.NoError(t, err)
	return entry
}

func TestCreateValidatesBeforeStore(t *testing.T) {
	svc, _, pub := newService(t)
	_, err := svc.Create(context.Background(), core.NewEntry{Owner: "u1"})
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, pub.published)
}

func TestCreatePublishesAuditEvent(t *testing.T) {
	svc, _, pub := newService(t)
	entry, err := svc.Create(context.Background(), core.NewEntry{
		Owner: "u1", Title: "paycheck", Amount: core.Money{Cents: 1000},
		Type: core.Income, Category: core.Salary,
	})
	require.NoError(t, err)
	require.Len(t, pub.published, 1)
	assert.Equal(t, events.ActionCreated, pub.published[0].Action)
	assert.Equal(t, entry.ID, pub.published[0].EntryID)
}

func TestCreateSucceedsWhenPublisherFails(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewEntryService(store, &recordingPublisher{fail: context.DeadlineExceeded})
	entry, err := svc.Create(context.Background(), core.NewEntry{
		Owner: "u1", Title: "paycheck", Amount: core.Money{Cents: 1000},
		Type: core.Income, Category: core.Salary,
	})
	require.NoError(t, err)
	_, err = store.FindByID(context.Background(), entry.ID)
	assert.NoError(t, err)
}

func TestUpdateRequiresOwnership(t *testing.T) {
	svc, store, _ := newService(t)
	entry := createAt(t, store, svc, core.NewEntry{
		Owner: "u1", Title: "groceries", Amount: core.Money{Cents: 500},
		Type: core.Expense, Category: core.Food,
	}, time.Now())

	title := "stolen"
	_, err := svc.Update(context.Background(), "u2", entry.ID, core.EntryPatch{Title: &title})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// The entry is untouched.
	got, err := store.FindByID(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "groceries", got.Title)
}

func TestUpdateCannotChangeOwnerOrCreatedAt(t *testing.T) {
	svc, store, _ := newService(t)
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	entry := createAt(t, store, svc, core.NewEntry{
		Owner: "u1", Title: "groceries", Amount: core.Money{Cents: 500},
		Type: core.Expense, Category: core.Food,
	}, at)

	title := "weekly shop"
	got, err := svc.Update(context.Background(), "u1", entry.ID, core.EntryPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "u1", got.Owner)
	assert.Equal(t, at.UTC(), got.CreatedAt)
	assert.Equal(t, title, got.Title)
}

func TestDeleteRequiresOwnershipAndPublishes(t *testing.T) {
	svc, store, pub := newService(t)
	entry := createAt(t, store, svc, core.NewEntry{
		Owner: "u1", Title: "groceries", Amount: core.Money{Cents: 500},
		Type: core.Expense, Category: core.Food,
	}, time.Now())

	assert.ErrorIs(t, svc.Delete(context.Background(), "u2", entry.ID), storage.ErrNotFound)
	require.NoError(t, svc.Delete(context.Background(), "u1", entry.ID))
	assert.ErrorIs(t, svc.Delete(context.Background(), "u1", entry.ID), storage.ErrNotFound)

	last := pub.published[len(pub.published)-1]
	assert.Equal(t, events.ActionDeleted, last.Action)
}

func TestPeriodReportValidation(t *testing.T) {
	inner := storage.NewMemoryStore()
	counting := &countingStore{EntryStore: inner}
	svc := NewEntryService(counting, nil)
	ctx := context.Background()

	cases := []struct {
		name       string
		start, end string
		field      string
	}{
		{"missing start", "", "2025-01-31", "startDate"},
		{"missing end", "2025-01-01", "", "endDate"},
		{"bad start", "not-a-date", "2025-01-31", "startDate"},
		{"bad end", "2025-01-01", "31/01/2025", "endDate"},
		{"out of order", "2025-02-01", "2025-01-01", "startDate"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.PeriodReport(ctx, "u1", tc.start, tc.end)
			var verr *core.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
	assert.Zero(t, counting.finds, "validation failures must never reach the store")
}

func TestPeriodReportInclusiveBounds(t *testing.T) {
	svc, store, _ := newService(t)
	createAt(t, store, svc, core.NewEntry{
		Owner: "u1", Title: "start day", Amount: core.Money{Cents: 100},
		Type: core.Income, Category: core.Salary,
	}, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	createAt(t, store, svc, core.NewEntry{
		Owner: "u1", Title: "end day", Amount: core.Money{Cents: 40},
		Type: core.Expense, Category: core.Food,
	}, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC))
	createAt(t, store, svc, core.NewEntry{
		Owner: "u1", Title: "outside", Amount: core.Money{Cents: 999},
		Type: core.Expense, Category: core.Food,
	}, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))

	report, err := svc.PeriodReport(context.Background(), "u1", "2025-01-01", "2025-01-31")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01", report.StartDate)
	assert.Equal(t, "2025-01-31", report.EndDate)
	assert.Equal(t, int64(100), report.TotalIncome)
	assert.Equal(t, int64(40), report.TotalExpense)
	assert.Equal(t, int64(60), report.Balance)
}

func TestMonthlyStats(t *testing.T) {
	svc, store, _ := newService(t)
	createAt(t, store, svc, core.NewEntry{
		Owner: "u1", Title: "paycheck", Amount: core.Money{Cents: 100},
		Type: core.Income, Category: core.Salary,
	}, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC))
	createAt(t, store, svc, core.NewEntry{
		Owner: "u1", Title: "groceries", Amount: core.Money{Cents: 40},
		Type: core.Expense, Category: core.Food,
	}, time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC))

	stats, err := svc.MonthlyStats(context.Background(), "u1", 2025)
	require.NoError(t, err)
	require.Len(t, stats, 12)
	assert.Equal(t, core.MonthStat{Month: 1, TotalIncome: 100, TotalExpense: 40, Balance: 60}, stats[0])
}

func TestSummaryAndCategoryStats(t *testing.T) {
	svc, store, _ := newService(t)
	createAt(t, store, svc, core.NewEntry{
		Owner: "u1", Title: "paycheck", Amount: core.Money{Cents: 150},
		Type: core.Income, Category: core.Salary,
	}, time.Now())
	createAt(t, store, svc, core.NewEntry{
		Owner: "u2", Title: "other user", Amount: core.Money{Cents: 999},
		Type: core.Income, Category: core.Salary,
	}, time.Now())

	sum, err := svc.Summary(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, core.Summary{TotalIncome: 150, Balance: 150}, sum)

	stats, err := svc.CategoryStats(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, core.CategoryStat{Total: 150, Count: 1}, stats[core.Salary])
}

// hookStore runs a callback after a Find returns, before the caller sees
// the result, to interleave a mutation with an aggregate read.
type hookStore struct {
	storage.EntryStore
	afterFind func()
}

func (h *hookStore) Find(ctx context.Context, p core.Predicate, s storage.Sort) ([]core.Entry, error) {
	entries, err := h.EntryStore.Find(ctx, p, s)
	if h.afterFind != nil {
		f := h.afterFind
		h.afterFind = nil
		f()
	}
	return entries, err
}

func TestSummaryReadRacingMutationDoesNotStickStale(t *testing.T) {
	hooked := &hookStore{EntryStore: storage.NewMemoryStore()}
	svc := NewEntryService(hooked, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, core.NewEntry{
		Owner: "u1", Title: "paycheck", Amount: core.Money{Cents: 150},
		Type: core.Income, Category: core.Salary,
	})
	require.NoError(t, err)

	// A second entry lands after the summary read has fetched its entries
	// but before the result is cached.
	hooked.afterFind = func() {
		_, err := svc.Create(ctx, core.NewEntry{
			Owner: "u1", Title: "bonus", Amount: core.Money{Cents: 50},
			Type: core.Income, Category: core.Salary,
		})
		require.NoError(t, err)
	}

	sum, err := svc.Summary(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(150), sum.TotalIncome)

	// The interleaved read must not have pinned its pre-mutation totals.
	sum, err = svc.Summary(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(200), sum.TotalIncome)
}

func TestSummaryCachedUntilMutation(t *testing.T) {
	inner := storage.NewMemoryStore()
	counting := &countingStore{EntryStore: inner}
	svc := NewEntryService(counting, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, core.NewEntry{
		Owner: "u1", Title: "paycheck", Amount: core.Money{Cents: 150},
		Type: core.Income, Category: core.Salary,
	})
	require.NoError(t, err)

	sum, err := svc.Summary(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(150), sum.TotalIncome)
	finds := counting.finds

	// A repeated read is served from the cache.
	_, err = svc.Summary(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, finds, counting.finds)

	// Any mutation drops the owner's cached aggregates.
	_, err = svc.Create(ctx, core.NewEntry{
		Owner: "u1", Title: "bonus", Amount: core.Money{Cents: 50},
		Type: core.Income, Category: core.Salary,
	})
	require.NoError(t, err)

	sum, err = svc.Summary(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(200), sum.TotalIncome)
	assert.Greater(t, counting.finds, finds)
}
