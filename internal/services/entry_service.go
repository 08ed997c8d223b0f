// Package services orchestrates ledger operations across the entry store
// and the audit event stream.
package services

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/events"
	"fintrack/internal/storage"
)

const (
	statsCacheSize = 256
	statsCacheTTL  = 30 * time.Second
)

// Publisher is the audit event sink. Publishing is best-effort: a failed
// publish is logged and never fails the ledger operation.
type Publisher interface {
	Publish(ctx context.Context, ev events.EntryEvent) error
}

// EntryService implements the ledger operations behind the HTTP surface.
// All validation happens before any store access.
type EntryService struct {
	store     storage.EntryStore
	publisher Publisher // nil when events are disabled

	// Per-owner aggregate caches. Keys carry a per-owner generation that
	// every mutation bumps, so a slow read racing a mutation can only ever
	// fill a key no later read will look up.
	summaries     *cache.TTLCache[core.Summary]
	categoryStats *cache.TTLCache[map[core.Category]core.CategoryStat]
	genMu         sync.Mutex
	generations   map[string]uint64
}

func NewEntryService(store storage.EntryStore, publisher Publisher) *EntryService {
	return &EntryService{
		store:         store,
		publisher:     publisher,
		summaries:     cache.NewTTLCache[core.Summary](statsCacheSize, statsCacheTTL),
		categoryStats: cache.NewTTLCache[map[core.Category]core.CategoryStat](statsCacheSize, statsCacheTTL),
		generations:   make(map[string]uint64),
	}
}

// List returns all of the owner's entries in store order.
func (s *EntryService) List(ctx context.Context, owner string) ([]core.Entry, error) {
	pred, err := core.NewFilter(owner).Build()
	if err != nil {
		return nil, err
	}
	return s.store.Find(ctx, pred, storage.SortNone)
}

// Create validates and stores a new entry, then emits an audit event.
func (s *EntryService) Create(ctx context.Context, e core.NewEntry) (core.Entry, error) {
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}
	entry, err := s.store.Create(ctx, e)
	if err != nil {
		return core.Entry{}, err
	}
	s.invalidateStats(entry.Owner)
	s.notify(ctx, events.ActionCreated, entry)
	return entry, nil
}

// Update applies a whitelisted patch to an entry the owner holds. Owner and
// creation timestamp are immutable; the patch cannot carry them.
func (s *EntryService) Update(ctx context.Context, owner, id string, patch core.EntryPatch) (core.Entry, error) {
	if err := patch.Validate(); err != nil {
		return core.Entry{}, err
	}
	if _, err := s.authorize(ctx, owner, id); err != nil {
		return core.Entry{}, err
	}
	entry, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return core.Entry{}, err
	}
	s.invalidateStats(entry.Owner)
	s.notify(ctx, events.ActionUpdated, entry)
	return entry, nil
}

// Delete removes an entry the owner holds. Deletion is final.
func (s *EntryService) Delete(ctx context.Context, owner, id string) error {
	entry, err := s.authorize(ctx, owner, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateStats(entry.Owner)
	s.notify(ctx, events.ActionDeleted, entry)
	return nil
}

// Filter builds the predicate and returns matching entries, newest first.
func (s *EntryService) Filter(ctx context.Context, f core.Filter) ([]core.Entry, error) {
	pred, err := f.Build()
	if err != nil {
		return nil, err
	}
	return s.store.Find(ctx, pred, storage.SortCreatedDesc)
}

// Summary folds all of the owner's entries into running totals. Results are
// cached per owner until the owner's next mutation or the TTL runs out.
func (s *EntryService) Summary(ctx context.Context, owner string) (core.Summary, error) {
	key := s.statsKey(owner)
	if sum, ok := s.summaries.Get(key); ok {
		return sum, nil
	}
	entries, err := s.List(ctx, owner)
	if err != nil {
		return core.Summary{}, err
	}
	sum := core.Summarize(entries)
	s.summaries.Put(key, sum)
	return sum, nil
}

// CategoryStats groups the owner's entries by category, cached like Summary.
func (s *EntryService) CategoryStats(ctx context.Context, owner string) (map[core.Category]core.CategoryStat, error) {
	key := s.statsKey(owner)
	if stats, ok := s.categoryStats.Get(key); ok {
		return stats, nil
	}
	entries, err := s.List(ctx, owner)
	if err != nil {
		return nil, err
	}
	stats := core.CategoryStats(entries)
	s.categoryStats.Put(key, stats)
	return stats, nil
}

// MonthlyStats returns the twelve-slot breakdown of the owner's entries for
// the given year.
func (s *EntryService) MonthlyStats(ctx context.Context, owner string, year int) ([]core.MonthStat, error) {
	pred, err := core.NewFilter(owner).WithYear(year).Build()
	if err != nil {
		return nil, err
	}
	entries, err := s.store.Find(ctx, pred, storage.SortNone)
	if err != nil {
		return nil, err
	}
	return core.MonthlyStats(entries, year), nil
}

// PeriodReport summarizes the owner's entries between two dates, inclusive
// on both ends. Both dates are required, must parse, and must be ordered;
// any violation fails before the store is touched.
func (s *EntryService) PeriodReport(ctx context.Context, owner, startDate, endDate string) (core.PeriodReport, error) {
	if startDate == "" {
		return core.PeriodReport{}, core.Invalid("startDate", "required")
	}
	if endDate == "" {
		return core.PeriodReport{}, core.Invalid("endDate", "required")
	}
	start, err := ParseDate(startDate)
	if err != nil {
		return core.PeriodReport{}, core.Invalid("startDate", "not a valid date")
	}
	end, err := ParseDate(endDate)
	if err != nil {
		return core.PeriodReport{}, core.Invalid("endDate", "not a valid date")
	}
	if start.After(end) {
		return core.PeriodReport{}, core.Invalid("startDate", "must not be after endDate")
	}

	pred, err := core.NewFilter(owner).WithStartDate(start).WithEndDate(end).Build()
	if err != nil {
		return core.PeriodReport{}, err
	}
	entries, err := s.store.Find(ctx, pred, storage.SortNone)
	if err != nil {
		return core.PeriodReport{}, err
	}
	return core.PeriodReport{
		StartDate: startDate,
		EndDate:   endDate,
		Summary:   core.Summarize(entries),
	}, nil
}

// authorize loads the entry and checks ownership. A missing entry and an
// entry owned by someone else are both reported as ErrNotFound so the API
// never reveals which one it was.
func (s *EntryService) authorize(ctx context.Context, owner, id string) (core.Entry, error) {
	entry, err := s.store.FindByID(ctx, id)
	if err != nil {
		return core.Entry{}, err
	}
	if entry.Owner != owner {
		return core.Entry{}, storage.ErrNotFound
	}
	return entry, nil
}

// statsKey returns the cache key for the owner's current generation.
func (s *EntryService) statsKey(owner string) string {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return owner + "#" + strconv.FormatUint(s.generations[owner], 10)
}

// invalidateStats retires the owner's current cache generation. The old
// entries are dropped eagerly; in-flight reads that still fill the retired
// key are harmless because no later read uses it.
func (s *EntryService) invalidateStats(owner string) {
	s.genMu.Lock()
	old := owner + "#" + strconv.FormatUint(s.generations[owner], 10)
	s.generations[owner]++
	s.genMu.Unlock()

	s.summaries.Invalidate(old)
	s.categoryStats.Invalidate(old)
}

func (s *EntryService) notify(ctx context.Context, action events.Action, entry core.Entry) {
	if s.publisher == nil {
		return
	}
	ev := events.NewEntryEvent(action, entry.ID, entry.Owner)
	if err := s.publisher.Publish(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish entry event",
			"action", action, "entry_id", entry.ID, "error", err)
	}
}

// ParseDate parses a report bound, accepting a plain date or an RFC 3339
// timestamp. Plain dates are taken as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
