package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

// MemoryStore is a mutex-guarded in-memory EntryStore. It evaluates
// predicates with core.Predicate.Matches, making it the reference
// implementation for the SQL backends and the default test double.
type MemoryStore struct {
	mu      sync.Mutex
	entries []core.Entry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// SetClock overrides the creation timestamp source. Test hook.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.now = now
}

func (m *MemoryStore) Find(ctx context.Context, p core.Predicate, s Sort) ([]core.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []core.Entry
	for _, e := range m.entries {
		if p.Matches(e) {
			result = append(result, e)
		}
	}
	if s == SortCreatedDesc {
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		})
	}
	return result, nil
}

func (m *MemoryStore) FindByID(ctx context.Context, id string) (core.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i := m.indexOf(id); i >= 0 {
		return m.entries[i], nil
	}
	return core.Entry{}, ErrNotFound
}

func (m *MemoryStore) Create(ctx context.Context, e core.NewEntry) (core.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := core.Entry{
		ID:        uuid.NewString(),
		Owner:     e.Owner,
		Title:     e.Title,
		Amount:    e.Amount,
		Type:      e.Type,
		Category:  e.Category,
		CreatedAt: m.now().UTC(),
	}
	m.entries = append(m.entries, entry)
	return entry, nil
}

func (m *MemoryStore) Update(ctx context.Context, id string, patch core.EntryPatch) (core.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(id)
	if i < 0 {
		return core.Entry{}, ErrNotFound
	}
	m.entries[i] = patch.Apply(m.entries[i])
	return m.entries[i], nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	m.entries = append(m.entries[:i], m.entries[i+1:]...)
	return nil
}

func (m *MemoryStore) indexOf(id string) int {
	for i, e := range m.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

var _ EntryStore = (*MemoryStore)(nil)
