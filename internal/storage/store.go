// Package storage provides the durable entry store behind the ledger:
// a common interface with in-memory, SQLite and Postgres implementations.
package storage

import (
	"context"
	"errors"

	"fintrack/internal/core"
)

// ErrNotFound is returned when no entry with the requested id exists.
// Callers also map ownership mismatches to this error so that "missing"
// and "not yours" are indistinguishable at the API surface.
var ErrNotFound = errors.New("entry not found")

// Sort selects the result ordering of Find.
type Sort int

const (
	// SortNone leaves the store's natural order.
	SortNone Sort = iota
	// SortCreatedDesc orders newest first. Used by the filter listing.
	SortCreatedDesc
)

// EntryStore is the persistence contract the rest of the service depends
// on. Implementations decide their own timeout and retry policy; callers
// pass a context and impose none of their own.
type EntryStore interface {
	Find(ctx context.Context, p core.Predicate, sort Sort) ([]core.Entry, error)
	FindByID(ctx context.Context, id string) (core.Entry, error)
	Create(ctx context.Context, e core.NewEntry) (core.Entry, error)
	Update(ctx context.Context, id string, patch core.EntryPatch) (core.Entry, error)
	Delete(ctx context.Context, id string) error
}
