package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"fintrack/internal/core"
)

// SQLiteStore is the default durable EntryStore. Timestamps are stored as
// unix nanoseconds so range comparisons and ordering work on plain integer
// columns.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunSQLiteMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

const sqliteColumns = "id, owner, title, amount_cents, entry_type, category, created_at"

func (s *SQLiteStore) Find(ctx context.Context, p core.Predicate, srt Sort) ([]core.Entry, error) {
	where, args := buildWhere(p, sqliteDialect)
	query := "SELECT " + sqliteColumns + " FROM entries " + where + orderClause(srt)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []core.Entry
	for rows.Next() {
		e, err := scanSQLiteEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

func (s *SQLiteStore) FindByID(ctx context.Context, id string) (core.Entry, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+sqliteColumns+" FROM entries WHERE id = ?", id)
	e, err := scanSQLiteEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entry{}, ErrNotFound
	}
	if err != nil {
		return core.Entry{}, fmt.Errorf("get entry: %w", err)
	}
	return e, nil
}

func (s *SQLiteStore) Create(ctx context.Context, e core.NewEntry) (core.Entry, error) {
	entry := core.Entry{
		ID:        uuid.NewString(),
		Owner:     e.Owner,
		Title:     e.Title,
		Amount:    e.Amount,
		Type:      e.Type,
		Category:  e.Category,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO entries ("+sqliteColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		entry.ID, entry.Owner, entry.Title, entry.Amount.Cents,
		string(entry.Type), string(entry.Category), entry.CreatedAt.UnixNano())
	if err != nil {
		return core.Entry{}, fmt.Errorf("insert entry: %w", err)
	}
	return entry, nil
}

func (s *SQLiteStore) Update(ctx context.Context, id string, patch core.EntryPatch) (core.Entry, error) {
	current, err := s.FindByID(ctx, id)
	if err != nil {
		return core.Entry{}, err
	}
	updated := patch.Apply(current)

	res, err := s.db.ExecContext(ctx,
		"UPDATE entries SET title = ?, amount_cents = ?, entry_type = ?, category = ? WHERE id = ?",
		updated.Title, updated.Amount.Cents, string(updated.Type), string(updated.Category), id)
	if err != nil {
		return core.Entry{}, fmt.Errorf("update entry: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.Entry{}, ErrNotFound
	}
	return updated, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM entries WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteEntry(row rowScanner) (core.Entry, error) {
	var (
		e         core.Entry
		typ, cat  string
		createdAt int64
	)
	if err := row.Scan(&e.ID, &e.Owner, &e.Title, &e.Amount.Cents, &typ, &cat, &createdAt); err != nil {
		return core.Entry{}, err
	}
	e.Type = core.EntryType(typ)
	e.Category = core.Category(cat)
	e.CreatedAt = time.Unix(0, createdAt).UTC()
	return e, nil
}

var _ EntryStore = (*SQLiteStore)(nil)
