package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"fintrack/internal/core"
)

// PostgresStore is the Postgres-backed EntryStore, selected with
// DATA_BACKEND=postgres.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(url string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunPostgresMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

const postgresColumns = "id, owner, title, amount_cents, entry_type, category, created_at"

func (s *PostgresStore) Find(ctx context.Context, p core.Predicate, srt Sort) ([]core.Entry, error) {
	where, args := buildWhere(p, postgresDialect)
	query := "SELECT " + postgresColumns + " FROM entries " + where + orderClause(srt)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []core.Entry
	for rows.Next() {
		e, err := scanPostgresEntry(rows)
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

func (s *PostgresStore) FindByID(ctx context.Context, id string) (core.Entry, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+postgresColumns+" FROM entries WHERE id = $1", id)
	e, err := scanPostgresEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entry{}, ErrNotFound
	}
	if err != nil {
		return core.Entry{}, fmt.Errorf("get entry: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) Create(ctx context.Context, e core.NewEntry) (core.Entry, error) {
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
		"INSERT INTO entries ("+postgresColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7)",
		entry.ID, entry.Owner, entry.Title, entry.Amount.Cents,
		string(entry.Type), string(entry.Category), entry.CreatedAt)
	if err != nil {
		return core.Entry{}, fmt.Errorf("insert entry: %w", err)
	}
	return entry, nil
}

func (s *PostgresStore) Update(ctx context.Context, id string, patch core.EntryPatch) (core.Entry, error) {
	current, err := s.FindByID(ctx, id)
	if err != nil {
		return core.Entry{}, err
	}
	updated := patch.Apply(current)

	res, err := s.db.ExecContext(ctx,
		"UPDATE entries SET title = $1, amount_cents = $2, entry_type = $3, category = $4 WHERE id = $5",
		updated.Title, updated.Amount.Cents, string(updated.Type), string(updated.Category), id)
	if err != nil {
		return core.Entry{}, fmt.Errorf("update entry: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.Entry{}, ErrNotFound
	}
	return updated, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM entries WHERE id = $1", id)
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

func scanPostgresEntry(row rowScanner) (core.Entry, error) {
	var (
		e         core.Entry
		typ, cat  string
		createdAt time.Time
	)
	if err := row.Scan(&e.ID, &e.Owner, &e.Title, &e.Amount.Cents, &typ, &cat, &createdAt); err != nil {
		return core.Entry{}, err
	}
	e.Type = core.EntryType(typ)
	e.Category = core.Category(cat)
	e.CreatedAt = createdAt.UTC()
	return e, nil
}

var _ EntryStore = (*PostgresStore)(nil)
