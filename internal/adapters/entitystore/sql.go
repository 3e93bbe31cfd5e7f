package entitystore

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"   // postgres driver
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/okian/hotboard/internal/domain/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS entities (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	author     TEXT NOT NULL DEFAULT '',
	created_at BIGINT NOT NULL DEFAULT 0
)`

const upsertQuery = `
INSERT INTO entities (id, title, author, created_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	title = excluded.title,
	author = excluded.author,
	created_at = excluded.created_at`

type entityRow struct {
	ID        string `db:"id"`
	Title     string `db:"title"`
	Author    string `db:"author"`
	CreatedAt int64  `db:"created_at"`
}

func (r entityRow) entity() model.Entity {
	e := model.Entity{ID: r.ID, Title: r.Title, Author: r.Author}
	if r.CreatedAt != 0 {
		e.CreatedAt = time.Unix(r.CreatedAt, 0).UTC()
	}
	return e
}

func rowOf(e model.Entity) entityRow {
	r := entityRow{ID: e.ID, Title: e.Title, Author: e.Author}
	if !e.CreatedAt.IsZero() {
		r.CreatedAt = e.CreatedAt.Unix()
	}
	return r
}

// SQLStore keeps entities in a SQL table. Both SQLite and PostgreSQL are
// supported; queries are written with ? placeholders and rebound per driver.
type SQLStore struct {
	db *sqlx.DB
}

// Open connects to driver ("sqlite" or "postgres") and creates the schema.
func Open(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	switch driver {
	case "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// A single connection keeps :memory: databases shared and avoids
		// SQLITE_BUSY on concurrent writers.
		db.SetMaxOpenConns(1)
	}

	s, err := NewSQLStore(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps an open database and runs migrations.
func NewSQLStore(ctx context.Context, db *sqlx.DB) (*SQLStore, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// Upsert inserts or replaces entities in one transaction.
func (s *SQLStore) Upsert(ctx context.Context, entities ...model.Entity) error {
	for _, e := range entities {
		if e.ID == "" {
			return ErrEmptyID
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	q := tx.Rebind(upsertQuery)
	for _, e := range entities {
		r := rowOf(e)
		if _, err := tx.ExecContext(ctx, q, r.ID, r.Title, r.Author, r.CreatedAt); err != nil {
			return fmt.Errorf("upsert entity %s: %w", e.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}

// Delete removes an entity. Deleting a missing id is a no-op.
func (s *SQLStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM entities WHERE id = ?"), id); err != nil {
		return fmt.Errorf("delete entity %s: %w", id, err)
	}
	return nil
}

// FindByIDs returns the entities that exist among ids with one query.
func (s *SQLStore) FindByIDs(ctx context.Context, ids []string) ([]model.Entity, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In("SELECT id, title, author, created_at FROM entities WHERE id IN (?)", ids)
	if err != nil {
		return nil, fmt.Errorf("build find query: %w", err)
	}

	var rows []entityRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("find entities: %w", err)
	}

	out := make([]model.Entity, len(rows))
	for i, r := range rows {
		out[i] = r.entity()
	}
	return out, nil
}

// Count returns the number of stored entities.
func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM entities"); err != nil {
		return 0, fmt.Errorf("count entities: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
