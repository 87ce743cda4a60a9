package store

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"rental-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

//go:embed migrations/schema.sql
var schemaSQL string

// Store is the PostgreSQL implementation of Repository
type Store struct {
	db *sqlx.DB
	q  sqlx.ExtContext
}

var _ Repository = (*Store)(nil)

// NewStore creates a new database store
func NewStore(databaseURL string, maxOpenConns int) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if maxOpenConns <= 0 {
		maxOpenConns = 25
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db, q: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// InTx runs fn inside a database transaction
func (s *Store) InTx(ctx context.Context, fn func(tx Repository) error) error {
	if _, ok := s.q.(*sqlx.Tx); ok {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Store{db: s.db, q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Archive soft deletes a visible row of e
func (s *Store) Archive(ctx context.Context, e Entity, id int64) error {
	if !e.Archivable {
		return ErrNotArchivable
	}

	query := s.q.Rebind("UPDATE " + e.Table + " SET archived = TRUE, updated_at = NOW() WHERE id = ? AND NOT archived")
	res, err := s.q.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to archive %s: %w", e.Name, err)
	}
	return expectOne(res)
}

type rowsAffected interface {
	RowsAffected() (int64, error)
}

func expectOne(res rowsAffected) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// filter accumulates WHERE clauses written with ? placeholders
type filter struct {
	clauses []string
	args    []any
}

func where(clause string, args ...any) *filter {
	return (&filter{}).and(clause, args...)
}

func (f *filter) and(clause string, args ...any) *filter {
	f.clauses = append(f.clauses, clause)
	f.args = append(f.args, args...)
	return f
}

func (f *filter) String() string {
	if len(f.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.clauses, " AND ")
}

// selectPage runs the count and page queries for a list endpoint
func selectPage[T any](ctx context.Context, q sqlx.ExtContext, from, columns, orderBy string, f *filter, p models.ListParams) ([]T, int64, error) {
	var total int64
	countQuery := q.Rebind("SELECT COUNT(*) FROM " + from + f.String())
	if err := sqlx.GetContext(ctx, q, &total, countQuery, f.args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count %s: %w", from, err)
	}

	query := q.Rebind("SELECT " + columns + " FROM " + from + f.String() +
		" ORDER BY " + orderBy + " LIMIT ? OFFSET ?")
	args := append(append([]any{}, f.args...), p.Limit, p.Offset)

	rows := []T{}
	if err := sqlx.SelectContext(ctx, q, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list %s: %w", from, err)
	}
	return rows, total, nil
}

// selectIn runs a query with a single IN (?) list
func selectIn[T any](ctx context.Context, q sqlx.ExtContext, query string, ids []int64) ([]T, error) {
	rows := []T{}
	if len(ids) == 0 {
		return rows, nil
	}

	query, args, err := sqlx.In(query, ids)
	if err != nil {
		return nil, err
	}
	if err := sqlx.SelectContext(ctx, q, &rows, q.Rebind(query), args...); err != nil {
		return nil, err
	}
	return rows, nil
}
