// Package store drives a relational database through squirrel-built SQL on
// behalf of the CRUD orchestrator. Every read runs against "<table> AS main".
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"YcrudAPI/internal/apperr"
	"YcrudAPI/internal/logger"
	"YcrudAPI/internal/model"
	"YcrudAPI/internal/query"

	"github.com/Masterminds/squirrel"
)

// Query is one read against an entity table.
type Query struct {
	Plan       query.Plan
	Predicates []squirrel.Sqlizer // produced by a resolved filter artifact
	Keyword    string             // search only, matched against searchable columns
	Tenant     string             // empty disables tenant scoping
}

// Dialect carries the per-driver SQL differences.
type Dialect struct {
	Name        string
	Placeholder squirrel.PlaceholderFormat
	// caseless LIKE; Postgres needs ILIKE, MySQL collations already fold case
	like func(col string, v any) squirrel.Sqlizer
}

var (
	Postgres = Dialect{
		Name:        "pgx",
		Placeholder: squirrel.Dollar,
		like:        func(col string, v any) squirrel.Sqlizer { return squirrel.ILike{col: v} },
	}
	MySQL = Dialect{
		Name:        "mysql",
		Placeholder: squirrel.Question,
		like:        func(col string, v any) squirrel.Sqlizer { return squirrel.Like{col: v} },
	}
)

// DialectFor maps a database/sql driver name to its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "pgx", "postgres":
		return Postgres, nil
	case "mysql":
		return MySQL, nil
	}
	return Dialect{}, fmt.Errorf("unsupported db driver %q", driver)
}

// runner is satisfied by *sql.DB and *sql.Tx.
type runner interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SQLStore implements the orchestrator's store capability over database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	counts  *CountCache

	now      func() time.Time
	publicID func(prefix string) string
	newUUID  func() string
}

type Option func(*SQLStore)

// WithCountCache enables Redis-backed count caching.
func WithCountCache(c *CountCache) Option {
	return func(s *SQLStore) { s.counts = c }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *SQLStore) { s.now = now }
}

// WithIDs overrides public id and uuid generation.
func WithIDs(publicID func(prefix string) string, newUUID func() string) Option {
	return func(s *SQLStore) {
		s.publicID = publicID
		s.newUUID = newUUID
	}
}

func New(db *sql.DB, dialect Dialect, opts ...Option) *SQLStore {
	s := &SQLStore{
		db:       db,
		dialect:  dialect,
		now:      func() time.Time { return time.Now().UTC() },
		publicID: GeneratePublicID,
		newUUID:  newUUIDString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns one page of records. A non-empty Keyword turns it into a search.
func (s *SQLStore) List(ctx context.Context, e *model.Entity, q Query) ([]model.Record, error) {
	sqlStr, args, err := s.buildSelect(e, q).ToSql()
	if err != nil {
		return nil, apperr.PersistenceError{Op: "list", Err: err}
	}
	records, err := s.queryRecords(ctx, s.db, sqlStr, args)
	if err != nil {
		return nil, apperr.PersistenceError{Op: "list", Err: err}
	}
	if err := s.attachContained(ctx, s.db, e, records, q.Plan.Relations.Contain); err != nil {
		return nil, apperr.PersistenceError{Op: "list", Err: err}
	}
	return records, nil
}

// Count returns the number of records matching the plan filters, ignoring pagination.
func (s *SQLStore) Count(ctx context.Context, e *model.Entity, q Query) (int64, error) {
	sqlStr, args, err := s.buildCount(e, q).ToSql()
	if err != nil {
		return 0, apperr.PersistenceError{Op: "count", Err: err}
	}

	key, keyErr := CountKey(e.Name, sqlStr, args)
	if keyErr != nil {
		logger.Warn("count_cache_key_failed", map[string]any{"entity": e.Name, "error": keyErr.Error()})
	} else if n, ok := s.counts.Get(ctx, key); ok {
		return n, nil
	}

	logger.Debug("store_query", map[string]any{"op": "count", "sql": sqlStr})
	var n int64
	if err := s.db.QueryRowContext(ctx, sqlStr, args...).Scan(&n); err != nil {
		return 0, apperr.PersistenceError{Op: "count", Err: err}
	}
	if keyErr == nil {
		s.counts.Set(ctx, key, n)
	}
	return n, nil
}

// Find loads one record by public id, honouring count and contain directives.
func (s *SQLStore) Find(ctx context.Context, e *model.Entity, publicID string, q Query) (model.Record, error) {
	rec, err := s.find(ctx, s.db, e, publicID, q)
	if err != nil {
		return nil, err
	}
	if err := s.attachContained(ctx, s.db, e, []model.Record{rec}, q.Plan.Relations.Contain); err != nil {
		return nil, apperr.PersistenceError{Op: "find", Err: err}
	}
	return rec, nil
}

func (s *SQLStore) find(ctx context.Context, r runner, e *model.Entity, publicID string, q Query) (model.Record, error) {
	sqlStr, args, err := s.buildFind(e, publicID, q).ToSql()
	if err != nil {
		return nil, apperr.PersistenceError{Op: "find", Err: err}
	}
	records, err := s.queryRecords(ctx, r, sqlStr, args)
	if err != nil {
		return nil, apperr.PersistenceError{Op: "find", Err: err}
	}
	if len(records) == 0 {
		return nil, apperr.NotFoundError{Resource: e.Name}
	}
	return records[0], nil
}

func (s *SQLStore) queryRecords(ctx context.Context, r runner, sqlStr string, args []any) ([]model.Record, error) {
	logger.Debug("store_query", map[string]any{"sql": sqlStr, "args": len(args)})
	rows, err := r.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// withTx runs fn in a transaction, rolling back on error or panic.
func (s *SQLStore) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if err := tx.Rollback(); err != nil {
				logger.Error("tx_rollback_failed", map[string]any{"error": err.Error()})
			}
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
