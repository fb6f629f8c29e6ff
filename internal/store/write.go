package store

import (
	"context"
	"database/sql"
	"strings"

	"YcrudAPI/internal/apperr"
	"YcrudAPI/internal/logger"
	"YcrudAPI/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

const publicIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GeneratePublicID returns "<prefix>_<7 random alphanumerics>".
func GeneratePublicID(prefix string) string {
	raw := uuid.New()
	var b strings.Builder
	b.Grow(len(prefix) + 8)
	b.WriteString(prefix)
	b.WriteByte('_')
	for _, c := range raw[:7] {
		b.WriteByte(publicIDAlphabet[int(c)%len(publicIDAlphabet)])
	}
	return b.String()
}

func newUUIDString() string {
	return uuid.NewString()
}

// fillable keeps only attributes the entity allows to be written.
func fillable(e *model.Entity, attrs map[string]any) map[string]any {
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		if e.IsFillable(k) {
			out[k] = v
		}
	}
	return out
}

// Create inserts a record and returns it as stored.
func (s *SQLStore) Create(ctx context.Context, e *model.Entity, tenant string, attrs map[string]any) (model.Record, error) {
	values := fillable(e, attrs)
	publicID := s.publicID(e.IDPrefix())
	values[e.PublicIDColumn()] = publicID
	if e.UUIDColumn != "" {
		values[e.UUIDColumn] = s.newUUID()
	}
	if e.Timestamps {
		now := s.now()
		values["created_at"] = now
		values["updated_at"] = now
	}
	if e.TenantColumn != "" && tenant != "" {
		values[e.TenantColumn] = tenant
	}

	sqlStr, args, err := squirrel.Insert(e.Table).
		PlaceholderFormat(s.dialect.Placeholder).
		SetMap(values).
		ToSql()
	if err != nil {
		return nil, apperr.PersistenceError{Op: "create", Err: err}
	}

	var created model.Record
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		logger.Debug("store_query", map[string]any{"op": "create", "sql": sqlStr})
		if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
			return apperr.PersistenceError{Op: "create", Err: err}
		}
		rec, err := s.find(ctx, tx, e, publicID, Query{Tenant: tenant})
		if err != nil {
			return err
		}
		created = rec
		return nil
	})
	if err != nil {
		return nil, asPersistence("create", err)
	}
	s.flushCounts(ctx, "create", e.Name)
	return created, nil
}

// Update applies fillable attributes to the record with the given public id.
func (s *SQLStore) Update(ctx context.Context, e *model.Entity, tenant, publicID string, attrs map[string]any) (model.Record, error) {
	values := fillable(e, attrs)

	var updated model.Record
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := s.find(ctx, tx, e, publicID, Query{Tenant: tenant})
		if err != nil {
			return err
		}
		if len(values) == 0 {
			updated = existing
			return nil
		}
		if e.Timestamps {
			values["updated_at"] = s.now()
		}
		sqlStr, args, err := squirrel.Update(e.Table).
			PlaceholderFormat(s.dialect.Placeholder).
			SetMap(values).
			Where(squirrel.Eq{e.KeyColumn(): existing[e.KeyColumn()]}).
			ToSql()
		if err != nil {
			return err
		}
		logger.Debug("store_query", map[string]any{"op": "update", "sql": sqlStr})
		if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
			return apperr.PersistenceError{Op: "update", Err: err}
		}
		updated, err = s.find(ctx, tx, e, publicID, Query{Tenant: tenant})
		return err
	})
	if err != nil {
		return nil, asPersistence("update", err)
	}
	s.flushCounts(ctx, "update", e.Name)
	return updated, nil
}

// Delete removes (or soft deletes) the record and returns its last snapshot.
func (s *SQLStore) Delete(ctx context.Context, e *model.Entity, tenant, publicID string) (model.Record, error) {
	var snapshot model.Record
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := s.find(ctx, tx, e, publicID, Query{Tenant: tenant})
		if err != nil {
			return err
		}
		snapshot = existing

		where := squirrel.Eq{e.KeyColumn(): existing[e.KeyColumn()]}
		var sqlStr string
		var args []any
		if e.SoftDelete {
			deletedAt := s.now()
			sqlStr, args, err = squirrel.Update(e.Table).
				PlaceholderFormat(s.dialect.Placeholder).
				Set("deleted_at", deletedAt).
				Where(where).
				ToSql()
			snapshot["deleted_at"] = deletedAt
		} else {
			sqlStr, args, err = squirrel.Delete(e.Table).
				PlaceholderFormat(s.dialect.Placeholder).
				Where(where).
				ToSql()
		}
		if err != nil {
			return err
		}
		logger.Debug("store_query", map[string]any{"op": "delete", "sql": sqlStr})
		if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
			return apperr.PersistenceError{Op: "delete", Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, asPersistence("delete", err)
	}
	s.flushCounts(ctx, "delete", e.Name)
	return snapshot, nil
}

// asPersistence keeps typed errors and wraps everything else.
func asPersistence(op string, err error) error {
	if apperr.IsNotFound(err) || apperr.IsPersistence(err) {
		return err
	}
	return apperr.PersistenceError{Op: op, Err: err}
}

// flushCounts drops cached counts after a committed write. A failure leaves
// stale counts until their TTL and does not fail the write.
func (s *SQLStore) flushCounts(ctx context.Context, op, entity string) {
	if err := s.counts.Flush(ctx, entity); err != nil {
		logger.Warn("count_cache_flush_failed", map[string]any{
			"op":     op,
			"entity": entity,
			"error":  err.Error(),
		})
	}
}
