package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"YcrudAPI/internal/logger"

	"github.com/redis/go-redis/v9"
)

const countKeyPrefix = "count:"

// CountCache keeps count results in Redis. A nil *CountCache is a disabled cache.
type CountCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCountCache(rdb *redis.Client, ttl time.Duration) *CountCache {
	if rdb == nil || ttl <= 0 {
		return nil
	}
	return &CountCache{rdb: rdb, ttl: ttl}
}

// CountKey hashes the compiled count statement: count:<entity>:<sha256>.
func CountKey(entity, sqlStr string, args []any) (string, error) {
	data, err := canonicalJSON(map[string]any{
		"sql":  sqlStr,
		"args": args,
	})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return countKeyPrefix + entity + ":" + hex.EncodeToString(sum[:]), nil
}

func (c *CountCache) Get(ctx context.Context, key string) (int64, bool) {
	if c == nil {
		return 0, false
	}
	cached, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("count_cache_get_failed", map[string]any{"key": key, "error": err.Error()})
		}
		return 0, false
	}
	n, err := strconv.ParseInt(cached, 10, 64)
	if err != nil {
		logger.Warn("count_cache_invalid_value", map[string]any{"key": key, "value": cached})
		return 0, false
	}
	logger.Debug("count_cache_hit", map[string]any{"key": key})
	return n, true
}

func (c *CountCache) Set(ctx context.Context, key string, n int64) {
	if c == nil {
		return
	}
	if err := c.rdb.Set(ctx, key, n, c.ttl).Err(); err != nil {
		logger.Warn("count_cache_set_failed", map[string]any{"key": key, "error": err.Error()})
	}
}

// Flush удаляет кэшированные count для сущности; пустое имя удаляет все.
func (c *CountCache) Flush(ctx context.Context, entity string) error {
	if c == nil {
		return nil
	}
	pattern := countKeyPrefix + "*"
	if entity != "" {
		pattern = countKeyPrefix + entity + ":*"
	}
	iter := c.rdb.Scan(ctx, 0, pattern, 1000).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if err := c.rdb.Del(ctx, key).Err(); err != nil {
			logger.Warn("count_cache_flush_failed", map[string]any{"key": key, "error": err.Error()})
			return err
		}
	}
	if err := iter.Err(); err != nil {
		logger.Warn("count_cache_flush_failed", map[string]any{"pattern": pattern, "error": err.Error()})
		return err
	}
	return nil
}

func canonicalJSON(value any) ([]byte, error) {
	var b strings.Builder
	if err := encodeCanonical(&b, value); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

func encodeCanonical(b *strings.Builder, value any) error {
	switch v := value.(type) {
	case nil:
		b.WriteString("null")
	case []any:
		b.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := encodeCanonical(b, item); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			encKey, _ := json.Marshal(k)
			b.Write(encKey)
			b.WriteByte(':')
			if err := encodeCanonical(b, v[k]); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	default:
		enc, err := json.Marshal(v)
		if err != nil {
			return err
		}
		b.Write(enc)
	}
	return nil
}
