// Package cache provides caching implementations for repository interfaces.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"stock_realtime/internal/feature/candles/domain/entity"
	"stock_realtime/internal/feature/candles/usecase"
)

const maxLenField = "maxLen"

// SlotRepository は書き込みと日次シリーズ読み取りを備えた時系列ストアです。
type SlotRepository interface {
	usecase.SlotStore
	Series(ctx context.Context, symbol, date string) ([]entity.Slot, error)
}

var _ SlotRepository = (*CachingSlotStore)(nil)

// CachingSlotStore decorates a SlotRepository with a Redis copy of each
// day series: one hash per (symbol, date) whose fields are slot indexes
// (msgpack-encoded candles) plus "maxLen".
type CachingSlotStore struct {
	inner     SlotRepository
	rdb       *redis.Client
	loc       *time.Location
	namespace string
	now       func() time.Time
}

// NewCachingSlotStore wraps inner. A nil rdb disables caching.
// If namespace is empty, it uses "slots".
func NewCachingSlotStore(rdb *redis.Client, inner SlotRepository, loc *time.Location, namespace string) *CachingSlotStore {
	if namespace == "" {
		namespace = "slots"
	}
	if loc == nil {
		loc = time.UTC
	}
	return &CachingSlotStore{
		inner:     inner,
		rdb:       rdb,
		loc:       loc,
		namespace: namespace,
		now:       time.Now,
	}
}

// updateIfCached は既存のハッシュにだけスロットを追加します。キーが無い場合
// （Redis 再起動・退避・途中からの接続）は何もせず、次の Series が DB から補充します。
var updateIfCached = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2], ARGV[3], ARGV[4])
redis.call('PEXPIRE', KEYS[1], ARGV[5])
return 1
`)

// Write はDBに書き込んだ後、キャッシュ済みのハッシュにも反映します（ベストエフォート）。
// The hash must always hold the complete series, so a missing key is left for Series to backfill.
func (c *CachingSlotStore) Write(ctx context.Context, slot entity.Slot) error {
	if err := c.inner.Write(ctx, slot); err != nil {
		return err
	}
	if c.rdb == nil {
		return nil
	}

	b, err := msgpack.Marshal(slot.Candle)
	if err != nil {
		slog.Warn("failed to encode slot for cache", "symbol", slot.Symbol, "error", err)
		return nil
	}
	key := c.key(slot.Symbol, slot.Date)
	ttl := TimeUntilNext8AM(c.now(), c.loc)
	if err := updateIfCached.Run(ctx, c.rdb, []string{key},
		strconv.Itoa(slot.Index), b, maxLenField, slot.MaxLen, ttl.Milliseconds()).Err(); err != nil {
		slog.Warn("failed to update slot cache", "key", key, "error", err)
	}
	return nil
}

// Series returns the day series, reading the cache first then falling back to the database.
func (c *CachingSlotStore) Series(ctx context.Context, symbol, date string) ([]entity.Slot, error) {
	if c.rdb == nil {
		return c.inner.Series(ctx, symbol, date)
	}

	key := c.key(symbol, date)

	// 1) Check cache
	if h, err := c.rdb.HGetAll(ctx, key).Result(); err == nil && len(h) > 0 {
		if out, err := decodeSeries(symbol, date, h); err == nil {
			return out, nil
		}
		// 壊れたキャッシュは削除
		_ = c.rdb.Del(ctx, key).Err()
	}

	// 2) Fallback to database
	out, err := c.inner.Series(ctx, symbol, date)
	if err != nil {
		return nil, err
	}

	// 3) Store in cache (best effort)
	if len(out) > 0 {
		c.backfill(ctx, key, out)
	}
	return out, nil
}

func (c *CachingSlotStore) backfill(ctx context.Context, key string, slots []entity.Slot) {
	values := make([]any, 0, 2*len(slots)+2)
	for _, s := range slots {
		b, err := msgpack.Marshal(s.Candle)
		if err != nil {
			return
		}
		values = append(values, strconv.Itoa(s.Index), b)
	}
	values = append(values, maxLenField, slots[0].MaxLen)
	_, _ = c.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key, values...)
		p.Expire(ctx, key, TimeUntilNext8AM(c.now(), c.loc))
		return nil
	})
}

func decodeSeries(symbol, date string, h map[string]string) ([]entity.Slot, error) {
	maxLen, err := strconv.Atoi(h[maxLenField])
	if err != nil {
		return nil, fmt.Errorf("cache %s: %w", maxLenField, err)
	}
	out := make([]entity.Slot, 0, len(h)-1)
	for field, v := range h {
		if field == maxLenField {
			continue
		}
		idx, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("cache field %q: %w", field, err)
		}
		var cd entity.Candle
		if err := msgpack.Unmarshal([]byte(v), &cd); err != nil {
			return nil, fmt.Errorf("cache field %q: %w", field, err)
		}
		out = append(out, entity.Slot{Symbol: symbol, Date: date, Index: idx, MaxLen: maxLen, Candle: cd})
	}
	if len(out) == 0 {
		return nil, errors.New("cache: no slots")
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

// key generates the hash key of one day series.
func (c *CachingSlotStore) key(symbol, date string) string {
	return fmt.Sprintf("%s:%s:%s", c.namespace, safe(symbol), date)
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}
