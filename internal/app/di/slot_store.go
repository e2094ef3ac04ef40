package di

import (
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	candleadapters "stock_realtime/internal/feature/candles/adapters"
	"stock_realtime/internal/platform/cache"
)

// NewSlotStore creates the time-series store.
// If Redis is available, day series are cached in Redis in front of the database.
func NewSlotStore(rdb *redis.Client, db *gorm.DB, loc *time.Location) cache.SlotRepository {
	repo := candleadapters.NewSlotRepository(db)
	if rdb != nil {
		return cache.NewCachingSlotStore(rdb, repo, loc, "slots")
	}
	return repo
}
