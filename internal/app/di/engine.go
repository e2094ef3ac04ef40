package di

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"stock_realtime/internal/app/config"
	"stock_realtime/internal/app/router"
	caladapters "stock_realtime/internal/feature/calendar/adapters"
	calusecase "stock_realtime/internal/feature/calendar/usecase"
	"stock_realtime/internal/feature/candles/aggregator"
	candlehandler "stock_realtime/internal/feature/candles/transport/handler"
	candleusecase "stock_realtime/internal/feature/candles/usecase"
	feedadapters "stock_realtime/internal/feature/feed/adapters"
	"stock_realtime/internal/feature/feed/codec"
	feedusecase "stock_realtime/internal/feature/feed/usecase"
	"stock_realtime/internal/feature/live/broadcaster"
	livehandler "stock_realtime/internal/feature/live/transport/handler"
	symboladapters "stock_realtime/internal/feature/symbollist/adapters"
	"stock_realtime/internal/platform/externalapi/kis"
	"stock_realtime/internal/shared/ratelimiter"
)

// Engine は起動に必要なコンポーネント一式です。
type Engine struct {
	Calendar    *calusecase.Calendar
	Aggregator  *aggregator.Aggregator
	Broadcaster *broadcaster.Broadcaster
	Feed        *feedadapters.Client
	Flush       *candleusecase.FlushScheduler
	Router      *gin.Engine
}

// NewEngine wires the ingestion pipeline, the flush scheduler and the HTTP surface.
// rdb may be nil.
func NewEngine(cfg config.Config, feedCfg kis.Config, db *gorm.DB, rdb *redis.Client) (*Engine, error) {
	// Repository
	overrideRepo := caladapters.NewOverrideRepository(db)
	symbolRepo := symboladapters.NewSymbolRepository(db)
	slotStore := NewSlotStore(rdb, db, cfg.Home)

	calendar, err := calusecase.NewCalendar(overrideRepo, cfg.Home, cfg.Venue, cfg.VenueSession)
	if err != nil {
		return nil, err
	}

	agg := aggregator.New(time.Now)
	live := broadcaster.New(cfg.SubscriberIdleTimeout, cfg.SubscriberBuffer)

	// Usecase
	ingestUC := feedusecase.NewIngestUsecase(
		codec.New(feedCfg.TrID, cfg.Home),
		NewApprovalClient(feedCfg),
		symbolRepo,
		agg,
		live,
		ratelimiter.NewRateLimiter(cfg.SubscribeDelay),
	)
	flush := candleusecase.NewFlushScheduler(agg, calendar, slotStore, cfg.FlushPeriod)
	seriesUC := candleusecase.NewSeriesUsecase(slotStore, calendar)

	feed := feedadapters.NewClient(feedCfg.WSURL, ingestUC, feedadapters.DefaultBackoff())

	// Handler
	seriesH := candlehandler.NewSeriesHandler(seriesUC)
	liveH := livehandler.NewLiveHandler(live)

	r := router.NewRouter(seriesH, liveH,
		func() string { return feed.State().String() },
		func(ctx context.Context) (bool, error) { return calendar.IsOpenNow(ctx, time.Now()) },
		cfg.JWTSecret)

	return &Engine{
		Calendar:    calendar,
		Aggregator:  agg,
		Broadcaster: live,
		Feed:        feed,
		Flush:       flush,
		Router:      r,
	}, nil
}
