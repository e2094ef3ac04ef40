package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	pyroscope "github.com/grafana/pyroscope-go"
	redisv9 "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"stock_realtime/internal/app/config"
	"stock_realtime/internal/app/di"
	"stock_realtime/internal/app/seed"
	caladapters "stock_realtime/internal/feature/calendar/adapters"
	candleadapters "stock_realtime/internal/feature/candles/adapters"
	symboladapters "stock_realtime/internal/feature/symbollist/adapters"
	symentity "stock_realtime/internal/feature/symbollist/domain/entity"
	infradb "stock_realtime/internal/platform/db"
	"stock_realtime/internal/platform/externalapi/kis"
	"stock_realtime/internal/platform/logging"
	infraredis "stock_realtime/internal/platform/redis"
)

func main() {
	if err := run(); err != nil {
		slog.Error("feed exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(cfg.LogLevel)

	if cfg.PyroscopeServer != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "stock_realtime.feed",
			ServerAddress:   cfg.PyroscopeServer,
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			slog.Warn("pyroscope start failed", "error", err)
		} else {
			defer func() { _ = profiler.Stop() }()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// db
	db, err := infradb.OpenDB(&caladapters.SessionOverrideModel{}, &candleadapters.CandleSlotModel{}, &symentity.Symbol{})
	if err != nil {
		return err
	}

	// Redis
	var rdb *redisv9.Client
	if tmp, err := infraredis.NewRedisClient(ctx, infraredis.LoadConfig()); err != nil {
		slog.Warn("Redis unavailable. Running without cache.", "error", err)
	} else {
		rdb = tmp
		defer func() {
			if err := rdb.Close(); err != nil {
				slog.Error("failed to close Redis client", "error", err)
			}
		}()
	}

	if cfg.SeedFile != "" {
		f, err := seed.LoadFile(cfg.SeedFile)
		if err != nil {
			return err
		}
		if err := f.Apply(ctx, symboladapters.NewSymbolRepository(db), caladapters.NewOverrideRepository(db)); err != nil {
			return err
		}
		slog.Info("seed applied", "file", cfg.SeedFile, "symbols", len(f.Symbols), "overrides", len(f.Overrides))
	}

	engine, err := di.NewEngine(cfg, kis.LoadConfig(), db, rdb)
	if err != nil {
		return err
	}

	// JWT_SECRETチェック（開発中の注意喚起）
	if cfg.JWTSecret == "" {
		slog.Warn("JWT_SECRET is not set. Stream routes are open.")
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ignoreCanceled(engine.Feed.Run(gctx))
	})
	g.Go(func() error {
		return ignoreCanceled(engine.Flush.Run(gctx))
	})
	g.Go(func() error {
		slog.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		// SSE/WebSocket ハンドラを先に終了させる
		engine.Broadcaster.CloseAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	slog.Info("feed stopped")
	return err
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
