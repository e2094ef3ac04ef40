// Package config gathers the engine's runtime options from the environment.
package config

import (
	"fmt"
	"time"

	caldomain "stock_realtime/internal/feature/calendar/domain"
	"stock_realtime/internal/platform/env"
)

// Config is the resolved runtime configuration of cmd/feed.
type Config struct {
	HTTPAddr string
	LogLevel string

	FlushPeriod           time.Duration // aggregation interval, aligned to wall-clock boundaries
	SubscribeDelay        time.Duration // gap between subscribe frames
	SubscriberIdleTimeout time.Duration
	SubscriberBuffer      int

	Home         *time.Location // time zone of the feed timestamps and trading dates
	Venue        *time.Location // exchange time zone
	VenueSession string         // nominal session in venue local time, "HH:MM~HH:MM"

	JWTSecret       string // empty disables the stream guard
	PyroscopeServer string // empty disables continuous profiling
	SeedFile        string // optional YAML applied at startup
}

// Load は環境変数から設定を読み込みます。タイムゾーン名やセッション文字列が不正な場合はエラーを返します。
func Load() (Config, error) {
	env.LoadDotenvOnce()

	cfg := Config{
		HTTPAddr:              env.String("HTTP_ADDR", ":8080"),
		LogLevel:              env.String("LOG_LEVEL", "info"),
		FlushPeriod:           env.Duration("FLUSH_PERIOD", time.Minute),
		SubscribeDelay:        env.Duration("SUBSCRIBE_DELAY", 100*time.Millisecond),
		SubscriberIdleTimeout: env.Duration("SUBSCRIBER_IDLE_TIMEOUT", 30*time.Minute),
		SubscriberBuffer:      env.Int("SUBSCRIBER_BUFFER", 64),
		VenueSession:          env.String("VENUE_SESSION", "09:30~16:00"),
		JWTSecret:             env.String("JWT_SECRET", ""),
		PyroscopeServer:       env.String("PYROSCOPE_SERVER_ADDRESS", ""),
		SeedFile:              env.String("CALENDAR_SEED_FILE", ""),
	}

	var err error
	if cfg.Home, err = time.LoadLocation(env.String("HOME_TZ", "Asia/Seoul")); err != nil {
		return Config{}, fmt.Errorf("HOME_TZ: %w", err)
	}
	if cfg.Venue, err = time.LoadLocation(env.String("VENUE_TZ", "America/New_York")); err != nil {
		return Config{}, fmt.Errorf("VENUE_TZ: %w", err)
	}
	if _, _, err := caldomain.ParseWindow(cfg.VenueSession); err != nil {
		return Config{}, fmt.Errorf("VENUE_SESSION: %w", err)
	}
	if cfg.SubscriberBuffer <= 0 {
		cfg.SubscriberBuffer = 64
	}
	return cfg, nil
}
