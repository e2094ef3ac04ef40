// Package db opens the PostgreSQL connection shared by the gorm adapters.
package db

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"stock_realtime/internal/platform/env"
)

// retryInterval は接続リトライの最大待機間隔です。
var retryInterval = 3 * time.Second

// Config holds the database connection settings.
type Config struct {
	User         string
	Password     string
	Name         string
	Host         string
	Port         string
	SSLMode      string
	InstanceName string // Cloud SQL instance connection name; takes precedence over Host/Port
}

// Opener opens a gorm handle for a DSN. Swapped out in tests.
type Opener func(dsn string) (*gorm.DB, error)

// LoadConfigFromEnv は環境変数からデータベース設定を読み込みます。
func LoadConfigFromEnv() Config {
	return Config{
		User:         env.String("DB_USER", ""),
		Password:     env.String("DB_PASSWORD", ""),
		Name:         env.String("DB_NAME", ""),
		Host:         env.String("DB_HOST", "localhost"),
		Port:         env.String("DB_PORT", "5432"),
		SSLMode:      env.String("DB_SSLMODE", "disable"),
		InstanceName: env.String("INSTANCE_CONNECTION_NAME", ""),
	}
}

// BuildDSN renders a libpq keyword/value DSN. Cloud SQL connections go through the unix socket directory.
func BuildDSN(cfg Config) string {
	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	if cfg.InstanceName != "" {
		return fmt.Sprintf("host=/cloudsql/%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			cfg.InstanceName, cfg.User, cfg.Password, cfg.Name)
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, sslmode)
}

// OpenPostgres parses the DSN with pgx and hands the resulting *sql.DB to gorm.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	pgcfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	sqlDB := stdlib.OpenDB(*pgcfg)
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// ConnectWithRetry は timeout に達するまで接続を再試行します。
func ConnectWithRetry(dsn string, timeout time.Duration, open Opener) (*gorm.DB, error) {
	deadline := time.Now().Add(timeout)
	for {
		db, err := open(dsn)
		if err == nil {
			return db, nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, fmt.Errorf("db connect failed after %s: %w", timeout, err)
		}
		slog.Warn("DB connect failed, retrying", "error", err)
		wait := retryInterval
		if remaining < wait {
			wait = remaining
		}
		time.Sleep(wait)
	}
}

// OpenDB connects with retry and, when RUN_MIGRATIONS=true, migrates the given models.
func OpenDB(models ...any) (*gorm.DB, error) {
	dsn := BuildDSN(LoadConfigFromEnv())
	db, err := ConnectWithRetry(dsn, 60*time.Second, OpenPostgres)
	if err != nil {
		return nil, err
	}

	if env.Bool("RUN_MIGRATIONS", false) && len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			return nil, fmt.Errorf("failed to migrate: %w", err)
		}
	}
	return db, nil
}
