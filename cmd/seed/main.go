package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"stock_realtime/internal/app/seed"
	caladapters "stock_realtime/internal/feature/calendar/adapters"
	symboladapters "stock_realtime/internal/feature/symbollist/adapters"
	symentity "stock_realtime/internal/feature/symbollist/domain/entity"
	infradb "stock_realtime/internal/platform/db"
	"stock_realtime/internal/platform/env"
	jwtmw "stock_realtime/internal/platform/jwt"
	"stock_realtime/internal/platform/logging"
)

func main() {
	env.LoadDotenvOnce()
	logging.Setup(env.String("LOG_LEVEL", "info"))

	file := flag.String("file", env.String("CALENDAR_SEED_FILE", "seed.yaml"), "seed YAML (symbols and calendar overrides)")
	subject := flag.String("token", "", "also print a stream token for this subject")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if err := run(*file, *subject, *ttl); err != nil {
		slog.Error("seed failed", "error", err)
		os.Exit(1)
	}
}

func run(file, subject string, ttl time.Duration) error {
	f, err := seed.LoadFile(file)
	if err != nil {
		return err
	}

	db, err := infradb.OpenDB(&caladapters.SessionOverrideModel{}, &symentity.Symbol{})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := f.Apply(ctx, symboladapters.NewSymbolRepository(db), caladapters.NewOverrideRepository(db)); err != nil {
		return err
	}
	slog.Info("seed ok", "symbols", len(f.Symbols), "overrides", len(f.Overrides))

	if subject == "" {
		return nil
	}
	secret := env.String(jwtmw.EnvKeyJWTSecret, "")
	if secret == "" {
		return fmt.Errorf("%s is required to issue a token", jwtmw.EnvKeyJWTSecret)
	}
	token, err := jwtmw.NewGenerator(secret, ttl).GenerateToken(subject)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
