// Package usecase resolves trading session windows per date.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"stock_realtime/internal/feature/calendar/domain"
	"stock_realtime/internal/feature/calendar/domain/entity"
)

// OverrideRepository は休場日・短縮取引日の上書き設定を取得するインターフェースです。
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (adapters).
type OverrideRepository interface {
	// GetOverride returns nil, nil when no override exists for date.
	GetOverride(ctx context.Context, date string) (*entity.Override, error)
}

// Calendar resolves the SessionWindow of each trading date. A resolved
// window is memoised and never changes for the life of the process.
type Calendar struct {
	store      OverrideRepository
	home       *time.Location
	venue      *time.Location
	venueOpen  int
	venueClose int

	mu       sync.RWMutex
	resolved map[string]entity.SessionWindow
}

// NewCalendar は Calendar を生成します。venueSession は取引所現地時刻の通常取引時間（例: "09:30~16:00"）です。
func NewCalendar(store OverrideRepository, home, venue *time.Location, venueSession string) (*Calendar, error) {
	o, c, err := domain.ParseWindow(venueSession)
	if err != nil {
		return nil, fmt.Errorf("venue session: %w", err)
	}
	return &Calendar{
		store:      store,
		home:       home,
		venue:      venue,
		venueOpen:  o,
		venueClose: c,
		resolved:   make(map[string]entity.SessionWindow),
	}, nil
}

// Resolve は指定日（ホームタイムゾーンの日付）の取引時間を返します。
// 週末は上書き設定に関わらず休場です。上書き設定の時刻文字列が不正な場合は
// ErrInvalidSessionFormat を返し、その日付はキャッシュしません。
func (c *Calendar) Resolve(ctx context.Context, date time.Time) (entity.SessionWindow, error) {
	d := date.In(c.home)
	key := d.Format(entity.DateLayout)

	c.mu.RLock()
	w, ok := c.resolved[key]
	c.mu.RUnlock()
	if ok {
		return w, nil
	}

	w, err := c.resolve(ctx, key, d)
	if err != nil {
		return entity.SessionWindow{}, err
	}

	c.mu.Lock()
	if prev, ok := c.resolved[key]; ok {
		w = prev
	} else {
		c.resolved[key] = w
	}
	c.mu.Unlock()
	return w, nil
}

func (c *Calendar) resolve(ctx context.Context, key string, d time.Time) (entity.SessionWindow, error) {
	if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return entity.ClosedWindow(key, "weekend"), nil
	}

	ov, err := c.store.GetOverride(ctx, key)
	if err != nil {
		return entity.SessionWindow{}, fmt.Errorf("get override %s: %w", key, err)
	}
	if ov != nil {
		if ov.Closed {
			return entity.ClosedWindow(key, ov.Event), nil
		}
		o, cl, err := domain.ParseWindow(ov.Session)
		if err != nil {
			slog.Error("invalid session override", "date", key, "session", ov.Session, "error", err)
			return entity.SessionWindow{}, fmt.Errorf("override %s: %w", key, err)
		}
		return entity.SessionWindow{Date: key, OpenMinutes: o, CloseMinutes: cl, Event: ov.Event}, nil
	}

	return c.nominal(key, d), nil
}

// nominal は取引所現地時刻の通常取引時間を同じ日付でホーム時刻に換算します。
// 夏時間の切り替えは tzdata に従います。
func (c *Calendar) nominal(key string, d time.Time) entity.SessionWindow {
	open := time.Date(d.Year(), d.Month(), d.Day(), c.venueOpen/60, c.venueOpen%60, 0, 0, c.venue)
	closeAt := time.Date(d.Year(), d.Month(), d.Day(), c.venueClose/60, c.venueClose%60, 0, 0, c.venue)
	return entity.SessionWindow{
		Date:         key,
		OpenMinutes:  domain.MinuteOfDay(open, c.home),
		CloseMinutes: domain.MinuteOfDay(closeAt, c.home),
	}
}

// TradingDate returns the window of the trading date that t belongs to.
// An instant after midnight that is still inside the previous date's
// overnight session belongs to the previous date. The previous date is only
// consulted before today's open, so a broken window on one date never
// affects instants inside the next date's session.
func (c *Calendar) TradingDate(ctx context.Context, t time.Time) (entity.SessionWindow, error) {
	lt := t.In(c.home)
	today := time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, c.home)
	m := domain.MinuteOfDay(lt, c.home)

	cur, curErr := c.Resolve(ctx, today)
	if curErr == nil && !cur.Closed && m >= cur.OpenMinutes {
		return cur, nil
	}

	prev, err := c.Resolve(ctx, today.AddDate(0, 0, -1))
	if err != nil {
		return entity.SessionWindow{}, err
	}
	if prev.Wraps() && m < prev.CloseMinutes {
		return prev, nil
	}
	if curErr != nil {
		return entity.SessionWindow{}, curErr
	}
	return cur, nil
}

// Locate は時刻 t が属する取引日の取引時間とスロット番号を返します。
// 当日の夜間セッション開始前（日跨ぎセッションの早朝部分）はセッション外です。
func (c *Calendar) Locate(ctx context.Context, t time.Time) (entity.SessionWindow, int, error) {
	w, err := c.TradingDate(ctx, t)
	if err != nil {
		return entity.SessionWindow{}, 0, err
	}
	if w.Closed {
		return w, 0, fmt.Errorf("%w: %s is closed (%s)", domain.ErrOutsideSession, w.Date, w.Event)
	}
	m := domain.MinuteOfDay(t, c.home)
	if w.Wraps() && w.Date == t.In(c.home).Format(entity.DateLayout) && m < w.OpenMinutes {
		return w, 0, fmt.Errorf("%w: %02d:%02d before %s open %s",
			domain.ErrOutsideSession, m/60, m%60, w.Date, w)
	}
	idx, err := domain.IndexOf(m, w.OpenMinutes, w.CloseMinutes)
	if err != nil {
		return w, 0, err
	}
	return w, idx, nil
}

// IsOpenNow reports whether the session that now belongs to is trading.
func (c *Calendar) IsOpenNow(ctx context.Context, now time.Time) (bool, error) {
	w, err := c.TradingDate(ctx, now)
	if err != nil {
		return false, err
	}
	m := domain.MinuteOfDay(now, c.home)
	if w.Wraps() && w.Date == now.In(c.home).Format(entity.DateLayout) {
		return m >= w.OpenMinutes, nil
	}
	return domain.IsOpenNow(w, m), nil
}
