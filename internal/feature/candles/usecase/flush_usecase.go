// Package usecase drains live candles and persists them as session-indexed slots.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	caldomain "stock_realtime/internal/feature/calendar/domain"
	calentity "stock_realtime/internal/feature/calendar/domain/entity"
	"stock_realtime/internal/feature/candles/domain/entity"
	"stock_realtime/internal/platform/metrics"
)

// DefaultFlushPeriod is the flush period when none is configured.
const DefaultFlushPeriod = time.Minute

// finalFlushTimeout bounds the flush performed on shutdown.
const finalFlushTimeout = 10 * time.Second

// CandleSource は集計中のローソク足を取り出すインターフェースです。
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (adapters).
type CandleSource interface {
	IsEmpty() bool
	PopAll() map[string]entity.Candle
}

// SessionLocator maps an instant to its trading date window and slot index.
type SessionLocator interface {
	Locate(ctx context.Context, t time.Time) (calentity.SessionWindow, int, error)
}

// SlotStore は1スロットを書き込む外部時系列ストアです。
type SlotStore interface {
	Write(ctx context.Context, slot entity.Slot) error
}

// FlushReport summarises one flush run.
type FlushReport struct {
	Written int
	Skipped int // outside the session (or the date is closed)
	Failed  int
}

// FlushScheduler periodically drains the aggregator into the slot store.
type FlushScheduler struct {
	source   CandleSource
	calendar SessionLocator
	store    SlotStore
	period   time.Duration
	now      func() time.Time
}

// NewFlushScheduler は FlushScheduler を生成します。period が0以下なら1分です。
func NewFlushScheduler(source CandleSource, calendar SessionLocator, store SlotStore, period time.Duration) *FlushScheduler {
	if period <= 0 {
		period = DefaultFlushPeriod
	}
	return &FlushScheduler{
		source:   source,
		calendar: calendar,
		store:    store,
		period:   period,
		now:      time.Now,
	}
}

// Flush は集計中のローソク足をすべて取り出し、取引日とスロット番号を求めて書き込みます。
// 1銘柄の書き込み失敗はログに出力して残りの銘柄を続行します。
// 取引時間の設定が不正な場合はその時点で中断し、エラーを返します。
func (f *FlushScheduler) Flush(ctx context.Context) (FlushReport, error) {
	var rep FlushReport
	if f.source.IsEmpty() {
		return rep, nil
	}

	snapshot := f.source.PopAll()
	remaining := len(snapshot)
	for symbol, c := range snapshot {
		remaining--

		w, idx, err := f.calendar.Locate(ctx, c.StartTime)
		if errors.Is(err, caldomain.ErrOutsideSession) {
			rep.Skipped++
			metrics.SlotWritesTotal.WithLabelValues("skipped").Inc()
			slog.Debug("candle outside session; skipped", "symbol", symbol, "start", c.StartTime, "reason", err)
			continue
		}
		if err != nil {
			rep.Failed += remaining + 1
			metrics.SlotWritesTotal.WithLabelValues("failed").Add(float64(remaining + 1))
			slog.Error("failed to resolve session; flush aborted",
				"symbol", symbol, "start", c.StartTime, "dropped", remaining+1, "error", err)
			return rep, fmt.Errorf("resolve session for %s: %w", symbol, err)
		}

		slot := entity.Slot{
			Symbol: symbol,
			Date:   w.Date,
			Index:  idx,
			MaxLen: caldomain.SessionLength(w.OpenMinutes, w.CloseMinutes),
			Candle: c,
		}
		if err := f.store.Write(ctx, slot); err != nil {
			// 1つの銘柄でエラーが発生しても処理を止めずにログに出力し、次の銘柄を続ける
			rep.Failed++
			metrics.SlotWritesTotal.WithLabelValues("failed").Inc()
			slog.Error("failed to write slot",
				"symbol", symbol, "date", slot.Date, "index", slot.Index, "maxLen", slot.MaxLen, "error", err)
			continue
		}
		rep.Written++
		metrics.SlotWritesTotal.WithLabelValues("written").Inc()
	}
	return rep, nil
}

// Run flushes on every period boundary until ctx is done, then flushes once more.
func (f *FlushScheduler) Run(ctx context.Context) error {
	next := f.now().Truncate(f.period).Add(f.period)
	timer := time.NewTimer(time.Until(next))
	defer timer.Stop()

	slog.Info("flush scheduler started", "period", f.period, "first", next)
	for {
		select {
		case <-ctx.Done():
			fctx, cancel := context.WithTimeout(context.Background(), finalFlushTimeout)
			f.runOnce(fctx)
			cancel()
			return ctx.Err()
		case <-timer.C:
			f.runOnce(ctx)
			// 処理が長引いた場合も次の境界に揃える
			next = f.now().Truncate(f.period).Add(f.period)
			timer.Reset(time.Until(next))
		}
	}
}

func (f *FlushScheduler) runOnce(ctx context.Context) {
	rep, err := f.Flush(ctx)
	if err != nil {
		slog.Error("flush failed", "error", err)
		return
	}
	if rep != (FlushReport{}) {
		slog.Info("flush completed", "written", rep.Written, "skipped", rep.Skipped, "failed", rep.Failed)
	}
}
