package usecase

import (
	"context"
	"time"

	caldomain "stock_realtime/internal/feature/calendar/domain"
	calentity "stock_realtime/internal/feature/calendar/domain/entity"
	"stock_realtime/internal/feature/candles/domain/entity"
)

// SeriesReader はローソク足スロットの読み取りレイヤーを抽象化します。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type SeriesReader interface {
	Series(ctx context.Context, symbol, date string) ([]entity.Slot, error)
}

// TradingDateResolver returns the window of the trading date an instant belongs to.
type TradingDateResolver interface {
	TradingDate(ctx context.Context, t time.Time) (calentity.SessionWindow, error)
}

// Series is the current trading date's slot series for one symbol.
type Series struct {
	Symbol string
	Window calentity.SessionWindow
	MaxLen int
	Slots  []entity.Slot
}

// SeriesUsecase serves the in-progress day series used to seed live charts.
type SeriesUsecase struct {
	reader   SeriesReader
	calendar TradingDateResolver
	now      func() time.Time
}

// NewSeriesUsecase は SeriesUsecase の新しいインスタンスを生成します。
func NewSeriesUsecase(reader SeriesReader, calendar TradingDateResolver) *SeriesUsecase {
	return &SeriesUsecase{reader: reader, calendar: calendar, now: time.Now}
}

// Today は現在の取引日のシリーズを返します。休場日はスロットなしで返します。
func (u *SeriesUsecase) Today(ctx context.Context, symbol string) (Series, error) {
	w, err := u.calendar.TradingDate(ctx, u.now())
	if err != nil {
		return Series{}, err
	}
	out := Series{Symbol: symbol, Window: w}
	if w.Closed {
		return out, nil
	}
	out.MaxLen = caldomain.SessionLength(w.OpenMinutes, w.CloseMinutes)

	slots, err := u.reader.Series(ctx, symbol, w.Date)
	if err != nil {
		return Series{}, err
	}
	out.Slots = slots
	return out, nil
}
