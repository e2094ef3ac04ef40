// Package aggregator accumulates ticks into per-symbol one-minute candles.
package aggregator

import (
	"sync"
	"sync/atomic"
	"time"

	"stock_realtime/internal/feature/candles/domain/entity"
)

// liveCandle is the mutable candle of one symbol. Once popped it is
// detached from the map and must not receive further updates.
type liveCandle struct {
	mu     sync.Mutex
	c      entity.Candle
	popped bool
}

// Aggregator holds at most one live candle per symbol. Updates for
// different symbols never contend; updates and PopAll for the same symbol
// are ordered by the candle's mutex.
type Aggregator struct {
	candles sync.Map // symbol -> *liveCandle
	count   atomic.Int64
	now     func() time.Time
}

// New は Aggregator を生成します。now はローソク足の開始時刻に使う時計で、nil なら time.Now です。
func New(now func() time.Time) *Aggregator {
	if now == nil {
		now = time.Now
	}
	return &Aggregator{now: now}
}

// Update はティックを銘柄のローソク足に反映します。
// ローソク足がなければ新規作成し、あれば高値・安値・終値・出来高を更新します。
func (a *Aggregator) Update(symbol string, price float64, volume int64) {
	for {
		if v, ok := a.candles.Load(symbol); ok {
			if a.apply(v.(*liveCandle), price, volume) {
				return
			}
			// PopAll と競合した。取り除かれたので新しい足として作り直す
			continue
		}

		fresh := &liveCandle{c: entity.Candle{
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
			Volume:    volume,
			StartTime: a.now(),
		}}
		if _, loaded := a.candles.LoadOrStore(symbol, fresh); !loaded {
			a.count.Add(1)
			return
		}
	}
}

func (a *Aggregator) apply(lc *liveCandle, price float64, volume int64) bool {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	if lc.popped {
		return false
	}
	if price > lc.c.High {
		lc.c.High = price
	}
	if price < lc.c.Low {
		lc.c.Low = price
	}
	lc.c.Close = price
	lc.c.Volume += volume
	return true
}

// PopAll atomically removes and returns every live candle. Each concurrent
// Update lands either in the returned snapshot or in the next candle, never both.
func (a *Aggregator) PopAll() map[string]entity.Candle {
	out := make(map[string]entity.Candle)
	a.candles.Range(func(k, v any) bool {
		lc := v.(*liveCandle)
		lc.mu.Lock()
		if !lc.popped && a.candles.CompareAndDelete(k, v) {
			lc.popped = true
			out[k.(string)] = lc.c
			a.count.Add(-1)
		}
		lc.mu.Unlock()
		return true
	})
	return out
}

// IsEmpty reports whether no candle is live. It never blocks.
func (a *Aggregator) IsEmpty() bool {
	return a.count.Load() == 0
}
