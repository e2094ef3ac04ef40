// Package entity defines the domain models for the candles feature.
package entity

import "time"

// Candle represents one symbol's OHLCV over one accumulation interval.
type Candle struct {
	Open      float64   `msgpack:"o"`
	High      float64   `msgpack:"h"`
	Low       float64   `msgpack:"l"`
	Close     float64   `msgpack:"c"`
	Volume    int64     `msgpack:"v"`
	StartTime time.Time `msgpack:"t"` // first tick of the interval
}

// Slot is one flushed candle placed into a per-(symbol, date) series of
// fixed capacity MaxLen. Index is minutes since the session open.
type Slot struct {
	Symbol string
	Date   string // trading date, YYYY-MM-DD
	Index  int
	MaxLen int
	Candle Candle
}

// Valid reports whether the slot index fits the series capacity.
func (s Slot) Valid() bool {
	return s.MaxLen > 0 && s.Index >= 0 && s.Index < s.MaxLen
}
