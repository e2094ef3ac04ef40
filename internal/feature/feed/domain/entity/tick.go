// Package entity defines the domain models for the feed feature.
package entity

import "time"

// Tick is one trade event from the vendor feed. It is never stored directly.
type Tick struct {
	Symbol     string    `json:"symbol"`     // domain symbol (venue prefix stripped)
	Venue      string    `json:"venue"`      // e.g. "NASDAQ"
	Price      float64   `json:"price"`      // last traded price
	Volume     int64     `json:"volume"`     // execution volume of this trade
	Diff       float64   `json:"diff"`       // change from previous close
	ChangeRate float64   `json:"changeRate"` // percent change from previous close
	Time       time.Time `json:"time"`       // trade time
}

// Instrument is a tracked instrument to subscribe on the vendor feed.
type Instrument struct {
	Symbol string // venue symbol code, e.g. "AAPL"
	Venue  string // exchange name, e.g. "NASDAQ"
}
