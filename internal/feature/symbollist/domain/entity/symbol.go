// Package entity defines the domain models for the symbollist feature.
package entity

import "time"

// Symbol is a tracked instrument. Code is the venue's own ticker (e.g. "AAPL") and
// Market the listing exchange ("NASDAQ", "NYSE", "AMEX"). Only active symbols are
// subscribed on the vendor feed.
type Symbol struct {
	ID        uint      `gorm:"primaryKey"`
	Code      string    `gorm:"size:20;not null;uniqueIndex"`
	Name      string    `gorm:"size:255;not null"`
	Market    string    `gorm:"size:100;not null"`
	IsActive  bool      `gorm:"not null;default:true"`
	SortKey   int       `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}
