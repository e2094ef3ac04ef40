// Package entity defines the domain models for the calendar feature.
package entity

import "fmt"

// DateLayout is the layout of SessionWindow.Date and Override.Date.
const DateLayout = "2006-01-02"

// MinutesPerDay is the length of a wall-clock day in minutes.
const MinutesPerDay = 1440

// SessionWindow is the effective trading window of one trading date.
// OpenMinutes/CloseMinutes are minutes of day in the home time zone; a
// CloseMinutes not greater than OpenMinutes means the session crosses midnight.
type SessionWindow struct {
	Date         string // trading date (YYYY-MM-DD, home time zone)
	OpenMinutes  int
	CloseMinutes int
	Closed       bool   // no trading; no slots are ever written for this date
	Event        string // holiday / early-close label, if any
}

// ClosedWindow は取引のない日を表すセンチネル値を返します。
func ClosedWindow(date, event string) SessionWindow {
	return SessionWindow{Date: date, Closed: true, Event: event}
}

// Wraps reports whether the session crosses midnight.
func (w SessionWindow) Wraps() bool {
	return !w.Closed && w.CloseMinutes <= w.OpenMinutes
}

// String renders the window as "HH:MM~HH:MM", or "closed".
func (w SessionWindow) String() string {
	if w.Closed {
		return "closed"
	}
	return FormatWindow(w.OpenMinutes, w.CloseMinutes)
}

// FormatWindow は分単位の開始・終了時刻を "HH:MM~HH:MM" 形式に整形します。
func FormatWindow(openMinutes, closeMinutes int) string {
	return fmt.Sprintf("%02d:%02d~%02d:%02d",
		openMinutes/60, openMinutes%60, closeMinutes/60, closeMinutes%60)
}

// Override is a persisted holiday or early-close record for one date.
// Session is the raw "HH:MM~HH:MM" text; it is ignored when Closed is set.
type Override struct {
	Date    string
	Session string
	Closed  bool
	Event   string
}
