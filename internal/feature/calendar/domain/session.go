package domain

import (
	"fmt"
	"strings"
	"time"

	"stock_realtime/internal/feature/calendar/domain/entity"
)

// ParseWindow は "HH:mm~HH:mm" を開始・終了の分（0-1439）に変換します。
// トークンは厳密に2つで、それぞれゼロ埋めの HH:mm でなければなりません。
func ParseWindow(text string) (openMinutes, closeMinutes int, err error) {
	parts := strings.Split(text, "~")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidSessionFormat, text)
	}
	if openMinutes, err = parseClock(parts[0]); err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidSessionFormat, text)
	}
	if closeMinutes, err = parseClock(parts[1]); err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidSessionFormat, text)
	}
	return openMinutes, closeMinutes, nil
}

func parseClock(tok string) (int, error) {
	if len(tok) != 5 || tok[2] != ':' {
		return 0, ErrInvalidSessionFormat
	}
	t, err := time.Parse("15:04", tok)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// SessionLength returns the session length in minutes (maxLen).
func SessionLength(openMinutes, closeMinutes int) int {
	if closeMinutes > openMinutes {
		return closeMinutes - openMinutes
	}
	return entity.MinutesPerDay - openMinutes + closeMinutes
}

// IndexOf は開始からの経過分（スロット番号）を返します。
// セッション外の時刻は ErrOutsideSession になります。
func IndexOf(instantMinutes, openMinutes, closeMinutes int) (int, error) {
	if closeMinutes > openMinutes {
		if instantMinutes >= openMinutes && instantMinutes < closeMinutes {
			return instantMinutes - openMinutes, nil
		}
		return 0, fmt.Errorf("%w: %s not in %s", ErrOutsideSession,
			clock(instantMinutes), entity.FormatWindow(openMinutes, closeMinutes))
	}
	switch {
	case instantMinutes >= openMinutes:
		return instantMinutes - openMinutes, nil
	case instantMinutes < closeMinutes:
		return entity.MinutesPerDay - openMinutes + instantMinutes, nil
	default:
		return 0, fmt.Errorf("%w: %s not in %s", ErrOutsideSession,
			clock(instantMinutes), entity.FormatWindow(openMinutes, closeMinutes))
	}
}

// IsOpenNow reports whether nowMinutes falls inside w. A closed window is never open.
func IsOpenNow(w entity.SessionWindow, nowMinutes int) bool {
	if w.Closed {
		return false
	}
	if w.CloseMinutes > w.OpenMinutes {
		return nowMinutes >= w.OpenMinutes && nowMinutes < w.CloseMinutes
	}
	return nowMinutes >= w.OpenMinutes || nowMinutes < w.CloseMinutes
}

// MinuteOfDay returns t's minutes since midnight in loc.
func MinuteOfDay(t time.Time, loc *time.Location) int {
	lt := t.In(loc)
	return lt.Hour()*60 + lt.Minute()
}

func clock(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
