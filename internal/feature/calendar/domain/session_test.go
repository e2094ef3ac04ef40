package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock_realtime/internal/feature/calendar/domain"
	"stock_realtime/internal/feature/calendar/domain/entity"
)

func hm(h, m int) int { return h*60 + m }

// TestParseWindow は "HH:mm~HH:mm" の厳密なパースを検証します。
func TestParseWindow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		text      string
		wantOpen  int
		wantClose int
		wantErr   bool
	}{
		{name: "day session", text: "09:00~14:00", wantOpen: hm(9, 0), wantClose: hm(14, 0)},
		{name: "overnight", text: "23:30~06:00", wantOpen: hm(23, 30), wantClose: hm(6, 0)},
		{name: "midnight open", text: "00:00~23:59", wantOpen: 0, wantClose: hm(23, 59)},
		{name: "missing separator", text: "09:00-14:00", wantErr: true},
		{name: "three tokens", text: "09:00~12:00~14:00", wantErr: true},
		{name: "not zero padded", text: "9:00~14:00", wantErr: true},
		{name: "seconds", text: "09:00:00~14:00", wantErr: true},
		{name: "hour out of range", text: "24:00~06:00", wantErr: true},
		{name: "minute out of range", text: "09:60~14:00", wantErr: true},
		{name: "letters", text: "ab:cd~14:00", wantErr: true},
		{name: "spaces", text: "09:00 ~ 14:00", wantErr: true},
		{name: "empty", text: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			o, c, err := domain.ParseWindow(tt.text)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrInvalidSessionFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOpen, o)
			assert.Equal(t, tt.wantClose, c)
		})
	}
}

// TestSessionIndex は代表的なセッションでの maxLen とスロット番号を検証します。
func TestSessionIndex(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		window     string
		at         int
		wantMaxLen int
		wantIndex  int
		wantErr    bool
	}{
		{name: "day open", window: "09:00~14:00", at: hm(9, 0), wantMaxLen: 300, wantIndex: 0},
		{name: "day last minute", window: "09:00~14:00", at: hm(13, 59), wantMaxLen: 300, wantIndex: 299},
		{name: "day close is out of range", window: "09:00~14:00", at: hm(14, 0), wantMaxLen: 300, wantErr: true},
		{name: "day before open", window: "09:00~14:00", at: hm(8, 59), wantMaxLen: 300, wantErr: true},
		{name: "winter overnight", window: "23:30~06:00", at: hm(23, 35), wantMaxLen: 390, wantIndex: 5},
		{name: "winter after midnight", window: "23:30~06:00", at: hm(0, 0), wantMaxLen: 390, wantIndex: 30},
		{name: "winter last minute", window: "23:30~06:00", at: hm(5, 59), wantMaxLen: 390, wantIndex: 389},
		{name: "winter close", window: "23:30~06:00", at: hm(6, 0), wantMaxLen: 390, wantErr: true},
		{name: "winter gap", window: "23:30~06:00", at: hm(12, 0), wantMaxLen: 390, wantErr: true},
		{name: "dst overnight", window: "22:30~05:00", at: hm(22, 35), wantMaxLen: 390, wantIndex: 5},
		{name: "early close", window: "23:30~03:00", at: hm(2, 59), wantMaxLen: 210, wantIndex: 209},
		{name: "early close after close", window: "23:30~03:00", at: hm(3, 30), wantMaxLen: 210, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			o, c, err := domain.ParseWindow(tt.window)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMaxLen, domain.SessionLength(o, c))

			idx, err := domain.IndexOf(tt.at, o, c)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrOutsideSession)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantIndex, idx)
			assert.Less(t, idx, tt.wantMaxLen)
		})
	}
}

// TestIndexOf_CoversWholeSession はセッション内の全分が 0..maxLen-1 に一意に対応することを検証します。
func TestIndexOf_CoversWholeSession(t *testing.T) {
	t.Parallel()

	for _, window := range []string{"09:30~16:00", "23:30~06:00", "22:30~05:00", "23:30~03:00"} {
		o, c, err := domain.ParseWindow(window)
		require.NoError(t, err)
		maxLen := domain.SessionLength(o, c)

		seen := make(map[int]bool, maxLen)
		for m := 0; m < entity.MinutesPerDay; m++ {
			idx, err := domain.IndexOf(m, o, c)
			if err != nil {
				continue
			}
			require.False(t, seen[idx], "%s: index %d assigned twice", window, idx)
			seen[idx] = true
		}
		assert.Len(t, seen, maxLen, window)
	}
}

// TestIsOpenNow は通常・日跨ぎ・休場ウィンドウの判定を検証します。
func TestIsOpenNow(t *testing.T) {
	t.Parallel()

	day := entity.SessionWindow{OpenMinutes: hm(9, 0), CloseMinutes: hm(14, 0)}
	night := entity.SessionWindow{OpenMinutes: hm(23, 30), CloseMinutes: hm(6, 0)}
	closed := entity.ClosedWindow("2024-12-25", "Christmas")

	tests := []struct {
		name string
		w    entity.SessionWindow
		now  int
		want bool
	}{
		{"day open", day, hm(9, 0), true},
		{"day before close", day, hm(13, 59), true},
		{"day at close", day, hm(14, 0), false},
		{"day before open", day, hm(8, 59), false},
		{"night evening", night, hm(23, 45), true},
		{"night early morning", night, hm(5, 59), true},
		{"night at close", night, hm(6, 0), false},
		{"night afternoon", night, hm(15, 0), false},
		{"closed", closed, hm(10, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, domain.IsOpenNow(tt.w, tt.now))
		})
	}
}

func TestSessionWindow_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "23:30~06:00", entity.SessionWindow{OpenMinutes: hm(23, 30), CloseMinutes: hm(6, 0)}.String())
	assert.Equal(t, "closed", entity.ClosedWindow("2024-01-01", "").String())
	assert.True(t, entity.SessionWindow{OpenMinutes: hm(23, 30), CloseMinutes: hm(6, 0)}.Wraps())
	assert.False(t, entity.ClosedWindow("2024-01-01", "").Wraps())
}

func TestMinuteOfDay(t *testing.T) {
	t.Parallel()

	seoul, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)

	// 14:35 UTC = 23:35 KST
	ts := time.Date(2024, 1, 15, 14, 35, 0, 0, time.UTC)
	assert.Equal(t, hm(23, 35), domain.MinuteOfDay(ts, seoul))
}
