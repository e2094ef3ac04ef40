package cache

import (
	"time"
)

// TimeUntilNext8AM は loc における now から次の午前8時までの期間を返します。
// 夜間セッションの日次シリーズは翌朝8時以降は参照されないため、この時刻で失効させます。
func TimeUntilNext8AM(now time.Time, loc *time.Location) time.Duration {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)

	// 次の午前8時を計算
	next8am := time.Date(now.Year(), now.Month(), now.Day(), 8, 0, 0, 0, loc)

	// 今日の午前8時が既に過ぎている場合は明日の午前8時を使用
	if !now.Before(next8am) {
		next8am = next8am.AddDate(0, 0, 1)
	}

	return next8am.Sub(now)
}
