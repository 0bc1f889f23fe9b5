package session

import (
	"fmt"
	"time"
)

// ElapsedMinutes returns whole minutes spent in the session. In-progress
// sessions measure from StartTime to now; submitted sessions report a fixed
// value (ActualDuration when stored, otherwise StartTime to EndAt) so the
// completed view never shows an advancing clock.
func ElapsedMinutes(rec *Record, now time.Time) int {
	if rec.Submitted {
		if rec.ActualDuration != nil {
			return *rec.ActualDuration
		}
		if rec.EndAt != nil {
			return minutesBetween(rec.StartTime, rec.EndAt.UnixMilli())
		}
	}
	return minutesBetween(rec.StartTime, now.UnixMilli())
}

// Deadline returns the instant a timed session expires. The second return is
// false for untimed test-sets (limitMinutes <= 0).
func Deadline(rec *Record, limitMinutes int) (time.Time, bool) {
	if limitMinutes <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(rec.StartTime).Add(time.Duration(limitMinutes) * time.Minute), true
}

// FormatMinutes renders a minute count as "1h 5m", omitting zero hours.
func FormatMinutes(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	h := minutes / 60
	m := minutes % 60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}

func minutesBetween(startMS, endMS int64) int {
	if endMS <= startMS {
		return 0
	}
	return int((endMS - startMS) / 60000)
}
