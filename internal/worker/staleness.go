package worker

import (
	"time"

	"saldo/internal/core"
)

// exportMark records what the last successful export was computed from.
type exportMark struct {
	revision int64
	start    core.YearMonth
	at       time.Time
}

// isDue reports whether an export computed at (revision, now) would differ
// from the last one: never exported, the store changed, or the calendar
// moved into a new month so the rolling window starts later.
func (m exportMark) isDue(revision int64, now time.Time) bool {
	if m.at.IsZero() {
		return true
	}
	if revision != m.revision {
		return true
	}
	return core.YearMonthOf(now) != m.start
}
