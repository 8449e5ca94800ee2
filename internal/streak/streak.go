// Package streak computes the daily prayer streak.
//
// A streak advances at most once per calendar day. Dates are compared at
// day granularity in the location of the supplied times, so callers decide
// which time zone "today" belongs to.
package streak

import "time"

// Reason explains the outcome of Advance.
type Reason string

const (
	ReasonFirstLog           Reason = "first_log"
	ReasonAlreadyLoggedToday Reason = "already_logged_today"
	ReasonConsecutiveDay     Reason = "consecutive_day"
	ReasonReset              Reason = "streak_reset"
)

// Result is the outcome of a streak advance.
type Result struct {
	NewStreak int    `json:"new_streak"`
	Updated   bool   `json:"updated"`
	Reason    Reason `json:"reason"`
	// DiffDays is the calendar-day distance from the last logged date.
	// Zero when there was no previous log.
	DiffDays int `json:"diff_days"`
}

// Advance decides the new streak value for a log on today.
//
// A nil lastLogged starts a streak at 1. The same day leaves the streak
// untouched, the next day increments it, and anything else (a gap of two
// or more days, or a last date after today) resets it to 1.
func Advance(current int, lastLogged *time.Time, today time.Time) Result {
	if current < 0 {
		current = 0
	}
	if lastLogged == nil {
		return Result{NewStreak: 1, Updated: true, Reason: ReasonFirstLog}
	}

	diff := DaysBetween(*lastLogged, today)
	switch {
	case diff == 0:
		return Result{NewStreak: current, Updated: false, Reason: ReasonAlreadyLoggedToday}
	case diff == 1:
		return Result{NewStreak: current + 1, Updated: true, Reason: ReasonConsecutiveDay, DiffDays: diff}
	default:
		return Result{NewStreak: 1, Updated: true, Reason: ReasonReset, DiffDays: diff}
	}
}

// Day truncates t to midnight in its own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaysBetween returns the number of calendar days from a to b.
// The result is negative when b is before a.
func DaysBetween(a, b time.Time) int {
	// Compare civil dates in UTC so DST transitions do not produce 23h or 25h days.
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// ParseDay parses a YYYY-MM-DD calendar date in loc.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(time.DateOnly, s, loc)
}
