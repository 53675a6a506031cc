package trial

import (
	"math"
	"time"
)

// DurationDays is the trial length granted to new professional accounts.
const DurationDays = 3

// EndDate returns the instant the trial expires, DurationDays calendar days
// after the start.
func EndDate(start time.Time) time.Time {
	return start.AddDate(0, 0, DurationDays)
}

// DaysRemaining counts whole days left until endsAt, rounding partial days
// up and never going below zero. Zero together with a not-yet-expired trial
// means "expires today".
func DaysRemaining(endsAt, now time.Time) int {
	remaining := endsAt.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining.Hours() / 24))
}

// IsExpired reports whether the trial window has closed. The boundary
// instant itself counts as expired.
func IsExpired(endsAt, now time.Time) bool {
	return !now.Before(endsAt)
}
