// Package period computes remaining time and display order for goals.
// Everything here is a pure function of its inputs: remaining days depend on
// the current time, so callers must re-derive per evaluation, never cache.
package period

import (
	"fmt"
	"time"

	"github.com/yarukoto/yarukoto/internal/model"
)

const day = 24 * time.Hour

// Day budgets for the enumerated timeframes, counted from creation.
var budgets = map[model.Timeframe]int{
	model.TimeframeWeek:     7,
	model.TimeframeMonth:    30,
	model.TimeframeQuarter:  90,
	model.TimeframeHalfYear: 180,
	model.TimeframeYear:     365,
}

// RemainingDays returns the signed number of days until the goal's deadline.
// ok is false when the goal has no deadline (unbounded timeframe, a custom
// timeframe with no date set, or a year-scoped goal).
func RemainingDays(g *model.Goal, now time.Time) (days int, ok bool) {
	if g.Scope != model.ScopeTimeframe || g.Timeframe == nil {
		return 0, false
	}

	switch *g.Timeframe {
	case model.TimeframeUnbounded:
		return 0, false
	case model.TimeframeCustom:
		if g.CustomDueDate == nil {
			return 0, false
		}
		due, err := time.ParseInLocation("2006-01-02", *g.CustomDueDate, now.Location())
		if err != nil {
			return 0, false
		}
		// Deadline is the end of the due day.
		end := due.Add(day - time.Second)
		return int(ceilDiv(end.Sub(now), day)), true
	default:
		budget, known := budgets[*g.Timeframe]
		if !known {
			return 0, false
		}
		elapsed := int(now.Sub(g.CreatedAt) / day)
		return budget - elapsed, true
	}
}

func ceilDiv(d, unit time.Duration) int64 {
	if d <= 0 {
		return int64(d / unit)
	}
	return int64((d + unit - 1) / unit)
}

// Label renders remaining days for display. No deadline yields no label.
func Label(days int, ok bool) string {
	switch {
	case !ok:
		return ""
	case days <= 0:
		return "overdue"
	case days == 1:
		return "1 day left"
	default:
		return fmt.Sprintf("%d days left", days)
	}
}

// Urgency drives presentation only, never behavior.
type Urgency int

const (
	UrgencyNone Urgency = iota
	UrgencyLow
	UrgencyModerate
	UrgencyElevated
	UrgencyHigh
	UrgencyCritical
)

func UrgencyFor(days int, ok bool) Urgency {
	switch {
	case !ok:
		return UrgencyNone
	case days <= 0:
		return UrgencyCritical
	case days <= 3:
		return UrgencyHigh
	case days <= 7:
		return UrgencyElevated
	case days <= 30:
		return UrgencyModerate
	default:
		return UrgencyLow
	}
}

// Compare orders timeframe-scoped goals for list display: completed goals
// last; within the same completion state, goals with a deadline by ascending
// remaining days; goals without a deadline after those, newest first.
func Compare(a, b *model.Goal, now time.Time) int {
	if c := compareCompleted(a, b); c != 0 {
		return c
	}

	da, aok := RemainingDays(a, now)
	db, bok := RemainingDays(b, now)
	switch {
	case !aok && !bok:
		return b.CreatedAt.Compare(a.CreatedAt)
	case !aok:
		return 1
	case !bok:
		return -1
	default:
		return da - db
	}
}

// CompareByMonth orders year-scoped goals: completed last; by ascending
// target month; goals without a target month after those, oldest first.
func CompareByMonth(a, b *model.Goal) int {
	if c := compareCompleted(a, b); c != 0 {
		return c
	}

	switch {
	case a.TargetMonth == nil && b.TargetMonth == nil:
		return a.CreatedAt.Compare(b.CreatedAt)
	case a.TargetMonth == nil:
		return 1
	case b.TargetMonth == nil:
		return -1
	default:
		return *a.TargetMonth - *b.TargetMonth
	}
}

func compareCompleted(a, b *model.Goal) int {
	switch {
	case a.Completed() == b.Completed():
		return 0
	case a.Completed():
		return 1
	default:
		return -1
	}
}
