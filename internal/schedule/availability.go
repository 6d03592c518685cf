package schedule

import (
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
)

// FreeSlots returns the bookable hour ranges of day on date: its Free intervals
// minus the hours of every active session held that date. Sessions on other dates
// and completed sessions are ignored. The result is ordered and never contains
// empty ranges.
func FreeSlots(day model.DaySchedule, sessions []model.Session, date time.Time) []model.Interval {
	free := Coalesce(day.Filter(model.StatusFree))
	for i := range sessions {
		s := &sessions[i]
		if !s.IsActive() || !s.OnDate(date) {
			continue
		}
		free = Subtract(free, s.Hours())
	}
	return free
}

// Subtract removes cut from every interval it overlaps. An interval strictly
// containing cut is split in two; zero-length remainders are dropped.
func Subtract(intervals []model.Interval, cut model.Interval) []model.Interval {
	out := make([]model.Interval, 0, len(intervals)+1)
	for _, iv := range intervals {
		if !iv.Overlaps(cut) {
			out = append(out, iv)
			continue
		}
		if iv.Start < cut.Start {
			out = append(out, model.Interval{Start: iv.Start, End: cut.Start, Status: iv.Status})
		}
		if cut.End < iv.End {
			out = append(out, model.Interval{Start: cut.End, End: iv.End, Status: iv.Status})
		}
	}
	return out
}

// Covers reports whether every hour of want lies inside slots.
func Covers(slots []model.Interval, want model.Interval) bool {
	if want.Start >= want.End {
		return false
	}
	for hour := want.Start; hour < want.End; hour++ {
		if !containsHour(slots, hour) {
			return false
		}
	}
	return true
}

func containsHour(slots []model.Interval, hour int) bool {
	for _, s := range slots {
		if s.Start <= hour && hour < s.End {
			return true
		}
	}
	return false
}
