// Package schedule folds availability proposals into day schedules and derives
// bookable slots. Every function is pure: inputs are never modified.
package schedule

import (
	"fmt"
	"sort"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
)

// Role selects which statuses a caller may propose.
type Role int

const (
	// RoleOwner is the account declaring its own availability: Free and Busy only.
	// Free never overwrites Busy.
	RoleOwner Role = iota
	// RoleSystem is the booking engine. Blocked may be proposed, and Free over
	// Busy releases a booked span.
	RoleSystem
)

func (r Role) String() string {
	if r == RoleSystem {
		return "system"
	}
	return "owner"
}

func (r Role) allows(status model.AvailabilityStatus) bool {
	switch status {
	case model.StatusFree, model.StatusBusy:
		return true
	case model.StatusBlocked:
		return r == RoleSystem
	}
	return false
}

// precedence among overlapping proposals of one merge
func precedence(status model.AvailabilityStatus) int {
	switch status {
	case model.StatusBusy:
		return 3
	case model.StatusFree:
		return 2
	case model.StatusBlocked:
		return 1
	}
	return 0
}

// Merge folds proposed intervals into current on behalf of the schedule owner.
func Merge(current model.DaySchedule, proposed []model.Interval) (model.DaySchedule, error) {
	return MergeAs(RoleOwner, current, proposed)
}

// MergeAs folds proposed intervals into current. Hours no proposal touches keep
// their current status, so the result covers the whole day whenever current does.
// Adjacent intervals with equal status are coalesced. On error current is left as is
// and no partial result is returned.
func MergeAs(role Role, current model.DaySchedule, proposed []model.Interval) (model.DaySchedule, error) {
	if err := current.Validate(); err != nil {
		return nil, fmt.Errorf("current schedule: %w", err)
	}
	for _, iv := range proposed {
		if err := iv.Validate(); err != nil {
			return nil, err
		}
		if !role.allows(iv.Status) {
			return nil, fmt.Errorf("%w: %s may not propose %s hours", model.ErrValidation, role, iv.Status)
		}
	}

	if len(proposed) == 0 {
		return current.Clone(), nil
	}

	cuts := boundaries(current, proposed)
	merged := make(model.DaySchedule, 0, len(cuts))

	// Between two neighbouring cuts every interval either covers the whole
	// segment or misses it, so one status decision per segment is enough.
	for i := 0; i+1 < len(cuts); i++ {
		segment := model.Interval{Start: cuts[i], End: cuts[i+1]}
		existing := current.StatusAt(segment.Start)

		status := existing
		if winner, ok := strongest(proposed, segment); ok {
			resolved, err := resolve(role, existing, winner)
			if err != nil {
				return nil, fmt.Errorf("hours %02d-%02d: %w", segment.Start, segment.End, err)
			}
			status = resolved
		}

		segment.Status = status
		merged = appendCoalesced(merged, segment)
	}

	return merged, nil
}

// Withdraw turns hours back to Blocked. Busy hours cannot be withdrawn.
func Withdraw(current model.DaySchedule, start, end int) (model.DaySchedule, error) {
	iv, err := model.NewInterval(start, end, model.StatusBlocked)
	if err != nil {
		return nil, err
	}
	return MergeAs(RoleSystem, current, []model.Interval{iv})
}

// Reserve marks hours Busy for a committed session.
func Reserve(current model.DaySchedule, hours model.Interval) (model.DaySchedule, error) {
	hours.Status = model.StatusBusy
	return MergeAs(RoleSystem, current, []model.Interval{hours})
}

// Release returns the hours of a cancelled or finished session to Free.
func Release(current model.DaySchedule, hours model.Interval) (model.DaySchedule, error) {
	hours.Status = model.StatusFree
	return MergeAs(RoleSystem, current, []model.Interval{hours})
}

// Coalesce sorts intervals and joins touching neighbours that share a status.
func Coalesce(intervals []model.Interval) []model.Interval {
	sorted := make([]model.Interval, len(intervals))
	copy(sorted, intervals)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	out := make([]model.Interval, 0, len(sorted))
	for _, iv := range sorted {
		out = appendCoalesced(out, iv)
	}
	return out
}

func resolve(role Role, existing, proposed model.AvailabilityStatus) (model.AvailabilityStatus, error) {
	if existing != model.StatusBusy {
		return proposed, nil
	}

	switch {
	case proposed == model.StatusBusy:
		return model.StatusBusy, nil
	case proposed == model.StatusFree && role == RoleSystem:
		// only the booking engine may release booked hours
		return model.StatusFree, nil
	}
	return "", fmt.Errorf("%w: cannot mark booked hours %s", model.ErrScheduleConflict, proposed)
}

// strongest returns the highest-precedence proposal covering segment.
func strongest(proposed []model.Interval, segment model.Interval) (model.AvailabilityStatus, bool) {
	var best model.AvailabilityStatus
	found := false
	for _, iv := range proposed {
		if !iv.Contains(segment) {
			continue
		}
		if !found || precedence(iv.Status) > precedence(best) {
			best = iv.Status
			found = true
		}
	}
	return best, found
}

func boundaries(current model.DaySchedule, proposed []model.Interval) []int {
	seen := make(map[int]struct{}, 2*(len(current)+len(proposed)))
	add := func(iv model.Interval) {
		seen[iv.Start] = struct{}{}
		seen[iv.End] = struct{}{}
	}
	for _, iv := range current {
		add(iv)
	}
	for _, iv := range proposed {
		add(iv)
	}

	cuts := make([]int, 0, len(seen))
	for c := range seen {
		cuts = append(cuts, c)
	}
	sort.Ints(cuts)
	return cuts
}

func appendCoalesced(out []model.Interval, iv model.Interval) []model.Interval {
	if n := len(out); n > 0 && out[n-1].End == iv.Start && out[n-1].Status == iv.Status {
		out[n-1].End = iv.End
		return out
	}
	return append(out, iv)
}
