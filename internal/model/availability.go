package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type AvailabilityStatus string

const (
	StatusFree    AvailabilityStatus = "free"    // открыто для записи
	StatusBusy    AvailabilityStatus = "busy"    // занято подтверждённым занятием
	StatusBlocked AvailabilityStatus = "blocked" // никогда не доступно
)

// Valid reports whether s is one of the three known statuses.
func (s AvailabilityStatus) Valid() bool {
	switch s {
	case StatusFree, StatusBusy, StatusBlocked:
		return true
	}
	return false
}

// Hour bounds of a day. End is exclusive.
const (
	DayStart = 0
	DayEnd   = 24
)

// Interval is a half-open hour range [Start, End) tagged with a status.
type Interval struct {
	Start  int                `json:"start"`
	End    int                `json:"end"`
	Status AvailabilityStatus `json:"status"`
}

// NewInterval builds a validated interval.
func NewInterval(start, end int, status AvailabilityStatus) (Interval, error) {
	iv := Interval{Start: start, End: end, Status: status}
	if err := iv.Validate(); err != nil {
		return Interval{}, err
	}
	return iv, nil
}

func (iv Interval) Validate() error {
	if iv.Start < DayStart || iv.Start > DayEnd-1 || iv.End < DayStart+1 || iv.End > DayEnd {
		return fmt.Errorf("%w: interval [%d,%d) is outside the day", ErrValidation, iv.Start, iv.End)
	}
	if iv.Start >= iv.End {
		return fmt.Errorf("%w: interval start %d is not before end %d", ErrValidation, iv.Start, iv.End)
	}
	if !iv.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, iv.Status)
	}
	return nil
}

// Len returns the number of hours covered.
func (iv Interval) Len() int {
	return iv.End - iv.Start
}

func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start < other.End && other.Start < iv.End
}

// Contains reports whether other lies completely inside iv (statuses are ignored).
func (iv Interval) Contains(other Interval) bool {
	return iv.Start <= other.Start && other.End <= iv.End
}

func (iv Interval) String() string {
	return fmt.Sprintf("%02d:00-%02d:00 %s", iv.Start, iv.End, iv.Status)
}

// DaySchedule is the ordered interval list of one weekday. A valid day is sorted,
// has no overlaps and covers [0, 24) without gaps.
type DaySchedule []Interval

// BlockedDay returns a day that is never available.
func BlockedDay() DaySchedule {
	return DaySchedule{{Start: DayStart, End: DayEnd, Status: StatusBlocked}}
}

func (d DaySchedule) Validate() error {
	if len(d) == 0 {
		return fmt.Errorf("%w: day schedule is empty", ErrValidation)
	}

	cursor := DayStart
	for _, iv := range d {
		if err := iv.Validate(); err != nil {
			return err
		}
		if iv.Start < cursor {
			return fmt.Errorf("%w: interval %s overlaps previous one", ErrValidation, iv)
		}
		if iv.Start > cursor {
			return fmt.Errorf("%w: hours %02d-%02d are not covered", ErrValidation, cursor, iv.Start)
		}
		cursor = iv.End
	}

	if cursor != DayEnd {
		return fmt.Errorf("%w: hours %02d-%02d are not covered", ErrValidation, cursor, DayEnd)
	}
	return nil
}

func (d DaySchedule) Clone() DaySchedule {
	if d == nil {
		return nil
	}
	out := make(DaySchedule, len(d))
	copy(out, d)
	return out
}

// StatusAt returns the status of the given hour. Hours not covered count as Blocked.
func (d DaySchedule) StatusAt(hour int) AvailabilityStatus {
	for _, iv := range d {
		if iv.Start <= hour && hour < iv.End {
			return iv.Status
		}
	}
	return StatusBlocked
}

// Filter returns copies of the intervals carrying status, in order.
func (d DaySchedule) Filter(status AvailabilityStatus) []Interval {
	var out []Interval
	for _, iv := range d {
		if iv.Status == status {
			out = append(out, iv)
		}
	}
	return out
}

// HasStatus reports whether any hour of r carries status.
func (d DaySchedule) HasStatus(r Interval, status AvailabilityStatus) bool {
	for _, iv := range d {
		if iv.Status == status && iv.Overlaps(r) {
			return true
		}
	}
	return false
}

// Weekday numbers days 1 (Sunday) through 7 (Saturday).
type Weekday int

const (
	Sunday Weekday = iota + 1
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

// Weekdays lists all days in order.
var Weekdays = []Weekday{Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

// WeekdayOf returns the day-of-week of a calendar date.
func WeekdayOf(date time.Time) Weekday {
	return Weekday(date.Weekday()) + 1
}

func (w Weekday) Valid() bool {
	return w >= Sunday && w <= Saturday
}

func (w Weekday) String() string {
	if !w.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(w))
	}
	return time.Weekday(w - 1).String()
}

// WeeklySchedule maps every weekday of one account to its day schedule.
type WeeklySchedule struct {
	AccountID uuid.UUID               `json:"account_id"`
	Days      map[Weekday]DaySchedule `json:"days"`
}

// NewWeeklySchedule returns a schedule with all seven days fully Blocked.
func NewWeeklySchedule(accountID uuid.UUID) *WeeklySchedule {
	w := &WeeklySchedule{
		AccountID: accountID,
		Days:      make(map[Weekday]DaySchedule, len(Weekdays)),
	}
	for _, day := range Weekdays {
		w.Days[day] = BlockedDay()
	}
	return w
}

// Day returns a copy of the day schedule; a missing day is fully Blocked.
func (w *WeeklySchedule) Day(day Weekday) DaySchedule {
	if d, ok := w.Days[day]; ok {
		return d.Clone()
	}
	return BlockedDay()
}

// Apply stores a merged day after checking the coverage invariant.
func (w *WeeklySchedule) Apply(day Weekday, d DaySchedule) error {
	if !day.Valid() {
		return fmt.Errorf("%w: invalid weekday %d", ErrValidation, int(day))
	}
	if err := d.Validate(); err != nil {
		return err
	}
	if w.Days == nil {
		w.Days = make(map[Weekday]DaySchedule, len(Weekdays))
	}
	w.Days[day] = d.Clone()
	return nil
}

func (w *WeeklySchedule) Clone() *WeeklySchedule {
	out := &WeeklySchedule{
		AccountID: w.AccountID,
		Days:      make(map[Weekday]DaySchedule, len(w.Days)),
	}
	for day, d := range w.Days {
		out.Days[day] = d.Clone()
	}
	return out
}

// ScheduleDay is the persisted shape of one weekday of one account.
type ScheduleDay struct {
	AccountID uuid.UUID   `json:"account_id"`
	Weekday   Weekday     `json:"weekday"`
	Version   int64       `json:"version"`
	Intervals DaySchedule `json:"intervals"`
}
