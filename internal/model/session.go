package model

import (
	"time"

	"github.com/google/uuid"
)

// Rating bounds for a completed session.
const (
	MinRating = 1
	MaxRating = 5
)

type Session struct {
	ID        uuid.UUID `json:"id"`
	TutorID   uuid.UUID `json:"tutor_id"`
	StudentID uuid.UUID `json:"student_id"`
	StartTime time.Time `json:"start_time"` // дата + час начала, без часового пояса
	Course    Course    `json:"course"`
	Duration  int       `json:"duration"` // в часах
	Completed bool      `json:"completed"`
	Rating    *int      `json:"rating"` // nil - ещё не оценено
	CreatedAt time.Time `json:"created_at"`
}

// Hours returns the booked range [start hour, start hour + duration) as a Busy interval.
func (s *Session) Hours() Interval {
	start := s.StartTime.Hour()
	return Interval{Start: start, End: start + s.Duration, Status: StatusBusy}
}

func (s *Session) EndTime() time.Time {
	return s.StartTime.Add(time.Duration(s.Duration) * time.Hour)
}

func (s *Session) Weekday() Weekday {
	return WeekdayOf(s.StartTime)
}

// OnDate reports whether the session is held on the calendar date of date.
func (s *Session) OnDate(date time.Time) bool {
	return SameDate(s.StartTime, date)
}

// IsActive reports whether the session still occupies its hours.
func (s *Session) IsActive() bool {
	return !s.Completed
}

func (s *Session) Involves(accountID uuid.UUID) bool {
	return s.TutorID == accountID || s.StudentID == accountID
}

func (s *Session) Clone() *Session {
	out := *s
	if s.Rating != nil {
		r := *s.Rating
		out.Rating = &r
	}
	return &out
}

// SameDate compares wall-clock calendar dates, ignoring locations.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// StartOf returns the wall-clock start timestamp of hour on the calendar date of date.
func StartOf(date time.Time, hour int) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, hour, 0, 0, 0, time.UTC)
}

// WallClock drops the location of t, keeping its wall-clock reading, so it compares
// with session start times.
func WallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}
