package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSession_Hours(t *testing.T) {
	s := Session{
		ID:        uuid.New(),
		StartTime: StartOf(time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC), 9),
		Duration:  2,
	}

	assert.Equal(t, Interval{Start: 9, End: 11, Status: StatusBusy}, s.Hours())
	assert.Equal(t, time.Date(2026, 10, 14, 11, 0, 0, 0, time.UTC), s.EndTime())
	assert.Equal(t, Wednesday, s.Weekday())
	assert.True(t, s.OnDate(time.Date(2026, 10, 14, 23, 59, 0, 0, time.UTC)))
	assert.False(t, s.OnDate(time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)))
}

func TestSession_Clone(t *testing.T) {
	rating := 4
	s := &Session{ID: uuid.New(), Rating: &rating}

	clone := s.Clone()
	*clone.Rating = 1

	assert.Equal(t, 4, *s.Rating)
}

func TestDedupeCourses(t *testing.T) {
	courses := []Course{
		{Field: "CSCI", Number: 264, Title: "Data Structures"},
		{Field: "CSCI", Number: 101, Title: "Intro"},
		{Field: "CSCI", Number: 264, Title: "Data Structures (dup)"},
	}

	got := DedupeCourses(courses)

	assert.Equal(t, []Course{courses[0], courses[1]}, got)
	assert.True(t, courses[0].Equal(courses[2]))
}

func TestAccount_AverageRating(t *testing.T) {
	a := &Account{IsTutor: true}
	_, ok := a.AverageRating()
	assert.False(t, ok)
	assert.Equal(t, RoleTutor, a.Role())

	a.RatingSum = 9
	a.RatedSessions = 2
	avg, ok := a.AverageRating()
	assert.True(t, ok)
	assert.InDelta(t, 4.5, avg, 0.0001)
}

func TestWallClock(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	local := time.Date(2026, 10, 14, 11, 30, 0, 0, loc)

	got := WallClock(local)
	assert.Equal(t, time.Date(2026, 10, 14, 11, 30, 0, 0, time.UTC), got)
	assert.True(t, SameDate(got, local))
}
