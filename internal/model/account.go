package model

import (
	"time"

	"github.com/google/uuid"
)

type Account struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	IsTutor       bool      `json:"is_tutor"`
	RatingSum     int       `json:"rating_sum"`     // сумма всех оценок
	RatedSessions int       `json:"rated_sessions"` // количество оценённых занятий
	CreatedAt     time.Time `json:"created_at"`
}

// Role returns the enrollment role matching the account type.
func (a *Account) Role() EnrollmentRole {
	if a.IsTutor {
		return RoleTutor
	}
	return RoleStudent
}

// AverageRating returns the mean rating; ok is false while the tutor is unrated.
func (a *Account) AverageRating() (avg float64, ok bool) {
	if a.RatedSessions == 0 {
		return 0, false
	}
	return float64(a.RatingSum) / float64(a.RatedSessions), true
}
