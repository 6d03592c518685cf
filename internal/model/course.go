package model

import (
	"fmt"

	"github.com/google/uuid"
)

// Course is identified by its number; field and title are descriptive.
type Course struct {
	Field  string `json:"field"`
	Number int    `json:"course_num"`
	Title  string `json:"title"`
}

func (c Course) Equal(other Course) bool {
	return c.Number == other.Number
}

// IsZero reports whether the course reference carries nothing to identify it.
func (c Course) IsZero() bool {
	return c.Number == 0 && c.Title == ""
}

func (c Course) String() string {
	if c.Title == "" {
		return fmt.Sprintf("%s %d", c.Field, c.Number)
	}
	return fmt.Sprintf("%s %d %s", c.Field, c.Number, c.Title)
}

// DedupeCourses drops repeated course numbers, keeping the first occurrence.
func DedupeCourses(courses []Course) []Course {
	seen := make(map[int]struct{}, len(courses))
	out := make([]Course, 0, len(courses))
	for _, c := range courses {
		if _, ok := seen[c.Number]; ok {
			continue
		}
		seen[c.Number] = struct{}{}
		out = append(out, c)
	}
	return out
}

type EnrollmentRole string

const (
	RoleTutor   EnrollmentRole = "tutor"
	RoleStudent EnrollmentRole = "student"
)

// Enrollment links an account to a course it tutors or studies.
type Enrollment struct {
	AccountID uuid.UUID      `json:"account_id"`
	Role      EnrollmentRole `json:"role"`
	Course    Course         `json:"course"`
}
