// Package match finds tutors enrolled for a course.
package match

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
)

// Query selects courses by title (case-insensitive, exact) or by number.
// A course satisfying either part matches.
type Query struct {
	Title  string
	Number int
}

func NewQuery(title string, number int) Query {
	return Query{Title: strings.TrimSpace(title), Number: number}
}

// ParseQuery treats a positive integer as a course number and anything else as a title.
func ParseQuery(raw string) (Query, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Query{}, fmt.Errorf("%w: empty course query", model.ErrValidation)
	}
	if n, err := strconv.Atoi(raw); err == nil {
		if n <= 0 {
			return Query{}, fmt.Errorf("%w: course number must be positive", model.ErrValidation)
		}
		return Query{Number: n}, nil
	}
	return Query{Title: raw}, nil
}

func (q Query) IsZero() bool {
	return q.Title == "" && q.Number <= 0
}

func (q Query) Matches(c model.Course) bool {
	if q.Number > 0 && c.Number == q.Number {
		return true
	}
	return q.Title != "" && strings.EqualFold(strings.TrimSpace(c.Title), q.Title)
}

// Key is a normalized form usable as a cache key.
func (q Query) Key() string {
	var parts []string
	if q.Number > 0 {
		parts = append(parts, "n:"+strconv.Itoa(q.Number))
	}
	if q.Title != "" {
		parts = append(parts, "t:"+strings.ToLower(q.Title))
	}
	return strings.Join(parts, "|")
}

// Tutors returns the distinct tutor accounts holding a matching enrollment,
// ordered by id. Student enrollments never match.
func Tutors(enrollments []model.Enrollment, q Query) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	for _, e := range enrollments {
		if e.Role != model.RoleTutor || !q.Matches(e.Course) {
			continue
		}
		seen[e.AccountID] = struct{}{}
	}

	out := make([]uuid.UUID, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out
}
