package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
)

var (
	// 2026-10-14 is a Wednesday.
	wednesday     = time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	nextWednesday = wednesday.AddDate(0, 0, 7)

	dataStructures = model.Course{Field: "CSCI", Number: 264, Title: "Data Structures"}
)

func iv(start, end int, status model.AvailabilityStatus) model.Interval {
	return model.Interval{Start: start, End: end, Status: status}
}

type fakeAccounts struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*model.Account
	err      error

	// enrollments receives the courses of created accounts
	enrollments *fakeEnrollments
	enrollErr   error
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{accounts: make(map[uuid.UUID]*model.Account)}
}

func (f *fakeAccounts) Create(ctx context.Context, account *model.Account, courses []model.Course) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.enrollErr != nil {
		return f.enrollErr
	}
	if f.enrollments != nil {
		if err := f.enrollments.Replace(ctx, account.ID, account.Role(), courses); err != nil {
			return err
		}
	}
	account.CreatedAt = time.Now()
	cp := *account
	f.accounts[account.ID] = &cp
	return nil
}

func (f *fakeAccounts) GetByID(_ context.Context, id uuid.UUID) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	a, ok := f.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if strings.EqualFold(a.Email, email) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeAccounts) AddRating(_ context.Context, tutorID uuid.UUID, rating int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	a, ok := f.accounts[tutorID]
	if !ok || !a.IsTutor {
		return model.ErrNotFound
	}
	a.RatingSum += rating
	a.RatedSessions++
	return nil
}

type fakeEnrollments struct {
	mu          sync.Mutex
	enrollments map[uuid.UUID][]model.Enrollment
	listCalls   int
}

func newFakeEnrollments() *fakeEnrollments {
	return &fakeEnrollments{enrollments: make(map[uuid.UUID][]model.Enrollment)}
}

func (f *fakeEnrollments) Replace(_ context.Context, accountID uuid.UUID, role model.EnrollmentRole, courses []model.Course) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := make([]model.Enrollment, 0, len(courses))
	for _, c := range courses {
		list = append(list, model.Enrollment{AccountID: accountID, Role: role, Course: c})
	}
	f.enrollments[accountID] = list
	return nil
}

func (f *fakeEnrollments) ListByAccount(_ context.Context, accountID uuid.UUID) ([]model.Enrollment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Enrollment(nil), f.enrollments[accountID]...), nil
}

func (f *fakeEnrollments) ListByRole(_ context.Context, role model.EnrollmentRole) ([]model.Enrollment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	var out []model.Enrollment
	for _, list := range f.enrollments {
		for _, e := range list {
			if e.Role == role {
				out = append(out, e)
			}
		}
	}
	return out, nil
}

// recorder collects journal changes in append order.
type recorder struct {
	mu      sync.Mutex
	changes []Change
}

func (r *recorder) Append(changes ...Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, changes...)
}

func (r *recorder) kinds() []ChangeKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ChangeKind, 0, len(r.changes))
	for _, c := range r.changes {
		out = append(out, c.Kind)
	}
	return out
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.changes)
}

func (r *recorder) last() Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.changes[len(r.changes)-1]
}

type fakeCache struct {
	mu          sync.Mutex
	entries     map[string][]uuid.UUID
	generation  int
	getErr      error
	invalidated int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]uuid.UUID)}
}

func (c *fakeCache) Resolve(_ context.Context, queryKey string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fmt.Sprintf("%d:%s", c.generation, queryKey), nil
}

func (c *fakeCache) Get(_ context.Context, key string) ([]uuid.UUID, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	ids, ok := c.entries[key]
	return ids, ok, nil
}

func (c *fakeCache) Set(_ context.Context, key string, ids []uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = ids
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.invalidated++
	return nil
}

var errStoreDown = errors.New("store down")

type testEnv struct {
	ctx          context.Context
	state        *State
	locker       *KeyedLocker
	journal      *recorder
	accounts     *fakeAccounts
	availability *AvailabilityService
	booking      *BookingService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		ctx:      context.Background(),
		state:    NewState(),
		locker:   NewKeyedLocker(),
		journal:  &recorder{},
		accounts: newFakeAccounts(),
	}
	env.availability = NewAvailabilityService(env.state, env.locker, env.journal, zap.NewNop())
	env.booking = NewBookingService(env.accounts, env.state, env.locker, env.journal, validator.New(), zap.NewNop())
	return env
}

func (e *testEnv) addAccount(isTutor bool) uuid.UUID {
	id := uuid.New()
	e.accounts.accounts[id] = &model.Account{ID: id, Name: id.String()[:8], Email: id.String() + "@example.edu", IsTutor: isTutor}
	e.state.AddAccount(id)
	return id
}

func (e *testEnv) day(t *testing.T, accountID uuid.UUID, weekday model.Weekday) model.DaySchedule {
	t.Helper()
	d, ok := e.state.Day(accountID, weekday)
	if !ok {
		t.Fatalf("no schedule for %s", accountID)
	}
	return d
}
