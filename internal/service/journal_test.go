package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
)

type memoryStore struct {
	mu          sync.Mutex
	ops         []string
	days        map[lockKey]model.ScheduleDay
	failDays    int
	failCreates int
	createErr   error
	failures    int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{days: make(map[lockKey]model.ScheduleDay)}
}

func (m *memoryStore) SaveDay(_ context.Context, day model.ScheduleDay) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDays > 0 {
		m.failDays--
		m.failures++
		return errStoreDown
	}
	m.ops = append(m.ops, "day")
	m.days[dayKey(day.AccountID, day.Weekday)] = day
	return nil
}

func (m *memoryStore) CreateSession(_ context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreates > 0 {
		m.failCreates--
		m.failures++
		if m.createErr != nil {
			return m.createErr
		}
		return errStoreDown
	}
	m.ops = append(m.ops, "create:"+s.ID.String())
	return nil
}

func (m *memoryStore) UpdateSession(_ context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, "update:"+s.ID.String())
	return nil
}

func (m *memoryStore) DeleteSession(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, "delete:"+id.String())
	return nil
}

func (m *memoryStore) set(fn func(m *memoryStore)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m)
}

func (m *memoryStore) failureCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures
}

func (m *memoryStore) snapshot() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ops...)
}

func newTestJournal(store Store) *Journal {
	j := NewJournal(store, zap.NewNop())
	j.retryDelays = []time.Duration{time.Millisecond, 5 * time.Millisecond}
	return j
}

func runJournal(t *testing.T, store Store) *Journal {
	t.Helper()
	j := newTestJournal(store)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		j.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return j
}

func flush(t *testing.T, j *Journal) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, j.Flush(ctx))
}

func TestJournal_PreservesOrder(t *testing.T) {
	store := newMemoryStore()
	j := runJournal(t, store)

	s := &model.Session{ID: uuid.New()}
	day := model.ScheduleDay{AccountID: uuid.New(), Weekday: model.Monday, Version: 1, Intervals: model.BlockedDay()}

	j.Append(DayChange(day), SessionCreated(s))
	j.Append(SessionUpdated(s))
	j.Append(SessionDeleted(s.ID))
	flush(t, j)

	assert.Equal(t, []string{
		"day",
		"create:" + s.ID.String(),
		"update:" + s.ID.String(),
		"delete:" + s.ID.String(),
	}, store.snapshot())
}

func TestJournal_ChangesAreSnapshots(t *testing.T) {
	rating := 4
	s := &model.Session{ID: uuid.New(), Rating: &rating}
	c := SessionUpdated(s)
	rating = 1

	require.NotNil(t, c.Session.Rating)
	assert.Equal(t, 4, *c.Session.Rating)
}

func TestJournal_RetriesFailedChange(t *testing.T) {
	store := newMemoryStore()
	store.failCreates = 2
	j := runJournal(t, store)

	// a booking: day saved, session insert fails twice, then the cancel follows
	s := &model.Session{ID: uuid.New()}
	day := model.ScheduleDay{AccountID: uuid.New(), Weekday: model.Wednesday, Version: 3, Intervals: model.BlockedDay()}
	j.Append(DayChange(day), SessionCreated(s))
	j.Append(SessionDeleted(s.ID))
	flush(t, j)

	assert.Equal(t, []string{"day", "create:" + s.ID.String(), "delete:" + s.ID.String()}, store.snapshot())
	assert.Equal(t, 2, store.failureCount())
	assert.Zero(t, j.Pending())
}

func TestJournal_LaterChangesWaitBehindFailure(t *testing.T) {
	store := newMemoryStore()
	store.failDays = 1 << 30
	j := runJournal(t, store)

	id := uuid.New()
	j.Append(DayChange(model.ScheduleDay{AccountID: uuid.New(), Weekday: model.Sunday}), SessionDeleted(id))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, j.Flush(ctx), context.DeadlineExceeded)
	assert.Empty(t, store.snapshot())
	assert.Equal(t, 2, j.Pending())

	store.set(func(m *memoryStore) { m.failDays = 0 })
	flush(t, j)

	assert.Equal(t, []string{"day", "delete:" + id.String()}, store.snapshot())
}

func TestJournal_ConstraintViolationIsMovedAside(t *testing.T) {
	store := newMemoryStore()
	store.failCreates = 1
	store.createErr = fmt.Errorf("create session: %w", &pgconn.PgError{Code: "23503", Message: "violates foreign key constraint"})
	j := runJournal(t, store)

	broken := &model.Session{ID: uuid.New()}
	day := model.ScheduleDay{AccountID: uuid.New(), Weekday: model.Friday, Version: 1, Intervals: model.BlockedDay()}
	j.Append(SessionCreated(broken), DayChange(day), SessionDeleted(broken.ID))
	flush(t, j)

	assert.Equal(t, []string{"day", "delete:" + broken.ID.String()}, store.snapshot())
	assert.Equal(t, 1, store.failureCount(), "constraint violations are not retried")
	assert.Zero(t, j.Pending())

	rejected := j.Rejected()
	require.Len(t, rejected, 1)
	assert.Equal(t, ChangeSessionCreated, rejected[0].Change.Kind)
	assert.Equal(t, broken.ID, rejected[0].Change.SessionID)
	var pgErr *pgconn.PgError
	assert.ErrorAs(t, rejected[0].Err, &pgErr)
}

func TestIsPermanent(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "foreign key", err: &pgconn.PgError{Code: "23503"}, want: true},
		{name: "check violation wrapped", err: fmt.Errorf("save: %w", &pgconn.PgError{Code: "23514"}), want: true},
		{name: "invalid json", err: &pgconn.PgError{Code: "22P02"}, want: true},
		{name: "serialization failure", err: &pgconn.PgError{Code: "40001"}},
		{name: "connection lost", err: errStoreDown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isPermanent(tt.err))
		})
	}
}

func TestJournal_StopGivesUpAfterTimeout(t *testing.T) {
	store := newMemoryStore()
	store.failDays = 1 << 30
	j := newTestJournal(store)
	j.stopTimeout = 20 * time.Millisecond

	j.Append(DayChange(model.ScheduleDay{AccountID: uuid.New(), Weekday: model.Monday}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		j.Run(ctx)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("journal did not stop")
	}
	assert.Equal(t, 1, j.Pending())
}

func TestJournal_ConcurrentAppends(t *testing.T) {
	store := newMemoryStore()
	j := runJournal(t, store)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := 0; k < 10; k++ {
				j.Append(SessionDeleted(uuid.New()))
			}
		}()
	}
	wg.Wait()
	flush(t, j)

	assert.Len(t, store.snapshot(), 200)
}

func TestJournal_DrainsOnStop(t *testing.T) {
	store := newMemoryStore()
	j := newTestJournal(store)

	j.Append(SessionDeleted(uuid.New()), SessionDeleted(uuid.New()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	j.Run(ctx)

	assert.Len(t, store.snapshot(), 2)
}

func TestJournal_FlushHonoursContext(t *testing.T) {
	j := newTestJournal(newMemoryStore())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, j.Flush(ctx), context.DeadlineExceeded)
}

func TestJournal_VersionsReachStore(t *testing.T) {
	env := newTestEnv(t)
	store := newMemoryStore()
	j := runJournal(t, store)
	env.availability = NewAvailabilityService(env.state, env.locker, j, zap.NewNop())

	tutor := env.addAccount(true)
	_, err := env.availability.Declare(env.ctx, tutor, model.Monday, []model.Interval{iv(9, 12, free)})
	require.NoError(t, err)
	_, err = env.availability.Withdraw(env.ctx, tutor, model.Monday, 9, 10)
	require.NoError(t, err)
	flush(t, j)

	saved := store.days[dayKey(tutor, model.Monday)]
	assert.Equal(t, int64(2), saved.Version)
	assert.Equal(t, env.day(t, tutor, model.Monday), saved.Intervals)
}
