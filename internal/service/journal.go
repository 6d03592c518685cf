package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/Freeeeeet/tutor_scheduler/internal/metrics"
	"github.com/Freeeeeet/tutor_scheduler/internal/model"
)

type ChangeKind int

const (
	ChangeDay ChangeKind = iota + 1
	ChangeSessionCreated
	ChangeSessionUpdated
	ChangeSessionDeleted
	changeFlush
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeDay:
		return "schedule_day"
	case ChangeSessionCreated:
		return "session_created"
	case ChangeSessionUpdated:
		return "session_updated"
	case ChangeSessionDeleted:
		return "session_deleted"
	case changeFlush:
		return "flush"
	}
	return fmt.Sprintf("ChangeKind(%d)", int(k))
}

// Change - одно зафиксированное в памяти изменение, ожидающее записи в базу
type Change struct {
	Kind      ChangeKind
	Day       model.ScheduleDay
	Session   *model.Session
	SessionID uuid.UUID

	done chan struct{}
}

func DayChange(day model.ScheduleDay) Change {
	return Change{Kind: ChangeDay, Day: day}
}

func SessionCreated(s *model.Session) Change {
	return Change{Kind: ChangeSessionCreated, Session: s.Clone(), SessionID: s.ID}
}

func SessionUpdated(s *model.Session) Change {
	return Change{Kind: ChangeSessionUpdated, Session: s.Clone(), SessionID: s.ID}
}

func SessionDeleted(id uuid.UUID) Change {
	return Change{Kind: ChangeSessionDeleted, SessionID: id}
}

// Store - хранилище, в которое журнал записывает изменения
type Store interface {
	SaveDay(ctx context.Context, day model.ScheduleDay) error
	CreateSession(ctx context.Context, s *model.Session) error
	UpdateSession(ctx context.Context, s *model.Session) error
	DeleteSession(ctx context.Context, id uuid.UUID) error
}

// changeRecorder принимает изменения от сервисов
type changeRecorder interface {
	Append(changes ...Change)
}

// Journal записывает изменения в базу в порядке их фиксации.
// Append не блокируется, поэтому его можно вызывать под ключом KeyedLocker.
// Неудачная запись повторяется с паузами, следующие изменения ждут за ней.
type Journal struct {
	store  Store
	logger *zap.Logger

	retryDelays []time.Duration
	stopTimeout time.Duration
	permanent   func(error) bool

	mu       sync.Mutex
	queue    []Change
	rejected []RejectedChange
	notify   chan struct{}
}

// RejectedChange - изменение, которое база отвергла окончательно (нарушение ограничений)
type RejectedChange struct {
	Change Change
	Err    error
}

var defaultRetryDelays = []time.Duration{100 * time.Millisecond, 500 * time.Millisecond, 2 * time.Second, 5 * time.Second}

const defaultStopTimeout = 30 * time.Second

func NewJournal(store Store, logger *zap.Logger) *Journal {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Journal{
		store:       store,
		logger:      logger,
		retryDelays: defaultRetryDelays,
		stopTimeout: defaultStopTimeout,
		permanent:   isPermanent,
		notify:      make(chan struct{}, 1),
	}
}

// Append ставит изменения в очередь
func (j *Journal) Append(changes ...Change) {
	if len(changes) == 0 {
		return
	}

	j.mu.Lock()
	j.queue = append(j.queue, changes...)
	j.mu.Unlock()

	select {
	case j.notify <- struct{}{}:
	default:
	}
}

// Flush ждёт, пока все ранее добавленные изменения будут записаны
func (j *Journal) Flush(ctx context.Context) error {
	done := make(chan struct{})
	j.Append(Change{Kind: changeFlush, done: done})

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("flush journal: %w", ctx.Err())
	}
}

// Pending возвращает число изменений, ещё не записанных в базу
func (j *Journal) Pending() int {
	j.mu.Lock()
	defer j.mu.Unlock()

	n := 0
	for _, c := range j.queue {
		if c.Kind != changeFlush {
			n++
		}
	}
	return n
}

// Run обрабатывает очередь до отмены контекста, затем дописывает остаток.
// На остаток отводится не больше stopTimeout.
func (j *Journal) Run(ctx context.Context) {
	j.logger.Info("Journal started")

	for {
		j.drain(ctx)

		select {
		case <-j.notify:
		case <-ctx.Done():
			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), j.stopTimeout)
			j.drain(stopCtx)
			cancel()

			if pending := j.Pending(); pending > 0 {
				j.logger.Error("Journal stopped with unpersisted changes", zap.Int("pending", pending))
				return
			}
			j.logger.Info("Journal stopped")
			return
		}
	}
}

// drain записывает очередь по одному изменению. Изменение снимается с очереди
// только после успешной записи. Возвращается при пустой очереди или отмене ctx.
func (j *Journal) drain(ctx context.Context) {
	attempt := 0
	for {
		c, ok := j.head()
		if !ok {
			return
		}

		err := j.apply(ctx, c)
		if err == nil {
			j.pop()
			attempt = 0
			continue
		}

		// Повтор не поможет: откладываем изменение, чтобы не держать очередь
		if j.permanent(err) {
			j.reject(c, err)
			attempt = 0
			continue
		}

		delay := j.retryDelay(attempt)
		metrics.IncJournalFailure(c.Kind.String())
		j.logger.Error("Failed to persist change",
			zap.String("change", c.Kind.String()),
			zap.String("account_id", c.Day.AccountID.String()),
			zap.String("session_id", c.SessionID.String()),
			zap.Int("attempt", attempt+1),
			zap.Duration("retry_in", delay),
			zap.Error(err),
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
		attempt++
	}
}

func (j *Journal) head() (Change, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.queue) == 0 {
		return Change{}, false
	}
	return j.queue[0], true
}

func (j *Journal) pop() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.queue[0] = Change{}
	j.queue = j.queue[1:]
	if len(j.queue) == 0 {
		j.queue = nil
	}
}

func (j *Journal) reject(c Change, err error) {
	j.mu.Lock()
	j.queue[0] = Change{}
	j.queue = j.queue[1:]
	j.rejected = append(j.rejected, RejectedChange{Change: c, Err: err})
	j.mu.Unlock()

	metrics.IncJournalRejected(c.Kind.String())
	j.logger.Error("Change rejected by store, moved aside",
		zap.String("change", c.Kind.String()),
		zap.String("account_id", c.Day.AccountID.String()),
		zap.String("session_id", c.SessionID.String()),
		zap.Error(err),
	)
}

// Rejected возвращает изменения, отвергнутые базой без повторов
func (j *Journal) Rejected() []RejectedChange {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]RejectedChange(nil), j.rejected...)
}

// isPermanent отличает ошибки данных (класс 22) и нарушения ограничений (класс 23)
// от временных сбоев соединения
func isPermanent(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	class := pgErr.Code
	if len(class) >= 2 {
		class = class[:2]
	}
	return class == "22" || class == "23"
}

func (j *Journal) retryDelay(attempt int) time.Duration {
	if attempt >= len(j.retryDelays) {
		return j.retryDelays[len(j.retryDelays)-1]
	}
	return j.retryDelays[attempt]
}

func (j *Journal) apply(ctx context.Context, c Change) error {
	switch c.Kind {
	case ChangeDay:
		return j.store.SaveDay(ctx, c.Day)
	case ChangeSessionCreated:
		return j.store.CreateSession(ctx, c.Session)
	case ChangeSessionUpdated:
		return j.store.UpdateSession(ctx, c.Session)
	case ChangeSessionDeleted:
		return j.store.DeleteSession(ctx, c.SessionID)
	case changeFlush:
		close(c.done)
		return nil
	}

	j.logger.Error("Dropping unknown change", zap.String("change", c.Kind.String()))
	return nil
}
