package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Freeeeeet/tutor_scheduler/internal/metrics"
	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/schedule"
)

type accountReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Account, error)
}

type ratingWriter interface {
	AddRating(ctx context.Context, tutorID uuid.UUID, rating int) error
}

type bookingAccounts interface {
	accountReader
	ratingWriter
}

// BookRequest - запрос на запись к репетитору на часы [Start, End) даты Date
type BookRequest struct {
	TutorID   uuid.UUID    `validate:"required"`
	StudentID uuid.UUID    `validate:"required"`
	Date      time.Time    `validate:"required"`
	Start     int          `validate:"gte=0,lte=23"`
	End       int          `validate:"gtfield=Start,lte=24"`
	Course    model.Course `validate:"-"`
}

type BookingService struct {
	accounts  bookingAccounts
	state     *State
	locker    *KeyedLocker
	journal   changeRecorder
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

func NewBookingService(
	accounts bookingAccounts,
	state *State,
	locker *KeyedLocker,
	journal changeRecorder,
	validate *validator.Validate,
	logger *zap.Logger,
) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingService{
		accounts:  accounts,
		state:     state,
		locker:    locker,
		journal:   journal,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Book записывает студента к репетитору. Часы должны быть свободны у репетитора
// и не пересекаться с другими занятиями студента в эту дату.
func (s *BookingService) Book(ctx context.Context, req BookRequest) (*model.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrValidation, err)
	}
	if req.Course.IsZero() {
		return nil, fmt.Errorf("%w: course is required", model.ErrValidation)
	}
	if req.TutorID == req.StudentID {
		return nil, fmt.Errorf("%w: tutor and student must differ", model.ErrValidation)
	}

	tutor, err := s.requireAccount(ctx, req.TutorID)
	if err != nil {
		return nil, err
	}
	if !tutor.IsTutor {
		return nil, fmt.Errorf("%w: account %s is not a tutor", model.ErrValidation, tutor.ID)
	}
	if _, err := s.requireAccount(ctx, req.StudentID); err != nil {
		return nil, err
	}

	hours := model.Interval{Start: req.Start, End: req.End, Status: model.StatusBusy}
	weekday := model.WeekdayOf(req.Date)

	unlock := s.locker.Lock(dayKey(req.TutorID, weekday), dayKey(req.StudentID, weekday))
	defer unlock()

	day, ok := s.state.Day(req.TutorID, weekday)
	if !ok {
		return nil, fmt.Errorf("%w: schedule of tutor %s", model.ErrNotFound, req.TutorID)
	}

	free := schedule.FreeSlots(day, s.state.SessionsOn(req.TutorID, req.Date), req.Date)
	if !schedule.Covers(free, hours) {
		metrics.IncBookingRejected("tutor_unavailable")
		return nil, fmt.Errorf("%w: tutor is not free %02d:00-%02d:00", model.ErrSlotUnavailable, req.Start, req.End)
	}

	for _, other := range s.state.SessionsOn(req.StudentID, req.Date) {
		if other.IsActive() && other.Hours().Overlaps(hours) {
			metrics.IncBookingRejected("student_busy")
			return nil, fmt.Errorf("%w: student already booked %s", model.ErrSlotUnavailable, other.Hours())
		}
	}

	reserved, err := schedule.Reserve(day, hours)
	if err != nil {
		return nil, fmt.Errorf("reserve hours: %w", err)
	}

	session := &model.Session{
		ID:        uuid.New(),
		TutorID:   req.TutorID,
		StudentID: req.StudentID,
		StartTime: model.StartOf(req.Date, req.Start),
		Course:    req.Course,
		Duration:  hours.Len(),
		CreatedAt: s.now().UTC(),
	}

	committed, err := s.state.CommitDay(req.TutorID, weekday, reserved)
	if err != nil {
		return nil, fmt.Errorf("commit day: %w", err)
	}
	s.state.PutSession(session)
	s.journal.Append(DayChange(committed), SessionCreated(session))

	metrics.IncSessionBooked()
	s.logger.Info("Session booked",
		zap.String("session_id", session.ID.String()),
		zap.String("tutor_id", session.TutorID.String()),
		zap.String("student_id", session.StudentID.String()),
		zap.Time("start_time", session.StartTime),
		zap.Int("duration", session.Duration),
		zap.Int("course_num", session.Course.Number),
	)

	return session.Clone(), nil
}

// Cancel отменяет активное занятие и освобождает часы репетитора
func (s *BookingService) Cancel(ctx context.Context, sessionID uuid.UUID) error {
	session, err := s.closeSession(ctx, sessionID, false)
	if err != nil {
		return err
	}

	metrics.IncSessionClosed("cancelled")
	s.logger.Info("Session cancelled",
		zap.String("session_id", session.ID.String()),
		zap.String("tutor_id", session.TutorID.String()),
		zap.String("student_id", session.StudentID.String()),
	)

	return nil
}

// Complete отмечает занятие проведённым; часы репетитора снова свободны
func (s *BookingService) Complete(ctx context.Context, sessionID uuid.UUID) (*model.Session, error) {
	session, err := s.closeSession(ctx, sessionID, true)
	if err != nil {
		return nil, err
	}

	metrics.IncSessionClosed("completed")
	s.logger.Info("Session completed",
		zap.String("session_id", session.ID.String()),
		zap.String("tutor_id", session.TutorID.String()),
	)

	return session, nil
}

// closeSession снимает активное занятие с расписания репетитора.
// complete=false удаляет запись, complete=true сохраняет её как проведённую.
func (s *BookingService) closeSession(_ context.Context, sessionID uuid.UUID, complete bool) (*model.Session, error) {
	session, err := s.activeSession(sessionID)
	if err != nil {
		return nil, err
	}

	weekday := session.Weekday()
	unlock := s.lockSession(session)
	defer unlock()

	// Повторная проверка под блокировкой: занятие могли закрыть параллельно
	session, err = s.activeSession(sessionID)
	if err != nil {
		return nil, err
	}

	day, ok := s.state.Day(session.TutorID, weekday)
	if !ok {
		return nil, fmt.Errorf("%w: schedule of tutor %s", model.ErrNotFound, session.TutorID)
	}

	released, err := schedule.Release(day, session.Hours())
	if err != nil {
		return nil, fmt.Errorf("release hours: %w", err)
	}

	committed, err := s.state.CommitDay(session.TutorID, weekday, released)
	if err != nil {
		return nil, fmt.Errorf("commit day: %w", err)
	}

	if complete {
		session.Completed = true
		s.state.PutSession(session)
		s.journal.Append(DayChange(committed), SessionUpdated(session))
	} else {
		s.state.DeleteSession(session.ID)
		s.journal.Append(DayChange(committed), SessionDeleted(session.ID))
	}

	return session, nil
}

// Rate выставляет оценку проведённому занятию и учитывает её в рейтинге репетитора.
// Если рейтинг репетитора не удалось обновить, оценка с занятия снимается.
func (s *BookingService) Rate(ctx context.Context, sessionID uuid.UUID, rating int) (*model.Session, error) {
	if rating < model.MinRating || rating > model.MaxRating {
		return nil, fmt.Errorf("%w: rating must be between %d and %d", model.ErrValidation, model.MinRating, model.MaxRating)
	}

	session, ok := s.state.Session(sessionID)
	if !ok {
		return nil, fmt.Errorf("%w: session %s", model.ErrNotFound, sessionID)
	}

	session, err := s.claimRating(session, rating)
	if err != nil {
		return nil, err
	}

	if err := s.accounts.AddRating(ctx, session.TutorID, rating); err != nil {
		s.releaseRating(session)
		s.logger.Error("Failed to add tutor rating",
			zap.String("session_id", session.ID.String()),
			zap.String("tutor_id", session.TutorID.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("add rating: %w", err)
	}

	s.commitRating(session)

	s.logger.Info("Session rated",
		zap.String("session_id", session.ID.String()),
		zap.String("tutor_id", session.TutorID.String()),
		zap.Int("rating", rating),
	)

	return session, nil
}

// claimRating ставит оценку в памяти, чтобы параллельный Rate получил отказ.
// В журнал оценка попадает только после commitRating.
func (s *BookingService) claimRating(session *model.Session, rating int) (*model.Session, error) {
	unlock := s.lockSession(session)
	defer unlock()

	session, ok := s.state.Session(session.ID)
	if !ok {
		return nil, fmt.Errorf("%w: session", model.ErrNotFound)
	}
	if !session.Completed {
		return nil, fmt.Errorf("%w: session is not completed yet", model.ErrValidation)
	}
	if session.Rating != nil {
		return nil, fmt.Errorf("%w: session is already rated", model.ErrValidation)
	}

	session.Rating = &rating
	s.state.PutSession(session)

	return session.Clone(), nil
}

func (s *BookingService) commitRating(session *model.Session) {
	unlock := s.lockSession(session)
	defer unlock()

	if current, ok := s.state.Session(session.ID); ok {
		s.journal.Append(SessionUpdated(current))
	}
}

func (s *BookingService) releaseRating(session *model.Session) {
	unlock := s.lockSession(session)
	defer unlock()

	if current, ok := s.state.Session(session.ID); ok {
		current.Rating = nil
		s.state.PutSession(current)
	}
}

func (s *BookingService) lockSession(session *model.Session) func() {
	weekday := session.Weekday()
	return s.locker.Lock(dayKey(session.TutorID, weekday), dayKey(session.StudentID, weekday))
}

// SessionsFor возвращает занятия, где аккаунт - репетитор или студент
func (s *BookingService) SessionsFor(_ context.Context, accountID uuid.UUID) ([]model.Session, error) {
	return s.state.SessionsFor(accountID), nil
}

// CompleteElapsed завершает все активные занятия, закончившиеся к моменту now
func (s *BookingService) CompleteElapsed(ctx context.Context, now time.Time) (int, error) {
	completed := 0
	for _, session := range s.state.Elapsed(model.WallClock(now)) {
		if err := ctx.Err(); err != nil {
			return completed, err
		}

		if _, err := s.Complete(ctx, session.ID); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				continue // закрыто параллельно
			}
			return completed, fmt.Errorf("complete session %s: %w", session.ID, err)
		}
		completed++
	}

	return completed, nil
}

func (s *BookingService) activeSession(id uuid.UUID) (*model.Session, error) {
	session, ok := s.state.Session(id)
	if !ok {
		return nil, fmt.Errorf("%w: session %s", model.ErrNotFound, id)
	}
	if session.Completed {
		return nil, fmt.Errorf("session %s: %w", id, model.ErrSessionClosed)
	}
	return session, nil
}

func (s *BookingService) requireAccount(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("%w: account %s", model.ErrNotFound, id)
	}
	return account, nil
}
