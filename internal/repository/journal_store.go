package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
)

// JournalStore направляет изменения журнала в репозитории расписаний и занятий
type JournalStore struct {
	schedules *ScheduleRepository
	sessions  *SessionRepository
}

func NewJournalStore(schedules *ScheduleRepository, sessions *SessionRepository) *JournalStore {
	return &JournalStore{schedules: schedules, sessions: sessions}
}

func (s *JournalStore) SaveDay(ctx context.Context, day model.ScheduleDay) error {
	return s.schedules.SaveDay(ctx, day)
}

func (s *JournalStore) CreateSession(ctx context.Context, session *model.Session) error {
	return s.sessions.Create(ctx, session)
}

func (s *JournalStore) UpdateSession(ctx context.Context, session *model.Session) error {
	return s.sessions.Update(ctx, session)
}

func (s *JournalStore) DeleteSession(ctx context.Context, id uuid.UUID) error {
	return s.sessions.Delete(ctx, id)
}
