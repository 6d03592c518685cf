package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
)

type scheduleLister interface {
	ListAll(ctx context.Context) ([]model.ScheduleDay, error)
}

type sessionLister interface {
	ListAll(ctx context.Context) ([]*model.Session, error)
}

// State хранит актуальные недельные расписания и журнал занятий в памяти.
// Изменения дня расписания выполняются только под ключом KeyedLocker.
type State struct {
	mu        sync.RWMutex
	schedules map[uuid.UUID]*model.WeeklySchedule
	versions  map[lockKey]int64
	sessions  map[uuid.UUID]*model.Session
}

func NewState() *State {
	return &State{
		schedules: make(map[uuid.UUID]*model.WeeklySchedule),
		versions:  make(map[lockKey]int64),
		sessions:  make(map[uuid.UUID]*model.Session),
	}
}

// LoadState восстанавливает состояние из базы данных при старте
func LoadState(ctx context.Context, schedules scheduleLister, sessions sessionLister) (*State, error) {
	st := NewState()

	days, err := schedules.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load schedules: %w", err)
	}
	for _, d := range days {
		st.AddAccount(d.AccountID)
		if err := st.schedules[d.AccountID].Apply(d.Weekday, d.Intervals); err != nil {
			return nil, fmt.Errorf("load schedule %s %s: %w", d.AccountID, d.Weekday, err)
		}
		st.versions[dayKey(d.AccountID, d.Weekday)] = d.Version
	}

	list, err := sessions.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}
	for _, s := range list {
		st.sessions[s.ID] = s.Clone()
	}

	return st, nil
}

// AddAccount заводит полностью заблокированное расписание, если его ещё нет
func (st *State) AddAccount(accountID uuid.UUID) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.schedules[accountID]; ok {
		return false
	}
	st.schedules[accountID] = model.NewWeeklySchedule(accountID)
	return true
}

func (st *State) HasAccount(accountID uuid.UUID) bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	_, ok := st.schedules[accountID]
	return ok
}

// Day возвращает копию расписания дня
func (st *State) Day(accountID uuid.UUID, weekday model.Weekday) (model.DaySchedule, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	w, ok := st.schedules[accountID]
	if !ok {
		return nil, false
	}
	return w.Day(weekday), true
}

// Week возвращает копию недельного расписания
func (st *State) Week(accountID uuid.UUID) (*model.WeeklySchedule, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	w, ok := st.schedules[accountID]
	if !ok {
		return nil, false
	}
	return w.Clone(), true
}

// CommitDay заменяет расписание дня и увеличивает его версию
func (st *State) CommitDay(accountID uuid.UUID, weekday model.Weekday, day model.DaySchedule) (model.ScheduleDay, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	w, ok := st.schedules[accountID]
	if !ok {
		return model.ScheduleDay{}, fmt.Errorf("%w: schedule of account %s", model.ErrNotFound, accountID)
	}
	if err := w.Apply(weekday, day); err != nil {
		return model.ScheduleDay{}, err
	}

	key := dayKey(accountID, weekday)
	st.versions[key]++

	return model.ScheduleDay{
		AccountID: accountID,
		Weekday:   weekday,
		Version:   st.versions[key],
		Intervals: day.Clone(),
	}, nil
}

// snapshotDay возвращает текущее расписание дня вместе с версией
func (st *State) snapshotDay(accountID uuid.UUID, weekday model.Weekday) (model.ScheduleDay, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	w, ok := st.schedules[accountID]
	if !ok {
		return model.ScheduleDay{}, false
	}
	return model.ScheduleDay{
		AccountID: accountID,
		Weekday:   weekday,
		Version:   st.versions[dayKey(accountID, weekday)],
		Intervals: w.Day(weekday),
	}, true
}

func (st *State) Session(id uuid.UUID) (*model.Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	s, ok := st.sessions[id]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

func (st *State) PutSession(s *model.Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[s.ID] = s.Clone()
}

func (st *State) DeleteSession(id uuid.UUID) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

// SessionsOn возвращает занятия аккаунта (как репетитора или студента) на дату
func (st *State) SessionsOn(accountID uuid.UUID, date time.Time) []model.Session {
	st.mu.RLock()
	defer st.mu.RUnlock()

	var out []model.Session
	for _, s := range st.sessions {
		if s.Involves(accountID) && s.OnDate(date) {
			out = append(out, *s.Clone())
		}
	}
	sortSessions(out)
	return out
}

// SessionsFor возвращает все занятия аккаунта по времени начала
func (st *State) SessionsFor(accountID uuid.UUID) []model.Session {
	st.mu.RLock()
	defer st.mu.RUnlock()

	var out []model.Session
	for _, s := range st.sessions {
		if s.Involves(accountID) {
			out = append(out, *s.Clone())
		}
	}
	sortSessions(out)
	return out
}

// Elapsed возвращает активные занятия, закончившиеся к моменту now
func (st *State) Elapsed(now time.Time) []model.Session {
	st.mu.RLock()
	defer st.mu.RUnlock()

	var out []model.Session
	for _, s := range st.sessions {
		if s.IsActive() && !s.EndTime().After(now) {
			out = append(out, *s.Clone())
		}
	}
	sortSessions(out)
	return out
}

func sortSessions(sessions []model.Session) {
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].StartTime.Equal(sessions[j].StartTime) {
			return sessions[i].StartTime.Before(sessions[j].StartTime)
		}
		return sessions[i].ID.String() < sessions[j].ID.String()
	})
}
