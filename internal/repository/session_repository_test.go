package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
)

var sessionCols = []string{
	"id", "tutor_id", "student_id", "start_time", "course_field", "course_num", "course_title",
	"duration_hours", "completed", "rating", "created_at",
}

func testSession() *model.Session {
	return &model.Session{
		ID:        uuid.New(),
		TutorID:   uuid.New(),
		StudentID: uuid.New(),
		StartTime: time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC),
		Course:    dataStructures,
		Duration:  2,
		CreatedAt: time.Date(2026, 10, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestSessionRepository_Create(t *testing.T) {
	mock := newMock(t)
	repo := NewSessionRepository(mock)
	s := testSession()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sessions")).
		WithArgs(s.ID, s.TutorID, s.StudentID, s.StartTime, "CSCI", 264, "Data Structures", 2, false, s.Rating, s.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), s))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_Update(t *testing.T) {
	mock := newMock(t)
	repo := NewSessionRepository(mock)
	s := testSession()
	s.Completed = true
	rating := 5
	s.Rating = &rating

	mock.ExpectExec(regexp.QuoteMeta("UPDATE sessions")).
		WithArgs(true, s.Rating, s.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, repo.Update(context.Background(), s))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE sessions")).
		WithArgs(true, s.Rating, s.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	assert.ErrorIs(t, repo.Update(context.Background(), s), model.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_ListAll(t *testing.T) {
	mock := newMock(t)
	repo := NewSessionRepository(mock)
	active := testSession()
	done := testSession()
	rating := 4

	mock.ExpectQuery(regexp.QuoteMeta("FROM sessions ORDER BY start_time, id")).
		WillReturnRows(pgxmock.NewRows(sessionCols).
			AddRow(active.ID.String(), active.TutorID.String(), active.StudentID.String(), active.StartTime, "CSCI", 264, "Data Structures", 2, false, (*int)(nil), active.CreatedAt).
			AddRow(done.ID.String(), done.TutorID.String(), done.StudentID.String(), done.StartTime, "CSCI", 264, "Data Structures", 2, true, &rating, done.CreatedAt))

	sessions, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	assert.Equal(t, active.ID, sessions[0].ID)
	assert.Nil(t, sessions[0].Rating)
	assert.Equal(t, dataStructures, sessions[0].Course)
	assert.Equal(t, model.Interval{Start: 9, End: 11, Status: model.StatusBusy}, sessions[0].Hours())

	assert.True(t, sessions[1].Completed)
	require.NotNil(t, sessions[1].Rating)
	assert.Equal(t, 4, *sessions[1].Rating)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJournalStore(t *testing.T) {
	mock := newMock(t)
	store := NewJournalStore(NewScheduleRepository(mock), NewSessionRepository(mock))
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions WHERE id = $1")).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, store.DeleteSession(context.Background(), id))
	require.NoError(t, mock.ExpectationsWereMet())
}
