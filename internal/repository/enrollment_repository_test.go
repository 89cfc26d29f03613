package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrollmentRepositoryCurrentCourses(t *testing.T) {
	db, mock, cleanup := newMoodleRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db, "mdl_")
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	rows := sqlmock.NewRows([]string{"courseid"}).AddRow(int64(3)).AddRow(int64(7))
	mock.ExpectQuery(regexp.QuoteMeta("FROM mdl_user_enrolments ue")).
		WithArgs(int64(42), now.Unix()).
		WillReturnRows(rows)

	courses, err := repo.CurrentCourses(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 7}, courses)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCurrentCoursesPropagatesError(t *testing.T) {
	db, mock, cleanup := newMoodleRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db, "mdl_")

	dbErr := errors.New("connection reset")
	mock.ExpectQuery(regexp.QuoteMeta("FROM mdl_user_enrolments ue")).WillReturnError(dbErr)

	_, err := repo.CurrentCourses(context.Background(), "42")
	require.Error(t, err)
	assert.ErrorIs(t, err, dbErr)
}

func TestEnrollmentRepositoryRejectsNonNumericUser(t *testing.T) {
	db, mock, cleanup := newMoodleRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db, "mdl_")

	_, err := repo.CurrentCourses(context.Background(), "guest")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
