package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisibilityRepositoryHiddenItems(t *testing.T) {
	db, mock, cleanup := newMoodleRepoMock(t)
	defer cleanup()
	repo := NewVisibilityRepository(db, "mdl_")
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	rows := sqlmock.NewRows([]string{"id"}).AddRow(int64(11))
	mock.ExpectQuery(regexp.QuoteMeta("FROM mdl_grade_items gi")).
		WithArgs(pq.Array([]int64{3, 7}), now.Unix(), int64(42)).
		WillReturnRows(rows)

	hidden, err := repo.HiddenItems(context.Background(), "42", []int64{3, 7})
	require.NoError(t, err)
	assert.Equal(t, []int64{11}, hidden)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVisibilityRepositorySkipsQueryWithoutCourses(t *testing.T) {
	db, mock, cleanup := newMoodleRepoMock(t)
	defer cleanup()
	repo := NewVisibilityRepository(db, "mdl_")

	hidden, err := repo.HiddenItems(context.Background(), "42", nil)
	require.NoError(t, err)
	assert.Empty(t, hidden)
	require.NoError(t, mock.ExpectationsWereMet())
}
