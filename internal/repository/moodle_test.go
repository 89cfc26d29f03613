package repository

import (
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-assessment-api/pkg/errors"
)

func newMoodleRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestMoodleTablesSanitisesPrefix(t *testing.T) {
	assert.Equal(t, "mdl_course", newMoodleTables("mdl_").name("course"))
	assert.Equal(t, "mdl_dropcourse", newMoodleTables("MDL_; DROP").name("course"))
	assert.Equal(t, "course", newMoodleTables("").name("course"))
}

func TestParseMoodleID(t *testing.T) {
	id, err := parseMoodleID(" 42 ")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, raw := range []string{"", "abc", "0", "-3"} {
		_, err := parseMoodleID(raw)
		require.Error(t, err, raw)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}
}
