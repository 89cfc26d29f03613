package repository

import (
	"strconv"
	"strings"

	appErrors "github.com/noah-isme/sma-assessment-api/pkg/errors"
)

// moodleTables resolves table names under the configured Moodle prefix.
type moodleTables struct {
	prefix string
}

func newMoodleTables(prefix string) moodleTables {
	var b strings.Builder
	for _, r := range strings.ToLower(prefix) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	return moodleTables{prefix: b.String()}
}

func (t moodleTables) name(table string) string {
	return t.prefix + table
}

func parseMoodleID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "userId must be a positive numeric id")
	}
	return id, nil
}

func nonNilIDs(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
