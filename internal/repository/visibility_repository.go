package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// VisibilityRepository lists gradable items a user must not see or be counted against.
type VisibilityRepository struct {
	db     *sqlx.DB
	tables moodleTables
	now    func() time.Time
}

// NewVisibilityRepository instantiates the repository.
func NewVisibilityRepository(db *sqlx.DB, tablePrefix string) *VisibilityRepository {
	return &VisibilityRepository{db: db, tables: newMoodleTables(tablePrefix), now: time.Now}
}

// HiddenItems returns grade item ids hidden in the gradebook, attached to hidden activities,
// or excluded for this user.
func (r *VisibilityRepository) HiddenItems(ctx context.Context, userID string, courseIDs []int64) ([]int64, error) {
	if len(courseIDs) == 0 {
		return nil, nil
	}
	uid, err := parseMoodleID(userID)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT gi.id FROM %[1]s gi
        WHERE gi.courseid = ANY($1) AND (gi.hidden = 1 OR gi.hidden > $2)
        UNION
        SELECT gi.id FROM %[1]s gi
        JOIN %[2]s m ON m.name = gi.itemmodule
        JOIN %[3]s cm ON cm.module = m.id AND cm.instance = gi.iteminstance AND cm.course = gi.courseid
        WHERE gi.courseid = ANY($1) AND gi.itemtype = 'mod' AND (cm.visible = 0 OR cm.deletioninprogress = 1)
        UNION
        SELECT gg.itemid FROM %[4]s gg
        JOIN %[1]s gi ON gi.id = gg.itemid
        WHERE gi.courseid = ANY($1) AND gg.userid = $3 AND gg.excluded > 0`,
		r.tables.name("grade_items"), r.tables.name("modules"), r.tables.name("course_modules"), r.tables.name("grade_grades"))

	var itemIDs []int64
	if err := r.db.SelectContext(ctx, &itemIDs, query, pq.Array(courseIDs), r.now().Unix(), uid); err != nil {
		return nil, fmt.Errorf("query hidden items for user %d: %w", uid, err)
	}
	return itemIDs, nil
}
