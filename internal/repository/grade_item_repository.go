package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-assessment-api/internal/models"
)

// GradeItemRepository enumerates activity grade items with their due dates.
type GradeItemRepository struct {
	db     *sqlx.DB
	tables moodleTables
}

// NewGradeItemRepository instantiates the repository.
func NewGradeItemRepository(db *sqlx.DB, tablePrefix string) *GradeItemRepository {
	return &GradeItemRepository{db: db, tables: newMoodleTables(tablePrefix)}
}

// ListItems returns the gradable activity items of the courses minus the excluded ids.
func (r *GradeItemRepository) ListItems(ctx context.Context, courseIDs, excludedItemIDs []int64) ([]models.GradableItem, error) {
	if len(courseIDs) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT gi.id AS item_id, gi.courseid AS course_id, gi.itemmodule AS module_type, gi.iteminstance AS item_instance,
        COALESCE(NULLIF(a.duedate, 0), NULLIF(q.timeclose, 0), NULLIF(w.submissionend, 0), NULLIF(f.duedate, 0)) AS due_unix
        FROM %s gi
        LEFT JOIN %s a ON gi.itemmodule = 'assign' AND a.id = gi.iteminstance
        LEFT JOIN %s q ON gi.itemmodule = 'quiz' AND q.id = gi.iteminstance
        LEFT JOIN %s w ON gi.itemmodule = 'workshop' AND w.id = gi.iteminstance
        LEFT JOIN %s f ON gi.itemmodule = 'forum' AND f.id = gi.iteminstance
        WHERE gi.itemtype = 'mod' AND gi.itemnumber = 0
          AND gi.courseid = ANY($1) AND NOT (gi.id = ANY($2))
        ORDER BY gi.courseid, gi.sortorder, gi.id`,
		r.tables.name("grade_items"), r.tables.name("assign"), r.tables.name("quiz"), r.tables.name("workshop"), r.tables.name("forum"))

	type row struct {
		ItemID       int64         `db:"item_id"`
		CourseID     int64         `db:"course_id"`
		ModuleType   string        `db:"module_type"`
		ItemInstance int64         `db:"item_instance"`
		DueUnix      sql.NullInt64 `db:"due_unix"`
	}

	var rows []row
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(courseIDs), pq.Array(nonNilIDs(excludedItemIDs))); err != nil {
		return nil, fmt.Errorf("query gradable items: %w", err)
	}

	items := make([]models.GradableItem, 0, len(rows))
	for _, rrow := range rows {
		item := models.GradableItem{
			ItemID:       rrow.ItemID,
			CourseID:     rrow.CourseID,
			ModuleType:   rrow.ModuleType,
			ItemInstance: rrow.ItemInstance,
		}
		if rrow.DueUnix.Valid {
			due := time.Unix(rrow.DueUnix.Int64, 0).UTC()
			item.DueDate = &due
		}
		items = append(items, item)
	}
	return items, nil
}
