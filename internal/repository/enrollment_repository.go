package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// EnrollmentRepository resolves the courses a user is currently enrolled in.
type EnrollmentRepository struct {
	db     *sqlx.DB
	tables moodleTables
	now    func() time.Time
}

// NewEnrollmentRepository instantiates the repository.
func NewEnrollmentRepository(db *sqlx.DB, tablePrefix string) *EnrollmentRepository {
	return &EnrollmentRepository{db: db, tables: newMoodleTables(tablePrefix), now: time.Now}
}

// CurrentCourses returns ids of visible, running courses with an active enrolment for the user.
func (r *EnrollmentRepository) CurrentCourses(ctx context.Context, userID string) ([]int64, error) {
	uid, err := parseMoodleID(userID)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT DISTINCT e.courseid
        FROM %s ue
        JOIN %s e ON e.id = ue.enrolid
        JOIN %s c ON c.id = e.courseid
        WHERE ue.userid = $1
          AND ue.status = 0 AND e.status = 0
          AND ue.timestart <= $2 AND (ue.timeend = 0 OR ue.timeend > $2)
          AND c.visible = 1
          AND c.startdate <= $2 AND (c.enddate = 0 OR c.enddate > $2)
        ORDER BY e.courseid`,
		r.tables.name("user_enrolments"), r.tables.name("enrol"), r.tables.name("course"))

	var courseIDs []int64
	if err := r.db.SelectContext(ctx, &courseIDs, query, uid, r.now().Unix()); err != nil {
		return nil, fmt.Errorf("query current courses for user %d: %w", uid, err)
	}
	return courseIDs, nil
}
