package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-assessment-api/internal/models"
)

// GradeStatusRepository resolves a user's submission and grade for one gradable item.
type GradeStatusRepository struct {
	db     *sqlx.DB
	tables moodleTables
}

// NewGradeStatusRepository instantiates the repository.
func NewGradeStatusRepository(db *sqlx.DB, tablePrefix string) *GradeStatusRepository {
	return &GradeStatusRepository{db: db, tables: newMoodleTables(tablePrefix)}
}

// GradeStatus classifies the item for the user at now and returns the final grade if released.
func (r *GradeStatusRepository) GradeStatus(ctx context.Context, item models.GradableItem, userID string, now time.Time) (models.SubmissionStatus, *float64, error) {
	uid, err := parseMoodleID(userID)
	if err != nil {
		return "", nil, err
	}

	finalGrade, err := r.finalGrade(ctx, item.ItemID, uid)
	if err != nil {
		return "", nil, err
	}

	query := r.submissionQuery(item.ModuleType)
	if query == "" {
		// Modules without a submission record count as submitted once graded.
		return models.ClassifySubmission(finalGrade != nil, item.DueDate, now), finalGrade, nil
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, item.ItemInstance, uid); err != nil {
		return "", nil, fmt.Errorf("query %s submission %d for user %d: %w", item.ModuleType, item.ItemInstance, uid, err)
	}
	return models.ClassifySubmission(count > 0, item.DueDate, now), finalGrade, nil
}

func (r *GradeStatusRepository) finalGrade(ctx context.Context, itemID, userID int64) (*float64, error) {
	query := fmt.Sprintf("SELECT finalgrade FROM %s WHERE itemid = $1 AND userid = $2", r.tables.name("grade_grades"))
	var grade sql.NullFloat64
	if err := r.db.GetContext(ctx, &grade, query, itemID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query final grade for item %d user %d: %w", itemID, userID, err)
	}
	if !grade.Valid {
		return nil, nil
	}
	value := grade.Float64
	return &value, nil
}

func (r *GradeStatusRepository) submissionQuery(moduleType string) string {
	switch moduleType {
	case models.ModuleAssign:
		return fmt.Sprintf("SELECT COUNT(1) FROM %s WHERE assignment = $1 AND userid = $2 AND latest = 1 AND status = 'submitted'",
			r.tables.name("assign_submission"))
	case models.ModuleQuiz:
		return fmt.Sprintf("SELECT COUNT(1) FROM %s WHERE quiz = $1 AND userid = $2 AND state = 'finished'",
			r.tables.name("quiz_attempts"))
	case models.ModuleWorkshop:
		return fmt.Sprintf("SELECT COUNT(1) FROM %s WHERE workshopid = $1 AND authorid = $2 AND example = 0",
			r.tables.name("workshop_submissions"))
	case models.ModuleForum:
		return fmt.Sprintf("SELECT COUNT(1) FROM %s fp JOIN %s fd ON fd.id = fp.discussion WHERE fd.forum = $1 AND fp.userid = $2",
			r.tables.name("forum_posts"), r.tables.name("forum_discussions"))
	default:
		return ""
	}
}
