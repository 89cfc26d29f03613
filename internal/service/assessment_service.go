package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-assessment-api/internal/dto"
	"github.com/noah-isme/sma-assessment-api/internal/models"
	appErrors "github.com/noah-isme/sma-assessment-api/pkg/errors"
)

type enrollmentResolver interface {
	CurrentCourses(ctx context.Context, userID string) ([]int64, error)
}

type visibilityFilter interface {
	HiddenItems(ctx context.Context, userID string, courseIDs []int64) ([]int64, error)
}

type gradableItemLister interface {
	ListItems(ctx context.Context, courseIDs, excludedItemIDs []int64) ([]models.GradableItem, error)
}

type gradeStatusResolver interface {
	GradeStatus(ctx context.Context, item models.GradableItem, userID string, now time.Time) (models.SubmissionStatus, *float64, error)
}

// AssessmentServiceConfig tunes staleness per statistic family and the due-soon windows.
type AssessmentServiceConfig struct {
	DueSoonStaleAfter       time.Duration
	SummaryStaleAfter       time.Duration
	SummaryByTypeStaleAfter time.Duration
	Windows                 models.DueSoonWindows
}

// AssessmentServiceParams groups constructor dependencies.
type AssessmentServiceParams struct {
	Enrollments enrollmentResolver
	Visibility  visibilityFilter
	Items       gradableItemLister
	Grades      gradeStatusResolver
	Cache       *CacheService
	Metrics     *MetricsService
	Validator   *validator.Validate
	Logger      *zap.Logger
	Config      AssessmentServiceConfig
}

// AssessmentService aggregates a student's assessment status behind the statistics cache.
type AssessmentService struct {
	enrollments enrollmentResolver
	visibility  visibilityFilter
	items       gradableItemLister
	grades      gradeStatusResolver
	cache       *CacheService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	tracer      trace.Tracer
	now         func() time.Time
	cfg         AssessmentServiceConfig
}

const moodleIDTag = "moodleid"

type userStatsRequest struct {
	UserID string `validate:"required,moodleid"`
}

type chartStatsRequest struct {
	UserID    string `validate:"required,moodleid"`
	ChartType int    `validate:"gte=0,lte=4"`
}

// validMoodleID accepts positive decimal ids that fit an int64.
func validMoodleID(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	for _, r := range raw {
		if r < '0' || r > '9' {
			return false
		}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	return err == nil && id > 0
}

// NewAssessmentService constructs an AssessmentService with sane defaults.
func NewAssessmentService(params AssessmentServiceParams) *AssessmentService {
	cfg := params.Config
	if cfg.DueSoonStaleAfter <= 0 {
		cfg.DueSoonStaleAfter = 5 * time.Minute
	}
	if cfg.SummaryStaleAfter <= 0 {
		cfg.SummaryStaleAfter = 30 * time.Minute
	}
	if cfg.SummaryByTypeStaleAfter <= 0 {
		cfg.SummaryByTypeStaleAfter = 2 * time.Hour
	}
	if cfg.Windows == (models.DueSoonWindows{}) {
		cfg.Windows = models.DefaultDueSoonWindows
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	if err := validate.RegisterValidation(moodleIDTag, validMoodleID); err != nil {
		logger.Warn("register user id validation failed", zap.Error(err))
	}
	return &AssessmentService{
		enrollments: params.Enrollments,
		visibility:  params.Visibility,
		items:       params.Items,
		grades:      params.Grades,
		cache:       params.Cache,
		metrics:     params.Metrics,
		validator:   validate,
		logger:      logger,
		tracer:      otel.Tracer("github.com/noah-isme/sma-assessment-api/internal/service"),
		now:         time.Now,
		cfg:         cfg,
	}
}

// DueSoon returns due-soon counts for the user and indicates cache utilisation.
func (s *AssessmentService) DueSoon(ctx context.Context, userID string) (*dto.DueSoonResponse, bool, error) {
	userID = strings.TrimSpace(userID)
	if err := s.validate(userStatsRequest{UserID: userID}); err != nil {
		return nil, false, err
	}
	key := models.CacheKey{Kind: models.StatDueSoon, UserID: userID}
	stats, hit, err := GetOrRefresh(ctx, s.cache, key, s.cfg.DueSoonStaleAfter, func(ctx context.Context) (models.DueSoonStats, error) {
		return s.ComputeDueSoon(ctx, userID)
	})
	if err != nil {
		return nil, false, err
	}
	return &dto.DueSoonResponse{
		Within24Hours: stats.Within24Hours,
		WithinWeek:    stats.WithinWeek,
		WithinMonth:   stats.WithinMonth,
	}, hit, nil
}

// Summary returns submission and marking counts for the user.
func (s *AssessmentService) Summary(ctx context.Context, userID string) (*dto.SummaryResponse, bool, error) {
	userID = strings.TrimSpace(userID)
	if err := s.validate(userStatsRequest{UserID: userID}); err != nil {
		return nil, false, err
	}
	key := models.CacheKey{Kind: models.StatSummary, UserID: userID}
	stats, hit, err := GetOrRefresh(ctx, s.cache, key, s.cfg.SummaryStaleAfter, func(ctx context.Context) (models.SummaryStats, error) {
		return s.ComputeSummary(ctx, userID)
	})
	if err != nil {
		return nil, false, err
	}
	return dto.NewSummaryResponse(stats), hit, nil
}

// SummaryByType returns the per-module breakdown for the chart as a serialized blob.
func (s *AssessmentService) SummaryByType(ctx context.Context, userID string, chartType int) (*dto.SummaryByTypeResponse, bool, error) {
	userID = strings.TrimSpace(userID)
	if err := s.validate(chartStatsRequest{UserID: userID, ChartType: chartType}); err != nil {
		return nil, false, err
	}
	chart := models.ChartType(chartType)
	key := models.CacheKey{Kind: models.StatSummaryByType, UserID: userID, Qualifier: models.ChartQualifier(chart)}
	result, hit, err := GetOrRefresh(ctx, s.cache, key, s.cfg.SummaryByTypeStaleAfter, func(ctx context.Context) (string, error) {
		return s.ComputeSummaryByType(ctx, userID, chart)
	})
	if err != nil {
		return nil, false, err
	}
	return &dto.SummaryByTypeResponse{Result: result}, hit, nil
}

// ComputeSummary walks the user's visible items and tallies them without consulting the cache.
func (s *AssessmentService) ComputeSummary(ctx context.Context, userID string) (stats models.SummaryStats, err error) {
	ctx, finish := s.startPass(ctx, models.StatSummary, userID)
	defer func() { finish(err) }()

	items, err := s.loadItems(ctx, userID)
	if err != nil {
		return models.SummaryStats{}, err
	}
	return s.tallySummary(userID, items), nil
}

// ComputeDueSoon counts items still awaiting submission per forward window from now.
func (s *AssessmentService) ComputeDueSoon(ctx context.Context, userID string) (stats models.DueSoonStats, err error) {
	ctx, finish := s.startPass(ctx, models.StatDueSoon, userID)
	defer func() { finish(err) }()

	items, err := s.loadItems(ctx, userID)
	if err != nil {
		return models.DueSoonStats{}, err
	}
	return tallyDueSoon(items, s.now(), s.cfg.Windows), nil
}

// ComputeSummaryByType groups the summary by module type and serializes the chart.
func (s *AssessmentService) ComputeSummaryByType(ctx context.Context, userID string, chart models.ChartType) (result string, err error) {
	ctx, finish := s.startPass(ctx, models.StatSummaryByType, userID)
	defer func() { finish(err) }()

	if !chart.Valid() {
		return "", appErrors.Clone(appErrors.ErrValidation, "unknown charttype")
	}
	items, err := s.loadItems(ctx, userID)
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(s.tallyByType(userID, items, chart))
	if err != nil {
		return "", fmt.Errorf("encode summary by type: %w", err)
	}
	return string(payload), nil
}

func (s *AssessmentService) startPass(ctx context.Context, kind models.StatKind, userID string) (context.Context, func(error)) {
	ctx, span := s.tracer.Start(ctx, "assessment.compute."+string(kind),
		trace.WithAttributes(attribute.String("user.id", userID), attribute.String("stat.kind", string(kind))))
	start := time.Now()
	return ctx, func(err error) {
		s.metrics.ObserveStatCompute(kind, time.Since(start))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

func (s *AssessmentService) loadItems(ctx context.Context, userID string) ([]models.AssessmentItem, error) {
	if s.enrollments == nil || s.visibility == nil || s.items == nil || s.grades == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "assessment data access unavailable")
	}
	now := s.now()

	start := time.Now()
	courseIDs, err := s.enrollments.CurrentCourses(ctx, userID)
	s.metrics.ObserveDBQuery("current_courses", time.Since(start))
	if err != nil {
		return nil, err
	}
	if len(courseIDs) == 0 {
		return nil, nil
	}

	start = time.Now()
	hidden, err := s.visibility.HiddenItems(ctx, userID, courseIDs)
	s.metrics.ObserveDBQuery("hidden_items", time.Since(start))
	if err != nil {
		return nil, err
	}

	start = time.Now()
	gradable, err := s.items.ListItems(ctx, courseIDs, hidden)
	s.metrics.ObserveDBQuery("list_items", time.Since(start))
	if err != nil {
		return nil, err
	}

	items := make([]models.AssessmentItem, 0, len(gradable))
	for _, item := range gradable {
		start = time.Now()
		status, grade, err := s.grades.GradeStatus(ctx, item, userID, now)
		s.metrics.ObserveDBQuery("grade_status", time.Since(start))
		if err != nil {
			return nil, err
		}
		items = append(items, models.AssessmentItem{
			ItemID:     item.ItemID,
			CourseID:   item.CourseID,
			ModuleType: item.ModuleType,
			DueDate:    item.DueDate,
			Status:     status,
			FinalGrade: grade,
		})
	}
	return items, nil
}

func (s *AssessmentService) tallySummary(userID string, items []models.AssessmentItem) models.SummaryStats {
	var stats models.SummaryStats
	for _, item := range items {
		switch {
		case item.Marked() && item.Status != models.StatusSubmitted:
			s.logger.Warn("graded item without submission, counting as submitted",
				zap.String("user_id", userID),
				zap.Int64("item_id", item.ItemID),
				zap.String("status", string(item.Status)))
			stats.Submitted++
			stats.Marked++
		case item.Status == models.StatusSubmitted:
			stats.Submitted++
			if item.Marked() {
				stats.Marked++
			}
		case item.Status.AwaitingSubmission():
			stats.ToSubmit++
		case item.Status == models.StatusOverdue:
			stats.Overdue++
		default:
			s.logger.Warn("unknown submission status", zap.Int64("item_id", item.ItemID), zap.String("status", string(item.Status)))
		}
	}
	return stats
}

func (s *AssessmentService) tallyByType(userID string, items []models.AssessmentItem, chart models.ChartType) models.SummaryByType {
	groups := map[string][]models.AssessmentItem{}
	if module := chart.Module(); module != "" {
		groups[module] = nil
	}
	for _, item := range items {
		if !chart.Includes(item.ModuleType) {
			continue
		}
		groups[item.ModuleType] = append(groups[item.ModuleType], item)
	}

	moduleTypes := make([]string, 0, len(groups))
	for moduleType := range groups {
		moduleTypes = append(moduleTypes, moduleType)
	}
	sort.Strings(moduleTypes)

	result := models.SummaryByType{ChartType: chart, Types: make([]models.TypeSummary, 0, len(moduleTypes))}
	for _, moduleType := range moduleTypes {
		result.Types = append(result.Types, models.TypeSummary{
			ModuleType:   moduleType,
			SummaryStats: s.tallySummary(userID, groups[moduleType]),
		})
	}
	return result
}

func tallyDueSoon(items []models.AssessmentItem, now time.Time, windows models.DueSoonWindows) models.DueSoonStats {
	var stats models.DueSoonStats
	for _, item := range items {
		if item.DueDate == nil || item.Marked() || !item.Status.AwaitingSubmission() {
			continue
		}
		until := item.DueDate.Sub(now)
		if until <= 0 {
			continue
		}
		if until <= windows.Day {
			stats.Within24Hours++
		}
		if until <= windows.Week {
			stats.WithinWeek++
		}
		if until <= windows.Month {
			stats.WithinMonth++
		}
	}
	return stats
}

func (s *AssessmentService) validate(req interface{}) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid statistics request")
	}
	return nil
}
