package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-assessment-api/internal/dto"
	"github.com/noah-isme/sma-assessment-api/internal/middleware"
	appErrors "github.com/noah-isme/sma-assessment-api/pkg/errors"
	"github.com/noah-isme/sma-assessment-api/pkg/response"
)

type assessmentService interface {
	DueSoon(ctx context.Context, userID string) (*dto.DueSoonResponse, bool, error)
	Summary(ctx context.Context, userID string) (*dto.SummaryResponse, bool, error)
	SummaryByType(ctx context.Context, userID string, chartType int) (*dto.SummaryByTypeResponse, bool, error)
}

// AssessmentHandler exposes the student assessment status endpoints.
type AssessmentHandler struct {
	service assessmentService
}

// NewAssessmentHandler constructs the handler.
func NewAssessmentHandler(service assessmentService) *AssessmentHandler {
	return &AssessmentHandler{service: service}
}

// DueSoon godoc
// @Summary Count assessments due soon
// @Tags Assessments
// @Produce json
// @Param userId query string true "Moodle user ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /assessments/due-soon [get]
func (h *AssessmentHandler) DueSoon(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	start := time.Now()
	stats, cacheHit, err := h.service.DueSoon(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, start, stats, cacheHit)
}

// Summary godoc
// @Summary Submission and marking summary
// @Tags Assessments
// @Produce json
// @Param userId query string true "Moodle user ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /assessments/summary [get]
func (h *AssessmentHandler) Summary(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	start := time.Now()
	stats, cacheHit, err := h.service.Summary(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, start, stats, cacheHit)
}

// SummaryByType godoc
// @Summary Summary grouped by assessment type
// @Tags Assessments
// @Produce json
// @Param userId query string true "Moodle user ID"
// @Param charttype query int true "0 all, 1 assign, 2 quiz, 3 workshop, 4 forum"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /assessments/summary-by-type [get]
func (h *AssessmentHandler) SummaryByType(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	rawChart := strings.TrimSpace(c.Query("charttype"))
	if rawChart == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "charttype is required"))
		return
	}
	chartType, err := strconv.Atoi(rawChart)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "charttype must be an integer"))
		return
	}
	start := time.Now()
	result, cacheHit, err := h.service.SummaryByType(c.Request.Context(), userID, chartType)
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, start, result, cacheHit)
}

func (h *AssessmentHandler) userID(c *gin.Context) (string, bool) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return "", false
	}
	userID := strings.TrimSpace(c.Query("userId"))
	if userID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "userId is required"))
		return "", false
	}
	return userID, true
}

func respond(c *gin.Context, start time.Time, data interface{}, cacheHit bool) {
	middleware.SetCacheHit(c, cacheHit)
	middleware.SetProcessingTime(c, start)
	response.JSON(c, http.StatusOK, data, middleware.ExtractMeta(c))
}
