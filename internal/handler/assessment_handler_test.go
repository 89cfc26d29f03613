package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-assessment-api/internal/dto"
	"github.com/noah-isme/sma-assessment-api/internal/middleware"
	appErrors "github.com/noah-isme/sma-assessment-api/pkg/errors"
)

type responseEnvelope struct {
	Data  map[string]interface{} `json:"data"`
	Error *appErrors.Error       `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

type fakeAssessmentSrv struct {
	dueSoon    *dto.DueSoonResponse
	summary    *dto.SummaryResponse
	byType     *dto.SummaryByTypeResponse
	hit        bool
	err        error
	calls      int
	lastUserID string
	lastChart  int
}

func (f *fakeAssessmentSrv) DueSoon(_ context.Context, userID string) (*dto.DueSoonResponse, bool, error) {
	f.calls++
	f.lastUserID = userID
	return f.dueSoon, f.hit, f.err
}

func (f *fakeAssessmentSrv) Summary(_ context.Context, userID string) (*dto.SummaryResponse, bool, error) {
	f.calls++
	f.lastUserID = userID
	return f.summary, f.hit, f.err
}

func (f *fakeAssessmentSrv) SummaryByType(_ context.Context, userID string, chartType int) (*dto.SummaryByTypeResponse, bool, error) {
	f.calls++
	f.lastUserID = userID
	f.lastChart = chartType
	return f.byType, f.hit, f.err
}

func performAssessmentRequest(t *testing.T, srv *fakeAssessmentSrv, target string, handle func(*AssessmentHandler) gin.HandlerFunc) (*httptest.ResponseRecorder, responseEnvelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.WithResponseMeta())
	h := NewAssessmentHandler(srv)
	router.GET("/assessments/*action", handle(h))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return rec, envelope
}

func TestAssessmentHandlerDueSoonSuccess(t *testing.T) {
	srv := &fakeAssessmentSrv{dueSoon: &dto.DueSoonResponse{Within24Hours: 1, WithinWeek: 2, WithinMonth: 3}, hit: true}

	rec, envelope := performAssessmentRequest(t, srv, "/assessments/due-soon?userId=42", func(h *AssessmentHandler) gin.HandlerFunc { return h.DueSoon })

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "42", srv.lastUserID)
	assert.EqualValues(t, 1, envelope.Data["24hours"])
	assert.EqualValues(t, 2, envelope.Data["week"])
	assert.EqualValues(t, 3, envelope.Data["month"])
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	assert.Contains(t, envelope.Meta, "processing_time_ms")
}

func TestAssessmentHandlerSummarySuccess(t *testing.T) {
	srv := &fakeAssessmentSrv{summary: &dto.SummaryResponse{Submitted: 3, ToSubmit: 1, Overdue: 0, Marked: 2}}

	rec, envelope := performAssessmentRequest(t, srv, "/assessments/summary?userId=%2042%20", func(h *AssessmentHandler) gin.HandlerFunc { return h.Summary })

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "42", srv.lastUserID)
	assert.EqualValues(t, 3, envelope.Data["sub_assess"])
	assert.EqualValues(t, 1, envelope.Data["tobe_sub"])
	assert.EqualValues(t, 0, envelope.Data["overdue"])
	assert.EqualValues(t, 2, envelope.Data["assess_marked"])
	assert.Equal(t, false, envelope.Meta["cache_hit"])
}

func TestAssessmentHandlerRequiresUserID(t *testing.T) {
	srv := &fakeAssessmentSrv{}

	rec, envelope := performAssessmentRequest(t, srv, "/assessments/summary", func(h *AssessmentHandler) gin.HandlerFunc { return h.Summary })

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrValidation.Code, envelope.Error.Code)
	assert.Zero(t, srv.calls)
}

func TestAssessmentHandlerSummaryByTypeChartParsing(t *testing.T) {
	cases := []struct {
		name   string
		target string
		status int
	}{
		{"missing charttype", "/assessments/summary-by-type?userId=42", http.StatusBadRequest},
		{"non integer charttype", "/assessments/summary-by-type?userId=42&charttype=quiz", http.StatusBadRequest},
		{"valid charttype", "/assessments/summary-by-type?userId=42&charttype=2", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := &fakeAssessmentSrv{byType: &dto.SummaryByTypeResponse{Result: `{"charttype":2,"types":[]}`}}
			rec, envelope := performAssessmentRequest(t, srv, tc.target, func(h *AssessmentHandler) gin.HandlerFunc { return h.SummaryByType })
			assert.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, 2, srv.lastChart)
				assert.Equal(t, `{"charttype":2,"types":[]}`, envelope.Data["result"])
			} else {
				assert.Zero(t, srv.calls)
			}
		})
	}
}

func TestAssessmentHandlerPropagatesServiceErrors(t *testing.T) {
	srv := &fakeAssessmentSrv{err: appErrors.Clone(appErrors.ErrValidation, "invalid statistics request")}
	rec, _ := performAssessmentRequest(t, srv, "/assessments/due-soon?userId=abc", func(h *AssessmentHandler) gin.HandlerFunc { return h.DueSoon })
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	srv = &fakeAssessmentSrv{err: errors.New("db down")}
	rec, envelope := performAssessmentRequest(t, srv, "/assessments/due-soon?userId=42", func(h *AssessmentHandler) gin.HandlerFunc { return h.DueSoon })
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrInternal.Code, envelope.Error.Code)
}

func TestAssessmentHandlerWithoutService(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAssessmentHandler(nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/assessments/summary?userId=42", nil)

	handler.Summary(c)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
