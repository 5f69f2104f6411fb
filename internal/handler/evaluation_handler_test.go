package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sara-edu/sara-grading-api/internal/dto"
	"github.com/sara-edu/sara-grading-api/internal/handler"
	"github.com/sara-edu/sara-grading-api/internal/repository"
	"github.com/sara-edu/sara-grading-api/internal/service"
)

type stubEvaluationService struct {
	submission dto.SubmissionResponse
	list       []dto.SubmissionResponse
	stats      dto.ActivityStatsResponse
	err        error
}

func (s stubEvaluationService) Evaluate(context.Context, uint) (dto.SubmissionResponse, error) {
	return s.submission, s.err
}

func (s stubEvaluationService) ManualGrade(context.Context, uint, uint, dto.ManualGradeRequest) (dto.SubmissionResponse, error) {
	return s.submission, s.err
}

func (s stubEvaluationService) Get(context.Context, uint) (dto.SubmissionResponse, error) {
	return s.submission, s.err
}

func (s stubEvaluationService) List(context.Context, repository.SubmissionFilter) ([]dto.SubmissionResponse, error) {
	return s.list, s.err
}

func (s stubEvaluationService) ActivityStats(context.Context, uint) (dto.ActivityStatsResponse, error) {
	return s.stats, s.err
}

func evaluationApp(stub stubEvaluationService, graderID interface{}) *fiber.App {
	app := fiber.New()
	if graderID != nil {
		app.Use(func(c *fiber.Ctx) error {
			c.Locals("user_id", graderID)
			return c.Next()
		})
	}
	h := handler.NewEvaluationHandler(stub, zerolog.Nop())
	h.Register(app.Group("/api/v1/submissions"))
	h.RegisterActivityRoutes(app.Group("/api/v1/activities"))
	return app
}

func TestEvaluationHandlerEvaluate(t *testing.T) {
	score := 88
	stub := stubEvaluationService{submission: dto.SubmissionResponse{ID: 1, Status: "evaluated", AutomatedScore: &score}}
	app := evaluationApp(stub, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions/1/evaluate", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestEvaluationHandlerEvaluateConflict(t *testing.T) {
	stub := stubEvaluationService{err: service.ErrSubmissionState}
	app := evaluationApp(stub, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions/1/evaluate", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestEvaluationHandlerGetNotFound(t *testing.T) {
	stub := stubEvaluationService{err: gorm.ErrRecordNotFound}
	app := evaluationApp(stub, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/submissions/999", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEvaluationHandlerGradeRequiresIdentity(t *testing.T) {
	app := evaluationApp(stubEvaluationService{}, nil)

	body, err := json.Marshal(dto.ManualGradeRequest{Score: 70})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions/1/grade", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestEvaluationHandlerGrade(t *testing.T) {
	score := 70
	stub := stubEvaluationService{submission: dto.SubmissionResponse{ID: 1, ManualScore: &score}}
	app := evaluationApp(stub, uint(42))

	body, err := json.Marshal(dto.ManualGradeRequest{Score: 70, Feedback: "adjusted"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions/1/grade", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestEvaluationHandlerGradeNotEvaluated(t *testing.T) {
	stub := stubEvaluationService{err: service.ErrNotEvaluated}
	app := evaluationApp(stub, uint(42))

	body, err := json.Marshal(dto.ManualGradeRequest{Score: 70})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions/1/grade", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestEvaluationHandlerListInvalidFilter(t *testing.T) {
	app := evaluationApp(stubEvaluationService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/submissions?activity_id=abc", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEvaluationHandlerActivityStats(t *testing.T) {
	stub := stubEvaluationService{stats: dto.ActivityStatsResponse{ActivityID: 7, Total: 3, Evaluated: 2}}
	app := evaluationApp(stub, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/activities/7/stats", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
