package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/sara-edu/sara-grading-api/internal/dto"
	"github.com/sara-edu/sara-grading-api/internal/handler"
	"github.com/sara-edu/sara-grading-api/internal/matching"
	"github.com/sara-edu/sara-grading-api/internal/service"
)

type stubMatchingService struct {
	preview    dto.PreviewResponse
	previewErr error
	confirm    dto.ConfirmResponse
	confirmErr error
}

func (s stubMatchingService) Preview(context.Context, dto.PreviewRequest) (dto.PreviewResponse, error) {
	return s.preview, s.previewErr
}

func (s stubMatchingService) Confirm(context.Context, string, dto.ConfirmRequest) (dto.ConfirmResponse, error) {
	return s.confirm, s.confirmErr
}

func matchingApp(stub stubMatchingService) *fiber.App {
	app := fiber.New()
	h := handler.NewMatchingHandler(stub, zerolog.Nop())
	h.Register(app.Group("/api/v1/matches"))
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, payload interface{}) *http.Response {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestMatchingHandlerPreview(t *testing.T) {
	stub := stubMatchingService{preview: dto.PreviewResponse{
		BatchID: "batch-1",
		Proposals: []dto.ProposalResponse{
			{FileName: "Rosiello_Ana.md", StudentID: 1, StudentName: "Ana Rosiello", Confidence: 100, Status: "matched"},
		},
		Summary: dto.PreviewSummary{Total: 1, Matched: 1},
	}}

	resp := postJSON(t, matchingApp(stub), "/api/v1/matches/preview", dto.PreviewRequest{
		Course:    "physics-1",
		FileNames: []string{"Rosiello_Ana.md"},
	})

	require.Equal(t, http.StatusOK, resp.StatusCode)

	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(payload), "batch-1")
}

func TestMatchingHandlerPreviewBadBody(t *testing.T) {
	app := matchingApp(stubMatchingService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/matches/preview", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMatchingHandlerConfirmUnknownBatch(t *testing.T) {
	stub := stubMatchingService{confirmErr: service.ErrBatchNotFound}

	resp := postJSON(t, matchingApp(stub), "/api/v1/matches/expired/confirm", dto.ConfirmRequest{ActivityID: 7})

	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMatchingHandlerConfirmRejectionDetails(t *testing.T) {
	stub := stubMatchingService{confirmErr: &matching.ConfirmError{
		DuplicateFiles: []string{"Rosiello.md", "Rosiello_Ana.md"},
	}}

	resp := postJSON(t, matchingApp(stub), "/api/v1/matches/batch-1/confirm", dto.ConfirmRequest{ActivityID: 7})

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(payload), "duplicate_files")
	require.Contains(t, string(payload), "Rosiello.md")
}

func TestMatchingHandlerConfirmSuccess(t *testing.T) {
	stub := stubMatchingService{confirm: dto.ConfirmResponse{
		Assignments: []dto.AssignmentResponse{
			{FileName: "Rosiello_Ana.md", StudentID: 1, StudentName: "Ana Rosiello", SubmissionID: 11},
		},
	}}

	resp := postJSON(t, matchingApp(stub), "/api/v1/matches/batch-1/confirm", dto.ConfirmRequest{ActivityID: 7})

	require.Equal(t, http.StatusCreated, resp.StatusCode)
}
