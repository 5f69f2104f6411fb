package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/sara-edu/sara-grading-api/internal/dto"
	"github.com/sara-edu/sara-grading-api/internal/matching"
	"github.com/sara-edu/sara-grading-api/internal/service"
	"github.com/sara-edu/sara-grading-api/internal/utils"
)

// MatchingHandler manages the preview/confirm matching endpoints.
type MatchingHandler struct {
	service service.MatchingService
	logger  zerolog.Logger
}

// NewMatchingHandler builds a matching handler instance.
func NewMatchingHandler(service service.MatchingService, logger zerolog.Logger) *MatchingHandler {
	return &MatchingHandler{
		service: service,
		logger:  logger.With().Str("component", "matching_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *MatchingHandler) Register(router fiber.Router) {
	router.Post("/preview", h.preview)
	router.Post("/:batchId/confirm", h.confirm)
}

func (h *MatchingHandler) preview(c *fiber.Ctx) error {
	var payload dto.PreviewRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	preview, err := h.service.Preview(c.UserContext(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "match preview produced", preview)
}

func (h *MatchingHandler) confirm(c *fiber.Ctx) error {
	batchID := c.Params("batchId")
	if batchID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "batch id is required")
	}

	var payload dto.ConfirmRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	confirmed, err := h.service.Confirm(c.UserContext(), batchID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "batch confirmed", confirmed)
}

func (h *MatchingHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	var confirmError *matching.ConfirmError
	switch {
	case errors.Is(err, service.ErrBatchNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "review batch not found")
	case errors.Is(err, gorm.ErrRecordNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "activity not found")
	case errors.Is(err, service.ErrUnsupportedContent):
		return utils.SendError(c, fiber.StatusUnsupportedMediaType, err.Error())
	case errors.As(err, &confirmError):
		return utils.SendErrorWithDetails(c, fiber.StatusBadRequest, "confirm rejected", confirmError)
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
