package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/roommate-api/internal/dto"
	"github.com/noah-isme/roommate-api/internal/service"
	"github.com/noah-isme/roommate-api/internal/utils"
)

// AttendanceHandler records daily marks and serves attendance summaries.
type AttendanceHandler struct {
	service service.AttendanceService
	logger  zerolog.Logger
}

// NewAttendanceHandler constructs the attendance handler.
func NewAttendanceHandler(service service.AttendanceService, logger zerolog.Logger) *AttendanceHandler {
	return &AttendanceHandler{
		service: service,
		logger:  logger.With().Str("component", "attendance_handler").Logger(),
	}
}

// RegisterAdmin binds warden routes.
func (h *AttendanceHandler) RegisterAdmin(router fiber.Router) {
	router.Post("/", h.mark)
	router.Get("/:studentId", h.summary)
}

// RegisterStudent binds resident routes.
func (h *AttendanceHandler) RegisterStudent(router fiber.Router) {
	router.Get("/", h.summary)
}

func (h *AttendanceHandler) mark(c *fiber.Ctx) error {
	var payload dto.AttendanceMarkRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.Mark(requestContext(c), currentSession(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "attendance recorded", result)
}

func (h *AttendanceHandler) summary(c *fiber.Ctx) error {
	summary, err := h.service.StudentSummary(requestContext(c), currentSession(c), c.Params("studentId"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "attendance summary", summary)
}
