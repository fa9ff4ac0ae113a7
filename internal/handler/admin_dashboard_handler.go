package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/roommate-api/internal/dto"
	"github.com/noah-isme/roommate-api/internal/service"
	"github.com/noah-isme/roommate-api/internal/utils"
)

// AdminDashboardHandler serves the warden summary and roster.
type AdminDashboardHandler struct {
	service service.AdminDashboardService
	logger  zerolog.Logger
}

// NewAdminDashboardHandler constructs the handler.
func NewAdminDashboardHandler(service service.AdminDashboardService, logger zerolog.Logger) *AdminDashboardHandler {
	return &AdminDashboardHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_dashboard_handler").Logger(),
	}
}

// Register binds routes under /admin.
func (h *AdminDashboardHandler) Register(router fiber.Router) {
	router.Get("/dashboard", h.summary)
	router.Get("/students", h.roster)
	router.Get("/students/:id", h.detail)
}

func (h *AdminDashboardHandler) summary(c *fiber.Ctx) error {
	summary, err := h.service.Summary(requestContext(c), currentSession(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if len(summary.Degraded) > 0 {
		requestLogger(h.logger, c).Warn().Strs("degraded", summary.Degraded).Msg("dashboard served with degraded statistics")
	}
	return utils.SendSuccess(c, "dashboard retrieved", summary)
}

func (h *AdminDashboardHandler) roster(c *fiber.Ctx) error {
	roster, err := h.service.Roster(requestContext(c), currentSession(c), dto.AdminStudentListRequest{
		Search:     c.Query("search"),
		RoomNumber: c.Query("room_number"),
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "students retrieved", roster)
}

func (h *AdminDashboardHandler) detail(c *fiber.Ctx) error {
	detail, err := h.service.StudentDetail(requestContext(c), currentSession(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "student retrieved", detail)
}
