package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/roommate-api/internal/dto"
	"github.com/noah-isme/roommate-api/internal/service"
	"github.com/noah-isme/roommate-api/internal/utils"
)

// ProfileHandler lets the caller read and edit their own profile.
type ProfileHandler struct {
	service service.ProfileService
	logger  zerolog.Logger
}

// NewProfileHandler constructs the profile handler.
func NewProfileHandler(service service.ProfileService, logger zerolog.Logger) *ProfileHandler {
	return &ProfileHandler{
		service: service,
		logger:  logger.With().Str("component", "profile_handler").Logger(),
	}
}

// RegisterAdmin binds /admin/profile.
func (h *ProfileHandler) RegisterAdmin(router fiber.Router) {
	router.Get("/", h.getAdmin)
	router.Patch("/", h.updateAdmin)
}

// RegisterStudent binds /student/profile.
func (h *ProfileHandler) RegisterStudent(router fiber.Router) {
	router.Get("/", h.getStudent)
	router.Patch("/", h.updateStudent)
	router.Post("/avatar", h.uploadAvatar)
}

func (h *ProfileHandler) getStudent(c *fiber.Ctx) error {
	profile, err := h.service.GetStudent(requestContext(c), currentSession(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "profile retrieved", profile)
}

func (h *ProfileHandler) updateStudent(c *fiber.Ctx) error {
	var payload dto.StudentProfileUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	profile, err := h.service.UpdateStudent(requestContext(c), currentSession(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "profile updated", profile)
}

func (h *ProfileHandler) getAdmin(c *fiber.Ctx) error {
	profile, err := h.service.GetAdmin(requestContext(c), currentSession(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "profile retrieved", profile)
}

func (h *ProfileHandler) updateAdmin(c *fiber.Ctx) error {
	var payload dto.AdminProfileUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	profile, err := h.service.UpdateAdmin(requestContext(c), currentSession(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "profile updated", profile)
}

func (h *ProfileHandler) uploadAvatar(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	avatar, err := h.service.UploadAvatar(requestContext(c), currentSession(c), file)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "avatar updated", avatar)
}
