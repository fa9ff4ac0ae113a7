package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/roommate-api/internal/dto"
	"github.com/noah-isme/roommate-api/internal/service"
	"github.com/noah-isme/roommate-api/internal/utils"
)

// ComplaintHandler serves complaint submission and the pending/resolved workflow.
type ComplaintHandler struct {
	service service.ComplaintService
	logger  zerolog.Logger
}

// NewComplaintHandler constructs the complaint handler.
func NewComplaintHandler(service service.ComplaintService, logger zerolog.Logger) *ComplaintHandler {
	return &ComplaintHandler{
		service: service,
		logger:  logger.With().Str("component", "complaint_handler").Logger(),
	}
}

// RegisterAdmin binds warden routes.
func (h *ComplaintHandler) RegisterAdmin(router fiber.Router) {
	router.Get("/", h.list)
	router.Patch("/:id/resolve", h.resolve)
	router.Patch("/:id/reopen", h.reopen)
}

// RegisterStudent binds resident routes.
func (h *ComplaintHandler) RegisterStudent(router fiber.Router) {
	router.Get("/", h.listMine)
	router.Post("/", h.submit)
}

func (h *ComplaintHandler) listRequest(c *fiber.Ctx) (dto.ComplaintListRequest, error) {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return dto.ComplaintListRequest{}, err
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return dto.ComplaintListRequest{}, err
	}
	return dto.ComplaintListRequest{Status: c.Query("status"), Page: page, PageSize: pageSize}, nil
}

func (h *ComplaintHandler) list(c *fiber.Ctx) error {
	req, err := h.listRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid pagination")
	}

	result, err := h.service.List(requestContext(c), currentSession(c), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, result.Items, "complaints retrieved", result.Pagination)
}

func (h *ComplaintHandler) listMine(c *fiber.Ctx) error {
	req, err := h.listRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid pagination")
	}

	result, err := h.service.ListMine(requestContext(c), currentSession(c), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, result.Items, "complaints retrieved", result.Pagination)
}

func (h *ComplaintHandler) submit(c *fiber.Ctx) error {
	var payload dto.ComplaintCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	complaint, err := h.service.Submit(requestContext(c), currentSession(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "complaint submitted", complaint)
}

func (h *ComplaintHandler) resolve(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	complaint, err := h.service.Resolve(requestContext(c), currentSession(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "complaint resolved", complaint)
}

func (h *ComplaintHandler) reopen(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	complaint, err := h.service.Reopen(requestContext(c), currentSession(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "complaint reopened", complaint)
}
