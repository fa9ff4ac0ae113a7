package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/roommate-api/internal/dto"
	"github.com/noah-isme/roommate-api/internal/service"
	"github.com/noah-isme/roommate-api/internal/utils"
)

// RoomHandler exposes the room catalog and allocation to wardens.
type RoomHandler struct {
	catalog    service.RoomCatalogService
	allocation service.RoomAllocationService
	logger     zerolog.Logger
	allocLimit fiber.Handler
}

// NewRoomHandler constructs the room handler. allocLimit may be nil.
func NewRoomHandler(catalog service.RoomCatalogService, allocation service.RoomAllocationService, allocLimit fiber.Handler, logger zerolog.Logger) *RoomHandler {
	if allocLimit == nil {
		allocLimit = func(c *fiber.Ctx) error { return c.Next() }
	}
	return &RoomHandler{
		catalog:    catalog,
		allocation: allocation,
		allocLimit: allocLimit,
		logger:     logger.With().Str("component", "room_handler").Logger(),
	}
}

// Register binds the room routes.
func (h *RoomHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Post("/reconcile", h.reconcile)
	router.Post("/allocate", h.allocLimit, h.allocate)
	router.Put("/:number", h.upsert)
}

func (h *RoomHandler) list(c *fiber.Ctx) error {
	includeEmpty := strings.EqualFold(c.Query("include_empty"), "true")

	rooms, err := h.catalog.Resolve(requestContext(c), currentSession(c), includeEmpty)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "rooms retrieved", rooms)
}

func (h *RoomHandler) upsert(c *fiber.Ctx) error {
	var payload dto.RoomUpsertRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	room, err := h.catalog.Materialize(requestContext(c), currentSession(c), c.Params("number"), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "room saved", room)
}

func (h *RoomHandler) reconcile(c *fiber.Ctx) error {
	result, err := h.catalog.Reconcile(requestContext(c), currentSession(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "room counters reconciled", result)
}

func (h *RoomHandler) allocate(c *fiber.Ctx) error {
	var payload dto.RoomAllocateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.allocation.Allocate(requestContext(c), currentSession(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	message := "room allocated"
	if result.Noop {
		message = "student already in room"
	}
	if len(result.Warnings) > 0 {
		requestLogger(h.logger, c).Warn().Strs("warnings", result.Warnings).Str("student_id", result.StudentID).Msg("allocation completed with warnings")
	}
	return utils.SendSuccess(c, message, result)
}
