package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/roommate-api/internal/dto"
	"github.com/noah-isme/roommate-api/internal/service"
	"github.com/noah-isme/roommate-api/internal/session"
	"github.com/noah-isme/roommate-api/internal/utils"
)

// TransactionHandler serves fee reminders and payments.
type TransactionHandler struct {
	service service.TransactionService
	logger  zerolog.Logger
}

// NewTransactionHandler constructs the transaction handler.
func NewTransactionHandler(service service.TransactionService, logger zerolog.Logger) *TransactionHandler {
	return &TransactionHandler{
		service: service,
		logger:  logger.With().Str("component", "transaction_handler").Logger(),
	}
}

// RegisterAdmin binds warden routes under /admin/transactions.
func (h *TransactionHandler) RegisterAdmin(router fiber.Router) {
	router.Get("/", h.list)
	router.Post("/reminders", h.sendReminder)
	router.Patch("/:id/approve", h.approve)
	router.Patch("/:id/reject", h.reject)
}

// RegisterStudentTransactions binds resident routes under /student/transactions.
func (h *TransactionHandler) RegisterStudentTransactions(router fiber.Router) {
	router.Get("/", h.listMine)
	router.Post("/", h.recordPayment)
}

// RegisterStudentReminders binds resident routes under /student/reminders.
func (h *TransactionHandler) RegisterStudentReminders(router fiber.Router) {
	router.Get("/", h.pendingReminders)
	router.Post("/:id/pay", h.pay)
}

func (h *TransactionHandler) listRequest(c *fiber.Ctx) (dto.TransactionListRequest, error) {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return dto.TransactionListRequest{}, err
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return dto.TransactionListRequest{}, err
	}
	return dto.TransactionListRequest{Status: c.Query("status"), Page: page, PageSize: pageSize}, nil
}

func (h *TransactionHandler) list(c *fiber.Ctx) error {
	req, err := h.listRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid pagination")
	}

	result, err := h.service.List(requestContext(c), currentSession(c), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, result.Items, "transactions retrieved", result.Pagination)
}

func (h *TransactionHandler) listMine(c *fiber.Ctx) error {
	req, err := h.listRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid pagination")
	}

	result, err := h.service.ListMine(requestContext(c), currentSession(c), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, result.Items, "transactions retrieved", result.Pagination)
}

func (h *TransactionHandler) sendReminder(c *fiber.Ctx) error {
	var payload dto.ReminderCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	reminder, err := h.service.SendReminder(requestContext(c), currentSession(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "reminder sent", reminder)
}

func (h *TransactionHandler) recordPayment(c *fiber.Ctx) error {
	var payload dto.PaymentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	payment, err := h.service.RecordPayment(requestContext(c), currentSession(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "payment recorded", payment)
}

func (h *TransactionHandler) pendingReminders(c *fiber.Ctx) error {
	reminders, err := h.service.PendingReminders(requestContext(c), currentSession(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "pending reminders", reminders)
}

func (h *TransactionHandler) pay(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ReminderPaymentRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		}
	}

	paid, err := h.service.ConfirmPayment(requestContext(c), currentSession(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "reminder paid", paid)
}

func (h *TransactionHandler) approve(c *fiber.Ctx) error {
	return h.review(c, h.service.Approve, "payment approved")
}

func (h *TransactionHandler) reject(c *fiber.Ctx) error {
	return h.review(c, h.service.Reject, "payment rejected")
}

func (h *TransactionHandler) review(c *fiber.Ctx, action func(ctx context.Context, sess session.Session, id uint) (dto.TransactionResponse, error), message string) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	transaction, err := action(requestContext(c), currentSession(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, message, transaction)
}
