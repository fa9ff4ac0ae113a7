package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/noah-isme/roommate-api/internal/dto"
	"github.com/noah-isme/roommate-api/internal/models"
	"github.com/noah-isme/roommate-api/internal/realtime"
	"github.com/noah-isme/roommate-api/internal/repository"
	"github.com/noah-isme/roommate-api/internal/session"
)

// TransactionService manages fee reminders and payments. Only pending transactions move,
// and only to approved or rejected.
type TransactionService interface {
	SendReminder(ctx context.Context, sess session.Session, req dto.ReminderCreateRequest) (dto.TransactionResponse, error)
	RecordPayment(ctx context.Context, sess session.Session, req dto.PaymentCreateRequest) (dto.TransactionResponse, error)
	ConfirmPayment(ctx context.Context, sess session.Session, id uint, req dto.ReminderPaymentRequest) (dto.TransactionResponse, error)
	Approve(ctx context.Context, sess session.Session, id uint) (dto.TransactionResponse, error)
	Reject(ctx context.Context, sess session.Session, id uint) (dto.TransactionResponse, error)
	List(ctx context.Context, sess session.Session, req dto.TransactionListRequest) (dto.TransactionListResponse, error)
	ListMine(ctx context.Context, sess session.Session, req dto.TransactionListRequest) (dto.TransactionListResponse, error)
	PendingReminders(ctx context.Context, sess session.Session) ([]dto.TransactionResponse, error)
}

type transactionService struct {
	transactions repository.TransactionRepository
	students     repository.StudentRepository
	hostels      hostelResolver
	activity     ActivityRecorder
	notifier     Notifier
	feed         realtime.Publisher
	validator    *validator.Validate
	sanitizer    *bluemonday.Policy
	logger       zerolog.Logger
	now          func() time.Time
}

// NewTransactionService constructs the transaction service.
func NewTransactionService(transactions repository.TransactionRepository, students repository.StudentRepository, admins repository.AdminProfileRepository, activity ActivityRecorder, notifier Notifier, feed realtime.Publisher, validate *validator.Validate, logger zerolog.Logger) TransactionService {
	return &transactionService{
		transactions: transactions,
		students:     students,
		hostels:      hostelResolver{admins: admins},
		activity:     activity,
		notifier:     notifier,
		feed:         feed,
		validator:    validate,
		sanitizer:    bluemonday.StrictPolicy(),
		logger:       logger.With().Str("component", "transaction_service").Logger(),
		now:          time.Now,
	}
}

func (s *transactionService) SendReminder(ctx context.Context, sess session.Session, req dto.ReminderCreateRequest) (dto.TransactionResponse, error) {
	if err := requireAdmin(sess); err != nil {
		return dto.TransactionResponse{}, err
	}
	req.StudentID = strings.TrimSpace(req.StudentID)
	req.Description = strings.TrimSpace(s.sanitizer.Sanitize(req.Description))
	if err := s.validator.Struct(req); err != nil {
		return dto.TransactionResponse{}, err
	}

	due, err := time.Parse(models.AttendanceDateLayout, req.DueDate)
	if err != nil {
		return dto.TransactionResponse{}, validationErr("invalid due date %q", req.DueDate)
	}

	hostel, err := s.hostels.hostelFor(ctx, sess)
	if err != nil {
		return dto.TransactionResponse{}, err
	}
	student, err := s.students.GetInHostel(ctx, hostel, req.StudentID)
	if err != nil {
		return dto.TransactionResponse{}, storeErr("load student", err)
	}

	adminID := sess.UserID
	transaction := models.Transaction{
		StudentID:   student.UserID,
		AdminID:     &adminID,
		Description: req.Description,
		Amount:      req.Amount,
		Date:        s.now().UTC(),
		DueDate:     &due,
		Status:      models.TransactionStatusPending,
		IsReminder:  true,
	}
	if err := s.transactions.Create(ctx, &transaction); err != nil {
		return dto.TransactionResponse{}, storeErr("create reminder", err)
	}

	if s.notifier != nil {
		message := fmt.Sprintf("Payment reminder: %s of %.2f due on %s", transaction.Description, transaction.Amount, req.DueDate)
		if _, err := s.notifier.Notify(ctx, student.UserID, message); err != nil {
			requestLogger(ctx, s.logger).Warn().Err(err).Str("student_id", student.UserID).Msg("failed to notify student of reminder")
		}
	}

	s.record(ctx, sess, "transaction.reminder_sent", transaction)
	s.changed(ctx, transaction, hostel, realtime.OpInsert)
	return dto.NewTransactionResponse(transaction), nil
}

func (s *transactionService) RecordPayment(ctx context.Context, sess session.Session, req dto.PaymentCreateRequest) (dto.TransactionResponse, error) {
	if err := requireStudent(sess); err != nil {
		return dto.TransactionResponse{}, err
	}
	req.Description = strings.TrimSpace(s.sanitizer.Sanitize(req.Description))
	if err := s.validator.Struct(req); err != nil {
		return dto.TransactionResponse{}, err
	}

	student, err := s.students.GetByUserID(ctx, sess.UserID)
	if err != nil {
		return dto.TransactionResponse{}, storeErr("load student", err)
	}

	transaction := models.Transaction{
		StudentID:   student.UserID,
		Description: req.Description,
		Amount:      req.Amount,
		Date:        s.now().UTC(),
		Status:      models.TransactionStatusPending,
	}
	if err := s.transactions.Create(ctx, &transaction); err != nil {
		return dto.TransactionResponse{}, storeErr("create payment", err)
	}

	s.changed(ctx, transaction, student.HostelName, realtime.OpInsert)
	return dto.NewTransactionResponse(transaction), nil
}

// ConfirmPayment settles one of the student's own pending reminders.
func (s *transactionService) ConfirmPayment(ctx context.Context, sess session.Session, id uint, req dto.ReminderPaymentRequest) (dto.TransactionResponse, error) {
	if err := requireStudent(sess); err != nil {
		return dto.TransactionResponse{}, err
	}
	if req.Description != nil {
		clean := strings.TrimSpace(s.sanitizer.Sanitize(*req.Description))
		req.Description = &clean
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.TransactionResponse{}, err
	}

	transaction, err := s.transactions.FindByID(ctx, id)
	if err != nil {
		return dto.TransactionResponse{}, storeErr("load transaction", err)
	}
	if transaction.StudentID != sess.UserID || !transaction.IsReminder {
		return dto.TransactionResponse{}, fmt.Errorf("%w: reminder %d", ErrNotFound, id)
	}
	if transaction.Status != models.TransactionStatusPending {
		return dto.TransactionResponse{}, fmt.Errorf("%w: reminder is %s", ErrInvalidTransition, transaction.Status)
	}

	if req.Amount != nil {
		transaction.Amount = *req.Amount
	}
	if req.Description != nil && *req.Description != "" {
		transaction.Description = *req.Description
	}

	return s.settle(ctx, sess, transaction, models.TransactionStatusApproved, sess.HostelName)
}

func (s *transactionService) Approve(ctx context.Context, sess session.Session, id uint) (dto.TransactionResponse, error) {
	return s.review(ctx, sess, id, models.TransactionStatusApproved)
}

func (s *transactionService) Reject(ctx context.Context, sess session.Session, id uint) (dto.TransactionResponse, error) {
	return s.review(ctx, sess, id, models.TransactionStatusRejected)
}

func (s *transactionService) review(ctx context.Context, sess session.Session, id uint, target string) (dto.TransactionResponse, error) {
	if err := requireAdmin(sess); err != nil {
		return dto.TransactionResponse{}, err
	}
	hostel, err := s.hostels.hostelFor(ctx, sess)
	if err != nil {
		return dto.TransactionResponse{}, err
	}

	transaction, err := s.transactions.FindByID(ctx, id)
	if err != nil {
		return dto.TransactionResponse{}, storeErr("load transaction", err)
	}
	if _, err := s.students.GetInHostel(ctx, hostel, transaction.StudentID); err != nil {
		return dto.TransactionResponse{}, storeErr("load transaction owner", err)
	}
	if transaction.Status != models.TransactionStatusPending {
		return dto.TransactionResponse{}, fmt.Errorf("%w: transaction is %s", ErrInvalidTransition, transaction.Status)
	}

	return s.settle(ctx, sess, transaction, target, hostel)
}

func (s *transactionService) settle(ctx context.Context, sess session.Session, transaction models.Transaction, target, hostel string) (dto.TransactionResponse, error) {
	transaction.Status = target
	if target == models.TransactionStatusApproved && transaction.PaymentDate == nil {
		paid := s.now().UTC()
		transaction.PaymentDate = &paid
	}

	if err := s.transactions.Save(ctx, &transaction); err != nil {
		return dto.TransactionResponse{}, storeErr("update transaction", err)
	}

	s.record(ctx, sess, "transaction."+target, transaction)
	s.changed(ctx, transaction, hostel, realtime.OpUpdate)
	return dto.NewTransactionResponse(transaction), nil
}

func (s *transactionService) List(ctx context.Context, sess session.Session, req dto.TransactionListRequest) (dto.TransactionListResponse, error) {
	if err := requireAdmin(sess); err != nil {
		return dto.TransactionListResponse{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.TransactionListResponse{}, err
	}
	hostel, err := s.hostels.hostelFor(ctx, sess)
	if err != nil {
		return dto.TransactionListResponse{}, err
	}

	return s.list(ctx, repository.TransactionFilter{
		HostelName: hostel,
		Status:     req.Status,
		Page:       req.Page,
		PageSize:   req.PageSize,
	})
}

func (s *transactionService) ListMine(ctx context.Context, sess session.Session, req dto.TransactionListRequest) (dto.TransactionListResponse, error) {
	if err := requireStudent(sess); err != nil {
		return dto.TransactionListResponse{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.TransactionListResponse{}, err
	}

	return s.list(ctx, repository.TransactionFilter{
		StudentID: sess.UserID,
		Status:    req.Status,
		Page:      req.Page,
		PageSize:  req.PageSize,
	})
}

func (s *transactionService) PendingReminders(ctx context.Context, sess session.Session) ([]dto.TransactionResponse, error) {
	if err := requireStudent(sess); err != nil {
		return nil, err
	}
	return pendingReminders(ctx, s.transactions, sess.UserID)
}

func pendingReminders(ctx context.Context, transactions repository.TransactionRepository, studentID string) ([]dto.TransactionResponse, error) {
	reminder := true
	items, _, err := transactions.List(ctx, repository.TransactionFilter{
		StudentID:  studentID,
		Status:     models.TransactionStatusPending,
		IsReminder: &reminder,
	})
	if err != nil {
		return nil, storeErr("list reminders", err)
	}
	return dto.NewTransactionResponseSlice(items), nil
}

func (s *transactionService) list(ctx context.Context, filter repository.TransactionFilter) (dto.TransactionListResponse, error) {
	items, total, err := s.transactions.List(ctx, filter)
	if err != nil {
		return dto.TransactionListResponse{}, storeErr("list transactions", err)
	}
	return dto.TransactionListResponse{
		Items:      dto.NewTransactionResponseSlice(items),
		Pagination: dto.NewPaginationMeta(filter.Page, filter.PageSize, total),
	}, nil
}

func (s *transactionService) record(ctx context.Context, sess session.Session, action string, transaction models.Transaction) {
	if s.activity == nil {
		return
	}
	if _, err := s.activity.Record(ctx, ActivityEntry{
		ActorID:    sess.UserID,
		ActorRole:  string(sess.Role),
		Action:     action,
		EntityType: "transaction",
		EntityID:   strconv.FormatUint(uint64(transaction.ID), 10),
		Metadata: map[string]interface{}{
			"student_id": transaction.StudentID,
			"amount":     transaction.Amount,
		},
	}); err != nil {
		requestLogger(ctx, s.logger).Warn().Err(err).Str("action", action).Msg("failed to record transaction activity")
	}
}

func (s *transactionService) changed(ctx context.Context, transaction models.Transaction, hostel string, op realtime.Operation) {
	announce(ctx, s.feed, s.logger, realtime.Event{
		Table:      realtime.TableTransactions,
		Operation:  op,
		RowID:      strconv.FormatUint(uint64(transaction.ID), 10),
		StudentID:  transaction.StudentID,
		HostelName: hostel,
	})
}
