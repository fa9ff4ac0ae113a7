package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/roommate-api/internal/dto"
	"github.com/noah-isme/roommate-api/internal/models"
	"github.com/noah-isme/roommate-api/internal/realtime"
	"github.com/noah-isme/roommate-api/internal/repository"
	"github.com/noah-isme/roommate-api/internal/session"
)

// NotificationService stores in-app notifications and announces them on the change feed.
type NotificationService interface {
	Notifier
	List(ctx context.Context, sess session.Session, limit, offset int) ([]dto.NotificationResponse, error)
	MarkRead(ctx context.Context, sess session.Session, id uint) (dto.NotificationResponse, error)
}

type notificationService struct {
	repo      repository.NotificationRepository
	feed      realtime.Publisher
	logger    zerolog.Logger
	tracer    trace.Tracer
	sanitizer *bluemonday.Policy
}

// NewNotificationService constructs a notification service.
func NewNotificationService(repo repository.NotificationRepository, feed realtime.Publisher, logger zerolog.Logger) NotificationService {
	return &notificationService{
		repo:      repo,
		feed:      feed,
		logger:    logger.With().Str("component", "notification_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/roommate-api/internal/service/notification"),
		sanitizer: bluemonday.StrictPolicy(),
	}
}

func (s *notificationService) Notify(ctx context.Context, userID, message string) (dto.NotificationResponse, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return dto.NotificationResponse{}, validationErr("user id is required")
	}

	cleanMessage := strings.TrimSpace(s.sanitizer.Sanitize(message))
	if cleanMessage == "" {
		return dto.NotificationResponse{}, errors.New("notification message empty after sanitization")
	}

	spanCtx, span := s.tracer.Start(ctx, "notifications.notify", trace.WithAttributes(attribute.String("notification.user_id", userID)))
	defer span.End()

	model := models.Notification{UserID: userID, Message: cleanMessage}
	if err := s.repo.Create(spanCtx, &model); err != nil {
		span.RecordError(err)
		return dto.NotificationResponse{}, storeErr("create notification", err)
	}

	announce(spanCtx, s.feed, s.logger, realtime.Event{
		Table:     realtime.TableNotifications,
		Operation: realtime.OpInsert,
		RowID:     strconv.FormatUint(uint64(model.ID), 10),
		StudentID: userID,
	})

	return dto.NewNotificationResponse(model), nil
}

func (s *notificationService) List(ctx context.Context, sess session.Session, limit, offset int) ([]dto.NotificationResponse, error) {
	if !sess.Valid() {
		return nil, session.ErrNoSession
	}

	notifications, err := s.repo.ListByUser(ctx, sess.UserID, limit, offset)
	if err != nil {
		return nil, storeErr("list notifications", err)
	}

	return dto.NewNotificationResponseSlice(notifications), nil
}

func (s *notificationService) MarkRead(ctx context.Context, sess session.Session, id uint) (dto.NotificationResponse, error) {
	if !sess.Valid() {
		return dto.NotificationResponse{}, session.ErrNoSession
	}

	spanCtx, span := s.tracer.Start(ctx, "notifications.mark_read", trace.WithAttributes(attribute.String("notification.user_id", sess.UserID)))
	defer span.End()

	notification, err := s.repo.MarkRead(spanCtx, id, sess.UserID)
	if err != nil {
		span.RecordError(err)
		return dto.NotificationResponse{}, storeErr("mark notification read", err)
	}

	return dto.NewNotificationResponse(notification), nil
}
