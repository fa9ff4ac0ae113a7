package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/roommate-api/internal/middleware"
	"github.com/noah-isme/roommate-api/internal/realtime"
	"github.com/noah-isme/roommate-api/internal/repository"
	"github.com/noah-isme/roommate-api/internal/session"
)

// hostelResolver derives the hostel a session operates on: the token claim first, then the
// admin profile.
type hostelResolver struct {
	admins repository.AdminProfileRepository
}

func (h hostelResolver) hostelFor(ctx context.Context, sess session.Session) (string, error) {
	if !sess.Valid() {
		return "", session.ErrNoSession
	}
	if hostel := strings.TrimSpace(sess.HostelName); hostel != "" {
		return hostel, nil
	}
	if h.admins == nil || !sess.IsAdmin() {
		return "", validationErr("no hostel context")
	}

	profile, err := h.admins.GetByUserID(ctx, sess.UserID)
	if err != nil {
		err = storeErr("load admin profile", err)
		if errors.Is(err, ErrNotFound) {
			return "", validationErr("no hostel context")
		}
		return "", err
	}
	if strings.TrimSpace(profile.HostelName) == "" {
		return "", validationErr("no hostel context")
	}
	return profile.HostelName, nil
}

func requireAdmin(sess session.Session) error {
	if !sess.Valid() {
		return session.ErrNoSession
	}
	if !sess.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

func requireStudent(sess session.Session) error {
	if !sess.Valid() {
		return session.ErrNoSession
	}
	if !sess.IsStudent() {
		return ErrForbidden
	}
	return nil
}

// announce publishes a change event. Feed failures never fail the mutation that triggered them.
func announce(ctx context.Context, publisher realtime.Publisher, logger zerolog.Logger, event realtime.Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		requestLogger(ctx, logger).Warn().Err(err).Str("table", event.Table).Msg("failed to publish change event")
	}
}

// requestLogger tags base with the correlation id carried by ctx, if any.
func requestLogger(ctx context.Context, base zerolog.Logger) *zerolog.Logger {
	id := middleware.CorrelationIDFromContext(ctx)
	if id == "" {
		return &base
	}
	logger := base.With().Str("correlation_id", id).Logger()
	return &logger
}
