package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/roommate-api/internal/middleware"
	"github.com/noah-isme/roommate-api/internal/session"
	"github.com/noah-isme/roommate-api/internal/utils"
)

// AuthHandler ends sessions. Tokens are issued by the identity provider, not by this API.
type AuthHandler struct {
	store  session.Store
	logger zerolog.Logger
}

// NewAuthHandler constructs the auth handler.
func NewAuthHandler(store session.Store, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		store:  store,
		logger: logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register binds /auth routes.
func (h *AuthHandler) Register(router fiber.Router) {
	router.Post("/sign-out", middleware.WithAuth(h.signOut, middleware.AuthOptions{RequireUser: true}))
}

func (h *AuthHandler) signOut(c *fiber.Ctx) error {
	sess := currentSession(c)
	if !sess.Valid() {
		return utils.SendError(c, fiber.StatusUnauthorized, session.ErrNoSession.Error())
	}
	if h.store == nil {
		return utils.SendError(c, fiber.StatusServiceUnavailable, "session store unavailable")
	}

	if err := h.store.Revoke(requestContext(c), sess); err != nil {
		requestLogger(h.logger, c).Error().Err(err).Str("user_id", sess.UserID).Msg("failed to revoke session")
		return utils.SendError(c, fiber.StatusServiceUnavailable, err.Error())
	}

	requestLogger(h.logger, c).Info().Str("user_id", sess.UserID).Msg("session signed out")
	return utils.SendSuccess(c, "signed out", nil)
}
