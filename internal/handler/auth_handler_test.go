package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/roommate-api/internal/handler"
	"github.com/noah-isme/roommate-api/internal/session"
)

func TestAuthHandlerSignOutRevokesSession(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	store := session.NewRedisStore(redis.NewClient(&redis.Options{Addr: mini.Addr()}), "test")
	sess := residentSession("s1")
	sess.ExpiresAt = time.Now().Add(time.Hour)

	h := handler.NewAuthHandler(store, zerolog.Nop())
	app := newTestApp(sess, "/api/v1/auth", h.Register)

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/auth/sign-out", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.True(t, body.Success)

	revoked, err := store.IsRevoked(context.Background(), sess.ID)
	require.NoError(t, err)
	require.True(t, revoked)
}

func TestAuthHandlerSignOutRequiresSession(t *testing.T) {
	h := handler.NewAuthHandler(nil, zerolog.Nop())
	app := newTestApp(session.Session{}, "/api/v1/auth", h.Register)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/v1/auth/sign-out", nil)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
