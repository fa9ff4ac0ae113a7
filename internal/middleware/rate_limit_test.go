package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/roommate-api/internal/session"
)

func TestRateLimitKeysBySession(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(sessionLocalKey, session.Session{UserID: c.Get("X-User"), Role: session.RoleAdmin})
		return c.Next()
	})
	app.Post("/allocate", RateLimit("allocate", 1, time.Minute), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	send := func(user string) int {
		req := httptest.NewRequest(http.MethodPost, "/allocate", nil)
		req.Header.Set("X-User", user)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		return resp.StatusCode
	}

	require.Equal(t, fiber.StatusOK, send("warden-1"))
	require.Equal(t, fiber.StatusTooManyRequests, send("warden-1"))
	require.Equal(t, fiber.StatusOK, send("warden-2"))
}
