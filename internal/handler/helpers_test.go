package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/roommate-api/internal/session"
)

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Meta    json.RawMessage   `json:"meta"`
	Details map[string]string `json:"details"`
}

func wardenSession() session.Session {
	return session.Session{ID: "jti-admin", UserID: "warden-1", Role: session.RoleAdmin, HostelName: "Maple Hall"}
}

func residentSession(id string) session.Session {
	return session.Session{ID: "jti-" + id, UserID: id, Role: session.RoleStudent, HostelName: "Maple Hall"}
}

func newTestApp(sess session.Session, prefix string, register func(fiber.Router)) *fiber.App {
	app := fiber.New()
	group := app.Group(prefix, func(c *fiber.Ctx) error {
		if sess.Valid() {
			c.Locals("session", sess)
			c.Locals("user_id", sess.UserID)
			c.Locals("user_role", string(sess.Role))
		}
		return c.Next()
	})
	register(group)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (*http.Response, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var payload envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return resp, payload
}
