package handler

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/roommate-api/internal/realtime"
	"github.com/noah-isme/roommate-api/internal/session"
	"github.com/noah-isme/roommate-api/internal/utils"
)

// RealtimeHandler pushes change notifications over SSE and WebSocket. Clients re-fetch the
// rows they care about after each event.
type RealtimeHandler struct {
	feed      realtime.Feed
	keepAlive time.Duration
	logger    zerolog.Logger
}

// NewRealtimeHandler constructs the handler.
func NewRealtimeHandler(feed realtime.Feed, keepAlive time.Duration, logger zerolog.Logger) *RealtimeHandler {
	if keepAlive <= 0 {
		keepAlive = 30 * time.Second
	}
	return &RealtimeHandler{
		feed:      feed,
		keepAlive: keepAlive,
		logger:    logger.With().Str("component", "realtime_handler").Logger(),
	}
}

// Register binds /realtime routes.
func (h *RealtimeHandler) Register(router fiber.Router) {
	router.Get("/stream", h.stream)
	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/ws", websocket.New(h.handleConnection))
}

// subscriptionFilter scopes a subscriber: students see their own rows plus shared tables,
// admins see their hostel.
func subscriptionFilter(sess session.Session, tables string) realtime.Filter {
	filter := realtime.Filter{
		Tables:     realtime.ParseTables(tables),
		HostelName: sess.HostelName,
	}
	if sess.IsStudent() {
		filter.StudentID = sess.UserID
	}
	return filter
}

func (h *RealtimeHandler) stream(c *fiber.Ctx) error {
	sess := currentSession(c)
	if !sess.Valid() {
		return utils.SendError(c, fiber.StatusUnauthorized, session.ErrNoSession.Error())
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	events, cancel := h.feed.Subscribe(subscriptionFilter(sess, c.Query("tables")))
	logger := requestLogger(h.logger, c).With().Str("user_id", sess.UserID).Logger()
	logger.Info().Msg("realtime stream opened")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer func() {
			cancel()
			logger.Info().Msg("realtime stream closed")
		}()

		ticker := time.NewTicker(h.keepAlive)
		defer ticker.Stop()

		for {
			select {
			case event, ok := <-events:
				if !ok {
					return
				}
				if err := writeChangeEvent(w, event); err != nil {
					logger.Debug().Err(err).Msg("failed to write change event")
					return
				}
			case <-ticker.C:
				if err := writeKeepAlive(w); err != nil {
					logger.Debug().Err(err).Msg("failed to write keepalive")
					return
				}
			}
		}
	})

	return nil
}

func (h *RealtimeHandler) handleConnection(conn *websocket.Conn) {
	sess, _ := conn.Locals("session").(session.Session)
	if !sess.Valid() {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session missing"))
		_ = conn.Close()
		return
	}

	events, cancel := h.feed.Subscribe(subscriptionFilter(sess, conn.Query("tables")))
	defer cancel()

	logger := h.logger.With().Str("user_id", sess.UserID).Logger()
	logger.Info().Msg("realtime websocket connected")
	defer logger.Info().Msg("realtime websocket disconnected")

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				logger.Debug().Err(err).Msg("failed to write change event")
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}

func writeChangeEvent(w *bufio.Writer, event realtime.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "id: %s\nevent: change\n", event.ID); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}

func writeKeepAlive(w *bufio.Writer) error {
	if _, err := fmt.Fprintf(w, ": keep-alive %s\n\n", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return w.Flush()
}
