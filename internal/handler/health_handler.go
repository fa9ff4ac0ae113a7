package handler

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/roommate-api/internal/config"
	"github.com/noah-isme/roommate-api/internal/utils"
)

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Service     string    `json:"service"`
	Environment string    `json:"environment"`
	Realtime    string    `json:"realtime"`
}

// HealthCheck returns a handler that reports application health information.
func HealthCheck(cfg config.Config) fiber.Handler {
	transports := []string{"local"}
	if cfg.RedisURL != "" {
		transports = append(transports, "redis")
	}
	if cfg.NATSURL != "" {
		transports = append(transports, "nats")
	}
	realtime := strings.Join(transports, "+")

	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
			Realtime:    realtime,
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}
