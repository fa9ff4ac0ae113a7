package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/roommate-api/internal/config"
	"github.com/noah-isme/roommate-api/internal/handler"
	"github.com/noah-isme/roommate-api/internal/middleware"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	RoomHandler             *handler.RoomHandler
	AttendanceHandler       *handler.AttendanceHandler
	ComplaintHandler        *handler.ComplaintHandler
	TransactionHandler      *handler.TransactionHandler
	AdminDashboardHandler   *handler.AdminDashboardHandler
	AdminActivityHandler    *handler.AdminActivityHandler
	StudentDashboardHandler *handler.StudentDashboardHandler
	ProfileHandler          *handler.ProfileHandler
	NotificationHandler     *handler.NotificationHandler
	AuthHandler             *handler.AuthHandler
	RealtimeHandler         *handler.RealtimeHandler
	JWTMiddleware           fiber.Handler
	MetricsHandler          fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	if deps.MetricsHandler != nil {
		api.Get("/metrics", deps.MetricsHandler)
	}

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.AuthHandler != nil {
		auth := api.Group("/auth", jwtMiddleware)
		deps.AuthHandler.Register(auth)
	}

	admin := api.Group("/admin", jwtMiddleware, middleware.RequireRole(middleware.AuthRoleAdmin))
	if deps.RoomHandler != nil {
		deps.RoomHandler.Register(admin.Group("/rooms"))
	}
	if deps.AttendanceHandler != nil {
		deps.AttendanceHandler.RegisterAdmin(admin.Group("/attendance"))
	}
	if deps.ComplaintHandler != nil {
		deps.ComplaintHandler.RegisterAdmin(admin.Group("/complaints"))
	}
	if deps.TransactionHandler != nil {
		deps.TransactionHandler.RegisterAdmin(admin.Group("/transactions"))
	}
	if deps.ProfileHandler != nil {
		deps.ProfileHandler.RegisterAdmin(admin.Group("/profile"))
	}
	if deps.AdminActivityHandler != nil {
		deps.AdminActivityHandler.Register(admin.Group("/activity"))
	}
	if deps.AdminDashboardHandler != nil {
		deps.AdminDashboardHandler.Register(admin)
	}

	student := api.Group("/student", jwtMiddleware, middleware.RequireRole(middleware.AuthRoleStudent))
	if deps.AttendanceHandler != nil {
		deps.AttendanceHandler.RegisterStudent(student.Group("/attendance"))
	}
	if deps.ComplaintHandler != nil {
		deps.ComplaintHandler.RegisterStudent(student.Group("/complaints"))
	}
	if deps.TransactionHandler != nil {
		deps.TransactionHandler.RegisterStudentTransactions(student.Group("/transactions"))
		deps.TransactionHandler.RegisterStudentReminders(student.Group("/reminders"))
	}
	if deps.ProfileHandler != nil {
		deps.ProfileHandler.RegisterStudent(student.Group("/profile"))
	}
	if deps.NotificationHandler != nil {
		deps.NotificationHandler.Register(student.Group("/notifications"))
	}
	if deps.StudentDashboardHandler != nil {
		deps.StudentDashboardHandler.Register(student)
	}

	if deps.RealtimeHandler != nil {
		realtime := api.Group("/realtime", jwtMiddleware)
		deps.RealtimeHandler.Register(realtime)
	}
}
