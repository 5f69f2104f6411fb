package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sara-edu/sara-grading-api/internal/config"
	"github.com/sara-edu/sara-grading-api/internal/handler"
	"github.com/sara-edu/sara-grading-api/internal/middleware"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	MatchingHandler   *handler.MatchingHandler
	EvaluationHandler *handler.EvaluationHandler
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	instructor := middleware.RequireRole("instructor", "admin")

	if deps.MatchingHandler != nil {
		matches := api.Group("/matches", jwtMiddleware, instructor)
		deps.MatchingHandler.Register(matches)
	}

	if deps.EvaluationHandler != nil {
		submissions := api.Group("/submissions", jwtMiddleware, instructor)
		deps.EvaluationHandler.Register(submissions)

		activities := api.Group("/activities", jwtMiddleware, instructor)
		deps.EvaluationHandler.RegisterActivityRoutes(activities)
	}
}
