package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(
	app *fiber.App,
	authHandler *AuthHandler,
	sessionHandler *SessionHandler,
	healthHandler *HealthHandler,
	authMiddleware fiber.Handler,
) {
	// Health checks (public)
	app.Get("/health", healthHandler.Health)
	app.Get("/ready", healthHandler.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/logout", authMiddleware, authHandler.Logout)
	auth.Get("/me", authMiddleware, authHandler.Me)

	// Session routes: the listing is public, everything under my-sessions is owner-scoped
	sessions := api.Group("/sessions")
	sessions.Get("/", sessionHandler.ListPublished)

	mine := sessions.Group("/my-sessions", authMiddleware)
	mine.Get("/", sessionHandler.MySessions)
	mine.Post("/save-draft", sessionHandler.SaveDraft)
	mine.Post("/publish", sessionHandler.Publish)
	mine.Get("/:id", sessionHandler.GetMySession)
	mine.Delete("/:id", sessionHandler.Delete)
}
