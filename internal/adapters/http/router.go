package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/melih/hytale-panel/internal/metrics"
)

// NewApp wires the dashboard routes: WebSocket hub, REST API, metrics and
// static assets. ctx bounds the lifetime of WebSocket sessions.
func NewApp(ctx context.Context, handler *ContainerHandler, hub *Hub, staticDir string) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(recover.New())

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	app.Use("/ws", UpgradeRequired)
	app.Get("/ws", hub.Handler(ctx))

	api := app.Group("/api")
	v1 := api.Group("/v1")

	// Routes for the managed container
	container := v1.Group("/container")
	container.Get("/status", handler.GetStatus)
	container.Get("/files", handler.GetFiles)
	container.Post("/start", handler.StartContainer)
	container.Post("/stop", handler.StopContainer)
	container.Post("/restart", handler.RestartContainer)
	container.Post("/command", handler.SendCommand)
	container.Post("/download", handler.DownloadFiles)

	if staticDir != "" {
		app.Static("/", staticDir)
	}
	return app
}
