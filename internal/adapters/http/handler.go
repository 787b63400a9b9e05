package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/melih/hytale-panel/internal/core/domain"
	"github.com/melih/hytale-panel/internal/core/ports"
	"github.com/melih/hytale-panel/internal/metrics"
)

// ContainerHandler exposes the bridge as plain request/response endpoints.
type ContainerHandler struct {
	service ports.ContainerBridge
}

func NewContainerHandler(service ports.ContainerBridge) *ContainerHandler {
	return &ContainerHandler{service: service}
}

func (h *ContainerHandler) GetStatus(c *fiber.Ctx) error {
	return c.JSON(h.service.Status(c.Context()))
}

func (h *ContainerHandler) GetFiles(c *fiber.Ctx) error {
	return c.JSON(h.service.CheckFiles(c.Context()))
}

func (h *ContainerHandler) StartContainer(c *fiber.Ctx) error {
	return respond(c, domain.EventStart, h.service.Start(c.Context()))
}

func (h *ContainerHandler) StopContainer(c *fiber.Ctx) error {
	return respond(c, domain.EventStop, h.service.Stop(c.Context()))
}

func (h *ContainerHandler) RestartContainer(c *fiber.Ctx) error {
	return respond(c, domain.EventRestart, h.service.Restart(c.Context()))
}

func (h *ContainerHandler) SendCommand(c *fiber.Ctx) error {
	var req domain.CommandRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if strings.TrimSpace(req.Cmd) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "cmd is required",
		})
	}

	res := h.service.SendConsoleCommand(c.Context(), req.Cmd)
	metrics.ObserveAction(domain.EventCommand, res.Success)
	status := fiber.StatusOK
	if !res.Success {
		status = fiber.StatusInternalServerError
	}
	return c.Status(status).JSON(domain.CommandResult{Cmd: req.Cmd, ActionResult: res})
}

// DownloadFiles blocks until the downloader exits.
func (h *ContainerHandler) DownloadFiles(c *fiber.Ctx) error {
	return respond(c, domain.EventDownload, h.service.DownloadFiles(c.Context()))
}

func respond(c *fiber.Ctx, action string, res domain.ActionResult) error {
	metrics.ObserveAction(action, res.Success)
	if !res.Success {
		return c.Status(fiber.StatusInternalServerError).JSON(res)
	}
	return c.JSON(res)
}
