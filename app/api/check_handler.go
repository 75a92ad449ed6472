package api

import (
	"github.com/gofiber/fiber/v2"

	"docquery/session"
)

type CheckHandler struct {
	sessions *session.Registry
}

func NewCheckHandler(sessions *session.Registry) *CheckHandler {
	return &CheckHandler{sessions: sessions}
}

func (h *CheckHandler) HandleRoot(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "Document Query-Retrieval Service",
		"status":  "active",
		"health":  "/api/v1/health",
	})
}

func (h *CheckHandler) HandleHealthy(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"result": "ok"})
}

func (h *CheckHandler) HandleHealth(c *fiber.Ctx) error {
	m := h.sessions.Metrics()
	return c.JSON(fiber.Map{
		"status":                "healthy",
		"uptime":                m.UptimeSeconds,
		"active_sessions":       m.ActiveSessions,
		"total_requests":        m.TotalRequests,
		"average_response_time": m.AverageResponseTime,
	})
}

func (h *CheckHandler) HandleMetrics(c *fiber.Ctx) error {
	return c.JSON(h.sessions.Metrics())
}
