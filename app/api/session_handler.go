package api

import (
	"github.com/gofiber/fiber/v2"

	"docquery/session"
)

type SessionHandler struct {
	sessions *session.Registry
}

func NewSessionHandler(sessions *session.Registry) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

func (h *SessionHandler) HandleList(c *fiber.Ctx) error {
	list := h.sessions.List()
	return c.JSON(fiber.Map{
		"active_sessions": len(list),
		"sessions":        list,
	})
}

func (h *SessionHandler) HandleGet(c *fiber.Ctx) error {
	id := c.Params("id")
	s, ok := h.sessions.Get(id)
	if !ok {
		return ErrNotFound(id, "session")
	}
	return c.JSON(s)
}

func (h *SessionHandler) HandleDelete(c *fiber.Ctx) error {
	id := c.Params("id")
	if !h.sessions.Delete(id) {
		return ErrNotFound(id, "session")
	}
	return c.JSON(fiber.Map{"message": "session " + id + " deleted"})
}
