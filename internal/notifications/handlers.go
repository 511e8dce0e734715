package notifications

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/sailakshmi-0987/Campus-recycle/internal/middleware"
	"github.com/sailakshmi-0987/Campus-recycle/internal/pkg/pagination"
	"github.com/sailakshmi-0987/Campus-recycle/internal/pkg/response"
)

type Handlers struct {
	Service *Service
}

// GET /api/notifications?unread=true&page=&limit=
func (h *Handlers) List(c *fiber.Ctx) error {
	user := middleware.AuthedUser(c)
	p := pagination.Parse(c.Query("page"), c.Query("limit"), 20, 100)
	unreadOnly := c.Query("unread") == "true"

	items, meta, err := h.Service.List(c.Context(), user.UserID, unreadOnly, p)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Notifications fetched successfully", items, meta)
}

// GET /api/notifications/unread/count
func (h *Handlers) UnreadCount(c *fiber.Ctx) error {
	user := middleware.AuthedUser(c)
	count, err := h.Service.UnreadCount(c.Context(), user.UserID)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Unread count fetched", fiber.Map{"count": count}, nil)
}

// PUT /api/notifications/:id/read
func (h *Handlers) MarkRead(c *fiber.Ctx) error {
	user := middleware.AuthedUser(c)
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid notification id", 400, nil)
	}
	n, err := h.Service.MarkRead(c.Context(), id, user.UserID)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Notification marked as read", n, nil)
}

// PUT /api/notifications/read-all
func (h *Handlers) MarkAllRead(c *fiber.Ctx) error {
	user := middleware.AuthedUser(c)
	modified, err := h.Service.MarkAllRead(c.Context(), user.UserID)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Notifications marked as read", fiber.Map{"modifiedCount": modified}, nil)
}
