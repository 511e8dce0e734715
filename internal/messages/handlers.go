package messages

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sailakshmi-0987/Campus-recycle/internal/middleware"
	"github.com/sailakshmi-0987/Campus-recycle/internal/pkg/pagination"
	"github.com/sailakshmi-0987/Campus-recycle/internal/pkg/response"
)

type Handlers struct {
	Service *Service
}

// POST /api/messages
func (h *Handlers) Send(c *fiber.Ctx) error {
	var in SendInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	msg, err := h.Service.Send(c.Context(), middleware.AuthedUser(c), in)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.SuccessCreated(c, "Message sent", msg, nil)
}

// GET /api/messages/conversations
func (h *Handlers) ListConversations(c *fiber.Ctx) error {
	page := pagination.Parse(c.Query("page"), c.Query("limit"), 20, 100)
	items, meta, err := h.Service.ListConversations(c.Context(), middleware.AuthedUser(c).UserID, page)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Conversations fetched", items, meta)
}

// GET /api/messages/:conversationId
func (h *Handlers) ListMessages(c *fiber.Ctx) error {
	page := pagination.Parse(c.Query("page"), c.Query("limit"), 50, 100)
	msgs, meta, err := h.Service.ListMessages(c.Context(), middleware.AuthedUser(c).UserID, c.Params("conversationId"), page)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Messages fetched", msgs, meta)
}

// GET /api/messages/unread/count
func (h *Handlers) UnreadCount(c *fiber.Ctx) error {
	count, err := h.Service.UnreadCount(c.Context(), middleware.AuthedUser(c).UserID)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Unread count fetched", fiber.Map{"unread_count": count}, nil)
}

// PUT /api/messages/:conversationId/read
func (h *Handlers) MarkConversationRead(c *fiber.Ctx) error {
	modified, err := h.Service.MarkConversationRead(c.Context(), middleware.AuthedUser(c).UserID, c.Params("conversationId"))
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Conversation marked as read", fiber.Map{"modified_count": modified}, nil)
}
