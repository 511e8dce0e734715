package transactions

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/sailakshmi-0987/Campus-recycle/internal/middleware"
	"github.com/sailakshmi-0987/Campus-recycle/internal/pkg/apperr"
	"github.com/sailakshmi-0987/Campus-recycle/internal/pkg/pagination"
	"github.com/sailakshmi-0987/Campus-recycle/internal/pkg/response"
)

type Handlers struct {
	Service *Service
}

func parseID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, apperr.Validation("Invalid transaction id", nil)
	}
	return id, nil
}

// POST /api/transactions
func (h *Handlers) Open(c *fiber.Ctx) error {
	var in OpenInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	txn, err := h.Service.Open(c.Context(), middleware.AuthedUser(c), in)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.SuccessCreated(c, "Transaction created", txn, nil)
}

// GET /api/transactions
func (h *Handlers) ListMine(c *fiber.Ctx) error {
	page := pagination.Parse(c.Query("page"), c.Query("limit"), 20, 100)
	items, meta, err := h.Service.ListMine(c.Context(), middleware.AuthedUser(c).UserID,
		c.Query("role"), c.Query("status"), page)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Transactions fetched", items, meta)
}

// GET /api/transactions/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.Fail(c, err)
	}
	txn, err := h.Service.Get(c.Context(), middleware.AuthedUser(c).UserID, id)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Transaction fetched", txn, nil)
}

// PUT /api/transactions/:id/confirm
func (h *Handlers) Confirm(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.Fail(c, err)
	}
	txn, err := h.Service.Confirm(c.Context(), middleware.AuthedUser(c).UserID, id)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Transaction confirmed", txn, nil)
}

// PUT /api/transactions/:id/meetup
func (h *Handlers) ScheduleMeetup(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.Fail(c, err)
	}
	var in MeetupInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	txn, err := h.Service.ScheduleMeetup(c.Context(), middleware.AuthedUser(c).UserID, id, in)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Meetup scheduled", txn, nil)
}

// PUT /api/transactions/:id/complete
func (h *Handlers) Complete(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.Fail(c, err)
	}
	txn, err := h.Service.Complete(c.Context(), middleware.AuthedUser(c).UserID, id)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Transaction completed", txn, nil)
}

// PUT /api/transactions/:id/cancel
func (h *Handlers) Cancel(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.Fail(c, err)
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	txn, err := h.Service.Cancel(c.Context(), middleware.AuthedUser(c).UserID, id, body.Reason)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Transaction cancelled", txn, nil)
}

// PUT /api/transactions/:id/dispute
func (h *Handlers) Dispute(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.Fail(c, err)
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	txn, err := h.Service.Dispute(c.Context(), middleware.AuthedUser(c).UserID, id, body.Reason)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Transaction disputed", txn, nil)
}

// POST /api/transactions/:id/reviews
func (h *Handlers) SubmitReview(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.Fail(c, err)
	}
	var in ReviewInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	review, err := h.Service.SubmitReview(c.Context(), middleware.AuthedUser(c).UserID, id, in)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.SuccessCreated(c, "Review submitted", review, nil)
}
