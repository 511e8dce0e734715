package listings

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/sailakshmi-0987/Campus-recycle/internal/middleware"
	"github.com/sailakshmi-0987/Campus-recycle/internal/pkg/apperr"
	"github.com/sailakshmi-0987/Campus-recycle/internal/pkg/pagination"
	"github.com/sailakshmi-0987/Campus-recycle/internal/pkg/response"
	"github.com/sailakshmi-0987/Campus-recycle/internal/uploads"
)

type Handlers struct {
	Service *Service
	Uploads *uploads.Service
}

// GET /api/listings
func (h *Handlers) List(c *fiber.Ctx) error {
	q := ListQuery{
		Category:  c.Query("category"),
		Condition: c.Query("condition"),
		Search:    c.Query("search"),
		Status:    c.Query("status"),
		Sort:      c.Query("sort"),
		Page:      pagination.Parse(c.Query("page"), c.Query("limit"), 20, 100),
	}
	if raw := c.Query("university"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return response.Fail(c, apperr.Validation("Invalid university id", nil))
		}
		q.UniversityID = &id
	}
	if raw := c.Query("min_price"); raw != "" {
		v := c.QueryFloat("min_price")
		q.MinPrice = &v
	}
	if raw := c.Query("max_price"); raw != "" {
		v := c.QueryFloat("max_price")
		q.MaxPrice = &v
	}

	items, meta, err := h.Service.List(c.Context(), q)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Listings fetched", items, meta)
}

// GET /api/listings/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Fail(c, apperr.Validation("Invalid listing id", nil))
	}
	var viewerID *uuid.UUID
	if user := middleware.AuthedUser(c); user != nil {
		viewerID = &user.UserID
	}
	detail, err := h.Service.Get(c.Context(), id, viewerID)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Listing fetched", detail, nil)
}

// GET /api/listings/:id/views
func (h *Handlers) ViewsHistory(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Fail(c, apperr.Validation("Invalid listing id", nil))
	}
	history, err := h.Service.ViewsHistory(c.Context(), id)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "View history fetched", history, nil)
}

// POST /api/listings
func (h *Handlers) Create(c *fiber.Ctx) error {
	var in CreateListingInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	listing, err := h.Service.Create(c.Context(), middleware.AuthedUser(c), in)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.SuccessCreated(c, "Listing created", listing, nil)
}

// PUT /api/listings/:id
func (h *Handlers) Update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Fail(c, apperr.Validation("Invalid listing id", nil))
	}
	var in UpdateListingInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	listing, err := h.Service.Update(c.Context(), id, middleware.AuthedUser(c).UserID, in)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Listing updated", listing, nil)
}

// POST /api/listings/:id/images — multipart form, field name "images".
func (h *Handlers) AddImages(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Fail(c, apperr.Validation("Invalid listing id", nil))
	}
	form, err := c.MultipartForm()
	if err != nil {
		return response.Error(c, "Invalid multipart form", 400, nil)
	}
	files := form.File["images"]
	if len(files) == 0 {
		return response.Fail(c, apperr.Validation("Please upload at least one image", nil))
	}
	urls, err := h.Uploads.UploadAll(c.Context(), files)
	if err != nil {
		return response.Fail(c, apperr.Internal("failed to upload images", err))
	}
	listing, err := h.Service.AddImages(c.Context(), id, middleware.AuthedUser(c).UserID, urls)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Images uploaded", listing, nil)
}

// PUT /api/listings/:id/sold
func (h *Handlers) MarkSold(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Fail(c, apperr.Validation("Invalid listing id", nil))
	}
	var body struct {
		BuyerID uuid.UUID `json:"buyer_id"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	if body.BuyerID == uuid.Nil {
		return response.Fail(c, apperr.Validation("buyer_id is required", nil))
	}
	listing, err := h.Service.MarkSold(c.Context(), id, middleware.AuthedUser(c).UserID, body.BuyerID)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Listing marked as sold", listing, nil)
}

// DELETE /api/listings/:id
func (h *Handlers) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Fail(c, apperr.Validation("Invalid listing id", nil))
	}
	if err := h.Service.Delete(c.Context(), id, middleware.AuthedUser(c).UserID); err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Listing deleted", nil, nil)
}
