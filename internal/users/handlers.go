package users

import (
	"mime/multipart"

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

// GET /api/users/:id
func (h *Handlers) GetProfile(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Fail(c, apperr.Validation("Invalid user id", nil))
	}
	profile, err := h.Service.GetProfile(c.Context(), id)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Profile fetched", profile, nil)
}

// PUT /api/users/:id — self only.
func (h *Handlers) UpdateProfile(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Fail(c, apperr.Validation("Invalid user id", nil))
	}
	if id != middleware.AuthedUser(c).UserID {
		return response.Fail(c, apperr.Forbidden("You can only update your own profile"))
	}
	var in UpdateProfileInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	user, err := h.Service.UpdateProfile(c.Context(), id, in)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Profile updated", user, nil)
}

// POST /api/users/:id/profile-image — multipart form, field name "image".
func (h *Handlers) UploadProfileImage(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Fail(c, apperr.Validation("Invalid user id", nil))
	}
	if id != middleware.AuthedUser(c).UserID {
		return response.Fail(c, apperr.Forbidden("You can only update your own profile"))
	}
	fh, err := c.FormFile("image")
	if err != nil {
		return response.Fail(c, apperr.Validation("Please upload an image", nil))
	}
	urls, err := h.Uploads.UploadAll(c.Context(), []*multipart.FileHeader{fh})
	if err != nil {
		return response.Fail(c, apperr.Internal("failed to upload image", err))
	}
	user, err := h.Service.SetProfileImage(c.Context(), id, urls[0])
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Profile image updated", user, nil)
}

// GET /api/users/:id/listings
func (h *Handlers) Listings(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Fail(c, apperr.Validation("Invalid user id", nil))
	}
	page := pagination.Parse(c.Query("page"), c.Query("limit"), 20, 100)
	items, meta, err := h.Service.Listings(c.Context(), id, c.Query("status"), page)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Listings fetched", items, meta)
}

// GET /api/users/:id/reviews
func (h *Handlers) Reviews(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Fail(c, apperr.Validation("Invalid user id", nil))
	}
	page := pagination.Parse(c.Query("page"), c.Query("limit"), 20, 100)
	result, meta, err := h.Service.Reviews(c.Context(), id, page)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Reviews fetched", result, meta)
}

// GET /api/universities
func (h *Handlers) Universities(c *fiber.Ctx) error {
	items, err := h.Service.Universities(c.Context())
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Universities fetched", items, nil)
}
