package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sailakshmi-0987/Campus-recycle/internal/middleware"
	"github.com/sailakshmi-0987/Campus-recycle/internal/pkg/response"
)

type Handlers struct {
	Service *Service
}

// POST /api/auth/register
func (h *Handlers) Register(c *fiber.Ctx) error {
	var in RegisterInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	user, err := h.Service.Register(c.Context(), in)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.SuccessCreated(c, "Registration successful. Please check your email to verify your account.", fiber.Map{"user": user}, nil)
}

// POST /api/auth/verify-email
func (h *Handlers) VerifyEmail(c *fiber.Ctx) error {
	var body struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	result, err := h.Service.VerifyEmail(c.Context(), body.Email, body.Code)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Email verified successfully", result, nil)
}

// GET /api/auth/verify-email/:token — the link flavor of verification.
func (h *Handlers) VerifyEmailToken(c *fiber.Ctx) error {
	result, err := h.Service.VerifyEmailToken(c.Context(), c.Params("token"))
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Email verified successfully", result, nil)
}

// POST /api/auth/login
func (h *Handlers) Login(c *fiber.Ctx) error {
	var in LoginInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	result, err := h.Service.Login(c.Context(), in)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Login successful", result, nil)
}

// POST /api/auth/resend-verification
func (h *Handlers) ResendVerification(c *fiber.Ctx) error {
	var body struct {
		Email string `json:"email"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	if err := h.Service.ResendVerification(c.Context(), body.Email); err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Verification email sent", nil, nil)
}

// GET /api/auth/me
func (h *Handlers) Me(c *fiber.Ctx) error {
	user := middleware.AuthedUser(c)
	return response.Success(c, "Current user fetched", user, nil)
}

// POST /api/auth/logout — stateless tokens; the client discards its copy.
func (h *Handlers) Logout(c *fiber.Ctx) error {
	return response.Success(c, "Logged out successfully", nil, nil)
}
