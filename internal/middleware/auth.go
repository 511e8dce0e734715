package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sailakshmi-0987/Campus-recycle/internal/models"
	"github.com/sailakshmi-0987/Campus-recycle/internal/pkg/response"
)

const userLocal = "auth_user"

// AuthConfig holds what the bearer-token middleware needs.
type AuthConfig struct {
	Secret string
	DB     *gorm.DB
}

// RequireAuth verifies the Authorization bearer token, loads the user and
// rejects non-active accounts. Returns 401 with the standard error format.
func RequireAuth(cfg AuthConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := userFromToken(c, cfg)
		if err != nil {
			return response.Unauthorized(c, err.Error())
		}
		if user.AccountStatus != models.AccountActive {
			return response.Unauthorized(c, "Account is not active")
		}
		c.Locals(userLocal, user)
		return c.Next()
	}
}

// OptionalAuth loads the user when a valid token is present and continues
// anonymously otherwise. Public listing reads use it so view counting can
// skip the seller.
func OptionalAuth(cfg AuthConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if user, err := userFromToken(c, cfg); err == nil && user.AccountStatus == models.AccountActive {
			c.Locals(userLocal, user)
		}
		return c.Next()
	}
}

func userFromToken(c *fiber.Ctx, cfg AuthConfig) (*models.User, error) {
	header := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, errNoToken
	}
	tokenStr := strings.TrimPrefix(header, "Bearer ")

	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errBadToken
		}
		return []byte(cfg.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, errBadToken
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, errBadToken
	}

	var user models.User
	if err := cfg.DB.Where("user_id = ?", userID).First(&user).Error; err != nil {
		return nil, errBadToken
	}
	return &user, nil
}

// AuthedUser returns the authenticated user from Locals (nil if anonymous).
func AuthedUser(c *fiber.Ctx) *models.User {
	u, _ := c.Locals(userLocal).(*models.User)
	return u
}

var (
	errNoToken  = fiber.NewError(fiber.StatusUnauthorized, "Not authorized to access this route")
	errBadToken = fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired token")
)
