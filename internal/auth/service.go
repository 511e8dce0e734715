package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/sailakshmi-0987/Campus-recycle/internal/emails"
	"github.com/sailakshmi-0987/Campus-recycle/internal/models"
	"github.com/sailakshmi-0987/Campus-recycle/internal/pkg/apperr"
	"github.com/sailakshmi-0987/Campus-recycle/internal/pkg/validation"
)

// Service handles registration, login and email verification.
type Service struct {
	DB        *gorm.DB
	Emails    emails.Sender
	JWTSecret string
	JWTExpiry time.Duration
}

type RegisterInput struct {
	Email        string    `json:"email"`
	Password     string    `json:"password"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	UniversityID uuid.UUID `json:"university_id"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult carries a signed token plus the public user shape.
type AuthResult struct {
	Token string            `json:"token"`
	User  models.PublicUser `json:"user"`
}

// Register creates an account: .edu email matching the university's domain,
// bcrypt-hashed password, verification code emailed best-effort.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.PublicUser, error) {
	details := map[string]string{}
	if !validation.IsValidEduEmail(in.Email) {
		details["email"] = "Must be a valid .edu email address"
	}
	if !validation.IsValidPassword(in.Password) {
		details["password"] = "Password must be at least 8 characters with a letter and a number"
	}
	if !validation.IsValidName(in.FirstName) {
		details["first_name"] = "First name is required"
	}
	if !validation.IsValidName(in.LastName) {
		details["last_name"] = "Last name is required"
	}
	if len(details) > 0 {
		return nil, apperr.Validation("Invalid registration details", details)
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))

	var existing models.User
	if err := s.DB.WithContext(ctx).Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, apperr.Conflict("Email already registered")
	} else if err != gorm.ErrRecordNotFound {
		return nil, apperr.Internal("failed to check existing user", err)
	}

	var uni models.University
	if err := s.DB.WithContext(ctx).Where("university_id = ?", in.UniversityID).First(&uni).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("University")
		}
		return nil, apperr.Internal("failed to load university", err)
	}
	if domain := email[strings.Index(email, "@")+1:]; !strings.EqualFold(domain, uni.EmailDomain) {
		return nil, apperr.Validation("Email domain does not match selected university", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Internal("failed to hash password", err)
	}

	code, err := verificationCode()
	if err != nil {
		return nil, apperr.Internal("failed to generate verification code", err)
	}

	user := &models.User{
		Email:                  email,
		PasswordHash:           string(hash),
		FirstName:              strings.TrimSpace(in.FirstName),
		LastName:               strings.TrimSpace(in.LastName),
		UniversityID:           uni.UniversityID,
		ReputationScore:        models.DefaultReputation,
		AccountStatus:          models.AccountActive,
		EmailVerificationToken: &code,
	}
	if err := s.DB.WithContext(ctx).Create(user).Error; err != nil {
		return nil, apperr.Internal("failed to create user", err)
	}

	if s.Emails != nil {
		if err := s.Emails.SendVerification(ctx, user.Email, user.FirstName, code); err != nil {
			log.Error().Err(err).Str("email", user.Email).Msg("failed to send verification email")
		}
	}

	pub := user.Public()
	return &pub, nil
}

// VerifyEmail checks the emailed code and issues the first token.
func (s *Service) VerifyEmail(ctx context.Context, email, code string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var user models.User
	err := s.DB.WithContext(ctx).
		Where("email = ? AND email_verification_token = ?", email, code).
		First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.Validation("Invalid or expired verification code", nil)
		}
		return nil, apperr.Internal("failed to load user", err)
	}
	return s.markVerified(ctx, &user)
}

// VerifyEmailToken verifies via the emailed link, which carries the token
// alone.
func (s *Service) VerifyEmailToken(ctx context.Context, token string) (*AuthResult, error) {
	if token == "" {
		return nil, apperr.Validation("Verification token is required", nil)
	}
	var user models.User
	err := s.DB.WithContext(ctx).
		Where("email_verification_token = ?", token).
		First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.Validation("Invalid or expired verification code", nil)
		}
		return nil, apperr.Internal("failed to load user", err)
	}
	return s.markVerified(ctx, &user)
}

func (s *Service) markVerified(ctx context.Context, user *models.User) (*AuthResult, error) {
	if err := s.DB.WithContext(ctx).Model(user).Updates(map[string]interface{}{
		"email_verified":           true,
		"email_verification_token": nil,
	}).Error; err != nil {
		return nil, apperr.Internal("failed to verify email", err)
	}
	user.EmailVerified = true

	token, err := s.SignToken(user.UserID)
	if err != nil {
		return nil, apperr.Internal("failed to sign token", err)
	}
	return &AuthResult{Token: token, User: user.Public()}, nil
}

// Login verifies credentials and account state, stamps lastLogin and issues a
// token.
func (s *Service) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	if in.Email == "" || in.Password == "" {
		return nil, apperr.Validation("Email and password are required", nil)
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))

	var user models.User
	if err := s.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.Unauthorized("Invalid credentials")
		}
		return nil, apperr.Internal("failed to load user", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, apperr.Unauthorized("Invalid credentials")
	}
	if !user.EmailVerified {
		return nil, apperr.Forbidden("Please verify your email before logging in")
	}
	if user.AccountStatus != models.AccountActive {
		return nil, apperr.Forbidden("Your account has been suspended")
	}

	now := time.Now()
	if err := s.DB.WithContext(ctx).Model(&user).Update("last_login", now).Error; err != nil {
		return nil, apperr.Internal("failed to update last login", err)
	}
	user.LastLogin = &now

	token, err := s.SignToken(user.UserID)
	if err != nil {
		return nil, apperr.Internal("failed to sign token", err)
	}
	return &AuthResult{Token: token, User: user.Public()}, nil
}

// ResendVerification regenerates the code and re-sends the email.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	var user models.User
	if err := s.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return apperr.NotFound("User")
		}
		return apperr.Internal("failed to load user", err)
	}
	if user.EmailVerified {
		return apperr.InvalidState("Email already verified")
	}

	code, err := verificationCode()
	if err != nil {
		return apperr.Internal("failed to generate verification code", err)
	}
	if err := s.DB.WithContext(ctx).Model(&user).Update("email_verification_token", code).Error; err != nil {
		return apperr.Internal("failed to store verification code", err)
	}

	if s.Emails != nil {
		if err := s.Emails.SendVerification(ctx, user.Email, user.FirstName, code); err != nil {
			log.Error().Err(err).Str("email", user.Email).Msg("failed to send verification email")
		}
	}
	return nil
}

// SignToken issues an HS256 JWT with the user id as subject.
func (s *Service) SignToken(userID uuid.UUID) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.JWTExpiry)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.JWTSecret))
}

// verificationCode returns a 6-digit numeric code.
func verificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
