package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Account statuses (Express userModel.js accountStatus enum).
const (
	AccountActive    = "active"
	AccountSuspended = "suspended"
	AccountDeleted   = "deleted"
)

// DefaultReputation is the score a user starts with before any review.
const DefaultReputation = 5.0

// User matches the Express User model (models/User.js).
type User struct {
	UserID                 uuid.UUID      `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	Email                  string         `gorm:"column:email;not null;uniqueIndex" json:"email"`
	EmailVerified          bool           `gorm:"column:email_verified;not null" json:"email_verified"`
	EmailVerificationToken *string        `gorm:"column:email_verification_token" json:"-"`
	PasswordHash           string         `gorm:"column:password_hash;not null" json:"-"`
	FirstName              string         `gorm:"column:first_name;not null" json:"first_name"`
	LastName               string         `gorm:"column:last_name;not null" json:"last_name"`
	UniversityID           uuid.UUID      `gorm:"column:university_id;type:uuid;not null;index" json:"university_id"`
	PhoneNumber            string         `gorm:"column:phone_number" json:"phone_number"`
	ProfileImageURL        *string        `gorm:"column:profile_image_url" json:"profile_image_url"`
	Bio                    string         `gorm:"column:bio" json:"bio"`
	ReputationScore        float64        `gorm:"column:reputation_score;not null" json:"reputation_score"`
	TotalListings          int            `gorm:"column:total_listings;not null" json:"total_listings"`
	TotalSales             int            `gorm:"column:total_sales;not null" json:"total_sales"`
	TotalPurchases         int            `gorm:"column:total_purchases;not null" json:"total_purchases"`
	AccountStatus          string         `gorm:"column:account_status;not null;default:active;index" json:"account_status"`
	LastLogin              *time.Time     `gorm:"column:last_login" json:"last_login"`
	CreatedAt              time.Time      `json:"createdAt"`
	UpdatedAt              time.Time      `json:"updatedAt"`
	DeletedAt              gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "Users"
}

// BeforeCreate sets UUID if not set (for DBs without gen_random_uuid).
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UserID == uuid.Nil {
		u.UserID = uuid.New()
	}
	return nil
}

// PublicUser is the profile shape exposed to other users (Express toPublicJSON).
type PublicUser struct {
	UserID          uuid.UUID `json:"user_id"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	UniversityID    uuid.UUID `json:"university_id"`
	ProfileImageURL *string   `json:"profile_image_url"`
	Bio             string    `json:"bio"`
	ReputationScore float64   `json:"reputation_score"`
	TotalListings   int       `json:"total_listings"`
	TotalSales      int       `json:"total_sales"`
	TotalPurchases  int       `json:"total_purchases"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Public strips credentials and contact details from a user record.
func (u *User) Public() PublicUser {
	return PublicUser{
		UserID:          u.UserID,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		UniversityID:    u.UniversityID,
		ProfileImageURL: u.ProfileImageURL,
		Bio:             u.Bio,
		ReputationScore: u.ReputationScore,
		TotalListings:   u.TotalListings,
		TotalSales:      u.TotalSales,
		TotalPurchases:  u.TotalPurchases,
		CreatedAt:       u.CreatedAt,
	}
}
