package users

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sailakshmi-0987/Campus-recycle/internal/models"
	"github.com/sailakshmi-0987/Campus-recycle/internal/pkg/apperr"
	"github.com/sailakshmi-0987/Campus-recycle/internal/pkg/pagination"
	"github.com/sailakshmi-0987/Campus-recycle/internal/pkg/validation"
)

// Service serves public profiles and self-service profile edits.
type Service struct {
	DB *gorm.DB
}

// Profile is the public profile page payload: the user, a few active
// listings and their most recent reviews.
type Profile struct {
	User           models.PublicUser `json:"user"`
	University     models.University `json:"university"`
	ActiveListings []models.Listing  `json:"active_listings"`
	RecentReviews  []models.Review   `json:"recent_reviews"`
}

// GetProfile returns the public profile with up to 6 active listings and the
// 5 most recent reviews (Express getUserProfile).
func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("User")
		}
		return nil, apperr.Internal("failed to load user", err)
	}

	var uni models.University
	if err := s.DB.WithContext(ctx).Where("university_id = ?", user.UniversityID).First(&uni).Error; err != nil && err != gorm.ErrRecordNotFound {
		return nil, apperr.Internal("failed to load university", err)
	}

	var listings []models.Listing
	err := s.DB.WithContext(ctx).
		Where("seller_id = ? AND status = ?", userID, models.ListingActive).
		Order("created_at DESC").Limit(6).
		Find(&listings).Error
	if err != nil {
		return nil, apperr.Internal("failed to load listings", err)
	}

	var reviews []models.Review
	err = s.DB.WithContext(ctx).
		Where("reviewee_id = ?", userID).
		Order("created_at DESC").Limit(5).
		Find(&reviews).Error
	if err != nil {
		return nil, apperr.Internal("failed to load reviews", err)
	}

	return &Profile{
		User:           user.Public(),
		University:     uni,
		ActiveListings: listings,
		RecentReviews:  reviews,
	}, nil
}

type UpdateProfileInput struct {
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	PhoneNumber *string `json:"phone_number"`
	Bio         *string `json:"bio"`
}

// UpdateProfile edits the caller's own profile. Only name, phone and bio are
// editable; email, university and counters never change here.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, in UpdateProfileInput) (*models.PublicUser, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("User")
		}
		return nil, apperr.Internal("failed to load user", err)
	}

	details := map[string]string{}
	updates := map[string]interface{}{}
	if in.FirstName != nil {
		if !validation.IsValidName(*in.FirstName) {
			details["first_name"] = "Invalid first name"
		}
		updates["first_name"] = strings.TrimSpace(*in.FirstName)
		user.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		if !validation.IsValidName(*in.LastName) {
			details["last_name"] = "Invalid last name"
		}
		updates["last_name"] = strings.TrimSpace(*in.LastName)
		user.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.PhoneNumber != nil {
		if !validation.IsValidPhone(*in.PhoneNumber) {
			details["phone_number"] = "Phone number must be 10 digits"
		}
		updates["phone_number"] = *in.PhoneNumber
		user.PhoneNumber = *in.PhoneNumber
	}
	if in.Bio != nil {
		if len(*in.Bio) > 500 {
			details["bio"] = "Bio must be at most 500 characters"
		}
		updates["bio"] = *in.Bio
		user.Bio = *in.Bio
	}
	if len(details) > 0 {
		return nil, apperr.Validation("Invalid profile details", details)
	}
	if len(updates) > 0 {
		if err := s.DB.WithContext(ctx).Model(&models.User{}).
			Where("user_id = ?", userID).Updates(updates).Error; err != nil {
			return nil, apperr.Internal("failed to update profile", err)
		}
	}
	pub := user.Public()
	return &pub, nil
}

// SetProfileImage stores the hosted image URL on the caller's profile.
func (s *Service) SetProfileImage(ctx context.Context, userID uuid.UUID, url string) (*models.PublicUser, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("User")
		}
		return nil, apperr.Internal("failed to load user", err)
	}
	if err := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("user_id = ?", userID).
		UpdateColumn("profile_image_url", url).Error; err != nil {
		return nil, apperr.Internal("failed to update profile image", err)
	}
	user.ProfileImageURL = &url
	pub := user.Public()
	return &pub, nil
}

// Listings pages through a user's listings, optionally filtered by status
// (default active, matching the public profile).
func (s *Service) Listings(ctx context.Context, userID uuid.UUID, status string, page pagination.Params) ([]models.Listing, pagination.Meta, error) {
	if status == "" {
		status = models.ListingActive
	}
	db := s.DB.WithContext(ctx).Model(&models.Listing{}).
		Where("seller_id = ? AND status = ?", userID, status)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, pagination.Meta{}, apperr.Internal("failed to count listings", err)
	}
	var out []models.Listing
	err := db.Order("created_at DESC").Limit(page.Limit).Offset(page.Offset()).Find(&out).Error
	if err != nil {
		return nil, pagination.Meta{}, apperr.Internal("failed to fetch listings", err)
	}
	return out, page.MetaFor(total), nil
}

// ReviewsPage is a page of reviews plus the reviewee's rating histogram.
type ReviewsPage struct {
	Reviews      []models.Review `json:"reviews"`
	Distribution map[int]int64   `json:"distribution"`
}

// Reviews pages through reviews received by a user, newest first, with a
// 1-5 star distribution computed over all of them.
func (s *Service) Reviews(ctx context.Context, userID uuid.UUID, page pagination.Params) (*ReviewsPage, pagination.Meta, error) {
	db := s.DB.WithContext(ctx).Model(&models.Review{}).Where("reviewee_id = ?", userID)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, pagination.Meta{}, apperr.Internal("failed to count reviews", err)
	}
	var reviews []models.Review
	err := db.Order("created_at DESC").Limit(page.Limit).Offset(page.Offset()).Find(&reviews).Error
	if err != nil {
		return nil, pagination.Meta{}, apperr.Internal("failed to fetch reviews", err)
	}

	type bucket struct {
		Rating int
		Total  int64
	}
	var buckets []bucket
	err = s.DB.WithContext(ctx).Model(&models.Review{}).
		Select("rating, COUNT(*) as total").
		Where("reviewee_id = ?", userID).
		Group("rating").
		Scan(&buckets).Error
	if err != nil {
		return nil, pagination.Meta{}, apperr.Internal("failed to compute rating distribution", err)
	}
	distribution := map[int]int64{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}
	for _, b := range buckets {
		distribution[b.Rating] = b.Total
	}

	return &ReviewsPage{Reviews: reviews, Distribution: distribution}, page.MetaFor(total), nil
}

// Universities lists the registered campuses for the signup form.
func (s *Service) Universities(ctx context.Context) ([]models.University, error) {
	var out []models.University
	if err := s.DB.WithContext(ctx).Order("name ASC").Find(&out).Error; err != nil {
		return nil, apperr.Internal("failed to fetch universities", err)
	}
	return out, nil
}
