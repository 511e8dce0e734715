package users

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sailakshmi-0987/Campus-recycle/internal/models"
	"github.com/sailakshmi-0987/Campus-recycle/internal/pkg/apperr"
	"github.com/sailakshmi-0987/Campus-recycle/internal/pkg/pagination"
)

func setupUserDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.University{}, &models.User{},
		&models.Listing{}, &models.Transaction{}, &models.Review{},
	))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, first string) *models.User {
	uni := &models.University{Name: "Uni " + uuid.NewString()[:8], EmailDomain: "test.edu"}
	require.NoError(t, db.Create(uni).Error)
	user := &models.User{
		Email:           uuid.NewString()[:8] + "@test.edu",
		PasswordHash:    "x",
		FirstName:       first,
		LastName:        "Tester",
		UniversityID:    uni.UniversityID,
		EmailVerified:   true,
		ReputationScore: models.DefaultReputation,
		AccountStatus:   models.AccountActive,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedReview(t *testing.T, db *gorm.DB, reviewee, reviewer uuid.UUID, rating int) {
	require.NoError(t, db.Create(&models.Review{
		TransactionID: uuid.New(),
		ReviewerID:    reviewer,
		RevieweeID:    reviewee,
		ListingID:     uuid.New(),
		Rating:        rating,
		ReviewType:    models.ReviewBuyerToSeller,
	}).Error)
}

func TestGetProfile(t *testing.T) {
	db := setupUserDB(t)
	svc := &Service{DB: db}
	user := seedUser(t, db, "Pat")

	for i := 0; i < 8; i++ {
		require.NoError(t, db.Create(&models.Listing{
			SellerID:       user.UserID,
			UniversityID:   user.UniversityID,
			Title:          fmt.Sprintf("Listing number %d", i),
			Description:    "Something worth describing.",
			Category:       "Other",
			Condition:      "Good",
			Price:          10,
			Status:         models.ListingActive,
			AvailableFrom:  time.Now(),
			AvailableUntil: time.Now().Add(24 * time.Hour),
		}).Error)
	}
	seedReview(t, db, user.UserID, uuid.New(), 4)

	profile, err := svc.GetProfile(context.Background(), user.UserID)
	require.NoError(t, err)
	assert.Equal(t, user.UserID, profile.User.UserID)
	assert.Len(t, profile.ActiveListings, 6)
	assert.Len(t, profile.RecentReviews, 1)
	assert.Equal(t, user.UniversityID, profile.University.UniversityID)

	_, err = svc.GetProfile(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestUpdateProfile_EditableFieldsOnly(t *testing.T) {
	db := setupUserDB(t)
	svc := &Service{DB: db}
	user := seedUser(t, db, "Pat")

	first := "Patricia"
	phone := "5551234567"
	updated, err := svc.UpdateProfile(context.Background(), user.UserID, UpdateProfileInput{
		FirstName: &first, PhoneNumber: &phone,
	})
	require.NoError(t, err)
	assert.Equal(t, "Patricia", updated.FirstName)

	var fresh models.User
	require.NoError(t, db.Where("user_id = ?", user.UserID).First(&fresh).Error)
	assert.Equal(t, "Patricia", fresh.FirstName)
	assert.Equal(t, "5551234567", fresh.PhoneNumber)
	// Untouched fields survive.
	assert.Equal(t, user.Email, fresh.Email)
	assert.Equal(t, user.UniversityID, fresh.UniversityID)

	badPhone := "123"
	_, err = svc.UpdateProfile(context.Background(), user.UserID, UpdateProfileInput{PhoneNumber: &badPhone})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeValidation))
}

func TestReviews_PagingAndDistribution(t *testing.T) {
	db := setupUserDB(t)
	svc := &Service{DB: db}
	user := seedUser(t, db, "Pat")

	for _, rating := range []int{5, 5, 4, 3, 5} {
		seedReview(t, db, user.UserID, uuid.New(), rating)
	}

	result, meta, err := svc.Reviews(context.Background(), user.UserID, pagination.Params{Page: 1, Limit: 3})
	require.NoError(t, err)
	assert.Len(t, result.Reviews, 3)
	assert.Equal(t, int64(5), meta.Total)
	assert.Equal(t, int64(3), result.Distribution[5])
	assert.Equal(t, int64(1), result.Distribution[4])
	assert.Equal(t, int64(1), result.Distribution[3])
	assert.Zero(t, result.Distribution[1])
}

func TestListings_StatusFilter(t *testing.T) {
	db := setupUserDB(t)
	svc := &Service{DB: db}
	user := seedUser(t, db, "Pat")

	for _, status := range []string{models.ListingActive, models.ListingSold} {
		require.NoError(t, db.Create(&models.Listing{
			SellerID:       user.UserID,
			UniversityID:   user.UniversityID,
			Title:          "Listing in " + status,
			Description:    "Something worth describing.",
			Category:       "Other",
			Condition:      "Good",
			Price:          10,
			Status:         status,
			AvailableFrom:  time.Now(),
			AvailableUntil: time.Now().Add(24 * time.Hour),
		}).Error)
	}

	page := pagination.Params{Page: 1, Limit: 10}
	items, _, err := svc.Listings(context.Background(), user.UserID, "", page)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.ListingActive, items[0].Status)

	items, _, err = svc.Listings(context.Background(), user.UserID, models.ListingSold, page)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.ListingSold, items[0].Status)
}
