package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sailakshmi-0987/Campus-recycle/internal/auth"
	"github.com/sailakshmi-0987/Campus-recycle/internal/config"
	"github.com/sailakshmi-0987/Campus-recycle/internal/database"
	"github.com/sailakshmi-0987/Campus-recycle/internal/middleware"
	"github.com/sailakshmi-0987/Campus-recycle/internal/models"
)

type testEnv struct {
	app *fiber.App
	db  *gorm.DB
	cfg *config.Config
}

func setupApp(t *testing.T) *testEnv {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	cfg := &config.Config{
		Env:         "test",
		JWTSecret:   "test-secret",
		JWTExpiry:   time.Hour,
		FrontendURL: "http://localhost:3000",
	}
	fiberApp := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          middleware.ErrorHandler,
	})
	RegisterRoutes(fiberApp, db, nil, cfg)
	return &testEnv{app: fiberApp, db: db, cfg: cfg}
}

func (e *testEnv) seedVerifiedUser(t *testing.T, first string) (*models.User, string) {
	uni := &models.University{Name: "Uni " + uuid.NewString()[:8], EmailDomain: "test.edu"}
	require.NoError(t, e.db.Create(uni).Error)
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
	require.NoError(t, e.db.Create(user).Error)

	signer := &auth.Service{DB: e.db, JWTSecret: e.cfg.JWTSecret, JWTExpiry: e.cfg.JWTExpiry}
	token, err := signer.SignToken(user.UserID)
	require.NoError(t, err)
	return user, token
}

func (e *testEnv) request(t *testing.T, method, path, token string, body interface{}) (map[string]interface{}, int) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return decoded, resp.StatusCode
}

func dataField(t *testing.T, body map[string]interface{}) map[string]interface{} {
	data, ok := body["data"].(map[string]interface{})
	require.True(t, ok, "response data: %v", body)
	return data
}

func TestHealth(t *testing.T) {
	env := setupApp(t)
	resp, err := env.app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := setupApp(t)
	for _, route := range []struct{ method, path string }{
		{"POST", "/api/listings"},
		{"GET", "/api/messages/conversations"},
		{"GET", "/api/transactions"},
		{"GET", "/api/notifications"},
	} {
		req := httptest.NewRequest(route.method, route.path, bytes.NewBufferString("{}"))
		req.Header.Set("Content-Type", "application/json")
		resp, err := env.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, route.path)
	}
}

// TestMarketplaceFlow walks the whole happy path over HTTP: seller lists an
// item, buyer messages, opens a transaction, both sides move it to completed,
// buyer reviews, reputation updates and notifications accumulate.
func TestMarketplaceFlow(t *testing.T) {
	env := setupApp(t)
	seller, sellerToken := env.seedVerifiedUser(t, "Sal")
	buyer, buyerToken := env.seedVerifiedUser(t, "Bea")

	// Seller creates a listing.
	body, status := env.request(t, "POST", "/api/listings", sellerToken, fiber.Map{
		"title":       "Organic chemistry textbook",
		"description": "Eighth edition, some notes in margins.",
		"category":    "Textbooks",
		"condition":   "Good",
		"price":       40,
	})
	require.Equal(t, fiber.StatusCreated, status, "%v", body)
	listingID := dataField(t, body)["listing_id"].(string)

	// Buyer views it; the view counts.
	body, status = env.request(t, "GET", "/api/listings/"+listingID, buyerToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	listing := dataField(t, body)["listing"].(map[string]interface{})
	assert.Equal(t, float64(1), listing["views"])

	// Buyer messages the seller.
	body, status = env.request(t, "POST", "/api/messages", buyerToken, fiber.Map{
		"listing_id":   listingID,
		"recipient_id": seller.UserID.String(),
		"content":      "Hi! Is this still available?",
	})
	require.Equal(t, fiber.StatusCreated, status, "%v", body)

	// Seller sees one conversation with one unread message.
	body, status = env.request(t, "GET", "/api/messages/conversations", sellerToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	convos := body["data"].([]interface{})
	require.Len(t, convos, 1)
	assert.Equal(t, float64(1), convos[0].(map[string]interface{})["unread_count"])

	// Buyer opens a transaction.
	body, status = env.request(t, "POST", "/api/transactions", buyerToken, fiber.Map{
		"listing_id": listingID,
	})
	require.Equal(t, fiber.StatusCreated, status, "%v", body)
	txnID := dataField(t, body)["transaction_id"].(string)

	// Seller confirms, buyer schedules the meetup, seller completes.
	body, status = env.request(t, "PUT", fmt.Sprintf("/api/transactions/%s/confirm", txnID), sellerToken, nil)
	require.Equal(t, fiber.StatusOK, status, "%v", body)

	body, status = env.request(t, "PUT", fmt.Sprintf("/api/transactions/%s/meetup", txnID), buyerToken, fiber.Map{
		"location": "Campus center",
		"time":     time.Now().Add(24 * time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, fiber.StatusOK, status, "%v", body)

	body, status = env.request(t, "PUT", fmt.Sprintf("/api/transactions/%s/complete", txnID), sellerToken, nil)
	require.Equal(t, fiber.StatusOK, status, "%v", body)

	// Buyer reviews the seller.
	body, status = env.request(t, "POST", fmt.Sprintf("/api/transactions/%s/reviews", txnID), buyerToken, fiber.Map{
		"rating":      4,
		"review_text": "Quick and friendly.",
	})
	require.Equal(t, fiber.StatusCreated, status, "%v", body)

	// Reputation is recomputed synchronously.
	var freshSeller models.User
	require.NoError(t, env.db.Where("user_id = ?", seller.UserID).First(&freshSeller).Error)
	assert.Equal(t, 4.0, freshSeller.ReputationScore)

	// Duplicate review conflicts.
	body, status = env.request(t, "POST", fmt.Sprintf("/api/transactions/%s/reviews", txnID), buyerToken, fiber.Map{
		"rating": 1,
	})
	assert.Equal(t, fiber.StatusConflict, status, "%v", body)

	// Seller accumulated notifications along the way.
	body, status = env.request(t, "GET", "/api/notifications", sellerToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	notifs := body["data"].([]interface{})
	assert.NotEmpty(t, notifs)

	_ = buyer
}
