package transactions

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sailakshmi-0987/Campus-recycle/internal/models"
	"github.com/sailakshmi-0987/Campus-recycle/internal/notifications"
	"github.com/sailakshmi-0987/Campus-recycle/internal/pkg/apperr"
	"github.com/sailakshmi-0987/Campus-recycle/internal/pkg/pagination"
)

func setupTxnDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.University{}, &models.User{}, &models.Listing{},
		&models.Transaction{}, &models.Review{}, &models.Notification{},
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

func seedListing(t *testing.T, db *gorm.DB, seller *models.User) *models.Listing {
	listing := &models.Listing{
		SellerID:       seller.UserID,
		UniversityID:   seller.UniversityID,
		Title:          "Desk chair",
		Description:    "Comfortable, minor scuffs.",
		Category:       "Furniture",
		Condition:      "Good",
		Price:          35,
		Status:         models.ListingActive,
		AvailableFrom:  time.Now(),
		AvailableUntil: time.Now().Add(30 * 24 * time.Hour),
	}
	require.NoError(t, db.Create(listing).Error)
	return listing
}

func newService(db *gorm.DB) *Service {
	return &Service{DB: db, Notifier: &notifications.Service{DB: db}}
}

func openTxn(t *testing.T, svc *Service, buyer *models.User, listing *models.Listing) *models.Transaction {
	txn, err := svc.Open(context.Background(), buyer, OpenInput{ListingID: listing.ListingID})
	require.NoError(t, err)
	return txn
}

func completeTxn(t *testing.T, svc *Service, txn *models.Transaction) {
	_, err := svc.Confirm(context.Background(), txn.SellerID, txn.TransactionID)
	require.NoError(t, err)
	when := time.Now().Add(24 * time.Hour)
	_, err = svc.ScheduleMeetup(context.Background(), txn.BuyerID, txn.TransactionID, MeetupInput{
		Location: "Library steps", Time: &when,
	})
	require.NoError(t, err)
	_, err = svc.Complete(context.Background(), txn.SellerID, txn.TransactionID)
	require.NoError(t, err)
}

func TestOpen_ValidationAndConflict(t *testing.T) {
	db := setupTxnDB(t)
	svc := newService(db)
	seller := seedUser(t, db, "Sal")
	buyer := seedUser(t, db, "Bea")
	other := seedUser(t, db, "Ollie")
	listing := seedListing(t, db, seller)

	_, err := svc.Open(context.Background(), seller, OpenInput{ListingID: listing.ListingID})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeValidation))

	_, err = svc.Open(context.Background(), buyer, OpenInput{ListingID: uuid.New()})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))

	txn := openTxn(t, svc, buyer, listing)
	assert.Equal(t, models.TxPending, txn.Status)
	assert.Equal(t, listing.Price, txn.FinalPrice)
	assert.Equal(t, models.PaymentCash, txn.PaymentMethod)

	// Second open while the first is in flight conflicts.
	_, err = svc.Open(context.Background(), other, OpenInput{ListingID: listing.ListingID})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeConflict))

	// Seller got notified about the request.
	var notif models.Notification
	require.NoError(t, db.Where("user_id = ?", seller.UserID).First(&notif).Error)
	assert.Equal(t, models.NotifyTransactionUpdate, notif.Type)
}

func TestOpen_AfterCancelAllowed(t *testing.T) {
	db := setupTxnDB(t)
	svc := newService(db)
	seller := seedUser(t, db, "Sal")
	buyer := seedUser(t, db, "Bea")
	other := seedUser(t, db, "Ollie")
	listing := seedListing(t, db, seller)

	txn := openTxn(t, svc, buyer, listing)
	_, err := svc.Cancel(context.Background(), buyer.UserID, txn.TransactionID, "changed my mind")
	require.NoError(t, err)

	second, err := svc.Open(context.Background(), other, OpenInput{ListingID: listing.ListingID})
	require.NoError(t, err)
	assert.Equal(t, models.TxPending, second.Status)
}

func TestStateMachine_HappyPathAndIllegalMoves(t *testing.T) {
	db := setupTxnDB(t)
	svc := newService(db)
	seller := seedUser(t, db, "Sal")
	buyer := seedUser(t, db, "Bea")
	listing := seedListing(t, db, seller)
	txn := openTxn(t, svc, buyer, listing)

	// Complete before the meetup is scheduled: illegal.
	_, err := svc.Complete(context.Background(), buyer.UserID, txn.TransactionID)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeInvalidState))

	// Buyer cannot confirm.
	_, err = svc.Confirm(context.Background(), buyer.UserID, txn.TransactionID)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeForbidden))

	confirmed, err := svc.Confirm(context.Background(), seller.UserID, txn.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, models.TxConfirmed, confirmed.Status)

	when := time.Now().Add(48 * time.Hour)
	scheduled, err := svc.ScheduleMeetup(context.Background(), buyer.UserID, txn.TransactionID, MeetupInput{
		Location: "Student union", Time: &when, Notes: "north entrance",
	})
	require.NoError(t, err)
	assert.Equal(t, models.TxMeetupScheduled, scheduled.Status)
	assert.Equal(t, "Student union", scheduled.MeetingLocation)

	done, err := svc.Complete(context.Background(), seller.UserID, txn.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, models.TxCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)

	// Terminal: no further moves.
	_, err = svc.Cancel(context.Background(), buyer.UserID, txn.TransactionID, "too late")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeInvalidState))
}

func TestCancelAndDispute(t *testing.T) {
	db := setupTxnDB(t)
	svc := newService(db)
	seller := seedUser(t, db, "Sal")
	buyer := seedUser(t, db, "Bea")
	stranger := seedUser(t, db, "Eve")

	txn := openTxn(t, svc, buyer, seedListing(t, db, seller))
	_, err := svc.Cancel(context.Background(), stranger.UserID, txn.TransactionID, "nope")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeForbidden))

	cancelled, err := svc.Cancel(context.Background(), buyer.UserID, txn.TransactionID, "found cheaper")
	require.NoError(t, err)
	assert.Equal(t, models.TxCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, "found cheaper", cancelled.CancellationReason)

	txn2 := openTxn(t, svc, buyer, seedListing(t, db, seller))
	_, err = svc.Dispute(context.Background(), buyer.UserID, txn2.TransactionID, "")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeValidation))

	disputed, err := svc.Dispute(context.Background(), buyer.UserID, txn2.TransactionID, "item not as described")
	require.NoError(t, err)
	assert.Equal(t, models.TxDisputed, disputed.Status)
	assert.Equal(t, "item not as described", disputed.DisputeReason)
}

func TestListMine_RoleAndStatusFilters(t *testing.T) {
	db := setupTxnDB(t)
	svc := newService(db)
	seller := seedUser(t, db, "Sal")
	buyer := seedUser(t, db, "Bea")

	openTxn(t, svc, buyer, seedListing(t, db, seller))
	second := openTxn(t, svc, buyer, seedListing(t, db, seller))
	_, err := svc.Cancel(context.Background(), buyer.UserID, second.TransactionID, "")
	require.NoError(t, err)

	page := pagination.Params{Page: 1, Limit: 20}

	items, meta, err := svc.ListMine(context.Background(), buyer.UserID, "buyer", "", page)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, int64(2), meta.Total)

	items, _, err = svc.ListMine(context.Background(), seller.UserID, "seller", models.TxPending, page)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	items, _, err = svc.ListMine(context.Background(), buyer.UserID, "seller", "", page)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSubmitReview_Guards(t *testing.T) {
	db := setupTxnDB(t)
	svc := newService(db)
	seller := seedUser(t, db, "Sal")
	buyer := seedUser(t, db, "Bea")
	stranger := seedUser(t, db, "Eve")
	txn := openTxn(t, svc, buyer, seedListing(t, db, seller))

	// Not completed yet.
	_, err := svc.SubmitReview(context.Background(), buyer.UserID, txn.TransactionID, ReviewInput{Rating: 5})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeInvalidState))

	completeTxn(t, svc, txn)

	_, err = svc.SubmitReview(context.Background(), stranger.UserID, txn.TransactionID, ReviewInput{Rating: 5})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeForbidden))

	_, err = svc.SubmitReview(context.Background(), buyer.UserID, txn.TransactionID, ReviewInput{Rating: 0})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeValidation))

	review, err := svc.SubmitReview(context.Background(), buyer.UserID, txn.TransactionID, ReviewInput{
		Rating: 4, ReviewText: "smooth handoff",
		Categories: models.ReviewCategories{Communication: 5},
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReviewBuyerToSeller, review.ReviewType)
	assert.Equal(t, seller.UserID, review.RevieweeID)

	// One review per (transaction, reviewer).
	_, err = svc.SubmitReview(context.Background(), buyer.UserID, txn.TransactionID, ReviewInput{Rating: 1})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeConflict))

	// The counterpart can still leave theirs.
	other, err := svc.SubmitReview(context.Background(), seller.UserID, txn.TransactionID, ReviewInput{Rating: 5})
	require.NoError(t, err)
	assert.Equal(t, models.ReviewSellerToBuyer, other.ReviewType)
	assert.Equal(t, buyer.UserID, other.RevieweeID)

	// Reviewee got notified.
	var notif models.Notification
	require.NoError(t, db.Where("user_id = ? AND type = ?", seller.UserID, models.NotifyReviewReceived).First(&notif).Error)
}

func TestSubmitReview_ReputationIsMeanOfAllRatings(t *testing.T) {
	db := setupTxnDB(t)
	svc := newService(db)
	seller := seedUser(t, db, "Sal")
	buyerA := seedUser(t, db, "Ann")
	buyerB := seedUser(t, db, "Ben")
	buyerC := seedUser(t, db, "Cid")

	for _, tc := range []struct {
		buyer  *models.User
		rating int
	}{
		{buyerA, 5}, {buyerB, 4}, {buyerC, 3},
	} {
		txn := openTxn(t, svc, tc.buyer, seedListing(t, db, seller))
		completeTxn(t, svc, txn)
		_, err := svc.SubmitReview(context.Background(), tc.buyer.UserID, txn.TransactionID, ReviewInput{Rating: tc.rating})
		require.NoError(t, err)
	}

	var fresh models.User
	require.NoError(t, db.Where("user_id = ?", seller.UserID).First(&fresh).Error)
	assert.Equal(t, 4.0, fresh.ReputationScore)
}

func TestSubmitReview_ReputationRounding(t *testing.T) {
	db := setupTxnDB(t)
	svc := newService(db)
	seller := seedUser(t, db, "Sal")
	buyerA := seedUser(t, db, "Ann")
	buyerB := seedUser(t, db, "Ben")
	buyerC := seedUser(t, db, "Cid")

	for _, tc := range []struct {
		buyer  *models.User
		rating int
	}{
		{buyerA, 5}, {buyerB, 5}, {buyerC, 4},
	} {
		txn := openTxn(t, svc, tc.buyer, seedListing(t, db, seller))
		completeTxn(t, svc, txn)
		_, err := svc.SubmitReview(context.Background(), tc.buyer.UserID, txn.TransactionID, ReviewInput{Rating: tc.rating})
		require.NoError(t, err)
	}

	// 14/3 = 4.666... rounds to 4.67.
	var fresh models.User
	require.NoError(t, db.Where("user_id = ?", seller.UserID).First(&fresh).Error)
	assert.Equal(t, 4.67, fresh.ReputationScore)
}

func TestGet_ParticipantOnly(t *testing.T) {
	db := setupTxnDB(t)
	svc := newService(db)
	seller := seedUser(t, db, "Sal")
	buyer := seedUser(t, db, "Bea")
	stranger := seedUser(t, db, "Eve")
	txn := openTxn(t, svc, buyer, seedListing(t, db, seller))

	got, err := svc.Get(context.Background(), buyer.UserID, txn.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, txn.TransactionID, got.TransactionID)

	_, err = svc.Get(context.Background(), stranger.UserID, txn.TransactionID)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeForbidden))

	_, err = svc.Get(context.Background(), buyer.UserID, uuid.New())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}
