package transactions

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/sailakshmi-0987/Campus-recycle/internal/models"
	"github.com/sailakshmi-0987/Campus-recycle/internal/notifications"
	"github.com/sailakshmi-0987/Campus-recycle/internal/pkg/apperr"
	"github.com/sailakshmi-0987/Campus-recycle/internal/pkg/pagination"
)

// Service drives the transaction state machine and the review/reputation
// pipeline that hangs off completed transactions.
type Service struct {
	DB       *gorm.DB
	Notifier notifications.Notifier
}

type OpenInput struct {
	ListingID     uuid.UUID `json:"listing_id"`
	FinalPrice    *float64  `json:"final_price"`
	PaymentMethod string    `json:"payment_method"`
}

// Open starts a pending transaction between the buyer and the listing's
// seller. One in-flight (non-terminal) transaction per listing: a second open
// while the first is unresolved is a conflict.
func (s *Service) Open(ctx context.Context, buyer *models.User, in OpenInput) (*models.Transaction, error) {
	var listing models.Listing
	if err := s.DB.WithContext(ctx).Where("listing_id = ?", in.ListingID).First(&listing).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("Listing")
		}
		return nil, apperr.Internal("failed to load listing", err)
	}
	if listing.SellerID == buyer.UserID {
		return nil, apperr.Validation("You cannot buy your own listing", nil)
	}
	if listing.Terminal() {
		return nil, apperr.InvalidState(fmt.Sprintf("Listing is %s and cannot be purchased", listing.Status))
	}

	price := listing.Price
	if in.FinalPrice != nil {
		price = *in.FinalPrice
	}
	if price < 0 {
		return nil, apperr.Validation("Final price must be positive", nil)
	}
	method := in.PaymentMethod
	if method == "" {
		method = models.PaymentCash
	}
	if !validPayment(method) {
		return nil, apperr.Validation("Invalid payment method", nil)
	}

	var inflight int64
	err := s.DB.WithContext(ctx).Model(&models.Transaction{}).
		Where("listing_id = ? AND status IN ?", listing.ListingID,
			[]string{models.TxPending, models.TxConfirmed, models.TxMeetupScheduled}).
		Count(&inflight).Error
	if err != nil {
		return nil, apperr.Internal("failed to check existing transactions", err)
	}
	if inflight > 0 {
		return nil, apperr.Conflict("This listing already has a transaction in progress")
	}

	txn := &models.Transaction{
		ListingID:     listing.ListingID,
		BuyerID:       buyer.UserID,
		SellerID:      listing.SellerID,
		Status:        models.TxPending,
		FinalPrice:    price,
		PaymentMethod: method,
	}
	if err := s.DB.WithContext(ctx).Create(txn).Error; err != nil {
		return nil, apperr.Internal("failed to create transaction", err)
	}

	s.notifyUpdate(ctx, txn, listing.SellerID, buyer.UserID,
		"New purchase request",
		fmt.Sprintf("%s %s wants to buy \"%s\"", buyer.FirstName, buyer.LastName, listing.Title))
	return txn, nil
}

// Get returns one transaction to a participant.
func (s *Service) Get(ctx context.Context, userID, txnID uuid.UUID) (*models.Transaction, error) {
	txn, err := s.load(ctx, txnID)
	if err != nil {
		return nil, err
	}
	if !txn.Participant(userID) {
		return nil, apperr.Forbidden("Not authorized to view this transaction")
	}
	return txn, nil
}

// ListMine returns the user's transactions, optionally filtered by role
// (buyer/seller) and status, newest first.
func (s *Service) ListMine(ctx context.Context, userID uuid.UUID, role, status string, page pagination.Params) ([]models.Transaction, pagination.Meta, error) {
	db := s.DB.WithContext(ctx).Model(&models.Transaction{})
	switch role {
	case "buyer":
		db = db.Where("buyer_id = ?", userID)
	case "seller":
		db = db.Where("seller_id = ?", userID)
	default:
		db = db.Where("buyer_id = ? OR seller_id = ?", userID, userID)
	}
	if status != "" {
		db = db.Where("status = ?", status)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, pagination.Meta{}, apperr.Internal("failed to count transactions", err)
	}
	var out []models.Transaction
	err := db.Order("created_at DESC").Limit(page.Limit).Offset(page.Offset()).Find(&out).Error
	if err != nil {
		return nil, pagination.Meta{}, apperr.Internal("failed to fetch transactions", err)
	}
	return out, page.MetaFor(total), nil
}

// Confirm moves pending -> confirmed. Seller only.
func (s *Service) Confirm(ctx context.Context, userID, txnID uuid.UUID) (*models.Transaction, error) {
	txn, err := s.load(ctx, txnID)
	if err != nil {
		return nil, err
	}
	if txn.SellerID != userID {
		return nil, apperr.Forbidden("Only the seller can confirm a transaction")
	}
	if err := s.transition(ctx, txn, models.TxConfirmed, nil); err != nil {
		return nil, err
	}
	s.notifyUpdate(ctx, txn, txn.BuyerID, txn.SellerID,
		"Purchase confirmed", "The seller confirmed your purchase request")
	return txn, nil
}

type MeetupInput struct {
	Location string     `json:"location"`
	Time     *time.Time `json:"time"`
	Notes    string     `json:"notes"`
}

// ScheduleMeetup moves confirmed -> meetup_scheduled and stores the meeting
// details. Either participant can schedule.
func (s *Service) ScheduleMeetup(ctx context.Context, userID, txnID uuid.UUID, in MeetupInput) (*models.Transaction, error) {
	txn, err := s.load(ctx, txnID)
	if err != nil {
		return nil, err
	}
	if !txn.Participant(userID) {
		return nil, apperr.Forbidden("Not authorized to update this transaction")
	}
	if strings.TrimSpace(in.Location) == "" || in.Time == nil {
		return nil, apperr.Validation("Meeting location and time are required", nil)
	}
	extra := map[string]interface{}{
		"meeting_location": strings.TrimSpace(in.Location),
		"meeting_time":     in.Time,
		"meeting_notes":    in.Notes,
	}
	if err := s.transition(ctx, txn, models.TxMeetupScheduled, extra); err != nil {
		return nil, err
	}
	txn.MeetingLocation = strings.TrimSpace(in.Location)
	txn.MeetingTime = in.Time
	txn.MeetingNotes = in.Notes

	s.notifyUpdate(ctx, txn, txn.OtherParty(userID), userID,
		"Meetup scheduled",
		fmt.Sprintf("Meetup set for %s at %s", in.Time.Format("Jan 2 3:04 PM"), txn.MeetingLocation))
	return txn, nil
}

// Complete moves meetup_scheduled -> completed and stamps completedAt.
func (s *Service) Complete(ctx context.Context, userID, txnID uuid.UUID) (*models.Transaction, error) {
	txn, err := s.load(ctx, txnID)
	if err != nil {
		return nil, err
	}
	if !txn.Participant(userID) {
		return nil, apperr.Forbidden("Not authorized to update this transaction")
	}
	now := time.Now()
	if err := s.transition(ctx, txn, models.TxCompleted, map[string]interface{}{"completed_at": now}); err != nil {
		return nil, err
	}
	txn.CompletedAt = &now

	s.notifyUpdate(ctx, txn, txn.OtherParty(userID), userID,
		"Transaction completed", "The transaction was marked as completed. You can now leave a review.")
	return txn, nil
}

// Cancel terminates from any non-terminal state, recording the reason.
func (s *Service) Cancel(ctx context.Context, userID, txnID uuid.UUID, reason string) (*models.Transaction, error) {
	txn, err := s.load(ctx, txnID)
	if err != nil {
		return nil, err
	}
	if !txn.Participant(userID) {
		return nil, apperr.Forbidden("Not authorized to update this transaction")
	}
	now := time.Now()
	extra := map[string]interface{}{
		"cancelled_at":        now,
		"cancellation_reason": reason,
	}
	if err := s.transition(ctx, txn, models.TxCancelled, extra); err != nil {
		return nil, err
	}
	txn.CancelledAt = &now
	txn.CancellationReason = reason

	s.notifyUpdate(ctx, txn, txn.OtherParty(userID), userID,
		"Transaction cancelled", "The other party cancelled the transaction")
	return txn, nil
}

// Dispute terminates from any non-terminal state. A reason is required.
func (s *Service) Dispute(ctx context.Context, userID, txnID uuid.UUID, reason string) (*models.Transaction, error) {
	txn, err := s.load(ctx, txnID)
	if err != nil {
		return nil, err
	}
	if !txn.Participant(userID) {
		return nil, apperr.Forbidden("Not authorized to update this transaction")
	}
	if strings.TrimSpace(reason) == "" {
		return nil, apperr.Validation("A dispute reason is required", nil)
	}
	if err := s.transition(ctx, txn, models.TxDisputed, map[string]interface{}{"dispute_reason": reason}); err != nil {
		return nil, err
	}
	txn.DisputeReason = reason

	s.notifyUpdate(ctx, txn, txn.OtherParty(userID), userID,
		"Transaction disputed", "The other party opened a dispute on the transaction")
	return txn, nil
}

type ReviewInput struct {
	Rating     int                     `json:"rating"`
	ReviewText string                  `json:"review_text"`
	Categories models.ReviewCategories `json:"categories"`
}

// SubmitReview records one review per (transaction, reviewer) and recomputes
// the reviewee's reputation in the same database transaction. The recompute
// is a full mean over every rating the reviewee has received, so it is
// order-independent; the unique index is the final arbiter against
// double-submission races.
func (s *Service) SubmitReview(ctx context.Context, reviewerID, txnID uuid.UUID, in ReviewInput) (*models.Review, error) {
	txn, err := s.load(ctx, txnID)
	if err != nil {
		return nil, err
	}
	if !txn.Participant(reviewerID) {
		return nil, apperr.Forbidden("Only transaction participants can leave a review")
	}
	if txn.Status != models.TxCompleted {
		return nil, apperr.InvalidState("Reviews can only be left on completed transactions")
	}
	if in.Rating < 1 || in.Rating > 5 {
		return nil, apperr.Validation("Rating must be between 1 and 5", nil)
	}
	if len(in.ReviewText) > models.ReviewTextMaxLen {
		return nil, apperr.Validation(fmt.Sprintf("Review text must be at most %d characters", models.ReviewTextMaxLen), nil)
	}
	for _, v := range []int{in.Categories.Communication, in.Categories.Accuracy, in.Categories.Reliability} {
		if v != 0 && (v < 1 || v > 5) {
			return nil, apperr.Validation("Category ratings must be between 1 and 5", nil)
		}
	}

	revieweeID := txn.SellerID
	reviewType := models.ReviewBuyerToSeller
	if reviewerID == txn.SellerID {
		revieweeID = txn.BuyerID
		reviewType = models.ReviewSellerToBuyer
	}

	review := &models.Review{
		TransactionID: txn.TransactionID,
		ListingID:     txn.ListingID,
		ReviewerID:    reviewerID,
		RevieweeID:    revieweeID,
		Rating:        in.Rating,
		ReviewText:    strings.TrimSpace(in.ReviewText),
		ReviewType:    reviewType,
		Categories:    encodeCategories(in.Categories),
	}

	db := s.DB.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			db.Rollback()
		}
	}()

	var existing int64
	if err := db.Model(&models.Review{}).
		Where("transaction_id = ? AND reviewer_id = ?", txn.TransactionID, reviewerID).
		Count(&existing).Error; err != nil {
		db.Rollback()
		return nil, apperr.Internal("failed to check existing review", err)
	}
	if existing > 0 {
		db.Rollback()
		return nil, apperr.Conflict("You have already reviewed this transaction")
	}
	if err := db.Create(review).Error; err != nil {
		db.Rollback()
		if err == gorm.ErrDuplicatedKey || strings.Contains(err.Error(), "UNIQUE") {
			return nil, apperr.Conflict("You have already reviewed this transaction")
		}
		return nil, apperr.Internal("failed to create review", err)
	}
	if err := recomputeReputation(db, revieweeID); err != nil {
		db.Rollback()
		return nil, err
	}
	if err := db.Commit().Error; err != nil {
		return nil, apperr.Internal("failed to save review", err)
	}

	if s.Notifier != nil {
		s.Notifier.Notify(ctx, notifications.Input{
			UserID:               revieweeID,
			Type:                 models.NotifyReviewReceived,
			Title:                "New review received",
			Message:              fmt.Sprintf("You received a %d-star review", in.Rating),
			RelatedUserID:        &reviewerID,
			RelatedTransactionID: &txn.TransactionID,
			ActionURL:            fmt.Sprintf("/transactions/%s", txn.TransactionID),
		})
	}
	return review, nil
}

// recomputeReputation sets the reviewee's score to the mean of all their
// ratings, rounded to 2 decimal places. No reviews leaves the default 5.0.
func recomputeReputation(db *gorm.DB, revieweeID uuid.UUID) error {
	var ratings []int
	if err := db.Model(&models.Review{}).
		Where("reviewee_id = ?", revieweeID).
		Pluck("rating", &ratings).Error; err != nil {
		return apperr.Internal("failed to load ratings", err)
	}
	score := models.DefaultReputation
	if len(ratings) > 0 {
		sum := 0
		for _, r := range ratings {
			sum += r
		}
		score = math.Round(float64(sum)/float64(len(ratings))*100) / 100
	}
	err := db.Model(&models.User{}).Where("user_id = ?", revieweeID).
		UpdateColumn("reputation_score", score).Error
	if err != nil {
		return apperr.Internal("failed to update reputation", err)
	}
	return nil
}

// load fetches one transaction or a typed not-found.
func (s *Service) load(ctx context.Context, txnID uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	if err := s.DB.WithContext(ctx).Where("transaction_id = ?", txnID).First(&txn).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("Transaction")
		}
		return nil, apperr.Internal("failed to load transaction", err)
	}
	return &txn, nil
}

// transition applies one state-machine move plus any extra columns in a
// single update. Guarded updates keep a lost race from double-applying.
func (s *Service) transition(ctx context.Context, txn *models.Transaction, to string, extra map[string]interface{}) error {
	if !txn.CanTransition(to) {
		return apperr.InvalidState(fmt.Sprintf("Cannot move transaction from %s to %s", txn.Status, to))
	}
	updates := map[string]interface{}{"status": to}
	for k, v := range extra {
		updates[k] = v
	}
	res := s.DB.WithContext(ctx).Model(&models.Transaction{}).
		Where("transaction_id = ? AND status = ?", txn.TransactionID, txn.Status).
		Updates(updates)
	if res.Error != nil {
		return apperr.Internal("failed to update transaction", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.InvalidState("Transaction was updated concurrently, please retry")
	}
	txn.Status = to
	return nil
}

func (s *Service) notifyUpdate(ctx context.Context, txn *models.Transaction, to, from uuid.UUID, title, message string) {
	if s.Notifier == nil {
		return
	}
	s.Notifier.Notify(ctx, notifications.Input{
		UserID:               to,
		Type:                 models.NotifyTransactionUpdate,
		Title:                title,
		Message:              message,
		RelatedListingID:     &txn.ListingID,
		RelatedUserID:        &from,
		RelatedTransactionID: &txn.TransactionID,
		ActionURL:            fmt.Sprintf("/transactions/%s", txn.TransactionID),
	})
}

func validPayment(method string) bool {
	for _, m := range models.PaymentMethods {
		if m == method {
			return true
		}
	}
	return false
}

func encodeCategories(categories models.ReviewCategories) datatypes.JSON {
	b, _ := json.Marshal(categories)
	return datatypes.JSON(b)
}
