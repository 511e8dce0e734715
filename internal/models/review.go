package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Review types (Express reviewModel.js reviewType enum).
const (
	ReviewBuyerToSeller = "buyer_to_seller"
	ReviewSellerToBuyer = "seller_to_buyer"
)

// ReviewTextMaxLen bounds the optional free text.
const ReviewTextMaxLen = 500

// ReviewCategories holds optional 1-5 sub-ratings (Express categories object).
type ReviewCategories struct {
	Communication int `json:"communication,omitempty"`
	Accuracy      int `json:"accuracy,omitempty"`
	Reliability   int `json:"reliability,omitempty"`
}

// Review matches the Express Review model (models/Review.js). The unique
// index on (transaction_id, reviewer_id) enforces one review per participant
// per transaction at the store level.
type Review struct {
	ReviewID      uuid.UUID      `gorm:"column:review_id;type:uuid;primaryKey" json:"review_id"`
	TransactionID uuid.UUID      `gorm:"column:transaction_id;type:uuid;not null;uniqueIndex:idx_reviews_transaction_reviewer" json:"transaction_id"`
	ReviewerID    uuid.UUID      `gorm:"column:reviewer_id;type:uuid;not null;uniqueIndex:idx_reviews_transaction_reviewer,priority:2" json:"reviewer_id"`
	RevieweeID    uuid.UUID      `gorm:"column:reviewee_id;type:uuid;not null;index" json:"reviewee_id"`
	ListingID     uuid.UUID      `gorm:"column:listing_id;type:uuid;not null;index" json:"listing_id"`
	Rating        int            `gorm:"column:rating;not null" json:"rating"`
	ReviewText    string         `gorm:"column:review_text" json:"review_text"`
	ReviewType    string         `gorm:"column:review_type;not null" json:"review_type"`
	Categories    datatypes.JSON `gorm:"column:categories" json:"categories"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

func (Review) TableName() string {
	return "Reviews"
}

func (r *Review) BeforeCreate(tx *gorm.DB) error {
	if r.ReviewID == uuid.Nil {
		r.ReviewID = uuid.New()
	}
	return nil
}
