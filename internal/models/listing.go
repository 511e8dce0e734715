package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Listing statuses (Express listingModel.js status enum).
const (
	ListingDraft   = "draft"
	ListingActive  = "active"
	ListingPending = "pending"
	ListingSold    = "sold"
	ListingExpired = "expired"
	ListingDeleted = "deleted"
)

// ListingCategories is the closed category enum.
var ListingCategories = []string{
	"Textbooks",
	"Electronics",
	"Furniture",
	"Clothing",
	"Kitchen & Appliances",
	"Sports & Outdoors",
	"School Supplies",
	"Decor",
	"Other",
}

// ListingConditions is the closed condition enum.
var ListingConditions = []string{"New", "Like New", "Good", "Fair", "Poor"}

// Listing bounds from the Express schema.
const (
	TitleMinLen       = 5
	TitleMaxLen       = 200
	DescriptionMinLen = 10
	DescriptionMaxLen = 2000
	PriceCap          = 10000
	MaxListingImages  = 5
	ViewsHistoryDays  = 30
	DefaultListingDays = 30
)

// ListingImage is one entry of the images JSON column.
type ListingImage struct {
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	DisplayOrder int    `json:"display_order"`
}

// Listing matches the Express Listing model (models/Listing.js).
type Listing struct {
	ListingID      uuid.UUID      `gorm:"column:listing_id;type:uuid;primaryKey" json:"listing_id"`
	SellerID       uuid.UUID      `gorm:"column:seller_id;type:uuid;not null;index:idx_listings_seller_status" json:"seller_id"`
	UniversityID   uuid.UUID      `gorm:"column:university_id;type:uuid;not null;index:idx_listings_university_status" json:"university_id"`
	Title          string         `gorm:"column:title;not null" json:"title"`
	Description    string         `gorm:"column:description;not null" json:"description"`
	Category       string         `gorm:"column:category;not null;index" json:"category"`
	Condition      string         `gorm:"column:condition;not null" json:"condition"`
	Price          float64        `gorm:"column:price;not null" json:"price"`
	OriginalPrice  *float64       `gorm:"column:original_price" json:"original_price"`
	IsNegotiable   bool           `gorm:"column:is_negotiable;not null" json:"is_negotiable"`
	Images         datatypes.JSON `gorm:"column:images" json:"images"`
	Status         string         `gorm:"column:status;type:varchar(20);not null;index:idx_listings_seller_status,priority:2;index:idx_listings_university_status,priority:2" json:"status"`
	Views          int            `gorm:"column:views;not null" json:"views"`
	LocationPickup string         `gorm:"column:location_pickup" json:"location_pickup"`
	Tags           datatypes.JSON `gorm:"column:tags" json:"tags"`
	AvailableFrom  time.Time      `gorm:"column:available_from;not null" json:"available_from"`
	AvailableUntil time.Time      `gorm:"column:available_until;not null" json:"available_until"`
	SoldAt         *time.Time     `gorm:"column:sold_at" json:"sold_at"`
	SoldTo         *uuid.UUID     `gorm:"column:sold_to;type:uuid" json:"sold_to"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Listing) TableName() string {
	return "Listings"
}

func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.ListingID == uuid.Nil {
		l.ListingID = uuid.New()
	}
	return nil
}

// IsExpired reports whether an active listing has passed its availability window.
func (l *Listing) IsExpired(now time.Time) bool {
	return l.Status == ListingActive && l.AvailableUntil.Before(now)
}

// CorrectExpiry applies the lazy expiry rule (Express pre-save hook, made
// explicit): an active listing past its window becomes expired. Returns true
// when the status changed; the caller persists it.
func (l *Listing) CorrectExpiry(now time.Time) bool {
	if l.IsExpired(now) {
		l.Status = ListingExpired
		return true
	}
	return false
}

// Terminal reports whether the listing can no longer change hands.
func (l *Listing) Terminal() bool {
	return l.Status == ListingSold || l.Status == ListingDeleted
}

// ListingView is one calendar-day bucket of a listing's rolling view history
// (Express viewsHistory array, normalized so the increment is atomic).
type ListingView struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	ListingID uuid.UUID `gorm:"column:listing_id;type:uuid;not null;uniqueIndex:idx_listing_views_day" json:"listing_id"`
	ViewDate  string    `gorm:"column:view_date;type:varchar(10);not null;uniqueIndex:idx_listing_views_day,priority:2" json:"view_date"`
	Count     int       `gorm:"column:count;not null" json:"count"`
}

func (ListingView) TableName() string {
	return "ListingViews"
}

// DayKey truncates a time to its calendar day (midnight) bucket key.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
