package listings

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sailakshmi-0987/Campus-recycle/internal/models"
	"github.com/sailakshmi-0987/Campus-recycle/internal/notifications"
	"github.com/sailakshmi-0987/Campus-recycle/internal/pkg/apperr"
	"github.com/sailakshmi-0987/Campus-recycle/internal/pkg/pagination"
)

// Service owns the listing lifecycle: creation, edits, view counting, lazy
// expiry correction and the sold/deleted terminal states.
type Service struct {
	DB       *gorm.DB
	Notifier notifications.Notifier
}

type CreateListingInput struct {
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Category       string     `json:"category"`
	Condition      string     `json:"condition"`
	Price          float64    `json:"price"`
	OriginalPrice  *float64   `json:"original_price"`
	IsNegotiable   *bool      `json:"is_negotiable"`
	LocationPickup string     `json:"location_pickup"`
	Tags           []string   `json:"tags"`
	AvailableFrom  *time.Time `json:"available_from"`
	AvailableUntil *time.Time `json:"available_until"`
}

// Create opens a new active listing for the seller. The availability window
// defaults to [now, now+30d). Seller totalListings and university
// activeListings counters move in the same transaction.
func (s *Service) Create(ctx context.Context, seller *models.User, in CreateListingInput) (*models.Listing, error) {
	if err := validateFields(in.Title, in.Description, in.Category, in.Condition, in.Price, in.OriginalPrice); err != nil {
		return nil, err
	}

	now := time.Now()
	from := now
	if in.AvailableFrom != nil {
		from = *in.AvailableFrom
	}
	until := from.Add(models.DefaultListingDays * 24 * time.Hour)
	if in.AvailableUntil != nil {
		until = *in.AvailableUntil
	}
	if !until.After(from) {
		return nil, apperr.Validation("Invalid availability window", map[string]string{
			"available_until": "must be after available_from",
		})
	}

	negotiable := true
	if in.IsNegotiable != nil {
		negotiable = *in.IsNegotiable
	}

	listing := &models.Listing{
		SellerID:       seller.UserID,
		UniversityID:   seller.UniversityID,
		Title:          strings.TrimSpace(in.Title),
		Description:    strings.TrimSpace(in.Description),
		Category:       in.Category,
		Condition:      in.Condition,
		Price:          in.Price,
		OriginalPrice:  in.OriginalPrice,
		IsNegotiable:   negotiable,
		Images:         datatypes.JSON([]byte("[]")),
		Status:         models.ListingActive,
		LocationPickup: in.LocationPickup,
		Tags:           encodeTags(in.Tags),
		AvailableFrom:  from,
		AvailableUntil: until,
	}

	tx := s.DB.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()
	if err := tx.Create(listing).Error; err != nil {
		tx.Rollback()
		return nil, apperr.Internal("failed to create listing", err)
	}
	if err := tx.Model(&models.User{}).Where("user_id = ?", seller.UserID).
		UpdateColumn("total_listings", gorm.Expr("total_listings + 1")).Error; err != nil {
		tx.Rollback()
		return nil, apperr.Internal("failed to update seller counters", err)
	}
	if err := tx.Model(&models.University{}).Where("university_id = ?", seller.UniversityID).
		UpdateColumn("active_listings", gorm.Expr("active_listings + 1")).Error; err != nil {
		tx.Rollback()
		return nil, apperr.Internal("failed to update university counters", err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, apperr.Internal("failed to create listing", err)
	}
	return listing, nil
}

// ListQuery mirrors the Express GET /api/listings filters.
type ListQuery struct {
	UniversityID *uuid.UUID
	Category     string
	Condition    string
	MinPrice     *float64
	MaxPrice     *float64
	Search       string
	Status       string
	Sort         string
	Page         pagination.Params
}

// List returns filtered listings plus pagination metadata.
func (s *Service) List(ctx context.Context, q ListQuery) ([]models.Listing, pagination.Meta, error) {
	status := q.Status
	if status == "" {
		status = models.ListingActive
	}
	db := s.DB.WithContext(ctx).Model(&models.Listing{}).Where("status = ?", status)
	if q.UniversityID != nil {
		db = db.Where("university_id = ?", *q.UniversityID)
	}
	if q.Category != "" {
		db = db.Where("category = ?", q.Category)
	}
	if q.Condition != "" {
		db = db.Where("condition = ?", q.Condition)
	}
	if q.MinPrice != nil {
		db = db.Where("price >= ?", *q.MinPrice)
	}
	if q.MaxPrice != nil {
		db = db.Where("price <= ?", *q.MaxPrice)
	}
	if q.Search != "" {
		like := "%" + strings.ToLower(q.Search) + "%"
		db = db.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, pagination.Meta{}, apperr.Internal("failed to count listings", err)
	}

	var out []models.Listing
	err := db.Order(sortClause(q.Sort)).
		Limit(q.Page.Limit).Offset(q.Page.Offset()).
		Find(&out).Error
	if err != nil {
		return nil, pagination.Meta{}, apperr.Internal("failed to fetch listings", err)
	}
	return out, q.Page.MetaFor(total), nil
}

// sortClause whitelists the sort keys the Express API accepted.
func sortClause(sort string) string {
	switch sort {
	case "price":
		return "price ASC"
	case "-price":
		return "price DESC"
	case "-views":
		return "views DESC"
	case "createdAt":
		return "created_at ASC"
	default:
		return "created_at DESC"
	}
}

// Detail is a listing plus its seller's public profile.
type Detail struct {
	Listing models.Listing    `json:"listing"`
	Seller  models.PublicUser `json:"seller"`
}

// Get loads one listing, applies lazy expiry correction, and records a view
// unless the viewer is the seller (nil viewer = anonymous, always counted).
func (s *Service) Get(ctx context.Context, listingID uuid.UUID, viewerID *uuid.UUID) (*Detail, error) {
	var listing models.Listing
	if err := s.DB.WithContext(ctx).Where("listing_id = ?", listingID).First(&listing).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("Listing")
		}
		return nil, apperr.Internal("failed to load listing", err)
	}

	if err := s.correctExpiry(ctx, &listing); err != nil {
		return nil, err
	}

	if viewerID == nil || *viewerID != listing.SellerID {
		if err := s.recordView(ctx, &listing); err != nil {
			return nil, err
		}
	}

	var seller models.User
	if err := s.DB.WithContext(ctx).Where("user_id = ?", listing.SellerID).First(&seller).Error; err != nil {
		return nil, apperr.Internal("failed to load seller", err)
	}
	return &Detail{Listing: listing, Seller: seller.Public()}, nil
}

// correctExpiry persists the active->expired fix when the availability window
// has passed. This is the sole expiry mechanism; there is no background sweep.
func (s *Service) correctExpiry(ctx context.Context, listing *models.Listing) error {
	if !listing.CorrectExpiry(time.Now()) {
		return nil
	}
	err := s.DB.WithContext(ctx).Model(&models.Listing{}).
		Where("listing_id = ?", listing.ListingID).
		UpdateColumn("status", models.ListingExpired).Error
	if err != nil {
		return apperr.Internal("failed to expire listing", err)
	}
	return nil
}

// recordView bumps the total counter and today's history bucket. Both writes
// are atomic increments, never read-modify-write, so concurrent viewers
// cannot lose updates. History keeps at most 30 day-buckets, oldest evicted.
func (s *Service) recordView(ctx context.Context, listing *models.Listing) error {
	db := s.DB.WithContext(ctx)
	if err := db.Model(&models.Listing{}).Where("listing_id = ?", listing.ListingID).
		UpdateColumn("views", gorm.Expr("views + 1")).Error; err != nil {
		return apperr.Internal("failed to record view", err)
	}
	listing.Views++

	today := models.DayKey(time.Now())
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "listing_id"}, {Name: "view_date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("count + 1")}),
	}).Create(&models.ListingView{ListingID: listing.ListingID, ViewDate: today, Count: 1}).Error
	if err != nil {
		return apperr.Internal("failed to record view history", err)
	}

	// Evict day-buckets beyond the rolling window (FIFO by day).
	var dayCount int64
	if err := db.Model(&models.ListingView{}).Where("listing_id = ?", listing.ListingID).Count(&dayCount).Error; err != nil {
		return apperr.Internal("failed to trim view history", err)
	}
	if dayCount > models.ViewsHistoryDays {
		var oldest []models.ListingView
		if err := db.Where("listing_id = ?", listing.ListingID).
			Order("view_date ASC").
			Limit(int(dayCount) - models.ViewsHistoryDays).
			Find(&oldest).Error; err != nil {
			return apperr.Internal("failed to trim view history", err)
		}
		ids := make([]uint, len(oldest))
		for i, v := range oldest {
			ids[i] = v.ID
		}
		if err := db.Where("id IN ?", ids).Delete(&models.ListingView{}).Error; err != nil {
			return apperr.Internal("failed to trim view history", err)
		}
	}
	return nil
}

// ViewsHistory returns the rolling per-day view buckets, oldest first.
func (s *Service) ViewsHistory(ctx context.Context, listingID uuid.UUID) ([]models.ListingView, error) {
	var out []models.ListingView
	err := s.DB.WithContext(ctx).Where("listing_id = ?", listingID).
		Order("view_date ASC").Find(&out).Error
	if err != nil {
		return nil, apperr.Internal("failed to fetch view history", err)
	}
	return out, nil
}

// UpdateListingInput carries only the editable fields. Protected state
// (seller, university, views, status, sold metadata) has no field here, so
// anything a client sends for those is dropped on decode rather than erroring
// (Express deleted them from req.body).
type UpdateListingInput struct {
	Title          *string    `json:"title"`
	Description    *string    `json:"description"`
	Category       *string    `json:"category"`
	Condition      *string    `json:"condition"`
	Price          *float64   `json:"price"`
	OriginalPrice  *float64   `json:"original_price"`
	IsNegotiable   *bool      `json:"is_negotiable"`
	LocationPickup *string    `json:"location_pickup"`
	Tags           []string   `json:"tags"`
	AvailableUntil *time.Time `json:"available_until"`
}

// Update edits a listing. Seller-only; sold and deleted listings are closed
// to edits; lazy expiry correction runs before the edit is applied.
func (s *Service) Update(ctx context.Context, listingID, editorID uuid.UUID, in UpdateListingInput) (*models.Listing, error) {
	var listing models.Listing
	if err := s.DB.WithContext(ctx).Where("listing_id = ?", listingID).First(&listing).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("Listing")
		}
		return nil, apperr.Internal("failed to load listing", err)
	}
	if listing.SellerID != editorID {
		return nil, apperr.Forbidden("Not authorized to update this listing")
	}
	if err := s.correctExpiry(ctx, &listing); err != nil {
		return nil, err
	}
	if listing.Terminal() {
		return nil, apperr.InvalidState(fmt.Sprintf("Listing is %s and can no longer be edited", listing.Status))
	}

	// Merge, then re-validate the full listing.
	if in.Title != nil {
		listing.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		listing.Description = strings.TrimSpace(*in.Description)
	}
	if in.Category != nil {
		listing.Category = *in.Category
	}
	if in.Condition != nil {
		listing.Condition = *in.Condition
	}
	if in.Price != nil {
		listing.Price = *in.Price
	}
	if in.OriginalPrice != nil {
		listing.OriginalPrice = in.OriginalPrice
	}
	if in.IsNegotiable != nil {
		listing.IsNegotiable = *in.IsNegotiable
	}
	if in.LocationPickup != nil {
		listing.LocationPickup = *in.LocationPickup
	}
	if in.Tags != nil {
		listing.Tags = encodeTags(in.Tags)
	}
	if in.AvailableUntil != nil {
		if !in.AvailableUntil.After(listing.AvailableFrom) {
			return nil, apperr.Validation("Invalid availability window", map[string]string{
				"available_until": "must be after available_from",
			})
		}
		listing.AvailableUntil = *in.AvailableUntil
	}
	if err := validateFields(listing.Title, listing.Description, listing.Category, listing.Condition, listing.Price, listing.OriginalPrice); err != nil {
		return nil, err
	}

	err := s.DB.WithContext(ctx).Model(&models.Listing{}).
		Where("listing_id = ?", listing.ListingID).
		Updates(map[string]interface{}{
			"title":           listing.Title,
			"description":     listing.Description,
			"category":        listing.Category,
			"condition":       listing.Condition,
			"price":           listing.Price,
			"original_price":  listing.OriginalPrice,
			"is_negotiable":   listing.IsNegotiable,
			"location_pickup": listing.LocationPickup,
			"tags":            listing.Tags,
			"available_until": listing.AvailableUntil,
		}).Error
	if err != nil {
		return nil, apperr.Internal("failed to update listing", err)
	}
	return &listing, nil
}

// AddImages appends hosted image URLs. Seller-only, capped at 5 per listing.
func (s *Service) AddImages(ctx context.Context, listingID, editorID uuid.UUID, urls []string) (*models.Listing, error) {
	if len(urls) == 0 {
		return nil, apperr.Validation("Please upload at least one image", nil)
	}
	var listing models.Listing
	if err := s.DB.WithContext(ctx).Where("listing_id = ?", listingID).First(&listing).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("Listing")
		}
		return nil, apperr.Internal("failed to load listing", err)
	}
	if listing.SellerID != editorID {
		return nil, apperr.Forbidden("Not authorized to update this listing")
	}
	if err := s.correctExpiry(ctx, &listing); err != nil {
		return nil, err
	}
	if listing.Terminal() {
		return nil, apperr.InvalidState(fmt.Sprintf("Listing is %s and can no longer be edited", listing.Status))
	}

	images := decodeImages(listing.Images)
	if len(images)+len(urls) > models.MaxListingImages {
		return nil, apperr.Validation(fmt.Sprintf("Maximum %d images allowed per listing", models.MaxListingImages), nil)
	}
	for i, url := range urls {
		images = append(images, models.ListingImage{URL: url, DisplayOrder: len(images) + i})
	}
	listing.Images = encodeImages(images)

	err := s.DB.WithContext(ctx).Model(&models.Listing{}).
		Where("listing_id = ?", listing.ListingID).
		UpdateColumn("images", listing.Images).Error
	if err != nil {
		return nil, apperr.Internal("failed to save images", err)
	}
	return &listing, nil
}

// MarkSold moves the listing to its sold terminal state, stamping soldAt and
// the buyer. Counters (seller sales, buyer purchases, university active
// listings) move in the same transaction; the buyer gets a notification.
func (s *Service) MarkSold(ctx context.Context, listingID, actorID, buyerID uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	if err := s.DB.WithContext(ctx).Where("listing_id = ?", listingID).First(&listing).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("Listing")
		}
		return nil, apperr.Internal("failed to load listing", err)
	}
	if listing.SellerID != actorID {
		return nil, apperr.Forbidden("Not authorized to update this listing")
	}
	if buyerID == listing.SellerID {
		return nil, apperr.Validation("Seller cannot buy their own listing", nil)
	}
	if err := s.correctExpiry(ctx, &listing); err != nil {
		return nil, err
	}
	if listing.Terminal() {
		return nil, apperr.InvalidState(fmt.Sprintf("Listing is already %s", listing.Status))
	}

	var buyer models.User
	if err := s.DB.WithContext(ctx).Where("user_id = ?", buyerID).First(&buyer).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("Buyer")
		}
		return nil, apperr.Internal("failed to load buyer", err)
	}

	wasActive := listing.Status == models.ListingActive
	now := time.Now()

	tx := s.DB.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()
	if err := tx.Model(&models.Listing{}).Where("listing_id = ?", listing.ListingID).
		Updates(map[string]interface{}{
			"status":  models.ListingSold,
			"sold_at": now,
			"sold_to": buyerID,
		}).Error; err != nil {
		tx.Rollback()
		return nil, apperr.Internal("failed to mark listing sold", err)
	}
	if err := tx.Model(&models.User{}).Where("user_id = ?", listing.SellerID).
		UpdateColumn("total_sales", gorm.Expr("total_sales + 1")).Error; err != nil {
		tx.Rollback()
		return nil, apperr.Internal("failed to update seller counters", err)
	}
	if err := tx.Model(&models.User{}).Where("user_id = ?", buyerID).
		UpdateColumn("total_purchases", gorm.Expr("total_purchases + 1")).Error; err != nil {
		tx.Rollback()
		return nil, apperr.Internal("failed to update buyer counters", err)
	}
	if wasActive {
		if err := tx.Model(&models.University{}).Where("university_id = ?", listing.UniversityID).
			UpdateColumn("active_listings", gorm.Expr("active_listings - 1")).Error; err != nil {
			tx.Rollback()
			return nil, apperr.Internal("failed to update university counters", err)
		}
	}
	if err := tx.Commit().Error; err != nil {
		return nil, apperr.Internal("failed to mark listing sold", err)
	}

	listing.Status = models.ListingSold
	listing.SoldAt = &now
	listing.SoldTo = &buyerID

	if s.Notifier != nil {
		s.Notifier.Notify(ctx, notifications.Input{
			UserID:           buyerID,
			Type:             models.NotifyListingSold,
			Title:            "Purchase confirmed",
			Message:          fmt.Sprintf("The seller marked \"%s\" as sold to you", listing.Title),
			RelatedListingID: &listing.ListingID,
			RelatedUserID:    &listing.SellerID,
			ActionURL:        fmt.Sprintf("/listings/%s", listing.ListingID),
		})
	}
	return &listing, nil
}

// Delete soft-terminates the listing. Seller-only; deleted is terminal.
func (s *Service) Delete(ctx context.Context, listingID, actorID uuid.UUID) error {
	var listing models.Listing
	if err := s.DB.WithContext(ctx).Where("listing_id = ?", listingID).First(&listing).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return apperr.NotFound("Listing")
		}
		return apperr.Internal("failed to load listing", err)
	}
	if listing.SellerID != actorID {
		return apperr.Forbidden("Not authorized to delete this listing")
	}
	if listing.Status == models.ListingDeleted {
		return apperr.InvalidState("Listing is already deleted")
	}
	if err := s.correctExpiry(ctx, &listing); err != nil {
		return err
	}
	wasActive := listing.Status == models.ListingActive

	tx := s.DB.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()
	if err := tx.Model(&models.Listing{}).Where("listing_id = ?", listing.ListingID).
		UpdateColumn("status", models.ListingDeleted).Error; err != nil {
		tx.Rollback()
		return apperr.Internal("failed to delete listing", err)
	}
	if wasActive {
		if err := tx.Model(&models.University{}).Where("university_id = ?", listing.UniversityID).
			UpdateColumn("active_listings", gorm.Expr("active_listings - 1")).Error; err != nil {
			tx.Rollback()
			return apperr.Internal("failed to update university counters", err)
		}
	}
	if err := tx.Commit().Error; err != nil {
		return apperr.Internal("failed to delete listing", err)
	}
	return nil
}

// validateFields checks the Express schema bounds for the mutable fields.
func validateFields(title, description, category, condition string, price float64, originalPrice *float64) error {
	details := map[string]string{}
	if l := len(strings.TrimSpace(title)); l < models.TitleMinLen || l > models.TitleMaxLen {
		details["title"] = fmt.Sprintf("Title must be between %d and %d characters", models.TitleMinLen, models.TitleMaxLen)
	}
	if l := len(strings.TrimSpace(description)); l < models.DescriptionMinLen || l > models.DescriptionMaxLen {
		details["description"] = fmt.Sprintf("Description must be between %d and %d characters", models.DescriptionMinLen, models.DescriptionMaxLen)
	}
	if !contains(models.ListingCategories, category) {
		details["category"] = "Invalid category"
	}
	if !contains(models.ListingConditions, condition) {
		details["condition"] = "Invalid condition"
	}
	if price < 0 || price > models.PriceCap {
		details["price"] = fmt.Sprintf("Price must be between 0 and %d", models.PriceCap)
	}
	if originalPrice != nil && *originalPrice < 0 {
		details["original_price"] = "Original price must be positive"
	}
	if len(details) > 0 {
		return apperr.Validation("Invalid listing details", details)
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

func decodeImages(j datatypes.JSON) []models.ListingImage {
	var out []models.ListingImage
	if len(j) > 0 {
		_ = json.Unmarshal(j, &out)
	}
	return out
}

func encodeImages(images []models.ListingImage) datatypes.JSON {
	b, _ := json.Marshal(images)
	return datatypes.JSON(b)
}

func encodeTags(tags []string) datatypes.JSON {
	if tags == nil {
		tags = []string{}
	}
	for i := range tags {
		tags[i] = strings.ToLower(strings.TrimSpace(tags[i]))
	}
	b, _ := json.Marshal(tags)
	return datatypes.JSON(b)
}
