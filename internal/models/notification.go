package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification types (Express notificationModel.js enum).
const (
	NotifyNewMessage         = "new_message"
	NotifyListingSold        = "listing_sold"
	NotifyNewFavorite        = "new_favorite"
	NotifyTransactionUpdate  = "transaction_update"
	NotifyReviewReceived     = "review_received"
	NotifyListingExpiring    = "listing_expiring"
	NotifyPriceDrop          = "price_drop"
	NotifyListingApproved    = "listing_approved"
	NotifySystemAnnouncement = "system_announcement"
)

// Notification matches the Express Notification model (models/Notification.js):
// one in-app record per fan-out event. Delivery format is out of scope; rows
// are read back over the list endpoint.
type Notification struct {
	NotificationID       uuid.UUID  `gorm:"column:notification_id;type:uuid;primaryKey" json:"notification_id"`
	UserID               uuid.UUID  `gorm:"column:user_id;type:uuid;not null;index:idx_notifications_user_read" json:"user_id"`
	Type                 string     `gorm:"column:type;not null" json:"type"`
	Title                string     `gorm:"column:title;not null" json:"title"`
	Message              string     `gorm:"column:message;not null" json:"message"`
	RelatedListingID     *uuid.UUID `gorm:"column:related_listing_id;type:uuid" json:"related_listing_id"`
	RelatedUserID        *uuid.UUID `gorm:"column:related_user_id;type:uuid" json:"related_user_id"`
	RelatedTransactionID *uuid.UUID `gorm:"column:related_transaction_id;type:uuid" json:"related_transaction_id"`
	ActionURL            string     `gorm:"column:action_url" json:"action_url"`
	IsRead               bool       `gorm:"column:is_read;not null;index:idx_notifications_user_read,priority:2" json:"is_read"`
	ReadAt               *time.Time `gorm:"column:read_at" json:"read_at"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

func (Notification) TableName() string {
	return "Notifications"
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.NotificationID == uuid.Nil {
		n.NotificationID = uuid.New()
	}
	return nil
}
