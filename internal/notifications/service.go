package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/sailakshmi-0987/Campus-recycle/internal/models"
	"github.com/sailakshmi-0987/Campus-recycle/internal/pkg/apperr"
	"github.com/sailakshmi-0987/Campus-recycle/internal/pkg/pagination"
)

// Input describes one fan-out event.
type Input struct {
	UserID               uuid.UUID
	Type                 string
	Title                string
	Message              string
	RelatedListingID     *uuid.UUID
	RelatedUserID        *uuid.UUID
	RelatedTransactionID *uuid.UUID
	ActionURL            string
}

// Notifier is the fire-and-forget sink the engines publish to. A failed
// notification never fails the operation that triggered it.
type Notifier interface {
	Notify(ctx context.Context, in Input)
}

// Service persists notification records and serves the read API.
type Service struct {
	DB *gorm.DB
}

const (
	titleMaxLen   = 100
	messageMaxLen = 500
)

// Notify writes one notification record. Errors are logged and swallowed
// (Express Notification.createNotification does the same).
func (s *Service) Notify(ctx context.Context, in Input) {
	if len(in.Title) > titleMaxLen {
		in.Title = in.Title[:titleMaxLen]
	}
	if len(in.Message) > messageMaxLen {
		in.Message = in.Message[:messageMaxLen]
	}
	n := &models.Notification{
		UserID:               in.UserID,
		Type:                 in.Type,
		Title:                in.Title,
		Message:              in.Message,
		RelatedListingID:     in.RelatedListingID,
		RelatedUserID:        in.RelatedUserID,
		RelatedTransactionID: in.RelatedTransactionID,
		ActionURL:            in.ActionURL,
	}
	if err := s.DB.WithContext(ctx).Create(n).Error; err != nil {
		log.Error().Err(err).
			Str("user_id", in.UserID.String()).
			Str("type", in.Type).
			Msg("failed to create notification")
	}
}

// List returns the user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, p pagination.Params) ([]models.Notification, pagination.Meta, error) {
	q := s.DB.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, pagination.Meta{}, apperr.Internal("failed to count notifications", err)
	}

	var out []models.Notification
	if err := q.Order("created_at DESC").Limit(p.Limit).Offset(p.Offset()).Find(&out).Error; err != nil {
		return nil, pagination.Meta{}, apperr.Internal("failed to fetch notifications", err)
	}
	return out, p.MetaFor(total), nil
}

// UnreadCount returns how many unread notifications the user has.
func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, apperr.Internal("failed to count notifications", err)
	}
	return count, nil
}

// MarkRead marks one notification read. Only its owner may do so.
func (s *Service) MarkRead(ctx context.Context, notificationID, userID uuid.UUID) (*models.Notification, error) {
	var n models.Notification
	if err := s.DB.WithContext(ctx).Where("notification_id = ?", notificationID).First(&n).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("Notification")
		}
		return nil, apperr.Internal("failed to load notification", err)
	}
	if n.UserID != userID {
		return nil, apperr.Forbidden("Not authorized to update this notification")
	}
	if !n.IsRead {
		now := time.Now()
		n.IsRead = true
		n.ReadAt = &now
		if err := s.DB.WithContext(ctx).Model(&n).Updates(map[string]interface{}{
			"is_read": true,
			"read_at": now,
		}).Error; err != nil {
			return nil, apperr.Internal("failed to update notification", err)
		}
	}
	return &n, nil
}

// MarkAllRead marks every unread notification of the user read; returns the
// number modified. Idempotent.
func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	now := time.Now()
	res := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": now})
	if res.Error != nil {
		return 0, apperr.Internal("failed to update notifications", res.Error)
	}
	return res.RowsAffected, nil
}
