package messages

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/sailakshmi-0987/Campus-recycle/internal/emails"
	"github.com/sailakshmi-0987/Campus-recycle/internal/models"
	"github.com/sailakshmi-0987/Campus-recycle/internal/notifications"
	"github.com/sailakshmi-0987/Campus-recycle/internal/pkg/apperr"
	"github.com/sailakshmi-0987/Campus-recycle/internal/pkg/pagination"
)

// Service is the conversation engine. Conversations are not stored as rows;
// they are derived from messages sharing a deterministic conversation id
// (sorted participant ids + listing id), so the same pair about the same
// listing always lands in the same thread no matter who writes first.
type Service struct {
	DB       *gorm.DB
	Notifier notifications.Notifier
	Emails   emails.Sender
}

type SendInput struct {
	ListingID   uuid.UUID                  `json:"listing_id"`
	RecipientID uuid.UUID                  `json:"recipient_id"`
	Content     string                     `json:"content"`
	Attachments []models.MessageAttachment `json:"attachments"`
}

// Send validates and stores one message, then fans out a notification and an
// email best-effort. Fan-out failures never fail the send.
func (s *Service) Send(ctx context.Context, sender *models.User, in SendInput) (*models.Message, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" || len(content) > models.MessageMaxLen {
		return nil, apperr.Validation(fmt.Sprintf("Message must be between 1 and %d characters", models.MessageMaxLen), nil)
	}
	if in.RecipientID == sender.UserID {
		return nil, apperr.Validation("You cannot message yourself", nil)
	}

	var listing models.Listing
	if err := s.DB.WithContext(ctx).Where("listing_id = ?", in.ListingID).First(&listing).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("Listing")
		}
		return nil, apperr.Internal("failed to load listing", err)
	}
	var recipient models.User
	if err := s.DB.WithContext(ctx).Where("user_id = ?", in.RecipientID).First(&recipient).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("Recipient")
		}
		return nil, apperr.Internal("failed to load recipient", err)
	}

	msg := &models.Message{
		ConversationID: models.ConversationID(sender.UserID, in.RecipientID, in.ListingID),
		ListingID:      in.ListingID,
		SenderID:       sender.UserID,
		RecipientID:    in.RecipientID,
		Content:        content,
		Attachments:    encodeAttachments(in.Attachments),
	}
	if err := s.DB.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, apperr.Internal("failed to send message", err)
	}

	preview := content
	if len(preview) > 100 {
		preview = preview[:100]
	}
	senderName := sender.FirstName + " " + sender.LastName

	if s.Notifier != nil {
		s.Notifier.Notify(ctx, notifications.Input{
			UserID:           recipient.UserID,
			Type:             models.NotifyNewMessage,
			Title:            "New message from " + senderName,
			Message:          preview,
			RelatedListingID: &listing.ListingID,
			RelatedUserID:    &sender.UserID,
			ActionURL:        fmt.Sprintf("/messages/%s", msg.ConversationID),
		})
	}
	if s.Emails != nil {
		if err := s.Emails.SendNewMessage(ctx, recipient.Email, senderName, listing.Title, preview); err != nil {
			log.Error().Err(err).Str("email", recipient.Email).Msg("failed to send new-message email")
		}
	}
	return msg, nil
}

// ConversationSummary is one grouped thread: its newest message, the unread
// count for the requesting user, the counterpart and the listing.
type ConversationSummary struct {
	ConversationID string             `json:"conversation_id"`
	LastMessage    models.Message     `json:"last_message"`
	UnreadCount    int64              `json:"unread_count"`
	OtherUser      models.PublicUser  `json:"other_user"`
	Listing        *models.Listing    `json:"listing"`
}

// ListConversations groups the user's messages by conversation id, newest
// thread first, and enriches each with the counterpart and listing in two
// batch queries (the Express controller aggregated, then populated).
func (s *Service) ListConversations(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]ConversationSummary, pagination.Meta, error) {
	var msgs []models.Message
	err := s.DB.WithContext(ctx).
		Where("sender_id = ? OR recipient_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&msgs).Error
	if err != nil {
		return nil, pagination.Meta{}, apperr.Internal("failed to fetch conversations", err)
	}

	// First message seen per conversation is its newest (DESC order above).
	order := make([]string, 0)
	newest := make(map[string]models.Message)
	unread := make(map[string]int64)
	for _, m := range msgs {
		if _, seen := newest[m.ConversationID]; !seen {
			newest[m.ConversationID] = m
			order = append(order, m.ConversationID)
		}
		if m.RecipientID == userID && !m.IsRead {
			unread[m.ConversationID]++
		}
	}

	total := int64(len(order))
	start := page.Offset()
	if start > len(order) {
		start = len(order)
	}
	end := start + page.Limit
	if end > len(order) {
		end = len(order)
	}
	pageIDs := order[start:end]

	// Batch-load counterparts and listings for the page.
	otherIDs := make([]uuid.UUID, 0, len(pageIDs))
	listingIDs := make([]uuid.UUID, 0, len(pageIDs))
	for _, cid := range pageIDs {
		m := newest[cid]
		other := m.SenderID
		if other == userID {
			other = m.RecipientID
		}
		otherIDs = append(otherIDs, other)
		listingIDs = append(listingIDs, m.ListingID)
	}

	users := make(map[uuid.UUID]models.User)
	if len(otherIDs) > 0 {
		var rows []models.User
		if err := s.DB.WithContext(ctx).Where("user_id IN ?", otherIDs).Find(&rows).Error; err != nil {
			return nil, pagination.Meta{}, apperr.Internal("failed to load conversation users", err)
		}
		for _, u := range rows {
			users[u.UserID] = u
		}
	}
	listings := make(map[uuid.UUID]models.Listing)
	if len(listingIDs) > 0 {
		var rows []models.Listing
		if err := s.DB.WithContext(ctx).Where("listing_id IN ?", listingIDs).Find(&rows).Error; err != nil {
			return nil, pagination.Meta{}, apperr.Internal("failed to load conversation listings", err)
		}
		for _, l := range rows {
			listings[l.ListingID] = l
		}
	}

	out := make([]ConversationSummary, 0, len(pageIDs))
	for _, cid := range pageIDs {
		m := newest[cid]
		other := m.SenderID
		if other == userID {
			other = m.RecipientID
		}
		summary := ConversationSummary{
			ConversationID: cid,
			LastMessage:    m,
			UnreadCount:    unread[cid],
		}
		if u, ok := users[other]; ok {
			summary.OtherUser = u.Public()
		}
		if l, ok := listings[m.ListingID]; ok {
			listing := l
			summary.Listing = &listing
		}
		out = append(out, summary)
	}
	return out, page.MetaFor(total), nil
}

// ListMessages returns one page of a conversation, oldest first, after
// verifying the requester is a participant. Every unread message addressed to
// the requester in the conversation is marked read in one bulk update, not
// just the returned page.
func (s *Service) ListMessages(ctx context.Context, userID uuid.UUID, conversationID string, page pagination.Params) ([]models.Message, pagination.Meta, error) {
	var probe models.Message
	err := s.DB.WithContext(ctx).Where("conversation_id = ?", conversationID).First(&probe).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pagination.Meta{}, apperr.NotFound("Conversation")
		}
		return nil, pagination.Meta{}, apperr.Internal("failed to load conversation", err)
	}
	if probe.SenderID != userID && probe.RecipientID != userID {
		return nil, pagination.Meta{}, apperr.Forbidden("Not authorized to view this conversation")
	}

	var total int64
	if err := s.DB.WithContext(ctx).Model(&models.Message{}).
		Where("conversation_id = ?", conversationID).Count(&total).Error; err != nil {
		return nil, pagination.Meta{}, apperr.Internal("failed to count messages", err)
	}

	// Page from the newest end, then reverse so the page reads oldest-first.
	var msgs []models.Message
	err = s.DB.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Limit(page.Limit).Offset(page.Offset()).
		Find(&msgs).Error
	if err != nil {
		return nil, pagination.Meta{}, apperr.Internal("failed to fetch messages", err)
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	if _, err := s.markRead(ctx, userID, conversationID); err != nil {
		return nil, pagination.Meta{}, err
	}
	now := time.Now()
	for i := range msgs {
		if msgs[i].RecipientID == userID && !msgs[i].IsRead {
			msgs[i].IsRead = true
			msgs[i].ReadAt = &now
		}
	}
	return msgs, page.MetaFor(total), nil
}

// UnreadCount counts unread messages addressed to the user across all
// conversations.
func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.Message{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, apperr.Internal("failed to count unread messages", err)
	}
	return count, nil
}

// MarkConversationRead marks the whole conversation read for the user and
// returns how many messages flipped. Calling it again returns zero.
func (s *Service) MarkConversationRead(ctx context.Context, userID uuid.UUID, conversationID string) (int64, error) {
	var probe models.Message
	err := s.DB.WithContext(ctx).Where("conversation_id = ?", conversationID).First(&probe).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, apperr.NotFound("Conversation")
		}
		return 0, apperr.Internal("failed to load conversation", err)
	}
	if probe.SenderID != userID && probe.RecipientID != userID {
		return 0, apperr.Forbidden("Not authorized to view this conversation")
	}
	return s.markRead(ctx, userID, conversationID)
}

func (s *Service) markRead(ctx context.Context, userID uuid.UUID, conversationID string) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&models.Message{}).
		Where("conversation_id = ? AND recipient_id = ? AND is_read = ?", conversationID, userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now()})
	if res.Error != nil {
		return 0, apperr.Internal("failed to mark messages read", res.Error)
	}
	return res.RowsAffected, nil
}

func encodeAttachments(atts []models.MessageAttachment) datatypes.JSON {
	if atts == nil {
		atts = []models.MessageAttachment{}
	}
	b, _ := json.Marshal(atts)
	return datatypes.JSON(b)
}
