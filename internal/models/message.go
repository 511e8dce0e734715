package models

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MessageMaxLen bounds the free-text body (Express messageModel.js).
const MessageMaxLen = 1000

// MessageAttachment is one entry of the attachments JSON column.
type MessageAttachment struct {
	URL  string `json:"url"`
	Type string `json:"type,omitempty"`
	Size int64  `json:"size,omitempty"`
}

// Message matches the Express Message model (models/Message.js). A
// conversation is not stored on its own; its identity is derived from the two
// participants and the listing (ConversationID).
type Message struct {
	MessageID      uuid.UUID      `gorm:"column:message_id;type:uuid;primaryKey" json:"message_id"`
	ConversationID string         `gorm:"column:conversation_id;not null;index:idx_messages_conversation_created" json:"conversation_id"`
	SenderID       uuid.UUID      `gorm:"column:sender_id;type:uuid;not null;index" json:"sender_id"`
	RecipientID    uuid.UUID      `gorm:"column:recipient_id;type:uuid;not null;index:idx_messages_recipient_read" json:"recipient_id"`
	ListingID      uuid.UUID      `gorm:"column:listing_id;type:uuid;not null" json:"listing_id"`
	Content        string         `gorm:"column:content;not null" json:"content"`
	IsRead         bool           `gorm:"column:is_read;not null;index:idx_messages_recipient_read,priority:2" json:"is_read"`
	ReadAt         *time.Time     `gorm:"column:read_at" json:"read_at"`
	Attachments    datatypes.JSON `gorm:"column:attachments" json:"attachments"`
	CreatedAt      time.Time      `gorm:"index:idx_messages_conversation_created,priority:2" json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

func (Message) TableName() string {
	return "Messages"
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.MessageID == uuid.Nil {
		m.MessageID = uuid.New()
	}
	return nil
}

// ConversationID derives the stable conversation key for two participants and
// a listing (Express generateConversationId). Order-independent: the two user
// ids are sorted before joining, so both directions of a thread land on the
// same key.
func ConversationID(userA, userB, listingID uuid.UUID) string {
	ids := []string{userA.String(), userB.String()}
	sort.Strings(ids)
	return strings.Join([]string{ids[0], ids[1], listingID.String()}, "_")
}
