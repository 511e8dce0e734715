package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Transaction statuses (Express transactionModel.js enum).
const (
	TxPending         = "pending"
	TxConfirmed       = "confirmed"
	TxMeetupScheduled = "meetup_scheduled"
	TxCompleted       = "completed"
	TxCancelled       = "cancelled"
	TxDisputed        = "disputed"
)

// PaymentCash is the default settlement method.
const PaymentCash = "cash"

// PaymentMethods records how the parties intend to settle offline. The value
// is metadata only; no money moves through this system.
var PaymentMethods = []string{PaymentCash, "venmo", "zelle", "paypal", "other"}

// Transaction matches the Express Transaction model (models/Transaction.js):
// the offline agreement to sell one listing.
type Transaction struct {
	TransactionID      uuid.UUID      `gorm:"column:transaction_id;type:uuid;primaryKey" json:"transaction_id"`
	ListingID          uuid.UUID      `gorm:"column:listing_id;type:uuid;not null;index" json:"listing_id"`
	BuyerID            uuid.UUID      `gorm:"column:buyer_id;type:uuid;not null;index:idx_transactions_buyer_status" json:"buyer_id"`
	SellerID           uuid.UUID      `gorm:"column:seller_id;type:uuid;not null;index:idx_transactions_seller_status" json:"seller_id"`
	FinalPrice         float64        `gorm:"column:final_price;not null" json:"final_price"`
	Status             string         `gorm:"column:status;type:varchar(20);not null;index:idx_transactions_buyer_status,priority:2;index:idx_transactions_seller_status,priority:2" json:"status"`
	MeetingLocation    string         `gorm:"column:meeting_location" json:"meeting_location"`
	MeetingTime        *time.Time     `gorm:"column:meeting_time" json:"meeting_time"`
	MeetingNotes       string         `gorm:"column:meeting_notes" json:"meeting_notes"`
	CompletedAt        *time.Time     `gorm:"column:completed_at" json:"completed_at"`
	CancelledAt        *time.Time     `gorm:"column:cancelled_at" json:"cancelled_at"`
	CancellationReason string         `gorm:"column:cancellation_reason" json:"cancellation_reason"`
	DisputeReason      string         `gorm:"column:dispute_reason" json:"dispute_reason"`
	PaymentMethod      string         `gorm:"column:payment_method;not null;default:cash" json:"payment_method"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Transaction) TableName() string {
	return "Transactions"
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.TransactionID == uuid.Nil {
		t.TransactionID = uuid.New()
	}
	return nil
}

// txTransitions is the transaction state machine:
//
//	pending -> confirmed -> meetup_scheduled -> completed
//	any non-terminal -> cancelled | disputed
var txTransitions = map[string][]string{
	TxPending:         {TxConfirmed, TxCancelled, TxDisputed},
	TxConfirmed:       {TxMeetupScheduled, TxCancelled, TxDisputed},
	TxMeetupScheduled: {TxCompleted, TxCancelled, TxDisputed},
}

// CanTransition reports whether the transaction may move to the given status.
// Completed, cancelled and disputed are terminal.
func (t *Transaction) CanTransition(to string) bool {
	for _, s := range txTransitions[t.Status] {
		if s == to {
			return true
		}
	}
	return false
}

// TerminalStatus reports whether the transaction has reached a terminal state.
func (t *Transaction) TerminalStatus() bool {
	return t.Status == TxCompleted || t.Status == TxCancelled || t.Status == TxDisputed
}

// Participant reports whether the user is the buyer or seller.
func (t *Transaction) Participant(userID uuid.UUID) bool {
	return t.BuyerID == userID || t.SellerID == userID
}

// OtherParty returns the counterpart of the given participant.
func (t *Transaction) OtherParty(userID uuid.UUID) uuid.UUID {
	if t.BuyerID == userID {
		return t.SellerID
	}
	return t.BuyerID
}
