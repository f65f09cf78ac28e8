package notifications

import (
	"time"

	"github.com/google/uuid"
)

// Delivery statuses.
const (
	StatusPending = "PENDING"
	StatusSent    = "SENT"
	StatusFailed  = "FAILED"
)

// Notification is one dispatched message, kept as a durable log so delivery
// failures stay visible after the triggering command returned.
type Notification struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	RecipientID   uuid.UUID  `gorm:"type:uuid;index" json:"recipientId"`
	RecipientName string     `json:"recipientName"`
	RecipientMail string     `json:"recipientMail,omitempty"`
	Category      string     `gorm:"index" json:"category"`
	Title         string     `json:"title"`
	Message       string     `json:"message"`
	Status        string     `gorm:"index" json:"status"`
	Error         string     `json:"error,omitempty"`
	SentAt        *time.Time `json:"sentAt,omitempty"`
	SeenAt        *time.Time `json:"seenAt,omitempty"`
	CreatedAt     time.Time  `json:"created"`
	UpdatedAt     time.Time  `json:"updated"`
}

func (Notification) TableName() string { return "notifications" }
