package entity

import "time"

// DMNotification is the recipient-scoped mailbox slot for one sender.
// The composite key coalesces repeated writes from the same sender.
type DMNotification struct {
	RecipientID string    `gorm:"size:36;primaryKey" json:"recipient_id"`
	SenderID    string    `gorm:"size:36;primaryKey" json:"sender_id"`
	Trigger     int64     `gorm:"column:trigger_nonce;not null" json:"trigger"`
	Timestamp   time.Time `gorm:"column:notified_at;not null;index" json:"timestamp"`
}
