package entity

import "time"

// Correction is the grammar-check annotation carried by a practice message.
type Correction struct {
	Correction string `json:"correction"`
	Reason     string `json:"reason"`
}

// Message is immutable once written. ID is assigned by the store and breaks
// ties between messages sharing a timestamp.
type Message struct {
	ID           uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	ChannelKey   string      `gorm:"size:120;not null;index:idx_messages_channel_time,priority:1" json:"-"`
	Text         string      `gorm:"type:text;not null" json:"text"`
	OriginalText string      `gorm:"type:text" json:"original_text"`
	UserID       string      `gorm:"size:36;not null" json:"user_id"`
	DisplayName  string      `gorm:"size:40" json:"display_name"`
	Lang         string      `gorm:"size:20" json:"lang"`
	LangCode     string      `gorm:"size:10" json:"lang_code"`
	IsPractice   bool        `gorm:"not null;default:false" json:"is_practice"`
	Correction   *Correction `gorm:"serializer:json;type:text" json:"correction"`
	IsBot        bool        `gorm:"not null;default:false" json:"is_bot"`
	CreatedAt    time.Time   `gorm:"autoCreateTime;index:idx_messages_channel_time,priority:2" json:"timestamp"`
}
