package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// BotUserID authors every message written by the AI tutor.
	BotUserID = "ai-companion-bot"
	// BotDisplayName is the tutor's display name.
	BotDisplayName = "Poly"
)

type User struct {
	ID          string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	DisplayName string     `gorm:"size:40;index;not null" json:"display_name"`
	NativeLang  string     `gorm:"size:20;not null" json:"native_lang"`
	TargetLang  string     `gorm:"size:20;not null" json:"target_lang"`
	PhotoURL    *string    `gorm:"type:text" json:"photo_url,omitempty"`
	LastActive  *time.Time `json:"last_active,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
