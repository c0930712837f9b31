package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VocabEntry struct {
	ID         uuid.UUID `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID     string    `gorm:"size:36;not null;index" json:"-"`
	Word       string    `gorm:"type:text;not null" json:"word"`
	Definition string    `gorm:"type:text" json:"definition"`
	Lang       string    `gorm:"size:20" json:"lang"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"timestamp"`
}

func (v *VocabEntry) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
