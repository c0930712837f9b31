package message

import (
	"context"

	"anoa.com/polychat/internal/entity"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, msg *entity.Message) error
	// Latest returns the newest limit messages of the channel, newest first.
	Latest(ctx context.Context, channelKey string, limit int) ([]entity.Message, error)
	DeleteByChannel(ctx context.Context, channelKey string) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, msg *entity.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *repository) Latest(ctx context.Context, channelKey string, limit int) ([]entity.Message, error) {
	var messages []entity.Message
	err := r.db.WithContext(ctx).
		Where("channel_key = ?", channelKey).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

func (r *repository) DeleteByChannel(ctx context.Context, channelKey string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("channel_key = ?", channelKey).
		Delete(&entity.Message{})
	return res.RowsAffected, res.Error
}
