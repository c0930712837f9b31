package mailbox

import (
	"context"
	"time"

	"anoa.com/polychat/internal/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	// Upsert writes the (recipient, sender) slot, overwriting a pending record.
	Upsert(ctx context.Context, n *entity.DMNotification) error
	ListByRecipient(ctx context.Context, recipientID string) ([]entity.DMNotification, error)
	Delete(ctx context.Context, recipientID, senderID string) error
	ListStale(ctx context.Context, before time.Time, limit int) ([]entity.DMNotification, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Upsert(ctx context.Context, n *entity.DMNotification) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "recipient_id"}, {Name: "sender_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"trigger_nonce", "notified_at"}),
	}).Create(n).Error
}

func (r *repository) ListByRecipient(ctx context.Context, recipientID string) ([]entity.DMNotification, error) {
	var records []entity.DMNotification
	err := r.db.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Order("notified_at asc").
		Find(&records).Error
	return records, err
}

func (r *repository) Delete(ctx context.Context, recipientID, senderID string) error {
	return r.db.WithContext(ctx).
		Where("recipient_id = ? AND sender_id = ?", recipientID, senderID).
		Delete(&entity.DMNotification{}).Error
}

func (r *repository) ListStale(ctx context.Context, before time.Time, limit int) ([]entity.DMNotification, error) {
	var records []entity.DMNotification
	err := r.db.WithContext(ctx).
		Where("notified_at < ?", before).
		Order("notified_at asc").
		Limit(limit).
		Find(&records).Error
	return records, err
}
