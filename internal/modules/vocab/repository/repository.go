package vocab

import (
	"context"

	"anoa.com/polychat/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, entry *entity.VocabEntry) error
	ListByUser(ctx context.Context, userID string) ([]entity.VocabEntry, error)
	// Delete removes the entry if it belongs to userID. It reports whether a row was removed.
	Delete(ctx context.Context, userID string, id uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, entry *entity.VocabEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListByUser(ctx context.Context, userID string) ([]entity.VocabEntry, error) {
	var entries []entity.VocabEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&entries).Error
	return entries, err
}

func (r *repository) Delete(ctx context.Context, userID string, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&entity.VocabEntry{})
	return res.RowsAffected > 0, res.Error
}
