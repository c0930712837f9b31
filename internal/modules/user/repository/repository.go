package repository

import (
	"context"
	"time"

	"anoa.com/polychat/internal/entity"
	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id string) (*entity.User, error)
	ExistsByDisplayName(ctx context.Context, name string) (bool, error)
	// SearchByPrefix returns up to limit users whose display name starts
	// with prefix, excluding excludeID.
	SearchByPrefix(ctx context.Context, prefix, excludeID string, limit int) ([]entity.User, error)
	TouchLastActive(ctx context.Context, id string, at time.Time) error
	UpdatePhotoURL(ctx context.Context, id, url string) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *entity.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ExistsByDisplayName is case-sensitive.
func (r *userRepository) ExistsByDisplayName(ctx context.Context, name string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.User{}).
		Where("display_name = ?", name).
		Count(&count).Error
	return count > 0, err
}

func (r *userRepository) SearchByPrefix(ctx context.Context, prefix, excludeID string, limit int) ([]entity.User, error) {
	var users []entity.User
	err := r.db.WithContext(ctx).
		Where("display_name >= ? AND display_name <= ?", prefix, prefix+"\uf8ff").
		Where("id <> ?", excludeID).
		Order("display_name asc").
		Limit(limit).
		Find(&users).Error
	return users, err
}

func (r *userRepository) TouchLastActive(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&entity.User{}).
		Where("id = ?", id).
		Update("last_active", at).Error
}

func (r *userRepository) UpdatePhotoURL(ctx context.Context, id, url string) error {
	return r.db.WithContext(ctx).
		Model(&entity.User{}).
		Where("id = ?", id).
		Update("photo_url", url).Error
}
