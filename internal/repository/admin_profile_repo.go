package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/roommate-api/internal/models"
)

// AdminProfileRepository provides access to warden profiles.
type AdminProfileRepository interface {
	GetByUserID(ctx context.Context, userID string) (models.AdminProfile, error)
	UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error
}

type adminProfileRepository struct {
	db *gorm.DB
}

// NewAdminProfileRepository constructs the admin profile repository.
func NewAdminProfileRepository(db *gorm.DB) AdminProfileRepository {
	return &adminProfileRepository{db: db}
}

func (r *adminProfileRepository) GetByUserID(ctx context.Context, userID string) (models.AdminProfile, error) {
	var profile models.AdminProfile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return models.AdminProfile{}, err
	}
	return profile, nil
}

func (r *adminProfileRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.AdminProfile{}).
		Where("id = ?", id).
		Updates(fields).Error
}
