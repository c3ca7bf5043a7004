package repository

import (
	"gorm.io/gorm"

	"github.com/buddydiary/buddy-api/app/models"
)

// providerAccountRepository implements the ProviderAccountRepository interface
type providerAccountRepository struct {
	db *gorm.DB
}

// NewProviderAccountRepository creates a new provider account repository instance
func NewProviderAccountRepository(db *gorm.DB) ProviderAccountRepository {
	return &providerAccountRepository{db: db}
}

// Create inserts a provider link. The unique indexes on (user_id, provider)
// and (provider, provider_user_id) turn lost check-then-create races into a
// duplicate-key error instead of a silent second link.
func (r *providerAccountRepository) Create(account *models.ProviderAccount) error {
	return r.db.Create(account).Error
}

// ExistsByUserAndProvider reports whether the user already linked the provider
func (r *providerAccountRepository) ExistsByUserAndProvider(userID uint, provider string) (bool, error) {
	var count int64
	err := r.db.Model(&models.ProviderAccount{}).
		Where("user_id = ? AND provider = ?", userID, provider).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetByProviderUserID retrieves a link by the provider's stable user identifier
func (r *providerAccountRepository) GetByProviderUserID(provider, providerUserID string) (*models.ProviderAccount, error) {
	var account models.ProviderAccount
	err := r.db.Where("provider = ? AND provider_user_id = ?", provider, providerUserID).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// ListByUserID returns all provider links of the given user
func (r *providerAccountRepository) ListByUserID(userID uint) ([]models.ProviderAccount, error) {
	var accounts []models.ProviderAccount
	err := r.db.Where("user_id = ?", userID).Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// DeleteByUserID removes all provider links of a user (account deletion)
func (r *providerAccountRepository) DeleteByUserID(userID uint) error {
	return r.db.Where("user_id = ?", userID).Delete(&models.ProviderAccount{}).Error
}
