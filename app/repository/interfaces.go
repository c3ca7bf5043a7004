package repository

import (
	"time"

	"github.com/buddydiary/buddy-api/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	// CreateWithProvider creates a brand-new user and its first provider
	// link in one transaction.
	CreateWithProvider(user *models.User, account *models.ProviderAccount) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	UpdateLastLogin(id uint, at time.Time) error
	Delete(id uint) error
}

// ProviderAccountRepository defines the interface for provider link operations
type ProviderAccountRepository interface {
	Create(account *models.ProviderAccount) error
	ExistsByUserAndProvider(userID uint, provider string) (bool, error)
	GetByProviderUserID(provider, providerUserID string) (*models.ProviderAccount, error)
	ListByUserID(userID uint) ([]models.ProviderAccount, error)
	DeleteByUserID(userID uint) error
}

// DiaryRepository defines the interface for diary-related database operations
type DiaryRepository interface {
	Create(diary *models.Diary) error
	GetByID(id uint) (*models.Diary, error)
	GetByMonth(userID uint, year int, month time.Month) ([]models.Diary, error)
	Update(diary *models.Diary) error
	ReplaceTags(diary *models.Diary, tags []models.Tag) error
	FindOrCreateTags(names []string) ([]models.Tag, error)
	Delete(id uint) error
	DeleteByUserID(userID uint) error
}
