package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/buddydiary/buddy-api/app/models"
)

// diaryRepository implements the DiaryRepository interface
type diaryRepository struct {
	db *gorm.DB
}

// NewDiaryRepository creates a new diary repository instance
func NewDiaryRepository(db *gorm.DB) DiaryRepository {
	return &diaryRepository{db: db}
}

// Create creates a new diary entry in the database
func (r *diaryRepository) Create(diary *models.Diary) error {
	return r.db.Create(diary).Error
}

// GetByID retrieves a diary entry with its tags
func (r *diaryRepository) GetByID(id uint) (*models.Diary, error) {
	var diary models.Diary
	err := r.db.Preload("Tags").First(&diary, id).Error
	if err != nil {
		return nil, err
	}
	return &diary, nil
}

// GetByMonth returns a user's entries for the given calendar month
func (r *diaryRepository) GetByMonth(userID uint, year int, month time.Month) ([]models.Diary, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	var diaries []models.Diary
	err := r.db.Preload("Tags").
		Where("user_id = ? AND entry_date >= ? AND entry_date < ?", userID, start, end).
		Order("entry_date ASC").
		Find(&diaries).Error
	if err != nil {
		return nil, err
	}
	return diaries, nil
}

// Update updates an existing diary entry in the database
func (r *diaryRepository) Update(diary *models.Diary) error {
	return r.db.Save(diary).Error
}

// ReplaceTags swaps the diary's tag set for the given one
func (r *diaryRepository) ReplaceTags(diary *models.Diary, tags []models.Tag) error {
	return r.db.Model(diary).Association("Tags").Replace(tags)
}

// FindOrCreateTags resolves tag names to rows, creating missing ones
func (r *diaryRepository) FindOrCreateTags(names []string) ([]models.Tag, error) {
	tags := make([]models.Tag, 0, len(names))
	for _, name := range names {
		tag := models.Tag{Name: name}
		if err := tag.FindOrCreate(r.db); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// Delete soft deletes a diary entry by its ID
func (r *diaryRepository) Delete(id uint) error {
	return r.db.Delete(&models.Diary{}, id).Error
}

// DeleteByUserID soft deletes all entries of a user (account deletion cascade)
func (r *diaryRepository) DeleteByUserID(userID uint) error {
	return r.db.Where("user_id = ?", userID).Delete(&models.Diary{}).Error
}
