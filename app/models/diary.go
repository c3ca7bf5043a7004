package models

import (
	"time"

	"gorm.io/gorm"
)

type Diary struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"index" json:"user_id"`
	User      User           `gorm:"foreignKey:UserID" json:"-"`
	Title     string         `gorm:"type:varchar(255);not null" json:"title" validate:"required,min=1,max=255"`
	Content   string         `gorm:"type:text" json:"content"`
	EntryDate time.Time      `gorm:"type:date;index" json:"entry_date"`
	Tags      []Tag          `gorm:"many2many:diary_tags;" json:"tags,omitempty"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
