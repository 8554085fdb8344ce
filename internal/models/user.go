package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID          string  `json:"id" gorm:"primaryKey;size:255"`
	Username    string  `json:"username" gorm:"uniqueIndex;not null;size:100" validate:"required,min=3,max=100"`
	Email       string  `json:"email" gorm:"uniqueIndex;not null;size:255" validate:"required,email"`
	DisplayName string  `json:"displayName" gorm:"size:100" validate:"omitempty,max=100"`
	AvatarURL   *string `json:"avatarUrl" gorm:"size:500"`
	Language    string  `json:"language" gorm:"default:vi;size:10"`

	IsActive    bool       `json:"isActive" gorm:"default:true"`
	LastLoginAt *time.Time `json:"lastLoginAt"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (User) TableName() string {
	return "users"
}
