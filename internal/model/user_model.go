package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	Id                 uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Email              string         `gorm:"type:varchar(255);uniqueIndex;not null"`
	FullName           string         `gorm:"type:varchar(255);not null"`
	Role               string         `gorm:"type:varchar(50);not null;default:'user'"`
	PushToken          *string        `gorm:"type:varchar(512)"`
	EmailNotifications bool           `gorm:"default:true"`
	PushNotifications  bool           `gorm:"default:true"`
	CreatedAt          time.Time      `gorm:"autoCreateTime"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime"`
	DeletedAt          gorm.DeletedAt `gorm:"index"`
}

func (User) TableName() string {
	return "users"
}
