package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type PaymentTransaction struct {
	Id             uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId         uuid.UUID      `gorm:"type:uuid;not null;index"`
	SubscriptionId *uuid.UUID     `gorm:"type:uuid;index"`
	PlanSlug       string         `gorm:"type:varchar(100)"`
	Reference      string         `gorm:"type:varchar(100);uniqueIndex;not null"`
	Provider       string         `gorm:"type:varchar(50);not null"`
	AmountMinor    int64          `gorm:"not null"`
	Currency       string         `gorm:"type:varchar(3);not null"`
	Status         string         `gorm:"type:varchar(20);not null;index"`
	ProviderData   datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt      time.Time      `gorm:"autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime"`
}

func (PaymentTransaction) TableName() string {
	return "payment_transactions"
}
