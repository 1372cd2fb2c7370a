package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type SubscriptionPlan struct {
	Id       uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Slug     string         `gorm:"type:varchar(100);uniqueIndex;not null"`
	Name     string         `gorm:"type:varchar(255);not null"`
	Price    float64        `gorm:"type:decimal(12,2);not null"`
	Currency string         `gorm:"type:varchar(3);not null;default:'NGN'"`
	Features datatypes.JSON `gorm:"type:jsonb"`
	IsActive bool           `gorm:"default:true"`
}

func (SubscriptionPlan) TableName() string {
	return "subscription_plans"
}

// Subscription rows are never deleted; cancelled and expired rows stay as history.
type Subscription struct {
	Id              uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId          uuid.UUID      `gorm:"type:uuid;not null;index"`
	PlanName        string         `gorm:"type:varchar(255);not null"`
	Price           float64        `gorm:"type:decimal(12,2);not null"`
	Status          string         `gorm:"type:varchar(50);not null;index:idx_subscriptions_status_expires,priority:1"`
	StartsAt        time.Time      `gorm:"not null"`
	ExpiresAt       time.Time      `gorm:"not null;index:idx_subscriptions_status_expires,priority:2"`
	NextBillingDate time.Time      `gorm:"not null"`
	PaymentMethod   *string        `gorm:"type:varchar(255)"`
	Features        datatypes.JSON `gorm:"type:jsonb"`
	FailureReason   *string        `gorm:"type:text"`
	CancelledAt     *time.Time
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}
