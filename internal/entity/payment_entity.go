package entity

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusSuccess PaymentStatus = "success"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// PaymentTransaction records one gateway charge, keyed by its reference.
type PaymentTransaction struct {
	Id             uuid.UUID
	UserId         uuid.UUID
	SubscriptionId *uuid.UUID // set for renewals
	PlanSlug       string
	Reference      string
	Provider       string
	AmountMinor    int64
	Currency       string
	Status         PaymentStatus
	ProviderData   map[string]interface{}
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
