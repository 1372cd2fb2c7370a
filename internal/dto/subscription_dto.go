package dto

import (
	"time"

	"marketplace-be/internal/entity"

	"github.com/google/uuid"
)

// CreateSubscriptionRequest grants a plan directly, without checkout.
type CreateSubscriptionRequest struct {
	UserId        *uuid.UUID             `json:"user_id"`
	PlanName      string                 `json:"plan_name" validate:"required,min=2,max=255"`
	Price         float64                `json:"price" validate:"gte=0"`
	PaymentMethod *string                `json:"payment_method" validate:"omitempty,max=255"`
	Features      map[string]interface{} `json:"features"`
}

type PaymentFailureRequest struct {
	Reason *string `json:"reason" validate:"omitempty,max=500"`
}

type SubscriptionResponse struct {
	Id              uuid.UUID              `json:"id"`
	UserId          uuid.UUID              `json:"user_id"`
	PlanName        string                 `json:"plan_name"`
	Price           float64                `json:"price"`
	Status          string                 `json:"status"`
	StartsAt        time.Time              `json:"starts_at"`
	ExpiresAt       time.Time              `json:"expires_at"`
	NextBillingDate time.Time              `json:"next_billing_date"`
	PaymentMethod   *string                `json:"payment_method,omitempty"`
	Features        map[string]interface{} `json:"features,omitempty"`
	FailureReason   *string                `json:"failure_reason,omitempty"`
	CancelledAt     *time.Time             `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
}

func NewSubscriptionResponse(s *entity.Subscription) *SubscriptionResponse {
	return &SubscriptionResponse{
		Id:              s.Id,
		UserId:          s.UserId,
		PlanName:        s.PlanName,
		Price:           s.Price,
		Status:          string(s.Status),
		StartsAt:        s.StartsAt,
		ExpiresAt:       s.ExpiresAt,
		NextBillingDate: s.NextBillingDate,
		PaymentMethod:   s.PaymentMethod,
		Features:        s.Features,
		FailureReason:   s.FailureReason,
		CancelledAt:     s.CancelledAt,
		CreatedAt:       s.CreatedAt,
	}
}

func NewSubscriptionResponses(subs []*entity.Subscription) []*SubscriptionResponse {
	out := make([]*SubscriptionResponse, len(subs))
	for i, s := range subs {
		out[i] = NewSubscriptionResponse(s)
	}
	return out
}
