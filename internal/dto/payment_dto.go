package dto

import "github.com/google/uuid"

type PlanResponse struct {
	Id       uuid.UUID              `json:"id"`
	Slug     string                 `json:"slug"`
	Name     string                 `json:"name"`
	Price    float64                `json:"price"`
	Currency string                 `json:"currency"`
	Features map[string]interface{} `json:"features,omitempty"`
}

type CheckoutRequest struct {
	PlanSlug    string `json:"plan_slug" validate:"required"`
	CallbackURL string `json:"callback_url" validate:"omitempty,url"`
}

type RenewCheckoutRequest struct {
	CallbackURL string `json:"callback_url" validate:"omitempty,url"`
}

type CheckoutResponse struct {
	Reference        string     `json:"reference"`
	AuthorizationURL string     `json:"authorization_url"`
	AccessCode       string     `json:"access_code,omitempty"`
	Provider         string     `json:"provider"`
	AmountMinor      int64      `json:"amount_minor"`
	Currency         string     `json:"currency"`
	SubscriptionId   *uuid.UUID `json:"subscription_id,omitempty"`
}
