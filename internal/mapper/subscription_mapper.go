package mapper

import (
	"encoding/json"

	"marketplace-be/internal/entity"
	"marketplace-be/internal/model"

	"gorm.io/datatypes"
)

type SubscriptionMapper struct{}

func NewSubscriptionMapper() *SubscriptionMapper {
	return &SubscriptionMapper{}
}

func (m *SubscriptionMapper) ToEntity(s *model.Subscription) *entity.Subscription {
	if s == nil {
		return nil
	}
	return &entity.Subscription{
		Id:              s.Id,
		UserId:          s.UserId,
		PlanName:        s.PlanName,
		Price:           s.Price,
		Status:          entity.SubscriptionStatus(s.Status),
		StartsAt:        s.StartsAt,
		ExpiresAt:       s.ExpiresAt,
		NextBillingDate: s.NextBillingDate,
		PaymentMethod:   s.PaymentMethod,
		Features:        jsonToMap(s.Features),
		FailureReason:   s.FailureReason,
		CancelledAt:     s.CancelledAt,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

func (m *SubscriptionMapper) ToModel(s *entity.Subscription) *model.Subscription {
	if s == nil {
		return nil
	}
	return &model.Subscription{
		Id:              s.Id,
		UserId:          s.UserId,
		PlanName:        s.PlanName,
		Price:           s.Price,
		Status:          string(s.Status),
		StartsAt:        s.StartsAt,
		ExpiresAt:       s.ExpiresAt,
		NextBillingDate: s.NextBillingDate,
		PaymentMethod:   s.PaymentMethod,
		Features:        mapToJSON(s.Features),
		FailureReason:   s.FailureReason,
		CancelledAt:     s.CancelledAt,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

func (m *SubscriptionMapper) PlanToEntity(p *model.SubscriptionPlan) *entity.Plan {
	if p == nil {
		return nil
	}
	return &entity.Plan{
		Id:       p.Id,
		Slug:     p.Slug,
		Name:     p.Name,
		Price:    p.Price,
		Currency: p.Currency,
		Features: jsonToMap(p.Features),
		IsActive: p.IsActive,
	}
}

func (m *SubscriptionMapper) PlanToModel(p *entity.Plan) *model.SubscriptionPlan {
	if p == nil {
		return nil
	}
	return &model.SubscriptionPlan{
		Id:       p.Id,
		Slug:     p.Slug,
		Name:     p.Name,
		Price:    p.Price,
		Currency: p.Currency,
		Features: mapToJSON(p.Features),
		IsActive: p.IsActive,
	}
}

func jsonToMap(raw datatypes.JSON) map[string]interface{} {
	if len(raw) == 0 {
		return nil
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

func mapToJSON(in map[string]interface{}) datatypes.JSON {
	if in == nil {
		return nil
	}
	b, err := json.Marshal(in)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}
