package mapper

import (
	"marketplace-be/internal/entity"
	"marketplace-be/internal/model"
)

type PaymentMapper struct{}

func NewPaymentMapper() *PaymentMapper {
	return &PaymentMapper{}
}

func (m *PaymentMapper) ToEntity(p *model.PaymentTransaction) *entity.PaymentTransaction {
	if p == nil {
		return nil
	}
	return &entity.PaymentTransaction{
		Id:             p.Id,
		UserId:         p.UserId,
		SubscriptionId: p.SubscriptionId,
		PlanSlug:       p.PlanSlug,
		Reference:      p.Reference,
		Provider:       p.Provider,
		AmountMinor:    p.AmountMinor,
		Currency:       p.Currency,
		Status:         entity.PaymentStatus(p.Status),
		ProviderData:   jsonToMap(p.ProviderData),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func (m *PaymentMapper) ToModel(p *entity.PaymentTransaction) *model.PaymentTransaction {
	if p == nil {
		return nil
	}
	return &model.PaymentTransaction{
		Id:             p.Id,
		UserId:         p.UserId,
		SubscriptionId: p.SubscriptionId,
		PlanSlug:       p.PlanSlug,
		Reference:      p.Reference,
		Provider:       p.Provider,
		AmountMinor:    p.AmountMinor,
		Currency:       p.Currency,
		Status:         string(p.Status),
		ProviderData:   mapToJSON(p.ProviderData),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}
