package implementation

import (
	"context"
	"errors"
	"time"

	"marketplace-be/internal/entity"
	"marketplace-be/internal/mapper"
	"marketplace-be/internal/model"
	"marketplace-be/internal/repository/contract"
	"marketplace-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SubscriptionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SubscriptionMapper
}

func NewSubscriptionRepository(db *gorm.DB) contract.SubscriptionRepository {
	return &SubscriptionRepositoryImpl{
		db:     db,
		mapper: mapper.NewSubscriptionMapper(),
	}
}

func (r *SubscriptionRepositoryImpl) findOne(ctx context.Context, specs ...specification.Specification) (*entity.Subscription, error) {
	var m model.Subscription
	query := specification.Apply(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *SubscriptionRepositoryImpl) findAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Subscription, error) {
	var models []*model.Subscription
	query := specification.Apply(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.Subscription, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *SubscriptionRepositoryImpl) Create(ctx context.Context, subscription *entity.Subscription) error {
	m := r.mapper.ToModel(subscription)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*subscription = *r.mapper.ToEntity(m)
	return nil
}

func (r *SubscriptionRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*entity.Subscription, error) {
	return r.findOne(ctx, specification.ByID{ID: id})
}

func (r *SubscriptionRepositoryImpl) FindByUser(ctx context.Context, userId uuid.UUID) ([]*entity.Subscription, error) {
	return r.findAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
}

func (r *SubscriptionRepositoryImpl) FindActiveByUser(ctx context.Context, userId uuid.UUID) (*entity.Subscription, error) {
	return r.findOne(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.ByStatus{Statuses: []string{string(entity.SubscriptionStatusActive)}},
		specification.OrderBy{Field: "expires_at", Desc: true},
	)
}

func (r *SubscriptionRepositoryImpl) FindDueForExpiration(ctx context.Context, now time.Time) ([]*entity.Subscription, error) {
	return r.findAll(ctx,
		specification.ByStatus{Statuses: []string{string(entity.SubscriptionStatusActive)}},
		specification.ExpiresBefore{Instant: now},
	)
}

func (r *SubscriptionRepositoryImpl) FindExpiringBetween(ctx context.Context, from, to time.Time) ([]*entity.Subscription, error) {
	return r.findAll(ctx,
		specification.ByStatus{Statuses: []string{string(entity.SubscriptionStatusActive)}},
		specification.ExpiresBetween{From: from, To: to},
		specification.OrderBy{Field: "expires_at"},
	)
}

func (r *SubscriptionRepositoryImpl) Transition(ctx context.Context, id uuid.UUID, expected []entity.SubscriptionStatus, expectedExpiresAt *time.Time, update contract.SubscriptionUpdate) (bool, error) {
	statuses := make([]string, len(expected))
	for i, s := range expected {
		statuses[i] = string(s)
	}

	values := map[string]interface{}{
		"status":     string(update.Status),
		"updated_at": time.Now(),
	}
	if update.ExpiresAt != nil {
		values["expires_at"] = *update.ExpiresAt
	}
	if update.NextBillingDate != nil {
		values["next_billing_date"] = *update.NextBillingDate
	}
	if update.ClearFailureReason {
		values["failure_reason"] = nil
	} else if update.FailureReason != nil {
		values["failure_reason"] = *update.FailureReason
	}
	if update.CancelledAt != nil {
		values["cancelled_at"] = *update.CancelledAt
	}

	query := r.db.WithContext(ctx).Model(&model.Subscription{})
	query = specification.Apply(query,
		specification.ByID{ID: id},
		specification.ByStatus{Statuses: statuses},
	)
	if expectedExpiresAt != nil {
		query = query.Where("expires_at = ?", *expectedExpiresAt)
	}

	result := query.Updates(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *SubscriptionRepositoryImpl) CountByStatus(ctx context.Context) (map[entity.SubscriptionStatus]int64, error) {
	var rows []struct {
		Status string
		Total  int64
	}
	err := r.db.WithContext(ctx).Model(&model.Subscription{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[entity.SubscriptionStatus]int64, len(rows))
	for _, row := range rows {
		out[entity.SubscriptionStatus(row.Status)] = row.Total
	}
	return out, nil
}

type PlanRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SubscriptionMapper
}

func NewPlanRepository(db *gorm.DB) contract.PlanRepository {
	return &PlanRepositoryImpl{
		db:     db,
		mapper: mapper.NewSubscriptionMapper(),
	}
}

func (r *PlanRepositoryImpl) Create(ctx context.Context, plan *entity.Plan) error {
	m := r.mapper.PlanToModel(plan)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*plan = *r.mapper.PlanToEntity(m)
	return nil
}

func (r *PlanRepositoryImpl) FindBySlug(ctx context.Context, slug string) (*entity.Plan, error) {
	var m model.SubscriptionPlan
	err := specification.BySlug{Slug: slug}.Apply(r.db.WithContext(ctx)).
		Where("is_active = ?", true).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.PlanToEntity(&m), nil
}

func (r *PlanRepositoryImpl) FindAllActive(ctx context.Context) ([]*entity.Plan, error) {
	var models []*model.SubscriptionPlan
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("price ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*entity.Plan, len(models))
	for i, m := range models {
		out[i] = r.mapper.PlanToEntity(m)
	}
	return out, nil
}
