package contract

import (
	"context"
	"time"

	"marketplace-be/internal/entity"

	"github.com/google/uuid"
)

// SubscriptionUpdate is the column set written by a status transition.
// Nil pointers leave the column untouched.
type SubscriptionUpdate struct {
	Status          entity.SubscriptionStatus
	ExpiresAt       *time.Time
	NextBillingDate *time.Time
	FailureReason   *string
	CancelledAt     *time.Time

	// ClearFailureReason nulls failure_reason; it wins over FailureReason.
	ClearFailureReason bool
}

type SubscriptionRepository interface {
	Create(ctx context.Context, subscription *entity.Subscription) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Subscription, error)
	FindByUser(ctx context.Context, userId uuid.UUID) ([]*entity.Subscription, error)
	FindActiveByUser(ctx context.Context, userId uuid.UUID) (*entity.Subscription, error)

	// FindDueForExpiration returns active rows with expires_at < now.
	FindDueForExpiration(ctx context.Context, now time.Time) ([]*entity.Subscription, error)
	// FindExpiringBetween returns active rows with from <= expires_at <= to.
	FindExpiringBetween(ctx context.Context, from, to time.Time) ([]*entity.Subscription, error)

	// Transition applies update only while the row is still in one of the
	// expected statuses (and, when expectedExpiresAt is set, still has that
	// expiry). It reports false when another writer got there first.
	Transition(ctx context.Context, id uuid.UUID, expected []entity.SubscriptionStatus, expectedExpiresAt *time.Time, update SubscriptionUpdate) (bool, error)

	CountByStatus(ctx context.Context) (map[entity.SubscriptionStatus]int64, error)
}

type PlanRepository interface {
	Create(ctx context.Context, plan *entity.Plan) error
	FindBySlug(ctx context.Context, slug string) (*entity.Plan, error)
	FindAllActive(ctx context.Context) ([]*entity.Plan, error)
}
