package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"marketplace-be/internal/entity"
	"marketplace-be/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// SubscriptionRepository keeps subscriptions in a go-cache with no expiry.
// Reads hand out copies so callers never alias stored rows.
type SubscriptionRepository struct {
	mu    sync.Mutex
	cache *cache.Cache
}

func NewSubscriptionRepository() *SubscriptionRepository {
	return &SubscriptionRepository{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

func cloneSubscription(s *entity.Subscription) *entity.Subscription {
	out := *s
	if s.Features != nil {
		out.Features = make(map[string]interface{}, len(s.Features))
		for k, v := range s.Features {
			out.Features[k] = v
		}
	}
	return &out
}

func (r *SubscriptionRepository) get(id uuid.UUID) (*entity.Subscription, bool) {
	if x, found := r.cache.Get(id.String()); found {
		return x.(*entity.Subscription), true
	}
	return nil, false
}

func (r *SubscriptionRepository) all() []*entity.Subscription {
	items := r.cache.Items()
	out := make([]*entity.Subscription, 0, len(items))
	for _, item := range items {
		out = append(out, item.Object.(*entity.Subscription))
	}
	return out
}

func (r *SubscriptionRepository) Create(ctx context.Context, subscription *entity.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if subscription.Id == uuid.Nil {
		subscription.Id = uuid.New()
	}
	now := time.Now()
	subscription.CreatedAt = now
	subscription.UpdatedAt = now
	r.cache.Set(subscription.Id.String(), cloneSubscription(subscription), cache.NoExpiration)
	return nil
}

// Put stores subscription as-is, for seeding tests with arbitrary states.
func (r *SubscriptionRepository) Put(subscription *entity.Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Set(subscription.Id.String(), cloneSubscription(subscription), cache.NoExpiration)
}

func (r *SubscriptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.get(id)
	if !ok {
		return nil, nil
	}
	return cloneSubscription(s), nil
}

func (r *SubscriptionRepository) FindByUser(ctx context.Context, userId uuid.UUID) ([]*entity.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entity.Subscription
	for _, s := range r.all() {
		if s.UserId == userId {
			out = append(out, cloneSubscription(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *SubscriptionRepository) FindActiveByUser(ctx context.Context, userId uuid.UUID) (*entity.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var latest *entity.Subscription
	for _, s := range r.all() {
		if s.UserId != userId || s.Status != entity.SubscriptionStatusActive {
			continue
		}
		if latest == nil || s.ExpiresAt.After(latest.ExpiresAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, nil
	}
	return cloneSubscription(latest), nil
}

func (r *SubscriptionRepository) FindDueForExpiration(ctx context.Context, now time.Time) ([]*entity.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entity.Subscription
	for _, s := range r.all() {
		if s.Status == entity.SubscriptionStatusActive && s.ExpiresAt.Before(now) {
			out = append(out, cloneSubscription(s))
		}
	}
	return out, nil
}

func (r *SubscriptionRepository) FindExpiringBetween(ctx context.Context, from, to time.Time) ([]*entity.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entity.Subscription
	for _, s := range r.all() {
		if s.Status != entity.SubscriptionStatusActive {
			continue
		}
		if s.ExpiresAt.Before(from) || s.ExpiresAt.After(to) {
			continue
		}
		out = append(out, cloneSubscription(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out, nil
}

func (r *SubscriptionRepository) Transition(ctx context.Context, id uuid.UUID, expected []entity.SubscriptionStatus, expectedExpiresAt *time.Time, update contract.SubscriptionUpdate) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.get(id)
	if !ok {
		return false, nil
	}

	matched := false
	for _, status := range expected {
		if s.Status == status {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}
	if expectedExpiresAt != nil && !s.ExpiresAt.Equal(*expectedExpiresAt) {
		return false, nil
	}

	next := cloneSubscription(s)
	next.Status = update.Status
	if update.ExpiresAt != nil {
		next.ExpiresAt = *update.ExpiresAt
	}
	if update.NextBillingDate != nil {
		next.NextBillingDate = *update.NextBillingDate
	}
	if update.ClearFailureReason {
		next.FailureReason = nil
	} else if update.FailureReason != nil {
		reason := *update.FailureReason
		next.FailureReason = &reason
	}
	if update.CancelledAt != nil {
		at := *update.CancelledAt
		next.CancelledAt = &at
	}
	next.UpdatedAt = time.Now()
	r.cache.Set(id.String(), next, cache.NoExpiration)
	return true, nil
}

func (r *SubscriptionRepository) CountByStatus(ctx context.Context) (map[entity.SubscriptionStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[entity.SubscriptionStatus]int64)
	for _, s := range r.all() {
		out[s.Status]++
	}
	return out, nil
}

type PlanRepository struct {
	mu    sync.RWMutex
	plans map[string]*entity.Plan
}

func NewPlanRepository() *PlanRepository {
	return &PlanRepository{plans: make(map[string]*entity.Plan)}
}

func (r *PlanRepository) Create(ctx context.Context, plan *entity.Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if plan.Id == uuid.Nil {
		plan.Id = uuid.New()
	}
	p := *plan
	r.plans[plan.Slug] = &p
	return nil
}

func (r *PlanRepository) FindBySlug(ctx context.Context, slug string) (*entity.Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plans[slug]
	if !ok || !p.IsActive {
		return nil, nil
	}
	out := *p
	return &out, nil
}

func (r *PlanRepository) FindAllActive(ctx context.Context) ([]*entity.Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*entity.Plan
	for _, p := range r.plans {
		if p.IsActive {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out, nil
}

var (
	_ contract.SubscriptionRepository = (*SubscriptionRepository)(nil)
	_ contract.PlanRepository         = (*PlanRepository)(nil)
)
