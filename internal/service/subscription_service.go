package service

import (
	"context"
	"fmt"
	"time"

	"marketplace-be/internal/entity"
	"marketplace-be/internal/metrics"
	"marketplace-be/internal/pkg/clock"
	"marketplace-be/internal/pkg/logger"
	"marketplace-be/internal/repository/contract"
	"marketplace-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// ISubscriptionService is the single writer of subscription state. Every
// transition is written first and notified second; a failed notification
// never undoes a committed transition.
type ISubscriptionService interface {
	CreateSubscription(ctx context.Context, user *entity.User, planName string, price float64, paymentMethod *string, features map[string]interface{}) (*entity.Subscription, error)
	// GrantSubscription loads the user and creates an active subscription
	// without a payment.
	GrantSubscription(ctx context.Context, userId uuid.UUID, planName string, price float64, paymentMethod *string, features map[string]interface{}) (*entity.Subscription, error)
	// RenewSubscription advances both billing dates by one month from their
	// current values. It returns false when the renewal was not applied.
	RenewSubscription(ctx context.Context, sub *entity.Subscription) bool
	HandlePaymentFailure(ctx context.Context, sub *entity.Subscription, reason *string)
	CancelSubscription(ctx context.Context, sub *entity.Subscription) bool

	GetSubscription(ctx context.Context, id uuid.UUID) (*entity.Subscription, error)
	ListUserSubscriptions(ctx context.Context, userId uuid.UUID) ([]*entity.Subscription, error)
	GetActiveSubscription(ctx context.Context, userId uuid.UUID) (*entity.Subscription, error)
	CountByStatus(ctx context.Context) (map[entity.SubscriptionStatus]int64, error)
}

type subscriptionService struct {
	uowFactory unitofwork.RepositoryFactory
	dispatcher Dispatcher
	clock      clock.Clock
	metrics    metrics.Recorder
	logger     logger.ILogger
}

func NewSubscriptionService(uowFactory unitofwork.RepositoryFactory, dispatcher Dispatcher, clk clock.Clock, rec metrics.Recorder, log logger.ILogger) ISubscriptionService {
	return newSubscriptionService(uowFactory, dispatcher, clk, rec, log)
}

func newSubscriptionService(uowFactory unitofwork.RepositoryFactory, dispatcher Dispatcher, clk clock.Clock, rec metrics.Recorder, log logger.ILogger) *subscriptionService {
	if clk == nil {
		clk = clock.System()
	}
	return &subscriptionService{
		uowFactory: uowFactory,
		dispatcher: dispatcher,
		clock:      clk,
		metrics:    rec,
		logger:     log,
	}
}

func (s *subscriptionService) repo(ctx context.Context) contract.SubscriptionRepository {
	return s.uowFactory.NewUnitOfWork(ctx).SubscriptionRepository()
}

func (s *subscriptionService) CreateSubscription(ctx context.Context, user *entity.User, planName string, price float64, paymentMethod *string, features map[string]interface{}) (*entity.Subscription, error) {
	if user == nil {
		return nil, ErrUserNotFound
	}

	// postgres keeps microseconds; renewals match on the stored expires_at
	now := s.clock.Now().Truncate(time.Microsecond)
	periodEnd := entity.AddBillingPeriod(now)
	sub := &entity.Subscription{
		Id:              uuid.New(),
		UserId:          user.Id,
		PlanName:        planName,
		Price:           price,
		Status:          entity.SubscriptionStatusActive,
		StartsAt:        now,
		ExpiresAt:       periodEnd,
		NextBillingDate: periodEnd,
		PaymentMethod:   paymentMethod,
		Features:        features,
	}

	if err := s.repo(ctx).Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}
	s.recordTransition(entity.SubscriptionStatusActive)

	s.logger.Info("SUBSCRIPTION", "Subscription created", map[string]interface{}{
		"subscription_id": sub.Id,
		"user_id":         user.Id,
		"plan_name":       planName,
		"expires_at":      sub.ExpiresAt,
	})

	s.dispatch(ctx, entity.LifecycleActivated, sub, user, nil)
	return sub, nil
}

func (s *subscriptionService) GrantSubscription(ctx context.Context, userId uuid.UUID, planName string, price float64, paymentMethod *string, features map[string]interface{}) (*entity.Subscription, error) {
	user, err := s.uowFactory.NewUnitOfWork(ctx).UserRepository().FindByID(ctx, userId)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return s.CreateSubscription(ctx, user, planName, price, paymentMethod, features)
}

func (s *subscriptionService) RenewSubscription(ctx context.Context, sub *entity.Subscription) bool {
	if sub == nil {
		return false
	}
	if !entity.CanTransition(sub.Status, entity.SubscriptionStatusActive) {
		s.logger.Warn("SUBSCRIPTION", "Renewal rejected for terminal subscription", map[string]interface{}{
			"subscription_id": sub.Id,
			"status":          sub.Status,
		})
		return false
	}

	prevExpiry := sub.ExpiresAt
	newExpiry := entity.AddBillingPeriod(sub.ExpiresAt)
	newBilling := entity.AddBillingPeriod(sub.NextBillingDate)

	ok, err := s.repo(ctx).Transition(ctx, sub.Id,
		entity.SourcesFor(entity.SubscriptionStatusActive),
		&prevExpiry,
		contract.SubscriptionUpdate{
			Status:          entity.SubscriptionStatusActive,
			ExpiresAt:          &newExpiry,
			NextBillingDate:    &newBilling,
			ClearFailureReason: true,
		},
	)
	if !s.applied("renew", sub, ok, err) {
		return false
	}

	sub.Status = entity.SubscriptionStatusActive
	sub.ExpiresAt = newExpiry
	sub.NextBillingDate = newBilling
	sub.FailureReason = nil
	sub.UpdatedAt = s.clock.Now()
	s.recordTransition(entity.SubscriptionStatusActive)

	s.logger.Info("SUBSCRIPTION", "Subscription renewed", map[string]interface{}{
		"subscription_id":     sub.Id,
		"previous_expires_at": prevExpiry,
		"expires_at":          newExpiry,
	})

	s.dispatch(ctx, entity.LifecycleRenewed, sub, nil, nil)
	return true
}

func (s *subscriptionService) HandlePaymentFailure(ctx context.Context, sub *entity.Subscription, reason *string) {
	if sub == nil {
		return
	}
	if !entity.CanTransition(sub.Status, entity.SubscriptionStatusPaymentFailed) {
		s.logger.Warn("SUBSCRIPTION", "Payment failure ignored for non-active subscription", map[string]interface{}{
			"subscription_id": sub.Id,
			"status":          sub.Status,
		})
		return
	}

	update := contract.SubscriptionUpdate{Status: entity.SubscriptionStatusPaymentFailed, FailureReason: reason}
	ok, err := s.repo(ctx).Transition(ctx, sub.Id, entity.SourcesFor(entity.SubscriptionStatusPaymentFailed), nil, update)
	if !s.applied("payment_failure", sub, ok, err) {
		return
	}

	sub.Status = entity.SubscriptionStatusPaymentFailed
	sub.FailureReason = reason
	sub.UpdatedAt = s.clock.Now()
	s.recordTransition(entity.SubscriptionStatusPaymentFailed)

	details := map[string]interface{}{"subscription_id": sub.Id}
	if reason != nil {
		details["reason"] = *reason
	}
	s.logger.Warn("SUBSCRIPTION", "Subscription payment failed", details)

	s.dispatch(ctx, entity.LifecyclePaymentFailed, sub, nil, reason)
}

func (s *subscriptionService) CancelSubscription(ctx context.Context, sub *entity.Subscription) bool {
	if sub == nil {
		return false
	}
	if !entity.CanTransition(sub.Status, entity.SubscriptionStatusCancelled) {
		s.logger.Warn("SUBSCRIPTION", "Cancellation rejected", map[string]interface{}{
			"subscription_id": sub.Id,
			"status":          sub.Status,
		})
		return false
	}

	now := s.clock.Now()
	ok, err := s.repo(ctx).Transition(ctx, sub.Id,
		entity.SourcesFor(entity.SubscriptionStatusCancelled),
		nil,
		contract.SubscriptionUpdate{Status: entity.SubscriptionStatusCancelled, CancelledAt: &now},
	)
	if !s.applied("cancel", sub, ok, err) {
		return false
	}

	sub.Status = entity.SubscriptionStatusCancelled
	sub.CancelledAt = &now
	sub.UpdatedAt = now
	s.recordTransition(entity.SubscriptionStatusCancelled)

	s.logger.Info("SUBSCRIPTION", "Subscription cancelled", map[string]interface{}{"subscription_id": sub.Id})

	s.dispatch(ctx, entity.LifecycleCancelled, sub, nil, nil)
	return true
}

// expire moves an active subscription whose expiry has passed to expired.
// Only the expiration sweep calls it. The update is keyed on the expiry the
// sweep read, so a renewal that lands in between makes it a no-op.
func (s *subscriptionService) expire(ctx context.Context, sub *entity.Subscription, user *entity.User) (bool, error) {
	if !sub.ExpiresAt.Before(s.clock.Now()) {
		return false, nil
	}

	seenExpiry := sub.ExpiresAt
	ok, err := s.repo(ctx).Transition(ctx, sub.Id,
		entity.SourcesFor(entity.SubscriptionStatusExpired),
		&seenExpiry,
		contract.SubscriptionUpdate{Status: entity.SubscriptionStatusExpired},
	)
	if err != nil {
		return false, err
	}
	if !ok {
		s.recordConflict("expire")
		return false, nil
	}

	sub.Status = entity.SubscriptionStatusExpired
	sub.UpdatedAt = s.clock.Now()
	s.recordTransition(entity.SubscriptionStatusExpired)

	s.dispatch(ctx, entity.LifecycleExpired, sub, user, nil)
	return true, nil
}

// applied logs a failed or lost conditional update and reports whether the
// transition took effect.
func (s *subscriptionService) applied(operation string, sub *entity.Subscription, ok bool, err error) bool {
	if err != nil {
		s.logger.Error("SUBSCRIPTION", fmt.Sprintf("Failed to %s subscription", operation), map[string]interface{}{
			"subscription_id": sub.Id,
			"error":           err,
		})
		return false
	}
	if !ok {
		s.recordConflict(operation)
		s.logger.Warn("SUBSCRIPTION", "Subscription changed concurrently, transition skipped", map[string]interface{}{
			"subscription_id": sub.Id,
			"operation":       operation,
			"status":          sub.Status,
		})
		return false
	}
	return true
}

func (s *subscriptionService) dispatch(ctx context.Context, kind entity.LifecycleEvent, sub *entity.Subscription, user *entity.User, reason *string) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Dispatch(ctx, LifecycleEvent{
		Kind:         kind,
		Subscription: *sub,
		User:         user,
		Reason:       reason,
		OccurredAt:   s.clock.Now(),
	})
}

func (s *subscriptionService) recordTransition(to entity.SubscriptionStatus) {
	if s.metrics != nil {
		s.metrics.IncTransition(string(to))
	}
}

func (s *subscriptionService) recordConflict(operation string) {
	if s.metrics != nil {
		s.metrics.IncTransitionConflict(operation)
	}
}

func (s *subscriptionService) GetSubscription(ctx context.Context, id uuid.UUID) (*entity.Subscription, error) {
	sub, err := s.repo(ctx).FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrSubscriptionNotFound
	}
	return sub, nil
}

func (s *subscriptionService) ListUserSubscriptions(ctx context.Context, userId uuid.UUID) ([]*entity.Subscription, error) {
	return s.repo(ctx).FindByUser(ctx, userId)
}

func (s *subscriptionService) GetActiveSubscription(ctx context.Context, userId uuid.UUID) (*entity.Subscription, error) {
	sub, err := s.repo(ctx).FindActiveByUser(ctx, userId)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrSubscriptionNotFound
	}
	return sub, nil
}

func (s *subscriptionService) CountByStatus(ctx context.Context) (map[entity.SubscriptionStatus]int64, error) {
	return s.repo(ctx).CountByStatus(ctx)
}
