package service

import (
	"context"
	"fmt"
	"time"

	"marketplace-be/internal/entity"
	"marketplace-be/internal/metrics"
	"marketplace-be/internal/pkg/clock"
	"marketplace-be/internal/pkg/logger"
	"marketplace-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

const (
	DefaultReminderDays = 7

	JobReminders = "reminders"
	JobExpire    = "expire"
)

type ISweepService interface {
	// ExpireSubscriptions expires every active subscription whose expiry is in
	// the past and returns how many were transitioned.
	ExpireSubscriptions(ctx context.Context) (int, error)
	// SendReminders notifies every active subscription expiring within days
	// (DefaultReminderDays when days <= 0). It never changes state.
	SendReminders(ctx context.Context, days int) (int, error)
}

type sweepService struct {
	lifecycle *subscriptionService
	metrics   metrics.Recorder
	logger    logger.ILogger
}

// NewSweepService shares the lifecycle manager's transition code, so expiry
// goes through the same conditional update and dispatch as every other change.
func NewSweepService(uowFactory unitofwork.RepositoryFactory, dispatcher Dispatcher, clk clock.Clock, rec metrics.Recorder, log logger.ILogger) ISweepService {
	return &sweepService{
		lifecycle: newSubscriptionService(uowFactory, dispatcher, clk, rec, log),
		metrics:   rec,
		logger:    log,
	}
}

func (s *sweepService) ExpireSubscriptions(ctx context.Context) (int, error) {
	started := time.Now()
	now := s.lifecycle.clock.Now()
	uow := s.lifecycle.uowFactory.NewUnitOfWork(ctx)

	due, err := uow.SubscriptionRepository().FindDueForExpiration(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("select expired subscriptions: %w", err)
	}
	users := s.recipients(ctx, due)

	expired := 0
	for _, sub := range due {
		ok, err := s.lifecycle.expire(ctx, sub, users[sub.UserId])
		if err != nil {
			s.logger.Error("SWEEP", "Failed to expire subscription", map[string]interface{}{
				"subscription_id": sub.Id,
				"error":           err,
			})
			continue
		}
		if ok {
			expired++
		}
	}

	s.observe(JobExpire, expired, started)
	s.logger.Info("SWEEP", fmt.Sprintf("Expired %d of %d due subscriptions", expired, len(due)), map[string]interface{}{
		"job":       JobExpire,
		"selected":  len(due),
		"processed": expired,
	})
	return expired, nil
}

func (s *sweepService) SendReminders(ctx context.Context, days int) (int, error) {
	if days <= 0 {
		days = DefaultReminderDays
	}
	started := time.Now()
	now := s.lifecycle.clock.Now()
	uow := s.lifecycle.uowFactory.NewUnitOfWork(ctx)

	expiring, err := uow.SubscriptionRepository().FindExpiringBetween(ctx, now, now.AddDate(0, 0, days))
	if err != nil {
		return 0, fmt.Errorf("select expiring subscriptions: %w", err)
	}
	users := s.recipients(ctx, expiring)

	for _, sub := range expiring {
		if s.lifecycle.dispatcher == nil {
			break
		}
		s.lifecycle.dispatcher.Dispatch(ctx, LifecycleEvent{
			Kind:                entity.LifecycleReminder,
			Subscription:        *sub,
			User:                users[sub.UserId],
			DaysUntilExpiration: DaysUntil(now, sub.ExpiresAt),
			OccurredAt:          now,
		})
	}

	s.observe(JobReminders, len(expiring), started)
	s.logger.Info("SWEEP", fmt.Sprintf("Sent %d reminders for subscriptions expiring within %d days", len(expiring), days), map[string]interface{}{
		"job":       JobReminders,
		"days":      days,
		"processed": len(expiring),
	})
	return len(expiring), nil
}

// DaysUntil counts whole days from now to t, rounding a partial day up:
// 6d2h is 7, exactly 3d is 3. Any expiry still ahead counts as at least one
// day, so a reminder never reads "expires in 0 days"; past or equal is 0.
func DaysUntil(now, t time.Time) int {
	remaining := t.Sub(now)
	if remaining <= 0 {
		return 0
	}
	const day = 24 * time.Hour
	days := int(remaining / day)
	if remaining%day != 0 {
		days++
	}
	return days
}

// recipients batch-loads the users behind subs. A failed lookup is logged and
// left to the dispatcher, which loads users one by one.
func (s *sweepService) recipients(ctx context.Context, subs []*entity.Subscription) map[uuid.UUID]*entity.User {
	if len(subs) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(subs))
	seen := make(map[uuid.UUID]bool, len(subs))
	for _, sub := range subs {
		if !seen[sub.UserId] {
			seen[sub.UserId] = true
			ids = append(ids, sub.UserId)
		}
	}

	users, err := s.lifecycle.uowFactory.NewUnitOfWork(ctx).UserRepository().FindByIDs(ctx, ids)
	if err != nil {
		s.logger.Warn("SWEEP", "Failed to preload notification recipients", map[string]interface{}{"error": err.Error()})
		return nil
	}
	return users
}

func (s *sweepService) observe(job string, processed int, started time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveSweep(job, processed, time.Since(started))
	}
}
