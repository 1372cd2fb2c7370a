package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"marketplace-be/internal/entity"
	"marketplace-be/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSubscription(t *testing.T) {
	f := newFixture(t)
	user := f.user(t)
	method := "card"

	sub, err := f.svc.CreateSubscription(context.Background(), user, "Pro", 2000, &method, map[string]interface{}{"seats": 3})
	require.NoError(t, err)

	assert.Equal(t, entity.SubscriptionStatusActive, sub.Status)
	assert.Equal(t, testNow, sub.StartsAt)
	assert.Equal(t, sub.StartsAt.AddDate(0, 1, 0), sub.ExpiresAt)
	assert.Equal(t, sub.ExpiresAt, sub.NextBillingDate)
	assert.Equal(t, 2000.0, sub.Price)

	stored := f.reload(t, sub.Id)
	assert.Equal(t, "Pro", stored.PlanName)
	assert.Equal(t, "card", *stored.PaymentMethod)

	activated := f.dispatcher.byKind(entity.LifecycleActivated)
	require.Len(t, activated, 1)
	assert.Equal(t, sub.Id, activated[0].Subscription.Id)
	assert.Equal(t, user, activated[0].User)
	assert.Len(t, f.dispatcher.kinds(), 1)
}

func TestCreateSubscriptionClampsMonthEnd(t *testing.T) {
	f := newFixture(t)
	f.clock.Set(time.Date(2024, time.January, 31, 12, 0, 0, 0, time.UTC))

	sub, err := f.svc.CreateSubscription(context.Background(), f.user(t), "Pro", 10, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.February, 29, 12, 0, 0, 0, time.UTC), sub.ExpiresAt)
}

func TestCreateSubscriptionWithoutUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateSubscription(context.Background(), nil, "Pro", 10, nil, nil)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Empty(t, f.dispatcher.kinds())
}

func TestRenewAdvancesFromCurrentExpiry(t *testing.T) {
	expiry := time.Date(2024, time.March, 20, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
	}{
		{name: "early", now: expiry.AddDate(0, 0, -10)},
		{name: "late", now: expiry.AddDate(0, 0, 5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.clock.Set(tt.now)
			sub := f.seed(t, f.user(t), entity.SubscriptionStatusActive, expiry)

			require.True(t, f.svc.RenewSubscription(context.Background(), sub))

			stored := f.reload(t, sub.Id)
			assert.Equal(t, time.Date(2024, time.April, 20, 9, 0, 0, 0, time.UTC), stored.ExpiresAt)
			assert.Equal(t, stored.ExpiresAt, stored.NextBillingDate)
			assert.Equal(t, entity.SubscriptionStatusActive, stored.Status)
			assert.Equal(t, stored.ExpiresAt, sub.ExpiresAt, "caller's copy is updated")
			assert.Equal(t, []entity.LifecycleEvent{entity.LifecycleRenewed}, f.dispatcher.kinds())
		})
	}
}

func TestRenewRecoversPaymentFailed(t *testing.T) {
	f := newFixture(t)
	sub := f.seed(t, f.user(t), entity.SubscriptionStatusPaymentFailed, testNow.AddDate(0, 0, 3))

	require.True(t, f.svc.RenewSubscription(context.Background(), sub))
	assert.Equal(t, entity.SubscriptionStatusActive, f.reload(t, sub.Id).Status)
}

func TestRenewClearsStoredFailureReason(t *testing.T) {
	f := newFixture(t)
	sub := f.seed(t, f.user(t), entity.SubscriptionStatusActive, testNow.AddDate(0, 0, 3))
	reason := "Insufficient Funds"
	f.svc.HandlePaymentFailure(context.Background(), sub, &reason)

	failed := f.reload(t, sub.Id)
	require.NotNil(t, failed.FailureReason)

	require.True(t, f.svc.RenewSubscription(context.Background(), failed))
	stored := f.reload(t, sub.Id)
	assert.Equal(t, entity.SubscriptionStatusActive, stored.Status)
	assert.Nil(t, stored.FailureReason)
	assert.Nil(t, failed.FailureReason)
}

func TestRenewRejectsTerminalStates(t *testing.T) {
	for _, status := range []entity.SubscriptionStatus{entity.SubscriptionStatusCancelled, entity.SubscriptionStatusExpired} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture(t)
			sub := f.seed(t, f.user(t), status, testNow.AddDate(0, 0, -1))

			assert.False(t, f.svc.RenewSubscription(context.Background(), sub))
			assert.Equal(t, status, f.reload(t, sub.Id).Status)
			assert.Empty(t, f.dispatcher.kinds())
		})
	}
}

func TestRenewWithStaleCopyIsNotAppliedTwice(t *testing.T) {
	f := newFixture(t)
	sub := f.seed(t, f.user(t), entity.SubscriptionStatusActive, testNow.AddDate(0, 0, 2))
	stale := *sub

	require.True(t, f.svc.RenewSubscription(context.Background(), sub))
	assert.False(t, f.svc.RenewSubscription(context.Background(), &stale))

	assert.Equal(t, testNow.AddDate(0, 0, 2).AddDate(0, 1, 0), f.reload(t, sub.Id).ExpiresAt)
	assert.Equal(t, 1, f.metrics.get(f.metrics.conflicts, "renew"))
}

func TestRenewNil(t *testing.T) {
	f := newFixture(t)
	assert.False(t, f.svc.RenewSubscription(context.Background(), nil))
}

func TestHandlePaymentFailure(t *testing.T) {
	f := newFixture(t)
	sub := f.seed(t, f.user(t), entity.SubscriptionStatusActive, testNow.AddDate(0, 0, 5))
	expires, billing := sub.ExpiresAt, sub.NextBillingDate
	reason := "card declined"

	f.svc.HandlePaymentFailure(context.Background(), sub, &reason)

	stored := f.reload(t, sub.Id)
	assert.Equal(t, entity.SubscriptionStatusPaymentFailed, stored.Status)
	assert.Equal(t, expires, stored.ExpiresAt)
	assert.Equal(t, billing, stored.NextBillingDate)
	require.NotNil(t, stored.FailureReason)
	assert.Equal(t, reason, *stored.FailureReason)

	failed := f.dispatcher.byKind(entity.LifecyclePaymentFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, reason, *failed[0].Reason)
}

func TestHandlePaymentFailureSurvivesNotificationFailure(t *testing.T) {
	store := memory.NewStore()
	f := newFixture(t)
	user := &entity.User{Email: "x@example.com", EmailNotifications: true, PushNotifications: true}
	require.NoError(t, store.Users.Create(context.Background(), user))

	email := &fakeEmail{panic: true}
	push := &fakePush{err: errBoom}
	notifier := NewNotifier(email, store.Notifications, push, f.metrics, f.log)
	dispatcher := NewSyncDispatcher(store.Users, notifier, &recordingPublisher{err: errBoom}, "https://app.test", f.log)
	svc := newSubscriptionService(store, dispatcher, f.clock, f.metrics, f.log)

	sub := &entity.Subscription{
		UserId:          user.Id,
		PlanName:        "Pro",
		Status:          entity.SubscriptionStatusActive,
		ExpiresAt:       testNow.AddDate(0, 0, 9),
		NextBillingDate: testNow.AddDate(0, 0, 9),
	}
	require.NoError(t, store.Subscriptions.Create(context.Background(), sub))

	assert.NotPanics(t, func() { svc.HandlePaymentFailure(context.Background(), sub, nil) })

	stored, err := store.Subscriptions.FindByID(context.Background(), sub.Id)
	require.NoError(t, err)
	assert.Equal(t, entity.SubscriptionStatusPaymentFailed, stored.Status)
	assert.Equal(t, testNow.AddDate(0, 0, 9), stored.ExpiresAt)
	assert.Equal(t, 1, f.metrics.get(f.metrics.notified, "email:failed"))
	assert.Equal(t, 1, f.metrics.get(f.metrics.notified, "push:failed"))
}

func TestHandlePaymentFailureIgnoresNonActive(t *testing.T) {
	f := newFixture(t)
	sub := f.seed(t, f.user(t), entity.SubscriptionStatusCancelled, testNow.AddDate(0, 0, 5))

	f.svc.HandlePaymentFailure(context.Background(), sub, nil)
	assert.Equal(t, entity.SubscriptionStatusCancelled, f.reload(t, sub.Id).Status)
	assert.Empty(t, f.dispatcher.kinds())
}

func TestCancelSubscription(t *testing.T) {
	f := newFixture(t)
	sub := f.seed(t, f.user(t), entity.SubscriptionStatusActive, testNow.AddDate(0, 0, 5))

	require.True(t, f.svc.CancelSubscription(context.Background(), sub))

	stored := f.reload(t, sub.Id)
	assert.Equal(t, entity.SubscriptionStatusCancelled, stored.Status)
	require.NotNil(t, stored.CancelledAt)
	assert.Equal(t, testNow, *stored.CancelledAt)
	assert.Equal(t, []entity.LifecycleEvent{entity.LifecycleCancelled}, f.dispatcher.kinds())

	// cancelled is terminal
	assert.False(t, f.svc.CancelSubscription(context.Background(), stored))
	assert.Len(t, f.dispatcher.kinds(), 1)
}

func TestCancelRacingExpiryHasOneWinner(t *testing.T) {
	f := newFixture(t)
	sub := f.seed(t, f.user(t), entity.SubscriptionStatusActive, testNow.Add(-time.Hour))
	copyForCancel := *sub

	ok, err := f.svc.expire(context.Background(), sub, nil)
	require.NoError(t, err)
	require.True(t, ok)

	assert.False(t, f.svc.CancelSubscription(context.Background(), &copyForCancel))
	assert.Equal(t, entity.SubscriptionStatusExpired, f.reload(t, sub.Id).Status)
}

func TestExpireSkipsRowRenewedAfterSweepRead(t *testing.T) {
	f := newFixture(t)
	sub := f.seed(t, f.user(t), entity.SubscriptionStatusActive, testNow.Add(-time.Hour))
	readBySweep := *sub

	require.True(t, f.svc.RenewSubscription(context.Background(), sub))

	ok, err := f.svc.expire(context.Background(), &readBySweep, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	stored := f.reload(t, sub.Id)
	assert.Equal(t, entity.SubscriptionStatusActive, stored.Status)
	assert.True(t, stored.ExpiresAt.After(testNow))
	assert.Empty(t, f.dispatcher.byKind(entity.LifecycleExpired))
}

func TestGetSubscriptionNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GetSubscription(context.Background(), f.user(t).Id)
	assert.True(t, errors.Is(err, ErrSubscriptionNotFound))

	_, err = f.svc.GetActiveSubscription(context.Background(), f.user(t).Id)
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
}

func TestGetActiveSubscriptionPicksLatestExpiry(t *testing.T) {
	f := newFixture(t)
	user := f.user(t)
	f.seed(t, user, entity.SubscriptionStatusActive, testNow.AddDate(0, 0, 3))
	later := f.seed(t, user, entity.SubscriptionStatusActive, testNow.AddDate(0, 0, 20))
	f.seed(t, user, entity.SubscriptionStatusExpired, testNow.AddDate(0, 2, 0))

	active, err := f.svc.GetActiveSubscription(context.Background(), user.Id)
	require.NoError(t, err)
	assert.Equal(t, later.Id, active.Id)

	all, err := f.svc.ListUserSubscriptions(context.Background(), user.Id)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestGrantSubscription(t *testing.T) {
	f := newFixture(t)
	user := f.user(t)

	sub, err := f.svc.GrantSubscription(context.Background(), user.Id, "Team", 50, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, user.Id, sub.UserId)
	assert.Len(t, f.dispatcher.byKind(entity.LifecycleActivated), 1)

	_, err = f.svc.GrantSubscription(context.Background(), uuid.New(), "Team", 50, nil, nil)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
