package service

import (
	"context"
	"testing"
	"time"

	"marketplace-be/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSweeps(f *fixture) ISweepService {
	return NewSweepService(f.store, f.dispatcher, f.clock, f.metrics, f.log)
}

func TestExpireSubscriptions(t *testing.T) {
	f := newFixture(t)
	user := f.user(t)

	overdue := []*entity.Subscription{
		f.seed(t, user, entity.SubscriptionStatusActive, testNow.Add(-time.Minute)),
		f.seed(t, user, entity.SubscriptionStatusActive, testNow.AddDate(0, 0, -3)),
	}
	boundary := f.seed(t, user, entity.SubscriptionStatusActive, testNow)
	future := f.seed(t, user, entity.SubscriptionStatusActive, testNow.AddDate(0, 0, 1))
	failed := f.seed(t, user, entity.SubscriptionStatusPaymentFailed, testNow.AddDate(0, 0, -1))

	n, err := newSweeps(f).ExpireSubscriptions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, sub := range overdue {
		assert.Equal(t, entity.SubscriptionStatusExpired, f.reload(t, sub.Id).Status)
	}
	assert.Equal(t, entity.SubscriptionStatusActive, f.reload(t, boundary.Id).Status, "expiry must be strictly in the past")
	assert.Equal(t, entity.SubscriptionStatusActive, f.reload(t, future.Id).Status)
	assert.Equal(t, entity.SubscriptionStatusPaymentFailed, f.reload(t, failed.Id).Status)

	expired := f.dispatcher.byKind(entity.LifecycleExpired)
	require.Len(t, expired, 2)
	seen := map[string]bool{}
	for _, evt := range expired {
		seen[evt.Subscription.Id.String()] = true
		assert.NotNil(t, evt.User, "recipient is preloaded")
	}
	assert.True(t, seen[overdue[0].Id.String()])
	assert.True(t, seen[overdue[1].Id.String()])
	assert.Equal(t, 2, f.metrics.get(f.metrics.swept, JobExpire))
}

func TestExpireSubscriptionsIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.seed(t, f.user(t), entity.SubscriptionStatusActive, testNow.AddDate(0, 0, -2))
	sweeps := newSweeps(f)

	first, err := sweeps.ExpireSubscriptions(context.Background())
	require.NoError(t, err)
	second, err := sweeps.ExpireSubscriptions(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, first)
	assert.Equal(t, 0, second)
	assert.Len(t, f.dispatcher.byKind(entity.LifecycleExpired), 1)
}

func TestSendReminders(t *testing.T) {
	f := newFixture(t)
	user := f.user(t)

	in3Days := f.seed(t, user, entity.SubscriptionStatusActive, testNow.AddDate(0, 0, 3))
	in6Days2h := f.seed(t, user, entity.SubscriptionStatusActive, testNow.Add(6*24*time.Hour+2*time.Hour))
	atEdge := f.seed(t, user, entity.SubscriptionStatusActive, testNow.AddDate(0, 0, 7))
	f.seed(t, user, entity.SubscriptionStatusActive, testNow.AddDate(0, 0, 8))
	f.seed(t, user, entity.SubscriptionStatusCancelled, testNow.AddDate(0, 0, 2))
	f.seed(t, user, entity.SubscriptionStatusActive, testNow.Add(-time.Hour))

	n, err := newSweeps(f).SendReminders(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	days := map[string]int{}
	for _, evt := range f.dispatcher.byKind(entity.LifecycleReminder) {
		days[evt.Subscription.Id.String()] = evt.DaysUntilExpiration
	}
	assert.Equal(t, map[string]int{
		in3Days.Id.String():   3,
		in6Days2h.Id.String(): 7,
		atEdge.Id.String():    7,
	}, days)

	// reminders never touch state
	assert.Equal(t, entity.SubscriptionStatusActive, f.reload(t, in3Days.Id).Status)
	assert.Equal(t, in3Days.ExpiresAt, f.reload(t, in3Days.Id).ExpiresAt)
}

func TestSendRemindersDefaultsAndRepeats(t *testing.T) {
	f := newFixture(t)
	f.seed(t, f.user(t), entity.SubscriptionStatusActive, testNow.AddDate(0, 0, 6))
	sweeps := newSweeps(f)

	n, err := sweeps.SendReminders(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// no dedup: a second run in the same window sends again
	n, err = sweeps.SendReminders(context.Background(), -1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, f.dispatcher.byKind(entity.LifecycleReminder), 2)
}

func TestDaysUntil(t *testing.T) {
	tests := []struct {
		name string
		in   time.Duration
		want int
	}{
		{name: "exact days", in: 3 * 24 * time.Hour, want: 3},
		{name: "partial day rounds up", in: 6*24*time.Hour + 2*time.Hour, want: 7},
		{name: "under a day", in: time.Minute, want: 1},
		{name: "now", in: 0, want: 0},
		{name: "past", in: -time.Hour, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysUntil(testNow, testNow.Add(tt.in)))
		})
	}
}
