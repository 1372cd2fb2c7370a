package service

import (
	"context"
	"encoding/json"
	"testing"

	"marketplace-be/internal/entity"
	"marketplace-be/internal/pkg/logger"
	"marketplace-be/internal/pkg/mailer"
	"marketplace-be/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMessage(subID uuid.UUID) NotificationMessage {
	return NotificationMessage{
		Subject:     "Your Pro subscription has been renewed",
		TemplateKey: mailer.TemplateSubscriptionRenewed,
		Title:       "Subscription renewed",
		Body:        "Your Pro plan now runs until April 10, 2024.",
		Push: PushPayload{
			DeepLink: "https://app.test/subscriptions/" + subID.String(),
			Data:     map[string]interface{}{"subscription_id": subID.String()},
		},
	}
}

func TestNotifyBothChannels(t *testing.T) {
	inbox := memory.NewNotificationRepository()
	email := &fakeEmail{}
	push := &fakePush{}
	rec := newCountingRecorder()
	n := NewNotifier(email, inbox, push, rec, logger.NewNopLogger())

	token := "device-1"
	user := &entity.User{Id: uuid.New(), Email: "a@example.com", PushToken: &token, EmailNotifications: true, PushNotifications: true}
	subID := uuid.New()

	res := n.Notify(context.Background(), user, sampleMessage(subID))
	assert.Equal(t, NotifyResult{EmailSent: true, PushSent: true}, res)
	assert.Equal(t, []string{mailer.TemplateSubscriptionRenewed}, email.sent)

	require.Len(t, push.sent, 1)
	sent := push.sent[0]
	assert.Equal(t, user.Id, sent.UserID)
	assert.Equal(t, "Subscription renewed", sent.Title)
	require.NotNil(t, sent.EntityID)
	assert.Equal(t, subID, *sent.EntityID)

	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(sent.Metadata, &meta))
	assert.Equal(t, "https://app.test/subscriptions/"+subID.String(), meta["action_url"])
	assert.Equal(t, "device-1", meta["push_token"])

	unread, err := inbox.GetUnreadCount(context.Background(), user.Id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	assert.Equal(t, 1, rec.get(rec.notified, "email:sent"))
	assert.Equal(t, 1, rec.get(rec.notified, "push:sent"))
}

func TestNotifyChannelsAreIndependent(t *testing.T) {
	tests := []struct {
		name  string
		email *fakeEmail
		push  *fakePush
		want  NotifyResult
	}{
		{name: "email error", email: &fakeEmail{err: errBoom}, push: &fakePush{}, want: NotifyResult{PushSent: true}},
		{name: "email panic", email: &fakeEmail{panic: true}, push: &fakePush{}, want: NotifyResult{PushSent: true}},
		{name: "push error", email: &fakeEmail{}, push: &fakePush{err: errBoom}, want: NotifyResult{EmailSent: true}},
		{name: "both fail", email: &fakeEmail{err: errBoom}, push: &fakePush{err: errBoom}, want: NotifyResult{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewNotifier(tt.email, memory.NewNotificationRepository(), tt.push, newCountingRecorder(), logger.NewNopLogger())
			user := &entity.User{Id: uuid.New(), Email: "a@example.com", EmailNotifications: true, PushNotifications: true}

			var res NotifyResult
			assert.NotPanics(t, func() { res = n.Notify(context.Background(), user, sampleMessage(uuid.New())) })
			assert.Equal(t, tt.want, res)
		})
	}
}

func TestNotifyRespectsPreferences(t *testing.T) {
	email := &fakeEmail{}
	push := &fakePush{}
	rec := newCountingRecorder()
	n := NewNotifier(email, memory.NewNotificationRepository(), push, rec, logger.NewNopLogger())

	user := &entity.User{Id: uuid.New(), Email: "a@example.com"}
	res := n.Notify(context.Background(), user, sampleMessage(uuid.New()))

	assert.Equal(t, NotifyResult{}, res)
	assert.Empty(t, email.sent)
	assert.Empty(t, push.sent)
	assert.Equal(t, 0, rec.get(rec.notified, "email:failed"), "skipped channels are not failures")
}

func TestNotifyNilUser(t *testing.T) {
	n := NewNotifier(&fakeEmail{}, nil, nil, nil, logger.NewNopLogger())
	assert.Equal(t, NotifyResult{}, n.Notify(context.Background(), nil, sampleMessage(uuid.New())))
}

func TestBuildMessage(t *testing.T) {
	user := &entity.User{Id: uuid.New(), FullName: "Ada"}
	sub := entity.Subscription{
		Id:        uuid.New(),
		UserId:    user.Id,
		PlanName:  "Pro",
		Price:     2000,
		Status:    entity.SubscriptionStatusActive,
		ExpiresAt: testNow.AddDate(0, 0, 3),
	}
	reason := "insufficient funds"

	reminder := BuildMessage(user, LifecycleEvent{Kind: entity.LifecycleReminder, Subscription: sub, DaysUntilExpiration: 3}, "https://app.test/")
	assert.Equal(t, mailer.TemplateSubscriptionReminder, reminder.TemplateKey)
	assert.Contains(t, reminder.Subject, "3 day(s)")
	assert.Equal(t, 3, reminder.TemplateData["days_until_expiration"])
	assert.Equal(t, "https://app.test/subscriptions/"+sub.Id.String(), reminder.Push.DeepLink)
	assert.Equal(t, 3, reminder.Push.Data["days_until_expiration"])

	failed := BuildMessage(user, LifecycleEvent{Kind: entity.LifecyclePaymentFailed, Subscription: sub, Reason: &reason}, "https://app.test")
	assert.Equal(t, mailer.TemplateSubscriptionPaymentFailed, failed.TemplateKey)
	assert.Contains(t, failed.Body, reason)
	assert.Equal(t, reason, failed.TemplateData["reason"])
	assert.Equal(t, "2000.00", failed.TemplateData["price"])
}

func TestLifecycleDomainEvent(t *testing.T) {
	sub := entity.Subscription{Id: uuid.New(), UserId: uuid.New(), PlanName: "Pro", Status: entity.SubscriptionStatusExpired}
	evt := LifecycleEvent{Kind: entity.LifecycleExpired, Subscription: sub, OccurredAt: testNow}.DomainEvent()

	assert.Equal(t, "SUBSCRIPTION_EXPIRED", evt.EventType())
	assert.Equal(t, sub.Id.String(), evt.Payload()["subscription_id"])
	assert.Equal(t, "expired", evt.Payload()["status"])
	assert.Equal(t, testNow, evt.Timestamp())
}
