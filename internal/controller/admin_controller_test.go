package controller

import (
	"context"
	"testing"

	"marketplace-be/internal/dto"
	"marketplace-be/internal/entity"
	"marketplace-be/internal/pkg/logger"
	"marketplace-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunExpireJob(t *testing.T) {
	a := newTestApp(t, nil, "")
	due := a.seed(t, a.user, entity.SubscriptionStatusActive, testNow.Add(-1))
	a.seed(t, a.user, entity.SubscriptionStatusActive, testNow.AddDate(0, 0, 1))

	status, res := a.do(t, "POST", "/api/admin/jobs/expire", a.admin, nil)
	require.Equal(t, 200, status, res.Message)
	summary := decode[dto.JobSummary](t, res.Data)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, "expired 1 subscription(s)", res.Message)

	got, err := a.store.Subscriptions.FindByID(context.Background(), due.Id)
	require.NoError(t, err)
	assert.Equal(t, entity.SubscriptionStatusExpired, got.Status)
}

func TestRunReminderJobWithDays(t *testing.T) {
	a := newTestApp(t, nil, "")
	a.seed(t, a.user, entity.SubscriptionStatusActive, testNow.AddDate(0, 0, 2))
	a.seed(t, a.user, entity.SubscriptionStatusActive, testNow.AddDate(0, 0, 6))

	status, res := a.do(t, "POST", "/api/admin/jobs/reminders?days=3", a.admin, nil)
	require.Equal(t, 200, status, res.Message)
	summary := decode[dto.JobSummary](t, res.Data)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 3, summary.Days)
}

func TestRunJobRejections(t *testing.T) {
	a := newTestApp(t, nil, "")

	status, _ := a.do(t, "POST", "/api/admin/jobs/expire", a.user, nil)
	assert.Equal(t, 403, status)

	status, _ = a.do(t, "POST", "/api/admin/jobs/backfill", a.admin, nil)
	assert.Equal(t, 400, status)

	status, res := a.do(t, "POST", "/api/admin/jobs/reminders?days=400", a.admin, nil)
	assert.Equal(t, 400, status)
	assert.Contains(t, res.Errors, "days")
}

func TestRunJobAsyncPublishesTrigger(t *testing.T) {
	a := newTestApp(t, nil, "")

	status, _ := a.do(t, "POST", "/api/admin/jobs/reminders?days=5&async=true", a.admin, nil)
	require.Equal(t, 202, status)

	require.Len(t, a.publisher.events, 1)
	evt := a.publisher.events[0]
	assert.Equal(t, events.TypeJobTriggered, evt.EventType())
	assert.Equal(t, "reminders", evt.Payload()["job"])
	assert.Equal(t, 5, evt.Payload()["days"])
}

func TestSubscriptionStats(t *testing.T) {
	a := newTestApp(t, nil, "")
	a.seed(t, a.user, entity.SubscriptionStatusActive, testNow.AddDate(0, 0, 3))
	a.seed(t, a.user, entity.SubscriptionStatusActive, testNow.AddDate(0, 0, 9))
	a.seed(t, a.user, entity.SubscriptionStatusExpired, testNow.AddDate(0, 0, -9))

	status, res := a.do(t, "GET", "/api/admin/subscriptions/stats", a.admin, nil)
	require.Equal(t, 200, status)
	counts := decode[map[string]int64](t, res.Data)
	assert.Equal(t, int64(2), counts["active"])
	assert.Equal(t, int64(1), counts["expired"])
}

func TestLogEndpoints(t *testing.T) {
	a := newTestApp(t, nil, "")
	a.logs.entries = []logger.LogEntry{
		{Id: "1", Level: "INFO", Message: "Scheduler started", Module: "SCHEDULER", Timestamp: "2024-03-10T09:00:00Z"},
		{Id: "2", Level: "ERROR", Message: "Gateway initialize failed", Module: "PAYMENT", Details: map[string]interface{}{"reference": "sub_1"}, Timestamp: "2024-03-10T09:01:00Z"},
	}

	status, res := a.do(t, "GET", "/api/admin/logs?level=ERROR", a.admin, nil)
	require.Equal(t, 200, status)
	list := decode[[]dto.LogListResponse](t, res.Data)
	require.Len(t, list, 1)
	assert.Equal(t, "PAYMENT", list[0].Module)

	status, res = a.do(t, "GET", "/api/admin/logs/2", a.admin, nil)
	require.Equal(t, 200, status)
	detail := decode[dto.LogDetailResponse](t, res.Data)
	assert.Equal(t, "sub_1", detail.Details["reference"])

	status, _ = a.do(t, "GET", "/api/admin/logs/missing", a.admin, nil)
	assert.Equal(t, 404, status)
}
