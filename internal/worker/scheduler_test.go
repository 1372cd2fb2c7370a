package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"marketplace-be/internal/config"
	"marketplace-be/internal/dto"
	"marketplace-be/internal/pkg/logger"
	"marketplace-be/internal/service"
	"marketplace-be/pkg/events"
	pkgnats "marketplace-be/pkg/nats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type jobCall struct {
	job  string
	days int
}

type fakeJobs struct {
	mu    sync.Mutex
	calls []jobCall
}

func (f *fakeJobs) Run(ctx context.Context, job string, days int) (*dto.JobSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, jobCall{job: job, days: days})
	return &dto.JobSummary{Job: job, Message: "ok"}, nil
}

func (f *fakeJobs) snapshot() []jobCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]jobCall(nil), f.calls...)
}

type fakeTriggers struct {
	subject string
	durable string
	handler pkgnats.EventHandler
}

func (f *fakeTriggers) Subscribe(subject, durableName string, handler pkgnats.EventHandler) error {
	f.subject = subject
	f.durable = durableName
	f.handler = handler
	return nil
}

func TestSchedulerRunsJobsOnInterval(t *testing.T) {
	jobs := &fakeJobs{}
	s := NewScheduler(jobs, config.SchedulerConfig{
		ExpirationInterval: 10 * time.Millisecond,
		ReminderInterval:   10 * time.Millisecond,
		ReminderDays:       3,
	}, nil, logger.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))

	assert.Eventually(t, func() bool {
		var expire, remind bool
		for _, c := range jobs.snapshot() {
			switch c.job {
			case service.JobExpire:
				expire = true
			case service.JobReminders:
				remind = c.days == 3
			}
		}
		return expire && remind
	}, time.Second, 5*time.Millisecond)

	cancel()
	s.Wait()
}

func TestSchedulerSkipsDisabledInterval(t *testing.T) {
	jobs := &fakeJobs{}
	s := NewScheduler(jobs, config.SchedulerConfig{ReminderInterval: 5 * time.Millisecond}, nil, logger.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	time.Sleep(40 * time.Millisecond)
	cancel()
	s.Wait()

	for _, c := range jobs.snapshot() {
		assert.Equal(t, service.JobReminders, c.job)
	}
}

func TestSchedulerHandlesBusTrigger(t *testing.T) {
	jobs := &fakeJobs{}
	triggers := &fakeTriggers{}
	s := NewScheduler(jobs, config.SchedulerConfig{}, triggers, logger.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))

	assert.Equal(t, "events.JOB_TRIGGERED", triggers.subject)
	assert.Equal(t, triggerDurable, triggers.durable)
	require.NotNil(t, triggers.handler)

	err := triggers.handler(ctx, events.BaseEvent{
		Type: events.TypeJobTriggered,
		Data: map[string]interface{}{"job": "reminders", "days": float64(14)},
	})
	require.NoError(t, err)
	assert.Equal(t, []jobCall{{job: service.JobReminders, days: 14}}, jobs.snapshot())
}
