package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"marketplace-be/internal/config"
	"marketplace-be/internal/pkg/logger"
	"marketplace-be/internal/service"
	"marketplace-be/pkg/events"
	pkgnats "marketplace-be/pkg/nats"
)

const triggerDurable = "scheduler-job-trigger"

// TriggerSource delivers operator job triggers from the event bus.
type TriggerSource interface {
	Subscribe(subject string, durableName string, handler pkgnats.EventHandler) error
}

// Scheduler runs the sweeps on fixed intervals. Cross-instance exclusion comes
// from the job service's lock, so every instance may run a Scheduler.
type Scheduler struct {
	jobs     service.IJobService
	cfg      config.SchedulerConfig
	triggers TriggerSource
	logger   logger.ILogger
	wg       sync.WaitGroup
}

func NewScheduler(jobs service.IJobService, cfg config.SchedulerConfig, triggers TriggerSource, log logger.ILogger) *Scheduler {
	return &Scheduler{
		jobs:     jobs,
		cfg:      cfg,
		triggers: triggers,
		logger:   log,
	}
}

// Start launches one ticker loop per job and subscribes to bus triggers. The
// loops stop when ctx is cancelled; Wait blocks until they have.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.triggers != nil {
		if err := s.triggers.Subscribe(pkgnats.Subject(events.TypeJobTriggered), triggerDurable, s.handleTrigger); err != nil {
			return err
		}
	}

	s.every(ctx, service.JobExpire, s.cfg.ExpirationInterval, 0)
	s.every(ctx, service.JobReminders, s.cfg.ReminderInterval, s.cfg.ReminderDays)

	s.logger.Info("SCHEDULER", "Scheduler started", map[string]interface{}{
		"expiration_interval": s.cfg.ExpirationInterval.String(),
		"reminder_interval":   s.cfg.ReminderInterval.String(),
		"reminder_days":       s.cfg.ReminderDays,
	})
	return nil
}

func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) every(ctx context.Context, job string, interval time.Duration, days int) {
	if interval <= 0 {
		s.logger.Warn("SCHEDULER", "Job disabled, no interval configured", map[string]interface{}{"job": job})
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.run(ctx, job, days)
			}
		}
	}()
}

func (s *Scheduler) run(ctx context.Context, job string, days int) {
	summary, err := s.jobs.Run(ctx, job, days)
	switch {
	case errors.Is(err, service.ErrJobRunning):
		return
	case err != nil:
		s.logger.Error("SCHEDULER", "Scheduled job failed", map[string]interface{}{"job": job, "error": err})
	default:
		s.logger.Debug("SCHEDULER", summary.Message, map[string]interface{}{"job": job})
	}
}

// handleTrigger acknowledges every trigger. Redelivering a reminder run would
// send the reminders twice.
func (s *Scheduler) handleTrigger(ctx context.Context, event events.Event) error {
	payload := event.Payload()
	job, _ := payload["job"].(string)

	days := 0
	switch v := payload["days"].(type) {
	case float64:
		days = int(v)
	case int:
		days = v
	}

	s.logger.Info("SCHEDULER", "Job triggered from event bus", map[string]interface{}{"job": job, "days": days})
	s.run(ctx, job, days)
	return nil
}
