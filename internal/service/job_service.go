package service

import (
	"context"
	"fmt"
	"time"

	"marketplace-be/internal/dto"
	"marketplace-be/internal/pkg/lock"
	"marketplace-be/internal/pkg/logger"
)

// IJobService runs a named sweep once, holding the job's lock for the run.
// Ticker, bus, HTTP and CLI triggers all go through it.
type IJobService interface {
	Run(ctx context.Context, job string, days int) (*dto.JobSummary, error)
}

type jobService struct {
	sweeps      ISweepService
	locker      lock.Locker
	lockTTL     time.Duration
	defaultDays int
	logger      logger.ILogger
}

func NewJobService(sweeps ISweepService, locker lock.Locker, lockTTL time.Duration, defaultDays int, log logger.ILogger) IJobService {
	if locker == nil {
		locker = lock.NewLocalLocker()
	}
	if lockTTL <= 0 {
		lockTTL = 10 * time.Minute
	}
	if defaultDays <= 0 {
		defaultDays = DefaultReminderDays
	}
	return &jobService{
		sweeps:      sweeps,
		locker:      locker,
		lockTTL:     lockTTL,
		defaultDays: defaultDays,
		logger:      log,
	}
}

func (s *jobService) Run(ctx context.Context, job string, days int) (*dto.JobSummary, error) {
	if job != JobReminders && job != JobExpire {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, job)
	}

	release, ok, err := s.locker.TryLock(ctx, "job:"+job, s.lockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.logger.Info("JOBS", "Skipping run, job already in progress", map[string]interface{}{"job": job})
		return nil, fmt.Errorf("%w: %s", ErrJobRunning, job)
	}
	defer release()

	summary := &dto.JobSummary{Job: job, StartedAt: time.Now()}

	switch job {
	case JobReminders:
		if days <= 0 {
			days = s.defaultDays
		}
		summary.Days = days
		summary.Processed, err = s.sweeps.SendReminders(ctx, days)
		summary.Message = fmt.Sprintf("sent %d reminder(s) for subscriptions expiring within %d day(s)", summary.Processed, days)
	case JobExpire:
		summary.Processed, err = s.sweeps.ExpireSubscriptions(ctx)
		summary.Message = fmt.Sprintf("expired %d subscription(s)", summary.Processed)
	}
	summary.Duration = time.Since(summary.StartedAt)

	if err != nil {
		s.logger.Error("JOBS", "Job failed", map[string]interface{}{"job": job, "error": err})
		return nil, err
	}

	s.logger.Info("JOBS", "Job finished", map[string]interface{}{
		"job":         job,
		"processed":   summary.Processed,
		"duration_ms": summary.Duration.Milliseconds(),
	})
	return summary, nil
}
