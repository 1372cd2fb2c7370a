// Command jobs runs one sweep and exits. It takes the same distributed lock
// as the server's scheduler, so it is safe to run from cron next to it.
//
//	jobs reminders -days 7
//	jobs expire
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"marketplace-be/internal/bootstrap"
	"marketplace-be/internal/config"
	"marketplace-be/internal/service"
	"marketplace-be/pkg/database"

	"github.com/fatih/color"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: jobs <reminders [-days N] | expire>")
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	job := os.Args[1]
	fs := flag.NewFlagSet(job, flag.ExitOnError)
	days := fs.Int("days", 0, "reminder window in days (default from SCHEDULER_REMINDER_DAYS)")

	switch job {
	case service.JobReminders, service.JobExpire:
		_ = fs.Parse(os.Args[2:])
	default:
		usage()
	}

	cfg := config.Load()
	// no tickers, and deliveries finish before the process exits
	cfg.Scheduler.Enabled = false
	cfg.Notification.Mode = "sync"

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, false)
	if err != nil {
		color.Red("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	container := bootstrap.NewContainer(db, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := container.Start(ctx); err != nil {
		color.Red("Failed to start: %v", err)
		os.Exit(1)
	}

	color.Cyan("▶ Running %s job", job)
	summary, err := container.JobService.Run(ctx, job, *days)
	stop()
	container.Close()

	if err != nil {
		if errors.Is(err, service.ErrJobRunning) {
			color.Yellow("Skipped: %v", err)
			return
		}
		color.Red("Failed: %v", err)
		os.Exit(1)
	}

	color.Green("✅ %s", summary.Message)
	fmt.Printf("   processed: %d\n   duration:  %s\n", summary.Processed, summary.Duration)
}
