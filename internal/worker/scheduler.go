package worker

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// DefaultSchedule resets weekly XP at midnight between Sunday and Monday.
const DefaultSchedule = "0 0 * * MON"

// NewResetTask builds the weekly reset task. It is never retried.
func NewResetTask() *asynq.Task {
	return asynq.NewTask(
		TaskResetWeeklyXP,
		nil,
		asynq.MaxRetry(0),
		asynq.Timeout(5*time.Minute),
		asynq.Unique(time.Hour), // Prevent duplicate if scheduler runs twice
	)
}

// StartScheduler registers the weekly reset on its cron spec and starts the
// scheduler. Returns a stop function for graceful shutdown.
func StartScheduler(opts Options, logger *slog.Logger) (stop func(), err error) {
	schedule := opts.Schedule
	if schedule == "" {
		schedule = DefaultSchedule
	}
	location := opts.Location
	if location == nil {
		location = time.UTC
	}

	scheduler := asynq.NewScheduler(
		opts.redisOpt(),
		&asynq.SchedulerOpts{
			Location: location,
			LogLevel: asynq.InfoLevel,
			Logger:   &asynqLoggerAdapter{logger: logger},
		},
	)

	entryID, err := scheduler.Register(schedule, NewResetTask())
	if err != nil {
		return nil, fmt.Errorf("failed to register weekly reset schedule: %w", err)
	}
	if err := scheduler.Start(); err != nil {
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}

	logger.Info(
		"Scheduler started",
		"schedule", schedule,
		"timezone", location.String(),
		"entry_id", entryID,
	)
	return func() { scheduler.Shutdown() }, nil
}

// EnqueueReset queues a weekly reset right away, e.g. from the admin CLI.
func EnqueueReset(opts Options) error {
	client := asynq.NewClient(opts.redisOpt())
	defer client.Close()

	if _, err := client.Enqueue(NewResetTask()); err != nil {
		return fmt.Errorf("failed to enqueue weekly reset: %w", err)
	}
	return nil
}
