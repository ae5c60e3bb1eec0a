// Package worker runs the portal's scheduled jobs on asynq.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	TaskResetWeeklyXP = "gamification:reset_weekly_xp"
)

// WeeklyResetter zeroes weekly XP for every user.
type WeeklyResetter interface {
	ResetWeeklyXP(ctx context.Context) (int64, error)
}

// Options configures the worker and its scheduler.
type Options struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// Schedule is a cron spec for the weekly reset.
	Schedule string
	Location *time.Location
}

func (o Options) redisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: o.RedisAddr, Password: o.RedisPassword, DB: o.RedisDB}
}

// asynqLoggerAdapter wraps slog.Logger to implement asynq.Logger interface
type asynqLoggerAdapter struct {
	logger *slog.Logger
}

func (a *asynqLoggerAdapter) Debug(args ...interface{}) {
	a.logger.Debug(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Info(args ...interface{}) {
	a.logger.Info(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Warn(args ...interface{}) {
	a.logger.Warn(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Error(args ...interface{}) {
	a.logger.Error(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Fatal(args ...interface{}) {
	a.logger.Error(fmt.Sprint(args...))
	panic(fmt.Sprint(args...))
}

// Start runs the asynq server in the background and returns a stop function.
func Start(opts Options, resetter WeeklyResetter, logger *slog.Logger) (stop func(), err error) {
	srv := asynq.NewServer(
		opts.redisOpt(),
		asynq.Config{
			Concurrency:     1,
			ShutdownTimeout: 30 * time.Second,
			ErrorHandler:    asynq.ErrorHandlerFunc(makeErrorHandler(logger)),
			Logger:          &asynqLoggerAdapter{logger: logger},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskResetWeeklyXP, handleResetWeeklyXP(logger, resetter))

	if err := srv.Start(mux); err != nil {
		return nil, fmt.Errorf("failed to start worker: %w", err)
	}
	logger.Info("Worker started", "redis", opts.RedisAddr)
	return func() { srv.Shutdown() }, nil
}

// handleResetWeeklyXP runs the weekly reset. Failures are not retried; the
// next scheduled run resets again.
func handleResetWeeklyXP(logger *slog.Logger, resetter WeeklyResetter) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		n, err := resetter.ResetWeeklyXP(ctx)
		if err != nil {
			return fmt.Errorf("reset weekly xp: %v: %w", err, asynq.SkipRetry)
		}
		logger.Info("Weekly XP reset completed", "users", n)
		return nil
	}
}

// makeErrorHandler creates an error handler function with logger closure.
func makeErrorHandler(logger *slog.Logger) func(context.Context, *asynq.Task, error) {
	return func(ctx context.Context, task *asynq.Task, err error) {
		logger.Error(
			"Task execution failed",
			"task_type", task.Type(),
			"error", err.Error(),
		)
	}
}
