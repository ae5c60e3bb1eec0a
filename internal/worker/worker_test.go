package worker

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResetter struct {
	calls int
	err   error
}

func (f *fakeResetter) ResetWeeklyXP(ctx context.Context) (int64, error) {
	f.calls++
	return 3, f.err
}

func TestHandleResetWeeklyXP(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	r := &fakeResetter{}

	err := handleResetWeeklyXP(logger, r)(context.Background(), NewResetTask())
	require.NoError(t, err)
	assert.Equal(t, 1, r.calls)
	assert.Contains(t, buf.String(), "users=3")
}

func TestHandleResetWeeklyXPSkipsRetry(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	r := &fakeResetter{err: errors.New("db down")}

	err := handleResetWeeklyXP(logger, r)(context.Background(), NewResetTask())
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestNewResetTask(t *testing.T) {
	task := NewResetTask()
	assert.Equal(t, TaskResetWeeklyXP, task.Type())
	assert.Empty(t, task.Payload())
}

func TestAsynqLoggerAdapter(t *testing.T) {
	var buf bytes.Buffer
	a := &asynqLoggerAdapter{logger: slog.New(slog.NewTextHandler(&buf, nil))}
	a.Info("scheduler ", "ready")
	assert.Contains(t, buf.String(), "scheduler ready")
	assert.Panics(t, func() { a.Fatal("boom") })
}
