package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"maternar/config"
	"maternar/internal/events"
	"maternar/memstore"
	"maternar/models"
	"maternar/store"
	"maternar/utils"
)

// flakyStore fails activity writes while failActivity is set, inside
// transactions too.
type flakyStore struct {
	*memstore.Store
	failActivity bool
}

func (f *flakyStore) AppendActivity(ctx context.Context, a *models.ActivityLog) error {
	if f.failActivity {
		return errActivityDown
	}
	return f.Store.AppendActivity(ctx, a)
}

func (f *flakyStore) WithTx(ctx context.Context, fn func(tx store.Store) error) error {
	return f.Store.WithTx(ctx, func(store.Store) error { return fn(f) })
}

var errActivityDown = errors.New("activity log unavailable")

type testEnv struct {
	store *memstore.Store
	bus   *events.MemoryBus
	svc   *Services
	now   time.Time
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWith(t, nil)
}

// newTestEnvWith builds the services over wrap(store) so tests can inject
// failures. The env keeps the bare memstore for assertions.
func newTestEnvWith(t *testing.T, wrap func(*memstore.Store) store.Store) *testEnv {
	t.Helper()
	cfg := config.Default()
	cfg.JWT.Secret = "test-secret"
	cfg.Auth.BcryptCost = 4

	st := memstore.New()
	var backing store.Store = st
	if wrap != nil {
		backing = wrap(st)
	}
	bus := events.NewMemoryBus()
	svc, err := New(cfg, backing, bus, nil, discardLogger())
	require.NoError(t, err)

	env := &testEnv{store: st, bus: bus, svc: svc, now: time.Now().UTC().Truncate(time.Second)}
	clock := func() time.Time { return env.now }
	svc.Auth.now = clock
	svc.Gamification.now = clock
	svc.Notifications.now = clock
	svc.Courses.now = clock
	svc.Policies.now = clock
	svc.Dashboard.now = clock
	return env
}

// addUser stores an active user with a known password.
func (env *testEnv) addUser(t *testing.T, email, role string) *models.User {
	t.Helper()
	hash, err := utils.HashPassword("secret123", 4)
	require.NoError(t, err)
	u := &models.User{
		Email:        email,
		Username:     utils.UsernameFromEmail(email),
		FirstName:    "Test",
		LastName:     "User",
		Role:         role,
		IsActive:     true,
		PasswordHash: hash,
		Level:        1,
	}
	require.NoError(t, env.store.CreateUser(context.Background(), u))
	return u
}

func (env *testEnv) reload(t *testing.T, id uint) *models.User {
	t.Helper()
	u, err := env.store.GetUserByID(context.Background(), id)
	require.NoError(t, err)
	return u
}
