package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maternar/internal/ratelimit"
	"maternar/memstore"
	"maternar/models"
	"maternar/store"
)

func validRegistration() RegisterInput {
	return RegisterInput{
		Email:     "Maria.Silva@Maternar.com",
		Password:  "secret123",
		FirstName: "Maria",
		LastName:  "Silva",
	}
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u, err := env.svc.Auth.Register(ctx, validRegistration())
	require.NoError(t, err)
	assert.Equal(t, "maria.silva@maternar.com", u.Email)
	assert.Equal(t, "mariasilva", u.Username)
	assert.Equal(t, models.RoleUser, u.Role)
	assert.Equal(t, 1, u.Level)
	assert.Zero(t, u.TotalXP)
	assert.Zero(t, u.CurrentStreak)
	assert.NotEqual(t, "secret123", u.PasswordHash)
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(in *RegisterInput)
		message string
	}{
		{"bad email", func(in *RegisterInput) { in.Email = "bad" }, "email must be a valid email address"},
		{"missing email", func(in *RegisterInput) { in.Email = "" }, "email is required"},
		{"missing password", func(in *RegisterInput) { in.Password = "" }, "password is required"},
		{"short password", func(in *RegisterInput) { in.Password = "12345" }, "password must be at least 6 characters"},
		{"blank first name", func(in *RegisterInput) { in.FirstName = "   " }, "firstName is required"},
		{"missing last name", func(in *RegisterInput) { in.LastName = "" }, "lastName is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()
			in := validRegistration()
			tt.mutate(&in)

			_, err := env.svc.Auth.Register(ctx, in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.message, verr.Message)
			assert.Equal(t, tt.message, PublicMessage(err))

			n, err := env.store.CountUsers(ctx)
			require.NoError(t, err)
			assert.Zero(t, n, "nothing is written on validation failure")
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.svc.Auth.Register(ctx, validRegistration())
	require.NoError(t, err)

	in := validRegistration()
	in.Email = "  maria.silva@maternar.com "
	_, err = env.svc.Auth.Register(ctx, in)
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.Equal(t, "email already registered", PublicMessage(err))
}

func TestRegisterUniqueUsername(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var names []string
	for _, email := range []string{"ana@a.com", "Ana@b.com", "a.n.a@c.com"} {
		in := validRegistration()
		in.Email = email
		u, err := env.svc.Auth.Register(ctx, in)
		require.NoError(t, err)
		names = append(names, u.Username)
	}
	assert.Equal(t, []string{"ana", "ana1", "ana2"}, names)
}

// staleUsernames answers the first username lookup as if the name were
// free, the way a concurrent registration can slip in between lookup and
// insert.
type staleUsernames struct {
	*memstore.Store
	stale bool
}

func (s *staleUsernames) UsernameExists(ctx context.Context, username string) (bool, error) {
	if s.stale {
		s.stale = false
		return false, nil
	}
	return s.Store.UsernameExists(ctx, username)
}

func TestRegisterUsernameRace(t *testing.T) {
	var st *staleUsernames
	env := newTestEnvWith(t, func(m *memstore.Store) store.Store {
		st = &staleUsernames{Store: m}
		return st
	})
	ctx := context.Background()

	in := validRegistration()
	in.Email = "maria@a.com"
	_, err := env.svc.Auth.Register(ctx, in)
	require.NoError(t, err)

	st.stale = true
	in.Email = "maria@b.com"
	u, err := env.svc.Auth.Register(ctx, in)
	require.NoError(t, err, "a username collision is not an email conflict")
	assert.Equal(t, "maria1", u.Username)
	assert.False(t, st.stale)

	_, err = env.svc.Auth.Register(ctx, in)
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.addUser(t, "maria@maternar.com", models.RoleUser)

	payload, err := env.svc.Auth.Login(ctx, "MARIA@maternar.com", "secret123", ClientMeta{IPAddress: "10.0.0.1"})
	require.NoError(t, err)
	assert.NotEmpty(t, payload.Token)
	assert.Equal(t, u.ID, payload.User.ID)
	assert.Equal(t, 1, payload.User.CurrentStreak)
	assert.Equal(t, 10, payload.User.TotalXP)

	got, sid, err := env.svc.Auth.ValidateToken(ctx, payload.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, payload.SessionID, sid)

	require.NoError(t, env.svc.Auth.Logout(ctx, sid))
	_, _, err = env.svc.Auth.ValidateToken(ctx, payload.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestLoginFailuresAreGeneric(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addUser(t, "maria@maternar.com", models.RoleUser)
	inactive := env.addUser(t, "old@maternar.com", models.RoleUser)
	inactive.IsActive = false
	require.NoError(t, env.store.UpdateUser(ctx, inactive))

	cases := map[string][2]string{
		"unknown email":  {"nobody@maternar.com", "secret123"},
		"wrong password": {"maria@maternar.com", "nope-nope"},
		"inactive":       {"old@maternar.com", "secret123"},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := env.svc.Auth.Login(ctx, c[0], c[1], ClientMeta{})
			assert.ErrorIs(t, err, ErrInvalidCredentials)
			assert.Equal(t, "invalid email or password", PublicMessage(err))
		})
	}
}

func TestLoginThrottling(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addUser(t, "maria@maternar.com", models.RoleUser)
	env.svc.Auth.limiter = ratelimit.NewMemoryLimiter(ratelimit.Config{MaxAttempts: 2, Window: time.Minute})

	for i := 0; i < 2; i++ {
		_, err := env.svc.Auth.Authenticate(ctx, "maria@maternar.com", "wrong-pass")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, err := env.svc.Auth.Authenticate(ctx, "maria@maternar.com", "secret123")
	assert.ErrorIs(t, err, ErrTooManyAttempts)
}

func TestValidateTokenRejectsExpiredSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.addUser(t, "maria@maternar.com", models.RoleUser)

	payload, err := env.svc.Auth.IssueSession(ctx, u, ClientMeta{})
	require.NoError(t, err)

	_, _, err = env.svc.Auth.ValidateToken(ctx, "not-a-token")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	env.now = env.now.Add(48 * time.Hour)
	_, _, err = env.svc.Auth.ValidateToken(ctx, payload.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.addUser(t, "maria@maternar.com", models.RoleUser)

	err := env.svc.Auth.ChangePassword(ctx, u.ID, "wrong", "newsecret")
	assert.ErrorIs(t, err, ErrWrongPassword)

	err = env.svc.Auth.ChangePassword(ctx, u.ID, "secret123", "short")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	require.NoError(t, env.svc.Auth.ChangePassword(ctx, u.ID, "secret123", "newsecret"))
	_, err = env.svc.Auth.Authenticate(ctx, "maria@maternar.com", "newsecret")
	assert.NoError(t, err)
}

func TestRememberToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.addUser(t, "maria@maternar.com", models.RoleUser)

	value, err := env.svc.Auth.IssueRememberToken(ctx, u)
	require.NoError(t, err)

	got, err := env.svc.Auth.UserFromRememberToken(ctx, value)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = env.svc.Auth.UserFromRememberToken(ctx, "1:forged")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	require.NoError(t, env.svc.Auth.ForgetRememberToken(ctx, u.ID))
	_, err = env.svc.Auth.UserFromRememberToken(ctx, value)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}
