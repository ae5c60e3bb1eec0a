package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"maternar/models"
	"maternar/store"
	"maternar/utils"
)

// LoginLimiter throttles failed logins per email.
type LoginLimiter interface {
	Allow(ctx context.Context, subject string) (bool, error)
	Record(ctx context.Context, subject string) error
	Reset(ctx context.Context, subject string) error
}

type AuthConfig struct {
	PasswordMinLength int
	BcryptCost        int
}

// RegisterInput is the registration form.
type RegisterInput struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	FirstName  string `json:"firstName" validate:"required,notblank,max=100"`
	LastName   string `json:"lastName" validate:"required,notblank,max=100"`
	Department string `json:"department" validate:"max=100"`
	Position   string `json:"position" validate:"max=100"`
}

// ClientMeta identifies where a session was opened from.
type ClientMeta struct {
	IPAddress string
	UserAgent string
}

// AuthPayload is returned by a successful login or registration.
type AuthPayload struct {
	Token     string
	SessionID string
	ExpiresAt time.Time
	User      *models.User
}

type AuthService struct {
	store        store.Store
	tokens       *utils.TokenIssuer
	gamification *GamificationService
	limiter      LoginLimiter
	cfg          AuthConfig
	logger       *slog.Logger
	now          func() time.Time
}

func NewAuthService(s store.Store, tokens *utils.TokenIssuer, gs *GamificationService, limiter LoginLimiter, cfg AuthConfig, logger *slog.Logger) *AuthService {
	if cfg.PasswordMinLength <= 0 {
		cfg.PasswordMinLength = 6
	}
	return &AuthService{
		store:        s,
		tokens:       tokens,
		gamification: gs,
		limiter:      limiter,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (as *AuthService) checkPasswordLength(field, password string) error {
	if len(password) < as.cfg.PasswordMinLength {
		msg := fmt.Sprintf("must be at least %d characters", as.cfg.PasswordMinLength)
		return NewValidationError(field+" "+msg, FieldError{Field: field, Error: msg})
	}
	return nil
}

// Register creates a user account. Validation failures and an already
// registered email are reported before anything is written.
func (as *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Email = normalizeEmail(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if err := as.checkPasswordLength("password", in.Password); err != nil {
		return nil, err
	}

	if _, err := as.store.GetUserByEmail(ctx, in.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	hash, err := utils.HashPassword(in.Password, as.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	u := &models.User{
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Department:   strings.TrimSpace(in.Department),
		Position:     strings.TrimSpace(in.Position),
		Role:         models.RoleUser,
		IsActive:     true,
		PasswordHash: hash,
		Level:        1,
	}
	if err := as.createWithUsername(ctx, u); err != nil {
		return nil, err
	}

	as.logger.Info("user registered", "user_id", u.ID, "username", u.Username)
	return u, nil
}

// createWithUsername stores u under a free username. A duplicate on insert
// is either the email, registered concurrently, or a username taken between
// the lookup and the insert; the latter picks a fresh name and tries again.
func (as *AuthService) createWithUsername(ctx context.Context, u *models.User) error {
	base := utils.UsernameFromEmail(u.Email)
	for attempt := 0; ; attempt++ {
		username, err := as.uniqueUsername(ctx, base)
		if err != nil {
			return err
		}
		u.Username = username

		err = as.store.CreateUser(ctx, u)
		if !errors.Is(err, store.ErrDuplicate) {
			return err
		}
		if _, lookupErr := as.store.GetUserByEmail(ctx, u.Email); lookupErr == nil {
			return ErrEmailTaken
		} else if !errors.Is(lookupErr, store.ErrNotFound) {
			return lookupErr
		}
		if attempt == maxUsernameAttempts-1 {
			return err
		}
		as.logger.Warn("username taken concurrently, retrying", "username", username)
	}
}

const maxUsernameAttempts = 3

// uniqueUsername appends 1, 2, ... to base until no user holds it.
func (as *AuthService) uniqueUsername(ctx context.Context, base string) (string, error) {
	candidate := base
	for i := 1; ; i++ {
		exists, err := as.store.UsernameExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%d", base, i)
	}
}

// Authenticate verifies credentials and records the login streak. Unknown
// email, inactive account and wrong password all yield ErrInvalidCredentials.
func (as *AuthService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, NewValidationError("email and password are required")
	}

	if as.limiter != nil {
		ok, err := as.limiter.Allow(ctx, email)
		if err != nil {
			as.logger.Warn("login limiter unavailable", "error", err)
		} else if !ok {
			return nil, ErrTooManyAttempts
		}
	}

	u, err := as.store.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if u == nil || !u.IsActive || !utils.CheckPasswordHash(password, u.PasswordHash) {
		as.recordFailure(ctx, email)
		return nil, ErrInvalidCredentials
	}

	if as.limiter != nil {
		if err := as.limiter.Reset(ctx, email); err != nil {
			as.logger.Warn("failed to reset login limiter", "error", err)
		}
	}

	change, err := as.gamification.RecordLogin(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	return change.User, nil
}

func (as *AuthService) recordFailure(ctx context.Context, email string) {
	if as.limiter == nil {
		return
	}
	if err := as.limiter.Record(ctx, email); err != nil {
		as.logger.Warn("failed to record login attempt", "error", err)
	}
}

// Login authenticates and opens a bearer-token session.
func (as *AuthService) Login(ctx context.Context, email, password string, meta ClientMeta) (*AuthPayload, error) {
	u, err := as.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return as.IssueSession(ctx, u, meta)
}

// IssueSession stores a session row and signs a token naming it.
func (as *AuthService) IssueSession(ctx context.Context, u *models.User, meta ClientMeta) (*AuthPayload, error) {
	now := as.now()
	sess := &models.Session{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		ExpiresAt: now.Add(as.tokens.TTL()),
	}
	if err := as.store.CreateSession(ctx, sess); err != nil {
		return nil, err
	}

	token, err := as.tokens.Generate(u.ID, u.Email, u.Role, sess.ID, now)
	if err != nil {
		return nil, err
	}
	return &AuthPayload{Token: token, SessionID: sess.ID, ExpiresAt: sess.ExpiresAt, User: u}, nil
}

// Logout revokes the session. Revoking an unknown session is not an error.
func (as *AuthService) Logout(ctx context.Context, sessionID string) error {
	return as.store.DeleteSession(ctx, sessionID)
}

// ValidateToken resolves a bearer token to its user and session id.
func (as *AuthService) ValidateToken(ctx context.Context, token string) (*models.User, string, error) {
	claims, err := as.tokens.Parse(token)
	if err != nil {
		return nil, "", ErrUnauthenticated
	}
	userID, err := utils.UserIDFromClaims(claims)
	if err != nil {
		return nil, "", ErrUnauthenticated
	}

	sess, err := as.store.GetSession(ctx, claims.SessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, "", ErrUnauthenticated
	} else if err != nil {
		return nil, "", err
	}
	if sess.UserID != userID || sess.Expired(as.now()) {
		return nil, "", ErrUnauthenticated
	}

	u, err := as.store.GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, "", ErrUnauthenticated
	} else if err != nil {
		return nil, "", err
	}
	if !u.IsActive {
		return nil, "", ErrUnauthenticated
	}
	return u, sess.ID, nil
}

// ChangePassword verifies the current password and stores a new hash.
func (as *AuthService) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	if err := as.checkPasswordLength("newPassword", next); err != nil {
		return err
	}
	u, err := as.store.GetUserByID(ctx, userID)
	if err != nil {
		return notFound(err, ErrUserNotFound)
	}
	if !utils.CheckPasswordHash(current, u.PasswordHash) {
		return ErrWrongPassword
	}
	hash, err := utils.HashPassword(next, as.cfg.BcryptCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return as.store.UpdateUser(ctx, u)
}

// IssueRememberToken creates a long-lived token for the legacy "remember me"
// cookie. Only its hash is stored.
func (as *AuthService) IssueRememberToken(ctx context.Context, u *models.User) (string, error) {
	token, err := utils.GenerateRandomToken(32)
	if err != nil {
		return "", err
	}
	hash := utils.HashToken(token)
	u.RememberTokenHash = &hash
	if err := as.store.UpdateUser(ctx, u); err != nil {
		return "", err
	}
	return fmt.Sprintf("%d:%s", u.ID, token), nil
}

// ForgetRememberToken clears the stored remember token.
func (as *AuthService) ForgetRememberToken(ctx context.Context, userID uint) error {
	u, err := as.store.GetUserByID(ctx, userID)
	if err != nil {
		return notFound(err, ErrUserNotFound)
	}
	u.RememberTokenHash = nil
	return as.store.UpdateUser(ctx, u)
}

// UserFromRememberToken resolves a remember-me cookie value.
func (as *AuthService) UserFromRememberToken(ctx context.Context, value string) (*models.User, error) {
	idPart, token, ok := strings.Cut(value, ":")
	if !ok || token == "" {
		return nil, ErrUnauthenticated
	}
	var id uint
	if _, err := fmt.Sscan(idPart, &id); err != nil || id == 0 {
		return nil, ErrUnauthenticated
	}
	u, err := as.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	if !u.IsActive || u.RememberTokenHash == nil || *u.RememberTokenHash != utils.HashToken(token) {
		return nil, ErrUnauthenticated
	}
	return u, nil
}
