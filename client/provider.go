package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
)

// State is where the provider is in the session lifecycle.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	}
	return "unknown"
}

// Result reports the outcome of Login or Register.
type Result struct {
	Success bool
	Error   string
}

var ErrClosed = errors.New("session provider closed")

type Option func(*Provider)

// WithBackend replaces the backend Config would select.
func WithBackend(b AuthBackend) Option {
	return func(p *Provider) { p.backend = b }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

// WithCacheReset registers the query cache reset run on logout.
func WithCacheReset(fn func()) Option {
	return func(p *Provider) { p.resetCache = fn }
}

// Provider holds the client's session. All transitions happen under one
// mutex; backend calls run outside it.
type Provider struct {
	backend    AuthBackend
	storage    Storage
	mock       bool
	logger     *slog.Logger
	resetCache func()

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	state  State
	user   *User
	token  string
	gen    uint64
	closed bool
}

// defaultLogger is silent unless debug is set, in which case everything down
// to debug level goes to stderr.
func defaultLogger(debug bool) *slog.Logger {
	if !debug {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// New builds a provider. The backend is fixed here: the mock backend when
// cfg.Mock is set, otherwise a live backend for ResolveEndpoint(cfg). Without
// WithLogger, cfg.Debug decides whether the provider logs.
func New(cfg Config, storage Storage, opts ...Option) *Provider {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Provider{
		storage: storage,
		mock:    cfg.Mock,
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = defaultLogger(cfg.Debug)
	}
	if p.backend == nil {
		if cfg.Mock {
			p.backend = NewMockBackend()
		} else {
			p.backend = NewLiveBackend(ResolveEndpoint(cfg), cfg.AppVersion, cfg.Environment)
		}
	}
	return p
}

func (p *Provider) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// User returns a copy of the signed-in user, or nil.
func (p *Provider) User() *User {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.user == nil {
		return nil
	}
	u := *p.user
	return &u
}

func (p *Provider) Token() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token
}

func (p *Provider) IsAuthenticated() bool {
	return p.State() == StateAuthenticated
}

// Init restores the persisted session. Calling it again is a no-op.
func (p *Provider) Init() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateUninitialized || p.closed {
		return
	}
	p.state = StateLoading

	token, user, found, err := p.readStored()
	switch {
	case err != nil:
		p.logger.Warn("discarding corrupted session", "error", err)
		p.clearStoredLocked()
		p.setAnonymousLocked()
	case found:
		p.token, p.user, p.state = token, user, StateAuthenticated
		p.logger.Debug("session restored", "userId", user.ID)
		if !p.mock {
			p.revalidateLocked()
		}
	case p.mock:
		p.startMockSessionLocked()
	default:
		p.setAnonymousLocked()
	}
}

// readStored loads token and user. A missing pair is not an error; a half
// pair or undecodable user is.
func (p *Provider) readStored() (string, *User, bool, error) {
	token, hasToken, err := p.storage.Get(KeyAuthToken)
	if err != nil {
		return "", nil, false, err
	}
	raw, hasUser, err := p.storage.Get(KeyUserData)
	if err != nil {
		return "", nil, false, err
	}
	if !hasToken && !hasUser {
		return "", nil, false, nil
	}
	if !hasToken || !hasUser || token == "" {
		return "", nil, false, errors.New("incomplete stored session")
	}
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return "", nil, false, err
	}
	if !u.valid() {
		return "", nil, false, errors.New("stored user is missing id or email")
	}
	return token, &u, true, nil
}

func (p *Provider) startMockSessionLocked() {
	d, ok := p.backend.(interface{ DefaultSession() *Session })
	if !ok {
		p.setAnonymousLocked()
		return
	}
	sess := d.DefaultSession()
	if err := p.persistLocked(sess); err != nil {
		p.logger.Warn("failed to persist mock session", "error", err)
	}
	p.token, p.user, p.state = sess.Token, sess.User, StateAuthenticated
}

// revalidateLocked refreshes the stored user once in the background. A
// failure keeps the stored user. A response that arrives after a newer
// transition or after Close is dropped.
func (p *Provider) revalidateLocked() {
	gen, token := p.gen, p.token
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		u, err := p.backend.Me(p.ctx, token)

		p.mu.Lock()
		defer p.mu.Unlock()
		if p.closed || p.gen != gen {
			return
		}
		if err != nil || !u.valid() {
			p.logger.Warn("session revalidation failed, keeping stored user", "error", err)
			return
		}
		p.user = u
		if err := p.storeUserLocked(u); err != nil {
			p.logger.Warn("failed to persist revalidated user", "error", err)
		}
	}()
}

// Login signs in through the backend and persists the session.
func (p *Provider) Login(ctx context.Context, email, password string) Result {
	return p.authenticate(func() (*Session, error) {
		return p.backend.Login(ctx, email, password)
	})
}

// Register creates an account through the backend and signs it in.
func (p *Provider) Register(ctx context.Context, in RegisterInput) Result {
	return p.authenticate(func() (*Session, error) {
		return p.backend.Register(ctx, in)
	})
}

func (p *Provider) authenticate(call func() (*Session, error)) Result {
	if p.isClosed() {
		return Result{Error: ErrClosed.Error()}
	}
	sess, err := call()
	if err != nil {
		return Result{Error: err.Error()}
	}
	if sess == nil || sess.Token == "" || !sess.User.valid() {
		return Result{Error: "invalid session returned by server"}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return Result{Error: ErrClosed.Error()}
	}
	if err := p.persistLocked(sess); err != nil {
		p.clearStoredLocked()
		return Result{Error: "failed to save session: " + err.Error()}
	}
	p.gen++
	p.token, p.user, p.state = sess.Token, sess.User, StateAuthenticated
	return Result{Success: true}
}

// Logout tells the backend on a best-effort basis, resets the query cache
// and always ends anonymous with storage cleared.
func (p *Provider) Logout(ctx context.Context) {
	token := p.Token()
	if token != "" {
		if err := p.backend.Logout(ctx, token); err != nil {
			p.logger.Debug("remote logout failed", "error", err)
		}
	}
	if p.resetCache != nil {
		p.resetCache()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.clearStoredLocked()
	p.setAnonymousLocked()
}

// Wait blocks until background revalidation has finished.
func (p *Provider) Wait() {
	p.wg.Wait()
}

// Close cancels background work. Later responses are ignored.
func (p *Provider) Close() {
	p.mu.Lock()
	p.closed = true
	p.gen++
	p.mu.Unlock()
	p.cancel()
}

func (p *Provider) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Provider) setAnonymousLocked() {
	p.gen++
	p.token, p.user, p.state = "", nil, StateAnonymous
}

func (p *Provider) persistLocked(sess *Session) error {
	if err := p.storage.Set(KeyAuthToken, sess.Token); err != nil {
		return err
	}
	return p.storeUserLocked(sess.User)
}

func (p *Provider) storeUserLocked(u *User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return p.storage.Set(KeyUserData, string(data))
}

func (p *Provider) clearStoredLocked() {
	if err := p.storage.Remove(KeyAuthToken, KeyUserData); err != nil {
		p.logger.Warn("failed to clear stored session", "error", err)
	}
}
