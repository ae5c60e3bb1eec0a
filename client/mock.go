package client

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// mockUsers are the accounts the mock backend knows by email. Any other
// email gets a user derived from its local part.
var mockUsers = map[string]User{
	"admin@maternar.com": {
		ID: "1", Email: "admin@maternar.com", Username: "admin", FirstName: "Ana", LastName: "Admin",
		Department: "TI", Position: "Administradora", Role: "admin", TotalXP: 2400, WeeklyXP: 300, Level: 3,
		CurrentStreak: 5, LongestStreak: 12,
	},
	"maria.silva@maternar.com": {
		ID: "2", Email: "maria.silva@maternar.com", Username: "mariasilva", FirstName: "Maria", LastName: "Silva",
		Department: "RH", Position: "Analista", Role: "user", TotalXP: 1850, WeeklyXP: 420, Level: 2,
		CurrentStreak: 3, LongestStreak: 7,
	},
}

// DefaultMockEmail is the account a mock-mode provider signs in on first run.
const DefaultMockEmail = "maria.silva@maternar.com"

// MockBackend accepts any password and never touches the network.
type MockBackend struct {
	mu       sync.Mutex
	sessions map[string]User
	nextID   int
}

func NewMockBackend() *MockBackend {
	return &MockBackend{sessions: make(map[string]User), nextID: 100}
}

func (m *MockBackend) issue(u User) *Session {
	token := "mock-" + uuid.NewString()
	m.sessions[token] = u
	return &Session{Token: token, User: &u}
}

func (m *MockBackend) userFor(email string) User {
	email = strings.ToLower(strings.TrimSpace(email))
	if u, ok := mockUsers[email]; ok {
		return u
	}
	local, _, _ := strings.Cut(email, "@")
	first := local
	last := ""
	if a, b, ok := strings.Cut(local, "."); ok {
		first, last = a, b
	}
	m.nextID++
	return withNames(User{
		ID:        fmt.Sprint(m.nextID),
		Email:     email,
		Username:  local,
		FirstName: capitalize(first),
		LastName:  capitalize(last),
		Role:      "user",
		Level:     1,
	})
}

func (m *MockBackend) Login(ctx context.Context, email, password string) (*Session, error) {
	if strings.TrimSpace(email) == "" {
		return nil, fmt.Errorf("email is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.issue(withNames(m.userFor(email))), nil
}

func (m *MockBackend) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	if strings.TrimSpace(in.Email) == "" || strings.TrimSpace(in.FirstName) == "" || strings.TrimSpace(in.LastName) == "" {
		return nil, fmt.Errorf("email, first name and last name are required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.userFor(in.Email)
	u.FirstName = strings.TrimSpace(in.FirstName)
	u.LastName = strings.TrimSpace(in.LastName)
	u.Department = in.Department
	u.Position = in.Position
	return m.issue(withNames(u)), nil
}

func (m *MockBackend) Logout(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

func (m *MockBackend) Me(ctx context.Context, token string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.sessions[token]
	if !ok {
		return nil, fmt.Errorf("authentication required")
	}
	return &u, nil
}

// DefaultSession signs in the default mock account.
func (m *MockBackend) DefaultSession() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.issue(withNames(mockUsers[DefaultMockEmail]))
}

func withNames(u User) User {
	u.FullName = strings.TrimSpace(u.FirstName + " " + u.LastName)
	if u.FullName == "" {
		u.FullName = u.Username
	}
	if u.Avatar == "" {
		u.Avatar = "https://api.dicebear.com/9.x/adventurer/svg?seed=" + u.Username
	}
	return u
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
