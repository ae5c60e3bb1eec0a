package client

import (
	"context"
	"net"
	"strings"
)

// DefaultPort is where a local development server listens.
const DefaultPort = "1313"

// User is the signed-in user as the API reports it.
type User struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Username      string `json:"username"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	FullName      string `json:"fullName"`
	Department    string `json:"department"`
	Position      string `json:"position"`
	Avatar        string `json:"avatar"`
	Role          string `json:"role"`
	TotalXP       int    `json:"totalXP"`
	WeeklyXP      int    `json:"weeklyXP"`
	Level         int    `json:"level"`
	CurrentStreak int    `json:"currentStreak"`
	LongestStreak int    `json:"longestStreak"`
}

func (u *User) valid() bool {
	return u != nil && u.ID != "" && u.Email != ""
}

// Session is a token and the user it belongs to.
type Session struct {
	Token string
	User  *User
}

// RegisterInput is the sign-up form.
type RegisterInput struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Department string `json:"department,omitempty"`
	Position   string `json:"position,omitempty"`
}

// AuthBackend performs the remote side of the session lifecycle.
type AuthBackend interface {
	Login(ctx context.Context, email, password string) (*Session, error)
	Register(ctx context.Context, in RegisterInput) (*Session, error)
	Logout(ctx context.Context, token string) error
	Me(ctx context.Context, token string) (*User, error)
}

// Config selects and configures the backend.
type Config struct {
	Mock        bool
	Debug       bool
	Endpoint    string // explicit GraphQL URL; wins over Hostname
	Hostname    string // host the front end was served from
	AppVersion  string
	Environment string
}

// ResolveEndpoint returns the GraphQL URL. An explicit endpoint is used as
// is. A local hostname maps to the development server; any other hostname
// serves the API itself over https.
func ResolveEndpoint(cfg Config) string {
	if cfg.Endpoint != "" {
		return cfg.Endpoint
	}
	host := cfg.Hostname
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	switch strings.ToLower(host) {
	case "", "localhost", "127.0.0.1", "::1":
		return "http://localhost:" + DefaultPort + "/graphql"
	}
	return "https://" + cfg.Hostname + "/graphql"
}
