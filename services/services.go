// Package services holds the portal business logic. Handlers in graph,
// controllers and websocket call into it; it talks to storage only through
// store.Store.
package services

import (
	"log/slog"
	"time"

	"maternar/config"
	"maternar/internal/events"
	"maternar/store"
	"maternar/utils"
)

// Services bundles every service constructed over one store and bus.
type Services struct {
	Auth          *AuthService
	Users         *UserService
	Gamification  *GamificationService
	Notifications *NotificationService
	Courses       *CourseService
	Chat          *ChatService
	Calendar      *CalendarService
	Projects      *ProjectService
	Policies      *PolicyService
	Links         *LinkService
	Dashboard     *DashboardService
	Authz         *Authorizer
}

// New wires the services from configuration. limiter may be nil.
func New(cfg *config.Config, s store.Store, bus events.Bus, limiter LoginLimiter, logger *slog.Logger) (*Services, error) {
	authz, err := NewAuthorizer(cfg.RBAC.Policies)
	if err != nil {
		return nil, err
	}
	tokens := utils.NewTokenIssuer(cfg.JWT.Secret, time.Duration(cfg.JWT.Expiry)*time.Minute)

	ns := NewNotificationService(s, bus, logger)
	gs := NewGamificationService(s, bus, ns, GamificationConfig{
		XPPerLevel:    cfg.Gamification.XPPerLevel,
		XPLoginStreak: cfg.Gamification.XPLoginStreak,
		Location:      cfg.Location(),
	}, logger)

	return &Services{
		Auth: NewAuthService(s, tokens, gs, limiter, AuthConfig{
			PasswordMinLength: cfg.Auth.PasswordMinLength,
			BcryptCost:        cfg.Auth.BcryptCost,
		}, logger),
		Users:         NewUserService(s, authz),
		Gamification:  gs,
		Notifications: ns,
		Courses:       NewCourseService(s, gs, authz),
		Chat:          NewChatService(s, bus, logger),
		Calendar:      NewCalendarService(s, authz),
		Projects:      NewProjectService(s, bus, ns, logger),
		Policies:      NewPolicyService(s, gs, authz, cfg.Gamification.XPPolicyAck, logger),
		Links:         NewLinkService(s, authz),
		Dashboard:     NewDashboardService(s),
		Authz:         authz,
	}, nil
}
