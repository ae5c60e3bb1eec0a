// Package store declares the persistence ports used by the services. The
// relational implementation lives in package db, the in-memory one in
// package memstore.
package store

import (
	"context"
	"errors"
	"time"

	"maternar/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

type Users interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
	// LockUser loads a user for update. Inside WithTx the row stays locked
	// until the transaction ends.
	LockUser(ctx context.Context, id uint) (*models.User, error)
	// TopUsers returns active users ordered by the metric column descending,
	// then by id ascending.
	TopUsers(ctx context.Context, metric string, limit int) ([]models.User, error)
	ResetWeeklyXP(ctx context.Context) (int64, error)
	CountUsers(ctx context.Context) (int64, error)
}

type Sessions interface {
	CreateSession(ctx context.Context, s *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteUserSessions(ctx context.Context, userID uint) error
}

type Activities interface {
	AppendActivity(ctx context.Context, a *models.ActivityLog) error
	ListActivities(ctx context.Context, userID uint, limit int) ([]models.ActivityLog, error)
}

type Achievements interface {
	ListAchievements(ctx context.Context) ([]models.Achievement, error)
	ListUserAchievements(ctx context.Context, userID uint) ([]models.UserAchievement, error)
	// AwardAchievement returns false when the user already holds it.
	AwardAchievement(ctx context.Context, ua *models.UserAchievement) (bool, error)
}

type Courses interface {
	ListCourses(ctx context.Context, activeOnly bool) ([]models.Course, error)
	GetCourse(ctx context.Context, id uint) (*models.Course, error)
	CreateCourse(ctx context.Context, c *models.Course) error
	GetEnrollment(ctx context.Context, userID, courseID uint) (*models.Enrollment, error)
	SaveEnrollment(ctx context.Context, e *models.Enrollment) error
	ListEnrollments(ctx context.Context, userID uint) ([]models.Enrollment, error)
	CountCourses(ctx context.Context, activeOnly bool) (int64, error)
	CountCompletedEnrollments(ctx context.Context, userID uint) (int64, error)
}

type Chat interface {
	ListChannelsForUser(ctx context.Context, userID uint) ([]models.Channel, error)
	GetChannel(ctx context.Context, id uint) (*models.Channel, error)
	CreateChannel(ctx context.Context, ch *models.Channel) error
	AddChannelMember(ctx context.Context, m *models.ChannelMember) error
	IsChannelMember(ctx context.Context, channelID, userID uint) (bool, error)
	ListChannelMembers(ctx context.Context, channelID uint) ([]uint, error)
	// ListMessages returns the newest messages first.
	ListMessages(ctx context.Context, channelID uint, limit, offset int) ([]models.Message, error)
	CreateMessage(ctx context.Context, m *models.Message) error
}

type Calendar interface {
	ListEvents(ctx context.Context, start, end time.Time) ([]models.Event, error)
	GetEvent(ctx context.Context, id uint) (*models.Event, error)
	CreateEvent(ctx context.Context, e *models.Event) error
	UpdateEvent(ctx context.Context, e *models.Event) error
	DeleteEvent(ctx context.Context, id uint) error
	CountEventsBetween(ctx context.Context, start, end time.Time) (int64, error)
}

type Projects interface {
	ListProjects(ctx context.Context, userID uint) ([]models.Project, error)
	GetProject(ctx context.Context, id uint) (*models.Project, error)
	CreateProject(ctx context.Context, p *models.Project) error
	UpdateProject(ctx context.Context, p *models.Project) error
	DeleteProject(ctx context.Context, id uint) error
	ListTasks(ctx context.Context, projectID uint) ([]models.Task, error)
	GetTask(ctx context.Context, id uint) (*models.Task, error)
	CreateTask(ctx context.Context, t *models.Task) error
	UpdateTask(ctx context.Context, t *models.Task) error
	DeleteTask(ctx context.Context, id uint) error
	CountOpenTasks(ctx context.Context, assigneeID uint) (int64, error)
}

type Policies interface {
	ListPolicies(ctx context.Context) ([]models.Policy, error)
	GetPolicy(ctx context.Context, id uint) (*models.Policy, error)
	CreatePolicy(ctx context.Context, p *models.Policy) error
	// AcknowledgePolicy returns false when the acknowledgment already exists.
	AcknowledgePolicy(ctx context.Context, ack *models.PolicyAcknowledgment) (bool, error)
	ListAcknowledgments(ctx context.Context, userID uint) ([]models.PolicyAcknowledgment, error)
	CountPendingPolicies(ctx context.Context, userID uint) (int64, error)
}

type Links interface {
	ListLinks(ctx context.Context) ([]models.Link, error)
	CreateLink(ctx context.Context, l *models.Link) error
	DeleteLink(ctx context.Context, id uint) error
}

type Notifications interface {
	ListNotifications(ctx context.Context, userID uint, limit int, unreadOnly bool) ([]models.Notification, error)
	CreateNotification(ctx context.Context, n *models.Notification) error
	MarkNotificationRead(ctx context.Context, userID, id uint, at time.Time) error
	MarkAllNotificationsRead(ctx context.Context, userID uint, at time.Time) (int64, error)
	CountUnreadNotifications(ctx context.Context, userID uint) (int64, error)
}

// Store is the full persistence surface.
type Store interface {
	Users
	Sessions
	Activities
	Achievements
	Courses
	Chat
	Calendar
	Projects
	Policies
	Links
	Notifications

	// WithTx runs fn inside a transaction. fn receives a Store bound to the
	// transaction; a returned error rolls it back.
	WithTx(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}

type activityOverride struct {
	Store
	acts Activities
}

// WithActivities routes activity reads and writes of base to acts, e.g. a
// document store archive, keeping everything else on base.
func WithActivities(base Store, acts Activities) Store {
	return &activityOverride{Store: base, acts: acts}
}

func (s *activityOverride) AppendActivity(ctx context.Context, a *models.ActivityLog) error {
	return s.acts.AppendActivity(ctx, a)
}

func (s *activityOverride) ListActivities(ctx context.Context, userID uint, limit int) ([]models.ActivityLog, error) {
	return s.acts.ListActivities(ctx, userID, limit)
}

func (s *activityOverride) WithTx(ctx context.Context, fn func(tx Store) error) error {
	return s.Store.WithTx(ctx, func(tx Store) error {
		return fn(&activityOverride{Store: tx, acts: s.acts})
	})
}
