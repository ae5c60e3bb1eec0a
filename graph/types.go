package graph

import (
	"context"

	graphql "github.com/graph-gophers/graphql-go"

	"maternar/models"
	"maternar/services"
)

type userResolver struct {
	u *models.User
}

func (r *userResolver) ID() graphql.ID { return toID(r.u.ID) }
func (r *userResolver) Email() string { return r.u.Email }
func (r *userResolver) Username() string { return r.u.Username }
func (r *userResolver) FirstName() string { return r.u.FirstName }
func (r *userResolver) LastName() string { return r.u.LastName }
func (r *userResolver) FullName() string { return r.u.DisplayName() }
func (r *userResolver) Department() string { return r.u.Department }
func (r *userResolver) Position() string { return r.u.Position }
func (r *userResolver) Avatar() string { return r.u.Avatar() }
func (r *userResolver) Role() string { return r.u.Role }
func (r *userResolver) IsActive() bool { return r.u.IsActive }
func (r *userResolver) TotalXP() int32 { return int32(r.u.TotalXP) }
func (r *userResolver) WeeklyXP() int32 { return int32(r.u.WeeklyXP) }
func (r *userResolver) Level() int32 { return int32(r.u.Level) }
func (r *userResolver) CurrentStreak() int32 { return int32(r.u.CurrentStreak) }
func (r *userResolver) LongestStreak() int32 { return int32(r.u.LongestStreak) }
func (r *userResolver) LastActive() *graphql.Time { return optTime(r.u.LastActive) }
func (r *userResolver) CreatedAt() graphql.Time { return gqlTime(r.u.CreatedAt) }

func users(list []models.User) []*userResolver {
	out := make([]*userResolver, len(list))
	for i := range list {
		out[i] = &userResolver{u: &list[i]}
	}
	return out
}

type authPayloadResolver struct {
	p *services.AuthPayload
}

func (r *authPayloadResolver) Token() string { return r.p.Token }
func (r *authPayloadResolver) ExpiresAt() graphql.Time { return gqlTime(r.p.ExpiresAt) }
func (r *authPayloadResolver) User() *userResolver { return &userResolver{u: r.p.User} }

type userStatusResolver struct {
	root *Resolver
	ev   models.PresenceEvent
}

func (r *userStatusResolver) User(ctx context.Context) (*userResolver, error) {
	return r.root.userByID(ctx, r.ev.UserID)
}
func (r *userStatusResolver) Status() string { return r.ev.Status }
func (r *userStatusResolver) Timestamp() graphql.Time { return gqlTime(r.ev.Timestamp) }

type courseResolver struct {
	v services.CourseView
}

func (r *courseResolver) ID() graphql.ID { return toID(r.v.ID) }
func (r *courseResolver) Title() string { return r.v.Title }
func (r *courseResolver) Description() string { return r.v.Description }
func (r *courseResolver) Category() string { return r.v.Category }
func (r *courseResolver) Duration() int32 { return int32(r.v.Duration) }
func (r *courseResolver) XPReward() int32 { return int32(r.v.XPReward) }

func (r *courseResolver) Enrollment() *enrollmentResolver {
	if r.v.Enrollment == nil {
		return nil
	}
	return &enrollmentResolver{e: r.v.Enrollment}
}

type enrollmentResolver struct {
	e *models.Enrollment
}

func (r *enrollmentResolver) ID() graphql.ID { return toID(r.e.ID) }
func (r *enrollmentResolver) CourseID() graphql.ID { return toID(r.e.CourseID) }
func (r *enrollmentResolver) Status() string { return r.e.Status }
func (r *enrollmentResolver) Progress() int32 { return int32(r.e.Progress) }
func (r *enrollmentResolver) StartedAt() graphql.Time { return gqlTime(r.e.StartedAt) }
func (r *enrollmentResolver) CompletedAt() *graphql.Time {
	return optTime(r.e.CompletedAt)
}

type achievementResolver struct {
	a services.AchievementStatus
}

func (r *achievementResolver) ID() graphql.ID { return toID(r.a.ID) }
func (r *achievementResolver) Code() string { return r.a.Code }
func (r *achievementResolver) Name() string { return r.a.Name }
func (r *achievementResolver) Description() string { return r.a.Description }
func (r *achievementResolver) Icon() string { return r.a.Icon }
func (r *achievementResolver) Category() string { return r.a.Category }
func (r *achievementResolver) Threshold() int32 { return int32(r.a.Threshold) }
func (r *achievementResolver) XPReward() int32 { return int32(r.a.XPReward) }
func (r *achievementResolver) Unlocked() bool { return r.a.Unlocked }
func (r *achievementResolver) EarnedAt() *graphql.Time {
	return optTime(r.a.EarnedAt)
}

type activityResolver struct {
	a models.ActivityLog
}

func (r *activityResolver) ID() graphql.ID { return graphql.ID(r.a.ID) }
func (r *activityResolver) Type() string { return r.a.Type }
func (r *activityResolver) Description() string { return r.a.Description }
func (r *activityResolver) CreatedAt() graphql.Time { return gqlTime(r.a.CreatedAt) }

func (r *activityResolver) Metadata() string {
	if len(r.a.Metadata) == 0 {
		return "{}"
	}
	return string(r.a.Metadata)
}

type leaderboardEntryResolver struct {
	root *Resolver
	e    models.LeaderboardEntry
}

func (r *leaderboardEntryResolver) Rank() int32 { return int32(r.e.Rank) }
func (r *leaderboardEntryResolver) Score() int32 { return int32(r.e.Score) }
func (r *leaderboardEntryResolver) TotalXP() int32 { return int32(r.e.TotalXP) }
func (r *leaderboardEntryResolver) WeeklyXP() int32 { return int32(r.e.WeeklyXP) }
func (r *leaderboardEntryResolver) Level() int32 { return int32(r.e.Level) }
func (r *leaderboardEntryResolver) CurrentUser() bool { return r.e.CurrentUser }

func (r *leaderboardEntryResolver) User(ctx context.Context) (*userResolver, error) {
	return r.root.userByID(ctx, r.e.UserID)
}

type channelResolver struct {
	c *models.Channel
}

func (r *channelResolver) ID() graphql.ID { return toID(r.c.ID) }
func (r *channelResolver) Name() string { return r.c.Name }
func (r *channelResolver) Description() string { return r.c.Description }
func (r *channelResolver) Type() string { return r.c.Type }
func (r *channelResolver) CreatedBy() graphql.ID { return toID(r.c.CreatedBy) }
func (r *channelResolver) CreatedAt() graphql.Time { return gqlTime(r.c.CreatedAt) }

type messageResolver struct {
	root *Resolver
	m    *models.Message
}

func (r *messageResolver) ID() graphql.ID { return toID(r.m.ID) }
func (r *messageResolver) ChannelID() graphql.ID { return toID(r.m.ChannelID) }
func (r *messageResolver) Content() string { return r.m.Content }
func (r *messageResolver) CreatedAt() graphql.Time { return gqlTime(r.m.CreatedAt) }

func (r *messageResolver) User(ctx context.Context) (*userResolver, error) {
	return r.root.userByID(ctx, r.m.UserID)
}

type eventResolver struct {
	e *models.Event
}

func (r *eventResolver) ID() graphql.ID { return toID(r.e.ID) }
func (r *eventResolver) Title() string { return r.e.Title }
func (r *eventResolver) Description() string { return r.e.Description }
func (r *eventResolver) Location() string { return r.e.Location }
func (r *eventResolver) StartDate() graphql.Time { return gqlTime(r.e.StartDate) }
func (r *eventResolver) EndDate() graphql.Time { return gqlTime(r.e.EndDate) }
func (r *eventResolver) AllDay() bool { return r.e.AllDay }
func (r *eventResolver) CreatedBy() graphql.ID { return toID(r.e.CreatedBy) }

type projectResolver struct {
	root *Resolver
	p    *models.Project
}

func (r *projectResolver) ID() graphql.ID { return toID(r.p.ID) }
func (r *projectResolver) Name() string { return r.p.Name }
func (r *projectResolver) Description() string { return r.p.Description }
func (r *projectResolver) Status() string { return r.p.Status }
func (r *projectResolver) DueDate() *graphql.Time { return optTime(r.p.DueDate) }
func (r *projectResolver) CreatedAt() graphql.Time { return gqlTime(r.p.CreatedAt) }

func (r *projectResolver) Owner(ctx context.Context) (*userResolver, error) {
	return r.root.userByID(ctx, r.p.OwnerID)
}

func (r *projectResolver) Tasks(ctx context.Context) ([]*taskResolver, error) {
	actor, err := r.root.viewer(ctx)
	if err != nil {
		return nil, err
	}
	tasks, err := r.root.svc.Projects.Tasks(ctx, actor, r.p.ID)
	if err != nil {
		return nil, r.root.fail(ctx, "project.tasks", err)
	}
	out := make([]*taskResolver, len(tasks))
	for i := range tasks {
		out[i] = &taskResolver{root: r.root, t: &tasks[i]}
	}
	return out, nil
}

type taskResolver struct {
	root *Resolver
	t    *models.Task
}

func (r *taskResolver) ID() graphql.ID { return toID(r.t.ID) }
func (r *taskResolver) ProjectID() graphql.ID { return toID(r.t.ProjectID) }
func (r *taskResolver) Title() string { return r.t.Title }
func (r *taskResolver) Description() string { return r.t.Description }
func (r *taskResolver) Status() string { return r.t.Status }
func (r *taskResolver) Priority() string { return r.t.Priority }
func (r *taskResolver) DueDate() *graphql.Time { return optTime(r.t.DueDate) }
func (r *taskResolver) CreatedAt() graphql.Time { return gqlTime(r.t.CreatedAt) }

func (r *taskResolver) Assignee(ctx context.Context) (*userResolver, error) {
	if r.t.AssigneeID == nil {
		return nil, nil
	}
	return r.root.userByID(ctx, *r.t.AssigneeID)
}

type taskEventResolver struct {
	root *Resolver
	ev   models.TaskEvent
}

func (r *taskEventResolver) Action() string { return r.ev.Action }
func (r *taskEventResolver) Task() *taskResolver {
	return &taskResolver{root: r.root, t: &r.ev.Task}
}

type policyResolver struct {
	v services.PolicyView
}

func (r *policyResolver) ID() graphql.ID { return toID(r.v.ID) }
func (r *policyResolver) Title() string { return r.v.Title }
func (r *policyResolver) Content() string { return r.v.Content }
func (r *policyResolver) Version() string { return r.v.Version }
func (r *policyResolver) IsMandatory() bool { return r.v.IsMandatory }
func (r *policyResolver) AcknowledgedAt() *graphql.Time {
	return optTime(r.v.AcknowledgedAt)
}

type linkResolver struct {
	l *models.Link
}

func (r *linkResolver) ID() graphql.ID { return toID(r.l.ID) }
func (r *linkResolver) Title() string { return r.l.Title }
func (r *linkResolver) URL() string { return r.l.URL }
func (r *linkResolver) Category() string { return r.l.Category }
func (r *linkResolver) Icon() string { return r.l.Icon }

type notificationResolver struct {
	n *models.Notification
}

func (r *notificationResolver) ID() graphql.ID { return toID(r.n.ID) }
func (r *notificationResolver) Type() string { return r.n.Type }
func (r *notificationResolver) Title() string { return r.n.Title }
func (r *notificationResolver) Body() string { return r.n.Body }
func (r *notificationResolver) Link() string { return r.n.Link }
func (r *notificationResolver) Read() bool { return r.n.IsRead() }
func (r *notificationResolver) CreatedAt() graphql.Time { return gqlTime(r.n.CreatedAt) }

type dashboardResolver struct {
	m *models.DashboardMetrics
}

func (r *dashboardResolver) TotalUsers() int32 { return int32(r.m.TotalUsers) }
func (r *dashboardResolver) ActiveCourses() int32 { return int32(r.m.ActiveCourses) }
func (r *dashboardResolver) CompletedCourses() int32 { return int32(r.m.CompletedCourses) }
func (r *dashboardResolver) OpenTasks() int32 { return int32(r.m.OpenTasks) }
func (r *dashboardResolver) UpcomingEvents() int32 { return int32(r.m.UpcomingEvents) }
func (r *dashboardResolver) UnreadNotifications() int32 { return int32(r.m.UnreadNotifications) }
func (r *dashboardResolver) PendingPolicies() int32 { return int32(r.m.PendingPolicies) }
func (r *dashboardResolver) Level() int32 { return int32(r.m.Level) }
func (r *dashboardResolver) TotalXP() int32 { return int32(r.m.TotalXP) }
func (r *dashboardResolver) WeeklyXP() int32 { return int32(r.m.WeeklyXP) }
func (r *dashboardResolver) CurrentStreak() int32 { return int32(r.m.CurrentStreak) }

// userByID resolves a related user.
func (r *Resolver) userByID(ctx context.Context, id uint) (*userResolver, error) {
	u, err := r.svc.Users.Get(ctx, id)
	if err != nil {
		return nil, r.fail(ctx, "user", err)
	}
	return &userResolver{u: u}, nil
}
