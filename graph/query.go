package graph

import (
	"context"

	graphql "github.com/graph-gophers/graphql-go"

	"maternar/models"
)

func (r *Resolver) Me(ctx context.Context) (*userResolver, error) {
	u, err := r.viewer(ctx)
	if err != nil {
		return nil, err
	}
	// reload so XP changed by other requests shows up
	return r.userByID(ctx, u.ID)
}

func (r *Resolver) Users(ctx context.Context) ([]*userResolver, error) {
	if _, err := r.viewer(ctx); err != nil {
		return nil, err
	}
	list, err := r.svc.Users.List(ctx)
	if err != nil {
		return nil, r.fail(ctx, "users", err)
	}
	return users(list), nil
}

func (r *Resolver) Courses(ctx context.Context) ([]*courseResolver, error) {
	u, err := r.viewer(ctx)
	if err != nil {
		return nil, err
	}
	views, err := r.svc.Courses.List(ctx, u.ID)
	if err != nil {
		return nil, r.fail(ctx, "courses", err)
	}
	out := make([]*courseResolver, len(views))
	for i := range views {
		out[i] = &courseResolver{v: views[i]}
	}
	return out, nil
}

func (r *Resolver) Achievements(ctx context.Context) ([]*achievementResolver, error) {
	u, err := r.viewer(ctx)
	if err != nil {
		return nil, err
	}
	list, err := r.svc.Gamification.Achievements(ctx, u.ID)
	if err != nil {
		return nil, r.fail(ctx, "achievements", err)
	}
	out := make([]*achievementResolver, len(list))
	for i := range list {
		out[i] = &achievementResolver{a: list[i]}
	}
	return out, nil
}

func (r *Resolver) Activity(ctx context.Context, args struct{ Limit *int32 }) ([]*activityResolver, error) {
	u, err := r.viewer(ctx)
	if err != nil {
		return nil, err
	}
	list, err := r.svc.Gamification.Activity(ctx, u.ID, intOr(args.Limit, 0))
	if err != nil {
		return nil, r.fail(ctx, "activity", err)
	}
	out := make([]*activityResolver, len(list))
	for i := range list {
		out[i] = &activityResolver{a: list[i]}
	}
	return out, nil
}

func (r *Resolver) Channels(ctx context.Context) ([]*channelResolver, error) {
	u, err := r.viewer(ctx)
	if err != nil {
		return nil, err
	}
	list, err := r.svc.Chat.Channels(ctx, u.ID)
	if err != nil {
		return nil, r.fail(ctx, "channels", err)
	}
	out := make([]*channelResolver, len(list))
	for i := range list {
		out[i] = &channelResolver{c: &list[i]}
	}
	return out, nil
}

func (r *Resolver) Messages(ctx context.Context, args struct {
	ChannelID graphql.ID
	Limit     *int32
	Offset    *int32
}) ([]*messageResolver, error) {
	u, err := r.viewer(ctx)
	if err != nil {
		return nil, err
	}
	channelID, err := parseID(args.ChannelID)
	if err != nil {
		return nil, r.fail(ctx, "messages", err)
	}
	list, err := r.svc.Chat.Messages(ctx, u.ID, channelID, intOr(args.Limit, 0), intOr(args.Offset, 0))
	if err != nil {
		return nil, r.fail(ctx, "messages", err)
	}
	return r.messages(list), nil
}

func (r *Resolver) messages(list []models.Message) []*messageResolver {
	out := make([]*messageResolver, len(list))
	for i := range list {
		out[i] = &messageResolver{root: r, m: &list[i]}
	}
	return out
}

func (r *Resolver) Events(ctx context.Context, args struct {
	StartDate graphql.Time
	EndDate   graphql.Time
}) ([]*eventResolver, error) {
	if _, err := r.viewer(ctx); err != nil {
		return nil, err
	}
	list, err := r.svc.Calendar.Events(ctx, args.StartDate.Time, args.EndDate.Time)
	if err != nil {
		return nil, r.fail(ctx, "events", err)
	}
	out := make([]*eventResolver, len(list))
	for i := range list {
		out[i] = &eventResolver{e: &list[i]}
	}
	return out, nil
}

func (r *Resolver) Projects(ctx context.Context) ([]*projectResolver, error) {
	u, err := r.viewer(ctx)
	if err != nil {
		return nil, err
	}
	list, err := r.svc.Projects.List(ctx, u)
	if err != nil {
		return nil, r.fail(ctx, "projects", err)
	}
	out := make([]*projectResolver, len(list))
	for i := range list {
		out[i] = &projectResolver{root: r, p: &list[i]}
	}
	return out, nil
}

func (r *Resolver) Policies(ctx context.Context) ([]*policyResolver, error) {
	u, err := r.viewer(ctx)
	if err != nil {
		return nil, err
	}
	views, err := r.svc.Policies.List(ctx, u.ID)
	if err != nil {
		return nil, r.fail(ctx, "policies", err)
	}
	out := make([]*policyResolver, len(views))
	for i := range views {
		out[i] = &policyResolver{v: views[i]}
	}
	return out, nil
}

func (r *Resolver) Links(ctx context.Context) ([]*linkResolver, error) {
	if _, err := r.viewer(ctx); err != nil {
		return nil, err
	}
	list, err := r.svc.Links.List(ctx)
	if err != nil {
		return nil, r.fail(ctx, "links", err)
	}
	out := make([]*linkResolver, len(list))
	for i := range list {
		out[i] = &linkResolver{l: &list[i]}
	}
	return out, nil
}

func (r *Resolver) DashboardMetrics(ctx context.Context) (*dashboardResolver, error) {
	u, err := r.viewer(ctx)
	if err != nil {
		return nil, err
	}
	m, err := r.svc.Dashboard.Metrics(ctx, u.ID)
	if err != nil {
		return nil, r.fail(ctx, "dashboardMetrics", err)
	}
	return &dashboardResolver{m: m}, nil
}

func (r *Resolver) Leaderboard(ctx context.Context, args struct {
	Limit  *int32
	Metric *string
}) ([]*leaderboardEntryResolver, error) {
	u, err := r.viewer(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := r.svc.Gamification.Leaderboard(ctx, intOr(args.Limit, 0), deref(args.Metric), u.ID)
	if err != nil {
		return nil, r.fail(ctx, "leaderboard", err)
	}
	out := make([]*leaderboardEntryResolver, len(entries))
	for i := range entries {
		out[i] = &leaderboardEntryResolver{root: r, e: entries[i]}
	}
	return out, nil
}

func (r *Resolver) Notifications(ctx context.Context, args struct {
	Limit      *int32
	UnreadOnly *bool
}) ([]*notificationResolver, error) {
	u, err := r.viewer(ctx)
	if err != nil {
		return nil, err
	}
	unread := args.UnreadOnly != nil && *args.UnreadOnly
	list, err := r.svc.Notifications.List(ctx, u.ID, intOr(args.Limit, 0), unread)
	if err != nil {
		return nil, r.fail(ctx, "notifications", err)
	}
	out := make([]*notificationResolver, len(list))
	for i := range list {
		out[i] = &notificationResolver{n: &list[i]}
	}
	return out, nil
}
