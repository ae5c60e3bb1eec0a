package services

import (
	"context"
	"time"

	"maternar/models"
	"maternar/store"
)

// upcomingWindow is how far ahead events count as upcoming.
const upcomingWindow = 7 * 24 * time.Hour

type DashboardService struct {
	store store.Store
	now   func() time.Time
}

func NewDashboardService(s store.Store) *DashboardService {
	return &DashboardService{store: s, now: time.Now}
}

// Metrics collects the home page counters for the viewer.
func (ds *DashboardService) Metrics(ctx context.Context, userID uint) (*models.DashboardMetrics, error) {
	u, err := ds.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	m := &models.DashboardMetrics{
		Level:         u.Level,
		TotalXP:       u.TotalXP,
		WeeklyXP:      u.WeeklyXP,
		CurrentStreak: u.CurrentStreak,
	}

	now := ds.now()
	counters := []struct {
		dst *int64
		fn  func() (int64, error)
	}{
		{&m.TotalUsers, func() (int64, error) { return ds.store.CountUsers(ctx) }},
		{&m.ActiveCourses, func() (int64, error) { return ds.store.CountCourses(ctx, true) }},
		{&m.CompletedCourses, func() (int64, error) { return ds.store.CountCompletedEnrollments(ctx, userID) }},
		{&m.OpenTasks, func() (int64, error) { return ds.store.CountOpenTasks(ctx, userID) }},
		{&m.UpcomingEvents, func() (int64, error) { return ds.store.CountEventsBetween(ctx, now, now.Add(upcomingWindow)) }},
		{&m.UnreadNotifications, func() (int64, error) { return ds.store.CountUnreadNotifications(ctx, userID) }},
		{&m.PendingPolicies, func() (int64, error) { return ds.store.CountPendingPolicies(ctx, userID) }},
	}
	for _, c := range counters {
		n, err := c.fn()
		if err != nil {
			return nil, err
		}
		*c.dst = n
	}
	return m, nil
}
