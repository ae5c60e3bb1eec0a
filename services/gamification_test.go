package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maternar/models"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestApplyLogin(t *testing.T) {
	cfg := GamificationConfig{XPPerLevel: 1000, XPLoginStreak: 10, Location: time.UTC}
	now := time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		lastActive  *time.Time
		streak      int
		longest     int
		wantStreak  int
		wantLongest int
		wantBonus   int
	}{
		{"first login", nil, 0, 0, 1, 1, 10},
		{"yesterday extends streak", timePtr(now.Add(-24 * time.Hour)), 3, 3, 4, 4, 40},
		{"late yesterday still counts", timePtr(time.Date(2024, 3, 13, 23, 59, 0, 0, time.UTC)), 2, 5, 3, 5, 30},
		{"same day keeps streak", timePtr(now.Add(-2 * time.Hour)), 4, 6, 4, 6, 40},
		{"gap resets streak", timePtr(now.Add(-5 * 24 * time.Hour)), 7, 7, 1, 7, 10},
		{"clock skew counts as same day", timePtr(now.Add(48 * time.Hour)), 2, 2, 2, 2, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &models.User{LastActive: tt.lastActive, CurrentStreak: tt.streak, LongestStreak: tt.longest, Level: 1}
			bonus := cfg.ApplyLogin(u, now)

			assert.Equal(t, tt.wantBonus, bonus)
			assert.Equal(t, tt.wantStreak, u.CurrentStreak)
			assert.Equal(t, tt.wantLongest, u.LongestStreak)
			assert.Equal(t, tt.wantBonus, u.TotalXP)
			assert.Equal(t, tt.wantBonus, u.WeeklyXP)
			require.NotNil(t, u.LastActive)
			assert.True(t, u.LastActive.Equal(now))
			assert.GreaterOrEqual(t, u.LongestStreak, u.CurrentStreak)
		})
	}
}

func TestApplyLoginUsesConfiguredTimezone(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	cfg := GamificationConfig{XPPerLevel: 1000, XPLoginStreak: 10, Location: loc}

	// 23:30 and 00:30 local time are different days in BRT but the same
	// day in UTC.
	last := time.Date(2024, 3, 13, 23, 30, 0, 0, loc)
	now := time.Date(2024, 3, 14, 0, 30, 0, 0, loc)
	u := &models.User{LastActive: &last, CurrentStreak: 1, LongestStreak: 1}

	cfg.ApplyLogin(u, now)
	assert.Equal(t, 2, u.CurrentStreak)
}

func TestLevelFor(t *testing.T) {
	assert.Equal(t, 1, LevelFor(0, 1000))
	assert.Equal(t, 1, LevelFor(999, 1000))
	assert.Equal(t, 2, LevelFor(1000, 1000))
	assert.Equal(t, 4, LevelFor(3500, 1000))
	assert.Equal(t, 1, LevelFor(-5, 1000))
}

func TestRecordLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.addUser(t, "maria@maternar.com", models.RoleUser)

	stored := env.reload(t, u.ID)
	stored.LastActive = timePtr(env.now.Add(-24 * time.Hour))
	stored.CurrentStreak = 3
	stored.LongestStreak = 3
	require.NoError(t, env.store.UpdateUser(ctx, stored))

	change, err := env.svc.Gamification.RecordLogin(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, change.Points)

	got := env.reload(t, u.ID)
	assert.Equal(t, 4, got.CurrentStreak)
	assert.Equal(t, 4, got.LongestStreak)
	assert.Equal(t, 40, got.TotalXP)
	assert.Equal(t, 40, got.WeeklyXP)
	assert.True(t, got.LastActive.Equal(env.now))

	acts, err := env.store.ListActivities(ctx, u.ID, 10)
	require.NoError(t, err)
	require.Len(t, acts, 1)
	assert.Equal(t, models.ActivityLogin, acts[0].Type)
}

func TestRecordLoginPropagatesStoreFailure(t *testing.T) {
	env := newTestEnv(t)
	u := env.addUser(t, "maria@maternar.com", models.RoleUser)
	boom := errors.New("connection reset")
	env.store.Err = boom

	_, err := env.svc.Gamification.RecordLogin(context.Background(), u.ID)
	assert.ErrorIs(t, err, boom)
}

func TestGrantXP(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.addUser(t, "joao@maternar.com", models.RoleUser)

	for _, amount := range []int{250, 0, 900, 1700} {
		_, err := env.svc.Gamification.GrantXP(ctx, u.ID, amount, "")
		require.NoError(t, err)
	}

	got := env.reload(t, u.ID)
	assert.Equal(t, 2850, got.TotalXP)
	assert.Equal(t, 2850, got.WeeklyXP)
	assert.Equal(t, got.TotalXP/1000+1, got.Level)

	acts, err := env.store.ListActivities(ctx, u.ID, 0)
	require.NoError(t, err)
	for _, a := range acts {
		assert.NotEqual(t, models.ActivityXPGain, a.Type, "grants without a reason must not be logged")
	}
}

func TestGrantXPWithReasonLogsActivity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.addUser(t, "joao@maternar.com", models.RoleUser)

	_, err := env.svc.Gamification.GrantXP(ctx, u.ID, 75, "Helped a colleague")
	require.NoError(t, err)

	acts, err := env.store.ListActivities(ctx, u.ID, 10)
	require.NoError(t, err)
	require.Len(t, acts, 1)
	assert.Equal(t, models.ActivityXPGain, acts[0].Type)
	assert.Equal(t, "Helped a colleague", acts[0].Description)

	var meta map[string]int
	require.NoError(t, json.Unmarshal(acts[0].Metadata, &meta))
	assert.Equal(t, 75, meta["amount"])
}

func TestGrantXPRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Gamification.GrantXP(ctx, 999, 10, "reason")
	assert.ErrorIs(t, err, ErrUserNotFound)

	u := env.addUser(t, "joao@maternar.com", models.RoleUser)
	_, err = env.svc.Gamification.GrantXP(ctx, u.ID, -10, "")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, 0, env.reload(t, u.ID).TotalXP)
}

func TestGrantXPLevelUpNotifies(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.addUser(t, "joao@maternar.com", models.RoleUser)

	change, err := env.svc.Gamification.GrantXP(ctx, u.ID, 1200, "Course")
	require.NoError(t, err)
	assert.True(t, change.LeveledUp())
	assert.Equal(t, 2, change.User.Level)

	notes, err := env.svc.Notifications.List(ctx, u.ID, 0, true)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationLevelUp, notes[0].Type)
	assert.Equal(t, "You reached level 2", notes[0].Title)
}

func TestAchievementsUnlockOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.store.SeedAchievement(models.Achievement{Code: "xp_500", Name: "Rising", Category: models.AchievementXP, Threshold: 500, XPReward: 25})
	u := env.addUser(t, "joao@maternar.com", models.RoleUser)

	_, err := env.svc.Gamification.GrantXP(ctx, u.ID, 600, "")
	require.NoError(t, err)
	_, err = env.svc.Gamification.GrantXP(ctx, u.ID, 100, "")
	require.NoError(t, err)

	list, err := env.svc.Gamification.Achievements(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Unlocked)
	assert.Equal(t, 725, env.reload(t, u.ID).TotalXP, "reward is granted exactly once")
}

func TestLeaderboard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	xp := []int{300, 1200, 50, 1200, 800}
	var ids []uint
	for i, amount := range xp {
		u := env.addUser(t, string(rune('a'+i))+"@maternar.com", models.RoleUser)
		_, err := env.svc.Gamification.GrantXP(ctx, u.ID, amount, "")
		require.NoError(t, err)
		ids = append(ids, u.ID)
	}

	entries, err := env.svc.Gamification.Leaderboard(ctx, 3, models.MetricTotal, ids[4])
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, e := range entries {
		assert.Equal(t, i+1, e.Rank)
	}
	assert.Equal(t, ids[1], entries[0].UserID, "ties keep the lower id first")
	assert.Equal(t, ids[3], entries[1].UserID)
	assert.Equal(t, ids[4], entries[2].UserID)
	assert.True(t, entries[2].CurrentUser)
	assert.GreaterOrEqual(t, entries[0].Score, entries[1].Score)
	assert.GreaterOrEqual(t, entries[1].Score, entries[2].Score)
}

func TestLeaderboardMetric(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Gamification.Leaderboard(ctx, 10, "monthly", 0)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	a := env.addUser(t, "a@maternar.com", models.RoleUser)
	b := env.addUser(t, "b@maternar.com", models.RoleUser)
	_, err = env.svc.Gamification.GrantXP(ctx, a.ID, 2000, "")
	require.NoError(t, err)
	_, err = env.svc.Gamification.ResetWeeklyXP(ctx)
	require.NoError(t, err)
	_, err = env.svc.Gamification.GrantXP(ctx, b.ID, 100, "")
	require.NoError(t, err)

	entries, err := env.svc.Gamification.Leaderboard(ctx, 0, models.MetricWeekly, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, b.ID, entries[0].UserID)
	assert.Equal(t, 100, entries[0].Score)
}

func TestResetWeeklyXPIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.addUser(t, "a@maternar.com", models.RoleUser)
	_, err := env.svc.Gamification.GrantXP(ctx, u.ID, 500, "")
	require.NoError(t, err)

	n, err := env.svc.Gamification.ResetWeeklyXP(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = env.svc.Gamification.ResetWeeklyXP(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	got := env.reload(t, u.ID)
	assert.Equal(t, 0, got.WeeklyXP)
	assert.Equal(t, 500, got.TotalXP)
}

func TestGrantXPPublishesEvent(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	u := env.addUser(t, "a@maternar.com", models.RoleUser)

	ch, err := env.bus.Subscribe(ctx, "gamification")
	require.NoError(t, err)

	_, err = env.svc.Gamification.GrantXP(ctx, u.ID, 30, "")
	require.NoError(t, err)

	select {
	case data := <-ch:
		var ev models.GamificationEvent
		require.NoError(t, json.Unmarshal(data, &ev))
		assert.Equal(t, u.ID, ev.UserID)
		assert.Equal(t, 30, ev.Points)
		assert.Equal(t, 30, ev.NewTotal)
	case <-time.After(time.Second):
		t.Fatal("no gamification event published")
	}
}
