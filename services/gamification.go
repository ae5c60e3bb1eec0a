package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"maternar/internal/events"
	"maternar/models"
	"maternar/store"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

// GamificationConfig holds the XP constants.
type GamificationConfig struct {
	XPPerLevel    int
	XPLoginStreak int
	// Location decides where calendar days start for streaks.
	Location *time.Location
}

// LevelFor derives the level from total XP: floor(totalXP / xpPerLevel) + 1.
func LevelFor(totalXP, xpPerLevel int) int {
	if totalXP < 0 {
		totalXP = 0
	}
	return totalXP/xpPerLevel + 1
}

// dayDiff counts calendar days between last and now in loc.
func dayDiff(last, now time.Time, loc *time.Location) int {
	ly, lm, ld := last.In(loc).Date()
	ny, nm, nd := now.In(loc).Date()
	a := time.Date(ly, lm, ld, 0, 0, 0, 0, time.UTC)
	b := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

func (c GamificationConfig) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// ApplyLogin updates the streak counters of u for a login at now, adds the
// streak bonus and returns it. A login earlier than lastActive counts as the
// same day.
func (c GamificationConfig) ApplyLogin(u *models.User, now time.Time) int {
	if u.LastActive == nil {
		u.CurrentStreak = 1
	} else {
		switch d := dayDiff(*u.LastActive, now, c.location()); {
		case d <= 0:
		case d == 1:
			u.CurrentStreak++
		default:
			u.CurrentStreak = 1
		}
	}
	if u.CurrentStreak > u.LongestStreak {
		u.LongestStreak = u.CurrentStreak
	}

	bonus := u.CurrentStreak * c.XPLoginStreak
	c.addXP(u, bonus)
	at := now
	u.LastActive = &at
	return bonus
}

func (c GamificationConfig) addXP(u *models.User, amount int) {
	u.TotalXP += amount
	u.WeeklyXP += amount
	u.Level = LevelFor(u.TotalXP, c.XPPerLevel)
}

// XPChange describes the outcome of a login or XP grant.
type XPChange struct {
	User          *models.User
	Points        int
	PreviousLevel int
}

func (c *XPChange) LeveledUp() bool {
	return c.User.Level > c.PreviousLevel
}

// AchievementStatus is an achievement as seen by one user.
type AchievementStatus struct {
	models.Achievement
	Unlocked bool       `json:"unlocked"`
	EarnedAt *time.Time `json:"earnedAt,omitempty"`
}

type GamificationService struct {
	store         store.Store
	bus           events.Bus
	notifications *NotificationService
	cfg           GamificationConfig
	logger        *slog.Logger
	now           func() time.Time
}

func NewGamificationService(s store.Store, bus events.Bus, ns *NotificationService, cfg GamificationConfig, logger *slog.Logger) *GamificationService {
	return &GamificationService{store: s, bus: bus, notifications: ns, cfg: cfg, logger: logger, now: time.Now}
}

func (gs *GamificationService) Config() GamificationConfig { return gs.cfg }

// RecordLogin applies the login streak rule to the user inside a row-locking
// transaction.
func (gs *GamificationService) RecordLogin(ctx context.Context, userID uint) (*XPChange, error) {
	now := gs.now()
	change := &XPChange{}
	err := gs.store.WithTx(ctx, func(tx store.Store) error {
		u, err := tx.LockUser(ctx, userID)
		if err != nil {
			return notFound(err, ErrUserNotFound)
		}
		change.PreviousLevel = u.Level
		change.Points = gs.cfg.ApplyLogin(u, now)
		if err := tx.UpdateUser(ctx, u); err != nil {
			return err
		}
		change.User = u

		desc := fmt.Sprintf("Daily login, streak of %d days", u.CurrentStreak)
		meta := map[string]interface{}{"amount": change.Points, "streak": u.CurrentStreak}
		return tx.AppendActivity(ctx, newActivity(u.ID, models.ActivityLogin, desc, meta, now))
	})
	if err != nil {
		return nil, err
	}

	gs.afterXPChange(ctx, change, "login streak")
	return change, nil
}

// GrantXP adds amount to the user's total and weekly XP. A non-empty reason
// is recorded in the activity log. Negative amounts are rejected.
func (gs *GamificationService) GrantXP(ctx context.Context, userID uint, amount int, reason string) (*XPChange, error) {
	if amount < 0 {
		return nil, errNegativeXP()
	}
	change, err := gs.GrantXPWith(ctx, userID, reason, func(store.Store) (int, error) {
		return amount, nil
	})
	if err != nil {
		return nil, err
	}
	if change == nil {
		change = &XPChange{}
		if change.User, err = gs.store.GetUserByID(ctx, userID); err != nil {
			return nil, notFound(err, ErrUserNotFound)
		}
		change.PreviousLevel = change.User.Level
	}
	return change, nil
}

// GrantXPWith locks the user, runs fn in the same transaction and grants the
// XP it returns. The grant and fn's writes commit or roll back together. A
// zero amount grants nothing and the returned change is nil.
func (gs *GamificationService) GrantXPWith(ctx context.Context, userID uint, reason string, fn func(tx store.Store) (int, error)) (*XPChange, error) {
	now := gs.now()
	var change *XPChange
	err := gs.store.WithTx(ctx, func(tx store.Store) error {
		u, err := tx.LockUser(ctx, userID)
		if err != nil {
			return notFound(err, ErrUserNotFound)
		}
		amount, err := fn(tx)
		if err != nil {
			return err
		}
		switch {
		case amount < 0:
			return errNegativeXP()
		case amount == 0:
			return nil
		}

		change = &XPChange{Points: amount, PreviousLevel: u.Level}
		gs.cfg.addXP(u, amount)
		if err := tx.UpdateUser(ctx, u); err != nil {
			return err
		}
		change.User = u

		if reason == "" {
			return nil
		}
		meta := map[string]interface{}{"amount": amount}
		return tx.AppendActivity(ctx, newActivity(u.ID, models.ActivityXPGain, reason, meta, now))
	})
	if err != nil || change == nil {
		return nil, err
	}

	gs.afterXPChange(ctx, change, reason)
	return change, nil
}

func errNegativeXP() error {
	return NewValidationError("amount must not be negative", FieldError{Field: "amount", Error: "must not be negative"})
}

// afterXPChange publishes the change, raises level-up notifications and
// unlocks achievements. Failures here never undo the committed XP.
func (gs *GamificationService) afterXPChange(ctx context.Context, change *XPChange, reason string) {
	u := change.User
	now := gs.now()

	gs.publish(ctx, models.GamificationEvent{
		Type:      models.ActivityXPGain,
		UserID:    u.ID,
		Points:    change.Points,
		NewTotal:  u.TotalXP,
		NewLevel:  u.Level,
		Reason:    reason,
		Timestamp: now,
	})

	if change.LeveledUp() {
		desc := fmt.Sprintf("Reached level %d", u.Level)
		meta := map[string]interface{}{"from": change.PreviousLevel, "to": u.Level}
		if err := gs.store.AppendActivity(ctx, newActivity(u.ID, models.ActivityLevelUp, desc, meta, now)); err != nil {
			gs.logger.Error("failed to log level up", "user_id", u.ID, "error", err)
		}
		err := gs.notifications.Notify(ctx, &models.Notification{
			UserID: u.ID,
			Type:   models.NotificationLevelUp,
			Title:  fmt.Sprintf("You reached level %d", u.Level),
			Body:   fmt.Sprintf("You now have %d XP. Keep going!", u.TotalXP),
			Link:   "/gamification",
		})
		if err != nil {
			gs.logger.Error("failed to notify level up", "user_id", u.ID, "error", err)
		}
		gs.publish(ctx, models.GamificationEvent{
			Type:      models.ActivityLevelUp,
			UserID:    u.ID,
			NewTotal:  u.TotalXP,
			NewLevel:  u.Level,
			Timestamp: now,
		})
	}

	gs.checkAchievements(ctx, u)
}

func (gs *GamificationService) publish(ctx context.Context, ev models.GamificationEvent) {
	if err := gs.bus.Publish(ctx, events.TopicGamification, ev); err != nil {
		gs.logger.Warn("failed to publish gamification event", "type", ev.Type, "error", err)
	}
}

func (gs *GamificationService) checkAchievements(ctx context.Context, u *models.User) {
	achievements, err := gs.store.ListAchievements(ctx)
	if err != nil {
		gs.logger.Error("failed to list achievements", "error", err)
		return
	}

	for _, a := range achievements {
		if a.Threshold <= 0 || !reached(a, u) {
			continue
		}
		awarded, err := gs.store.AwardAchievement(ctx, &models.UserAchievement{
			UserID:        u.ID,
			AchievementID: a.ID,
			EarnedAt:      gs.now(),
		})
		if err != nil {
			gs.logger.Error("failed to award achievement", "user_id", u.ID, "code", a.Code, "error", err)
			continue
		}
		if !awarded {
			continue
		}

		gs.logger.Info("achievement unlocked", "user_id", u.ID, "code", a.Code)
		err = gs.notifications.Notify(ctx, &models.Notification{
			UserID: u.ID,
			Type:   models.NotificationAchievement,
			Title:  "Achievement unlocked: " + a.Name,
			Body:   a.Description,
			Link:   "/gamification",
		})
		if err != nil {
			gs.logger.Error("failed to notify achievement", "user_id", u.ID, "error", err)
		}
		if a.XPReward > 0 {
			if _, err := gs.GrantXP(ctx, u.ID, a.XPReward, "Achievement: "+a.Name); err != nil {
				gs.logger.Error("failed to grant achievement reward", "user_id", u.ID, "error", err)
			}
		}
	}
}

func reached(a models.Achievement, u *models.User) bool {
	switch a.Category {
	case models.AchievementStreak:
		return u.CurrentStreak >= a.Threshold
	case models.AchievementLevel:
		return u.Level >= a.Threshold
	case models.AchievementXP:
		return u.TotalXP >= a.Threshold
	default:
		return false
	}
}

// ResetWeeklyXP zeroes the weekly XP of every user.
func (gs *GamificationService) ResetWeeklyXP(ctx context.Context) (int64, error) {
	n, err := gs.store.ResetWeeklyXP(ctx)
	if err != nil {
		return 0, err
	}
	gs.logger.Info("weekly xp reset", "users", n)
	gs.publish(ctx, models.GamificationEvent{Type: "weekly_reset", Timestamp: gs.now()})
	return n, nil
}

// Leaderboard ranks active users by metric ("total" or "weekly"), highest
// first. viewerID marks the caller's own row.
func (gs *GamificationService) Leaderboard(ctx context.Context, limit int, metric string, viewerID uint) ([]models.LeaderboardEntry, error) {
	if metric == "" {
		metric = models.MetricTotal
	}
	if metric != models.MetricTotal && metric != models.MetricWeekly {
		return nil, NewValidationError("metric must be one of: total, weekly", FieldError{Field: "metric", Error: "must be one of: total, weekly"})
	}
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}

	users, err := gs.store.TopUsers(ctx, metric, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]models.LeaderboardEntry, 0, len(users))
	for i := range users {
		u := &users[i]
		score := u.TotalXP
		if metric == models.MetricWeekly {
			score = u.WeeklyXP
		}
		entries = append(entries, models.LeaderboardEntry{
			Rank:          i + 1,
			UserID:        u.ID,
			Username:      u.Username,
			Name:          u.DisplayName(),
			AvatarURL:     u.Avatar(),
			Department:    u.Department,
			Level:         u.Level,
			TotalXP:       u.TotalXP,
			WeeklyXP:      u.WeeklyXP,
			Score:         score,
			CurrentStreak: u.CurrentStreak,
			CurrentUser:   u.ID == viewerID,
		})
	}
	return entries, nil
}

// Achievements lists every achievement with the user's unlock state.
func (gs *GamificationService) Achievements(ctx context.Context, userID uint) ([]AchievementStatus, error) {
	all, err := gs.store.ListAchievements(ctx)
	if err != nil {
		return nil, err
	}
	earned, err := gs.store.ListUserAchievements(ctx, userID)
	if err != nil {
		return nil, err
	}
	at := make(map[uint]time.Time, len(earned))
	for _, ua := range earned {
		at[ua.AchievementID] = ua.EarnedAt
	}

	out := make([]AchievementStatus, 0, len(all))
	for _, a := range all {
		st := AchievementStatus{Achievement: a}
		if t, ok := at[a.ID]; ok {
			st.Unlocked = true
			st.EarnedAt = &t
		}
		out = append(out, st)
	}
	return out, nil
}

func (gs *GamificationService) Activity(ctx context.Context, userID uint, limit int) ([]models.ActivityLog, error) {
	if limit <= 0 {
		limit = 20
	}
	return gs.store.ListActivities(ctx, userID, limit)
}

func newActivity(userID uint, typ, desc string, meta map[string]interface{}, at time.Time) *models.ActivityLog {
	raw, _ := json.Marshal(meta)
	return &models.ActivityLog{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        typ,
		Description: desc,
		Metadata:    raw,
		CreatedAt:   at,
	}
}
