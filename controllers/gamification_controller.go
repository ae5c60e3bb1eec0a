package controllers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"maternar/middlewares"
	"maternar/services"
	"maternar/structs"
)

// GamificationController exposes the REST mirror of the gamification
// ledger.
type GamificationController struct {
	gamification *services.GamificationService
	users        *services.UserService
	logger       *slog.Logger
}

func NewGamificationController(gs *services.GamificationService, us *services.UserService, logger *slog.Logger) *GamificationController {
	return &GamificationController{gamification: gs, users: us, logger: logger}
}

// GetLeaderboard serves GET /api/leaderboard?limit=&metric=total|weekly.
func (gc *GamificationController) GetLeaderboard(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "limit must be a number")
			return
		}
		limit = n
	}

	u := middlewares.CurrentUser(c)
	entries, err := gc.gamification.Leaderboard(c.Request.Context(), limit, c.Query("metric"), u.ID)
	if err != nil {
		respondError(c, gc.logger, "leaderboard", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// GetMine serves GET /api/gamification/me with the caller's counters and
// achievements.
func (gc *GamificationController) GetMine(c *gin.Context) {
	ctx := c.Request.Context()
	u, err := gc.users.Get(ctx, middlewares.CurrentUser(c).ID)
	if err != nil {
		respondError(c, gc.logger, "gamification me", err)
		return
	}
	achievements, err := gc.gamification.Achievements(ctx, u.ID)
	if err != nil {
		respondError(c, gc.logger, "gamification me", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"totalXP":       u.TotalXP,
		"weeklyXP":      u.WeeklyXP,
		"level":         u.Level,
		"currentStreak": u.CurrentStreak,
		"longestStreak": u.LongestStreak,
		"lastActive":    u.LastActive,
		"achievements":  achievements,
	})
}

// GrantXP serves POST /api/gamification/xp. Admin only.
func (gc *GamificationController) GrantXP(c *gin.Context) {
	var req structs.GrantXPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "userId and amount are required")
		return
	}
	change, err := gc.gamification.GrantXP(c.Request.Context(), req.UserID, req.Amount, req.Reason)
	if err != nil {
		respondError(c, gc.logger, "grant xp", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"userId":    change.User.ID,
		"points":    change.Points,
		"totalXP":   change.User.TotalXP,
		"weeklyXP":  change.User.WeeklyXP,
		"level":     change.User.Level,
		"leveledUp": change.LeveledUp(),
	})
}

// ResetWeeklyXP serves POST /api/gamification/reset-weekly. Admin only.
func (gc *GamificationController) ResetWeeklyXP(c *gin.Context) {
	n, err := gc.gamification.ResetWeeklyXP(c.Request.Context())
	if err != nil {
		respondError(c, gc.logger, "reset weekly xp", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}
