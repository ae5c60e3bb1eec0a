package models

import (
	"time"

	"gorm.io/datatypes"
)

// Activity types
const (
	ActivityXPGain         = "xp_gain"
	ActivityLogin          = "login"
	ActivityCourseComplete = "course_complete"
	ActivityPolicyAck      = "policy_ack"
	ActivityLevelUp        = "level_up"
)

// Achievement categories
const (
	AchievementStreak = "streak"
	AchievementLevel  = "level"
	AchievementXP     = "xp"
)

// Leaderboard metrics
const (
	MetricTotal  = "total"
	MetricWeekly = "weekly"
)

// ActivityLog is an append-only record written whenever XP is granted.
type ActivityLog struct {
	ID          string         `gorm:"primaryKey;type:uuid" json:"id"`
	UserID      uint           `gorm:"not null;index" json:"userId"`
	Type        string         `gorm:"not null;size:50" json:"type"`
	Description string         `gorm:"not null;default:''" json:"description"`
	Metadata    datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt   time.Time      `gorm:"index" json:"createdAt"`
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}

// LeaderboardEntry is one ranked row of a leaderboard.
type LeaderboardEntry struct {
	Rank          int    `json:"rank"`
	UserID        uint   `json:"userId"`
	Username      string `json:"username"`
	Name          string `json:"name"`
	AvatarURL     string `json:"avatarUrl"`
	Department    string `json:"department"`
	Level         int    `json:"level"`
	TotalXP       int    `json:"totalXP"`
	WeeklyXP      int    `json:"weeklyXP"`
	Score         int    `json:"score"`
	CurrentStreak int    `json:"currentStreak"`
	CurrentUser   bool   `json:"currentUser"`
}

// Achievement is a badge definition users can unlock.
type Achievement struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Code        string    `gorm:"uniqueIndex;not null" json:"code"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `gorm:"not null;default:''" json:"description"`
	Icon        string    `gorm:"not null;default:''" json:"icon"`
	Category    string    `gorm:"not null;default:'achievement'" json:"category"`
	Threshold   int       `gorm:"not null;default:0" json:"threshold"`
	XPReward    int       `gorm:"column:xp_reward;not null;default:0" json:"xpReward"`
	CreatedAt   time.Time `json:"createdAt"`
}

// UserAchievement records an achievement unlocked by a user.
type UserAchievement struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;uniqueIndex:idx_user_achievement" json:"userId"`
	AchievementID uint      `gorm:"not null;uniqueIndex:idx_user_achievement" json:"achievementId"`
	EarnedAt      time.Time `json:"earnedAt"`
}

// GamificationEvent is published on the event bus when XP or levels change.
type GamificationEvent struct {
	Type      string    `json:"type"` // "xp_gain", "level_up"
	UserID    uint      `json:"userId"`
	Points    int       `json:"points,omitempty"`
	NewTotal  int       `json:"newTotal,omitempty"`
	NewLevel  int       `json:"newLevel,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
