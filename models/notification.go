package models

import "time"

// Notification types
const (
	NotificationInfo        = "info"
	NotificationLevelUp     = "level_up"
	NotificationMessage     = "message"
	NotificationTask        = "task"
	NotificationAchievement = "achievement"
)

// Notification is a per-user message shown in the notification tray.
type Notification struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;index" json:"userId"`
	Type      string     `gorm:"not null;default:'info'" json:"type"`
	Title     string     `gorm:"not null" json:"title"`
	Body      string     `gorm:"not null;default:''" json:"body"`
	Link      string     `gorm:"not null;default:''" json:"link"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
	CreatedAt time.Time  `gorm:"index" json:"createdAt"`
}

func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}

// DashboardMetrics is the summary shown on the portal home page.
type DashboardMetrics struct {
	TotalUsers          int64 `json:"totalUsers"`
	ActiveCourses       int64 `json:"activeCourses"`
	CompletedCourses    int64 `json:"completedCourses"`
	OpenTasks           int64 `json:"openTasks"`
	UpcomingEvents      int64 `json:"upcomingEvents"`
	UnreadNotifications int64 `json:"unreadNotifications"`
	PendingPolicies     int64 `json:"pendingPolicies"`
	Level               int   `json:"level"`
	TotalXP             int   `json:"totalXP"`
	WeeklyXP            int   `json:"weeklyXP"`
	CurrentStreak       int   `json:"currentStreak"`
}
