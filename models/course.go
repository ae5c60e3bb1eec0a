package models

import "time"

// Enrollment statuses
const (
	EnrollmentInProgress = "in_progress"
	EnrollmentCompleted  = "completed"
)

// Course is a training module of the LMS.
type Course struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `gorm:"not null;default:''" json:"description"`
	Category    string    `gorm:"not null;default:''" json:"category"`
	Duration    int       `gorm:"not null;default:0" json:"duration"` // minutes
	XPReward    int       `gorm:"column:xp_reward;not null;default:0" json:"xpReward"`
	IsActive    bool      `gorm:"not null;default:true" json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Enrollment tracks a user's progress through a course.
type Enrollment struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"not null;uniqueIndex:idx_enrollment_user_course" json:"userId"`
	CourseID    uint       `gorm:"not null;uniqueIndex:idx_enrollment_user_course" json:"courseId"`
	Status      string     `gorm:"not null;default:'in_progress'" json:"status"`
	Progress    int        `gorm:"not null;default:0" json:"progress"` // percent
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

func (e *Enrollment) Completed() bool {
	return e.Status == EnrollmentCompleted
}
