package models

import "time"

// Project statuses
const (
	ProjectActive    = "active"
	ProjectCompleted = "completed"
	ProjectArchived  = "archived"
)

// Task statuses
const (
	TaskTodo       = "todo"
	TaskInProgress = "in_progress"
	TaskDone       = "done"
)

// Task priorities
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Project groups tasks owned by a user.
type Project struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Name        string     `gorm:"not null" json:"name"`
	Description string     `gorm:"not null;default:''" json:"description"`
	Status      string     `gorm:"not null;default:'active'" json:"status"`
	OwnerID     uint       `gorm:"not null;index" json:"ownerId"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Tasks       []Task     `gorm:"constraint:OnDelete:CASCADE;" json:"tasks,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Task is a unit of work inside a project.
type Task struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	ProjectID   uint       `gorm:"not null;index" json:"projectId"`
	Title       string     `gorm:"not null" json:"title"`
	Description string     `gorm:"not null;default:''" json:"description"`
	Status      string     `gorm:"not null;default:'todo';index" json:"status"`
	Priority    string     `gorm:"not null;default:'medium'" json:"priority"`
	AssigneeID  *uint      `gorm:"index" json:"assigneeId,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// ProjectUpdate carries changeable project fields. Nil fields are kept.
type ProjectUpdate struct {
	Name        *string
	Description *string
	Status      *string
	DueDate     *time.Time
}

// TaskUpdate carries changeable task fields. Nil fields are kept.
type TaskUpdate struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	AssigneeID  *uint
	DueDate     *time.Time
}

// Task event actions
const (
	TaskCreated = "created"
	TaskUpdated = "updated"
	TaskDeleted = "deleted"
)

// TaskEvent is published to project subscribers whenever a task changes.
type TaskEvent struct {
	Action string `json:"action"`
	Task   Task   `json:"task"`
}
