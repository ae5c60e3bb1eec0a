package models

import "time"

// Event is a calendar entry.
type Event struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `gorm:"not null;default:''" json:"description"`
	Location    string    `gorm:"not null;default:''" json:"location"`
	StartDate   time.Time `gorm:"not null;index" json:"startDate"`
	EndDate     time.Time `gorm:"not null;index" json:"endDate"`
	AllDay      bool      `gorm:"not null;default:false" json:"allDay"`
	CreatedBy   uint      `gorm:"not null" json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// EventUpdate carries the fields that may change on an event. Nil fields are kept.
type EventUpdate struct {
	Title       *string
	Description *string
	Location    *string
	StartDate   *time.Time
	EndDate     *time.Time
	AllDay      *bool
}
