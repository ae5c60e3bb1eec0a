package models

import "time"

// Session binds a user to an issued bearer token. The token itself is never
// stored; only its id (the token's sid claim) is.
type Session struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"userId"`
	IPAddress string    `gorm:"not null;default:''" json:"ipAddress"`
	UserAgent string    `gorm:"not null;default:''" json:"userAgent"`
	ExpiresAt time.Time `gorm:"not null" json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Presence statuses
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// PresenceEvent is published when a user's first live connection opens or
// their last one closes.
type PresenceEvent struct {
	UserID    uint      `json:"userId"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}
