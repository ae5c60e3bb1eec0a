package models

import (
	"time"
)

// Roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User defines a portal account together with its gamification record.
// Level is always derived from TotalXP; it is stored only so leaderboards
// and listings can read it without recomputing.
type User struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	Email             string     `gorm:"uniqueIndex;not null" json:"email"`
	Username          string     `gorm:"uniqueIndex;not null" json:"username"`
	FirstName         string     `gorm:"not null;default:''" json:"firstName"`
	LastName          string     `gorm:"not null;default:''" json:"lastName"`
	Department        string     `gorm:"not null;default:''" json:"department"`
	Position          string     `gorm:"not null;default:''" json:"position"`
	AvatarURL         string     `gorm:"not null;default:''" json:"avatarUrl,omitempty"`
	Role              string     `gorm:"not null;default:'user'" json:"role"`
	IsActive          bool       `gorm:"not null;default:true" json:"isActive"`
	PasswordHash      string     `gorm:"not null" json:"-"`
	RememberTokenHash *string    `json:"-"`
	TotalXP           int        `gorm:"column:total_xp;not null;default:0;index" json:"totalXP"`
	WeeklyXP          int        `gorm:"column:weekly_xp;not null;default:0;index" json:"weeklyXP"`
	Level             int        `gorm:"not null;default:1" json:"level"`
	CurrentStreak     int        `gorm:"not null;default:0" json:"currentStreak"`
	LongestStreak     int        `gorm:"not null;default:0" json:"longestStreak"`
	LastActive        *time.Time `json:"lastActive,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// DisplayName falls back to the username when no name was given.
func (u *User) DisplayName() string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		return u.Username
	}
	return name
}

// Avatar returns the stored avatar or a generated DiceBear one.
func (u *User) Avatar() string {
	if u.AvatarURL != "" {
		return u.AvatarURL
	}
	return "https://api.dicebear.com/9.x/adventurer/svg?seed=" + u.Username
}

// ProfileUpdate carries the profile fields a user may change about themselves.
// Nil fields are left untouched.
type ProfileUpdate struct {
	FirstName  *string
	LastName   *string
	Department *string
	Position   *string
	AvatarURL  *string
}
