package models

import "time"

// Channel types
const (
	ChannelPublic  = "public"
	ChannelPrivate = "private"
	ChannelDirect  = "direct"
)

// Channel is a chat room. Only members may read or post.
type Channel struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `gorm:"not null;default:''" json:"description"`
	Type        string    `gorm:"not null;default:'public'" json:"type"`
	CreatedBy   uint      `gorm:"not null" json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ChannelMember links a user to a channel.
type ChannelMember struct {
	ChannelID uint      `gorm:"primaryKey" json:"channelId"`
	UserID    uint      `gorm:"primaryKey" json:"userId"`
	JoinedAt  time.Time `json:"joinedAt"`
}

// Message is a chat message posted to a channel.
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ChannelID uint      `gorm:"not null;index" json:"channelId"`
	UserID    uint      `gorm:"not null;index" json:"userId"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}
