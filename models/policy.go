package models

import "time"

// Policy is a corporate document employees must acknowledge.
type Policy struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	Version     string    `gorm:"not null;default:'1.0'" json:"version"`
	IsMandatory bool      `gorm:"not null;default:true" json:"isMandatory"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PolicyAcknowledgment records that a user has read a policy.
type PolicyAcknowledgment struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	PolicyID       uint      `gorm:"not null;uniqueIndex:idx_policy_ack_user" json:"policyId"`
	UserID         uint      `gorm:"not null;uniqueIndex:idx_policy_ack_user" json:"userId"`
	AcknowledgedAt time.Time `json:"acknowledgedAt"`
}

// Link is a bookmarked internal or external resource shown on the portal.
type Link struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"not null" json:"title"`
	URL       string    `gorm:"not null" json:"url"`
	Category  string    `gorm:"not null;default:''" json:"category"`
	Icon      string    `gorm:"not null;default:''" json:"icon"`
	CreatedBy uint      `gorm:"not null" json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}
