package structs

type LegacyLoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Remember bool   `json:"remember"`
}

type LegacySendMessageRequest struct {
	ChannelID uint   `json:"channel_id" binding:"required"`
	Content   string `json:"content" binding:"required"`
}

type LegacyReadNotificationRequest struct {
	ID uint `json:"id" binding:"required"`
}

type GrantXPRequest struct {
	UserID uint   `json:"userId" binding:"required"`
	Amount int    `json:"amount" binding:"required"`
	Reason string `json:"reason"`
}
