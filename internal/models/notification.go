package models

import "time"

// Counters - счетчики уведомлений пользователя.
type Counters struct {
	Notifications  int       `json:"notifications_count"`
	UnreadMessages int       `json:"unread_messages"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Dismissal - скрытый пользователем баннер или подсказка.
type Dismissal struct {
	UserID      string    `json:"-"`
	Key         string    `json:"key"`
	DismissedAt time.Time `json:"dismissedAt"`
}

// ReferralSummary - сводка реферальной программы пользователя.
type ReferralSummary struct {
	Code            string  `json:"code"`
	Link            string  `json:"link"`
	InvitedCount    int     `json:"invited_count"`
	ConvertedCount  int     `json:"converted_count"`
	EarnedAmount    float64 `json:"earned_amount"`
	BannerDismissed bool    `json:"banner_dismissed"`
}

// ConversationUpdate - изменение беседы, пришедшее в сокет уведомлений.
type ConversationUpdate struct {
	UserID       string       `json:"-"`
	Conversation Conversation `json:"conversation"`
}
