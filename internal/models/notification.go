package models

import (
	"encoding/json"
	"time"
)

// Notification types.
const (
	NotificationTypeFollow  = "follow"
	NotificationTypeLike    = "like"
	NotificationTypeComment = "comment"
	NotificationTypeMessage = "message"
	NotificationTypeSystem  = "system"
)

// Notification is derived from domain events, never created by a direct user
// action. The read flag flips once; read_at is stamped at that transition.
type Notification struct {
	ID                    string          `db:"id" json:"id"`
	RecipientID           string          `db:"recipient_id" json:"recipient_id"`
	SenderID              *string         `db:"sender_id" json:"sender_id,omitempty"`
	NotificationType      string          `db:"notification_type" json:"notification_type"`
	Title                 string          `db:"title" json:"title"`
	Message               string          `db:"message" json:"message"`
	RelatedPostID         *string         `db:"related_post_id" json:"related_post_id,omitempty"`
	RelatedCommentID      *string         `db:"related_comment_id" json:"related_comment_id,omitempty"`
	RelatedConversationID *string         `db:"related_conversation_id" json:"related_conversation_id,omitempty"`
	ExtraData             json.RawMessage `db:"extra_data" json:"extra_data,omitempty"`
	IsRead                bool            `db:"is_read" json:"is_read"`
	ReadAt                *time.Time      `db:"read_at" json:"read_at,omitempty"`
	CreatedAt             time.Time       `db:"created_at" json:"created_at"`
}

// NotificationSettings holds per-user in-app toggles per event type.
type NotificationSettings struct {
	UserID       string `db:"user_id" json:"user_id"`
	AppOnFollow  bool   `db:"app_on_follow" json:"app_on_follow"`
	AppOnLike    bool   `db:"app_on_like" json:"app_on_like"`
	AppOnComment bool   `db:"app_on_comment" json:"app_on_comment"`
	AppOnMessage bool   `db:"app_on_message" json:"app_on_message"`
}

// Enabled reports whether in-app notifications of the given type are on.
func (s NotificationSettings) Enabled(notificationType string) bool {
	switch notificationType {
	case NotificationTypeFollow:
		return s.AppOnFollow
	case NotificationTypeLike:
		return s.AppOnLike
	case NotificationTypeComment:
		return s.AppOnComment
	case NotificationTypeMessage:
		return s.AppOnMessage
	default:
		return true
	}
}
