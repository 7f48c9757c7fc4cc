package models

import "time"

// Conversation is a private conversation between two users. The participant
// set is fixed at creation; pair_key is the canonical sorted id pair that
// makes concurrent creation converge on a single row.
type Conversation struct {
	ID            string     `db:"id" json:"id"`
	PairKey       string     `db:"pair_key" json:"-"`
	LastMessage   *string    `db:"last_message" json:"last_message,omitempty"`
	LastMessageAt *time.Time `db:"last_message_at" json:"last_message_at,omitempty"`
	LastMessageBy *string    `db:"last_message_by" json:"last_message_by,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// ConversationMember is one user's membership in a conversation, including
// per-member settings and the read watermark.
type ConversationMember struct {
	ID                string     `db:"id" json:"id"`
	ConversationID    string     `db:"conversation_id" json:"conversation_id"`
	UserID            string     `db:"user_id" json:"user_id"`
	IsMuted           bool       `db:"is_muted" json:"is_muted"`
	IsArchived        bool       `db:"is_archived" json:"is_archived"`
	IsPinned          bool       `db:"is_pinned" json:"is_pinned"`
	LastSeenMessageID *string    `db:"last_seen_message_id" json:"last_seen_message_id,omitempty"`
	LastSeenAt        *time.Time `db:"last_seen_at" json:"last_seen_at,omitempty"`
	JoinedAt          time.Time  `db:"joined_at" json:"joined_at"`
}

// ConversationSummary is the list-view projection of a conversation for one
// user: the other participant, last-message preview and the unread count.
type ConversationSummary struct {
	ConversationID string     `db:"id" json:"conversation_id"`
	FriendID       string     `db:"friend_id" json:"friend_id"`
	FriendUsername string     `db:"friend_username" json:"friend_username"`
	LastMessage    *string    `db:"last_message" json:"last_message,omitempty"`
	LastMessageAt  *time.Time `db:"last_message_at" json:"last_message_at,omitempty"`
	LastMessageBy  *string    `db:"last_message_by" json:"last_message_by,omitempty"`
	UnreadCount    int        `db:"unread_count" json:"unread_count"`
	IsMuted        bool       `db:"is_muted" json:"is_muted"`
	IsArchived     bool       `db:"is_archived" json:"is_archived"`
	IsPinned       bool       `db:"is_pinned" json:"is_pinned"`
}

// MemberSettings carries the updatable per-member flags.
type MemberSettings struct {
	IsMuted    bool `json:"is_muted"`
	IsArchived bool `json:"is_archived"`
	IsPinned   bool `json:"is_pinned"`
}
