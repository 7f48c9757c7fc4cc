package models

import "time"

// Message types.
const (
	MessageTypeText   = "text"
	MessageTypeImage  = "image"
	MessageTypeFile   = "file"
	MessageTypeSystem = "system"
)

// MaxMessageLength bounds message content, in runes.
const MaxMessageLength = 1000

// Message is a chat message. CreatedAt is immutable and is the ordering key
// within a conversation, with id breaking ties.
type Message struct {
	ID             string    `db:"id" json:"id"`
	ConversationID string    `db:"conversation_id" json:"conversation_id"`
	SenderID       string    `db:"sender_id" json:"sender_id"`
	Content        string    `db:"content" json:"content"`
	MessageType    string    `db:"message_type" json:"message_type"`
	AttachmentURL  *string   `db:"attachment_url" json:"attachment_url,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// MessageWithSender joins a message with its sender's profile summary.
type MessageWithSender struct {
	Message
	SenderUsername  string  `db:"sender_username" json:"sender_username"`
	SenderAvatarURL *string `db:"sender_avatar_url" json:"sender_avatar_url,omitempty"`
}

// MessageRead records that a user has read a message. Rows are created once
// and never updated.
type MessageRead struct {
	ID        string    `db:"id" json:"id"`
	MessageID string    `db:"message_id" json:"message_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	ReadAt    time.Time `db:"read_at" json:"read_at"`
}
