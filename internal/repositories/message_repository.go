package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"social-chat-service/internal/models"
)

var (
	ErrMessageNotFound      = errors.New("message not found")
	ErrEmptyContent         = errors.New("message content is empty")
	ErrContentTooLong       = errors.New("message content exceeds maximum length")
	ErrInvalidMessageType   = errors.New("invalid message type")
	ErrMutualFollowRequired = errors.New("participants must be mutual followers")
)

// PostMessageParams carries the inputs for a message write. MessageType
// defaults to text when empty.
type PostMessageParams struct {
	ConversationID string
	SenderID       string
	Content        string
	MessageType    string
	AttachmentURL  *string
}

// MessageRepository owns message and read-receipt records. PostMessage is the
// only write path for messages, interactive or protocol-driven, so the
// mutual-follow policy cannot be bypassed by a second entry point.
type MessageRepository interface {
	PostMessage(ctx context.Context, p PostMessageParams) (models.Message, error)
	MarkRead(ctx context.Context, messageID, userID string) error
	GetMessage(ctx context.Context, messageID string) (models.Message, error)
	ListMessages(ctx context.Context, conversationID string, limit int) ([]models.MessageWithSender, error)
	UnreadCount(ctx context.Context, conversationID, userID string) (int, error)
}

// MessageRepo is a sqlx implementation of MessageRepository.
type MessageRepo struct {
	db      *sqlx.DB
	follows FollowRepository
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(db *sqlx.DB, follows FollowRepository) *MessageRepo {
	return &MessageRepo{db: db, follows: follows}
}

// PostMessage validates, authorizes and persists a message. The mutual-follow
// policy is re-checked on every send, not just at conversation creation, so a
// revoked follow takes effect mid-conversation. The message insert, the
// sender's read receipt and the conversation's last-message update commit as
// one transaction.
func (r *MessageRepo) PostMessage(ctx context.Context, p PostMessageParams) (models.Message, error) {
	content := strings.TrimSpace(p.Content)
	if content == "" {
		return models.Message{}, ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > models.MaxMessageLength {
		return models.Message{}, ErrContentTooLong
	}
	messageType := p.MessageType
	if messageType == "" {
		messageType = models.MessageTypeText
	}
	switch messageType {
	case models.MessageTypeText, models.MessageTypeImage, models.MessageTypeFile, models.MessageTypeSystem:
	default:
		return models.Message{}, ErrInvalidMessageType
	}

	var isMember bool
	if err := r.db.GetContext(ctx, &isMember, `SELECT EXISTS(SELECT 1 FROM conversation_members
        WHERE conversation_id=$1 AND user_id=$2)`, p.ConversationID, p.SenderID); err != nil {
		return models.Message{}, err
	}
	if !isMember {
		return models.Message{}, ErrNotAParticipant
	}

	var others []string
	if err := r.db.SelectContext(ctx, &others, `SELECT user_id FROM conversation_members
        WHERE conversation_id=$1 AND user_id<>$2`, p.ConversationID, p.SenderID); err != nil {
		return models.Message{}, err
	}
	if len(others) == 0 {
		return models.Message{}, ErrMutualFollowRequired
	}
	for _, other := range others {
		mutual, err := r.follows.IsMutual(ctx, p.SenderID, other)
		if err != nil {
			return models.Message{}, err
		}
		if !mutual {
			return models.Message{}, ErrMutualFollowRequired
		}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer tx.Rollback()

	var msg models.Message
	if err := tx.QueryRowxContext(ctx, `INSERT INTO messages
        (id, conversation_id, sender_id, content, message_type, attachment_url)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, conversation_id, sender_id, content, message_type, attachment_url, created_at`,
		uuid.NewString(), p.ConversationID, p.SenderID, content, messageType, p.AttachmentURL).
		StructScan(&msg); err != nil {
		return models.Message{}, err
	}

	// The sender has implicitly read their own message.
	if _, err := tx.ExecContext(ctx, `INSERT INTO message_reads (id, message_id, user_id)
        VALUES ($1, $2, $3) ON CONFLICT (message_id, user_id) DO NOTHING`,
		uuid.NewString(), msg.ID, p.SenderID); err != nil {
		return models.Message{}, err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE conversations
        SET last_message=$2, last_message_at=$3, last_message_by=$4, updated_at=NOW()
        WHERE id=$1`, p.ConversationID, msg.Content, msg.CreatedAt, p.SenderID); err != nil {
		return models.Message{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// MarkRead records a read receipt for (message, user). Idempotent: the unique
// constraint absorbs duplicate calls and races. The member's watermark only
// advances to newer messages, never backward.
func (r *MessageRepo) MarkRead(ctx context.Context, messageID, userID string) error {
	msg, err := r.GetMessage(ctx, messageID)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO message_reads (id, message_id, user_id)
        VALUES ($1, $2, $3) ON CONFLICT (message_id, user_id) DO NOTHING`,
		uuid.NewString(), messageID, userID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE conversation_members cm
        SET last_seen_message_id=$1, last_seen_at=NOW()
        FROM messages m
        WHERE m.id=$1 AND cm.conversation_id=m.conversation_id AND cm.user_id=$2
        AND (cm.last_seen_message_id IS NULL OR EXISTS (
            SELECT 1 FROM messages prev WHERE prev.id = cm.last_seen_message_id
            AND (prev.created_at < m.created_at
                OR (prev.created_at = m.created_at AND prev.id < m.id))))`,
		msg.ID, userID); err != nil {
		return err
	}

	return tx.Commit()
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID string) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT id, conversation_id, sender_id, content, message_type,
        attachment_url, created_at FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// ListMessages returns conversation messages with sender summaries, ordered
// by creation time with id breaking ties. limit <= 0 means no limit.
func (r *MessageRepo) ListMessages(ctx context.Context, conversationID string, limit int) ([]models.MessageWithSender, error) {
	query := `SELECT m.id, m.conversation_id, m.sender_id, m.content, m.message_type,
        m.attachment_url, m.created_at,
        COALESCE(p.username, m.sender_id) AS sender_username,
        p.avatar_url AS sender_avatar_url
        FROM messages m
        LEFT JOIN profiles p ON p.user_id = m.sender_id
        WHERE m.conversation_id=$1
        ORDER BY m.created_at ASC, m.id ASC`
	args := []interface{}{conversationID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	var msgs []models.MessageWithSender
	err := r.db.SelectContext(ctx, &msgs, query, args...)
	return msgs, err
}

// UnreadCount derives the member's unread count from raw rows: messages newer
// than the watermark excluding the member's own, or the total message count
// when the member has never seen any message.
func (r *MessageRepo) UnreadCount(ctx context.Context, conversationID, userID string) (int, error) {
	member := struct {
		LastSeenMessageID *string `db:"last_seen_message_id"`
	}{}
	err := r.db.GetContext(ctx, &member, `SELECT last_seen_message_id FROM conversation_members
        WHERE conversation_id=$1 AND user_id=$2`, conversationID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotAParticipant
	}
	if err != nil {
		return 0, err
	}

	var count int
	if member.LastSeenMessageID == nil {
		err = r.db.GetContext(ctx, &count,
			`SELECT COUNT(*) FROM messages WHERE conversation_id=$1`, conversationID)
		return count, err
	}
	err = r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM messages
        WHERE conversation_id=$1 AND sender_id<>$2
        AND created_at > (SELECT created_at FROM messages WHERE id=$3)`,
		conversationID, userID, *member.LastSeenMessageID)
	return count, err
}
