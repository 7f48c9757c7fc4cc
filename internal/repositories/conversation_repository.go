package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"social-chat-service/internal/models"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotAParticipant      = errors.New("user is not a conversation participant")
)

// ConversationRepository owns conversation and membership records.
type ConversationRepository interface {
	GetOrCreateConversation(ctx context.Context, userA, userB string) (models.Conversation, error)
	GetConversation(ctx context.Context, conversationID string) (models.Conversation, error)
	IsParticipant(ctx context.Context, conversationID, userID string) (bool, error)
	OtherParticipantIDs(ctx context.Context, conversationID, userID string) ([]string, error)
	ListConversations(ctx context.Context, userID string) ([]models.ConversationSummary, error)
	GetMember(ctx context.Context, conversationID, userID string) (models.ConversationMember, error)
	UpdateMemberSettings(ctx context.Context, conversationID, userID string, settings models.MemberSettings) error
}

// ConversationRepo is a sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db *sqlx.DB
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// PairKey returns the canonical key for an unordered user pair.
func PairKey(userA, userB string) string {
	if strings.Compare(userA, userB) > 0 {
		userA, userB = userB, userA
	}
	return userA + ":" + userB
}

// GetOrCreateConversation returns the conversation for the pair, creating it
// together with both member rows when absent. The pair_key unique constraint
// makes concurrent calls with the same pair converge on one row.
func (r *ConversationRepo) GetOrCreateConversation(ctx context.Context, userA, userB string) (models.Conversation, error) {
	if userA == userB {
		return models.Conversation{}, fmt.Errorf("cannot create conversation with self")
	}
	pairKey := PairKey(userA, userB)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Conversation{}, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO conversations (id, pair_key)
        VALUES ($1, $2) ON CONFLICT (pair_key) DO NOTHING`, uuid.NewString(), pairKey); err != nil {
		return models.Conversation{}, err
	}

	var conv models.Conversation
	if err := tx.GetContext(ctx, &conv, `SELECT id, pair_key, last_message, last_message_at,
        last_message_by, created_at, updated_at FROM conversations WHERE pair_key=$1`, pairKey); err != nil {
		return models.Conversation{}, err
	}

	for _, userID := range []string{userA, userB} {
		if _, err := tx.ExecContext(ctx, `INSERT INTO conversation_members (id, conversation_id, user_id)
            VALUES ($1, $2, $3) ON CONFLICT (conversation_id, user_id) DO NOTHING`,
			uuid.NewString(), conv.ID, userID); err != nil {
			return models.Conversation{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Conversation{}, err
	}
	return conv, nil
}

// GetConversation fetches a conversation by id.
func (r *ConversationRepo) GetConversation(ctx context.Context, conversationID string) (models.Conversation, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv, `SELECT id, pair_key, last_message, last_message_at,
        last_message_by, created_at, updated_at FROM conversations WHERE id=$1`, conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return conv, err
}

// IsParticipant checks whether a user has a member row in the conversation.
func (r *ConversationRepo) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM conversation_members
        WHERE conversation_id=$1 AND user_id=$2)`, conversationID, userID)
	return exists, err
}

// OtherParticipantIDs returns the member ids of the conversation excluding
// the given user.
func (r *ConversationRepo) OtherParticipantIDs(ctx context.Context, conversationID, userID string) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids, `SELECT user_id FROM conversation_members
        WHERE conversation_id=$1 AND user_id<>$2`, conversationID, userID)
	return ids, err
}

// ListConversations returns the user's conversations with last-message
// previews and derived unread counts, newest activity first.
func (r *ConversationRepo) ListConversations(ctx context.Context, userID string) ([]models.ConversationSummary, error) {
	query := `SELECT c.id, om.user_id AS friend_id, p.username AS friend_username,
        c.last_message, c.last_message_at, c.last_message_by,
        cm.is_muted, cm.is_archived, cm.is_pinned,
        CASE WHEN cm.last_seen_message_id IS NULL
            THEN (SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id)
            ELSE (SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id
                AND m.sender_id <> cm.user_id
                AND m.created_at > (SELECT ls.created_at FROM messages ls WHERE ls.id = cm.last_seen_message_id))
        END AS unread_count
        FROM conversations c
        JOIN conversation_members cm ON cm.conversation_id = c.id AND cm.user_id = $1
        JOIN conversation_members om ON om.conversation_id = c.id AND om.user_id <> $1
        JOIN profiles p ON p.user_id = om.user_id
        ORDER BY c.updated_at DESC`
	var result []models.ConversationSummary
	err := r.db.SelectContext(ctx, &result, query, userID)
	return result, err
}

// GetMember fetches a member row.
func (r *ConversationRepo) GetMember(ctx context.Context, conversationID, userID string) (models.ConversationMember, error) {
	var member models.ConversationMember
	err := r.db.GetContext(ctx, &member, `SELECT id, conversation_id, user_id, is_muted, is_archived,
        is_pinned, last_seen_message_id, last_seen_at, joined_at
        FROM conversation_members WHERE conversation_id=$1 AND user_id=$2`, conversationID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ConversationMember{}, ErrNotAParticipant
	}
	return member, err
}

// UpdateMemberSettings writes the muted/archived/pinned flags.
func (r *ConversationRepo) UpdateMemberSettings(ctx context.Context, conversationID, userID string, settings models.MemberSettings) error {
	res, err := r.db.ExecContext(ctx, `UPDATE conversation_members
        SET is_muted=$3, is_archived=$4, is_pinned=$5
        WHERE conversation_id=$1 AND user_id=$2`,
		conversationID, userID, settings.IsMuted, settings.IsArchived, settings.IsPinned)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotAParticipant
	}
	return nil
}
