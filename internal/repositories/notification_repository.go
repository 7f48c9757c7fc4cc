package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"social-chat-service/internal/models"
)

var ErrNotificationNotFound = errors.New("notification not found")

// CreateNotificationParams carries the inputs for a notification insert.
type CreateNotificationParams struct {
	RecipientID           string
	SenderID              *string
	NotificationType      string
	Title                 string
	Message               string
	RelatedPostID         *string
	RelatedCommentID      *string
	RelatedConversationID *string
	ExtraData             json.RawMessage
}

// NotificationRepository stores derived notification records and per-user
// settings.
type NotificationRepository interface {
	Create(ctx context.Context, p CreateNotificationParams) (models.Notification, error)
	List(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, notificationID, recipientID string) error
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
	UnreadCount(ctx context.Context, recipientID string) (int, error)
	GetSettings(ctx context.Context, userID string) (models.NotificationSettings, error)
	UpdateSettings(ctx context.Context, settings models.NotificationSettings) error
}

// NotificationRepo is a sqlx implementation of NotificationRepository.
type NotificationRepo struct {
	db *sqlx.DB
}

// NewNotificationRepo constructs a NotificationRepo.
func NewNotificationRepo(db *sqlx.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

const notificationColumns = `id, recipient_id, sender_id, notification_type, title, message,
    related_post_id, related_comment_id, related_conversation_id, extra_data,
    is_read, read_at, created_at`

// Create inserts a notification row.
func (r *NotificationRepo) Create(ctx context.Context, p CreateNotificationParams) (models.Notification, error) {
	extra := p.ExtraData
	if len(extra) == 0 {
		extra = json.RawMessage(`{}`)
	}

	var n models.Notification
	err := r.db.QueryRowxContext(ctx, `INSERT INTO notifications
        (id, recipient_id, sender_id, notification_type, title, message,
         related_post_id, related_comment_id, related_conversation_id, extra_data)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING `+notificationColumns,
		uuid.NewString(), p.RecipientID, p.SenderID, p.NotificationType, p.Title, p.Message,
		p.RelatedPostID, p.RelatedCommentID, p.RelatedConversationID, []byte(extra)).
		StructScan(&n)
	return n, err
}

// List returns the recipient's notifications, newest first.
func (r *NotificationRepo) List(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE recipient_id=$1`
	if unreadOnly {
		query += ` AND is_read = FALSE`
	}
	query += ` ORDER BY created_at DESC`
	args := []interface{}{recipientID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	var list []models.Notification
	err := r.db.SelectContext(ctx, &list, query, args...)
	return list, err
}

// MarkRead flips is_read once; read_at is stamped at the transition and a
// second call is a no-op, never an un-read or a re-stamp.
func (r *NotificationRepo) MarkRead(ctx context.Context, notificationID, recipientID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications
        SET is_read = TRUE, read_at = NOW()
        WHERE id=$1 AND recipient_id=$2 AND is_read = FALSE`, notificationID, recipientID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		// Distinguish an already-read row from a missing one.
		var exists bool
		if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM notifications
            WHERE id=$1 AND recipient_id=$2)`, notificationID, recipientID); err != nil {
			return err
		}
		if !exists {
			return ErrNotificationNotFound
		}
	}
	return nil
}

// MarkAllRead flips every unread notification for the recipient.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications
        SET is_read = TRUE, read_at = NOW()
        WHERE recipient_id=$1 AND is_read = FALSE`, recipientID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UnreadCount counts unread notifications for the recipient.
func (r *NotificationRepo) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM notifications
        WHERE recipient_id=$1 AND is_read = FALSE`, recipientID)
	return count, err
}

// GetSettings returns the user's toggles, defaulting everything on when no
// row exists.
func (r *NotificationRepo) GetSettings(ctx context.Context, userID string) (models.NotificationSettings, error) {
	var settings models.NotificationSettings
	err := r.db.GetContext(ctx, &settings, `SELECT user_id, app_on_follow, app_on_like,
        app_on_comment, app_on_message FROM notification_settings WHERE user_id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.NotificationSettings{
			UserID:       userID,
			AppOnFollow:  true,
			AppOnLike:    true,
			AppOnComment: true,
			AppOnMessage: true,
		}, nil
	}
	return settings, err
}

// UpdateSettings upserts the user's toggles.
func (r *NotificationRepo) UpdateSettings(ctx context.Context, settings models.NotificationSettings) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO notification_settings
        (user_id, app_on_follow, app_on_like, app_on_comment, app_on_message)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (user_id) DO UPDATE SET
            app_on_follow=EXCLUDED.app_on_follow,
            app_on_like=EXCLUDED.app_on_like,
            app_on_comment=EXCLUDED.app_on_comment,
            app_on_message=EXCLUDED.app_on_message`,
		settings.UserID, settings.AppOnFollow, settings.AppOnLike,
		settings.AppOnComment, settings.AppOnMessage)
	return err
}
