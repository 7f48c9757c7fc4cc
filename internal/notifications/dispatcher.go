package notifications

import (
	"context"
	"fmt"
	"log"

	"social-chat-service/internal/models"
	"social-chat-service/internal/observability"
	"social-chat-service/internal/repositories"
)

// Dispatcher derives notification records from domain events. Dispatch never
// gates the originating operation: failures are logged and swallowed, and the
// actor never sees them. Self-notifications are skipped, and the recipient's
// per-type settings toggle is honored.
type Dispatcher struct {
	notifications repositories.NotificationRepository
	conversations repositories.ConversationRepository
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(notifications repositories.NotificationRepository, conversations repositories.ConversationRepository) *Dispatcher {
	return &Dispatcher{notifications: notifications, conversations: conversations}
}

// FollowCreated notifies the followed user of a new follower.
func (d *Dispatcher) FollowCreated(ctx context.Context, actorID, actorUsername, recipientID string) {
	d.dispatch(ctx, repositories.CreateNotificationParams{
		RecipientID:      recipientID,
		SenderID:         &actorID,
		NotificationType: models.NotificationTypeFollow,
		Title:            "New Follower",
		Message:          fmt.Sprintf("%s started following you", actorUsername),
	})
}

// PostLiked notifies the post owner of a like.
func (d *Dispatcher) PostLiked(ctx context.Context, actorID, actorUsername string, post models.Post) {
	d.dispatch(ctx, repositories.CreateNotificationParams{
		RecipientID:      post.UserID,
		SenderID:         &actorID,
		NotificationType: models.NotificationTypeLike,
		Title:            "Post Liked",
		Message:          fmt.Sprintf("%s liked your post", actorUsername),
		RelatedPostID:    &post.ID,
	})
}

// CommentAdded notifies the post owner of a new comment.
func (d *Dispatcher) CommentAdded(ctx context.Context, actorID, actorUsername, postOwnerID string, comment models.Comment) {
	d.dispatch(ctx, repositories.CreateNotificationParams{
		RecipientID:      postOwnerID,
		SenderID:         &actorID,
		NotificationType: models.NotificationTypeComment,
		Title:            "New Comment",
		Message:          fmt.Sprintf("%s commented on your post", actorUsername),
		RelatedPostID:    &comment.PostID,
		RelatedCommentID: &comment.ID,
	})
}

// MessageSent notifies every other participant of the conversation.
func (d *Dispatcher) MessageSent(ctx context.Context, actorID, actorUsername, conversationID string) {
	recipients, err := d.conversations.OtherParticipantIDs(ctx, conversationID, actorID)
	if err != nil {
		log.Printf("notification dispatch failed: list participants: %v", err)
		return
	}
	for _, recipientID := range recipients {
		d.dispatch(ctx, repositories.CreateNotificationParams{
			RecipientID:           recipientID,
			SenderID:              &actorID,
			NotificationType:      models.NotificationTypeMessage,
			Title:                 "New Message",
			Message:               fmt.Sprintf("%s sent you a message", actorUsername),
			RelatedConversationID: &conversationID,
		})
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, p repositories.CreateNotificationParams) {
	if p.SenderID != nil && *p.SenderID == p.RecipientID {
		return
	}

	settings, err := d.notifications.GetSettings(ctx, p.RecipientID)
	if err != nil {
		log.Printf("notification dispatch failed: load settings: %v", err)
		return
	}
	if !settings.Enabled(p.NotificationType) {
		return
	}

	n, err := d.notifications.Create(ctx, p)
	if err != nil {
		log.Printf("notification dispatch failed: create %s for %s: %v",
			p.NotificationType, p.RecipientID, err)
		return
	}

	observability.IncNotificationCreated(p.NotificationType)
	_ = observability.PublishEvent(ctx, "notifications."+p.NotificationType, observability.EventEnvelope{
		EventType: "notifications",
		EventName: p.NotificationType,
		Payload:   n,
	}, nil)
}
