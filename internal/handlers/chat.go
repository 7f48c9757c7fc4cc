package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"social-chat-service/internal/models"
	"social-chat-service/internal/notifications"
	"social-chat-service/internal/repositories"
	"social-chat-service/internal/ws"
)

// ChatHandler manages the conversation endpoints.
type ChatHandler struct {
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	follows       repositories.FollowRepository
	profiles      repositories.ProfileRepository
	notifier      *notifications.Dispatcher
	hub           ws.Broadcaster
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(
	conversations repositories.ConversationRepository,
	messages repositories.MessageRepository,
	follows repositories.FollowRepository,
	profiles repositories.ProfileRepository,
	notifier *notifications.Dispatcher,
	hub ws.Broadcaster,
) *ChatHandler {
	return &ChatHandler{
		conversations: conversations,
		messages:      messages,
		follows:       follows,
		profiles:      profiles,
		notifier:      notifier,
		hub:           hub,
	}
}

// ListConversations returns the caller's conversations with previews and
// unread counts.
func (h *ChatHandler) ListConversations(c *gin.Context) {
	userID := currentUserID(c)

	conversations, err := h.conversations.ListConversations(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversations"})
		return
	}
	if conversations == nil {
		conversations = []models.ConversationSummary{}
	}

	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

// StartConversation creates or returns the conversation with another user.
// Both directions of the follow edge must exist.
func (h *ChatHandler) StartConversation(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := currentUserID(c)
	if userID == req.UserID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot start a conversation with yourself"})
		return
	}

	mutual, err := h.follows.IsMutual(c.Request.Context(), userID, req.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify follow status"})
		return
	}
	if !mutual {
		c.JSON(http.StatusForbidden, gin.H{"error": "you can only chat with mutual followers"})
		return
	}

	conv, err := h.conversations.GetOrCreateConversation(c.Request.Context(), userID, req.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create conversation"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversation_id": conv.ID})
}

// GetMessages returns the conversation history for a participant and marks
// the newest message as read.
func (h *ChatHandler) GetMessages(c *gin.Context) {
	conversationID := c.Param("conversation_id")
	userID := currentUserID(c)

	member, err := h.conversations.IsParticipant(c.Request.Context(), conversationID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a conversation member"})
		return
	}

	msgs, err := h.messages.ListMessages(c.Request.Context(), conversationID, 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	if msgs == nil {
		msgs = []models.MessageWithSender{}
	}

	// Reading the history advances the watermark to the newest message.
	if len(msgs) > 0 {
		last := msgs[len(msgs)-1]
		if err := h.messages.MarkRead(c.Request.Context(), last.ID, userID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update read state"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostMessage stores a message through the single write path and broadcasts
// it to the room.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	conversationID := c.Param("conversation_id")
	userID := currentUserID(c)

	var req struct {
		Content       string  `json:"content" binding:"required"`
		MessageType   string  `json:"message_type"`
		AttachmentURL *string `json:"attachment_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.messages.PostMessage(c.Request.Context(), repositories.PostMessageParams{
		ConversationID: conversationID,
		SenderID:       userID,
		Content:        req.Content,
		MessageType:    req.MessageType,
		AttachmentURL:  req.AttachmentURL,
	})
	if err != nil {
		c.JSON(postMessageStatus(err), gin.H{"error": postMessageErrorText(err)})
		return
	}

	sender := models.SenderSummary{ID: userID, Username: currentUsername(c)}
	if profile, perr := h.profiles.GetProfile(c.Request.Context(), userID); perr == nil {
		sender.Username = profile.Username
		sender.AvatarURL = profile.AvatarURL
	}

	h.hub.Publish(conversationID, models.MessageEvent{
		Type: models.EventTypeMessage,
		Message: models.MessagePayload{
			ID:          msg.ID,
			Content:     msg.Content,
			MessageType: msg.MessageType,
			Sender:      sender,
			CreatedAt:   msg.CreatedAt.Format(time.RFC3339Nano),
			IsRead:      false,
		},
	}, "")

	h.notifier.MessageSent(c.Request.Context(), userID, sender.Username, conversationID)

	c.JSON(http.StatusCreated, msg)
}

// UnreadCount reports the caller's unread count for one conversation.
func (h *ChatHandler) UnreadCount(c *gin.Context) {
	conversationID := c.Param("conversation_id")
	userID := currentUserID(c)

	count, err := h.messages.UnreadCount(c.Request.Context(), conversationID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotAParticipant) {
			c.JSON(http.StatusForbidden, gin.H{"error": "not a conversation member"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

// MarkMessageRead records a read receipt outside a live session.
func (h *ChatHandler) MarkMessageRead(c *gin.Context) {
	messageID := c.Param("message_id")
	userID := currentUserID(c)

	msg, err := h.messages.GetMessage(c.Request.Context(), messageID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrMessageNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "message not found"})
		return
	}

	member, err := h.conversations.IsParticipant(c.Request.Context(), msg.ConversationID, userID)
	if err != nil || !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a conversation member"})
		return
	}

	if err := h.messages.MarkRead(c.Request.Context(), messageID, userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark read"})
		return
	}

	c.Status(http.StatusNoContent)
}

// UpdateMemberSettings writes the caller's muted/archived/pinned flags.
func (h *ChatHandler) UpdateMemberSettings(c *gin.Context) {
	conversationID := c.Param("conversation_id")
	userID := currentUserID(c)

	var settings models.MemberSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.conversations.UpdateMemberSettings(c.Request.Context(), conversationID, userID, settings); err != nil {
		if errors.Is(err, repositories.ErrNotAParticipant) {
			c.JSON(http.StatusForbidden, gin.H{"error": "not a conversation member"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update settings"})
		return
	}

	member, err := h.conversations.GetMember(c.Request.Context(), conversationID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load settings"})
		return
	}

	c.JSON(http.StatusOK, member)
}

func postMessageStatus(err error) int {
	switch {
	case errors.Is(err, repositories.ErrEmptyContent),
		errors.Is(err, repositories.ErrContentTooLong),
		errors.Is(err, repositories.ErrInvalidMessageType):
		return http.StatusBadRequest
	case errors.Is(err, repositories.ErrNotAParticipant),
		errors.Is(err, repositories.ErrMutualFollowRequired):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func postMessageErrorText(err error) string {
	switch {
	case errors.Is(err, repositories.ErrEmptyContent):
		return "message content is required"
	case errors.Is(err, repositories.ErrContentTooLong):
		return "message content is too long"
	case errors.Is(err, repositories.ErrInvalidMessageType):
		return "invalid message type"
	case errors.Is(err, repositories.ErrNotAParticipant):
		return "not a conversation member"
	case errors.Is(err, repositories.ErrMutualFollowRequired):
		return "you can only chat with mutual followers"
	default:
		return "failed to store message"
	}
}
