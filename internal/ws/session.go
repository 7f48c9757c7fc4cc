package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"social-chat-service/internal/middleware"
	"social-chat-service/internal/models"
	"social-chat-service/internal/notifications"
	"social-chat-service/internal/observability"
	"social-chat-service/internal/repositories"
)

// SessionHandler authorizes and runs conversation websocket sessions. A
// session moves Connecting -> Authorized -> Open -> Closed; authorization
// failures close it before the upgrade, and cleanup always runs once open.
type SessionHandler struct {
	hub           Broadcaster
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	follows       repositories.FollowRepository
	profiles      repositories.ProfileRepository
	notifier      *notifications.Dispatcher
	jwtSecret     string
}

// NewSessionHandler constructs a SessionHandler.
func NewSessionHandler(
	hub Broadcaster,
	conversations repositories.ConversationRepository,
	messages repositories.MessageRepository,
	follows repositories.FollowRepository,
	profiles repositories.ProfileRepository,
	notifier *notifications.Dispatcher,
	jwtSecret string,
) *SessionHandler {
	return &SessionHandler{
		hub:           hub,
		conversations: conversations,
		messages:      messages,
		follows:       follows,
		profiles:      profiles,
		notifier:      notifier,
		jwtSecret:     jwtSecret,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle authorizes the handshake, upgrades the connection and starts the
// session's read loop.
func (h *SessionHandler) Handle(c *gin.Context) {
	conversationID := c.Param("conversation_id")
	if conversationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	ctx, span := otel.Tracer("social-chat-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := middleware.TokenFromRequest(c)
	principal, err := middleware.VerifyToken(h.jwtSecret, token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	// A missing conversation is reported the same way as a foreign one, so
	// probing ids leaks nothing.
	member, err := h.conversations.IsParticipant(ctx, conversationID, principal.UserID)
	if err != nil || !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for conversation"})
		return
	}

	mutual, err := h.isMutualWithAll(ctx, conversationID, principal.UserID)
	if err != nil || !mutual {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for conversation"})
		return
	}

	username := principal.Username
	var avatarURL *string
	if profile, err := h.profiles.GetProfile(ctx, principal.UserID); err == nil {
		username = profile.Username
		avatarURL = profile.AvatarURL
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:         newConnID(),
		UserID:         principal.UserID,
		Username:       username,
		AvatarURL:      avatarURL,
		ConversationID: conversationID,
		DeviceID:       observability.DeviceIDFromRequest(c.Request),
		IP:             observability.IPFromRequest(c.Request),
		RequestID:      observability.RequestIDFromRequest(c.Request),
		TraceID:        span.SpanContext().TraceID().String(),
		ConnectedAt:    time.Now(),
	}
	client := NewClient(conn, info)

	h.hub.Join(conversationID, client)
	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	_ = observability.PublishEvent(ctx, "ws_events.conversations",
		lifecycleEnvelope("ws_connect", info, ""),
		observability.BuildHeaders(info.RequestID, info.TraceID))

	h.hub.Publish(conversationID, models.UserStatusEvent{
		Type:     models.EventTypeUserStatus,
		UserID:   info.UserID,
		Username: info.Username,
		Status:   "online",
	}, info.UserID)

	go h.readLoop(client)
}

// readLoop consumes inbound events until the transport fails. Cleanup is
// unconditional: offline presence, room leave and metrics run no matter how
// the connection ended.
func (h *SessionHandler) readLoop(client *Client) {
	info := client.Info()
	ctx := context.Background()

	var closeReason string
	defer func() {
		h.hub.Publish(info.ConversationID, models.UserStatusEvent{
			Type:     models.EventTypeUserStatus,
			UserID:   info.UserID,
			Username: info.Username,
			Status:   "offline",
		}, info.UserID)
		h.hub.Leave(info.ConversationID, client)
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		_ = observability.PublishEvent(ctx, "ws_events.conversations",
			lifecycleEnvelope("ws_disconnect", info, closeReason),
			observability.BuildHeaders(info.RequestID, info.TraceID))
		client.Close()
	}()

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
			}
			return
		}
		h.handleEvent(ctx, client, data)
	}
}

func lifecycleEnvelope(eventName string, info ConnInfo, reason string) observability.EventEnvelope {
	return observability.EventEnvelope{
		EventType: "ws_events",
		EventName: eventName,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"conn_id":         info.ConnID,
				"conversation_id": info.ConversationID,
				"connected_at":    info.ConnectedAt,
				"reason":          reason,
			},
			"identity": map[string]interface{}{
				"user_id":   info.UserID,
				"device_id": info.DeviceID,
				"ip":        info.IP,
			},
		},
	}
}

// handleEvent dispatches one inbound event. Unknown types are ignored;
// anything that goes wrong degrades to a private error event, never a closed
// connection.
func (h *SessionHandler) handleEvent(ctx context.Context, client *Client, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("websocket event panic: conn=%s: %v", client.Info().ConnID, r)
			h.sendError(client, "internal error processing event")
		}
	}()

	var event models.InboundEvent
	if err := json.Unmarshal(data, &event); err != nil {
		h.sendError(client, "invalid JSON")
		return
	}

	switch event.Type {
	case models.EventTypeMessage:
		h.handleMessage(ctx, client, event)
	case models.EventTypeTyping:
		h.handleTyping(client, event)
	case models.EventTypeReadReceipt:
		h.handleReadReceipt(ctx, client, event)
	}
}

func (h *SessionHandler) handleMessage(ctx context.Context, client *Client, event models.InboundEvent) {
	info := client.Info()

	msg, err := h.messages.PostMessage(ctx, repositories.PostMessageParams{
		ConversationID: info.ConversationID,
		SenderID:       info.UserID,
		Content:        event.Content,
	})
	if err != nil {
		h.sendError(client, messageErrorText(err))
		return
	}
	observability.IncWSEvent("message")

	h.hub.Publish(info.ConversationID, models.MessageEvent{
		Type: models.EventTypeMessage,
		Message: models.MessagePayload{
			ID:          msg.ID,
			Content:     msg.Content,
			MessageType: msg.MessageType,
			Sender: models.SenderSummary{
				ID:        info.UserID,
				Username:  info.Username,
				AvatarURL: info.AvatarURL,
			},
			CreatedAt: msg.CreatedAt.Format(time.RFC3339Nano),
			IsRead:    false,
		},
	}, "")

	h.notifier.MessageSent(ctx, info.UserID, info.Username, info.ConversationID)
}

func (h *SessionHandler) handleTyping(client *Client, event models.InboundEvent) {
	info := client.Info()
	observability.IncWSEvent("typing")
	h.hub.Publish(info.ConversationID, models.TypingEvent{
		Type:     models.EventTypeTyping,
		UserID:   info.UserID,
		Username: info.Username,
		IsTyping: event.IsTyping,
	}, info.UserID)
}

func (h *SessionHandler) handleReadReceipt(ctx context.Context, client *Client, event models.InboundEvent) {
	if event.MessageID == "" {
		h.sendError(client, "message_id is required")
		return
	}
	info := client.Info()

	if err := h.messages.MarkRead(ctx, event.MessageID, info.UserID); err != nil {
		h.sendError(client, messageErrorText(err))
		return
	}
	observability.IncWSEvent("read_receipt")

	h.hub.Publish(info.ConversationID, models.ReadReceiptEvent{
		Type:      models.EventTypeReadReceipt,
		MessageID: event.MessageID,
		UserID:    info.UserID,
		Username:  info.Username,
	}, info.UserID)
}

func (h *SessionHandler) isMutualWithAll(ctx context.Context, conversationID, userID string) (bool, error) {
	others, err := h.conversations.OtherParticipantIDs(ctx, conversationID, userID)
	if err != nil {
		return false, err
	}
	if len(others) == 0 {
		return false, nil
	}
	for _, other := range others {
		mutual, err := h.follows.IsMutual(ctx, userID, other)
		if err != nil {
			return false, err
		}
		if !mutual {
			return false, nil
		}
	}
	return true, nil
}

func (h *SessionHandler) sendError(client *Client, text string) {
	if err := client.Send(models.ErrorEvent{Type: models.EventTypeError, Message: text}); err != nil {
		log.Printf("websocket error send failed: conn=%s: %v", client.Info().ConnID, err)
	}
}

func messageErrorText(err error) string {
	switch {
	case errors.Is(err, repositories.ErrEmptyContent):
		return "message content is required"
	case errors.Is(err, repositories.ErrContentTooLong):
		return "message content is too long"
	case errors.Is(err, repositories.ErrMutualFollowRequired):
		return "you can only chat with mutual followers"
	case errors.Is(err, repositories.ErrNotAParticipant):
		return "not authorized for this conversation"
	case errors.Is(err, repositories.ErrMessageNotFound):
		return "message not found"
	default:
		return "failed to process message"
	}
}
