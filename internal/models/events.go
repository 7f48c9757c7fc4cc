package models

// Wire event types exchanged over conversation websockets.
const (
	EventTypeMessage     = "message"
	EventTypeTyping      = "typing"
	EventTypeUserStatus  = "user_status"
	EventTypeReadReceipt = "read_receipt"
	EventTypeError       = "error"
)

// InboundEvent is the client-to-server payload; Type discriminates which
// fields are meaningful.
type InboundEvent struct {
	Type      string `json:"type"`
	Content   string `json:"content,omitempty"`
	IsTyping  bool   `json:"is_typing,omitempty"`
	MessageID string `json:"message_id,omitempty"`
}

// MessagePayload is the serialized message carried in a message event.
type MessagePayload struct {
	ID          string        `json:"id"`
	Content     string        `json:"content"`
	MessageType string        `json:"message_type"`
	Sender      SenderSummary `json:"sender"`
	CreatedAt   string        `json:"created_at"`
	IsRead      bool          `json:"is_read"`
}

// MessageEvent broadcasts a persisted message to the room.
type MessageEvent struct {
	Type    string         `json:"type"`
	Message MessagePayload `json:"message"`
}

// TypingEvent broadcasts a typing indicator; never echoed to the typist.
type TypingEvent struct {
	Type     string `json:"type"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	IsTyping bool   `json:"is_typing"`
}

// UserStatusEvent announces presence; never echoed to the subject.
type UserStatusEvent struct {
	Type     string `json:"type"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Status   string `json:"status"`
}

// ReadReceiptEvent announces that a user read a message; never echoed to the
// reader.
type ReadReceiptEvent struct {
	Type      string `json:"type"`
	MessageID string `json:"message_id"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
}

// ErrorEvent is delivered privately to the acting session only.
type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
