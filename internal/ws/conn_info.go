package ws

import "time"

// ConnInfo is the immutable context of one websocket session, fixed once
// authorization succeeds.
type ConnInfo struct {
	ConnID         string
	UserID         string
	Username       string
	AvatarURL      *string
	ConversationID string
	DeviceID       string
	IP             string
	RequestID      string
	TraceID        string
	ConnectedAt    time.Time
}
