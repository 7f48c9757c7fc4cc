package ws

import (
	"encoding/json"
	"log"
	"sync"

	"social-chat-service/internal/observability"
)

// Broadcaster fans out events to every session joined to a conversation's
// room. It is an interface so the in-process hub can be swapped for a shared
// pub/sub backing when the service runs as multiple processes.
type Broadcaster interface {
	Join(conversationID string, client *Client)
	Leave(conversationID string, client *Client)
	Publish(conversationID string, payload interface{}, excludeUserID string)
}

// Hub is the in-process Broadcaster: a room per conversation id holding the
// live set of clients. Delivery is at-most-once with no replay; durability is
// the store's job.
type Hub struct {
	rooms map[string]map[*Client]struct{}
	mu    sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*Client]struct{})}
}

// Join registers a client in a conversation's room. Idempotent.
func (h *Hub) Join(conversationID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[conversationID]; !ok {
		h.rooms[conversationID] = make(map[*Client]struct{})
	}
	h.rooms[conversationID][client] = struct{}{}
}

// Leave removes a client from a conversation's room. Idempotent.
func (h *Hub) Leave(conversationID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.rooms[conversationID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.rooms, conversationID)
		}
	}
}

// RoomSize reports the number of clients joined to a room.
func (h *Hub) RoomSize(conversationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[conversationID])
}

// Publish delivers an event to every client in the room. The recipient set is
// snapshotted under the lock so join/leave during delivery never yields a
// partial send. A non-empty excludeUserID suppresses delivery to every
// connection of that user (typing, presence and read receipts are never
// echoed to the actor, on any of their devices).
func (h *Hub) Publish(conversationID string, payload interface{}, excludeUserID string) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("websocket publish marshal error: %v", err)
		return
	}

	h.mu.RLock()
	recipients := make([]*Client, 0, len(h.rooms[conversationID]))
	for client := range h.rooms[conversationID] {
		if excludeUserID != "" && client.info.UserID == excludeUserID {
			continue
		}
		recipients = append(recipients, client)
	}
	h.mu.RUnlock()

	for _, client := range recipients {
		if err := client.write(data); err != nil {
			log.Printf("websocket write error: conn=%s user=%s: %v",
				client.info.ConnID, client.info.UserID, err)
			client.Close()
			h.Leave(conversationID, client)
			observability.IncWSEvent("ws_error")
		}
	}
}
