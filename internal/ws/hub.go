package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nirvaan-oms/api/internal/enum"
)

// Room groups connections that receive the same events. There is one room
// per role.
type Room string

const (
	RoomAdmin   Room = enum.UserRoleAdmin
	RoomCourier Room = enum.UserRoleCourier
)

// RoomForRole maps a JWT role onto its room.
func RoomForRole(role string) (Room, bool) {
	switch role {
	case enum.UserRoleAdmin:
		return RoomAdmin, true
	case enum.UserRoleCourier:
		return RoomCourier, true
	}
	return "", false
}

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewEvent marshals payload into an Event.
func NewEvent(eventType string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{Type: eventType, Payload: raw}, nil
}

type roomEvent struct {
	rooms []Room
	event Event
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Registered clients by room
	rooms map[Room]map[*Client]bool

	register   chan *Client
	unregister chan *Client

	// Outbound messages to broadcast
	broadcast chan *roomEvent

	// Closed when Run returns
	done chan struct{}

	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[Room]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *roomEvent, 256),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until ctx is cancelled, then
// closes every client's send channel.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for room, clients := range h.rooms {
				for client := range clients {
					close(client.send)
				}
				delete(h.rooms, room)
			}
			h.mu.Unlock()
			return nil

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.room] == nil {
				h.rooms[client.room] = make(map[*Client]bool)
			}
			h.rooms[client.room][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case ev := <-h.broadcast:
			message, err := json.Marshal(ev.event)
			if err != nil {
				continue
			}

			h.mu.Lock()
			for _, room := range ev.rooms {
				for client := range h.rooms[room] {
					select {
					case client.send <- message:
					default:
						// Slow consumer: drop it.
						h.remove(client)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with mu held.
func (h *Hub) remove(client *Client) {
	clients, ok := h.rooms[client.room]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.room)
	}
}

// Broadcast queues event for every client in rooms. It never blocks once the
// hub has stopped.
func (h *Hub) Broadcast(event Event, rooms ...Room) {
	if len(rooms) == 0 {
		return
	}
	select {
	case h.broadcast <- &roomEvent{rooms: rooms, event: event}:
	case <-h.done:
	}
}

// Count returns the number of clients connected to room.
func (h *Hub) Count(room Room) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
