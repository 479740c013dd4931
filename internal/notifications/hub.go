package notifications

import (
	"context"
	"errors"
	"log"
	"sync"

	"snapgram/internal/middleware"

	"github.com/gofiber/websocket/v2"
)

const maxConnsPerUser = 12

// ErrConnectionLimit is returned by Register when a user already has
// maxConnsPerUser open sockets.
var ErrConnectionLimit = errors.New("user connection limit reached")

// RoomHub tracks sockets and the rooms each socket has joined. Room
// membership is per socket, so a user's other devices only receive a room's
// frames once they join it too.
type RoomHub struct {
	mu sync.RWMutex

	rooms       map[string]map[*Client]struct{}
	clientRooms map[*Client]map[string]struct{}
	userConns   map[uint]map[*Client]struct{}
}

// NewRoomHub creates an empty RoomHub.
func NewRoomHub() *RoomHub {
	return &RoomHub{
		rooms:       make(map[string]map[*Client]struct{}),
		clientRooms: make(map[*Client]map[string]struct{}),
		userConns:   make(map[uint]map[*Client]struct{}),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *RoomHub) Name() string { return "room hub" }

// Register adds a socket for userID.
func (h *RoomHub) Register(userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.userConns[userID]
	if conns == nil {
		conns = make(map[*Client]struct{})
		h.userConns[userID] = conns
	}
	if len(conns) >= maxConnsPerUser {
		return nil, ErrConnectionLimit
	}

	client := NewClient(h, conn, userID)
	conns[client] = struct{}{}
	h.clientRooms[client] = make(map[string]struct{})
	middleware.ActiveWebSockets.Inc()
	return client, nil
}

// UnregisterClient drops the socket from every room it joined. It is safe to
// call more than once.
func (h *RoomHub) UnregisterClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	joined, ok := h.clientRooms[c]
	if !ok {
		return
	}
	for room := range joined {
		h.removeFromRoom(c, room)
	}
	delete(h.clientRooms, c)

	if conns, ok := h.userConns[c.UserID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.userConns, c.UserID)
		}
	}
	middleware.ActiveWebSockets.Dec()
	c.close()
}

// Join subscribes the socket to room. Unknown sockets are ignored.
func (h *RoomHub) Join(c *Client, room string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	joined, ok := h.clientRooms[c]
	if !ok {
		return false
	}
	members := h.rooms[room]
	if members == nil {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	joined[room] = struct{}{}
	return true
}

// Leave unsubscribes the socket from room.
func (h *RoomHub) Leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if joined, ok := h.clientRooms[c]; ok {
		delete(joined, room)
	}
	h.removeFromRoom(c, room)
}

func (h *RoomHub) removeFromRoom(c *Client, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// BroadcastToRoom queues frame on every socket in room and returns how many
// sockets it was offered to.
func (h *RoomHub) BroadcastToRoom(room string, frame []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	members := h.rooms[room]
	for client := range members {
		client.TrySend(frame)
	}
	return len(members)
}

// RoomSize returns the number of sockets in room.
func (h *RoomHub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Shutdown closes every socket's send queue; each write pump then sends a
// close frame and exits.
func (h *RoomHub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clientRooms {
		client.close()
		middleware.ActiveWebSockets.Dec()
	}
	log.Printf("RoomHub: closed %d sockets", len(h.clientRooms))

	h.rooms = make(map[string]map[*Client]struct{})
	h.clientRooms = make(map[*Client]map[string]struct{})
	h.userConns = make(map[uint]map[*Client]struct{})
	return nil
}
