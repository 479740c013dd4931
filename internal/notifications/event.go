// Package notifications delivers real-time chat events to WebSocket clients
// grouped into rooms, optionally fanned out across instances through Redis.
package notifications

import (
	"context"
	"strconv"
)

// Event types exchanged over the chat socket.
const (
	EventReceiveMessage = "receive_message"
	EventJoinChat       = "join_chat"
	EventLeaveChat      = "leave_chat"
	EventJoinedChat     = "joined_chat"
	EventLeftChat       = "left_chat"
	EventError          = "error"
)

// Event is one server frame.
type Event struct {
	Type    string `json:"type"`
	Room    string `json:"room,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// Publisher delivers an event to every socket in room.
type Publisher interface {
	Publish(ctx context.Context, room string, ev Event) error
}

// ChatRoom derives the room key for a chat.
func ChatRoom(chatID uint) string {
	return "chat_" + strconv.FormatUint(uint64(chatID), 10)
}

const roomChannelPrefix = "chat:room:"

// RoomChannel derives the Redis channel name for a room.
func RoomChannel(room string) string {
	return roomChannelPrefix + room
}
