package server

import (
	"context"
	"encoding/json"
	"time"

	"snapgram/internal/middleware"
	"snapgram/internal/models"
	"snapgram/internal/notifications"
	"snapgram/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const joinCheckTimeout = 5 * time.Second

// chatFrame is a client-to-server WebSocket frame.
type chatFrame struct {
	Type   string `json:"type"`
	ChatID uint   `json:"chat_id"`
}

// WebSocketChatHandler handles WebSocket connections for real-time chat.
// Clients join chat rooms with join_chat and then receive every
// receive_message published to those rooms.
func (s *Server) WebSocketChatHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, ok := conn.Locals("userID").(uint)
		if !ok {
			_ = conn.WriteMessage(websocket.TextMessage, errorFrame("Please login first"))
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			middleware.Logger.Warn("websocket register failed", "user_id", userID, "error", err)
			_ = conn.WriteMessage(websocket.TextMessage, errorFrame(err.Error()))
			_ = conn.Close()
			return
		}
		client.IncomingHandler = s.handleChatFrame

		go client.WritePump()
		client.ReadPump()
	})
}

func (s *Server) handleChatFrame(c *notifications.Client, raw []byte) {
	var frame chatFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		observability.WebSocketEventsTotal.WithLabelValues("invalid").Inc()
		c.TrySend(errorFrame("Invalid message format"))
		return
	}
	observability.WebSocketEventsTotal.WithLabelValues(frame.Type).Inc()

	switch frame.Type {
	case notifications.EventJoinChat:
		s.joinChat(c, frame.ChatID)
	case notifications.EventLeaveChat:
		room := notifications.ChatRoom(frame.ChatID)
		s.hub.Leave(c, room)
		c.TrySend(eventFrame(notifications.Event{Type: notifications.EventLeftChat, Room: room}))
	default:
		c.TrySend(errorFrame("Unknown event type"))
	}
}

func (s *Server) joinChat(c *notifications.Client, chatID uint) {
	ctx, cancel := context.WithTimeout(middleware.WithUserID(context.Background(), c.UserID), joinCheckTimeout)
	defer cancel()

	if err := s.chatService.CanJoin(ctx, c.UserID, chatID); err != nil {
		if models.IsCode(err, models.CodeForbidden) {
			observability.WebSocketRoomJoins.WithLabelValues("forbidden").Inc()
			c.TrySend(errorFrame("Forbidden"))
			return
		}
		observability.WebSocketRoomJoins.WithLabelValues("error").Inc()
		middleware.Logger.ErrorContext(ctx, "room join check failed", "chat_id", chatID, "error", err)
		c.TrySend(errorFrame("Internal Server Error"))
		return
	}

	room := notifications.ChatRoom(chatID)
	if !s.hub.Join(c, room) {
		observability.WebSocketRoomJoins.WithLabelValues("error").Inc()
		return
	}
	observability.WebSocketRoomJoins.WithLabelValues("joined").Inc()
	c.TrySend(eventFrame(notifications.Event{Type: notifications.EventJoinedChat, Room: room}))
}

func eventFrame(ev notifications.Event) []byte {
	b, err := json.Marshal(ev)
	if err != nil {
		return errorFrame("Internal Server Error")
	}
	return b
}

func errorFrame(message string) []byte {
	b, _ := json.Marshal(notifications.Event{
		Type:    notifications.EventError,
		Payload: fiber.Map{"message": message},
	})
	return b
}
