package service

import (
	"context"
	"log/slog"
	"strings"

	"snapgram/internal/ai"
	"snapgram/internal/featureflags"
	"snapgram/internal/models"
	"snapgram/internal/notifications"
	"snapgram/internal/repository"
)

// Replier answers a user's message in an AI chat. It never fails.
type Replier interface {
	Reply(ctx context.Context, prompt string) string
}

// ChatService provides two-party and AI chat logic.
type ChatService struct {
	chatRepo  repository.ChatRepository
	userRepo  repository.UserRepository
	publisher notifications.Publisher
	assistant Replier
	flags     *featureflags.Manager
}

// NewChatService returns a new ChatService.
func NewChatService(
	chatRepo repository.ChatRepository,
	userRepo repository.UserRepository,
	publisher notifications.Publisher,
	assistant Replier,
	flags *featureflags.Manager,
) *ChatService {
	return &ChatService{
		chatRepo:  chatRepo,
		userRepo:  userRepo,
		publisher: publisher,
		assistant: assistant,
		flags:     flags,
	}
}

// CreateOrGetChat returns the two-party chat between userID and partnerID,
// creating it on first contact. The bool reports creation.
func (s *ChatService) CreateOrGetChat(ctx context.Context, userID, partnerID uint) (*models.Chat, bool, error) {
	if partnerID == 0 {
		return nil, false, models.NewBadRequestError("Partner id is required")
	}
	if partnerID == userID {
		return nil, false, models.NewBadRequestError("You cannot create a chat with yourself.")
	}
	if _, err := s.userRepo.GetByID(ctx, partnerID); err != nil {
		return nil, false, err
	}

	return s.chatRepo.FindOrCreate(ctx, &models.Chat{
		UserID:          userID,
		PartnerID:       &partnerID,
		ConversationKey: models.DirectChatKey(userID, partnerID),
	})
}

// CreateOrGetAIChat returns the caller's single AI chat.
func (s *ChatService) CreateOrGetAIChat(ctx context.Context, userID uint) (*models.Chat, bool, error) {
	return s.chatRepo.FindOrCreate(ctx, &models.Chat{
		UserID:          userID,
		IsAIChat:        true,
		ConversationKey: models.AIChatKey(userID),
	})
}

func (s *ChatService) ListChats(ctx context.Context, userID uint) ([]models.Chat, error) {
	return s.chatRepo.ListForUser(ctx, userID)
}

// ListMessages returns the chat history oldest first.
func (s *ChatService) ListMessages(ctx context.Context, userID, chatID uint) ([]models.Message, error) {
	if _, err := s.participantChat(ctx, userID, chatID); err != nil {
		return nil, err
	}
	return s.chatRepo.ListMessages(ctx, chatID)
}

// CanJoin reports whether userID may subscribe to the chat's room.
func (s *ChatService) CanJoin(ctx context.Context, userID, chatID uint) error {
	_, err := s.participantChat(ctx, userID, chatID)
	return err
}

// participantChat loads the chat for a participant. A missing chat and a
// chat the caller is not part of both yield Forbidden.
func (s *ChatService) participantChat(ctx context.Context, userID, chatID uint) (*models.Chat, error) {
	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return nil, forbiddenChat()
		}
		return nil, err
	}
	if !chat.IsParticipant(userID) {
		return nil, forbiddenChat()
	}
	return chat, nil
}

func forbiddenChat() error {
	return models.NewForbiddenError("You are not authorized to access this chat")
}

// SendMessage stores and publishes the caller's message. In an AI chat the
// assistant's reply is stored and published after it and is what the caller
// gets back.
func (s *ChatService) SendMessage(ctx context.Context, userID, chatID uint, content string) (*models.Message, error) {
	chat, err := s.participantChat(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, models.NewBadRequestError("Content is required")
	}

	sender := userID
	msg := &models.Message{
		ChatID:     chat.ID,
		SenderID:   &sender,
		ReceiverID: chat.OtherParticipant(userID),
		Content:    content,
	}
	if err := s.chatRepo.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}
	s.publish(ctx, msg)

	if !chat.IsAIChat {
		return msg, nil
	}

	reply := ai.FallbackReply
	if s.assistant != nil && s.flags.AIChatEnabled(userID) {
		reply = s.assistant.Reply(ctx, content)
	}
	aiMsg := &models.Message{
		ChatID:     chat.ID,
		ReceiverID: &sender,
		Content:    reply,
	}
	if err := s.chatRepo.CreateMessage(ctx, aiMsg); err != nil {
		return nil, err
	}
	s.publish(ctx, aiMsg)
	return aiMsg, nil
}

// publish failures are logged; the message is already stored and clients
// can re-fetch.
func (s *ChatService) publish(ctx context.Context, msg *models.Message) {
	if s.publisher == nil {
		return
	}
	room := notifications.ChatRoom(msg.ChatID)
	err := s.publisher.Publish(ctx, room, notifications.Event{
		Type:    notifications.EventReceiveMessage,
		Payload: msg,
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to publish chat message",
			"chat_id", msg.ChatID,
			"message_id", msg.ID,
			"err", err,
		)
	}
}
