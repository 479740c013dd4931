package server

import (
	"encoding/json"

	"snapgram/internal/models"

	"github.com/gofiber/fiber/v2"
)

// CreateChatRequest is the body of POST /api/chats.
type CreateChatRequest struct {
	PartnerID uint `json:"partner_id"`
}

// UnmarshalJSON also accepts partnerId, which the web client sends.
func (r *CreateChatRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		PartnerID      *uint `json:"partner_id"`
		PartnerIDCamel *uint `json:"partnerId"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.PartnerID != nil:
		r.PartnerID = *raw.PartnerID
	case raw.PartnerIDCamel != nil:
		r.PartnerID = *raw.PartnerIDCamel
	}
	return nil
}

// SendMessageRequest is the body of POST /api/chats/:chatId/messages.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// chatStatus is 201 when the chat was just created and 200 when it already
// existed.
func chatStatus(created bool) int {
	if created {
		return fiber.StatusCreated
	}
	return fiber.StatusOK
}

// CreateChat handles POST /api/chats
// @Summary Create or get a two-party chat
// @Description Returns 201 when the chat is created, 200 when it already existed
// @Tags chats
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateChatRequest true "Partner"
// @Success 200 {object} models.Chat
// @Success 201 {object} models.Chat
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /chats [post]
func (s *Server) CreateChat(c *fiber.Ctx) error {
	var req CreateChatRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	chat, created, err := s.chatService.CreateOrGetChat(c.UserContext(), currentUserID(c), req.PartnerID)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.Status(chatStatus(created)).JSON(chat)
}

// CreateAIChat handles POST /api/chats/ai
// @Summary Create or get the assistant chat
// @Tags chats
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Chat
// @Success 201 {object} models.Chat
// @Router /chats/ai [post]
func (s *Server) CreateAIChat(c *fiber.Ctx) error {
	chat, created, err := s.chatService.CreateOrGetAIChat(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.Status(chatStatus(created)).JSON(chat)
}

// GetChats handles GET /api/chats
// @Summary List my chats
// @Description Most recently active first, with creator and partner profiles
// @Tags chats
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Chat
// @Router /chats [get]
func (s *Server) GetChats(c *fiber.Ctx) error {
	chats, err := s.chatService.ListChats(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(chats)
}

// GetMessages handles GET /api/chats/:chatId/messages
// @Summary List chat messages
// @Description Oldest first. Missing chats and chats the caller is not part of both return 403.
// @Tags chats
// @Produce json
// @Security BearerAuth
// @Param chatId path int true "Chat ID"
// @Success 200 {array} models.Message
// @Failure 403 {object} models.ErrorResponse
// @Router /chats/{chatId}/messages [get]
func (s *Server) GetMessages(c *fiber.Ctx) error {
	chatID, err := s.parseID(c, "chatId")
	if err != nil {
		return nil
	}

	messages, err := s.chatService.ListMessages(c.UserContext(), currentUserID(c), chatID)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(messages)
}

// SendMessage handles POST /api/chats/:chatId/messages
// @Summary Send a message
// @Description In an assistant chat the response is the assistant's reply
// @Tags chats
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param chatId path int true "Chat ID"
// @Param request body SendMessageRequest true "Message"
// @Success 201 {object} models.Message
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /chats/{chatId}/messages [post]
func (s *Server) SendMessage(c *fiber.Ctx) error {
	chatID, err := s.parseID(c, "chatId")
	if err != nil {
		return nil
	}

	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	msg, err := s.chatService.SendMessage(c.UserContext(), currentUserID(c), chatID, req.Content)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}
