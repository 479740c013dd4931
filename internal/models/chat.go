package models

import (
	"fmt"
	"time"
)

// Chat is either a two-party conversation or a user's single conversation
// with the assistant (IsAIChat, no partner).
//
// ConversationKey is unique and derived from the participants, so concurrent
// find-or-create calls converge on one row.
type Chat struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	IsAIChat        bool      `gorm:"column:is_ai_chat;not null;default:false" json:"is_ai_chat"`
	UserID          uint      `gorm:"not null;index" json:"user_id"`
	Creator         *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"creator,omitempty"`
	PartnerID       *uint     `gorm:"index" json:"partner_id"`
	Partner         *User     `gorm:"foreignKey:PartnerID;constraint:OnDelete:CASCADE" json:"partner,omitempty"`
	ConversationKey string    `gorm:"uniqueIndex;not null;size:64" json:"-"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `gorm:"index" json:"updated_at"`
}

// IsParticipant reports whether userID is the creator or the partner.
func (c *Chat) IsParticipant(userID uint) bool {
	if c == nil {
		return false
	}
	return c.UserID == userID || (c.PartnerID != nil && *c.PartnerID == userID)
}

// OtherParticipant returns the participant that is not userID, or nil for AI
// chats.
func (c *Chat) OtherParticipant(userID uint) *uint {
	if c.IsAIChat || c.PartnerID == nil {
		return nil
	}
	if c.UserID == userID {
		id := *c.PartnerID
		return &id
	}
	id := c.UserID
	return &id
}

// DirectChatKey is the conversation key for a two-party chat. The pair is
// unordered.
func DirectChatKey(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("dm:%d:%d", a, b)
}

// AIChatKey is the conversation key for a user's assistant chat.
func AIChatKey(userID uint) string {
	return fmt.Sprintf("ai:%d", userID)
}

// Message is an immutable chat line. A nil SenderID means the assistant wrote
// it.
type Message struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ChatID     uint      `gorm:"not null;index:idx_messages_chat_created,priority:1" json:"chat_id"`
	SenderID   *uint     `gorm:"index" json:"sender_id"`
	Sender     *User     `gorm:"foreignKey:SenderID;constraint:OnDelete:SET NULL" json:"sender,omitempty"`
	ReceiverID *uint     `json:"receiver_id,omitempty"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	CreatedAt  time.Time `gorm:"index:idx_messages_chat_created,priority:2" json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// FromAssistant reports whether the message was generated by the assistant.
func (m *Message) FromAssistant() bool {
	return m.SenderID == nil
}
