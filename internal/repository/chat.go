package repository

import (
	"context"
	"errors"
	"time"

	"snapgram/internal/models"

	"gorm.io/gorm"
)

// findOrCreateAttempts bounds the retry loop when concurrent creators race
// on the same conversation key.
const findOrCreateAttempts = 3

// ErrChatConflict is returned when find-or-create keeps losing the race.
var ErrChatConflict = errors.New("chat find-or-create did not converge")

// ChatRepository defines persistence operations for chats and messages.
type ChatRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Chat, error)
	FindOrCreate(ctx context.Context, chat *models.Chat) (*models.Chat, bool, error)
	ListForUser(ctx context.Context, userID uint) ([]models.Chat, error)
	CreateMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, chatID uint) ([]models.Message, error)
}

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository returns a new ChatRepository implementation.
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) GetByID(ctx context.Context, id uint) (*models.Chat, error) {
	var chat models.Chat
	if err := r.db.WithContext(ctx).First(&chat, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Chat", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &chat, nil
}

// FindOrCreate returns the chat with candidate's ConversationKey, inserting
// candidate when none exists. The bool reports whether this call created it.
// A unique-key conflict means another request created it first; the loop
// then reads the winner.
func (r *chatRepository) FindOrCreate(ctx context.Context, candidate *models.Chat) (*models.Chat, bool, error) {
	db := r.db.WithContext(ctx)
	for attempt := 0; attempt < findOrCreateAttempts; attempt++ {
		var existing models.Chat
		err := db.Where("conversation_key = ?", candidate.ConversationKey).First(&existing).Error
		if err == nil {
			return &existing, false, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, models.NewInternalError(err)
		}

		created := *candidate
		created.ID = 0
		err = db.Create(&created).Error
		if err == nil {
			return &created, true, nil
		}
		if !isUniqueConstraintError(err) {
			return nil, false, models.NewInternalError(err)
		}
	}
	return nil, false, models.NewInternalError(ErrChatConflict)
}

// ListForUser returns chats where userID is creator or partner, most
// recently active first, with both participants' summaries.
func (r *chatRepository) ListForUser(ctx context.Context, userID uint) ([]models.Chat, error) {
	chats := []models.Chat{}
	err := readDB(r.db).WithContext(ctx).
		Preload("Creator", summary).
		Preload("Partner", summary).
		Where("user_id = ? OR partner_id = ?", userID, userID).
		Order("updated_at DESC, id DESC").
		Find(&chats).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return chats, nil
}

// CreateMessage inserts msg, bumps the chat's updated_at and attaches the
// sender summary for broadcasting.
func (r *chatRepository) CreateMessage(ctx context.Context, msg *models.Message) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Sender").Create(msg).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Chat{}).
			Where("id = ?", msg.ChatID).
			UpdateColumn("updated_at", time.Now()).Error; err != nil {
			return err
		}
		if msg.SenderID == nil {
			return nil
		}
		var sender models.User
		if err := tx.Select(models.SummaryColumns).First(&sender, *msg.SenderID).Error; err != nil {
			return err
		}
		msg.Sender = &sender
		return nil
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// ListMessages returns the chat's messages oldest first. Messages created in
// the same instant keep insertion order.
func (r *chatRepository) ListMessages(ctx context.Context, chatID uint) ([]models.Message, error) {
	messages := []models.Message{}
	err := readDB(r.db).WithContext(ctx).
		Preload("Sender", summary).
		Where("chat_id = ?", chatID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return messages, nil
}
