package service

import (
	"context"
	"errors"
	"testing"

	"snapgram/internal/ai"
	"snapgram/internal/featureflags"
	"snapgram/internal/models"
	"snapgram/internal/notifications"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type replierStub struct {
	reply   string
	prompts []string
}

func (r *replierStub) Reply(_ context.Context, prompt string) string {
	r.prompts = append(r.prompts, prompt)
	return r.reply
}

func newTestChatService(repo *chatRepoStub, pub *publisherStub, assistant Replier, flags string) *ChatService {
	return NewChatService(repo, noopUserRepo(), pub, assistant, featureflags.NewManager(flags))
}

func TestChatService_CreateOrGetChat(t *testing.T) {
	t.Parallel()

	t.Run("same chat from either side", func(t *testing.T) {
		t.Parallel()
		repo := newChatRepoStub()
		svc := newTestChatService(repo, &publisherStub{}, nil, "")

		first, created, err := svc.CreateOrGetChat(context.Background(), 1, 2)
		require.NoError(t, err)
		assert.True(t, created)

		second, created, err := svc.CreateOrGetChat(context.Background(), 2, 1)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, 1, repo.writes)
	})

	t.Run("self chat writes nothing", func(t *testing.T) {
		t.Parallel()
		repo := newChatRepoStub()
		svc := newTestChatService(repo, &publisherStub{}, nil, "")

		_, _, err := svc.CreateOrGetChat(context.Background(), 4, 4)
		assertAppError(t, err, models.CodeBadRequest)
		assert.Zero(t, repo.writes)
	})

	t.Run("missing partner id", func(t *testing.T) {
		t.Parallel()
		svc := newTestChatService(newChatRepoStub(), &publisherStub{}, nil, "")
		_, _, err := svc.CreateOrGetChat(context.Background(), 4, 0)
		assertAppError(t, err, models.CodeBadRequest)
	})

	t.Run("unknown partner", func(t *testing.T) {
		t.Parallel()
		users := noopUserRepo()
		users.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
			return nil, models.NewNotFoundError("User", id)
		}
		repo := newChatRepoStub()
		svc := NewChatService(repo, users, &publisherStub{}, nil, nil)

		_, _, err := svc.CreateOrGetChat(context.Background(), 1, 77)
		assertAppError(t, err, models.CodeNotFound)
		assert.Zero(t, repo.writes)
	})

	t.Run("ai chat is separate from direct chats", func(t *testing.T) {
		t.Parallel()
		repo := newChatRepoStub()
		svc := newTestChatService(repo, &publisherStub{}, nil, "")

		direct, _, err := svc.CreateOrGetChat(context.Background(), 1, 2)
		require.NoError(t, err)
		aiChat, created, err := svc.CreateOrGetAIChat(context.Background(), 1)
		require.NoError(t, err)
		assert.True(t, created)
		assert.True(t, aiChat.IsAIChat)
		assert.NotEqual(t, direct.ID, aiChat.ID)

		again, created, err := svc.CreateOrGetAIChat(context.Background(), 1)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, aiChat.ID, again.ID)
	})
}

func TestChatService_SendMessage(t *testing.T) {
	t.Parallel()

	t.Run("direct chat stores and publishes once", func(t *testing.T) {
		t.Parallel()
		repo := newChatRepoStub()
		pub := &publisherStub{}
		svc := newTestChatService(repo, pub, nil, "")
		chat, _, err := svc.CreateOrGetChat(context.Background(), 1, 2)
		require.NoError(t, err)

		msg, err := svc.SendMessage(context.Background(), 1, chat.ID, " hello ")
		require.NoError(t, err)
		assert.Equal(t, "hello", msg.Content)
		require.NotNil(t, msg.SenderID)
		assert.Equal(t, uint(1), *msg.SenderID)
		require.NotNil(t, msg.ReceiverID)
		assert.Equal(t, uint(2), *msg.ReceiverID)

		stored, err := repo.ListMessages(context.Background(), chat.ID)
		require.NoError(t, err)
		assert.Len(t, stored, 1)
		require.Len(t, pub.events, 1)
		assert.Equal(t, notifications.ChatRoom(chat.ID), pub.events[0].Room)
		assert.Equal(t, notifications.EventReceiveMessage, pub.events[0].Event.Type)
	})

	t.Run("ai chat answers with the assistant message", func(t *testing.T) {
		t.Parallel()
		repo := newChatRepoStub()
		pub := &publisherStub{}
		assistant := &replierStub{reply: "Try the harbour at dusk."}
		svc := newTestChatService(repo, pub, assistant, "ai_chat=on")
		chat, _, err := svc.CreateOrGetAIChat(context.Background(), 1)
		require.NoError(t, err)

		msg, err := svc.SendMessage(context.Background(), 1, chat.ID, "where should I shoot?")
		require.NoError(t, err)
		assert.True(t, msg.FromAssistant())
		assert.Equal(t, "Try the harbour at dusk.", msg.Content)
		require.NotNil(t, msg.ReceiverID)
		assert.Equal(t, uint(1), *msg.ReceiverID)
		assert.Equal(t, []string{"where should I shoot?"}, assistant.prompts)

		stored, err := repo.ListMessages(context.Background(), chat.ID)
		require.NoError(t, err)
		require.Len(t, stored, 2)
		assert.False(t, stored[0].FromAssistant())
		assert.True(t, stored[1].FromAssistant())
		assert.Len(t, pub.events, 2)
	})

	t.Run("ai chat with flag off uses fallback", func(t *testing.T) {
		t.Parallel()
		repo := newChatRepoStub()
		assistant := &replierStub{reply: "unused"}
		svc := newTestChatService(repo, &publisherStub{}, assistant, "ai_chat=off")
		chat, _, err := svc.CreateOrGetAIChat(context.Background(), 1)
		require.NoError(t, err)

		msg, err := svc.SendMessage(context.Background(), 1, chat.ID, "hi")
		require.NoError(t, err)
		assert.Equal(t, ai.FallbackReply, msg.Content)
		assert.Empty(t, assistant.prompts)
	})

	t.Run("publish failure does not fail the send", func(t *testing.T) {
		t.Parallel()
		repo := newChatRepoStub()
		pub := &publisherStub{err: errors.New("redis down")}
		svc := newTestChatService(repo, pub, nil, "")
		chat, _, err := svc.CreateOrGetChat(context.Background(), 1, 2)
		require.NoError(t, err)

		_, err = svc.SendMessage(context.Background(), 2, chat.ID, "hi")
		require.NoError(t, err)
	})

	t.Run("empty content", func(t *testing.T) {
		t.Parallel()
		repo := newChatRepoStub()
		svc := newTestChatService(repo, &publisherStub{}, nil, "")
		chat, _, err := svc.CreateOrGetChat(context.Background(), 1, 2)
		require.NoError(t, err)

		_, err = svc.SendMessage(context.Background(), 1, chat.ID, "   ")
		assertAppError(t, err, models.CodeBadRequest)
	})
}

func TestChatService_NonParticipant(t *testing.T) {
	t.Parallel()

	repo := newChatRepoStub()
	pub := &publisherStub{}
	svc := newTestChatService(repo, pub, nil, "")
	chat, _, err := svc.CreateOrGetChat(context.Background(), 1, 2)
	require.NoError(t, err)
	writes := repo.writes

	tests := []struct {
		name   string
		userID uint
		chatID uint
	}{
		{"outsider", 3, chat.ID},
		{"missing chat", 1, 999},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ListMessages(context.Background(), tt.userID, tt.chatID)
			assertAppError(t, err, models.CodeForbidden)

			_, err = svc.SendMessage(context.Background(), tt.userID, tt.chatID, "hi")
			assertAppError(t, err, models.CodeForbidden)

			assertAppError(t, svc.CanJoin(context.Background(), tt.userID, tt.chatID), models.CodeForbidden)
		})
	}
	assert.Equal(t, writes, repo.writes)
	assert.Empty(t, pub.events)
}

func TestChatService_ListChats(t *testing.T) {
	t.Parallel()

	repo := newChatRepoStub()
	svc := newTestChatService(repo, &publisherStub{}, nil, "")
	_, _, err := svc.CreateOrGetChat(context.Background(), 1, 2)
	require.NoError(t, err)
	_, _, err = svc.CreateOrGetChat(context.Background(), 3, 1)
	require.NoError(t, err)
	_, _, err = svc.CreateOrGetChat(context.Background(), 2, 3)
	require.NoError(t, err)

	chats, err := svc.ListChats(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, chats, 2)
	require.NoError(t, svc.CanJoin(context.Background(), 1, chats[0].ID))
}
