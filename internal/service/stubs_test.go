package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"snapgram/internal/auth"
	"snapgram/internal/models"
	"snapgram/internal/notifications"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUnexpectedCall = errors.New("unexpected call")

type userRepoStub struct {
	getByIDFn            func(context.Context, uint) (*models.User, error)
	getByEmailFn         func(context.Context, string) (*models.User, error)
	getByGoogleSubjectFn func(context.Context, string) (*models.User, error)
	createFn             func(context.Context, *models.User) error
	updateFn             func(context.Context, *models.User) error
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByGoogleSubject(ctx context.Context, subject string) (*models.User, error) {
	return s.getByGoogleSubjectFn(ctx, subject)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) Update(ctx context.Context, user *models.User) error {
	return s.updateFn(ctx, user)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id}, nil
		},
		getByEmailFn:         func(context.Context, string) (*models.User, error) { return nil, nil },
		getByGoogleSubjectFn: func(context.Context, string) (*models.User, error) { return nil, nil },
		createFn: func(_ context.Context, u *models.User) error {
			u.ID = 1
			return nil
		},
		updateFn: func(context.Context, *models.User) error { return nil },
	}
}

type postRepoStub struct {
	createFn          func(context.Context, *models.Post) error
	getByIDFn         func(context.Context, uint) (*models.Post, error)
	listPublicFn      func(context.Context, int, int) ([]models.Post, error)
	listByUserFn      func(context.Context, uint, int, int) ([]models.Post, error)
	listByCategoryFn  func(context.Context, uint, uint, int) ([]models.Post, error)
	updateFn          func(context.Context, *models.Post) error
	deleteFn          func(context.Context, uint) error
	likeFn            func(context.Context, uint, uint) (bool, error)
	unlikeFn          func(context.Context, uint, uint) (bool, error)
	isLikedFn         func(context.Context, uint, uint) (bool, error)
	likedCategoriesFn func(context.Context, uint) ([]models.LikedCategory, error)
}

func (s *postRepoStub) Create(ctx context.Context, p *models.Post) error { return s.createFn(ctx, p) }
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) ListPublic(ctx context.Context, limit, offset int) ([]models.Post, error) {
	return s.listPublicFn(ctx, limit, offset)
}
func (s *postRepoStub) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Post, error) {
	return s.listByUserFn(ctx, userID, limit, offset)
}
func (s *postRepoStub) ListByCategory(ctx context.Context, categoryID, excludeUserID uint, limit int) ([]models.Post, error) {
	return s.listByCategoryFn(ctx, categoryID, excludeUserID, limit)
}
func (s *postRepoStub) Update(ctx context.Context, p *models.Post) error { return s.updateFn(ctx, p) }
func (s *postRepoStub) Delete(ctx context.Context, id uint) error         { return s.deleteFn(ctx, id) }
func (s *postRepoStub) Like(ctx context.Context, userID, postID uint) (bool, error) {
	return s.likeFn(ctx, userID, postID)
}
func (s *postRepoStub) Unlike(ctx context.Context, userID, postID uint) (bool, error) {
	return s.unlikeFn(ctx, userID, postID)
}
func (s *postRepoStub) IsLiked(ctx context.Context, userID, postID uint) (bool, error) {
	return s.isLikedFn(ctx, userID, postID)
}
func (s *postRepoStub) LikedCategories(ctx context.Context, userID uint) ([]models.LikedCategory, error) {
	return s.likedCategoriesFn(ctx, userID)
}

func noopPostRepo() *postRepoStub {
	fail := func() error { return errUnexpectedCall }
	return &postRepoStub{
		createFn:  func(context.Context, *models.Post) error { return fail() },
		getByIDFn: func(context.Context, uint) (*models.Post, error) { return nil, fail() },
		listPublicFn: func(context.Context, int, int) ([]models.Post, error) {
			return nil, fail()
		},
		listByUserFn: func(context.Context, uint, int, int) ([]models.Post, error) {
			return nil, fail()
		},
		listByCategoryFn: func(context.Context, uint, uint, int) ([]models.Post, error) {
			return nil, fail()
		},
		updateFn:  func(context.Context, *models.Post) error { return fail() },
		deleteFn:  func(context.Context, uint) error { return fail() },
		likeFn:    func(context.Context, uint, uint) (bool, error) { return false, fail() },
		unlikeFn:  func(context.Context, uint, uint) (bool, error) { return false, fail() },
		isLikedFn: func(context.Context, uint, uint) (bool, error) { return false, fail() },
		likedCategoriesFn: func(context.Context, uint) ([]models.LikedCategory, error) {
			return nil, fail()
		},
	}
}

type categoryRepoStub struct {
	categories []models.Category
	listErr    error
}

func (s *categoryRepoStub) List(context.Context) ([]models.Category, error) {
	return s.categories, s.listErr
}
func (s *categoryRepoStub) GetByID(_ context.Context, id uint) (*models.Category, error) {
	for i := range s.categories {
		if s.categories[i].ID == id {
			return &s.categories[i], nil
		}
	}
	return nil, models.NewNotFoundError("Category", id)
}
func (s *categoryRepoStub) GetByName(_ context.Context, name string) (*models.Category, error) {
	for i := range s.categories {
		if s.categories[i].Name == name {
			return &s.categories[i], nil
		}
	}
	return nil, models.NewNotFoundError("", nil)
}
func (s *categoryRepoStub) EnsureNames(context.Context, []string) error { return nil }

func defaultCategories() *categoryRepoStub {
	return &categoryRepoStub{categories: []models.Category{
		{ID: 1, Name: "Fashion"},
		{ID: 2, Name: "Food"},
		{ID: 3, Name: "Lifestyle"},
		{ID: 4, Name: "Technology"},
		{ID: 5, Name: "Travel"},
	}}
}

// chatRepoStub keeps chats and messages in memory.
type chatRepoStub struct {
	mu       sync.Mutex
	chats    map[uint]*models.Chat
	byKey    map[string]uint
	messages []models.Message
	writes   int
}

func newChatRepoStub() *chatRepoStub {
	return &chatRepoStub{chats: make(map[uint]*models.Chat), byKey: make(map[string]uint)}
}

func (s *chatRepoStub) GetByID(_ context.Context, id uint) (*models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[id]
	if !ok {
		return nil, models.NewNotFoundError("Chat", id)
	}
	cp := *c
	return &cp, nil
}

func (s *chatRepoStub) FindOrCreate(_ context.Context, candidate *models.Chat) (*models.Chat, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byKey[candidate.ConversationKey]; ok {
		cp := *s.chats[id]
		return &cp, false, nil
	}
	c := *candidate
	c.ID = uint(len(s.chats) + 1)
	s.chats[c.ID] = &c
	s.byKey[c.ConversationKey] = c.ID
	s.writes++
	cp := c
	return &cp, true, nil
}

func (s *chatRepoStub) ListForUser(_ context.Context, userID uint) ([]models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Chat
	for _, c := range s.chats {
		if c.IsParticipant(userID) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *chatRepoStub) CreateMessage(_ context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg.ID = uint(len(s.messages) + 1)
	s.messages = append(s.messages, *msg)
	s.writes++
	return nil
}

func (s *chatRepoStub) ListMessages(_ context.Context, chatID uint) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Message
	for _, m := range s.messages {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out, nil
}

type published struct {
	Room  string
	Event notifications.Event
}

type publisherStub struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (p *publisherStub) Publish(_ context.Context, room string, ev notifications.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{Room: room, Event: ev})
	return p.err
}

type tokenStub struct{}

func (tokenStub) Issue(userID uint, username string) (string, error) {
	return "token-for-" + username, nil
}

type googleStub struct {
	identity *auth.GoogleIdentity
	err      error
}

func (g *googleStub) Verify(context.Context, string) (*auth.GoogleIdentity, error) {
	return g.identity, g.err
}

// assertAppError asserts that err is an AppError with the given code.
func assertAppError(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}
