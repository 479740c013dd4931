// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"math/rand"
	"time"

	"snapgram/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DemoPassword is the plaintext password of every generated user.
const DemoPassword = "password123"

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by Demo and by tests.
type Factory struct {
	db   *gorm.DB
	opts Options
	rng  *rand.Rand
	hash string
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seed := opts.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gofakeit.Seed(seed)
	return &Factory{
		db:   db,
		opts: opts,
		// #nosec G404: acceptable for seeding
		rng: rand.New(rand.NewSource(seed)),
	}
}

func (f *Factory) passwordHash() (string, error) {
	if f.hash != "" {
		return f.hash, nil
	}
	cost := bcrypt.DefaultCost
	if f.opts.FastHash {
		cost = bcrypt.MinCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), cost)
	if err != nil {
		return "", err
	}
	f.hash = string(hashed)
	return f.hash, nil
}

// backdate returns a timestamp within the last MaxDays days.
func (f *Factory) backdate() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.rng.Intn(maxDays))*24*time.Hour +
		time.Duration(f.rng.Intn(24))*time.Hour +
		time.Duration(f.rng.Intn(60))*time.Minute
	return time.Now().Add(-back)
}

// CreateUser constructs and persists a sample user.
// Optional override functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	hash, err := f.passwordHash()
	if err != nil {
		return nil, err
	}
	username := gofakeit.Username() + fmt.Sprintf("%d", gofakeit.Number(100, 999))
	user := &models.User{
		Username:   username,
		Email:      fmt.Sprintf("%s@example.com", username),
		Password:   hash,
		Bio:        gofakeit.Sentence(10),
		ProfilePic: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
	}

	for _, override := range overrides {
		override(user)
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost constructs a post with one to three placeholder images without
// persisting it.
func (f *Factory) BuildPost(user *models.User, category *models.Category, overrides ...func(*models.Post)) *models.Post {
	post := &models.Post{
		Content:   gofakeit.Sentence(12),
		UserID:    user.ID,
		IsPrivate: f.rng.Float32() < 0.1,
	}
	if category != nil {
		id := category.ID
		post.CategoryID = &id
	}
	post.CreatedAt = f.backdate()
	post.UpdatedAt = post.CreatedAt

	n := 1 + f.rng.Intn(3)
	for i := 0; i < n; i++ {
		post.Images = append(post.Images, models.Image{
			URL: fmt.Sprintf("https://picsum.photos/seed/%s/800/800", gofakeit.UUID()),
		})
	}

	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePost builds and persists a post with its images.
func (f *Factory) CreatePost(user *models.User, category *models.Category, overrides ...func(*models.Post)) (*models.Post, error) {
	post := f.BuildPost(user, category, overrides...)
	if err := f.db.Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// CreateLike persists a like from user on post.
func (f *Factory) CreateLike(user *models.User, post *models.Post) error {
	return f.db.Create(&models.Like{UserID: user.ID, PostID: post.ID}).Error
}

// CreateDirectChat persists a two-party chat between a and b.
func (f *Factory) CreateDirectChat(a, b *models.User) (*models.Chat, error) {
	partner := b.ID
	chat := &models.Chat{
		UserID:          a.ID,
		PartnerID:       &partner,
		ConversationKey: models.DirectChatKey(a.ID, b.ID),
	}
	if err := f.db.Create(chat).Error; err != nil {
		return nil, err
	}
	return chat, nil
}

// CreateMessage persists a sample message in chat from sender to receiver.
func (f *Factory) CreateMessage(chat *models.Chat, sender, receiver *models.User, overrides ...func(*models.Message)) (*models.Message, error) {
	senderID, receiverID := sender.ID, receiver.ID
	msg := &models.Message{
		ChatID:     chat.ID,
		SenderID:   &senderID,
		ReceiverID: &receiverID,
		Content:    gofakeit.Sentence(8),
	}

	for _, override := range overrides {
		override(msg)
	}

	if err := f.db.Create(msg).Error; err != nil {
		return nil, err
	}
	return msg, nil
}
