package seed

import (
	"context"
	"fmt"
	"log"

	"snapgram/internal/models"
	"snapgram/internal/repository"

	"gorm.io/gorm"
)

// DefaultCategories is the built-in category vocabulary.
var DefaultCategories = []string{"Travel", "Food", "Fashion", "Technology", "Lifestyle"}

// Options configuration for the demo seeder
type Options struct {
	NumUsers        int
	NumPosts        int
	NumChats        int
	MessagesPerChat int

	// LikeRatio is the chance that a given user likes a given post.
	LikeRatio float64
	MaxDays   int

	ShouldClean bool
	// FastHash hashes the demo password with bcrypt.MinCost.
	FastHash   bool
	RandomSeed int64
}

// DefaultOptions returns a small but varied data set.
func DefaultOptions() Options {
	return Options{
		NumUsers:        20,
		NumPosts:        60,
		NumChats:        10,
		MessagesPerChat: 6,
		LikeRatio:       0.2,
		MaxDays:         90,
	}
}

// Summary counts the rows Demo created.
type Summary struct {
	Users    int
	Posts    int
	Likes    int
	Chats    int
	Messages int
}

// Categories idempotently inserts DefaultCategories.
func Categories(ctx context.Context, db *gorm.DB) error {
	return repository.NewCategoryRepository(db).EnsureNames(ctx, DefaultCategories)
}

// Demo populates the database with users, posts, likes and direct chats.
func Demo(ctx context.Context, db *gorm.DB, opts Options) (Summary, error) {
	var sum Summary
	log.Printf("🌱 Starting demo seeding with %d users and %d posts...", opts.NumUsers, opts.NumPosts)

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			log.Printf("⚠️  Warning: could not clear existing data: %v", err)
		}
	}

	if err := Categories(ctx, db); err != nil {
		return sum, fmt.Errorf("failed to seed categories: %w", err)
	}
	var categories []models.Category
	if err := db.WithContext(ctx).Order("id ASC").Find(&categories).Error; err != nil {
		return sum, fmt.Errorf("failed to load categories: %w", err)
	}

	f := NewFactory(db.WithContext(ctx), opts)

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		u, err := f.CreateUser()
		if err != nil {
			return sum, fmt.Errorf("failed to create user: %w", err)
		}
		users = append(users, u)
	}
	sum.Users = len(users)
	log.Printf("✓ %d users created", sum.Users)
	if len(users) == 0 {
		return sum, nil
	}

	posts := make([]*models.Post, 0, opts.NumPosts)
	for i := 0; i < opts.NumPosts; i++ {
		author := users[f.rng.Intn(len(users))]
		var category *models.Category
		// roughly one post in six stays uncategorized
		if len(categories) > 0 && f.rng.Intn(6) != 0 {
			category = &categories[f.rng.Intn(len(categories))]
		}
		p, err := f.CreatePost(author, category)
		if err != nil {
			return sum, fmt.Errorf("failed to create post: %w", err)
		}
		posts = append(posts, p)
	}
	sum.Posts = len(posts)
	log.Printf("✓ %d posts created", sum.Posts)

	for _, u := range users {
		for _, p := range posts {
			if p.UserID == u.ID || f.rng.Float64() >= opts.LikeRatio {
				continue
			}
			if err := f.CreateLike(u, p); err != nil {
				return sum, fmt.Errorf("failed to create like: %w", err)
			}
			sum.Likes++
		}
	}
	log.Printf("✓ %d likes created", sum.Likes)

	seen := make(map[string]bool)
	for i := 0; i < opts.NumChats && len(users) > 1; i++ {
		a := users[f.rng.Intn(len(users))]
		b := users[f.rng.Intn(len(users))]
		key := models.DirectChatKey(a.ID, b.ID)
		if a.ID == b.ID || seen[key] {
			continue
		}
		seen[key] = true

		chat, err := f.CreateDirectChat(a, b)
		if err != nil {
			return sum, fmt.Errorf("failed to create chat: %w", err)
		}
		sum.Chats++

		for m := 0; m < opts.MessagesPerChat; m++ {
			sender, receiver := a, b
			if m%2 == 1 {
				sender, receiver = b, a
			}
			if _, err := f.CreateMessage(chat, sender, receiver); err != nil {
				return sum, fmt.Errorf("failed to create message: %w", err)
			}
			sum.Messages++
		}
	}
	log.Printf("✓ %d chats with %d messages created", sum.Chats, sum.Messages)

	log.Println("🎉 Demo seeding completed successfully!")
	return sum, nil
}

func clearData(db *gorm.DB) error {
	log.Println("🗑️  Clearing existing data...")
	if db.Dialector.Name() == "postgres" {
		return db.Exec(`TRUNCATE TABLE messages, chats, likes, images, posts, users RESTART IDENTITY CASCADE;`).Error
	}
	for _, table := range []string{"messages", "chats", "likes", "images", "posts", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return err
		}
	}
	return nil
}
