// Command main runs the database seeder for Snapgram.
package main

import (
	"context"
	"flag"
	"log"

	"snapgram/internal/config"
	"snapgram/internal/database"
	"snapgram/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()
	numUsers := flag.Int("users", defaults.NumUsers, "Number of users to create")
	numPosts := flag.Int("posts", defaults.NumPosts, "Number of posts to create")
	numChats := flag.Int("chats", defaults.NumChats, "Number of direct chats to create")
	messages := flag.Int("messages", defaults.MessagesPerChat, "Messages per chat")
	likeRatio := flag.Float64("like-ratio", defaults.LikeRatio, "Chance that a user likes a given post")
	shouldClean := flag.Bool("clean", false, "Clean database before seeding")
	categoriesOnly := flag.Bool("categories-only", false, "Only seed the built-in categories")
	fast := flag.Bool("fast", false, "Hash the demo password with the minimum bcrypt cost")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	if *categoriesOnly {
		if err := seed.Categories(ctx, db); err != nil {
			log.Fatalf("❌ Category seeding failed: %v", err)
		}
		log.Println("✨ Categories seeded.")
		return
	}

	log.Printf("Target: %d users, %d posts, %d chats, clean=%v\n", *numUsers, *numPosts, *numChats, *shouldClean)
	sum, err := seed.Demo(ctx, db, seed.Options{
		NumUsers:        *numUsers,
		NumPosts:        *numPosts,
		NumChats:        *numChats,
		MessagesPerChat: *messages,
		LikeRatio:       *likeRatio,
		MaxDays:         defaults.MaxDays,
		ShouldClean:     *shouldClean,
		FastHash:        *fast,
	})
	if err != nil {
		log.Fatalf("❌ Demo seeding failed: %v", err)
	}

	log.Printf("✨ All done! %d users, %d posts, %d likes, %d chats, %d messages.",
		sum.Users, sum.Posts, sum.Likes, sum.Chats, sum.Messages)
	log.Printf("📧 All demo users have the password: %s", seed.DemoPassword)
}
