package seed

import (
	"context"
	"testing"

	"snapgram/internal/cache"
	"snapgram/internal/database"
	"snapgram/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	cache.SetClient(nil)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func TestCategories_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, Categories(ctx, db))
	require.NoError(t, Categories(ctx, db))

	var names []string
	require.NoError(t, db.Model(&models.Category{}).Order("name ASC").Pluck("name", &names).Error)
	assert.Equal(t, []string{"Fashion", "Food", "Lifestyle", "Technology", "Travel"}, names)
}

func TestDemo_PopulatesEveryTable(t *testing.T) {
	db := setupTestDB(t)
	opts := Options{
		NumUsers:        5,
		NumPosts:        12,
		NumChats:        4,
		MessagesPerChat: 3,
		LikeRatio:       0.5,
		MaxDays:         10,
		FastHash:        true,
		RandomSeed:      42,
	}

	sum, err := Demo(context.Background(), db, opts)
	require.NoError(t, err)
	assert.Equal(t, 5, sum.Users)
	assert.Equal(t, 12, sum.Posts)
	assert.Equal(t, sum.Chats*3, sum.Messages)

	var posts []models.Post
	require.NoError(t, db.Preload("Images").Find(&posts).Error)
	require.Len(t, posts, 12)
	for _, p := range posts {
		assert.NotEmpty(t, p.Images, "post %d has no images", p.ID)
		assert.LessOrEqual(t, len(p.Images), 3)
	}

	var likes []models.Like
	require.NoError(t, db.Find(&likes).Error)
	assert.Len(t, likes, sum.Likes)
	owners := make(map[uint]uint, len(posts))
	for _, p := range posts {
		owners[p.ID] = p.UserID
	}
	for _, l := range likes {
		assert.NotEqual(t, owners[l.PostID], l.UserID, "users never like their own posts")
	}

	var chats []models.Chat
	require.NoError(t, db.Find(&chats).Error)
	assert.Len(t, chats, sum.Chats)
	for _, c := range chats {
		require.NotNil(t, c.PartnerID)
		assert.NotEqual(t, c.UserID, *c.PartnerID)
		assert.Equal(t, models.DirectChatKey(c.UserID, *c.PartnerID), c.ConversationKey)
	}

	var user models.User
	require.NoError(t, db.First(&user).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(DemoPassword)))
}

func TestDemo_CleanRemovesPreviousRows(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	opts := Options{NumUsers: 3, NumPosts: 4, FastHash: true, RandomSeed: 7}

	_, err := Demo(ctx, db, opts)
	require.NoError(t, err)

	opts.ShouldClean = true
	_, err = Demo(ctx, db, opts)
	require.NoError(t, err)

	var users, posts int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, db.Model(&models.Post{}).Count(&posts).Error)
	assert.Equal(t, int64(3), users)
	assert.Equal(t, int64(4), posts)
}

func TestFactory_BuildPost(t *testing.T) {
	f := NewFactory(nil, Options{MaxDays: 5, RandomSeed: 1})
	user := &models.User{ID: 9}
	cat := &models.Category{ID: 3, Name: "Food"}

	p := f.BuildPost(user, cat, func(p *models.Post) { p.IsPrivate = false })
	assert.Equal(t, uint(9), p.UserID)
	require.NotNil(t, p.CategoryID)
	assert.Equal(t, uint(3), *p.CategoryID)
	assert.False(t, p.IsPrivate)
	assert.NotEmpty(t, p.Images)
	assert.Contains(t, p.Images[0].URL, "picsum.photos")

	uncategorized := f.BuildPost(user, nil)
	assert.Nil(t, uncategorized.CategoryID)
}
