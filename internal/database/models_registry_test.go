package database

import (
	"testing"

	"snapgram/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestPersistentModels_CoversDomain(t *testing.T) {
	var haveChat, haveMessage, haveLike bool
	for _, model := range PersistentModels() {
		switch model.(type) {
		case *models.Chat:
			haveChat = true
		case *models.Message:
			haveMessage = true
		case *models.Like:
			haveLike = true
		}
	}
	assert.True(t, haveChat && haveMessage && haveLike)
}

func TestMigrate_CreatesUniqueIndexes(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	m := db.Migrator()
	assert.True(t, m.HasTable(&models.Chat{}))
	assert.True(t, m.HasIndex(&models.Like{}, "idx_likes_user_post"))
	assert.True(t, m.HasIndex(&models.Chat{}, "ConversationKey"))
	assert.True(t, m.HasIndex(&models.User{}, "Email"))
}
