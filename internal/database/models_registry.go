package database

import "snapgram/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM
// models, in dependency order.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Category{},
		&models.Post{},
		&models.Image{},
		&models.Like{},
		&models.Chat{},
		&models.Message{},
	}
}
