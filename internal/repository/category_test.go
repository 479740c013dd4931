package repository

import (
	"context"
	"testing"

	"snapgram/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCategoryRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.EnsureNames(ctx, []string{"Travel", "Food", "Art"}))
	require.NoError(t, repo.EnsureNames(ctx, []string{"Food", "Nature"}))
	require.NoError(t, repo.EnsureNames(ctx, nil))

	categories, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 4)
	assert.Equal(t, "Art", categories[0].Name)
	assert.Equal(t, "Travel", categories[3].Name)

	food, err := repo.GetByName(ctx, "Food")
	require.NoError(t, err)

	byID, err := repo.GetByID(ctx, food.ID)
	require.NoError(t, err)
	assert.Equal(t, "Food", byID.Name)

	_, err = repo.GetByName(ctx, "Missing")
	assert.True(t, models.IsCode(err, models.CodeNotFound))
	_, err = repo.GetByID(ctx, 999)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}
