package repository

import (
	"context"
	"errors"

	"snapgram/internal/cache"
	"snapgram/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostRepository defines the interface for post and like data operations.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	ListPublic(ctx context.Context, limit, offset int) ([]models.Post, error)
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Post, error)
	ListByCategory(ctx context.Context, categoryID, excludeUserID uint, limit int) ([]models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
	Like(ctx context.Context, userID, postID uint) (bool, error)
	Unlike(ctx context.Context, userID, postID uint) (bool, error)
	IsLiked(ctx context.Context, userID, postID uint) (bool, error)
	LikedCategories(ctx context.Context, userID uint) ([]models.LikedCategory, error)
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// withDetails preloads what every post listing shows: author summary,
// images, category and likes.
func withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("User", summary).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("images.id ASC") }).
		Preload("Category").
		Preload("Likes")
}

// Create inserts the post together with its images in one transaction.
func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidatePublicFeed(ctx)
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := withDetails(r.db.WithContext(ctx)).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

// ListPublic returns non-private posts, newest first. Pages are cached
// briefly because the feed is the anonymous landing page.
func (r *postRepository) ListPublic(ctx context.Context, limit, offset int) ([]models.Post, error) {
	limit = clampLimit(limit, 50, 100)
	if offset < 0 {
		offset = 0
	}

	posts := []models.Post{}
	err := cache.Aside(ctx, cache.PublicFeedKey(limit, offset), &posts, cache.PublicFeedTTL, func() error {
		return withDetails(readDB(r.db).WithContext(ctx)).
			Where("is_private = ?", false).
			Order("created_at DESC, id DESC").
			Limit(limit).
			Offset(offset).
			Find(&posts).Error
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Post, error) {
	limit = clampLimit(limit, 50, 100)
	posts := []models.Post{}
	err := withDetails(readDB(r.db).WithContext(ctx)).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// ListByCategory returns public posts in the category written by anyone but
// excludeUserID, newest first.
func (r *postRepository) ListByCategory(ctx context.Context, categoryID, excludeUserID uint, limit int) ([]models.Post, error) {
	posts := []models.Post{}
	err := withDetails(readDB(r.db).WithContext(ctx)).
		Where("is_private = ? AND category_id = ? AND user_id <> ?", false, categoryID, excludeUserID).
		Order("created_at DESC, id DESC").
		Limit(clampLimit(limit, 20, 100)).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// Update writes the editable columns of post.
func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	err := r.db.WithContext(ctx).
		Model(post).
		Select("content", "is_private", "category_id", "updated_at").
		Omit(clause.Associations).
		Updates(post).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidatePublicFeed(ctx)
	return nil
}

// Delete removes the post with its likes and images.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Image{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Post", id)
		}
		return models.NewInternalError(err)
	}
	cache.InvalidatePublicFeed(ctx)
	return nil
}

// Like records the like and reports whether a new row was written. An
// existing like is left untouched.
func (r *postRepository) Like(ctx context.Context, userID, postID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Like{UserID: userID, PostID: postID})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	if res.RowsAffected > 0 {
		cache.InvalidatePublicFeed(ctx)
	}
	return res.RowsAffected > 0, nil
}

// Unlike deletes the like and reports whether one existed.
func (r *postRepository) Unlike(ctx context.Context, userID, postID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.Like{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	if res.RowsAffected > 0 {
		cache.InvalidatePublicFeed(ctx)
	}
	return res.RowsAffected > 0, nil
}

func (r *postRepository) IsLiked(ctx context.Context, userID, postID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// LikedCategories resolves every like of userID to the liked post's
// category. Posts without a category yield an empty CategoryName.
func (r *postRepository) LikedCategories(ctx context.Context, userID uint) ([]models.LikedCategory, error) {
	var rows []models.LikedCategory
	err := readDB(r.db).WithContext(ctx).
		Table("likes").
		Select("likes.post_id AS post_id, posts.category_id AS category_id, COALESCE(categories.name, '') AS category_name").
		Joins("JOIN posts ON posts.id = likes.post_id").
		Joins("LEFT JOIN categories ON categories.id = posts.category_id").
		Where("likes.user_id = ?", userID).
		Order("likes.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}
