package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"snapgram/internal/media"
	"snapgram/internal/models"
	"snapgram/internal/repository"

	"golang.org/x/sync/errgroup"
)

const (
	MaxImagesPerPost  = 5
	uploadConcurrency = 3
)

// UploadFile is one image part of a post creation request.
type UploadFile struct {
	Filename string
	Data     []byte
}

type CreatePostInput struct {
	UserID     uint
	Content    string
	IsPrivate  bool
	CategoryID *uint
	Images     []UploadFile
}

// UpdatePostInput carries the fields a client chose to change; nil means
// unchanged.
type UpdatePostInput struct {
	UserID     uint
	PostID     uint
	Content    *string
	IsPrivate  *bool
	CategoryID *uint
}

type PostService struct {
	postRepo       repository.PostRepository
	categoryRepo   repository.CategoryRepository
	uploader       media.Uploader
	maxUploadBytes int64
}

func NewPostService(
	postRepo repository.PostRepository,
	categoryRepo repository.CategoryRepository,
	uploader media.Uploader,
	maxUploadBytes int64,
) *PostService {
	if uploader == nil {
		uploader = media.Unconfigured
	}
	return &PostService{
		postRepo:       postRepo,
		categoryRepo:   categoryRepo,
		uploader:       uploader,
		maxUploadBytes: maxUploadBytes,
	}
}

// CreatePost validates the request, normalizes and uploads every image, and
// only then writes the post with its images.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if len(in.Images) == 0 {
		return nil, models.NewBadRequestError("At least one image is required to create a post.")
	}
	if len(in.Images) > MaxImagesPerPost {
		return nil, models.NewBadRequestError(fmt.Sprintf("A post can have at most %d images.", MaxImagesPerPost))
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if err := s.checkCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	urls, err := s.uploadAll(ctx, in.Images)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		Content:    content,
		IsPrivate:  in.IsPrivate,
		UserID:     in.UserID,
		CategoryID: in.CategoryID,
		Images:     make([]models.Image, 0, len(urls)),
	}
	for _, url := range urls {
		post.Images = append(post.Images, models.Image{URL: url})
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, post.ID)
}

// uploadAll returns the hosted URLs in the same order as files.
func (s *PostService) uploadAll(ctx context.Context, files []UploadFile) ([]string, error) {
	normalized := make([]*media.Normalized, len(files))
	for i, f := range files {
		n, err := media.Normalize(f.Data, s.maxUploadBytes)
		if err != nil {
			return nil, err
		}
		normalized[i] = n
	}

	urls := make([]string, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)
	for i := range normalized {
		g.Go(func() error {
			url, err := s.uploader.Upload(gctx, files[i].Filename, normalized[i].Data)
			if err != nil {
				return err
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		slog.ErrorContext(ctx, "image upload failed", "err", err)
		return nil, models.NewInternalError(err)
	}
	return urls, nil
}

func (s *PostService) checkCategory(ctx context.Context, categoryID *uint) error {
	if categoryID == nil {
		return nil
	}
	_, err := s.categoryRepo.GetByID(ctx, *categoryID)
	return err
}

func (s *PostService) ListPublic(ctx context.Context, limit, offset int) ([]models.Post, error) {
	return s.postRepo.ListPublic(ctx, limit, offset)
}

// ListMine returns the caller's posts, private ones included.
func (s *PostService) ListMine(ctx context.Context, userID uint, limit, offset int) ([]models.Post, error) {
	return s.postRepo.ListByUser(ctx, userID, limit, offset)
}

func (s *PostService) Categories(ctx context.Context) ([]models.Category, error) {
	return s.categoryRepo.List(ctx)
}

func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.ownedPost(ctx, in.UserID, in.PostID)
	if err != nil {
		return nil, err
	}

	if in.Content != nil {
		content := strings.TrimSpace(*in.Content)
		if content == "" {
			return nil, models.NewValidationError("Content is required")
		}
		post.Content = content
	}
	if in.IsPrivate != nil {
		post.IsPrivate = *in.IsPrivate
	}
	if in.CategoryID != nil {
		if err := s.checkCategory(ctx, in.CategoryID); err != nil {
			return nil, err
		}
		post.CategoryID = in.CategoryID
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, post.ID)
}

func (s *PostService) DeletePost(ctx context.Context, userID, postID uint) error {
	if _, err := s.ownedPost(ctx, userID, postID); err != nil {
		return err
	}
	return s.postRepo.Delete(ctx, postID)
}

func (s *PostService) ownedPost(ctx context.Context, userID, postID uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.UserID != userID {
		return nil, models.NewForbiddenError("You are not allowed to modify this post")
	}
	return post, nil
}

// ToggleLike flips the caller's like on a post and reports whether the post
// is now liked.
func (s *PostService) ToggleLike(ctx context.Context, userID, postID uint) (bool, error) {
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return false, err
	}

	removed, err := s.postRepo.Unlike(ctx, userID, postID)
	if err != nil {
		return false, err
	}
	if removed {
		return false, nil
	}
	if _, err := s.postRepo.Like(ctx, userID, postID); err != nil {
		return false, err
	}
	return true, nil
}
