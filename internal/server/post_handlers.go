package server

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"snapgram/internal/models"
	"snapgram/internal/service"

	"github.com/gofiber/fiber/v2"
)

// PostResponse wraps a post with a status message.
type PostResponse struct {
	Message string       `json:"message"`
	Post    *models.Post `json:"post"`
}

// MessageResponse is a bare status message.
type MessageResponse struct {
	Message string `json:"message"`
}

// UpdatePostRequest is the body of PUT /api/posts/:id. Omitted fields are
// left unchanged.
type UpdatePostRequest struct {
	Content    *string `json:"content"`
	IsPrivate  *bool   `json:"is_private"`
	CategoryID *uint   `json:"category_id"`
}

// UnmarshalJSON also accepts isPrivate and categoryId. The snake_case name
// wins when both are present.
func (r *UpdatePostRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		Content         *string `json:"content"`
		IsPrivate       *bool   `json:"is_private"`
		IsPrivateCamel  *bool   `json:"isPrivate"`
		CategoryID      *uint   `json:"category_id"`
		CategoryIDCamel *uint   `json:"categoryId"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Content = raw.Content
	r.IsPrivate = firstSet(raw.IsPrivate, raw.IsPrivateCamel)
	r.CategoryID = firstSet(raw.CategoryID, raw.CategoryIDCamel)
	return nil
}

func firstSet[T any](vals ...*T) *T {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

// CreatePost handles POST /api/posts
// @Summary Create post
// @Description Create a post with 1 to 5 images (multipart field "images")
// @Tags posts
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param content formData string true "Caption"
// @Param is_private formData boolean false "Hide from the public feed"
// @Param category_id formData integer false "Category"
// @Param images formData file true "Images"
// @Success 201 {object} PostResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	categoryID, err := optionalUint(formValue(c, "category_id", "categoryId"))
	if err != nil {
		return models.RespondWithError(c, models.NewBadRequestError("Invalid category ID"))
	}
	isPrivate, _ := strconv.ParseBool(formValue(c, "is_private", "isPrivate"))

	var images []service.UploadFile
	if form, formErr := c.MultipartForm(); formErr == nil {
		images, err = readUploads(form.File["images"])
		if err != nil {
			return models.RespondWithError(c, models.NewBadRequestError("Invalid image file"))
		}
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		UserID:     currentUserID(c),
		Content:    c.FormValue("content"),
		IsPrivate:  isPrivate,
		CategoryID: categoryID,
		Images:     images,
	})
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(PostResponse{
		Message: "Post created successfully",
		Post:    post,
	})
}

// formValue returns the first non-empty form field among names.
func formValue(c *fiber.Ctx, names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(c.FormValue(name)); v != "" {
			return v
		}
	}
	return ""
}

func optionalUint(raw string) (*uint, error) {
	if raw == "" || raw == "null" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || v == 0 {
		return nil, fmt.Errorf("invalid id %q", raw)
	}
	id := uint(v)
	return &id, nil
}

func readUploads(headers []*multipart.FileHeader) ([]service.UploadFile, error) {
	out := make([]service.UploadFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, err
		}
		out = append(out, service.UploadFile{Filename: fh.Filename, Data: data})
	}
	return out, nil
}

// GetPosts handles GET /api/posts
// @Summary List public posts
// @Description Newest first, with author, images, category and likes
// @Tags posts
// @Produce json
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Post
// @Router /posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	page := parsePagination(c, defaultPaginationLimit)
	posts, err := s.postService.ListPublic(c.UserContext(), page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(posts)
}

// GetMyPosts handles GET /api/posts/me
// @Summary List my posts
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Post
// @Failure 401 {object} models.ErrorResponse
// @Router /posts/me [get]
func (s *Server) GetMyPosts(c *fiber.Ctx) error {
	page := parsePagination(c, defaultPaginationLimit)
	posts, err := s.postService.ListMine(c.UserContext(), currentUserID(c), page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(posts)
}

// UpdatePost handles PUT /api/posts/:id
// @Summary Update post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body UpdatePostRequest true "Changes"
// @Success 200 {object} PostResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [put]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req UpdatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	post, err := s.postService.UpdatePost(c.UserContext(), service.UpdatePostInput{
		UserID:     currentUserID(c),
		PostID:     postID,
		Content:    req.Content,
		IsPrivate:  req.IsPrivate,
		CategoryID: req.CategoryID,
	})
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(PostResponse{Message: "Post updated successfully", Post: post})
}

// DeletePost handles DELETE /api/posts/:id
// @Summary Delete post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} MessageResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.postService.DeletePost(c.UserContext(), currentUserID(c), postID); err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(MessageResponse{Message: "Post deleted successfully"})
}

// ToggleLike handles POST /api/posts/:id/like
// @Summary Like or unlike a post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/like [post]
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	liked, err := s.postService.ToggleLike(c.UserContext(), currentUserID(c), postID)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	if liked {
		return c.JSON(MessageResponse{Message: "Post liked"})
	}
	return c.JSON(MessageResponse{Message: "Post unliked"})
}

// GetCategories handles GET /api/categories
// @Summary List categories
// @Tags posts
// @Produce json
// @Success 200 {array} models.Category
// @Router /categories [get]
func (s *Server) GetCategories(c *fiber.Ctx) error {
	categories, err := s.postService.Categories(c.UserContext())
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(categories)
}
