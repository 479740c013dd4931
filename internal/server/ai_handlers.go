package server

import (
	"snapgram/internal/models"

	"github.com/gofiber/fiber/v2"
)

// RecommendationsResponse is the body of GET /api/ai/recommendations.
type RecommendationsResponse struct {
	Message string        `json:"message"`
	Count   int           `json:"count"`
	Data    []models.Post `json:"data"`
}

// GetRecommendations handles GET /api/ai/recommendations
// @Summary Personalized posts
// @Description Posts from the category the caller likes most, or the latest public posts when there is not enough history
// @Tags ai
// @Produce json
// @Security BearerAuth
// @Success 200 {object} RecommendationsResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /ai/recommendations [get]
func (s *Server) GetRecommendations(c *fiber.Ctx) error {
	posts, err := s.recommendationService.Recommend(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondWithError(c, err)
	}
	if posts == nil {
		posts = []models.Post{}
	}
	return c.JSON(RecommendationsResponse{
		Message: "Rekomendasi berhasil dibuat",
		Count:   len(posts),
		Data:    posts,
	})
}
