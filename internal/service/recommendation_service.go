package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"snapgram/internal/featureflags"
	"snapgram/internal/models"
	"snapgram/internal/observability"
	"snapgram/internal/repository"
)

const (
	// minLikesForPersonalization is the like count below which the user's
	// history is treated as no signal.
	minLikesForPersonalization = 3
	fallbackRecommendations    = 10
	personalRecommendations    = 20
)

// Recommender asks the model to pick one category.
type Recommender interface {
	Recommend(ctx context.Context, prompt string) (string, error)
}

// RecommendationService builds the personalized feed. It is best-effort:
// every failure degrades to the latest public posts.
type RecommendationService struct {
	postRepo     repository.PostRepository
	categoryRepo repository.CategoryRepository
	model        Recommender
	flags        *featureflags.Manager
}

func NewRecommendationService(
	postRepo repository.PostRepository,
	categoryRepo repository.CategoryRepository,
	model Recommender,
	flags *featureflags.Manager,
) *RecommendationService {
	return &RecommendationService{
		postRepo:     postRepo,
		categoryRepo: categoryRepo,
		model:        model,
		flags:        flags,
	}
}

type categoryCount struct {
	Name  string
	Count int
}

// Recommend returns posts for userID. The error is non-nil only when even
// the fallback query fails.
func (s *RecommendationService) Recommend(ctx context.Context, userID uint) ([]models.Post, error) {
	posts, path, err := s.personalized(ctx, userID)
	if err != nil {
		slog.WarnContext(ctx, "recommendation fell back", "user_id", userID, "err", err)
	}
	if path == "" {
		observability.RecommendationPaths.WithLabelValues("fallback").Inc()
		return s.postRepo.ListPublic(ctx, fallbackRecommendations, 0)
	}
	observability.RecommendationPaths.WithLabelValues(path).Inc()
	return posts, nil
}

// personalized returns an empty path when the generic fallback applies.
func (s *RecommendationService) personalized(ctx context.Context, userID uint) ([]models.Post, string, error) {
	liked, err := s.postRepo.LikedCategories(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	if len(liked) < minLikesForPersonalization {
		return nil, "", nil
	}

	tally := tallyCategories(liked)
	if len(tally) == 0 {
		return nil, "", nil
	}

	categories, err := s.categoryRepo.List(ctx)
	if err != nil {
		return nil, "", err
	}
	ids := make(map[string]uint, len(categories))
	vocabulary := make([]string, 0, len(categories))
	for _, c := range categories {
		ids[c.Name] = c.ID
		vocabulary = append(vocabulary, c.Name)
	}

	chosen, path := tally[0].Name, "top_category"
	if s.model != nil && s.flags.AIRecommendationsEnabled(userID) {
		answer, err := s.model.Recommend(ctx, buildRecommendationPrompt(tally, vocabulary))
		if err != nil {
			return nil, "", fmt.Errorf("model: %w", err)
		}
		if name := normalizeAnswer(answer); name != "" {
			if _, ok := ids[name]; ok {
				chosen, path = name, "model"
			}
		}
	}

	categoryID, ok := ids[chosen]
	if !ok {
		return nil, "", fmt.Errorf("category %q is not in the vocabulary", chosen)
	}
	posts, err := s.postRepo.ListByCategory(ctx, categoryID, userID, personalRecommendations)
	if err != nil {
		return nil, "", err
	}
	return posts, path, nil
}

// tallyCategories counts likes per named category, most liked first; ties
// are ordered by name.
func tallyCategories(liked []models.LikedCategory) []categoryCount {
	counts := make(map[string]int)
	for _, l := range liked {
		if l.CategoryName == "" {
			continue
		}
		counts[l.CategoryName]++
	}

	out := make([]categoryCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, categoryCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func buildRecommendationPrompt(tally []categoryCount, vocabulary []string) string {
	pairs := make([]string, 0, len(tally))
	for _, c := range tally {
		pairs = append(pairs, fmt.Sprintf("%s:%d", c.Name, c.Count))
	}
	return fmt.Sprintf(
		"You recommend content on a photo sharing app. The user liked posts in these categories (category:count): %s. "+
			"Choose exactly one category from this list: %s. Answer with the category name only.",
		strings.Join(pairs, ", "),
		strings.Join(vocabulary, ", "),
	)
}

// normalizeAnswer trims whitespace and surrounding quotes or backticks.
// Casing is left alone; the answer must match the vocabulary exactly.
func normalizeAnswer(answer string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(answer), "\"'`"))
}
