package server

import (
	"context"
	"errors"
	"log/slog"

	"snapgram/internal/ai"
	"snapgram/internal/auth"
	"snapgram/internal/config"
	"snapgram/internal/media"
)

// BuildDeps creates the external collaborators described by cfg. Missing
// credentials are not an error: the affected feature degrades (fallback
// replies, rejected uploads, Google sign-in disabled). The returned func
// releases background resources.
func BuildDeps(ctx context.Context, cfg *config.Config) (Deps, func()) {
	var deps Deps
	cleanup := func() {}

	var chatGen, recommendGen ai.TextGenerator
	gemini, err := ai.NewGeminiClient(ctx, cfg.GeminiAPIKey)
	switch {
	case err == nil:
		settings := ai.DefaultBreakerSettings()
		chatGen = ai.NewBreakerGenerator("gemini_chat", gemini.Model(cfg.GeminiChatModel), settings)
		recommendGen = ai.NewBreakerGenerator("gemini_recommend", gemini.Model(cfg.GeminiRecommendModel), settings)
	case errors.Is(err, ai.ErrUnavailable):
		slog.Warn("gemini not configured; assistant will use fallbacks")
	default:
		slog.Error("gemini client init failed; assistant will use fallbacks", "error", err)
	}
	assistant := ai.NewAssistant(chatGen, recommendGen, cfg.AITimeout())
	deps.Replier = assistant
	deps.Recommender = assistant

	uploader, err := media.NewCloudinaryUploader(
		cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder,
	)
	if err != nil {
		slog.Warn("image uploads disabled", "error", err)
	} else {
		deps.Uploader = uploader
	}

	// Assign only a live verifier; a typed nil would defeat the nil check
	// in the user service.
	google, err := auth.NewGoogleVerifier(ctx, cfg.GoogleJWKSURL, cfg.GoogleClientID)
	if err != nil {
		slog.Warn("google sign-in disabled", "error", err)
	} else {
		deps.Google = google
		cleanup = google.Close
	}

	return deps, cleanup
}
