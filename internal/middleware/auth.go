// Package middleware provides the HTTP middleware chain: authentication, rate
// limiting, tracing, metrics and request logging.
package middleware

import (
	"context"
	"strings"

	"snapgram/internal/models"

	"github.com/gofiber/fiber/v2"
)

// TokenParser resolves a bearer token to the user ID it was issued for.
type TokenParser interface {
	Parse(token string) (uint, error)
}

// UserResolver loads the user a token refers to. A NOT_FOUND AppError means
// the account no longer exists.
type UserResolver interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
}

// AuthRequired enforces a valid "Authorization: Bearer <token>" header whose
// user still exists. The user ID is stored in c.Locals("userID").
func AuthRequired(tokens TokenParser, users UserResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return authenticate(c, tokens, users, bearerToken(c))
	}
}

// WebSocketAuthRequired is AuthRequired that also accepts the token as a
// "token" query parameter, since browsers cannot set headers on upgrades.
func WebSocketAuthRequired(tokens TokenParser, users UserResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Query("token")
		if raw == "" {
			raw = bearerToken(c)
		}
		return authenticate(c, tokens, users, raw)
	}
}

func bearerToken(c *fiber.Ctx) string {
	parts := strings.Fields(c.Get(fiber.HeaderAuthorization))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

func authenticate(c *fiber.Ctx, tokens TokenParser, users UserResolver, raw string) error {
	if raw == "" {
		return models.RespondWithError(c, models.NewUnauthorizedError("Please login first"))
	}

	userID, err := tokens.Parse(raw)
	if err != nil {
		return models.RespondWithError(c, models.NewUnauthorizedError("Please login first"))
	}

	ctx := c.UserContext()
	if _, err := users.GetByID(ctx, userID); err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return models.RespondWithError(c, models.NewUnauthorizedError("User not found"))
		}
		Logger.ErrorContext(ctx, "resolve authenticated user", "user_id", userID, "error", err)
		return models.RespondWithError(c, models.NewInternalError(err))
	}

	c.Locals("userID", userID)
	c.SetUserContext(WithUserID(ctx, userID))
	return c.Next()
}
