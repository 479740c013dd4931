// Package service provides application business logic (users, posts, chats,
// recommendations).
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"snapgram/internal/auth"
	"snapgram/internal/models"
	"snapgram/internal/repository"
	"snapgram/internal/validation"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const maxUsernameLen = 50

// TokenIssuer mints bearer tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID uint, username string) (string, error)
}

type UserService struct {
	userRepo repository.UserRepository
	tokens   TokenIssuer
	google   auth.GoogleVerifier
	hashCost int
}

// RegisterInput is the body of POST /api/users/register.
type RegisterInput struct {
	Username string `json:"username" validate:"required,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// NewUserService wires the user flows. google may be nil, in which case
// Google sign-in is rejected as unauthorized.
func NewUserService(userRepo repository.UserRepository, tokens TokenIssuer, google auth.GoogleVerifier) *UserService {
	return &UserService{
		userRepo: userRepo,
		tokens:   tokens,
		google:   google,
		hashCost: bcrypt.DefaultCost,
	}
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username: in.Username,
		Email:    in.Email,
		Password: string(hash),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login checks credentials and returns a bearer token. Unknown emails and
// wrong passwords fail the same way.
func (s *UserService) Login(ctx context.Context, email, password string) (string, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return "", models.NewBadRequestError("Email and password are required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if user == nil || user.Password == "" {
		return "", models.NewInvalidLoginError()
	}
	if cmpErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); cmpErr != nil {
		return "", models.NewInvalidLoginError()
	}

	return s.issue(user)
}

// GoogleLogin verifies a Google ID token and signs the account in. The
// account is matched by Google subject, then by email (linking the
// subject); otherwise a new account is created.
func (s *UserService) GoogleLogin(ctx context.Context, idToken string) (string, error) {
	idToken = strings.TrimSpace(idToken)
	if idToken == "" {
		return "", models.NewBadRequestError("Google token is required")
	}
	if s.google == nil {
		return "", models.NewUnauthorizedError("Google sign-in is not available")
	}

	identity, err := s.google.Verify(ctx, idToken)
	if err != nil {
		if !errors.Is(err, auth.ErrGoogleUnavailable) {
			slog.WarnContext(ctx, "google token rejected", "err", err)
		}
		return "", models.NewUnauthorizedError("Invalid Google token")
	}

	user, err := s.findOrCreateGoogleUser(ctx, identity)
	if err != nil {
		return "", err
	}
	return s.issue(user)
}

func (s *UserService) findOrCreateGoogleUser(ctx context.Context, id *auth.GoogleIdentity) (*models.User, error) {
	user, err := s.userRepo.GetByGoogleSubject(ctx, id.Subject)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	email := normalizeEmail(id.Email)
	user, err = s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user != nil {
		subject := id.Subject
		user.GoogleSubject = &subject
		if user.ProfilePic == "" {
			user.ProfilePic = id.Picture
		}
		if err := s.userRepo.Update(ctx, user); err != nil {
			return nil, err
		}
		return user, nil
	}

	// Google accounts get a random password nobody knows.
	hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), s.hashCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	subject := id.Subject
	user = &models.User{
		Username:      googleUsername(id.Name, email),
		Email:         email,
		Password:      string(hash),
		ProfilePic:    id.Picture,
		GoogleSubject: &subject,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Me returns the authenticated user's profile.
func (s *UserService) Me(ctx context.Context, userID uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

func (s *UserService) issue(user *models.User) (string, error) {
	token, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return token, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// googleUsername prefers the profile name and falls back to the email's
// local part.
func googleUsername(name, email string) string {
	username := strings.TrimSpace(name)
	if username == "" {
		username, _, _ = strings.Cut(email, "@")
	}
	if username == "" {
		username = "user"
	}
	if r := []rune(username); len(r) > maxUsernameLen {
		username = string(r[:maxUsernameLen])
	}
	return username
}
