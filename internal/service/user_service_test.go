package service

import (
	"context"
	"strings"
	"testing"

	"snapgram/internal/auth"
	"snapgram/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestUserService(repo *userRepoStub, google auth.GoogleVerifier) *UserService {
	svc := NewUserService(repo, tokenStub{}, google)
	svc.hashCost = bcrypt.MinCost
	return svc
}

func TestUserService_Register(t *testing.T) {
	t.Parallel()

	t.Run("hashes the password and normalizes email", func(t *testing.T) {
		t.Parallel()
		repo := noopUserRepo()
		var saved *models.User
		repo.createFn = func(_ context.Context, u *models.User) error {
			u.ID = 9
			saved = u
			return nil
		}
		svc := newTestUserService(repo, nil)

		user, err := svc.Register(context.Background(), RegisterInput{
			Username: " ana ",
			Email:    " Ana@Example.COM ",
			Password: "secret",
		})
		require.NoError(t, err)
		assert.Equal(t, uint(9), user.ID)
		assert.Equal(t, "ana", saved.Username)
		assert.Equal(t, "ana@example.com", saved.Email)
		assert.NotEqual(t, "secret", saved.Password)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(saved.Password), []byte("secret")))
	})

	t.Run("missing fields are reported together", func(t *testing.T) {
		t.Parallel()
		repo := noopUserRepo()
		repo.createFn = func(context.Context, *models.User) error { return errUnexpectedCall }
		svc := newTestUserService(repo, nil)

		_, err := svc.Register(context.Background(), RegisterInput{Email: "bad"})
		assertAppError(t, err, models.CodeValidation)
		assert.Len(t, err.(*models.AppError).Messages, 3)
	})

	t.Run("duplicate email passes through", func(t *testing.T) {
		t.Parallel()
		repo := noopUserRepo()
		repo.createFn = func(context.Context, *models.User) error {
			return models.NewValidationError("Email is already registered")
		}
		svc := newTestUserService(repo, nil)

		_, err := svc.Register(context.Background(), RegisterInput{Username: "a", Email: "a@b.co", Password: "p"})
		assertAppError(t, err, models.CodeValidation)
	})
}

func TestUserService_Login(t *testing.T) {
	t.Parallel()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)

	repo := noopUserRepo()
	repo.getByEmailFn = func(_ context.Context, email string) (*models.User, error) {
		if email == "ana@example.com" {
			return &models.User{ID: 1, Username: "ana", Email: email, Password: string(hash)}, nil
		}
		return nil, nil
	}
	svc := newTestUserService(repo, nil)

	tests := []struct {
		name     string
		email    string
		password string
		wantCode string
	}{
		{"missing password", "ana@example.com", "", models.CodeBadRequest},
		{"missing email", "", "secret", models.CodeBadRequest},
		{"unknown email", "who@example.com", "secret", models.CodeInvalidLogin},
		{"wrong password", "ana@example.com", "nope", models.CodeInvalidLogin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tt.email, tt.password)
			assertAppError(t, err, tt.wantCode)
		})
	}

	t.Run("success", func(t *testing.T) {
		token, err := svc.Login(context.Background(), "ANA@example.com", "secret")
		require.NoError(t, err)
		assert.Equal(t, "token-for-ana", token)
	})
}

func TestUserService_GoogleLogin(t *testing.T) {
	t.Parallel()

	identity := &auth.GoogleIdentity{Subject: "g-1", Email: "Ana@Example.com", Name: "Ana Maria", Picture: "https://pic"}

	t.Run("existing linked account", func(t *testing.T) {
		t.Parallel()
		repo := noopUserRepo()
		repo.getByGoogleSubjectFn = func(_ context.Context, sub string) (*models.User, error) {
			assert.Equal(t, "g-1", sub)
			return &models.User{ID: 4, Username: "linked"}, nil
		}
		svc := newTestUserService(repo, &googleStub{identity: identity})

		token, err := svc.GoogleLogin(context.Background(), "id-token")
		require.NoError(t, err)
		assert.Equal(t, "token-for-linked", token)
	})

	t.Run("links by email", func(t *testing.T) {
		t.Parallel()
		repo := noopUserRepo()
		repo.getByEmailFn = func(_ context.Context, email string) (*models.User, error) {
			assert.Equal(t, "ana@example.com", email)
			return &models.User{ID: 5, Username: "ana"}, nil
		}
		var updated *models.User
		repo.updateFn = func(_ context.Context, u *models.User) error {
			updated = u
			return nil
		}
		svc := newTestUserService(repo, &googleStub{identity: identity})

		_, err := svc.GoogleLogin(context.Background(), "id-token")
		require.NoError(t, err)
		require.NotNil(t, updated)
		require.NotNil(t, updated.GoogleSubject)
		assert.Equal(t, "g-1", *updated.GoogleSubject)
		assert.Equal(t, "https://pic", updated.ProfilePic)
	})

	t.Run("creates a new account", func(t *testing.T) {
		t.Parallel()
		repo := noopUserRepo()
		var created *models.User
		repo.createFn = func(_ context.Context, u *models.User) error {
			u.ID = 6
			created = u
			return nil
		}
		svc := newTestUserService(repo, &googleStub{identity: identity})

		token, err := svc.GoogleLogin(context.Background(), "id-token")
		require.NoError(t, err)
		assert.Equal(t, "token-for-Ana Maria", token)
		require.NotNil(t, created)
		assert.Equal(t, "ana@example.com", created.Email)
		assert.NotEmpty(t, created.Password)
	})

	t.Run("invalid token", func(t *testing.T) {
		t.Parallel()
		svc := newTestUserService(noopUserRepo(), &googleStub{err: auth.ErrInvalidToken})
		_, err := svc.GoogleLogin(context.Background(), "id-token")
		assertAppError(t, err, models.CodeUnauthorized)
	})

	t.Run("no verifier configured", func(t *testing.T) {
		t.Parallel()
		svc := newTestUserService(noopUserRepo(), nil)
		_, err := svc.GoogleLogin(context.Background(), "id-token")
		assertAppError(t, err, models.CodeUnauthorized)
	})

	t.Run("empty token", func(t *testing.T) {
		t.Parallel()
		svc := newTestUserService(noopUserRepo(), &googleStub{identity: identity})
		_, err := svc.GoogleLogin(context.Background(), "  ")
		assertAppError(t, err, models.CodeBadRequest)
	})
}

func TestGoogleUsername(t *testing.T) {
	assert.Equal(t, "Ana", googleUsername(" Ana ", "x@y.z"))
	assert.Equal(t, "ana.m", googleUsername("", "ana.m@example.com"))
	assert.Equal(t, "user", googleUsername("", ""))
	assert.Len(t, googleUsername(strings.Repeat("a", 80), ""), maxUsernameLen)
}
