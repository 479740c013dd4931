package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

// ErrGoogleUnavailable is returned when no verifier is configured.
var ErrGoogleUnavailable = errors.New("google sign-in is not configured")

var googleIssuers = map[string]bool{
	"accounts.google.com":         true,
	"https://accounts.google.com": true,
}

// GoogleIdentity is the verified profile carried by a Google ID token.
type GoogleIdentity struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// GoogleVerifier checks Google ID tokens.
type GoogleVerifier interface {
	Verify(ctx context.Context, idToken string) (*GoogleIdentity, error)
}

type googleClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	jwt.RegisteredClaims
}

// JWKSGoogleVerifier validates ID tokens against Google's published signing
// keys, refreshed in the background.
type JWKSGoogleVerifier struct {
	clientID string
	keyfunc  jwt.Keyfunc
	jwks     *keyfunc.JWKS
}

// NewGoogleVerifier fetches the key set at jwksURL. Call Close to stop the
// background refresh.
func NewGoogleVerifier(ctx context.Context, jwksURL, clientID string) (*JWKSGoogleVerifier, error) {
	if clientID == "" {
		return nil, ErrGoogleUnavailable
	}

	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			slog.Warn("google jwks refresh failed", "error", err)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("fetch google jwks: %w", err)
	}

	v := newGoogleVerifier(clientID, jwks.Keyfunc)
	v.jwks = jwks
	return v, nil
}

func newGoogleVerifier(clientID string, kf jwt.Keyfunc) *JWKSGoogleVerifier {
	return &JWKSGoogleVerifier{clientID: clientID, keyfunc: kf}
}

// Verify parses idToken and checks signature, audience, issuer, expiry and
// that the email address is verified.
func (v *JWKSGoogleVerifier) Verify(_ context.Context, idToken string) (*GoogleIdentity, error) {
	var claims googleClaims
	token, err := jwt.ParseWithClaims(idToken, &claims, v.keyfunc,
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithAudience(v.clientID),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if !googleIssuers[claims.Issuer] {
		return nil, ErrInvalidToken
	}
	if claims.Email == "" || !claims.EmailVerified {
		return nil, ErrInvalidToken
	}

	return &GoogleIdentity{
		Subject: claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Picture: claims.Picture,
	}, nil
}

// Close stops the background key refresh.
func (v *JWKSGoogleVerifier) Close() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}
