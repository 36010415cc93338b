package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidSession covers every way a presented token can be unusable:
// bad signature, malformed payload, wrong algorithm, or expiry.
var ErrInvalidSession = errors.New("invalid or expired session")

// Identity is an authenticated principal as produced by the authenticator.
type Identity struct {
	ID    string
	Name  string
	Email string
	Role  string
}

// Claims is the session claim set embedded in issued tokens.
type Claims struct {
	jwt.RegisteredClaims
	Name string `json:"name"`
	Role string `json:"role"`
}

// TokenService issues and verifies stateless HMAC-signed session tokens.
// The signing key is loaded once at startup and never leaves this struct.
type TokenService struct {
	signingKey []byte
	ttl        time.Duration
	issuer     string
}

func NewTokenService(signingKey []byte, ttl time.Duration, issuer string) *TokenService {
	return &TokenService{signingKey: signingKey, ttl: ttl, issuer: issuer}
}

// TTL returns the configured token lifetime.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// Issue converts an authenticated identity into a signed token carrying the
// role claim. Tokens are self-contained; nothing is stored server-side.
func (s *TokenService) Issue(id Identity) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   id.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Name: id.Name,
		Role: id.Role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
}

// Verify re-derives the session claims from a presented token without any
// store access. Expired, malformed, unsigned, or foreign-key tokens all
// fail with ErrInvalidSession.
func (s *TokenService) Verify(raw string) (*Claims, error) {
	claims := &Claims{}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return s.signingKey, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, ErrInvalidSession
	}
	return claims, nil
}
