package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing authorization header")
	ErrInvalidToken = errors.New("invalid token")
)

// SupabaseClaims is the subset of a Supabase access token we rely on.
type SupabaseClaims struct {
	Email        string         `json:"email"`
	Role         string         `json:"role,omitempty"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
	jwt.RegisteredClaims
}

// SupabaseVerifier validates HS256 access tokens signed with the project's
// JWT secret.
type SupabaseVerifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewSupabaseVerifier(secret string) *SupabaseVerifier {
	return &SupabaseVerifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

// FromHeader extracts and verifies a "Bearer <token>" header value.
func (v *SupabaseVerifier) FromHeader(header string) (*Identity, error) {
	if header == "" {
		return nil, ErrMissingToken
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("%w: invalid authorization header format", ErrInvalidToken)
	}
	return v.Verify(strings.TrimSpace(token))
}

func (v *SupabaseVerifier) Verify(tokenString string) (*Identity, error) {
	claims := &SupabaseClaims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	metadata := claims.UserMetadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	return &Identity{
		UserID:       claims.Subject,
		Email:        claims.Email,
		UserMetadata: metadata,
	}, nil
}
