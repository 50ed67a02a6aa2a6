package auth

import (
	"context"
	"errors"
)

type contextKey string

const identityKey contextKey = "identity"

var ErrNoIdentity = errors.New("identity not found")

// Identity is the caller as asserted by the identity provider.
type Identity struct {
	UserID       string
	Email        string
	UserMetadata map[string]any
}

// ContextWithIdentity adds the verified identity to the context
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext extracts the verified identity from the context
func IdentityFromContext(ctx context.Context) (*Identity, error) {
	id, ok := ctx.Value(identityKey).(*Identity)
	if !ok || id == nil {
		return nil, ErrNoIdentity
	}
	return id, nil
}

// DisplayName picks user_metadata.name, then full_name. It returns "" when
// neither is set.
func (i *Identity) DisplayName() string {
	for _, k := range []string{"name", "full_name"} {
		if v, ok := i.UserMetadata[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// AvatarURL returns user_metadata.avatar_url or nil.
func (i *Identity) AvatarURL() *string {
	if v, ok := i.UserMetadata["avatar_url"].(string); ok && v != "" {
		return &v
	}
	return nil
}
