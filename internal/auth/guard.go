package auth

import (
	"context"
	"fmt"
)

// Guard resolves callers from session tokens.
type Guard struct {
	sessions SessionStore
}

// NewGuard creates a Guard over the given session store.
func NewGuard(sessions SessionStore) *Guard {
	return &Guard{sessions: sessions}
}

// ResolveCaller returns the identity owning token, or nil when the token is
// empty, unknown or expired.
func (g *Guard) ResolveCaller(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, nil
	}

	userID, ok, err := g.sessions.Resolve(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("resolving session: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &Identity{UserID: userID, Token: token}, nil
}

// Authorize decides whether caller may act on a resource owned by ownerID.
func Authorize(caller *Identity, ownerID int64) Decision {
	if caller == nil {
		return Unauthenticated
	}
	if caller.UserID != ownerID {
		return Forbidden
	}
	return Allowed
}
