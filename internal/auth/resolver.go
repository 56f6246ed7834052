package auth

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/gamerz-app/gamerz/internal/core"
	"github.com/gamerz-app/gamerz/internal/domain"
)

// UserLookup is the slice of the user store the resolver needs.
type UserLookup interface {
	GetByID(id domain.UserID) (*domain.User, error)
}

// Resolver turns a bearer credential into a core.Identity. The token
// proves who the caller is; the approval status comes from the stored
// record, never from the token or any client payload.
type Resolver struct {
	tokens *Manager
	users  UserLookup
}

func NewResolver(tokens *Manager, users UserLookup) *Resolver {
	return &Resolver{tokens: tokens, users: users}
}

func (r *Resolver) Resolve(tokenStr string) (core.Identity, error) {
	if tokenStr == "" {
		return core.Identity{}, core.ErrUnauthenticated
	}
	claims, err := r.tokens.Parse(tokenStr)
	if err != nil {
		return core.Identity{}, fmt.Errorf("%w: %v", core.ErrUnauthenticated, err)
	}
	user, err := r.users.GetByID(domain.UserID(claims.UserID))
	if err != nil {
		log.Warn().Err(err).Str("module", "auth.resolver").Str("user", claims.UserID).
			Msg("token subject has no stored record")
		return core.Identity{}, fmt.Errorf("%w: unknown subject", core.ErrUnauthenticated)
	}
	return core.Identity{
		UserID:   user.ID,
		Username: user.Username,
		Status:   user.Status,
	}, nil
}
