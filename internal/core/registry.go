package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/gamerz-app/gamerz/internal/domain"
)

// Registry maps live connections to their resolved identities. It is the
// only trustworthy source of user id and approval status for a
// connection; nothing read from a client payload ever lands here.
type Registry struct {
	mu    sync.RWMutex
	conns map[ConnID]Identity
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[ConnID]Identity)}
}

// Register records the identity for a newly authenticated connection.
// A zero identity is refused: registration without a verified identity
// must be impossible.
func (r *Registry) Register(id ConnID, ident Identity) error {
	if ident.UserID == "" {
		return ErrUnauthenticated
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[id] = ident
	log.Info().Str("module", "core.registry").Str("conn", string(id)).
		Str("user", string(ident.UserID)).Str("status", string(ident.Status)).Msg("connection registered")
	return nil
}

func (r *Registry) Lookup(id ConnID) (Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ident, ok := r.conns[id]
	return ident, ok
}

// Unregister removes the identity record. Idempotent: duplicate
// disconnect signals from the transport are expected and harmless.
func (r *Registry) Unregister(id ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[id]; !ok {
		return
	}
	delete(r.conns, id)
	log.Info().Str("module", "core.registry").Str("conn", string(id)).Msg("connection unregistered")
}

// UserConnected reports whether the user still has any registered
// connection. Per-user teardown waits for the last one to go.
func (r *Registry) UserConnected(user domain.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ident := range r.conns {
		if ident.UserID == user {
			return true
		}
	}
	return false
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
