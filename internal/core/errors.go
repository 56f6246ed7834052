package core

import (
	"errors"
	"fmt"

	"github.com/gamerz-app/gamerz/internal/domain"
)

var (
	// ErrUnauthenticated means identity resolution failed; the connection
	// must never be registered.
	ErrUnauthenticated = errors.New("identity not resolved")

	// ErrNotRegistered means the connection has no identity record.
	ErrNotRegistered = errors.New("connection not registered")

	// ErrRoomNotFound is a hard error for join/send; leave and purge treat
	// an unknown room as a no-op instead.
	ErrRoomNotFound = errors.New("room not found")

	// ErrNotMember means a send targeted a room the connection never joined.
	ErrNotMember = errors.New("not a member of room")

	// ErrBackpressure means an outbound buffer was full at TrySend time.
	ErrBackpressure = errors.New("outbound buffer full")

	// ErrConnClosed means the outbound side was already closed.
	ErrConnClosed = errors.New("connection closed")
)

// PermissionError is returned when a valid identity has an approval
// status that does not allow joining or sending. The status lets the
// interface distinguish "still waiting" from "blocked".
type PermissionError struct {
	Status domain.ApprovalStatus
}

func (e *PermissionError) Error() string {
	switch e.Status {
	case domain.StatusPending:
		return "permission denied: account pending approval"
	default:
		return fmt.Sprintf("permission denied: access revoked (%s)", e.Status)
	}
}

// Pending reports whether the caller is merely waiting for approval, as
// opposed to rejected or banned.
func (e *PermissionError) Pending() bool { return e.Status == domain.StatusPending }

// PersistenceError wraps a message store failure. A send that hits one
// is reported to the sender and never broadcast.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("persistence failed: %v", e.Err) }
func (e *PersistenceError) Unwrap() error { return e.Err }
