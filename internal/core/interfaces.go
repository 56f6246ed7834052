// Package core holds the in-memory real-time state: which connection is
// who (Registry), who is in which room (Roster), and the fan-out engine
// that delivers persisted messages to live members (Engine).
package core

import "github.com/gamerz-app/gamerz/internal/domain"

// Frame is an encoded wire payload ready to be written to a transport.
type Frame []byte

// ConnID identifies one live transport session. Transport-assigned,
// opaque to the core.
type ConnID string

// Identity is the server-side resolved identity of a connection. It is
// established once at authentication time; client payloads never
// contribute to it.
type Identity struct {
	UserID   domain.UserID
	Username string
	Status   domain.ApprovalStatus
}

func (id Identity) Approved() bool { return id.Status.Approved() }

// Outbound is a connection's send side. TrySend must never block: a full
// buffer or a closed connection is an error, and the caller decides what
// to do with it. Owned by the transport adapter; the adapter closes it.
type Outbound interface {
	TrySend(Frame) error
	Close()
}

// Peer is a roster snapshot entry: one live member of a room.
type Peer struct {
	Conn     ConnID
	Identity Identity
	Outbound Outbound
}

// DeliveryStats reports the outcome of one fan-out. Drops are expected
// under churn and are never surfaced to the sender.
type DeliveryStats struct {
	Delivered int
	Dropped   int
}
