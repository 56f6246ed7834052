package core

import (
	"sync"

	"github.com/gamerz-app/gamerz/internal/domain"
	"github.com/rs/zerolog/log"
)

// Roster is the live membership table: the single source of truth for
// "who receives broadcasts for room R". It holds non-owning references
// to connections; connection lifetime belongs to the transport adapter.
//
// Roster entries are created lazily on first join. An empty room is a
// valid state; empty map entries are dropped only to reclaim memory,
// never as a semantic deletion (room existence is owned by the durable
// directory, not by this table).
type Roster struct {
	registry *Registry

	mu     sync.RWMutex
	rooms  map[domain.RoomID]map[ConnID]Peer
	byConn map[ConnID]map[domain.RoomID]struct{}
}

func NewRoster(registry *Registry) *Roster {
	return &Roster{
		registry: registry,
		rooms:    make(map[domain.RoomID]map[ConnID]Peer),
		byConn:   make(map[ConnID]map[domain.RoomID]struct{}),
	}
}

// Join adds a connection to a room. The approval gate reads the
// registry's identity record, never a client claim. Joining twice is a
// no-op: the member set cannot hold the same connection more than once,
// so duplicate joins cannot duplicate delivery.
func (ro *Roster) Join(room domain.RoomID, conn ConnID, out Outbound) error {
	ident, ok := ro.registry.Lookup(conn)
	if !ok {
		return ErrNotRegistered
	}
	if !ident.Approved() {
		return &PermissionError{Status: ident.Status}
	}

	ro.mu.Lock()
	defer ro.mu.Unlock()
	members, ok := ro.rooms[room]
	if !ok {
		members = make(map[ConnID]Peer)
		ro.rooms[room] = members
	}
	if _, already := members[conn]; already {
		return nil
	}
	members[conn] = Peer{Conn: conn, Identity: ident, Outbound: out}
	joined, ok := ro.byConn[conn]
	if !ok {
		joined = make(map[domain.RoomID]struct{})
		ro.byConn[conn] = joined
	}
	joined[room] = struct{}{}
	log.Info().Str("module", "core.roster").Str("conn", string(conn)).
		Str("room", string(room)).Int("members", len(members)).Msg("member joined")
	return nil
}

// Leave removes a connection from a room. Leaving a room one is not a
// member of is a no-op, not an error.
func (ro *Roster) Leave(room domain.RoomID, conn ConnID) {
	ro.mu.Lock()
	defer ro.mu.Unlock()
	ro.leaveLocked(room, conn)
}

func (ro *Roster) leaveLocked(room domain.RoomID, conn ConnID) {
	members, ok := ro.rooms[room]
	if !ok {
		return
	}
	if _, member := members[conn]; !member {
		return
	}
	delete(members, conn)
	if len(members) == 0 {
		delete(ro.rooms, room)
	}
	if joined, ok := ro.byConn[conn]; ok {
		delete(joined, room)
		if len(joined) == 0 {
			delete(ro.byConn, conn)
		}
	}
	log.Info().Str("module", "core.roster").Str("conn", string(conn)).
		Str("room", string(room)).Msg("member left")
}

// IsMember reports current membership of one connection.
func (ro *Roster) IsMember(room domain.RoomID, conn ConnID) bool {
	ro.mu.RLock()
	defer ro.mu.RUnlock()
	_, ok := ro.rooms[room][conn]
	return ok
}

// MembersOf returns a fresh snapshot of the room's membership at the
// instant of the call. Callers must not reuse a snapshot across sends.
func (ro *Roster) MembersOf(room domain.RoomID) []Peer {
	ro.mu.RLock()
	defer ro.mu.RUnlock()
	members := ro.rooms[room]
	out := make([]Peer, 0, len(members))
	for _, p := range members {
		out = append(out, p)
	}
	return out
}

func (ro *Roster) MemberCount(room domain.RoomID) int {
	ro.mu.RLock()
	defer ro.mu.RUnlock()
	return len(ro.rooms[room])
}

// RoomsOf returns the rooms a connection currently belongs to.
func (ro *Roster) RoomsOf(conn ConnID) []domain.RoomID {
	ro.mu.RLock()
	defer ro.mu.RUnlock()
	joined := ro.byConn[conn]
	out := make([]domain.RoomID, 0, len(joined))
	for room := range joined {
		out = append(out, room)
	}
	return out
}

// PurgeConnection removes the connection from every room it belongs to
// and returns the rooms it left, so the lifecycle controller can emit
// one Left notification per room. A second purge returns nothing.
// Safe against a concurrent broadcast: fan-out iterates a snapshot and
// tolerates delivery failure to a just-purged connection.
func (ro *Roster) PurgeConnection(conn ConnID) []domain.RoomID {
	ro.mu.Lock()
	defer ro.mu.Unlock()
	joined := ro.byConn[conn]
	rooms := make([]domain.RoomID, 0, len(joined))
	for room := range joined {
		rooms = append(rooms, room)
	}
	for _, room := range rooms {
		ro.leaveLocked(room, conn)
	}
	if len(rooms) > 0 {
		log.Info().Str("module", "core.roster").Str("conn", string(conn)).
			Int("rooms", len(rooms)).Msg("connection purged")
	}
	return rooms
}
