// Package app wires the in-memory core to the durable stores: it owns
// the server side of the connection lifecycle and the persist-then-
// broadcast pipeline for sends.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/gamerz-app/gamerz/internal/core"
	"github.com/gamerz-app/gamerz/internal/domain"
)

// MessageAppender is the durable message log's append side.
type MessageAppender interface {
	Append(ctx context.Context, room domain.RoomID, sender domain.UserID, username, content string) (domain.Message, error)
}

// RoomDirectory answers whether a room exists. Joins are validated
// against it; an unknown room is a hard error for join and send.
type RoomDirectory interface {
	Exists(id domain.RoomID) (bool, error)
}

type Orchestrator struct {
	Registry *core.Registry
	Roster   *core.Roster
	Engine   *core.Engine
	Messages MessageAppender
	Rooms    RoomDirectory
}

func NewOrchestrator(registry *core.Registry, roster *core.Roster, engine *core.Engine, messages MessageAppender, rooms RoomDirectory) *Orchestrator {
	return &Orchestrator{
		Registry: registry,
		Roster:   roster,
		Engine:   engine,
		Messages: messages,
		Rooms:    rooms,
	}
}

// Connect registers a freshly authenticated connection. Identity must
// already be resolved; unresolved connections never get this far.
func (o *Orchestrator) Connect(conn core.ConnID, ident core.Identity) error {
	return o.Registry.Register(conn, ident)
}

// Join admits a connection to a room and announces it to the existing
// members. The announcement happens after the join is recorded, so a
// message broadcast issued after Join returns always sees the member.
func (o *Orchestrator) Join(room domain.RoomID, conn core.ConnID, out core.Outbound) error {
	ok, err := o.Rooms.Exists(room)
	if err != nil {
		return fmt.Errorf("room directory: %w", err)
	}
	if !ok {
		return core.ErrRoomNotFound
	}
	if o.Roster.IsMember(room, conn) {
		// Duplicate join: succeed without re-announcing
		return nil
	}
	if err := o.Roster.Join(room, conn, out); err != nil {
		return err
	}
	if ident, ok := o.Registry.Lookup(conn); ok {
		o.Engine.BroadcastMembershipChange(room, conn, core.MemberJoined, ident)
	}
	return nil
}

// Leave removes a connection from a room and notifies the remaining
// members. Leaving a room one is not in is a no-op.
func (o *Orchestrator) Leave(conn core.ConnID, room domain.RoomID) {
	if !o.Roster.IsMember(room, conn) {
		return
	}
	o.Roster.Leave(room, conn)
	if ident, ok := o.Registry.Lookup(conn); ok {
		o.Engine.BroadcastMembershipChange(room, conn, core.MemberLeft, ident)
	}
}

// Send persists the message, then fans it out. The broadcast runs only
// after the append succeeded: a persistence failure short-circuits and
// no member observes the attempt. Fan-out outcomes never fail the send;
// the sender's contract is "your message was saved".
func (o *Orchestrator) Send(ctx context.Context, conn core.ConnID, room domain.RoomID, content string) (domain.Message, error) {
	ident, ok := o.Registry.Lookup(conn)
	if !ok {
		return domain.Message{}, core.ErrNotRegistered
	}
	if !ident.Approved() {
		return domain.Message{}, &core.PermissionError{Status: ident.Status}
	}
	if !o.Roster.IsMember(room, conn) {
		return domain.Message{}, core.ErrNotMember
	}

	msg, err := o.Messages.Append(ctx, room, ident.UserID, ident.Username, content)
	if err != nil {
		return domain.Message{}, &core.PersistenceError{Err: err}
	}

	o.Engine.BroadcastMessage(msg)
	return msg, nil
}

// Disconnect tears a connection down: one purge, one Left notification
// per room the connection was in, then the identity record goes away.
// The order matters: the room set exists only pre-purge, and the Left
// broadcasts need the identity record still present. Idempotent, since
// transports can signal the same disconnect twice.
func (o *Orchestrator) Disconnect(conn core.ConnID) {
	ident, registered := o.Registry.Lookup(conn)
	rooms := o.Roster.PurgeConnection(conn)
	if registered {
		for _, room := range rooms {
			o.Engine.BroadcastMembershipChange(room, conn, core.MemberLeft, ident)
		}
	}
	o.Registry.Unregister(conn)
	if registered {
		log.Info().Str("module", "app.orchestrator").Str("conn", string(conn)).
			Int("rooms", len(rooms)).Msg("connection torn down")
	}
}
