package core

import (
	"github.com/gamerz-app/gamerz/internal/domain"
	"github.com/rs/zerolog/log"
)

// ChangeKind distinguishes the two membership notifications.
type ChangeKind int

const (
	MemberJoined ChangeKind = iota
	MemberLeft
)

func (k ChangeKind) String() string {
	if k == MemberLeft {
		return "left"
	}
	return "joined"
}

// Engine fans persisted messages and membership changes out to live
// room members. Delivery is best effort: an individual failure is
// logged and never aborts the rest of the fan-out, is never retried,
// and never reaches the sender. Stale connections are cleaned up
// reactively by the lifecycle controller, not here.
type Engine struct {
	roster *Roster
}

func NewEngine(roster *Roster) *Engine {
	return &Engine{roster: roster}
}

// BroadcastMessage delivers an already-persisted message to every current
// member of its room, the sender's own connection included. Callers that
// want echo suppression filter by sender identity on the receiving side.
func (e *Engine) BroadcastMessage(msg domain.Message) DeliveryStats {
	frame, err := encodeMessageEvent(msg)
	if err != nil {
		// Persisted domain values always marshal; this guards future fields.
		log.Error().Err(err).Str("module", "core.broadcast").Msg("encode message event")
		return DeliveryStats{}
	}
	return e.fanout(msg.Room, frame, "")
}

// BroadcastMembershipChange notifies a room's members that a connection
// joined or left, excluding the subject connection itself.
func (e *Engine) BroadcastMembershipChange(room domain.RoomID, subject ConnID, kind ChangeKind, ident Identity) DeliveryStats {
	frame, err := encodeMemberEvent(kind, room, ident)
	if err != nil {
		log.Error().Err(err).Str("module", "core.broadcast").Msg("encode member event")
		return DeliveryStats{}
	}
	return e.fanout(room, frame, subject)
}

// fanout resolves membership at call time and attempts one non-blocking
// delivery per member. The snapshot runs to completion regardless of
// individual outcomes.
func (e *Engine) fanout(room domain.RoomID, frame Frame, exclude ConnID) DeliveryStats {
	var stats DeliveryStats
	for _, peer := range e.roster.MembersOf(room) {
		if exclude != "" && peer.Conn == exclude {
			continue
		}
		if err := peer.Outbound.TrySend(frame); err != nil {
			stats.Dropped++
			log.Warn().Err(err).Str("module", "core.broadcast").Str("room", string(room)).
				Str("conn", string(peer.Conn)).Msg("delivery failed")
			continue
		}
		stats.Delivered++
	}
	log.Debug().Str("module", "core.broadcast").Str("room", string(room)).
		Int("delivered", stats.Delivered).Int("dropped", stats.Dropped).Msg("broadcast result")
	return stats
}
