package core

import (
	"encoding/json"
	"time"

	"github.com/gamerz-app/gamerz/internal/domain"
)

// Push event types delivered to clients over their outbound channel.
const (
	EventMessage      = "message"
	EventMemberJoined = "member_joined"
	EventMemberLeft   = "member_left"
)

// MessageEvent carries one persisted message to room members.
type MessageEvent struct {
	Type      string           `json:"type"`
	Room      domain.RoomID    `json:"room"`
	ID        domain.MessageID `json:"id"`
	SenderID  domain.UserID    `json:"sender_id"`
	Username  string           `json:"username"`
	Content   string           `json:"content"`
	CreatedAt time.Time        `json:"created_at"`
}

// MemberEvent announces a join or leave to the rest of a room.
type MemberEvent struct {
	Type     string        `json:"type"`
	Room     domain.RoomID `json:"room"`
	UserID   domain.UserID `json:"user_id"`
	Username string        `json:"username"`
}

func encodeMessageEvent(msg domain.Message) (Frame, error) {
	return json.Marshal(MessageEvent{
		Type:      EventMessage,
		Room:      msg.Room,
		ID:        msg.ID,
		SenderID:  msg.SenderID,
		Username:  msg.Username,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	})
}

func encodeMemberEvent(kind ChangeKind, room domain.RoomID, ident Identity) (Frame, error) {
	typ := EventMemberJoined
	if kind == MemberLeft {
		typ = EventMemberLeft
	}
	return json.Marshal(MemberEvent{
		Type:     typ,
		Room:     room,
		UserID:   ident.UserID,
		Username: ident.Username,
	})
}
