package signal

import (
	"time"

	"github.com/gamerz-app/gamerz/internal/domain"
)

// Client requests, dispatched by the "type" field.
const (
	reqJoin  = "join"
	reqLeave = "leave"
	reqSend  = "send"
	reqPing  = "ping"
)

// Machine-distinguishable error codes. "pending_approval" and
// "access_revoked" are distinct so the UI can show a waiting state
// versus a blocked one.
const (
	codeUnauthorized    = "unauthorized"
	codePendingApproval = "pending_approval"
	codeAccessRevoked   = "access_revoked"
	codeNotFound        = "not_found"
	codePersistence     = "persistence_failed"
	codeBadPayload      = "bad_payload"
	codeRateLimited     = "rate_limited"
)

type requestEnvelope struct {
	Type    string `json:"type"`
	Room    string `json:"room,omitempty"`
	Content string `json:"content,omitempty"`
}

type errorReply struct {
	Type  string `json:"type"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

type joinedReply struct {
	Type    string        `json:"type"`
	Room    domain.RoomID `json:"room"`
	Members []memberView  `json:"members"`
	Count   int           `json:"count"`
}

type memberView struct {
	UserID   domain.UserID `json:"user_id"`
	Username string        `json:"username"`
}

type leftReply struct {
	Type string        `json:"type"`
	Room domain.RoomID `json:"room"`
}

type ackReply struct {
	Type      string           `json:"type"`
	Room      domain.RoomID    `json:"room"`
	ID        domain.MessageID `json:"id"`
	CreatedAt time.Time        `json:"created_at"`
}

type pongReply struct {
	Type string `json:"type"`
}
