package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const MaxRoomNameLen = 64

var (
	ErrRoomNameEmpty   = errors.New("room name empty")
	ErrRoomNameTooLong = errors.New("room name too long")
)

type RoomID string

// Room is the durable chatroom record owned by the directory store.
// Live membership is a separate, in-memory concern (core.Roster).
type Room struct {
	ID        RoomID    `json:"id"`
	Name      string    `json:"name"`
	Game      string    `json:"game,omitempty"`
	CreatedBy UserID    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

func NewRoom(name, game string, createdBy UserID) (*Room, error) {
	if len(name) == 0 {
		return nil, ErrRoomNameEmpty
	}
	if len(name) > MaxRoomNameLen {
		return nil, ErrRoomNameTooLong
	}
	return &Room{
		ID:        RoomID(uuid.NewString()),
		Name:      name,
		Game:      game,
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
	}, nil
}
