package domain

import "time"

type MessageID string

// Message is a persisted chat record. In-flight content only becomes a
// Message once the store has accepted the append; broadcast always works
// on persisted records, never on raw client input.
type Message struct {
	ID        MessageID `json:"id"`
	Room      RoomID    `json:"room"`
	SenderID  UserID    `json:"sender_id"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
