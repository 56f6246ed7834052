package store

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gamerz-app/gamerz/internal/domain"
)

const msgKeyPrefix = "msg:"

// MessageStore is the durable, appendable message log. Keys embed an
// inverted creation timestamp so a prefix scan over one room yields
// newest-first order, which makes history pagination a plain iteration.
type MessageStore struct {
	db *badger.DB
}

func NewMessageStore(db *badger.DB) *MessageStore {
	return &MessageStore{db: db}
}

func msgRoomPrefix(room domain.RoomID) []byte {
	return []byte(msgKeyPrefix + string(room) + ":")
}

func msgKey(room domain.RoomID, createdAt time.Time, id domain.MessageID) []byte {
	inverted := math.MaxInt64 - createdAt.UnixNano()
	return []byte(fmt.Sprintf("%s%s:%020d:%s", msgKeyPrefix, room, inverted, id))
}

// Append durably stores one message and returns the persisted record.
// The caller must not broadcast anything unless Append returned nil.
func (s *MessageStore) Append(ctx context.Context, room domain.RoomID, sender domain.UserID, username, content string) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}
	msg := domain.Message{
		ID:        domain.MessageID(uuid.NewString()),
		Room:      room,
		SenderID:  sender,
		Username:  username,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return domain.Message{}, fmt.Errorf("marshal message: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(msgKey(room, msg.CreatedAt, msg.ID), data)
	})
	if err != nil {
		return domain.Message{}, err
	}
	log.Debug().Str("module", "store.messages").Str("room", string(room)).
		Str("msg", string(msg.ID)).Msg("message appended")
	return msg, nil
}

// History returns up to limit messages for a room, newest first. A
// non-empty cursor (the value returned by a previous call) resumes the
// scan after the last message of that page.
func (s *MessageStore) History(room domain.RoomID, cursor string, limit int) ([]domain.Message, string, error) {
	if limit <= 0 {
		limit = 50
	}
	var (
		out  []domain.Message
		next string
	)
	prefix := msgRoomPrefix(room)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		opts.PrefetchSize = limit
		it := txn.NewIterator(opts)
		defer it.Close()

		start := prefix
		skipFirst := false
		if cursor != "" {
			start = []byte(cursor)
			skipFirst = true
		}
		for it.Seek(start); it.ValidForPrefix(prefix); it.Next() {
			if skipFirst {
				skipFirst = false
				continue
			}
			if len(out) == limit {
				return nil
			}
			item := it.Item()
			err := item.Value(func(v []byte) error {
				var m domain.Message
				if err := json.Unmarshal(v, &m); err != nil {
					return fmt.Errorf("unmarshal message: %w", err)
				}
				out = append(out, m)
				return nil
			})
			if err != nil {
				return err
			}
			if len(out) == limit {
				next = string(item.KeyCopy(nil))
			}
		}
		// Scan exhausted: no further page
		if len(out) < limit {
			next = ""
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return out, next, nil
}
