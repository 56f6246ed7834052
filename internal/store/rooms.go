package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog/log"

	"github.com/gamerz-app/gamerz/internal/domain"
)

var ErrRoomNotFound = errors.New("room not found")

const roomKeyPrefix = "room:"

// RoomStore is the durable chatroom directory. The real-time layer only
// asks it whether a room exists; creation and listing serve the REST
// surface.
type RoomStore struct {
	db *badger.DB
}

func NewRoomStore(db *badger.DB) *RoomStore {
	return &RoomStore{db: db}
}

func roomKey(id domain.RoomID) []byte { return []byte(roomKeyPrefix + string(id)) }

func (s *RoomStore) Create(room *domain.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("marshal room: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(roomKey(room.ID), data)
	})
	if err != nil {
		return err
	}
	log.Info().Str("module", "store.rooms").Str("room", string(room.ID)).
		Str("name", room.Name).Msg("room created")
	return nil
}

func (s *RoomStore) Get(id domain.RoomID) (*domain.Room, error) {
	var room domain.Room
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(roomKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrRoomNotFound
		} else if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &room)
		})
	})
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// Exists is the join-time directory check used by the orchestrator.
func (s *RoomStore) Exists(id domain.RoomID) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(roomKey(id))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *RoomStore) List() ([]domain.Room, error) {
	var out []domain.Room
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte(roomKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(v []byte) error {
				var r domain.Room
				if err := json.Unmarshal(v, &r); err != nil {
					return err
				}
				out = append(out, r)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
