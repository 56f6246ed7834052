package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog/log"

	"github.com/gamerz-app/gamerz/internal/domain"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already taken")
)

const (
	userKeyPrefix     = "user:id:"
	usernameKeyPrefix = "user:name:"
)

// UserStore persists accounts. The username index key makes usernames
// unique without a secondary database.
type UserStore struct {
	db *badger.DB
}

func NewUserStore(db *badger.DB) *UserStore {
	return &UserStore{db: db}
}

func userKey(id domain.UserID) []byte { return []byte(userKeyPrefix + string(id)) }
func usernameKey(name string) []byte  { return []byte(usernameKeyPrefix + name) }

// userRecord is the persisted shape. domain.User hides the password
// hash from API JSON, so storage marshals through its own record.
type userRecord struct {
	ID           domain.UserID         `json:"id"`
	Username     string                `json:"username"`
	PasswordHash string                `json:"password_hash"`
	Motivation   string                `json:"motivation,omitempty"`
	Status       domain.ApprovalStatus `json:"status"`
	CreatedAt    time.Time             `json:"created_at"`
}

func recordOf(u *domain.User) userRecord {
	return userRecord{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		Motivation:   u.Motivation,
		Status:       u.Status,
		CreatedAt:    u.CreatedAt,
	}
}

func (r userRecord) user() domain.User {
	return domain.User{
		ID:           r.ID,
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		Motivation:   r.Motivation,
		Status:       r.Status,
		CreatedAt:    r.CreatedAt,
	}
}

// Create stores a new user and claims its username atomically.
func (s *UserStore) Create(user *domain.User) error {
	data, err := json.Marshal(recordOf(user))
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(usernameKey(user.Username)); err == nil {
			return ErrUsernameTaken
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(usernameKey(user.Username), []byte(user.ID)); err != nil {
			return err
		}
		return txn.Set(userKey(user.ID), data)
	})
	if err != nil {
		return err
	}
	log.Info().Str("module", "store.users").Str("user", string(user.ID)).
		Str("username", user.Username).Msg("user created")
	return nil
}

func (s *UserStore) GetByID(id domain.UserID) (*domain.User, error) {
	var rec userRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrUserNotFound
		} else if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &rec)
		})
	})
	if err != nil {
		return nil, err
	}
	user := rec.user()
	return &user, nil
}

func (s *UserStore) GetByUsername(name string) (*domain.User, error) {
	var id domain.UserID
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(usernameKey(name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrUserNotFound
		} else if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			id = domain.UserID(v)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

// UpdateStatus flips the approval flag. This is the admin's only lever:
// the rest of the record is immutable after registration.
func (s *UserStore) UpdateStatus(id domain.UserID, status domain.ApprovalStatus) (*domain.User, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("invalid approval status %q", status)
	}
	var rec userRecord
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrUserNotFound
		} else if err != nil {
			return err
		}
		if err := item.Value(func(v []byte) error {
			return json.Unmarshal(v, &rec)
		}); err != nil {
			return err
		}
		rec.Status = status
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return txn.Set(userKey(id), data)
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("module", "store.users").Str("user", string(id)).
		Str("status", string(status)).Msg("approval status updated")
	user := rec.user()
	return &user, nil
}

// ListPending returns accounts awaiting review, for the admin surface.
func (s *UserStore) ListPending() ([]domain.User, error) {
	var out []domain.User
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte(userKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(v []byte) error {
				var rec userRecord
				if err := json.Unmarshal(v, &rec); err != nil {
					return err
				}
				if rec.Status == domain.StatusPending {
					out = append(out, rec.user())
				}
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
