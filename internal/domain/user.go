// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	MaxUsernameLen   = 36
	MaxMotivationLen = 500
)

var (
	ErrUsernameEmpty     = errors.New("username empty")
	ErrUsernameTooLong   = errors.New("username too long")
	ErrMotivationTooLong = errors.New("motivation too long")
)

type UserID string

// ApprovalStatus gates join/send eligibility. Only StatusApproved may
// participate in rooms; the other states keep a read-only connection.
type ApprovalStatus string

const (
	StatusPending  ApprovalStatus = "pending"
	StatusApproved ApprovalStatus = "approved"
	StatusRejected ApprovalStatus = "rejected"
	StatusBanned   ApprovalStatus = "banned"
)

func (s ApprovalStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusBanned:
		return true
	}
	return false
}

func (s ApprovalStatus) Approved() bool { return s == StatusApproved }

type User struct {
	ID           UserID         `json:"id"`
	Username     string         `json:"username"`
	PasswordHash string         `json:"-"`
	Motivation   string         `json:"motivation,omitempty"`
	Status       ApprovalStatus `json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
}

// NewUser is a tiny helper to avoid ad-hoc struct literals in adapters.
// New accounts always start pending; only an admin moves them out of it.
func NewUser(username, passwordHash, motivation string) (*User, error) {
	if len(username) == 0 {
		return nil, ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return nil, ErrUsernameTooLong
	}
	if len(motivation) > MaxMotivationLen {
		return nil, ErrMotivationTooLong
	}
	return &User{
		ID:           UserID(uuid.NewString()),
		Username:     username,
		PasswordHash: passwordHash,
		Motivation:   motivation,
		Status:       StatusPending,
		CreatedAt:    time.Now().UTC(),
	}, nil
}
