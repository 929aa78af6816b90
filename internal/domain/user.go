// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"
)

const MaxUserIDLen = 64

var (
	ErrUserIDEmpty   = errors.New("user id empty")
	ErrUserIDTooLong = errors.New("user id too long")
)

// UserID is the caller-supplied identifier attached to a connection.
// It is carried as-is and never authenticated.
type UserID string

type User struct {
	ID UserID `json:"user"`
}

// NewUser is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewUser(id string) (*User, error) {
	id = strings.TrimSpace(id)
	if len(id) == 0 {
		return nil, ErrUserIDEmpty
	}
	if len(id) > MaxUserIDLen {
		return nil, ErrUserIDTooLong
	}
	return &User{ID: UserID(id)}, nil
}
