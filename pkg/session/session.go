// Package session holds the client-side proof of authentication: the bearer
// token, the user id and the role, always stored and cleared together.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleAdmin    Role = "ADMIN"
)

// ParseRole accepts the backend's role names in any case.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleCustomer:
		return RoleCustomer, true
	case RoleAdmin:
		return RoleAdmin, true
	default:
		return "", false
	}
}

// Storage keys, shared by every backend.
const (
	KeyToken  = "jwt_token"
	KeyUserID = "user_id"
	KeyRole   = "user_role"
)

var ErrIncomplete = errors.New("session: token, user id and role are all required")

type Session struct {
	Token  string `json:"jwt_token"`
	UserID string `json:"user_id"`
	Role   Role   `json:"user_role"`
}

func (s Session) Valid() bool {
	if s.Token == "" || s.UserID == "" {
		return false
	}
	_, ok := ParseRole(string(s.Role))
	return ok
}

func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}

// Store is a single session cell.
//
// Get reports absent, never an error, when the backing storage is unavailable
// or holds a partial or malformed record.
type Store interface {
	Save(ctx context.Context, s Session) error
	Get(ctx context.Context) (Session, bool)
	Clear(ctx context.Context) error
}

// Keyspace hands out one Store per browser session id.
type Keyspace interface {
	For(sessionID string) Store
}

func fromFields(token, userID, role string) (Session, bool) {
	r, ok := ParseRole(role)
	if !ok {
		return Session{}, false
	}
	s := Session{Token: token, UserID: userID, Role: r}
	if !s.Valid() {
		return Session{}, false
	}
	return s, true
}

func decode(data []byte) (Session, bool) {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return Session{}, false
	}
	return fromFields(raw[KeyToken], raw[KeyUserID], raw[KeyRole])
}

func normalize(s Session) (Session, error) {
	r, ok := ParseRole(string(s.Role))
	if !ok || s.Token == "" || s.UserID == "" {
		return Session{}, ErrIncomplete
	}
	s.Role = r
	return s, nil
}
