// internal/models/user.go
package models

import "github.com/google/uuid"

// Role is the permission level of an actor.
type Role string

// RoleGuest marks temporary users created without registration.
const RoleGuest Role = "guest"

// Actor is whoever is behind an authenticated request.
type Actor interface {
	ActorID() uuid.UUID
	DisplayName() string
}

// User is a registered account, identified by the JWT subject.
type User struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
}

func (u *User) ActorID() uuid.UUID  { return u.ID }
func (u *User) DisplayName() string { return u.Username }

// TempUser is a guest identity that authenticates with an opaque session key
// instead of a bearer token.
type TempUser struct {
	ID         uuid.UUID `json:"id"`
	SessionKey string    `json:"sessionId"`
	Username   string    `json:"username"`
	Role       Role      `json:"role"`
	CreatedAt  int64     `json:"created_at"`
}

func (u *TempUser) ActorID() uuid.UUID  { return u.ID }
func (u *TempUser) DisplayName() string { return u.Username }

// Ruleset configures a session's game parameters.
type Ruleset struct {
	StartCardCount int `json:"startCardCount" yaml:"start_card_count"`
}

// DefaultRuleset returns the standard 7-card deal.
func DefaultRuleset() Ruleset {
	return Ruleset{StartCardCount: 7}
}
