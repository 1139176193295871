package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleManager Role = "manager"
	RoleWarden  Role = "warden"
	RoleAdmin   Role = "admin"
)

// Elevated reports whether the role may pin/unpin messages and delete
// messages sent by other participants.
func (r Role) Elevated() bool {
	switch r {
	case RoleManager, RoleWarden, RoleAdmin:
		return true
	}
	return false
}

// User represents an already-authenticated hostel resident or staff member.
// Authentication itself lives outside this service; the identity arrives
// through the auth middleware.
type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	Hostel    string    `json:"hostel,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func NewUser(name string, role Role, hostel string) *User {
	return &User{
		ID:        uuid.New(),
		Name:      name,
		Role:      role,
		Hostel:    hostel,
		CreatedAt: time.Now().UTC(),
	}
}
