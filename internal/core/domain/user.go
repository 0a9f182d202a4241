package domain

import "time"

// Role is the access tier of a user.
type Role string

const (
	RoleConsumer Role = "consumer"
	RoleEmployee Role = "employee"
	RoleAdmin    Role = "admin"
)

// Roles lists every role in ascending privilege order.
var Roles = []Role{RoleConsumer, RoleEmployee, RoleAdmin}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleConsumer, RoleEmployee, RoleAdmin:
		return true
	}
	return false
}

// User models an account that can authenticate against the API.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Principal is the identity resolved from a session token for the duration
// of a single request. It is never persisted.
type Principal struct {
	UserID int64
	Email  string
	Role   Role
}

// IsSelf reports whether the principal refers to the user with the given id.
func (p Principal) IsSelf(userID int64) bool {
	return p.UserID == userID
}
