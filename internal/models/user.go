// internal/models/user.go
package models

import "github.com/google/uuid"

// User is an authenticated identity. The engine itself only ever sees the
// (ID, Username) pair; the rest belongs to the account surface.
type User struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Password string    `json:"password,omitempty"`
	Username string    `json:"username"`

	IsEphemeral bool `json:"is_ephemeral"`
	IsAdmin     bool `json:"is_admin"`
}
