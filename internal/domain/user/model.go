package user

import (
	"time"

	"github.com/google/uuid"
)

// User is an account that can authenticate against the API. PasswordHash is
// a bcrypt digest and never serialized.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Invitation gates doctor registration. An admin issues a token for an email
// address; the holder can create a doctor account until the token expires or
// is used.
type Invitation struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	Token     string     `json:"token"`
	Used      bool       `json:"used"`
	ExpiresAt time.Time  `json:"expires_at"`
	CreatedBy *uuid.UUID `json:"created_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Redeemable reports whether the invitation can still be used.
func (i *Invitation) Redeemable(now time.Time) bool {
	return !i.Used && now.Before(i.ExpiresAt)
}
