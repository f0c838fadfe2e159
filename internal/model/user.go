package model

import (
	"encoding/json"
	"time"
)

// Role is the account type a user picks once after signing up. The zero
// value means no role has been chosen yet; it is stored as NULL and
// serialized as JSON null.
type Role string

const (
	RoleUnset     Role = ""
	RoleDonor     Role = "donor"
	RoleNGO       Role = "ngo"
	RoleVolunteer Role = "volunteer"
	RoleAdmin     Role = "admin"
)

// Assignable reports whether r may be chosen through role selection.
// Admin accounts are provisioned out of band and never qualify.
func (r Role) Assignable() bool {
	switch r {
	case RoleDonor, RoleNGO, RoleVolunteer:
		return true
	}
	return false
}

// Valid reports whether r is a known role, including unset.
func (r Role) Valid() bool {
	return r == RoleUnset || r == RoleAdmin || r.Assignable()
}

func (r Role) MarshalJSON() ([]byte, error) {
	if r == RoleUnset {
		return []byte("null"), nil
	}
	return json.Marshal(string(r))
}

func (r *Role) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*r = RoleUnset
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*r = Role(s)
	return nil
}

// User mirrors a row of the `users` table.
//
// PasswordHash is empty for accounts created through Google sign-in; such
// accounts can never log in with a local password. It is never serialized.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name,omitempty"`
	Picture       string    `json:"picture,omitempty"`
	PasswordHash  string    `json:"-"`
	Role          Role      `json:"role"`
	PhoneVerified bool      `json:"phone_verified"`
	IsVerified    bool      `json:"is_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

// HasPassword reports whether the user can authenticate with a local password.
func (u User) HasPassword() bool { return u.PasswordHash != "" }
