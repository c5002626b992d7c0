package models

import "time"

// Role is the account type a user registered as.
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleEmployer  Role = "EMPLOYER"
	RoleCandidate Role = "CANDIDATE"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleEmployer, RoleCandidate:
		return true
	}
	return false
}

// User is a row of the users table. PasswordHash never leaves the server;
// use Public to build anything sent to a client.
type User struct {
	ID               string    `db:"id"`
	Email            string    `db:"email"`
	PasswordHash     string    `db:"password_hash"`
	Name             string    `db:"name"`
	Role             Role      `db:"role"`
	TwoFactorEnabled bool      `db:"two_factor_enabled"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

// PublicUser is the sanitized view of a User.
type PublicUser struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	Name             string    `json:"name"`
	Role             Role      `json:"role"`
	TwoFactorEnabled bool      `json:"twoFactorEnabled"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:               u.ID,
		Email:            u.Email,
		Name:             u.Name,
		Role:             u.Role,
		TwoFactorEnabled: u.TwoFactorEnabled,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}

// UserFlags is a partial update of mutable user flags. Nil fields are left
// unchanged.
type UserFlags struct {
	TwoFactorEnabled *bool
}
