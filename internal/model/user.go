package model

import "time"

// Role names accepted in the users.roles column.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

// User mirrors the `users` table. TokenVersion is the per-user revocation
// counter: every refresh token embeds the value current at issue time and
// stops working once the counter moves. Access tokens are never checked
// against it, so revocation takes effect on the next refresh.
type User struct {
	ID           uint64    // users.id
	Name         string    // users.name (may be empty)
	Email        string    // users.email (unique, lowercased)
	PasswordHash string    // users.password_hash (bcrypt)
	Roles        []string  // users.roles (comma separated)
	IsActive     bool      // users.is_active
	TokenVersion uint64    // users.token_version
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// Status reports the account state the way the API exposes it.
func (u User) Status() string {
	if u.IsActive {
		return "active"
	}
	return "disabled"
}

func (u User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r == name {
			return true
		}
	}
	return false
}
