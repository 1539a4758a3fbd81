// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is the only persistent entity. A user is reachable through a local
// username, an external provider id, or both; empty strings mean "absent"
// and are stored as NULL.
type User struct {
	ID           string
	UserName     string
	PasswordHash string
	ExternalID   string
	// Secret is nil until the owner submits one; each submission replaces it.
	Secret    *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasPassword reports whether the user can log in locally.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}
