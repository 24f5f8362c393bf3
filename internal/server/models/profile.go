// Package models defines server-side data models persisted in the database.
package models

import "time"

// Role is the access role carried by a profile and its tokens.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Profile is an account that can sign in. Email is the sign-in login.
type Profile struct {
	ID           string
	Login        string
	Email        string
	PasswordHash string
	Role         Role
	Active       bool
	CreatedAt    time.Time
}
