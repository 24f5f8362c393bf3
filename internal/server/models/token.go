package models

import "time"

// TokenType distinguishes short-lived access tokens from refresh tokens.
type TokenType string

const (
	TokenAccess  TokenType = "ACCESS"
	TokenRefresh TokenType = "REFRESH"
)

// Token is an allow-list row. ID equals the signed token's jti claim.
type Token struct {
	ID        string
	ProfileID string
	Token     string
	Type      TokenType
	ExpiresAt time.Time
	CreatedAt time.Time
}
