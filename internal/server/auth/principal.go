package auth

import (
	"context"
	"slices"
)

// Principal is the authenticated identity attached to a request. Its fields
// are read through methods returning copies, so a Principal cannot be
// modified after the access middleware built it.
type Principal struct {
	profileID string
	login     string
	tokenID   string
	roles     []string
}

// NewPrincipal builds a Principal, copying roles.
func NewPrincipal(profileID, login, tokenID string, roles []string) Principal {
	return Principal{
		profileID: profileID,
		login:     login,
		tokenID:   tokenID,
		roles:     slices.Clone(roles),
	}
}

func (p Principal) ProfileID() string { return p.profileID }
func (p Principal) Login() string     { return p.login }

// TokenID is the jti of the access token the principal authenticated with.
func (p Principal) TokenID() string { return p.tokenID }

func (p Principal) Roles() []string { return slices.Clone(p.roles) }

func (p Principal) HasRole(role string) bool {
	return slices.Contains(p.roles, role)
}

type principalKey struct{}

// WithPrincipal returns a child context carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal stored by WithPrincipal.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
