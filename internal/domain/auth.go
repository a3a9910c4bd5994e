package domain

import "time"

// RoleAdmin is the role required by the admin override endpoints.
const RoleAdmin = "admin"

// Principal is an authenticated caller.
type Principal struct {
	UserID string
	Roles  []string
}

// HasRole reports whether the principal holds role.
func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// TokenIssuer issues tokens (e.g. JWT) for an operator.
type TokenIssuer interface {
	Issue(userID string, roles []string, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a token and returns the authenticated principal.
type TokenVerifier interface {
	Verify(token string) (Principal, error)
}
