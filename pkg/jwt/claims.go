package jwt

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims represents control API token claims
type Claims struct {
	Client string   `json:"client"`
	Scopes []string `json:"scopes,omitempty"`
	jwt.RegisteredClaims
}

// HasScope reports whether the token grants scope. A token without scopes grants everything.
func (c *Claims) HasScope(scope string) bool {
	if len(c.Scopes) == 0 {
		return true
	}
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
