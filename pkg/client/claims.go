package client

import (
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
)

// Claims is the displayable subset of an access token.
type Claims struct {
	Subject   string
	Issuer    string
	Audience  []string
	ExpiresAt time.Time
}

// Expired reports whether the token expired before now. Tokens without an
// expiry never expire.
func (c *Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// InspectToken decodes the claims of a JWT access token without verifying
// its signature. The API verifies tokens; this is for display only.
func InspectToken(raw string) (*Claims, error) {
	mc := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(raw, mc); err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	c := &Claims{}
	c.Subject, _ = mc["sub"].(string)
	c.Issuer, _ = mc["iss"].(string)

	// aud is a string or a list of strings.
	switch aud := mc["aud"].(type) {
	case string:
		c.Audience = []string{aud}
	case []interface{}:
		for _, a := range aud {
			if s, ok := a.(string); ok {
				c.Audience = append(c.Audience, s)
			}
		}
	}

	if exp, ok := mc["exp"].(float64); ok {
		c.ExpiresAt = time.Unix(int64(exp), 0)
	}
	return c, nil
}
