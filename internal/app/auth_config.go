package app

import (
	"strings"

	"github.com/charlesng35/wavtrack/internal/auth"
)

// JWTServiceConfig maps the auth section onto the token verifier. Blank
// values fall back to the verifier's own defaults.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	out := auth.JWTConfig{
		Secret:         strings.TrimSpace(c.JWT.Secret),
		Issuer:         strings.TrimSpace(c.JWT.Issuer),
		Audience:       strings.TrimSpace(c.JWT.Audience),
		AccessTokenTTL: c.JWT.TTL,
	}
	if out.Audience == "" {
		out.Audience = auth.DefaultAudience
	}
	if out.AccessTokenTTL <= 0 {
		out.AccessTokenTTL = auth.DefaultAccessTokenTTL
	}
	return out
}
