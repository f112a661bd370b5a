package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/charlesng35/wavtrack/internal/auth"
	"github.com/charlesng35/wavtrack/pkg/errors"
	"github.com/charlesng35/wavtrack/pkg/response"
)

const (
	CtxClaimsKey = "authClaims"
	CtxUserIDKey = "userID"
)

// Auth validates the bearer token and places the caller's identity into both
// the gin context and the request context, where the data services read it.
func Auth(jwt *iauth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthenticated)
			c.Abort()
			return
		}

		claims, err := jwt.ValidateAccessToken(token)
		if err != nil {
			c.Header("WWW-Authenticate", `Bearer error="invalid_token"`)
			response.Error(c, errors.ErrUnauthenticated)
			c.Abort()
			return
		}

		identity := iauth.Identity{UserID: claims.UserID(), Email: claims.Email}
		c.Set(CtxClaimsKey, claims)
		c.Set(CtxUserIDKey, identity.UserID)
		c.Request = c.Request.WithContext(iauth.WithIdentity(c.Request.Context(), identity))

		c.Next()
	}
}

// bearerToken reads the Authorization header, falling back to the
// access_token query parameter for websocket upgrades.
func bearerToken(c *gin.Context) (string, bool) {
	authz := c.GetHeader("Authorization")
	if len(authz) >= 8 && strings.EqualFold(authz[:7], "Bearer ") {
		token := strings.TrimSpace(authz[7:])
		return token, token != ""
	}
	if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
		token := strings.TrimSpace(c.Query("access_token"))
		return token, token != ""
	}
	return "", false
}
