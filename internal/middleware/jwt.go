package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/pdfchat/internal/pkg/jwt"
	"github.com/xxxsen/pdfchat/internal/pkg/response"
)

const (
	TokenCookie = "token"

	ContextUserIDKey   = "user_id"
	ContextIdentityKey = "identity"
	ContextTokenKey    = "token"
)

// TokenFromRequest returns the session token from the token cookie, falling back to a
// bearer Authorization header.
func TokenFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie(TokenCookie); err == nil && cookie != "" {
		return cookie
	}
	header := c.GetHeader("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// authenticate verifies the request token and stores the identity on the context.
func authenticate(c *gin.Context, secret []byte) bool {
	token := TokenFromRequest(c)
	if token == "" {
		return false
	}
	claims, err := jwt.ParseToken(token, secret)
	if err != nil {
		return false
	}
	c.Set(ContextUserIDKey, claims.Identity.ID)
	c.Set(ContextIdentityKey, claims.Identity)
	c.Set(ContextTokenKey, token)
	return true
}

// JWTAuth rejects requests without a valid token with 401 {"error": ...}.
func JWTAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(ContextUserIDKey); ok {
			c.Next()
			return
		}
		if !authenticate(c, secret) {
			response.Abort(c, 401, "Unauthorized")
			return
		}
		c.Next()
	}
}

func IdentityFrom(c *gin.Context) (jwt.Identity, bool) {
	v, ok := c.Get(ContextIdentityKey)
	if !ok {
		return jwt.Identity{}, false
	}
	id, ok := v.(jwt.Identity)
	return id, ok
}
