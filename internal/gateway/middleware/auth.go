package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"affiliate-ledger/internal/utils"
)

const claimsKey = "claims"

func abortWith(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{
		"success": false,
		"message": message,
	})
}

// JWTAuth requires a valid "Authorization: Bearer <token>" header and
// stores the parsed claims on the context.
func JWTAuth(issuer *utils.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			abortWith(c, http.StatusUnauthorized, "Missing bearer token")
			return
		}

		claims, err := issuer.ParseToken(strings.TrimSpace(token))
		if err != nil {
			abortWith(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireRole lets the request through only if JWTAuth ran and the token
// carries one of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			abortWith(c, http.StatusUnauthorized, "Missing bearer token")
			return
		}
		if !slices.Contains(roles, claims.Role) {
			abortWith(c, http.StatusForbidden, "Insufficient role")
			return
		}
		c.Next()
	}
}

func ClaimsFrom(c *gin.Context) (*utils.Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*utils.Claims)
	return claims, ok
}

// SetClaims is used by tests and internal callers that authenticate by
// other means.
func SetClaims(c *gin.Context, claims *utils.Claims) {
	c.Set(claimsKey, claims)
}

func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
