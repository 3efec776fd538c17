package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Context keys for request data
const (
	ContextKeyAuthType = "auth_type" // "bearer", "query" or "none"
)

// AuthType indicates how the request was authenticated
type AuthType string

const (
	AuthTypeNone   AuthType = "none"
	AuthTypeBearer AuthType = "bearer"
	AuthTypeQuery  AuthType = "query"
)

// TokenQueryParam carries the token on websocket upgrades.
const TokenQueryParam = "token"

// Middleware checks the bridge token on incoming requests.
type Middleware struct {
	token       []byte
	publicPaths map[string]bool
}

// NewMiddleware creates the middleware. An empty token disables authentication.
func NewMiddleware(token string) *Middleware {
	publicPaths := map[string]bool{
		"/health": true,
		"/ping":   true,
	}

	return &Middleware{
		token:       []byte(token),
		publicPaths: publicPaths,
	}
}

// Enabled reports whether a token is required.
func (m *Middleware) Enabled() bool {
	return len(m.token) > 0
}

// Handler returns a Gin middleware handler that authenticates requests.
func (m *Middleware) Handler() gin.HandlerFunc {
	if !m.Enabled() {
		return func(c *gin.Context) {
			c.Set(ContextKeyAuthType, AuthTypeNone)
			c.Next()
		}
	}

	return func(c *gin.Context) {
		if m.publicPaths[c.Request.URL.Path] {
			c.Set(ContextKeyAuthType, AuthTypeNone)
			c.Next()
			return
		}

		if token, ok := bearerToken(c); ok && m.matches(token) {
			c.Set(ContextKeyAuthType, AuthTypeBearer)
			c.Next()
			return
		}

		if token := c.Query(TokenQueryParam); token != "" && m.matches(token) {
			c.Set(ContextKeyAuthType, AuthTypeQuery)
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "authentication required",
		})
	}
}

func (m *Middleware) matches(token string) bool {
	return subtle.ConstantTimeCompare([]byte(token), m.token) == 1
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(c *gin.Context) (string, bool) {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// GetAuthType returns how the current request was authenticated.
func GetAuthType(c *gin.Context) AuthType {
	if v, ok := c.Get(ContextKeyAuthType); ok {
		if t, ok := v.(AuthType); ok {
			return t
		}
	}
	return AuthTypeNone
}
