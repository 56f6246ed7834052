package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gamerz-app/gamerz/internal/adapters/signal"
	"github.com/gamerz-app/gamerz/internal/auth"
	"github.com/gamerz-app/gamerz/internal/config"
	"github.com/gamerz-app/gamerz/internal/core"
)

const identityKey = "identity"

// AuthMiddleware resolves the request's credential into a server-side
// identity and aborts unauthenticated requests.
func AuthMiddleware(resolver *auth.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, err := resolver.Resolve(tokenFromRequest(c))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Set(identityKey, ident)
		c.Next()
	}
}

// AdminMiddleware restricts a route to configured admin accounts. Must
// run after AuthMiddleware.
func AdminMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := identityFrom(c)
		if !cfg.IsAdmin(ident.Username) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin only"})
			return
		}
		c.Next()
	}
}

func identityFrom(c *gin.Context) core.Identity {
	ident, _ := c.MustGet(identityKey).(core.Identity)
	return ident
}

func tokenFromRequest(c *gin.Context) string {
	if token, err := c.Cookie(signal.CookieName); err == nil && token != "" {
		return token
	}
	const prefix = "Bearer "
	header := c.GetHeader("Authorization")
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}
