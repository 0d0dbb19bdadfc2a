package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"cyberwise/portal/internal/apperr"
)

const (
	corsAllowHeaders = "Content-Type, " + requestIDHeader
	corsAllowMethods = "GET, POST, PATCH, DELETE, OPTIONS"
)

// CORS reflects allowed origins with credentials so the session cookie
// travels. An empty list allows any origin. Preflights from other origins are
// refused.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin = strings.TrimRight(strings.TrimSpace(origin), "/"); origin != "" {
			allowed[origin] = struct{}{}
		}
	}
	originAllowed := func(origin string) bool {
		if len(allowed) == 0 {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}

		c.Writer.Header().Add("Vary", "Origin")
		if !originAllowed(origin) {
			if c.Request.Method == http.MethodOptions {
				AbortWithError(c, apperr.Forbidden("Origin not allowed"))
				return
			}
			c.Next()
			return
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Expose-Headers", requestIDHeader)

		if c.Request.Method == http.MethodOptions {
			c.Header("Access-Control-Allow-Headers", corsAllowHeaders)
			c.Header("Access-Control-Allow-Methods", corsAllowMethods)
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
