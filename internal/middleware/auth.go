package middleware

import (
	"github.com/gin-gonic/gin"

	"cyberwise/portal/internal/apperr"
	"cyberwise/portal/internal/service"
)

const principalKey = "principal"

// Auth resolves the session cookie into a Principal and rejects the request
// when there is none.
func Auth(auth *service.AuthService, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || token == "" {
			AbortWithError(c, apperr.Unauthenticated("Not authenticated"))
			return
		}

		principal, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// CurrentPrincipal returns the caller set by Auth.
func CurrentPrincipal(c *gin.Context) (service.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return service.Principal{}, false
	}
	p, ok := v.(service.Principal)
	return p, ok
}
