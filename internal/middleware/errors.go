package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	"cyberwise/portal/internal/apperr"
)

const internalErrorMessage = "Internal server error"

// AbortWithError writes err as the JSON error envelope and stops the chain.
// Errors without a kind become internal_error with their message hidden; the
// cause stays on the context for the request logger.
func AbortWithError(c *gin.Context, err error) {
	_ = c.Error(err)

	kind := apperr.KindOf(err)
	body := gin.H{"error": kind}
	if kind == apperr.KindInternal {
		body["message"] = internalErrorMessage
	} else {
		body["message"] = err.Error()
		if details := detailsOf(err); details != nil {
			body["details"] = details
		}
	}
	c.AbortWithStatusJSON(apperr.HTTPStatus(kind), body)
}

func detailsOf(err error) map[string]any {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr.Details
	}
	return nil
}
