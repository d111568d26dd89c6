package middleware

import (
	"github.com/gin-gonic/gin"

	"marketplace-client/internal/observability"
)

const RequestIDKey = "request_id"

// RequestID propagates or assigns X-Request-Id.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := observability.RequestIDFromRequest(c.Request)
		c.Set(RequestIDKey, id)
		c.Header(observability.RequestIDHeader, id)
		c.Next()
	}
}
