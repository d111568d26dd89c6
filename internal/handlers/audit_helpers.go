package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"marketplace-client/internal/middleware"
	"marketplace-client/internal/telemetry"
)

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(middleware.RequestIDKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(middleware.RequestIDKey, requestID)
	return requestID
}

func subjectFromContext(c *gin.Context) *string {
	if sub := c.GetString(middleware.SubjectKey); sub != "" {
		return &sub
	}
	return nil
}

func audit(c *gin.Context, emitter *telemetry.AuditEmitter, action, text string) {
	emitter.Emit(c.Request.Context(), "INFO", action, text, requestIDFromContext(c), subjectFromContext(c))
}
