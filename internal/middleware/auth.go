package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const SubjectKey = "subject"

// SessionReader is the part of the session the bridge checks.
type SessionReader interface {
	Authenticated() bool
	Subject() string
}

// RequireSession rejects bridge calls while no credential is held. The
// credential's subject, when readable, is stored under SubjectKey.
func RequireSession(sess SessionReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !sess.Authenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not logged in"})
			return
		}
		if sub := sess.Subject(); sub != "" {
			c.Set(SubjectKey, sub)
		}
		c.Next()
	}
}
