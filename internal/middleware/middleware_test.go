package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	authed  bool
	subject string
}

func (f fakeSession) Authenticated() bool { return f.authed }
func (f fakeSession) Subject() string     { return f.subject }

func setupRouter(sess SessionReader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), RequireSession(sess))
	r.GET("/who", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"subject": c.GetString(SubjectKey), "request_id": c.GetString(RequestIDKey)})
	})
	return r
}

func TestRequireSessionRejectsAnonymous(t *testing.T) {
	r := setupRouter(fakeSession{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/who", nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestRequireSessionSetsSubject(t *testing.T) {
	r := setupRouter(fakeSession{authed: true, subject: "42"})

	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	req.Header.Set("X-Request-Id", "req-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"subject":"42","request_id":"req-1"}`, rec.Body.String())
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-Id"))
}
