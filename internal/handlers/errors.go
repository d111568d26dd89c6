package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"marketplace-client/internal/api"
	"marketplace-client/internal/cache"
	"marketplace-client/internal/session"
	"marketplace-client/internal/ws"
)

// statusFor maps domain errors onto bridge status codes.
func statusFor(err error) (int, string) {
	var apiErr *api.APIError
	switch {
	case errors.Is(err, cache.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, session.ErrNoCredential):
		return http.StatusUnauthorized, "not logged in"
	case errors.Is(err, cache.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, cache.ErrNoSelection):
		return http.StatusConflict, "nothing selected"
	case errors.Is(err, ws.ErrNotConnected):
		return http.StatusServiceUnavailable, "realtime channel not connected"
	case errors.As(err, &apiErr):
		return http.StatusBadGateway, apiErr.Error()
	case errors.Is(err, api.ErrUnreachable):
		return http.StatusBadGateway, "server unreachable"
	case errors.Is(err, api.ErrBadResponse):
		return http.StatusBadGateway, "unexpected server response"
	}
	return http.StatusInternalServerError, "internal error"
}

func writeError(c *gin.Context, err error) {
	status, msg := statusFor(err)
	c.JSON(status, gin.H{"error": msg})
}
