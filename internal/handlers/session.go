package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"marketplace-client/internal/logging"
	"marketplace-client/internal/observability"
)

// SessionHandler hands the credential obtained elsewhere to the client and
// reports who is logged in.
type SessionHandler struct {
	sess   SessionManager
	mirror MirrorLifecycle
	rt     Realtime
	log    logging.Logger
}

// NewSessionHandler builds a SessionHandler.
func NewSessionHandler(sess SessionManager, mirror MirrorLifecycle, rt Realtime, log logging.Logger) *SessionHandler {
	if log == nil {
		log = logging.Nop()
	}
	return &SessionHandler{sess: sess, mirror: mirror, rt: rt, log: log}
}

func (h *SessionHandler) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"authenticated": h.sess.Authenticated(),
		"admin":         h.sess.Admin(),
		"subject":       h.sess.Subject(),
		"expired":       h.sess.Expired(time.Now()),
		"realtime":      h.rt.State(),
	})
}

// Login stores the credential, loads the mirror and opens the realtime
// channel. A failed connect is not an error here; the channel keeps
// retrying on its own.
func (h *SessionHandler) Login(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
		Admin bool   `json:"admin"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	previous := h.sess.Token()
	if err := h.sess.Login(req.Token, req.Admin); err != nil {
		writeError(c, err)
		return
	}

	ctx := c.Request.Context()
	if previous != "" && previous != h.sess.Token() {
		// A channel or mirror loaded under the old credential must not
		// outlive it.
		if err := h.rt.Close(); err != nil {
			h.log.Warn(ctx, "realtime close failed", "error", err)
		}
		h.mirror.Clear()
	}
	h.log.Info(ctx, "session login", "subject", h.sess.Subject(), "ip", observability.IPFromRequest(c.Request))
	h.mirror.Initialize(ctx)
	if err := h.rt.Connect(ctx); err != nil {
		h.log.Warn(ctx, "realtime connect after login failed", "error", err)
	}
	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"admin":         h.sess.Admin(),
		"subject":       h.sess.Subject(),
		"realtime":      h.rt.State(),
	})
}

// Logout drops the credential, closes the channel and clears the mirror.
func (h *SessionHandler) Logout(c *gin.Context) {
	if err := h.rt.Close(); err != nil {
		h.log.Warn(c.Request.Context(), "realtime close failed", "error", err)
	}
	if err := h.sess.Logout(); err != nil {
		writeError(c, err)
		return
	}
	h.mirror.Clear()
	c.Status(http.StatusNoContent)
}
