package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"marketplace-client/internal/telemetry"
)

// DebugDeps is what the debug endpoints inspect.
type DebugDeps struct {
	Listings ListingStore
	Users    UserStore
	Realtime Realtime
	Audit    *telemetry.AuditEmitter
}

// RegisterDebugRoutes wires debug-only endpoints.
func RegisterDebugRoutes(router gin.IRoutes, deps DebugDeps, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/state", func(c *gin.Context) {
		state := gin.H{
			"realtime": gin.H{
				"state":     deps.Realtime.State(),
				"transport": deps.Realtime.Transport(),
				"room":      deps.Realtime.CurrentRoom(),
				"pending":   deps.Realtime.PendingMessages(),
			},
			"listings": len(deps.Listings.Listings()),
			"users":    len(deps.Users.Users()),
		}
		if l, ok := deps.Listings.CurrentListing(); ok {
			state["selected_listing"] = l.ID
		}
		if u, ok := deps.Users.CurrentUser(); ok {
			state["selected_user"] = u.ID
		}
		c.JSON(http.StatusOK, state)
	})

	router.GET("/debug/audit-test", func(c *gin.Context) {
		if deps.Audit == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		audit(c, deps.Audit, "debug.audit_test", "audit test")
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
