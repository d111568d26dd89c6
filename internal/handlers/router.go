package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"marketplace-client/internal/middleware"
	"marketplace-client/internal/observability"
)

// Bridge bundles the handlers behind the local UI bridge.
type Bridge struct {
	ServiceName string
	Debug       bool

	Session  *SessionHandler
	Listings *ListingHandler
	Users    *UserHandler
	Chat     *ChatHandler

	Realtime     Realtime
	SessionGuard middleware.SessionReader
	DebugDeps    DebugDeps
}

// NewRouter builds the gin engine for the bridge.
func NewRouter(b Bridge) *gin.Engine {
	router := gin.New()

	// middlewares
	router.Use(gin.Recovery())
	if b.ServiceName != "" {
		router.Use(otelgin.Middleware(b.ServiceName))
	}
	router.Use(middleware.RequestID(), observability.HTTPMetricsMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "realtime": b.Realtime.State()})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/session", b.Session.GetSession)
	router.POST("/session", b.Session.Login)
	router.DELETE("/session", b.Session.Logout)

	authed := router.Group("/", middleware.RequireSession(b.SessionGuard))

	authed.GET("/listings", b.Listings.ListListings)
	authed.GET("/listings/search", b.Listings.SearchListings)
	authed.GET("/listings/mine", b.Listings.MyListings)
	authed.POST("/listings", b.Listings.CreateListing)
	authed.PUT("/listings/selected", b.Listings.UpdateSelectedListing)
	authed.DELETE("/listings/selected", b.Listings.DeleteSelectedListing)
	authed.PUT("/listings/:id", b.Listings.UpdateListing)
	authed.DELETE("/listings/:id", b.Listings.DeleteListing)
	authed.POST("/listings/:id/select", b.Listings.SelectListing)
	authed.GET("/listings/:id/messages", b.Listings.ListingMessages)

	authed.GET("/users", b.Users.ListUsers)
	authed.POST("/users", b.Users.AddUser)
	authed.POST("/users/:id/select", b.Users.SelectUser)
	authed.PUT("/users/selected", b.Users.EditSelectedUser)
	authed.DELETE("/users/selected", b.Users.DeleteSelectedUser)

	authed.POST("/chat/rooms/:room/join", b.Chat.JoinRoom)
	authed.POST("/chat/leave", b.Chat.LeaveRoom)
	authed.POST("/chat/messages", b.Chat.PostMessage)
	authed.GET("/chat/messages", b.Chat.GetMessages)

	RegisterDebugRoutes(router, b.DebugDeps, b.Debug)

	return router
}
