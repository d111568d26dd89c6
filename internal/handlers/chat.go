package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"marketplace-client/internal/chatview"
	"marketplace-client/internal/logging"
	"marketplace-client/internal/telemetry"
)

// ChatHandler relays room membership and chat sends to the realtime
// channel and serves the chat view.
type ChatHandler struct {
	rt       Realtime
	listings ListingStore
	view     *chatview.View
	audit    *telemetry.AuditEmitter
	log      logging.Logger
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(rt Realtime, listings ListingStore, view *chatview.View, audit *telemetry.AuditEmitter, log logging.Logger) *ChatHandler {
	if log == nil {
		log = logging.Nop()
	}
	return &ChatHandler{rt: rt, listings: listings, view: view, audit: audit, log: log}
}

// JoinRoom joins a room. Rooms named after a listing id get that
// listing's history loaded into the view.
func (h *ChatHandler) JoinRoom(c *gin.Context) {
	room := strings.TrimSpace(c.Param("room"))
	if room == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room"})
		return
	}
	if err := h.rt.JoinRoom(room); err != nil {
		writeError(c, err)
		return
	}

	if listingID, err := strconv.Atoi(room); err == nil && listingID > 0 {
		history, err := h.listings.ListingMessages(c.Request.Context(), listingID)
		if err != nil {
			h.log.Warn(c.Request.Context(), "chat history unavailable", "listing_id", listingID, "error", err)
		} else {
			h.view.Load(room, history)
		}
	}

	c.JSON(http.StatusOK, gin.H{"room": room, "entries": h.view.Entries(room)})
}

func (h *ChatHandler) LeaveRoom(c *gin.Context) {
	if err := h.rt.LeaveRoom(); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": h.rt.CurrentRoom()})
}

// PostMessage sends a chat message. The response carries the pending
// outgoing message; its final status shows up in the chat view.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	var req struct {
		Message     string `json:"message" binding:"required"`
		RecipientID int    `json:"recipient_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is empty"})
		return
	}

	msg, err := h.rt.SendMessage(req.Message, req.RecipientID)
	if err != nil {
		writeError(c, err)
		return
	}

	audit(c, h.audit, "chat.send", fmt.Sprintf("message %s to user %d", msg.ClientID, req.RecipientID))
	c.JSON(http.StatusAccepted, gin.H{"message": msg})
}

// GetMessages returns the chat view of ?room=, defaulting to the current
// room.
func (h *ChatHandler) GetMessages(c *gin.Context) {
	room := c.Query("room")
	if room == "" {
		room = h.rt.CurrentRoom()
	}
	c.JSON(http.StatusOK, gin.H{"room": room, "entries": h.view.Entries(room)})
}
