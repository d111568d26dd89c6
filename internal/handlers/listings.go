package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"marketplace-client/internal/models"
	"marketplace-client/internal/render"
	"marketplace-client/internal/telemetry"
)

// ListingHandler serves listing cards and listing writes.
type ListingHandler struct {
	store ListingStore
	audit *telemetry.AuditEmitter
	now   func() time.Time
}

// NewListingHandler builds a ListingHandler.
func NewListingHandler(store ListingStore, audit *telemetry.AuditEmitter) *ListingHandler {
	return &ListingHandler{store: store, audit: audit, now: time.Now}
}

// ListListings returns the mirrored listings as cards. ?refresh=true
// reloads the mirror first.
func (h *ListingHandler) ListListings(c *gin.Context) {
	listings := h.store.Listings()
	if c.Query("refresh") == "true" {
		fresh, err := h.store.ListListings(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		listings = fresh
	}
	c.JSON(http.StatusOK, gin.H{"listings": render.Cards(listings, h.now())})
}

// SearchListings filters on the server without touching the mirror.
func (h *ListingHandler) SearchListings(c *gin.Context) {
	var filter models.ListingFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	listings, err := h.store.SearchListings(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listings": render.Cards(listings, h.now())})
}

// MyListings returns the caller's own listings.
func (h *ListingHandler) MyListings(c *gin.Context) {
	listings, err := h.store.MyListings(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listings": render.Cards(listings, h.now())})
}

func (h *ListingHandler) CreateListing(c *gin.Context) {
	var req models.NewListing
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.store.CreateListing(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	audit(c, h.audit, "listing.create", fmt.Sprintf("listing %d created", created.ID))
	c.JSON(http.StatusCreated, gin.H{"listing": created, "card": render.NewCard(created, h.now())})
}

func (h *ListingHandler) UpdateListing(c *gin.Context) {
	listingID, ok := listingIDParam(c)
	if !ok {
		return
	}
	var req models.ListingUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.store.UpdateListing(c.Request.Context(), listingID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	audit(c, h.audit, "listing.update", fmt.Sprintf("listing %d updated", listingID))
	c.JSON(http.StatusOK, gin.H{"listing": updated, "card": render.NewCard(updated, h.now())})
}

func (h *ListingHandler) DeleteListing(c *gin.Context) {
	listingID, ok := listingIDParam(c)
	if !ok {
		return
	}
	if err := h.store.DeleteListing(c.Request.Context(), listingID); err != nil {
		writeError(c, err)
		return
	}

	audit(c, h.audit, "listing.delete", fmt.Sprintf("listing %d deleted", listingID))
	c.Status(http.StatusNoContent)
}

// SelectListing points the selection at a mirrored listing.
// UpdateSelectedListing edits whatever listing is selected.
func (h *ListingHandler) UpdateSelectedListing(c *gin.Context) {
	var req models.ListingUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.store.UpdateSelectedListing(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	audit(c, h.audit, "listing.update", fmt.Sprintf("listing %d updated", updated.ID))
	c.JSON(http.StatusOK, gin.H{"listing": updated, "card": render.NewCard(updated, h.now())})
}

func (h *ListingHandler) DeleteSelectedListing(c *gin.Context) {
	selected, _ := h.store.CurrentListing()
	if err := h.store.DeleteSelectedListing(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}

	audit(c, h.audit, "listing.delete", fmt.Sprintf("listing %d deleted", selected.ID))
	c.Status(http.StatusNoContent)
}

func (h *ListingHandler) SelectListing(c *gin.Context) {
	listingID, ok := listingIDParam(c)
	if !ok {
		return
	}
	if err := h.store.SetSelectedListing(listingID); err != nil {
		writeError(c, err)
		return
	}
	selected, _ := h.store.CurrentListing()
	c.JSON(http.StatusOK, gin.H{"listing": selected, "card": render.NewCard(selected, h.now())})
}

// ListingMessages returns the chat history of a listing.
func (h *ListingHandler) ListingMessages(c *gin.Context) {
	listingID, ok := listingIDParam(c)
	if !ok {
		return
	}
	msgs, err := h.store.ListingMessages(c.Request.Context(), listingID)
	if err != nil {
		writeError(c, err)
		return
	}
	if msgs == nil {
		msgs = []models.ChatMessage{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func listingIDParam(c *gin.Context) (int, bool) {
	listingID, err := strconv.Atoi(c.Param("id"))
	if err != nil || listingID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid listing id"})
		return 0, false
	}
	return listingID, true
}
