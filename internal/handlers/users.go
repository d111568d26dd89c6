package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"marketplace-client/internal/models"
	"marketplace-client/internal/telemetry"
)

// UserHandler serves the user administration endpoints.
type UserHandler struct {
	store UserStore
	audit *telemetry.AuditEmitter
}

// NewUserHandler builds a UserHandler.
func NewUserHandler(store UserStore, audit *telemetry.AuditEmitter) *UserHandler {
	return &UserHandler{store: store, audit: audit}
}

// ListUsers reloads the user mirror from the server.
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.store.ListUsers(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	selected, _ := h.store.CurrentUser()
	c.JSON(http.StatusOK, gin.H{"users": users, "selected_id": selected.ID})
}

func (h *UserHandler) AddUser(c *gin.Context) {
	var req models.NewUser
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	created, err := h.store.AddUser(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	audit(c, h.audit, "user.create", fmt.Sprintf("user %d created", created.ID))
	c.JSON(http.StatusCreated, gin.H{"user": created})
}

func (h *UserHandler) SelectUser(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("id"))
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	if err := h.store.SetSelectedUser(userID); err != nil {
		writeError(c, err)
		return
	}
	selected, _ := h.store.CurrentUser()
	c.JSON(http.StatusOK, gin.H{"user": selected})
}

func (h *UserHandler) EditSelectedUser(c *gin.Context) {
	var req models.UserUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	updated, err := h.store.EditSelectedUser(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	audit(c, h.audit, "user.update", fmt.Sprintf("user %d updated", updated.ID))
	c.JSON(http.StatusOK, gin.H{"user": updated})
}

func (h *UserHandler) DeleteSelectedUser(c *gin.Context) {
	selected, _ := h.store.CurrentUser()
	if err := h.store.DeleteSelectedUser(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}

	audit(c, h.audit, "user.delete", fmt.Sprintf("user %d deleted", selected.ID))
	c.Status(http.StatusNoContent)
}
