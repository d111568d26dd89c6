package cache

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"marketplace-client/internal/models"
)

// ListUsers replaces the user mirror with the server's collection.
func (c *Cache) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := c.api.FetchWithAuth(ctx, http.MethodGet, "/users", nil, &users); err != nil {
		c.log.Error(ctx, "error fetching users", "error", err)
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.users.Reset(users)
	if c.currentUser != nil {
		if fresh, ok := c.users.Find(c.currentUser.ID); ok {
			c.currentUser = &fresh
		}
	}
	return c.users.All(), nil
}

// AddUser creates a user on the server and upserts the server's copy.
func (c *Cache) AddUser(ctx context.Context, in models.NewUser) (models.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	if in.Email == "" || in.Password == "" || strings.TrimSpace(in.Description) == "" {
		err := validationError("email, password, and description are required")
		c.log.Warn(ctx, "add user rejected", "error", err)
		return models.User{}, err
	}

	var created models.User
	if err := c.api.FetchWithAuth(ctx, http.MethodPost, "/add_user", in, &created); err != nil {
		c.log.Error(ctx, "error adding user", "error", err)
		return models.User{}, err
	}

	c.users.Upsert(created)
	c.log.Info(ctx, "user added", "user_id", created.ID)
	return created, nil
}

// SetSelectedUser points the selection at a mirrored user. An unknown id
// leaves the selection unchanged.
func (c *Cache) SetSelectedUser(userID int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	user, ok := c.users.Find(userID)
	if !ok {
		c.log.Warn(context.Background(), "user not found", "user_id", userID)
		return fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	c.currentUser = &user
	return nil
}

// CurrentUser returns the selected user, if any.
func (c *Cache) CurrentUser() (models.User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.currentUser == nil {
		return models.User{}, false
	}
	return *c.currentUser, true
}

// DeleteSelectedUser deletes the selected user and clears the selection.
func (c *Cache) DeleteSelectedUser(ctx context.Context) error {
	selected, ok := c.CurrentUser()
	if !ok {
		c.log.Warn(ctx, "delete user rejected", "error", ErrNoSelection)
		return ErrNoSelection
	}

	path := fmt.Sprintf("/delete_user/%d", selected.ID)
	if err := c.api.FetchWithAuth(ctx, http.MethodDelete, path, nil, nil); err != nil {
		c.log.Error(ctx, "error deleting user", "user_id", selected.ID, "error", err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.users.Remove(selected.ID)
	if c.currentUser != nil && c.currentUser.ID == selected.ID {
		c.currentUser = nil
	}
	c.log.Info(ctx, "user deleted", "user_id", selected.ID)
	return nil
}

// EditSelectedUser updates the selected user with the server's response.
func (c *Cache) EditSelectedUser(ctx context.Context, upd models.UserUpdate) (models.User, error) {
	selected, ok := c.CurrentUser()
	if !ok {
		c.log.Warn(ctx, "edit user rejected", "error", ErrNoSelection)
		return models.User{}, ErrNoSelection
	}

	var updated models.User
	path := fmt.Sprintf("/edit_user/%d", selected.ID)
	if err := c.api.FetchWithAuth(ctx, http.MethodPut, path, upd, &updated); err != nil {
		c.log.Error(ctx, "error updating user", "user_id", selected.ID, "error", err)
		return models.User{}, err
	}
	if updated.ID == 0 {
		updated.ID = selected.ID
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.users.Replace(updated)
	if c.currentUser != nil && c.currentUser.ID == updated.ID {
		c.currentUser = &updated
	}
	return updated, nil
}
