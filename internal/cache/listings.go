package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"marketplace-client/internal/models"
)

// ListListings replaces the listing mirror with the server's collection.
func (c *Cache) ListListings(ctx context.Context) ([]models.Listing, error) {
	var listings []models.Listing
	if err := c.api.FetchWithAuth(ctx, http.MethodGet, "/api/listings", nil, &listings); err != nil {
		c.log.Error(ctx, "error fetching listings", "error", err)
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.listings.Reset(listings)
	if c.currentListing != nil {
		if fresh, ok := c.listings.Find(c.currentListing.ID); ok {
			c.currentListing = &fresh
		}
	}
	return c.listings.All(), nil
}

// SearchListings queries the server with filters. The mirror is untouched.
func (c *Cache) SearchListings(ctx context.Context, filter models.ListingFilter) ([]models.Listing, error) {
	var listings []models.Listing
	if err := c.api.FetchWithAuth(ctx, http.MethodGet, listingsQuery(filter), nil, &listings); err != nil {
		c.log.Error(ctx, "error searching listings", "error", err)
		return nil, err
	}
	return listings, nil
}

// MyListings returns the caller's own listings. The mirror is untouched.
func (c *Cache) MyListings(ctx context.Context) ([]models.Listing, error) {
	var listings []models.Listing
	if err := c.api.FetchWithAuth(ctx, http.MethodGet, "/api/listings/user/me", nil, &listings); err != nil {
		c.log.Error(ctx, "error loading your listings", "error", err)
		return nil, err
	}
	return listings, nil
}

// ListingMessages loads the chat history of a listing.
func (c *Cache) ListingMessages(ctx context.Context, listingID int) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	path := fmt.Sprintf("/api/messages/%d", listingID)
	if err := c.api.FetchWithAuth(ctx, http.MethodGet, path, nil, &msgs); err != nil {
		c.log.Error(ctx, "error loading messages", "listing_id", listingID, "error", err)
		return nil, err
	}
	return msgs, nil
}

// CreateListing creates a listing and upserts the server's copy, which
// carries the server-assigned id. A new_listing push for the same id may
// already have landed.
func (c *Cache) CreateListing(ctx context.Context, in models.NewListing) (models.Listing, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Category = strings.TrimSpace(in.Category)
	in.Campus = strings.TrimSpace(in.Campus)
	if in.Title == "" || in.Category == "" || in.Campus == "" {
		return models.Listing{}, validationError("title, category, and campus are required")
	}
	if !validPrice(in.Price) {
		return models.Listing{}, validationError("price must be a non-negative number")
	}

	var created models.Listing
	if err := c.api.FetchWithAuth(ctx, http.MethodPost, "/api/listings/create", in, &created); err != nil {
		c.log.Error(ctx, "error creating listing", "error", err)
		return models.Listing{}, err
	}

	c.listings.Upsert(created)
	c.log.Info(ctx, "listing created", "listing_id", created.ID)
	return created, nil
}

// DeleteListing deletes a listing by id and clears the selection when it
// pointed at that listing.
func (c *Cache) DeleteListing(ctx context.Context, listingID int) error {
	path := fmt.Sprintf("/api/listings/%d", listingID)
	if err := c.api.FetchWithAuth(ctx, http.MethodDelete, path, nil, nil); err != nil {
		c.log.Error(ctx, "error deleting listing", "listing_id", listingID, "error", err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.listings.Remove(listingID)
	if c.currentListing != nil && c.currentListing.ID == listingID {
		c.currentListing = nil
	}
	return nil
}

// DeleteSelectedListing deletes the selected listing.
func (c *Cache) DeleteSelectedListing(ctx context.Context) error {
	selected, ok := c.CurrentListing()
	if !ok {
		c.log.Warn(ctx, "delete listing rejected", "error", ErrNoSelection)
		return ErrNoSelection
	}
	return c.DeleteListing(ctx, selected.ID)
}

// UpdateListing applies updates on the server and replaces the mirrored
// entry (and the selection, when it matches) with the server's copy.
func (c *Cache) UpdateListing(ctx context.Context, listingID int, upd models.ListingUpdate) (models.Listing, error) {
	if upd.Price != nil && !validPrice(*upd.Price) {
		return models.Listing{}, validationError("price must be a non-negative number")
	}

	var updated models.Listing
	path := fmt.Sprintf("/api/listings/%d", listingID)
	if err := c.api.FetchWithAuth(ctx, http.MethodPut, path, upd, &updated); err != nil {
		c.log.Error(ctx, "error updating listing", "listing_id", listingID, "error", err)
		return models.Listing{}, err
	}
	if updated.ID == 0 {
		updated.ID = listingID
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.listings.Replace(updated)
	if c.currentListing != nil && c.currentListing.ID == updated.ID {
		c.currentListing = &updated
	}
	return updated, nil
}

// UpdateSelectedListing updates the selected listing.
func (c *Cache) UpdateSelectedListing(ctx context.Context, upd models.ListingUpdate) (models.Listing, error) {
	selected, ok := c.CurrentListing()
	if !ok {
		c.log.Warn(ctx, "update listing rejected", "error", ErrNoSelection)
		return models.Listing{}, ErrNoSelection
	}
	return c.UpdateListing(ctx, selected.ID, upd)
}

// SetSelectedListing points the selection at a mirrored listing. An unknown
// id leaves the selection unchanged.
func (c *Cache) SetSelectedListing(listingID int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	listing, ok := c.listings.Find(listingID)
	if !ok {
		c.log.Warn(context.Background(), "listing not found", "listing_id", listingID)
		return fmt.Errorf("listing %d: %w", listingID, ErrNotFound)
	}
	c.currentListing = &listing
	return nil
}

// CurrentListing returns the selected listing, if any.
func (c *Cache) CurrentListing() (models.Listing, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.currentListing == nil {
		return models.Listing{}, false
	}
	return *c.currentListing, true
}

// ApplyNotification folds a realtime notification into the mirror.
// new_listing upserts the snapshot, listing_update only replaces an entry
// already mirrored, and a purchase refetches the collection.
func (c *Cache) ApplyNotification(ctx context.Context, n models.Notification) error {
	switch n.Type {
	case models.NotifyNewListing, models.NotifyListingUpdate:
		var listing models.Listing
		if err := json.Unmarshal(n.Data, &listing); err != nil {
			return fmt.Errorf("decode %s payload: %w", n.Type, err)
		}
		if listing.ID == 0 {
			_, err := c.ListListings(ctx)
			return err
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if n.Type == models.NotifyNewListing {
			c.listings.Upsert(listing)
		} else if !c.listings.Replace(listing) {
			c.log.Debug(ctx, "listing_update for unknown listing", "listing_id", listing.ID)
			return nil
		}
		if c.currentListing != nil && c.currentListing.ID == listing.ID {
			c.currentListing = &listing
		}
		return nil
	case models.NotifyPurchase:
		_, err := c.ListListings(ctx)
		return err
	default:
		c.log.Debug(ctx, "ignoring notification", "type", n.Type)
		return nil
	}
}
