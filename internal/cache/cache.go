// Package cache mirrors the server's users and listings on the client and
// tracks the UI's current selections.
//
// Every write goes to the server first; the mirror only changes after the
// server confirmed it. Network I/O never runs under the cache lock, so
// overlapping writes on one entity resolve as "last response wins".
package cache

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"sync"

	"marketplace-client/internal/logging"
	"marketplace-client/internal/models"
	"marketplace-client/internal/repositories"
)

var (
	ErrNoSelection = errors.New("no selection")
	ErrNotFound    = errors.New("not found")
	ErrValidation  = errors.New("validation failed")
)

// Fetcher performs authenticated round trips; see api.Client.
type Fetcher interface {
	FetchWithAuth(ctx context.Context, method, path string, body, out any) error
}

// Cache is the client-side mirror. It is safe for concurrent use.
type Cache struct {
	api      Fetcher
	log      logging.Logger
	users    *repositories.UserRepository
	listings *repositories.ListingRepository

	mu             sync.RWMutex
	currentUser    *models.User
	currentListing *models.Listing
}

func New(api Fetcher, log logging.Logger) *Cache {
	if log == nil {
		log = logging.Nop()
	}
	return &Cache{
		api:      api,
		log:      log.With("component", "cache"),
		users:    repositories.NewUserRepo(),
		listings: repositories.NewListingRepo(),
	}
}

// Initialize loads the listing collection once. Failures are logged and
// swallowed so startup continues with an empty mirror.
func (c *Cache) Initialize(ctx context.Context) {
	listings, err := c.ListListings(ctx)
	if err != nil {
		c.log.Error(ctx, "error initializing listing cache", "error", err)
		return
	}
	c.log.Info(ctx, "listing cache initialized", "count", len(listings))
}

// Users returns a snapshot of the user mirror.
func (c *Cache) Users() []models.User {
	return c.users.All()
}

// Listings returns a snapshot of the listing mirror.
func (c *Cache) Listings() []models.Listing {
	return c.listings.All()
}

// Clear drops the mirror and both selections, e.g. after logout.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users.Reset(nil)
	c.listings.Reset(nil)
	c.currentUser = nil
	c.currentListing = nil
}

func validationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

func validPrice(p float64) bool {
	return p >= 0 && !math.IsNaN(p) && !math.IsInf(p, 0)
}

// filterValue maps the UI's "show everything" placeholders to no filter.
func filterValue(v string) string {
	v = strings.TrimSpace(v)
	switch v {
	case "All Campuses", "All Categories":
		return ""
	}
	return v
}

func listingsQuery(f models.ListingFilter) string {
	q := url.Values{}
	q.Set("search", strings.TrimSpace(f.Search))
	q.Set("campus", filterValue(f.Campus))
	q.Set("category", filterValue(f.Category))
	return "/api/listings?" + q.Encode()
}
