package handlers

import (
	"context"
	"time"

	"marketplace-client/internal/models"
	"marketplace-client/internal/ws"
)

// ListingStore is the listing side of the local cache.
type ListingStore interface {
	Listings() []models.Listing
	ListListings(ctx context.Context) ([]models.Listing, error)
	SearchListings(ctx context.Context, filter models.ListingFilter) ([]models.Listing, error)
	MyListings(ctx context.Context) ([]models.Listing, error)
	CreateListing(ctx context.Context, in models.NewListing) (models.Listing, error)
	UpdateListing(ctx context.Context, listingID int, upd models.ListingUpdate) (models.Listing, error)
	DeleteListing(ctx context.Context, listingID int) error
	UpdateSelectedListing(ctx context.Context, upd models.ListingUpdate) (models.Listing, error)
	DeleteSelectedListing(ctx context.Context) error
	SetSelectedListing(listingID int) error
	CurrentListing() (models.Listing, bool)
	ListingMessages(ctx context.Context, listingID int) ([]models.ChatMessage, error)
}

// UserStore is the user side of the local cache.
type UserStore interface {
	Users() []models.User
	ListUsers(ctx context.Context) ([]models.User, error)
	AddUser(ctx context.Context, in models.NewUser) (models.User, error)
	SetSelectedUser(userID int) error
	CurrentUser() (models.User, bool)
	EditSelectedUser(ctx context.Context, upd models.UserUpdate) (models.User, error)
	DeleteSelectedUser(ctx context.Context) error
}

// MirrorLifecycle loads and drops the whole mirror around login/logout.
type MirrorLifecycle interface {
	Initialize(ctx context.Context)
	Clear()
}

// Realtime is the realtime channel as seen by the bridge.
type Realtime interface {
	Connect(ctx context.Context) error
	Close() error
	JoinRoom(room string) error
	LeaveRoom() error
	SendMessage(text string, recipientID int) (models.OutgoingMessage, error)
	State() ws.State
	CurrentRoom() string
	Transport() string
	PendingMessages() int
}

// SessionManager is the credential holder as seen by the bridge.
type SessionManager interface {
	Token() string
	Authenticated() bool
	Admin() bool
	Subject() string
	Expired(now time.Time) bool
	Login(token string, admin bool) error
	Logout() error
}
