package models

import (
	"encoding/json"
	"strings"
	"time"
)

// ListingStatus is the lifecycle state reported by the server.
type ListingStatus string

const (
	ListingActive    ListingStatus = "active"
	ListingPurchased ListingStatus = "purchased"
)

// Listing is the client-side copy of a server listing.
type Listing struct {
	ID          int           `json:"id"`
	Title       string        `json:"title"`
	Price       float64       `json:"price"`
	Category    string        `json:"category"`
	Campus      string        `json:"campus"`
	Description string        `json:"description"`
	ImageURL    string        `json:"image_url,omitempty"`
	CreatedAt   Timestamp     `json:"created_at"`
	Status      ListingStatus `json:"status"`
	UserID      int           `json:"user_id"`
	UserEmail   string        `json:"user_email,omitempty"`
}

// NewListing is the create-call body. The server assigns the id.
type NewListing struct {
	Title       string  `json:"title"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	Campus      string  `json:"campus"`
	Description string  `json:"description"`
	ImageURL    string  `json:"image_url,omitempty"`
}

// ListingUpdate carries only the fields to change.
type ListingUpdate struct {
	Title       *string        `json:"title,omitempty"`
	Price       *float64       `json:"price,omitempty"`
	Category    *string        `json:"category,omitempty"`
	Campus      *string        `json:"campus,omitempty"`
	Description *string        `json:"description,omitempty"`
	ImageURL    *string        `json:"image_url,omitempty"`
	Status      *ListingStatus `json:"status,omitempty"`
}

// ListingFilter narrows a listing search. Empty fields and the "All ..."
// placeholders mean no filter.
type ListingFilter struct {
	Search   string `json:"search" form:"search"`
	Campus   string `json:"campus" form:"campus"`
	Category string `json:"category" form:"category"`
}

// Timestamp accepts RFC 3339 as well as the zone-less ISO form the server
// emits (naive UTC).
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	var lastErr error
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, raw)
		if err == nil {
			t.Time = parsed.UTC()
			return nil
		}
		lastErr = err
	}
	return lastErr
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}
