// Package render turns mirrored listings into display-ready cards.
package render

import (
	"fmt"
	"time"

	"marketplace-client/internal/models"
)

// DefaultImage is shown for listings without an image.
const DefaultImage = "data:image/svg+xml;base64,PHN2ZyB3aWR0aD0iMjAwIiBoZWlnaHQ9IjIwMCIgeG1sbnM9Imh0dHA6Ly93d3cudzMub3JnLzIwMDAvc3ZnIj48cmVjdCB3aWR0aD0iMjAwIiBoZWlnaHQ9IjIwMCIgZmlsbD0iI2VlZSIvPjx0ZXh0IHg9IjUwJSIgeT0iNTAlIiBmb250LWZhbWlseT0iQXJpYWwiIGZvbnQtc2l6ZT0iMjAiIHRleHQtYW5jaG9yPSJtaWRkbGUiIGR5PSIuM2VtIiBmaWxsPSIjYWFhIj5ObyBJbWFnZTwvdGV4dD48L3N2Zz4="

type Card struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Price       string `json:"price"`
	Category    string `json:"category"`
	Campus      string `json:"campus"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	Status      string `json:"status"`
	Seller      string `json:"seller,omitempty"`
	Posted      string `json:"posted"`
}

func Price(p float64) string {
	return fmt.Sprintf("$%.2f", p)
}

func NewCard(l models.Listing, now time.Time) Card {
	img := l.ImageURL
	if img == "" {
		img = DefaultImage
	}
	status := string(l.Status)
	if status == "" {
		status = string(models.ListingActive)
	}
	return Card{
		ID:          l.ID,
		Title:       l.Title,
		Price:       Price(l.Price),
		Category:    l.Category,
		Campus:      l.Campus,
		Description: l.Description,
		ImageURL:    img,
		Status:      status,
		Seller:      l.UserEmail,
		Posted:      TimeAgo(l.CreatedAt.Time, now),
	}
}

func Cards(listings []models.Listing, now time.Time) []Card {
	out := make([]Card, 0, len(listings))
	for _, l := range listings {
		out = append(out, NewCard(l, now))
	}
	return out
}

// TimeAgo renders the age of t relative to now. Unknown times and times in
// the future read as "just now".
func TimeAgo(t, now time.Time) string {
	if t.IsZero() {
		return "just now"
	}
	secs := int64(now.Sub(t) / time.Second)
	switch {
	case secs < 60:
		return "just now"
	case secs < 3600:
		return fmt.Sprintf("%d minutes ago", secs/60)
	case secs < 86400:
		return fmt.Sprintf("%d hours ago", secs/3600)
	}
	return fmt.Sprintf("%d days ago", secs/86400)
}
