package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"marketplace-client/internal/models"
)

func TestTimeAgo(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		ago  time.Duration
		want string
	}{
		{0, "just now"},
		{59 * time.Second, "just now"},
		{60 * time.Second, "1 minutes ago"},
		{59 * time.Minute, "59 minutes ago"},
		{3 * time.Hour, "3 hours ago"},
		{23*time.Hour + 59*time.Minute, "23 hours ago"},
		{48 * time.Hour, "2 days ago"},
		{-time.Hour, "just now"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, TimeAgo(now.Add(-tc.ago), now), tc.ago.String())
	}
	assert.Equal(t, "just now", TimeAgo(time.Time{}, now))
}

func TestNewCard(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	l := models.Listing{
		ID:        4,
		Title:     "Desk",
		Price:     40,
		Campus:    "North",
		CreatedAt: models.Timestamp{Time: now.Add(-3 * time.Hour)},
		UserEmail: "s@x.edu",
	}

	card := NewCard(l, now)

	assert.Equal(t, "$40.00", card.Price)
	assert.Equal(t, DefaultImage, card.ImageURL)
	assert.Equal(t, "active", card.Status)
	assert.Equal(t, "3 hours ago", card.Posted)
	assert.Equal(t, "s@x.edu", card.Seller)

	l.ImageURL = "https://img.example/desk.png"
	l.Status = models.ListingPurchased
	card = NewCard(l, now)
	assert.Equal(t, "https://img.example/desk.png", card.ImageURL)
	assert.Equal(t, "purchased", card.Status)
}

func TestPriceRounding(t *testing.T) {
	assert.Equal(t, "$0.00", Price(0))
	assert.Equal(t, "$12.50", Price(12.5))
	assert.Equal(t, "$3.33", Price(10.0/3))
}

func TestCardsEmpty(t *testing.T) {
	assert.Empty(t, Cards(nil, time.Now()))
	assert.NotNil(t, Cards(nil, time.Now()))
}
