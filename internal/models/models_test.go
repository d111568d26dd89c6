package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListingDecodesServerPayload(t *testing.T) {
	raw := `{"id":4,"title":"Desk","price":40,"category":"Furniture","campus":"Main",
		"description":"oak","image_url":null,"created_at":"2024-03-01T10:15:30.123456",
		"status":"active","user_id":2,"user_email":"s@campus.edu"}`

	var l Listing
	require.NoError(t, json.Unmarshal([]byte(raw), &l))

	assert.Equal(t, 4, l.ID)
	assert.Equal(t, 40.0, l.Price)
	assert.Equal(t, ListingActive, l.Status)
	assert.Empty(t, l.ImageURL)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 15, 30, 123456000, time.UTC), l.CreatedAt.Time)
}

func TestTimestampLayouts(t *testing.T) {
	cases := map[string]time.Time{
		`"2024-03-01T10:15:30Z"`:      time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC),
		`"2024-03-01T12:15:30+02:00"`: time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC),
		`"2024-03-01T10:15:30"`:       time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC),
		`"2024-03-01 10:15:30.5"`:     time.Date(2024, 3, 1, 10, 15, 30, 500000000, time.UTC),
	}
	for in, want := range cases {
		var ts Timestamp
		require.NoError(t, json.Unmarshal([]byte(in), &ts), in)
		assert.True(t, want.Equal(ts.Time), in)
	}

	var empty Timestamp
	require.NoError(t, json.Unmarshal([]byte(`""`), &empty))
	assert.True(t, empty.IsZero())

	var bad Timestamp
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &bad))
}

func TestListingUpdateOmitsUnsetFields(t *testing.T) {
	price := 12.5
	data, err := json.Marshal(ListingUpdate{Price: &price})
	require.NoError(t, err)
	assert.JSONEq(t, `{"price":12.5}`, string(data))
}
