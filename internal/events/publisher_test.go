package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "listing.created", Subject("listing", ListingCreated))
	assert.Equal(t, "prod.listing.deleted", Subject("prod.listing", ListingDeleted))
}

func TestListingEvent_JSON(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	data, err := json.Marshal(ListingEvent{Type: ListingDeleted, ListingIDs: []string{"a", "b"}, OccurredAt: at})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"deleted","listing_ids":["a","b"],"occurred_at":"2024-03-01T10:00:00Z"}`, string(data))
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), ListingEvent{Type: ListingCreated}))
	p.Close()
}
