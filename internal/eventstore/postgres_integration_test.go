package eventstore_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/rohmanhakim/listing-enricher/internal/events"
	"github.com/rohmanhakim/listing-enricher/internal/eventstore"
	"github.com/rohmanhakim/listing-enricher/internal/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs only when LISTING_ENRICHER_TEST_DATABASE_URL points at a disposable
// Postgres, for example the one from docker compose.
func testDatabaseURL(t *testing.T) string {
	t.Helper()
	dbURL := os.Getenv("LISTING_ENRICHER_TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("LISTING_ENRICHER_TEST_DATABASE_URL not set")
	}
	return dbURL
}

func TestPostgresStore_ImportAndLoad(t *testing.T) {
	dbURL := testDatabaseURL(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := eventstore.NewPostgresStore(ctx, &metadata.NoopSink{}, dbURL, eventstore.DefaultConnectRetry())
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.EnsureSchema(ctx))
	require.NoError(t, store.EnsureSchema(ctx))

	// unique ids keep reruns independent
	listingID := fmt.Sprintf("%d", time.Now().UnixNano())
	collections, err := events.Parse([]byte(fmt.Sprintf(`{
		"created": [{"listingId": %[1]q, "blockNumber": "100", "nightlyRate": "150000000000000000000", "maxGuests": 4,
		             "transactionHash": "0x0000000000000000000000000000000000000000000000000000000000000001"}],
		"metadataURISet": [
			{"listingId": %[1]q, "blockNumber": "100", "metadataURI": "A",
			 "transactionHash": "0x0000000000000000000000000000000000000000000000000000000000000001"},
			{"listingId": %[1]q, "blockNumber": "120", "metadataURI": "B", "transactionIndex": 2,
			 "transactionHash": "0x0000000000000000000000000000000000000000000000000000000000000002"},
			{"listingId": %[1]q, "blockNumber": "120", "metadataURI": "C", "transactionIndex": 2,
			 "transactionHash": "0x0000000000000000000000000000000000000000000000000000000000000002"}
		]
	}`, listingID)))
	require.NoError(t, err)

	inserted, err := store.Import(ctx, collections)
	require.NoError(t, err)
	assert.Equal(t, int64(4), inserted)

	inserted, err = store.Import(ctx, collections)
	require.NoError(t, err)
	assert.Equal(t, int64(0), inserted)

	loaded, err := events.Load(ctx, store)
	require.NoError(t, err)

	var uris []string
	for _, event := range loaded.MetadataURISet {
		if event.ListingID == listingID {
			uris = append(uris, event.MetadataURI)
		}
	}
	assert.Equal(t, []string{"A", "B", "C"}, uris)

	for _, event := range loaded.Created {
		if event.ListingID == listingID {
			assert.Equal(t, "150000000000000000000", event.NightlyRate.Dec())
			assert.Equal(t, uint32(4), event.MaxGuests)
		}
	}
}
