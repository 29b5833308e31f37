package coinbase

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncAPI_OrderBookSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/BTC-USD/book", r.URL.Path)
		assert.Equal(t, "3", r.URL.Query().Get("level"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"sequence": 3458974832,
			"bids": [["295.96", "4.39088265", "3b0f1225-7f84-490b-a29f-0faef9de823a"]],
			"asks": [["295.97", "25.23542881", "da863862-25f4-4868-ac41-005d11ab0a5f"]]
		}`))
	}))
	defer server.Close()

	api := NewSyncAPI(server.URL)
	snapshot, err := api.OrderBookSnapshot("BTC-USD", 3)

	require.NoError(t, err)
	assert.Equal(t, uint64(3458974832), snapshot.Sequence)
	require.Len(t, snapshot.Bids, 1)
	assert.Equal(t, "3b0f1225-7f84-490b-a29f-0faef9de823a", snapshot.Bids[0].OrderID)
	assert.Equal(t, 295.96, snapshot.Bids[0].Price)
	assert.Equal(t, 4.39088265, snapshot.Bids[0].Size)
	require.Len(t, snapshot.Asks, 1)
	assert.Equal(t, 295.97, snapshot.Asks[0].Price)
}

func TestSyncAPI_OrderBookSnapshotHttpError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "NotFound"}`, http.StatusNotFound)
	}))
	defer server.Close()

	api := NewSyncAPI(server.URL)
	_, err := api.OrderBookSnapshot("NOPE-USD", 3)

	assert.Error(t, err)
}

func TestSyncAPI_OrderBookSnapshotMalformedEntry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"sequence": 1, "bids": [["295.96", "4.39"]], "asks": []}`))
	}))
	defer server.Close()

	api := NewSyncAPI(server.URL)
	_, err := api.OrderBookSnapshot("BTC-USD", 3)

	assert.Error(t, err)
}
