package coinbase

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/spooky-finn/go-coinbase-l3-bridge/domain"
)

const (
	DefaultRestEndpoint = "https://api.exchange.coinbase.com"
	SandboxRestEndpoint = "https://api-public.sandbox.exchange.coinbase.com"

	snapshotRequestTimeout = 15 * time.Second
)

// SyncAPI fetches point-in-time book dumps from the exchange REST API.
type SyncAPI struct {
	endpoint string
	client   *http.Client
}

func NewSyncAPI(endpoint string) *SyncAPI {
	return &SyncAPI{
		endpoint: endpoint,
		client:   &http.Client{Timeout: snapshotRequestTimeout},
	}
}

// bookSnapshotModel is the wire shape of /products/{id}/book. At level 3
// each entry is [price, size, order_id], all strings.
type bookSnapshotModel struct {
	Sequence uint64     `json:"sequence"`
	Bids     [][]string `json:"bids"`
	Asks     [][]string `json:"asks"`
}

func (api *SyncAPI) OrderBookSnapshot(productID string, level int) (*domain.BookSnapshot, error) {
	url := fmt.Sprintf("%s/products/%s/book?level=%d", api.endpoint, productID, level)

	res, err := api.client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to get order book snapshot: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("order book snapshot request failed: status=%d body=%s", res.StatusCode, body)
	}

	data := &bookSnapshotModel{}
	if err = json.Unmarshal(body, data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response body: %w, data: %s", err, body)
	}

	bids, err := parseSnapshotOrders(data.Bids)
	if err != nil {
		return nil, fmt.Errorf("bad bids in snapshot: %w", err)
	}

	asks, err := parseSnapshotOrders(data.Asks)
	if err != nil {
		return nil, fmt.Errorf("bad asks in snapshot: %w", err)
	}

	return &domain.BookSnapshot{
		Sequence: data.Sequence,
		Bids:     bids,
		Asks:     asks,
	}, nil
}

func parseSnapshotOrders(entries [][]string) ([]domain.SnapshotOrder, error) {
	orders := make([]domain.SnapshotOrder, 0, len(entries))

	for _, entry := range entries {
		if len(entry) < 3 {
			return nil, fmt.Errorf("malformed book entry: %v", entry)
		}

		price, err := strconv.ParseFloat(entry[0], 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse price %q: %w", entry[0], err)
		}

		size, err := strconv.ParseFloat(entry[1], 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse size %q: %w", entry[1], err)
		}

		orders = append(orders, domain.SnapshotOrder{
			OrderID: entry[2],
			Price:   price,
			Size:    size,
		})
	}

	return orders, nil
}
