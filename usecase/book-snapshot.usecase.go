package usecase

import (
	"github.com/spooky-finn/go-coinbase-l3-bridge/domain"
)

// BookSnapshotUseCase serves depth-bounded views of the locally maintained
// order book to the surrounding application.
type BookSnapshotUseCase struct {
	client *domain.FeedClient
}

func NewBookSnapshotUseCase(client *domain.FeedClient) *BookSnapshotUseCase {
	return &BookSnapshotUseCase{
		client: client,
	}
}

// GetOrderBookSnapshot returns the current local book collapsed to maxDepth
// levels per side, or domain.ErrBookNotReady before the first seed. Must be
// called from the goroutine driving the client's Dispatch loop.
func (u *BookSnapshotUseCase) GetOrderBookSnapshot(maxDepth int) (*domain.BookView, error) {
	return u.client.OrderBookView(maxDepth)
}
