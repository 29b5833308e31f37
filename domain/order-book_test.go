package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedSnapshot() *BookSnapshot {
	return &BookSnapshot{
		Sequence: 100,
		Bids:     []SnapshotOrder{{OrderID: "bid-1", Price: 10.00, Size: 1.0}},
		Asks:     []SnapshotOrder{{OrderID: "ask-1", Price: 10.10, Size: 2.0}},
	}
}

func TestOrderBook_LoadSnapshot(t *testing.T) {
	book := NewOrderBook()
	book.LoadSnapshot(seedSnapshot())

	assert.True(t, book.Seeded())
	assert.Equal(t, uint64(100), book.Sequence())
	assert.Equal(t, []BookLevel{{Price: 10.00, Size: 1.0}}, book.Bids(0))
	assert.Equal(t, []BookLevel{{Price: 10.10, Size: 2.0}}, book.Asks(0))
}

func TestOrderBook_LoadSnapshotClearsPriorState(t *testing.T) {
	book := NewOrderBook()
	book.LoadSnapshot(seedSnapshot())
	book.ApplyOpen(&OrderEvent{Kind: EventOrderOpen, Sequence: 101, OrderID: "o-1", Side: Bid, Price: 9.90, Size: 3.0})

	reseed := &BookSnapshot{
		Sequence: 200,
		Bids:     []SnapshotOrder{{OrderID: "bid-2", Price: 11.00, Size: 0.5}},
		Asks:     []SnapshotOrder{{OrderID: "ask-2", Price: 11.10, Size: 0.7}},
	}
	book.LoadSnapshot(reseed)

	// The book must exactly match the snapshot, whatever was there before.
	assert.Equal(t, uint64(200), book.Sequence())
	assert.Equal(t, []BookLevel{{Price: 11.00, Size: 0.5}}, book.Bids(0))
	assert.Equal(t, []BookLevel{{Price: 11.10, Size: 0.7}}, book.Asks(0))
	assert.Equal(t, 2, book.OpenOrders())
}

func TestOrderBook_ApplyBeforeSeedIsNoop(t *testing.T) {
	book := NewOrderBook()

	assert.False(t, book.ApplyReceived(&OrderEvent{Kind: EventOrderReceived, Sequence: 1, OrderID: "o-1"}))
	assert.False(t, book.ApplyOpen(&OrderEvent{Kind: EventOrderOpen, Sequence: 2, OrderID: "o-1", Side: Bid, Price: 10, Size: 1}))
	assert.False(t, book.ApplyDone(&OrderEvent{Kind: EventOrderDone, Sequence: 3, OrderID: "o-1"}))
	assert.Equal(t, uint64(0), book.Sequence())
	assert.Empty(t, book.Bids(0))
}

func TestOrderBook_ApplyOpenAppendsToLevel(t *testing.T) {
	book := NewOrderBook()
	book.LoadSnapshot(seedSnapshot())

	changed := book.ApplyOpen(&OrderEvent{Kind: EventOrderOpen, Sequence: 101, OrderID: "o-1", Side: Bid, Price: 10.00, Size: 0.5})

	assert.True(t, changed)
	assert.Equal(t, uint64(101), book.Sequence())
	assert.Equal(t, []BookLevel{{Price: 10.00, Size: 1.5}}, book.Bids(0))
}

func TestOrderBook_ApplyReceivedNeverTouchesLevels(t *testing.T) {
	book := NewOrderBook()
	book.LoadSnapshot(seedSnapshot())

	changed := book.ApplyReceived(&OrderEvent{Kind: EventOrderReceived, Sequence: 101, OrderID: "o-1", Side: Bid, Price: 10.00, Size: 0.5})

	assert.False(t, changed)
	assert.Equal(t, uint64(100), book.Sequence())
	assert.Equal(t, []BookLevel{{Price: 10.00, Size: 1.0}}, book.Bids(0))
}

func TestOrderBook_ApplyDoneRemovesEmptyLevel(t *testing.T) {
	book := NewOrderBook()
	book.LoadSnapshot(seedSnapshot())

	changed := book.ApplyDone(&OrderEvent{Kind: EventOrderDone, Sequence: 101, OrderID: "ask-1", Reason: "canceled"})

	assert.True(t, changed)
	assert.Empty(t, book.Asks(0))
	assert.Equal(t, []BookLevel{{Price: 10.00, Size: 1.0}}, book.Bids(0))
}

func TestOrderBook_ApplyMatchRemovesExhaustedOrder(t *testing.T) {
	book := NewOrderBook()
	book.LoadSnapshot(seedSnapshot())

	changed := book.ApplyMatch(&OrderEvent{Kind: EventOrderMatch, Sequence: 101, MakerOrderID: "ask-1", Size: 0.5})
	require.True(t, changed)
	assert.Equal(t, []BookLevel{{Price: 10.10, Size: 1.5}}, book.Asks(0))

	changed = book.ApplyMatch(&OrderEvent{Kind: EventOrderMatch, Sequence: 102, MakerOrderID: "ask-1", Size: 1.5})
	require.True(t, changed)

	// No zero-size levels are ever reported.
	assert.Empty(t, book.Asks(0))
	assert.Equal(t, uint64(102), book.Sequence())
}

func TestOrderBook_ApplyChange(t *testing.T) {
	book := NewOrderBook()
	book.LoadSnapshot(seedSnapshot())

	changed := book.ApplyChange(&OrderEvent{Kind: EventOrderChange, Sequence: 101, OrderID: "ask-1", Size: 0.25})

	assert.True(t, changed)
	assert.Equal(t, []BookLevel{{Price: 10.10, Size: 0.25}}, book.Asks(0))
}

func TestOrderBook_UnknownIDIsTolerated(t *testing.T) {
	book := NewOrderBook()
	book.LoadSnapshot(seedSnapshot())

	assert.False(t, book.ApplyDone(&OrderEvent{Kind: EventOrderDone, Sequence: 101, OrderID: "ghost"}))
	assert.False(t, book.ApplyMatch(&OrderEvent{Kind: EventOrderMatch, Sequence: 102, MakerOrderID: "ghost", Size: 1}))
	assert.False(t, book.ApplyChange(&OrderEvent{Kind: EventOrderChange, Sequence: 103, OrderID: "ghost", Size: 1}))

	// Nothing changed, including the sequence.
	assert.Equal(t, uint64(100), book.Sequence())
	assert.Equal(t, []BookLevel{{Price: 10.00, Size: 1.0}}, book.Bids(0))
	assert.Equal(t, []BookLevel{{Price: 10.10, Size: 2.0}}, book.Asks(0))
}

func TestOrderBook_InvalidateRejectsApplies(t *testing.T) {
	book := NewOrderBook()
	book.LoadSnapshot(seedSnapshot())
	book.Invalidate()

	assert.False(t, book.Seeded())
	assert.False(t, book.ApplyOpen(&OrderEvent{Kind: EventOrderOpen, Sequence: 101, OrderID: "o-1", Side: Bid, Price: 9.00, Size: 1}))
	assert.Equal(t, uint64(100), book.Sequence())

	// A later snapshot load restores the book.
	book.LoadSnapshot(seedSnapshot())
	assert.True(t, book.Seeded())
	assert.Equal(t, []BookLevel{{Price: 10.00, Size: 1.0}}, book.Bids(0))
}

func TestOrderBook_SidesAreBestFirst(t *testing.T) {
	book := NewOrderBook()
	book.LoadSnapshot(&BookSnapshot{Sequence: 1})

	prices := []float64{10.02, 10.00, 10.05, 10.01}
	for i, price := range prices {
		book.ApplyOpen(&OrderEvent{Kind: EventOrderOpen, Sequence: uint64(i + 2), OrderID: bidID(i), Side: Bid, Price: price, Size: 1})
		book.ApplyOpen(&OrderEvent{Kind: EventOrderOpen, Sequence: uint64(i + 10), OrderID: askID(i), Side: Ask, Price: price + 1, Size: 1})
	}

	bids := book.Bids(0)
	asks := book.Asks(0)

	for i := 1; i < len(bids); i++ {
		assert.Greater(t, bids[i-1].Price, bids[i].Price)
	}
	for i := 1; i < len(asks); i++ {
		assert.Less(t, asks[i-1].Price, asks[i].Price)
	}
}

func TestOrderBook_TakeViewBoundsDepth(t *testing.T) {
	book := NewOrderBook()
	book.LoadSnapshot(&BookSnapshot{
		Sequence: 50,
		Bids: []SnapshotOrder{
			{OrderID: "b1", Price: 10.00, Size: 1},
			{OrderID: "b2", Price: 9.99, Size: 1},
			{OrderID: "b3", Price: 9.98, Size: 1},
		},
	})

	view := book.TakeView(2)

	assert.Equal(t, uint64(50), view.Sequence)
	assert.Len(t, view.Bids, 2)
	assert.Equal(t, 10.00, view.Bids[0].Price)
}

// The end to end merge scenario: seed, open on an existing level, match the
// resting order away, then a done for an id the book never saw.
func TestOrderBook_MergeScenario(t *testing.T) {
	book := NewOrderBook()
	book.LoadSnapshot(seedSnapshot())

	require.True(t, book.ApplyOpen(&OrderEvent{Kind: EventOrderOpen, Sequence: 101, OrderID: "1", Side: Bid, Price: 10.00, Size: 0.5}))
	assert.Equal(t, []BookLevel{{Price: 10.00, Size: 1.5}}, book.Bids(0))

	require.True(t, book.ApplyMatch(&OrderEvent{Kind: EventOrderMatch, Sequence: 102, MakerOrderID: "bid-1", Size: 1.0}))
	assert.Equal(t, []BookLevel{{Price: 10.00, Size: 0.5}}, book.Bids(0))

	assert.False(t, book.ApplyDone(&OrderEvent{Kind: EventOrderDone, Sequence: 103, OrderID: "unknown"}))
	assert.Equal(t, uint64(102), book.Sequence())
}

func bidID(i int) string {
	return "bid-" + string(rune('a'+i))
}

func askID(i int) string {
	return "ask-" + string(rune('a'+i))
}
