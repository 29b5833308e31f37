package domain

import "sort"

// Order is a single resting order identified by the exchange-assigned id.
// An order belongs to exactly one price level at a time.
type Order struct {
	ID    string
	Side  Side
	Price float64
	Size  float64

	level *PriceLevel
}

// PriceLevel groups the resting orders at one price, in time priority.
// A level only exists while it holds at least one order.
type PriceLevel struct {
	Price     float64
	Orders    []*Order
	TotalSize float64
}

func newPriceLevel(price float64) *PriceLevel {
	return &PriceLevel{Price: price}
}

func (l *PriceLevel) add(o *Order) {
	o.level = l
	l.Orders = append(l.Orders, o)
	l.TotalSize += o.Size
}

func (l *PriceLevel) remove(o *Order) {
	for i, other := range l.Orders {
		if other == o {
			l.Orders = append(l.Orders[:i], l.Orders[i+1:]...)
			l.TotalSize -= o.Size
			o.level = nil
			return
		}
	}
}

// SnapshotOrder is one entry of a REST level 3 book dump.
type SnapshotOrder struct {
	OrderID string
	Price   float64
	Size    float64
}

// BookSnapshot is a point-in-time full dump of the book plus the sequence
// number it corresponds to. It only lives until it is loaded.
type BookSnapshot struct {
	Sequence uint64
	Bids     []SnapshotOrder
	Asks     []SnapshotOrder
}

// BookLevel is a price level collapsed to its aggregate size.
type BookLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// BookView is a read-only, depth-bounded view of the book, best-first on
// both sides.
type BookView struct {
	Sequence uint64      `json:"sequence"`
	Bids     []BookLevel `json:"bids"`
	Asks     []BookLevel `json:"asks"`
}

// OrderBook is the authoritative local L3 book. It applies snapshot loads
// and incremental diffs; validating the continuity of those diffs is the
// caller's job, not the book's. The book is mutated by a single goroutine
// (the dispatch loop) and therefore holds no lock.
type OrderBook struct {
	bids   map[float64]*PriceLevel
	asks   map[float64]*PriceLevel
	orders map[string]*Order

	// Orders announced by a received message but not resting yet.
	pending map[string]struct{}

	sequence uint64
	seeded   bool
}

func NewOrderBook() *OrderBook {
	return &OrderBook{
		bids:    make(map[float64]*PriceLevel),
		asks:    make(map[float64]*PriceLevel),
		orders:  make(map[string]*Order),
		pending: make(map[string]struct{}),
	}
}

// LoadSnapshot replaces the entire book content and anchors the sequence at
// the snapshot's. This is the sole recovery mechanism: it is used for the
// initial seed, after every reconnect and after every detected gap.
func (b *OrderBook) LoadSnapshot(snapshot *BookSnapshot) {
	b.bids = make(map[float64]*PriceLevel)
	b.asks = make(map[float64]*PriceLevel)
	b.orders = make(map[string]*Order)
	b.pending = make(map[string]struct{})

	for _, entry := range snapshot.Bids {
		b.insert(&Order{ID: entry.OrderID, Side: Bid, Price: entry.Price, Size: entry.Size})
	}
	for _, entry := range snapshot.Asks {
		b.insert(&Order{ID: entry.OrderID, Side: Ask, Price: entry.Price, Size: entry.Size})
	}

	b.sequence = snapshot.Sequence
	b.seeded = true
}

func (b *OrderBook) Seeded() bool {
	return b.seeded
}

// Invalidate drops trust in the current content until the next LoadSnapshot.
// Every apply is rejected meanwhile and views report not ready. Used when a
// recovery snapshot cannot be fetched: the book has missed events and must
// not keep absorbing diffs.
func (b *OrderBook) Invalidate() {
	b.seeded = false
}

// Sequence returns the sequence number of the last applied event.
func (b *OrderBook) Sequence() uint64 {
	return b.sequence
}

// ApplyReceived registers a pending order that is not resting on the book
// yet. Informational only: price levels and the sequence stay untouched.
func (b *OrderBook) ApplyReceived(ev *OrderEvent) bool {
	if !b.seeded {
		return false
	}

	b.pending[ev.OrderID] = struct{}{}
	return false
}

// ApplyOpen inserts the order at the tail of its price level, creating the
// level if absent.
func (b *OrderBook) ApplyOpen(ev *OrderEvent) bool {
	if !b.seeded {
		return false
	}
	delete(b.pending, ev.OrderID)

	if _, ok := b.orders[ev.OrderID]; ok {
		return false
	}

	b.insert(&Order{ID: ev.OrderID, Side: ev.Side, Price: ev.Price, Size: ev.Size})
	b.sequence = ev.Sequence
	return true
}

// ApplyDone removes the order from its level, deleting the level once it is
// empty. Unknown ids are expected here: the order may have been removed by
// a prior event, never have opened, or predate the snapshot cutoff.
func (b *OrderBook) ApplyDone(ev *OrderEvent) bool {
	if !b.seeded {
		return false
	}
	delete(b.pending, ev.OrderID)

	o, ok := b.orders[ev.OrderID]
	if !ok {
		return false
	}

	b.removeOrder(o)
	b.sequence = ev.Sequence
	return true
}

// ApplyMatch decrements the maker order by the traded size, removing the
// order and its level on exhaustion. Unknown maker ids are tolerated the
// same way as in ApplyDone.
func (b *OrderBook) ApplyMatch(ev *OrderEvent) bool {
	if !b.seeded {
		return false
	}

	o, ok := b.orders[ev.MakerOrderID]
	if !ok {
		return false
	}

	take := ev.Size
	if take > o.Size {
		take = o.Size
	}
	o.Size -= take
	o.level.TotalSize -= take

	if o.Size <= 0 {
		b.removeOrder(o)
	}

	b.sequence = ev.Sequence
	return true
}

// ApplyChange updates the remaining size in place. The price of an order is
// immutable, so the order never relocates.
func (b *OrderBook) ApplyChange(ev *OrderEvent) bool {
	if !b.seeded {
		return false
	}

	o, ok := b.orders[ev.OrderID]
	if !ok {
		return false
	}

	if ev.Size <= 0 {
		b.removeOrder(o)
	} else {
		o.level.TotalSize += ev.Size - o.Size
		o.Size = ev.Size
	}

	b.sequence = ev.Sequence
	return true
}

// Bids returns up to maxLevels aggregated bid levels, best (highest) first.
func (b *OrderBook) Bids(maxLevels int) []BookLevel {
	return collapseLevels(b.bids, maxLevels, func(i, j float64) bool { return i > j })
}

// Asks returns up to maxLevels aggregated ask levels, best (lowest) first.
func (b *OrderBook) Asks(maxLevels int) []BookLevel {
	return collapseLevels(b.asks, maxLevels, func(i, j float64) bool { return i < j })
}

// TakeView captures a read-only view bounded to maxLevels per side.
func (b *OrderBook) TakeView(maxLevels int) *BookView {
	return &BookView{
		Sequence: b.sequence,
		Bids:     b.Bids(maxLevels),
		Asks:     b.Asks(maxLevels),
	}
}

// OpenOrders returns the number of orders resting on the book.
func (b *OrderBook) OpenOrders() int {
	return len(b.orders)
}

func (b *OrderBook) side(s Side) map[float64]*PriceLevel {
	if s == Bid {
		return b.bids
	}
	return b.asks
}

func (b *OrderBook) insert(o *Order) {
	side := b.side(o.Side)
	level, ok := side[o.Price]
	if !ok {
		level = newPriceLevel(o.Price)
		side[o.Price] = level
	}

	level.add(o)
	b.orders[o.ID] = o
}

func (b *OrderBook) removeOrder(o *Order) {
	level := o.level
	level.remove(o)
	if len(level.Orders) == 0 {
		delete(b.side(o.Side), level.Price)
	}
	delete(b.orders, o.ID)
}

func collapseLevels(side map[float64]*PriceLevel, maxLevels int, better func(i, j float64) bool) []BookLevel {
	prices := make([]float64, 0, len(side))
	for price := range side {
		prices = append(prices, price)
	}
	sort.Slice(prices, func(i, j int) bool { return better(prices[i], prices[j]) })

	if maxLevels > 0 && len(prices) > maxLevels {
		prices = prices[:maxLevels]
	}

	levels := make([]BookLevel, 0, len(prices))
	for _, price := range prices {
		levels = append(levels, BookLevel{Price: price, Size: side[price].TotalSize})
	}
	return levels
}
