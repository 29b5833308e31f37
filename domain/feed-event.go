package domain

// EventKind tags an event crossing the worker -> dispatcher boundary.
type EventKind int

const (
	EventConnected EventKind = iota + 1
	EventDisconnected
	EventSequenceMismatch
	EventSubscriptions
	EventFeedError
	EventOrderReceived
	EventOrderOpen
	EventOrderDone
	EventOrderMatch
	EventOrderChange
)

var eventKindNames = map[EventKind]string{
	EventConnected:        "connected",
	EventDisconnected:     "disconnected",
	EventSequenceMismatch: "sequence-mismatch",
	EventSubscriptions:    "subscriptions",
	EventFeedError:        "feed-error",
	EventOrderReceived:    "order-received",
	EventOrderOpen:        "order-open",
	EventOrderDone:        "order-done",
	EventOrderMatch:       "order-match",
	EventOrderChange:      "order-change",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return "unknown"
}

func (k EventKind) IsOrderEvent() bool {
	return k >= EventOrderReceived && k <= EventOrderChange
}

type Side string

const (
	Bid Side = "bid"
	Ask Side = "ask"
)

// SequenceMismatch reports a gap in the stream: the event carrying Current
// did not immediately follow the last delivered event.
type SequenceMismatch struct {
	Last    uint64
	Current uint64
}

// OrderEvent is a decoded order message from the full channel. The Size
// semantics depend on the kind: original size for received, remaining size
// for open and done, traded size for match and the new remaining size for
// change.
type OrderEvent struct {
	Kind     EventKind
	Sequence uint64

	OrderID      string
	MakerOrderID string
	TakerOrderID string

	Side   Side
	Price  float64
	Size   float64
	Reason string
}

// FeedEvent is the (kind, payload) pair carried by the event queue. Exactly
// one of the payload fields is set, according to the kind.
type FeedEvent struct {
	Kind     EventKind
	Order    *OrderEvent
	Mismatch *SequenceMismatch
	Err      error
	Channels []string
}

func NewOrderFeedEvent(ev *OrderEvent) FeedEvent {
	return FeedEvent{Kind: ev.Kind, Order: ev}
}
