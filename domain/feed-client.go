package domain

import (
	"errors"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jpillora/backoff"

	promclient "github.com/spooky-finn/go-coinbase-l3-bridge/infrastructure/prometheus"
)

type ConnectionStatus string

const (
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
	StatusReconnecting ConnectionStatus = "reconnecting"
	StatusStopped      ConnectionStatus = "stopped"
)

const (
	// One Dispatch call blocks on the queue for at most this long, so the
	// caller's own loop stays responsive.
	dispatchTimeout = 10 * time.Millisecond

	waitRunningTimeout  = 5 * time.Second
	waitConnectPollFreq = 500 * time.Millisecond
	maxReconnectDelay   = 10 * time.Second

	snapshotLevel    = 3
	defaultViewDepth = 20
)

var (
	ErrConnectionFailed = errors.New("failed to connect stream worker")
	ErrBookNotReady     = errors.New("order book is not seeded yet")
)

var logger = log.New(os.Stdout, "[feed-client] ", log.LstdFlags)

// FeedClient keeps a local L3 order book in sync with the exchange by
// merging REST snapshots with the websocket event stream. The caller drives
// it by polling Dispatch from a single goroutine; that goroutine is the
// only writer of the book, which is why the book needs no lock.
type FeedClient struct {
	productID   string
	snapshotAPI SnapshotAPI
	newWorker   WorkerFactory

	queue *EventQueue
	book  *OrderBook

	workerMu sync.Mutex
	worker   StreamWorker

	status  ConnectionStatus
	stopped atomic.Bool

	applyTable map[EventKind]func(*OrderBook, *OrderEvent) bool

	orderListeners []func(*OrderEvent)
	bookListeners  []func(*BookView)

	viewDepth int
}

func NewFeedClient(productID string, snapshotAPI SnapshotAPI, newWorker WorkerFactory) *FeedClient {
	c := &FeedClient{
		productID:   productID,
		snapshotAPI: snapshotAPI,
		newWorker:   newWorker,
		queue:       NewEventQueue(),
		book:        NewOrderBook(),
		status:      StatusDisconnected,
		viewDepth:   defaultViewDepth,
	}

	// The set of order event kinds is closed, so the book routing is a
	// fixed table over method expressions.
	c.applyTable = map[EventKind]func(*OrderBook, *OrderEvent) bool{
		EventOrderReceived: (*OrderBook).ApplyReceived,
		EventOrderOpen:     (*OrderBook).ApplyOpen,
		EventOrderDone:     (*OrderBook).ApplyDone,
		EventOrderMatch:    (*OrderBook).ApplyMatch,
		EventOrderChange:   (*OrderBook).ApplyChange,
	}

	return c
}

// OnOrderEvent registers a listener for every decoded order message,
// whether or not it affected the book. Listeners run synchronously on the
// dispatch goroutine.
func (c *FeedClient) OnOrderEvent(fn func(*OrderEvent)) {
	c.orderListeners = append(c.orderListeners, fn)
}

// OnBookUpdate registers a listener invoked only when an event actually
// changed aggregate book state.
func (c *FeedClient) OnBookUpdate(fn func(*BookView)) {
	c.bookListeners = append(c.bookListeners, fn)
}

func (c *FeedClient) Status() ConnectionStatus {
	return c.status
}

func (c *FeedClient) Stopped() bool {
	return c.stopped.Load()
}

// OrderBookView returns a depth-bounded view of the local book. Must be
// called from the goroutine driving Dispatch.
func (c *FeedClient) OrderBookView(maxLevels int) (*BookView, error) {
	if !c.book.Seeded() {
		return nil, ErrBookNotReady
	}
	return c.book.TakeView(maxLevels), nil
}

// Start launches the stream worker and blocks until it is connected. The
// first connect is not retried, so configuration errors surface to the
// caller immediately.
func (c *FeedClient) Start() error {
	c.connect(false)

	if w := c.currentWorker(); w == nil || !w.IsConnected() {
		c.status = StatusDisconnected
		return ErrConnectionFailed
	}
	return nil
}

// Stop requests termination. Idempotent; disconnects observed afterwards
// are not retried. The caller should Join to await full worker exit.
func (c *FeedClient) Stop() {
	if c.stopped.Swap(true) {
		return
	}
	if w := c.currentWorker(); w != nil {
		w.Stop()
	}
}

// Join blocks until the worker goroutine has fully terminated.
func (c *FeedClient) Join() {
	if w := c.currentWorker(); w != nil {
		w.Join()
	}
}

// Dispatch processes at most one event from the queue, waiting a short
// bounded time if it is empty. It reports whether an event was processed,
// so an external cooperative scheduler can decide whether to yield.
func (c *FeedClient) Dispatch() bool {
	ev, ok := c.queue.PopWait(dispatchTimeout)
	if !ok {
		return false
	}

	switch {
	case ev.Kind == EventConnected:
		c.status = StatusConnected
		c.refreshOrderBook()
	case ev.Kind == EventDisconnected:
		c.onDisconnected()
	case ev.Kind == EventSequenceMismatch:
		logger.Printf("sequence jumped from %d to %d, reseeding order book", ev.Mismatch.Last, ev.Mismatch.Current)
		promclient.FeedSequenceGapsTotal.Inc()
		c.refreshOrderBook()
	case ev.Kind.IsOrderEvent():
		c.onOrderEvent(ev.Order)
	case ev.Kind == EventSubscriptions:
		logger.Printf("subscriptions: %v", ev.Channels)
	case ev.Kind == EventFeedError:
		logger.Printf("feed error: %v", ev.Err)
	default:
		logger.Printf("no handler for event kind %d", ev.Kind)
		return false
	}

	return true
}

// connect runs the connect sequence: spawn a fresh worker, wait for its run
// signal, then poll until it is connected or dead. With retry it keeps
// attempting under a bounded backoff until connected or stopped.
func (c *FeedClient) connect(retry bool) {
	delay := &backoff.Backoff{
		Min:    waitConnectPollFreq,
		Max:    maxReconnectDelay,
		Jitter: true,
	}

	for !c.stopped.Load() {
		c.status = StatusConnecting

		worker := c.newWorker(c.queue)
		c.setWorker(worker)
		go worker.Run()

		if !worker.WaitRunning(waitRunningTimeout) {
			logger.Println("stream worker did not start in time")
		}

		for worker.Alive() && !worker.IsConnected() && !c.stopped.Load() {
			time.Sleep(waitConnectPollFreq)
		}

		if c.stopped.Load() {
			// Stop may have run before this worker was registered and
			// missed it, so it is stopped here.
			worker.Stop()
			return
		}
		if worker.IsConnected() || !retry {
			return
		}

		d := delay.Duration()
		logger.Printf("connect attempt failed, retrying in %s", d)
		time.Sleep(d)
	}
}

func (c *FeedClient) onDisconnected() {
	logger.Println("waiting for stream worker to finish")
	c.Join()

	if c.stopped.Load() {
		c.status = StatusStopped
		return
	}

	c.status = StatusReconnecting
	promclient.FeedReconnectsTotal.Inc()
	c.connect(true)
}

// refreshOrderBook reseeds the whole book from a REST snapshot. A fetch
// failure invalidates the book: a refresh is only ever triggered when the
// current content cannot be trusted, so diffs are dropped until a later
// trigger manages to seed. A partially seeded book is never installed.
func (c *FeedClient) refreshOrderBook() {
	logger.Println("retrieving level 3 order book")
	snapshot, err := c.snapshotAPI.OrderBookSnapshot(c.productID, snapshotLevel)
	if err != nil {
		c.book.Invalidate()
		logger.Printf("order book snapshot fetch failed, dropping diffs until the next seed: %s", err)
		return
	}

	c.book.LoadSnapshot(snapshot)
	promclient.FeedReseedsTotal.Inc()
	promclient.FeedOpenOrdersGauge.Set(float64(c.book.OpenOrders()))
	logger.Printf("order book seeded at sequence %d", snapshot.Sequence)
}

func (c *FeedClient) onOrderEvent(ev *OrderEvent) {
	promclient.FeedOrderEventsTotal.Inc()
	for _, fn := range c.orderListeners {
		fn(ev)
	}

	// Diffs buffered while the snapshot request was in flight may predate
	// it. The snapshot sequence anchors which of them are stale.
	if !c.book.Seeded() || ev.Sequence <= c.book.Sequence() {
		return
	}

	apply, ok := c.applyTable[ev.Kind]
	if !ok {
		logger.Printf("no order book handler for event kind %s", ev.Kind)
		return
	}

	if apply(c.book, ev) {
		promclient.FeedOpenOrdersGauge.Set(float64(c.book.OpenOrders()))
		view := c.book.TakeView(c.viewDepth)
		for _, fn := range c.bookListeners {
			fn(view)
		}
	}
}

func (c *FeedClient) setWorker(w StreamWorker) {
	c.workerMu.Lock()
	c.worker = w
	c.workerMu.Unlock()
}

func (c *FeedClient) currentWorker() StreamWorker {
	c.workerMu.Lock()
	defer c.workerMu.Unlock()
	return c.worker
}
