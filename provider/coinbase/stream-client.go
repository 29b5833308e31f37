package coinbase

import (
	"errors"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/spooky-finn/go-coinbase-l3-bridge/domain"
)

const (
	DefaultWebsocketEndpoint = "wss://ws-feed.exchange.coinbase.com"
	SandboxWebsocketEndpoint = "wss://ws-feed-public.sandbox.exchange.coinbase.com"

	handshakeTimeout = 10 * time.Second
	writeTimeout     = 5 * time.Second

	// The full channel is never silent this long on an active product; a
	// read deadline doubles as the disconnection watchdog.
	defaultMaxInactivity = 120 * time.Second
)

var streamLogger = log.New(os.Stdout, "[coinbase-stream] ", log.LstdFlags)

type subscribeRequest struct {
	Type       string   `json:"type"`
	ProductIDs []string `json:"product_ids"`
	Channels   []string `json:"channels"`
}

// StreamClient owns a single websocket connection to the full channel. It
// decodes inbound frames into typed events and pushes them onto the event
// queue; it never touches the order book, so no lock guards book state.
type StreamClient struct {
	url           string
	productID     string
	maxInactivity time.Duration

	queue *domain.EventQueue

	connMu sync.Mutex
	conn   *websocket.Conn

	connected atomic.Bool
	running   chan struct{}
	stop      chan struct{}
	stopOnce  sync.Once
	done      chan struct{}

	seq sequenceTracker
}

func NewStreamClient(url, productID string, queue *domain.EventQueue) *StreamClient {
	return &StreamClient{
		url:           url,
		productID:     productID,
		maxInactivity: defaultMaxInactivity,
		queue:         queue,
		running:       make(chan struct{}),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Run dials the feed, subscribes and reads it until the connection dies or
// Stop is called. Meant to run on its own goroutine; every outcome is
// reported through the event queue, never across the boundary as an error.
func (c *StreamClient) Run() {
	defer close(c.done)
	defer c.connected.Store(false)
	close(c.running)

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.Dial(c.url, nil)
	if err != nil {
		streamLogger.Printf("connection refused: %s", err)
		return
	}
	c.setConn(conn)
	defer conn.Close()

	select {
	case <-c.stop:
		return
	default:
	}

	if err := c.subscribe(conn); err != nil {
		streamLogger.Printf("failed to subscribe to the full channel: %s", err)
		return
	}

	c.connected.Store(true)
	streamLogger.Println("connection opened")
	c.queue.Push(domain.FeedEvent{Kind: domain.EventConnected})

	c.readLoop(conn)
}

// WaitRunning blocks until Run has started, up to timeout.
func (c *StreamClient) WaitRunning(timeout time.Duration) bool {
	select {
	case <-c.running:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (c *StreamClient) IsConnected() bool {
	return c.connected.Load()
}

// Alive reports whether Run has not returned yet.
func (c *StreamClient) Alive() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Stop requests termination by closing the connection under the reader.
// Idempotent.
func (c *StreamClient) Stop() {
	c.stopOnce.Do(func() {
		close(c.stop)

		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()
		if conn == nil {
			return
		}

		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		_ = conn.Close()
	})
}

// Join blocks until Run has fully terminated.
func (c *StreamClient) Join() {
	<-c.done
}

func (c *StreamClient) subscribe(conn *websocket.Conn) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(subscribeRequest{
		Type:       "subscribe",
		ProductIDs: []string{c.productID},
		Channels:   []string{"full"},
	})
}

func (c *StreamClient) readLoop(conn *websocket.Conn) {
	for {
		_ = conn.SetReadDeadline(time.Now().Add(c.maxInactivity))

		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.stop:
				streamLogger.Println("connection closed")
			default:
				streamLogger.Printf("disconnection detected: %s", err)
			}
			c.connected.Store(false)
			c.queue.Push(domain.FeedEvent{Kind: domain.EventDisconnected})
			return
		}

		c.handleMessage(raw)
	}
}

func (c *StreamClient) handleMessage(raw []byte) {
	ev, err := decodeMessage(raw)
	if err != nil {
		if errors.Is(err, errUnknownMessage) {
			streamLogger.Printf("unknown message: %s", err)
		} else {
			streamLogger.Printf("dropping malformed message: %s", err)
		}
		return
	}

	if ev.Kind.IsOrderEvent() {
		result, last := c.seq.Observe(ev.Order.Sequence)
		switch result {
		case seqDuplicate:
			return
		case seqGap:
			// The gapped event is still delivered: the reseed that follows
			// anchors which buffered events are stale.
			c.queue.Push(domain.FeedEvent{
				Kind:     domain.EventSequenceMismatch,
				Mismatch: &domain.SequenceMismatch{Last: last, Current: ev.Order.Sequence},
			})
		}
	}

	c.queue.Push(ev)
}

func (c *StreamClient) setConn(conn *websocket.Conn) {
	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
}
