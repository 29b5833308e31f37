package domain

import "time"

// SnapshotAPI fetches a point-in-time full book dump from the exchange
// REST API.
type SnapshotAPI interface {
	OrderBookSnapshot(productID string, level int) (*BookSnapshot, error)
}

// StreamWorker owns one physical streaming connection for its whole
// lifetime. It decodes inbound frames into typed events and pushes them
// onto the event queue; it never touches the order book. I/O failures stay
// on the worker side and surface only as events.
type StreamWorker interface {
	// Run connects and reads the stream until the connection dies or Stop
	// is called. Meant to be launched on a dedicated goroutine.
	Run()

	// WaitRunning blocks until Run has started, up to timeout.
	WaitRunning(timeout time.Duration) bool

	IsConnected() bool

	// Alive reports whether Run has not returned yet.
	Alive() bool

	// Stop requests termination. Idempotent.
	Stop()

	// Join blocks until Run returns.
	Join()
}

// WorkerFactory builds a fresh worker for every (re)connect attempt; a
// worker is never reused across connections.
type WorkerFactory func(queue *EventQueue) StreamWorker
