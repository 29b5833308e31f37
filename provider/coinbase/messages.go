package coinbase

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/spooky-finn/go-coinbase-l3-bridge/domain"
)

var errUnknownMessage = errors.New("unknown message type")

// feedMessage covers the superset of fields across the full channel message
// types. Numeric fields arrive as decimal strings.
type feedMessage struct {
	Type     string `json:"type"`
	Sequence uint64 `json:"sequence"`

	OrderID      string `json:"order_id"`
	MakerOrderID string `json:"maker_order_id"`
	TakerOrderID string `json:"taker_order_id"`

	Side          string `json:"side"`
	Price         string `json:"price"`
	Size          string `json:"size"`
	RemainingSize string `json:"remaining_size"`
	NewSize       string `json:"new_size"`
	Reason        string `json:"reason"`

	Message  string        `json:"message"`
	Channels []channelInfo `json:"channels"`
}

type channelInfo struct {
	Name       string   `json:"name"`
	ProductIDs []string `json:"product_ids"`
}

// decodeMessage translates one raw frame into a typed event. Messages of a
// type the feed does not document for the full channel come back as
// errUnknownMessage so the caller can log and drop them.
func decodeMessage(raw []byte) (domain.FeedEvent, error) {
	var msg feedMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return domain.FeedEvent{}, fmt.Errorf("failed to unmarshal feed message: %w", err)
	}

	switch msg.Type {
	case "received":
		return orderFeedEvent(domain.EventOrderReceived, &msg, msg.Size)
	case "open":
		return orderFeedEvent(domain.EventOrderOpen, &msg, msg.RemainingSize)
	case "done":
		return orderFeedEvent(domain.EventOrderDone, &msg, msg.RemainingSize)
	case "match":
		return orderFeedEvent(domain.EventOrderMatch, &msg, msg.Size)
	case "change":
		return orderFeedEvent(domain.EventOrderChange, &msg, msg.NewSize)
	case "subscriptions":
		channels := make([]string, 0, len(msg.Channels))
		for _, ch := range msg.Channels {
			channels = append(channels, ch.Name)
		}
		return domain.FeedEvent{Kind: domain.EventSubscriptions, Channels: channels}, nil
	case "error":
		return domain.FeedEvent{Kind: domain.EventFeedError, Err: errors.New(msg.Message)}, nil
	default:
		return domain.FeedEvent{}, fmt.Errorf("%w: %q", errUnknownMessage, msg.Type)
	}
}

func orderFeedEvent(kind domain.EventKind, msg *feedMessage, size string) (domain.FeedEvent, error) {
	side, err := parseSide(msg.Side)
	if err != nil {
		return domain.FeedEvent{}, err
	}

	price, err := parseDecimal(msg.Price)
	if err != nil {
		return domain.FeedEvent{}, fmt.Errorf("bad price in %s message: %w", msg.Type, err)
	}

	parsedSize, err := parseDecimal(size)
	if err != nil {
		return domain.FeedEvent{}, fmt.Errorf("bad size in %s message: %w", msg.Type, err)
	}

	return domain.NewOrderFeedEvent(&domain.OrderEvent{
		Kind:         kind,
		Sequence:     msg.Sequence,
		OrderID:      msg.OrderID,
		MakerOrderID: msg.MakerOrderID,
		TakerOrderID: msg.TakerOrderID,
		Side:         side,
		Price:        price,
		Size:         parsedSize,
		Reason:       msg.Reason,
	}), nil
}

// parseDecimal tolerates absent fields: market orders carry no price and
// fully filled done messages may omit the remaining size.
func parseDecimal(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func parseSide(s string) (domain.Side, error) {
	switch s {
	case "buy":
		return domain.Bid, nil
	case "sell":
		return domain.Ask, nil
	default:
		return "", fmt.Errorf("unknown side %q", s)
	}
}
