package depthbook

import (
	"time"

	"github.com/0x5487/depthbook/protocol"
	"github.com/shopspring/decimal"
)

type Side = protocol.Side

const (
	Bid Side = protocol.SideBid
	Ask Side = protocol.SideAsk
)

// PriceLevel is one aggregated price point of a book side.
// Total is the running sum of Quantity from the best price outward.
type PriceLevel struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
	Total    decimal.Decimal `json:"total"`
}

// BookSide is ordered best price first: bids descending, asks ascending.
type BookSide []PriceLevel

// BookSnapshot is an immutable view of the book after one reconciliation.
// A new value is built for every mutation, so consumers may keep old ones.
type BookSnapshot struct {
	Symbol       string    `json:"symbol"`
	SequenceID   uint64    `json:"seq_id"` // Number of messages applied to the book so far
	Bids         BookSide  `json:"bids"`
	Asks         BookSide  `json:"asks"`
	Timestamp    time.Time `json:"timestamp"`               // Processing instant
	ExchangeTime time.Time `json:"exchange_time,omitempty"` // From data[0].timestamp, zero when absent
}

// HistoryFrame is one recorded entry of the replay history.
type HistoryFrame struct {
	Timestamp time.Time     `json:"timestamp"`
	Snapshot  *BookSnapshot `json:"snapshot"`
}

// Stats counts what a session did with the frames it received.
type Stats struct {
	Applied    uint64 // book messages reconciled
	Ignored    uint64 // heartbeats, status pushes, acks
	Dropped    uint64 // malformed, unroutable, or updates before a snapshot
	Forwarded  uint64 // snapshots that passed the throttle
	Reconnects uint64
}

// Options configures a Session. The zero value of each field falls back to its default.
type Options struct {
	URL              string
	Depth            int
	HistorySize      int
	ThrottleInterval time.Duration // <= 0 forwards every snapshot
	ReconnectDelay   time.Duration
	HandshakeTimeout time.Duration
	PingInterval     time.Duration
	Publisher        PublishSnapshot
	Serializer       protocol.Serializer
}

// DefaultOptions returns the reference behaviour: Kraken v2, depth 25, 100ms throttle,
// flat 5s reconnect, 1000 frames of history.
func DefaultOptions() Options {
	return Options{
		URL:              DefaultURL,
		Depth:            protocol.DefaultDepth,
		HistorySize:      MaxHistory,
		ThrottleInterval: DefaultThrottleInterval,
		ReconnectDelay:   DefaultReconnectDelay,
		HandshakeTimeout: DefaultHandshakeTimeout,
		PingInterval:     DefaultPingInterval,
		Publisher:        NewDiscardPublishSnapshot(),
		Serializer:       protocol.DefaultJSONSerializer{},
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if len(o.URL) == 0 {
		o.URL = def.URL
	}
	if o.Depth <= 0 {
		o.Depth = def.Depth
	}
	if o.HistorySize <= 0 {
		o.HistorySize = def.HistorySize
	}
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = def.ReconnectDelay
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = def.HandshakeTimeout
	}
	if o.PingInterval <= 0 {
		o.PingInterval = def.PingInterval
	}
	if o.Publisher == nil {
		o.Publisher = def.Publisher
	}
	if o.Serializer == nil {
		o.Serializer = def.Serializer
	}
	return o
}
