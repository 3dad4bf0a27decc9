package protocol

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Channel names used by the feed.
const (
	ChannelBook      = "book"
	ChannelHeartbeat = "heartbeat"
	ChannelStatus    = "status"
)

// MessageType identifies how a book message must be applied.
type MessageType string

const (
	// MessageTypeSnapshot replaces both sides of the book.
	MessageTypeSnapshot MessageType = "snapshot"
	// MessageTypeUpdate carries deltas for the levels that changed.
	MessageTypeUpdate MessageType = "update"
)

// Side represents the book side (Bid/Ask).
type Side int8

const (
	SideBid Side = 1
	SideAsk Side = 2
)

func (s Side) String() string {
	switch s {
	case SideBid:
		return "bid"
	case SideAsk:
		return "ask"
	}
	return "unknown"
}

// BookEntry is a single price level as sent by the exchange.
// Qty == 0 in an update means the level must be removed.
type BookEntry struct {
	Price decimal.Decimal `json:"price"`
	Qty   decimal.Decimal `json:"qty"`

	incomplete bool
}

// UnmarshalJSON decodes an entry and remembers whether price or qty was absent or null,
// since both would otherwise decode to zero and an update with qty 0 deletes the level.
func (e *BookEntry) UnmarshalJSON(data []byte) error {
	var raw struct {
		Price decimal.NullDecimal `json:"price"`
		Qty   decimal.NullDecimal `json:"qty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	e.Price = raw.Price.Decimal
	e.Qty = raw.Qty.Decimal
	e.incomplete = !raw.Price.Valid || !raw.Qty.Valid
	return nil
}

// Complete reports whether both price and qty were present on the wire.
// Entries built in code are always complete.
func (e BookEntry) Complete() bool {
	return !e.incomplete
}

// BookData is the payload of a book message. Only the first element of
// Message.Data is consulted.
type BookData struct {
	Symbol    string      `json:"symbol"`
	Bids      []BookEntry `json:"bids"`
	Asks      []BookEntry `json:"asks"`
	Checksum  uint32      `json:"checksum,omitempty"`
	Timestamp string      `json:"timestamp,omitempty"`
}

// Time parses the exchange timestamp. The zero time is returned when it is
// absent or not RFC3339.
func (d *BookData) Time() time.Time {
	if len(d.Timestamp) == 0 {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339Nano, d.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return ts
}

// Message is the envelope of every inbound frame. Book messages populate
// Channel/Type/Data; method acknowledgements populate Method/Success/Error.
type Message struct {
	Channel string      `json:"channel,omitempty"`
	Type    MessageType `json:"type,omitempty"`
	Data    []BookData  `json:"data,omitempty"`

	Method  string `json:"method,omitempty"`
	Success *bool  `json:"success,omitempty"`
	Error   string `json:"error,omitempty"`
	ReqID   uint64 `json:"req_id,omitempty"`
}

// IsControl reports whether the frame is connection housekeeping rather than
// market data (heartbeats, status pushes, method acknowledgements).
func (m *Message) IsControl() bool {
	if len(m.Method) > 0 {
		return true
	}
	return m.Channel == ChannelHeartbeat || m.Channel == ChannelStatus
}

// Book returns data[0], or nil when the payload is missing.
func (m *Message) Book() *BookData {
	if len(m.Data) == 0 {
		return nil
	}
	return &m.Data[0]
}

// Decode unmarshals a raw frame with the given serializer.
func Decode(s Serializer, raw []byte) (*Message, error) {
	msg := new(Message)
	if err := s.Unmarshal(raw, msg); err != nil {
		return nil, err
	}
	return msg, nil
}
