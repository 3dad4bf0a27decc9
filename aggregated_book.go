package depthbook

import (
	"time"

	"github.com/0x5487/depthbook/protocol"
	"github.com/shopspring/decimal"
)

// AggregatedBook reconciles snapshot and update messages for a single symbol into
// price levels and their aggregated sizes (depth).
// It is not safe for concurrent use: exactly one feed goroutine drives it.
type AggregatedBook struct {
	symbol string
	depth  int
	seqID  uint64 // Number of applied book messages
	synced bool   // A snapshot has been applied since creation or the last OnRebuild
	ask    *priceLevels
	bid    *priceLevels
	now    func() time.Time
}

// NewAggregatedBook creates a new AggregatedBook with empty ask and bid sides.
// Depth <= 0 disables truncation.
func NewAggregatedBook(symbol string, depth int) *AggregatedBook {
	return &AggregatedBook{
		symbol: symbol,
		depth:  depth,
		ask:    newAskLevels(),
		bid:    newBidLevels(),
		now:    time.Now,
	}
}

// Symbol returns the symbol this book is scoped to.
func (ab *AggregatedBook) Symbol() string {
	return ab.symbol
}

// SequenceID returns the number of book messages applied so far.
func (ab *AggregatedBook) SequenceID() uint64 {
	return ab.seqID
}

// Synced reports whether a snapshot has established a baseline.
func (ab *AggregatedBook) Synced() bool {
	return ab.synced
}

// OnRebuild marks the book as untrusted. Existing levels are kept, but updates are
// ignored until the next snapshot. Call it whenever a new connection is subscribed.
func (ab *AggregatedBook) OnRebuild() {
	ab.synced = false
}

// Apply applies a book message and returns the resulting snapshot.
// Messages that cannot be applied return an error and leave the book untouched:
// ErrUnroutable for foreign channels, unknown types, missing data[0] or another symbol,
// ErrInvalidLevel for impossible levels, ErrNotSynced for an update before any snapshot.
func (ab *AggregatedBook) Apply(msg *protocol.Message) (*BookSnapshot, error) {
	if msg == nil || msg.Channel != protocol.ChannelBook {
		return nil, ErrUnroutable
	}

	data := msg.Book()
	if data == nil {
		return nil, ErrUnroutable
	}

	if len(data.Symbol) > 0 && data.Symbol != ab.symbol {
		return nil, ErrUnroutable
	}

	switch msg.Type {
	case protocol.MessageTypeSnapshot:
		if err := ab.validate(data); err != nil {
			return nil, err
		}
		ab.bid.applySnapshot(data.Bids)
		ab.ask.applySnapshot(data.Asks)
		ab.synced = true
	case protocol.MessageTypeUpdate:
		if !ab.synced {
			return nil, ErrNotSynced
		}
		if err := ab.validate(data); err != nil {
			return nil, err
		}
		if len(data.Bids) > 0 {
			ab.bid.applyDelta(data.Bids)
		}
		if len(data.Asks) > 0 {
			ab.ask.applyDelta(data.Asks)
		}
	default:
		return nil, ErrUnroutable
	}

	ab.bid.truncate(ab.depth)
	ab.ask.truncate(ab.depth)
	ab.seqID++

	snap := ab.Snapshot()
	snap.ExchangeTime = data.Time()
	return snap, nil
}

// Snapshot builds a new immutable view of the current levels, stamped with now.
func (ab *AggregatedBook) Snapshot() *BookSnapshot {
	return &BookSnapshot{
		Symbol:     ab.symbol,
		SequenceID: ab.seqID,
		Bids:       ab.bid.levels(),
		Asks:       ab.ask.levels(),
		Timestamp:  ab.now(),
	}
}

// Depth returns the aggregated size at a specific price level for the given side.
// Returns zero if the price level does not exist.
func (ab *AggregatedBook) Depth(side Side, price decimal.Decimal) (decimal.Decimal, error) {
	switch side {
	case Bid:
		qty, _ := ab.bid.quantity(price)
		return qty, nil
	case Ask:
		qty, _ := ab.ask.quantity(price)
		return qty, nil
	}
	return decimal.Zero, ErrInvalidParam
}

func (ab *AggregatedBook) validate(data *protocol.BookData) error {
	if err := validateEntries(data.Bids); err != nil {
		return err
	}
	return validateEntries(data.Asks)
}
