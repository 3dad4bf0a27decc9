package depthbook

import (
	"math/rand"
	"testing"

	"github.com/0x5487/depthbook/protocol"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func entry(price, qty int64) protocol.BookEntry {
	return protocol.BookEntry{Price: decimal.NewFromInt(price), Qty: decimal.NewFromInt(qty)}
}

func prices(side BookSide) []string {
	result := make([]string, 0, len(side))
	for _, lvl := range side {
		result = append(result, lvl.Price.String())
	}
	return result
}

func totals(side BookSide) []string {
	result := make([]string, 0, len(side))
	for _, lvl := range side {
		result = append(result, lvl.Total.String())
	}
	return result
}

func TestBidLevels(t *testing.T) {
	q := newBidLevels()

	q.applySnapshot([]protocol.BookEntry{entry(99, 3), entry(100, 2), entry(98, 1)})
	assert.Equal(t, 3, q.depthCount())

	levels := q.levels()
	assert.Equal(t, []string{"100", "99", "98"}, prices(levels))
	assert.Equal(t, []string{"2", "5", "6"}, totals(levels))
}

func TestAskLevels(t *testing.T) {
	q := newAskLevels()

	q.applySnapshot([]protocol.BookEntry{entry(102, 4), entry(101, 1), entry(103, 2)})

	levels := q.levels()
	assert.Equal(t, []string{"101", "102", "103"}, prices(levels))
	assert.Equal(t, []string{"1", "5", "7"}, totals(levels))
}

func TestApplySnapshotReplaces(t *testing.T) {
	q := newAskLevels()
	q.applySnapshot([]protocol.BookEntry{entry(101, 1), entry(102, 4)})
	q.applySnapshot([]protocol.BookEntry{entry(200, 1)})

	assert.Equal(t, []string{"200"}, prices(q.levels()))

	t.Run("zero quantity is never stored", func(t *testing.T) {
		q.applySnapshot([]protocol.BookEntry{entry(101, 0), entry(102, 4)})
		assert.Equal(t, []string{"102"}, prices(q.levels()))
	})

	t.Run("repeated price keeps the last quantity", func(t *testing.T) {
		q.applySnapshot([]protocol.BookEntry{entry(101, 1), entry(101, 7)})
		levels := q.levels()
		assert.Len(t, levels, 1)
		assert.Equal(t, "7", levels[0].Quantity.String())
	})
}

func TestApplyDelta(t *testing.T) {
	t.Run("zero removes an existing price", func(t *testing.T) {
		q := newBidLevels()
		q.applySnapshot([]protocol.BookEntry{entry(100, 2), entry(99, 3)})
		q.applyDelta([]protocol.BookEntry{entry(100, 0)})

		levels := q.levels()
		assert.Equal(t, []string{"99"}, prices(levels))
		assert.Equal(t, []string{"3"}, totals(levels))
	})

	t.Run("zero on an unseen price is a no-op", func(t *testing.T) {
		q := newBidLevels()
		q.applySnapshot([]protocol.BookEntry{entry(100, 2)})
		q.applyDelta([]protocol.BookEntry{entry(50, 0)})

		assert.Equal(t, []string{"100"}, prices(q.levels()))
	})

	t.Run("positive quantity overwrites", func(t *testing.T) {
		q := newAskLevels()
		q.applySnapshot([]protocol.BookEntry{entry(101, 1), entry(102, 4)})
		q.applyDelta([]protocol.BookEntry{entry(102, 9)})

		qty, ok := q.quantity(decimal.NewFromInt(102))
		assert.True(t, ok)
		assert.Equal(t, "9", qty.String())
		assert.Equal(t, []string{"1", "10"}, totals(q.levels()))
	})

	t.Run("unseen price is inserted in order", func(t *testing.T) {
		q := newAskLevels()
		q.applySnapshot([]protocol.BookEntry{entry(101, 1), entry(103, 4)})
		q.applyDelta([]protocol.BookEntry{entry(102, 2)})

		assert.Equal(t, []string{"101", "102", "103"}, prices(q.levels()))
		assert.Equal(t, []string{"1", "3", "7"}, totals(q.levels()))
	})

	t.Run("equal decimals share one level", func(t *testing.T) {
		q := newBidLevels()
		q.applySnapshot([]protocol.BookEntry{{Price: decimal.RequireFromString("100.0"), Qty: decimal.NewFromInt(1)}})
		q.applyDelta([]protocol.BookEntry{{Price: decimal.RequireFromString("100"), Qty: decimal.NewFromInt(5)}})

		assert.Equal(t, 1, q.depthCount())
		qty, _ := q.quantity(decimal.NewFromInt(100))
		assert.Equal(t, "5", qty.String())
	})
}

func TestApplyDeltaIdempotent(t *testing.T) {
	delta := []protocol.BookEntry{entry(100, 0), entry(97, 8), entry(99, 1)}

	once := newBidLevels()
	once.applySnapshot([]protocol.BookEntry{entry(100, 2), entry(99, 3), entry(98, 4)})
	once.applyDelta(delta)

	twice := newBidLevels()
	twice.applySnapshot([]protocol.BookEntry{entry(100, 2), entry(99, 3), entry(98, 4)})
	twice.applyDelta(delta)
	twice.applyDelta(delta)

	assert.Equal(t, once.levels(), twice.levels())
}

func TestTruncate(t *testing.T) {
	bids := newBidLevels()
	bids.applySnapshot([]protocol.BookEntry{entry(100, 1), entry(99, 1), entry(98, 1), entry(97, 1)})
	bids.truncate(2)
	assert.Equal(t, []string{"100", "99"}, prices(bids.levels()))

	asks := newAskLevels()
	asks.applySnapshot([]protocol.BookEntry{entry(101, 1), entry(102, 1), entry(103, 1)})
	asks.truncate(1)
	assert.Equal(t, []string{"101"}, prices(asks.levels()))

	asks.truncate(0)
	assert.Equal(t, 1, asks.depthCount())
}

func TestValidateEntries(t *testing.T) {
	assert.NoError(t, validateEntries([]protocol.BookEntry{entry(1, 0), entry(2, 3)}))
	assert.ErrorIs(t, validateEntries([]protocol.BookEntry{entry(1, -1)}), ErrInvalidLevel)
	assert.ErrorIs(t, validateEntries([]protocol.BookEntry{entry(0, 1)}), ErrInvalidLevel)
	assert.ErrorIs(t, validateEntries([]protocol.BookEntry{entry(-5, 1)}), ErrInvalidLevel)
}

// TestRandomDeltasKeepInvariants drives random deltas and checks ordering,
// monotonic totals and exact quantities after each step.
func TestRandomDeltasKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for _, q := range []*priceLevels{newBidLevels(), newAskLevels()} {
		expected := make(map[int64]int64)

		for i := 0; i < 500; i++ {
			price := rng.Int63n(50) + 1
			qty := rng.Int63n(4) // 0 removes
			q.applyDelta([]protocol.BookEntry{entry(price, qty)})
			if qty == 0 {
				delete(expected, price)
			} else {
				expected[price] = qty
			}

			levels := q.levels()
			assert.Len(t, levels, len(expected))

			for j, lvl := range levels {
				want, ok := expected[lvl.Price.IntPart()]
				assert.True(t, ok)
				assert.Equal(t, want, lvl.Quantity.IntPart())
				assert.True(t, lvl.Quantity.IsPositive())

				if j == 0 {
					assert.True(t, lvl.Total.Equal(lvl.Quantity))
					continue
				}
				prev := levels[j-1]
				assert.True(t, lvl.Total.GreaterThanOrEqual(prev.Total))
				assert.True(t, lvl.Total.Equal(prev.Total.Add(lvl.Quantity)))
				if q.side == Bid {
					assert.True(t, lvl.Price.LessThan(prev.Price))
				} else {
					assert.True(t, lvl.Price.GreaterThan(prev.Price))
				}
			}
		}
	}
}

func BenchmarkApplyDelta(b *testing.B) {
	q := newBidLevels()
	snapshot := make([]protocol.BookEntry, 0, 25)
	for i := int64(1); i <= 25; i++ {
		snapshot = append(snapshot, entry(1000+i, i))
	}
	q.applySnapshot(snapshot)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		price := int64(1000 + i%30)
		q.applyDelta([]protocol.BookEntry{entry(price, int64(i%3))})
		_ = q.levels()
	}
}
