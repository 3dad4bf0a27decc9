package depthbook

import (
	"github.com/0x5487/depthbook/protocol"
	"github.com/huandu/skiplist"
	"github.com/shopspring/decimal"
)

// priceLevels is one side of the aggregated book: price -> remaining quantity.
// It is not safe for concurrent use; the owning AggregatedBook serializes access.
type priceLevels struct {
	side      Side
	depthList *skiplist.SkipList
}

// newBidLevels creates the bid side.
// The levels are sorted by price in descending order (highest price first).
func newBidLevels() *priceLevels {
	return &priceLevels{
		side: Bid,
		depthList: skiplist.New(skiplist.GreaterThanFunc(func(lhs, rhs any) int {
			d1, _ := lhs.(decimal.Decimal)
			d2, _ := rhs.(decimal.Decimal)

			return d2.Cmp(d1)
		})),
	}
}

// newAskLevels creates the ask side.
// The levels are sorted by price in ascending order (lowest price first).
func newAskLevels() *priceLevels {
	return &priceLevels{
		side: Ask,
		depthList: skiplist.New(skiplist.GreaterThanFunc(func(lhs, rhs any) int {
			d1, _ := lhs.(decimal.Decimal)
			d2, _ := rhs.(decimal.Decimal)

			return d1.Cmp(d2)
		})),
	}
}

// applySnapshot replaces the entire side with the given entries.
// Zero quantities are skipped; a repeated price keeps the last quantity.
func (q *priceLevels) applySnapshot(entries []protocol.BookEntry) {
	q.depthList.Init()

	for _, e := range entries {
		if e.Qty.IsZero() {
			continue
		}
		q.depthList.Set(e.Price, e.Qty)
	}
}

// applyDelta merges the entries in place.
// Qty == 0 removes the price (no-op when absent), otherwise the quantity is overwritten.
func (q *priceLevels) applyDelta(entries []protocol.BookEntry) {
	for _, e := range entries {
		if e.Qty.IsZero() {
			q.depthList.Remove(e.Price)
			continue
		}
		q.depthList.Set(e.Price, e.Qty)
	}
}

// truncate drops the levels furthest from the touch until at most limit remain.
func (q *priceLevels) truncate(limit int) {
	if limit <= 0 {
		return
	}

	for q.depthList.Len() > limit {
		q.depthList.RemoveBack()
	}
}

// quantity returns the resting quantity at price.
func (q *priceLevels) quantity(price decimal.Decimal) (decimal.Decimal, bool) {
	el := q.depthList.Get(price)
	if el == nil {
		return decimal.Zero, false
	}

	qty, _ := el.Value.(decimal.Decimal)
	return qty, true
}

// depthCount returns the number of price levels on this side.
func (q *priceLevels) depthCount() int {
	return q.depthList.Len()
}

// levels materialises the side best price first and recomputes the running totals
// with a single forward scan.
func (q *priceLevels) levels() BookSide {
	result := make(BookSide, 0, q.depthList.Len())
	total := decimal.Zero

	for el := q.depthList.Front(); el != nil; el = el.Next() {
		price, _ := el.Key().(decimal.Decimal)
		qty, _ := el.Value.(decimal.Decimal)

		total = total.Add(qty)
		result = append(result, PriceLevel{
			Price:    price,
			Quantity: qty,
			Total:    total,
		})
	}

	return result
}

// validateEntries rejects entries that can never be stored, including entries
// that arrived without a price or qty.
func validateEntries(entries []protocol.BookEntry) error {
	for _, e := range entries {
		if !e.Complete() || !e.Price.IsPositive() || e.Qty.IsNegative() {
			return ErrInvalidLevel
		}
	}
	return nil
}
