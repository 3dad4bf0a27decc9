package depthbook

import "github.com/shopspring/decimal"

var decimalTwo = decimal.NewFromInt(2)

// BestBid returns the highest bid level. ok is false when the bid side is empty.
func (s *BookSnapshot) BestBid() (level PriceLevel, ok bool) {
	if s == nil || len(s.Bids) == 0 {
		return PriceLevel{}, false
	}
	return s.Bids[0], true
}

// BestAsk returns the lowest ask level. ok is false when the ask side is empty.
func (s *BookSnapshot) BestAsk() (level PriceLevel, ok bool) {
	if s == nil || len(s.Asks) == 0 {
		return PriceLevel{}, false
	}
	return s.Asks[0], true
}

// Spread returns best ask minus best bid. It needs both sides.
// A crossed book yields a negative spread; it is reported as is.
func (s *BookSnapshot) Spread() (decimal.Decimal, bool) {
	bid, ok := s.BestBid()
	if !ok {
		return decimal.Zero, false
	}
	ask, ok := s.BestAsk()
	if !ok {
		return decimal.Zero, false
	}
	return ask.Price.Sub(bid.Price), true
}

// MidPrice returns the average of best bid and best ask.
func (s *BookSnapshot) MidPrice() (decimal.Decimal, bool) {
	bid, ok := s.BestBid()
	if !ok {
		return decimal.Zero, false
	}
	ask, ok := s.BestAsk()
	if !ok {
		return decimal.Zero, false
	}
	return bid.Price.Add(ask.Price).Div(decimalTwo), true
}

// MaxTotal returns the larger cumulative quantity of the two sides, which is the
// Total of the last level of each side. Depth bars are scaled against it.
func (s *BookSnapshot) MaxTotal() decimal.Decimal {
	if s == nil {
		return decimal.Zero
	}

	result := decimal.Zero
	if n := len(s.Bids); n > 0 {
		result = decimal.Max(result, s.Bids[n-1].Total)
	}
	if n := len(s.Asks); n > 0 {
		result = decimal.Max(result, s.Asks[n-1].Total)
	}
	return result
}

// Imbalance returns the share of bid volume among the first levels of both sides,
// in [0, 1]. 0.5 is a balanced book. levels <= 0 uses DefaultImbalanceLevels.
// ok is false when there is no volume at all.
func (s *BookSnapshot) Imbalance(levels int) (decimal.Decimal, bool) {
	if s == nil {
		return decimal.Zero, false
	}
	if levels <= 0 {
		levels = DefaultImbalanceLevels
	}

	bidVol := sideVolume(s.Bids, levels)
	askVol := sideVolume(s.Asks, levels)
	total := bidVol.Add(askVol)
	if total.IsZero() {
		return decimal.Zero, false
	}

	return bidVol.Div(total), true
}

// sideVolume is the Total at the last of the first n levels.
func sideVolume(side BookSide, n int) decimal.Decimal {
	if len(side) == 0 {
		return decimal.Zero
	}
	if n > len(side) {
		n = len(side)
	}
	return side[n-1].Total
}
