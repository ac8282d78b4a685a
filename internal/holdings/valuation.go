package holdings

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
)

// Value prices a position. A non-nil quote wins over the position's latest
// hinted price; with neither, all valuation fields stay undefined.
func Value(pos model.Position, quote *model.Quote) model.ValuedPosition {
	v := model.ValuedPosition{Position: pos}

	var price decimal.Decimal
	switch {
	case quote != nil:
		price = quote.Price
		v.PriceSource = model.PriceSourceQuote
		v.QuoteAsOf = quote.AsOf
	case pos.LatestHint.Valid:
		price = pos.LatestHint.Decimal
		v.PriceSource = model.PriceSourceHint
	default:
		return v
	}

	value := price.Mul(pos.NetQuantity)
	unrealized := value.Sub(pos.TotalCost)

	v.CurrentPrice = defined(price)
	v.CurrentValue = defined(value)
	v.UnrealizedPL = defined(unrealized)
	v.UnrealizedPLPercent = percentOf(unrealized, pos.TotalCost)
	return v
}

// ValueAll prices every position using a possibly partial quote map keyed by
// symbol. Positions without a quote fall back to their hinted price.
func ValueAll(positions []model.Position, quotes map[string]model.Quote) []model.ValuedPosition {
	bySymbol := make(map[string]model.Quote, len(quotes))
	for symbol, q := range quotes {
		bySymbol[normalizeSymbol(symbol)] = q
	}

	valued := make([]model.ValuedPosition, len(positions))
	for i, p := range positions {
		if q, ok := bySymbol[p.Symbol]; ok {
			valued[i] = Value(p, &q)
			continue
		}
		valued[i] = Value(p, nil)
	}
	return valued
}

// SortByTotalCost orders valued positions by total cost, largest first.
// Ties are broken by symbol and broker so the order is stable across calls.
func SortByTotalCost(valued []model.ValuedPosition) {
	slices.SortFunc(valued, func(a, b model.ValuedPosition) int {
		if c := b.TotalCost.Cmp(a.TotalCost); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Symbol, b.Symbol); c != 0 {
			return c
		}
		return cmp.Compare(a.Broker, b.Broker)
	})
}
