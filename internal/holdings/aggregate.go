package holdings

import (
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
)

// accumulator folds the transactions of one (symbol, broker) bucket.
type accumulator struct {
	pos         model.Position
	buyCost     decimal.Decimal // Σ quantity*price+commission over buys
	uniformCost decimal.Decimal // same over buys and sells
}

func newAccumulator(t model.Transaction) *accumulator {
	return &accumulator{
		pos: model.Position{
			Symbol:   normalizeSymbol(t.Symbol),
			Broker:   brokerLabel(t),
			Currency: t.Currency,
		},
	}
}

func (a *accumulator) add(t model.Transaction) {
	a.pos.TransactionCount++

	date := t.EffectiveDate()
	if a.pos.FirstTradeDate == nil {
		a.pos.FirstTradeDate = &date
	}
	a.pos.LastTradeDate = &date

	// Transactions arrive in date order, so the last hint seen is the latest.
	if t.PriceHint.Valid {
		a.pos.LatestHint = t.PriceHint
	}
	if a.pos.Currency == "" {
		a.pos.Currency = t.Currency
	}

	switch t.Kind {
	case model.KindBuy:
		quantity, gross := grossAmount(t)
		a.pos.NetQuantity = a.pos.NetQuantity.Add(quantity)
		a.pos.BoughtQuantity = a.pos.BoughtQuantity.Add(quantity)
		a.pos.TotalCommission = a.pos.TotalCommission.Add(t.Commission)
		a.buyCost = a.buyCost.Add(gross)
		a.uniformCost = a.uniformCost.Add(gross)
	case model.KindSell:
		quantity, gross := grossAmount(t)
		a.pos.NetQuantity = a.pos.NetQuantity.Sub(quantity)
		a.pos.SoldQuantity = a.pos.SoldQuantity.Add(quantity)
		a.pos.TotalCommission = a.pos.TotalCommission.Add(t.Commission)
		a.uniformCost = a.uniformCost.Add(gross)
	case model.KindDividend:
		a.pos.TotalDividends = a.pos.TotalDividends.Add(orZero(t.DividendAmount))
	}
}

func (a *accumulator) position(method CostMethod) model.Position {
	p := a.pos

	switch method {
	case UniformCost:
		p.TotalCost = a.uniformCost
	default:
		switch {
		case p.NetQuantity.Equal(p.BoughtQuantity):
			p.TotalCost = a.buyCost
		case p.NetQuantity.IsPositive() && p.BoughtQuantity.IsPositive():
			p.TotalCost = p.NetQuantity.Mul(a.buyCost).Div(p.BoughtQuantity)
		default:
			// Closed or oversold: nothing left to carry a cost.
			p.TotalCost = decimal.Zero
		}
	}

	if !p.NetQuantity.IsZero() && !p.TotalCost.IsZero() {
		p.AverageCost = defined(p.TotalCost.Div(p.NetQuantity))
	}
	return p
}

// Aggregate folds transactions into one Position per (symbol, broker) pair.
//
// Buys add to and sells subtract from the net quantity; dividends only add to
// TotalDividends. Transactions of an unrecognized kind are skipped, and a
// buy or sell missing its price or quantity contributes zero for that factor.
// The order of the result is unspecified.
func Aggregate(txs []model.Transaction, opts ...Option) []model.Position {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	buckets := make(map[positionKey]*accumulator)
	var keys []positionKey

	for _, t := range ordered(txs) {
		if !t.Kind.IsKnown() {
			continue
		}
		k := keyOf(t)
		acc, ok := buckets[k]
		if !ok {
			acc = newAccumulator(t)
			buckets[k] = acc
			keys = append(keys, k)
		}
		acc.add(t)
	}

	positions := make([]model.Position, 0, len(keys))
	for _, k := range keys {
		positions = append(positions, buckets[k].position(o.costMethod))
	}
	return positions
}

// OpenPositions returns the positions with a non-zero net quantity.
func OpenPositions(positions []model.Position) []model.Position {
	open := make([]model.Position, 0, len(positions))
	for _, p := range positions {
		if p.IsOpen() {
			open = append(open, p)
		}
	}
	return open
}

// Symbols returns the distinct symbols of the given positions in first-seen order.
func Symbols(positions []model.Position) []string {
	seen := make(map[string]bool, len(positions))
	symbols := make([]string, 0, len(positions))
	for _, p := range positions {
		if p.Symbol == "" || seen[p.Symbol] {
			continue
		}
		seen[p.Symbol] = true
		symbols = append(symbols, p.Symbol)
	}
	return symbols
}

