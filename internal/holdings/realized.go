package holdings

import (
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
)

// ClosedEpsilon is the largest difference between bought and sold quantity
// for which a position is still reported as closed.
var ClosedEpsilon = decimal.New(1, -4)

type tradeAccumulator struct {
	analysis     model.RealizedTradeAnalysis
	buyCost      decimal.Decimal // Σ quantity*price+commission
	sellProceeds decimal.Decimal // Σ quantity*price-commission
}

func (a *tradeAccumulator) add(t model.Transaction) {
	quantity := orZero(t.Quantity).Abs()
	amount := quantity.Mul(orZero(t.Price))

	a.analysis.TotalCommission = a.analysis.TotalCommission.Add(t.Commission)

	switch t.Kind {
	case model.KindBuy:
		a.analysis.TotalBought = a.analysis.TotalBought.Add(quantity)
		a.buyCost = a.buyCost.Add(amount.Add(t.Commission))
	case model.KindSell:
		a.analysis.TotalSold = a.analysis.TotalSold.Add(quantity)
		a.sellProceeds = a.sellProceeds.Add(amount.Sub(t.Commission))
	}
}

func (a *tradeAccumulator) result() model.RealizedTradeAnalysis {
	r := a.analysis
	r.TotalBuyCost = a.buyCost
	r.TotalSellProceeds = a.sellProceeds

	bought, sold := r.TotalBought, r.TotalSold

	if sold.IsPositive() {
		r.AvgSellPrice = defined(a.sellProceeds.Div(sold))
	}
	if !bought.IsPositive() {
		// Sell-only keys have no basis to measure against.
		return r
	}

	r.AvgBuyPrice = defined(a.buyCost.Div(bought))

	// sold*avgSell is exactly the net proceeds, so use them directly.
	soldBasis := sold.Mul(a.buyCost).Div(bought)
	realized := decimal.Zero
	if sold.IsPositive() {
		realized = a.sellProceeds.Sub(soldBasis)
	}
	r.RealizedPL = defined(realized)
	r.RealizedPLPercent = percentOf(realized, soldBasis)
	r.IsClosed = bought.Sub(sold).Abs().LessThanOrEqual(ClosedEpsilon)
	return r
}

// Analyze computes average-cost realized results per (symbol, broker) pair.
//
// Only buys and sells are considered; keys that only carry dividends are not
// reported. The buy average includes commission and the sell average is net
// of commission. A key is closed when it has bought something and the bought
// and sold quantities differ by at most ClosedEpsilon.
func Analyze(txs []model.Transaction) []model.RealizedTradeAnalysis {
	buckets := make(map[positionKey]*tradeAccumulator)
	var keys []positionKey

	for _, t := range ordered(txs) {
		if !t.Kind.IsTrade() {
			continue
		}
		k := keyOf(t)
		acc, ok := buckets[k]
		if !ok {
			acc = &tradeAccumulator{analysis: model.RealizedTradeAnalysis{
				Symbol:   normalizeSymbol(t.Symbol),
				Broker:   brokerLabel(t),
				Currency: t.Currency,
			}}
			buckets[k] = acc
			keys = append(keys, k)
		}
		acc.add(t)
	}

	results := make([]model.RealizedTradeAnalysis, 0, len(keys))
	for _, k := range keys {
		results = append(results, buckets[k].result())
	}
	return results
}

// ClosedTrades returns the analyses of positions that have been fully sold.
func ClosedTrades(analyses []model.RealizedTradeAnalysis) []model.RealizedTradeAnalysis {
	closed := make([]model.RealizedTradeAnalysis, 0, len(analyses))
	for _, a := range analyses {
		if a.IsClosed {
			closed = append(closed, a)
		}
	}
	return closed
}
