package holdings

import (
	"cmp"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
)

type summaryAccumulator struct {
	summary    model.CurrencySummary
	valuedCost decimal.Decimal
}

// Summarize totals valued positions and realized results per currency and
// computes each valued position's allocation within its currency.
// Unrealized totals only cover positions that have a price; positions without
// one are counted in UnvaluedPositions. The result is sorted by currency.
func Summarize(valued []model.ValuedPosition, analyses []model.RealizedTradeAnalysis) []model.CurrencySummary {
	byCurrency := make(map[string]*summaryAccumulator)
	get := func(currency string) *summaryAccumulator {
		currency = strings.ToUpper(strings.TrimSpace(currency))
		acc, ok := byCurrency[currency]
		if !ok {
			acc = &summaryAccumulator{summary: model.CurrencySummary{
				Currency:    currency,
				Allocations: []model.Allocation{},
			}}
			byCurrency[currency] = acc
		}
		return acc
	}

	for _, v := range valued {
		acc := get(v.Currency)
		s := &acc.summary
		s.Positions++
		if v.IsOpen() {
			s.OpenPositions++
		}
		s.TotalCost = s.TotalCost.Add(v.TotalCost)
		s.TotalDividends = s.TotalDividends.Add(v.TotalDividends)
		s.TotalCommission = s.TotalCommission.Add(v.TotalCommission)

		if !v.CurrentValue.Valid {
			if v.IsOpen() {
				s.UnvaluedPositions++
			}
			continue
		}
		s.TotalValue = s.TotalValue.Add(v.CurrentValue.Decimal)
		s.UnrealizedPL = s.UnrealizedPL.Add(v.UnrealizedPL.Decimal)
		acc.valuedCost = acc.valuedCost.Add(v.TotalCost)
		if v.IsOpen() {
			s.Allocations = append(s.Allocations, model.Allocation{
				Symbol: v.Symbol,
				Broker: v.Broker,
				Value:  v.CurrentValue.Decimal,
			})
		}
	}

	for _, a := range analyses {
		if !a.RealizedPL.Valid {
			continue
		}
		s := &get(a.Currency).summary
		s.RealizedPL = s.RealizedPL.Add(a.RealizedPL.Decimal)
	}

	summaries := make([]model.CurrencySummary, 0, len(byCurrency))
	for _, acc := range byCurrency {
		s := acc.summary
		s.UnrealizedPLPercent = percentOf(s.UnrealizedPL, acc.valuedCost)
		for i := range s.Allocations {
			if p := percentOf(s.Allocations[i].Value, s.TotalValue); p.Valid {
				s.Allocations[i].Percent = p.Decimal
			}
		}
		slices.SortFunc(s.Allocations, func(a, b model.Allocation) int {
			if c := b.Value.Cmp(a.Value); c != 0 {
				return c
			}
			if c := cmp.Compare(a.Symbol, b.Symbol); c != 0 {
				return c
			}
			return cmp.Compare(a.Broker, b.Broker)
		})
		summaries = append(summaries, s)
	}

	slices.SortFunc(summaries, func(a, b model.CurrencySummary) int {
		return cmp.Compare(a.Currency, b.Currency)
	})
	return summaries
}
