// Package holdings derives positions, valuations and realized results from a
// flat list of transactions.
//
// Every function in this package is a pure transform of its inputs: nothing is
// cached between calls and no input is mutated. Callers are expected to pass
// the complete transaction list on every call and recompute on every change.
//
// Undefined results (no price, division by a zero basis) are reported as
// invalid decimal.NullDecimal values, never as zero.
package holdings

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
)

var hundred = decimal.NewFromInt(100)

// CostMethod selects how sells affect the cost basis of an open position.
type CostMethod int

const (
	// AverageCost values the remaining quantity at the weighted average buy
	// cost (commission included). Sell commission is charged against
	// realized proceeds instead, so commission always lowers net return.
	AverageCost CostMethod = iota
	// UniformCost adds quantity*price+commission of every buy and every sell
	// to the total cost.
	UniformCost
)

func (m CostMethod) String() string {
	switch m {
	case AverageCost:
		return "average"
	case UniformCost:
		return "uniform"
	default:
		return "unknown"
	}
}

// ParseCostMethod parses "average" or "uniform".
func ParseCostMethod(s string) (CostMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "average":
		return AverageCost, nil
	case "uniform":
		return UniformCost, nil
	default:
		return 0, fmt.Errorf("unknown cost method: %q", s)
	}
}

type options struct {
	costMethod CostMethod
}

// Option configures Aggregate.
type Option func(*options)

// WithCostMethod selects the cost convention used by Aggregate.
func WithCostMethod(m CostMethod) Option {
	return func(o *options) {
		o.costMethod = m
	}
}

// positionKey identifies a (symbol, broker) bucket. unknown marks the bucket
// of transactions without a broker, so it never collides with a broker
// that happens to be called "Unknown".
type positionKey struct {
	symbol  string
	broker  string
	unknown bool
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// cleanBroker trims the broker and collapses inner whitespace.
func cleanBroker(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func keyOf(t model.Transaction) positionKey {
	broker := cleanBroker(t.Broker)
	if broker == "" {
		return positionKey{symbol: normalizeSymbol(t.Symbol), unknown: true}
	}
	return positionKey{symbol: normalizeSymbol(t.Symbol), broker: strings.ToLower(broker)}
}

// brokerLabel is the broker name shown for the bucket t opens.
func brokerLabel(t model.Transaction) string {
	broker := cleanBroker(t.Broker)
	if broker == "" {
		return model.UnknownBroker
	}
	return broker
}

// ordered returns a copy of txs sorted by effective date, then ID.
func ordered(txs []model.Transaction) []model.Transaction {
	sorted := slices.Clone(txs)
	slices.SortStableFunc(sorted, func(a, b model.Transaction) int {
		if c := a.EffectiveDate().Compare(b.EffectiveDate()); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return sorted
}

// orZero returns the value of d, or zero when d is undefined.
func orZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}

func defined(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NewNullDecimal(d)
}

// percentOf returns part/whole*100, undefined when whole is zero.
func percentOf(part, whole decimal.Decimal) decimal.NullDecimal {
	if whole.IsZero() {
		return decimal.NullDecimal{}
	}
	return defined(part.Div(whole).Mul(hundred))
}

// grossAmount returns quantity*price+commission for a trade row, treating
// a missing quantity or price as zero.
func grossAmount(t model.Transaction) (quantity, gross decimal.Decimal) {
	quantity = orZero(t.Quantity).Abs()
	gross = quantity.Mul(orZero(t.Price)).Add(t.Commission)
	return quantity, gross
}
