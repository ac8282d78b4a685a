package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind is the kind of a portfolio transaction.
// Values outside the known set are kept as-is and ignored by the holdings engine.
type TransactionKind string

// Known transaction kinds.
const (
	KindBuy      TransactionKind = "buy"
	KindSell     TransactionKind = "sell"
	KindDividend TransactionKind = "dividend"
)

// ParseTransactionKind normalizes a kind string. The second return value
// reports whether the kind is one of the known kinds.
func ParseTransactionKind(s string) (TransactionKind, bool) {
	k := TransactionKind(strings.ToLower(strings.TrimSpace(s)))
	return k, k.IsKnown()
}

// IsKnown reports whether k is buy, sell or dividend.
func (k TransactionKind) IsKnown() bool {
	switch k {
	case KindBuy, KindSell, KindDividend:
		return true
	}
	return false
}

// IsTrade reports whether k is a buy or a sell.
func (k TransactionKind) IsTrade() bool {
	return k == KindBuy || k == KindSell
}

// Transaction represents a single buy, sell or dividend record.
// Quantity and Price are positive magnitudes; the Kind carries the sign.
type Transaction struct {
	ID             string              `json:"id"`
	Symbol         string              `json:"symbol"`
	Broker         string              `json:"broker"`
	Currency       string              `json:"currency"`
	Kind           TransactionKind     `json:"kind"`
	Quantity       decimal.NullDecimal `json:"quantity"`
	Price          decimal.NullDecimal `json:"price"`
	Commission     decimal.Decimal     `json:"commission"`
	DividendAmount decimal.NullDecimal `json:"dividendAmount"`
	TradeDate      *time.Time          `json:"tradeDate,omitempty"`
	PriceHint      decimal.NullDecimal `json:"priceHint"`
	Notes          string              `json:"notes,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
}

// EffectiveDate is the trade date when present, otherwise the creation timestamp.
func (t Transaction) EffectiveDate() time.Time {
	if t.TradeDate != nil && !t.TradeDate.IsZero() {
		return *t.TradeDate
	}
	return t.CreatedAt
}

// TransactionFilter narrows transaction listings. Empty fields match everything.
type TransactionFilter struct {
	Symbol string
	Broker string
}
