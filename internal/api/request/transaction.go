package request

import "github.com/shopspring/decimal"

// Decimal fields accept both JSON numbers and quoted strings.

type CreateTransactionRequest struct {
	Symbol         string           `json:"symbol"`
	Broker         string           `json:"broker"`
	Currency       string           `json:"currency"`
	Kind           string           `json:"kind"`
	Quantity       *decimal.Decimal `json:"quantity,omitempty"`
	Price          *decimal.Decimal `json:"price,omitempty"`
	Commission     *decimal.Decimal `json:"commission,omitempty"`
	DividendAmount *decimal.Decimal `json:"dividendAmount,omitempty"`
	TradeDate      *string          `json:"tradeDate,omitempty"`
	PriceHint      *decimal.Decimal `json:"priceHint,omitempty"`
	Notes          string           `json:"notes"`
}

type UpdateTransactionRequest struct {
	Symbol         *string          `json:"symbol,omitempty"`
	Broker         *string          `json:"broker,omitempty"`
	Currency       *string          `json:"currency,omitempty"`
	Kind           *string          `json:"kind,omitempty"`
	Quantity       *decimal.Decimal `json:"quantity,omitempty"`
	Price          *decimal.Decimal `json:"price,omitempty"`
	Commission     *decimal.Decimal `json:"commission,omitempty"`
	DividendAmount *decimal.Decimal `json:"dividendAmount,omitempty"`
	TradeDate      *string          `json:"tradeDate,omitempty"`
	PriceHint      *decimal.Decimal `json:"priceHint,omitempty"`
	Notes          *string          `json:"notes,omitempty"`
}

