package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// UnknownBroker is the display name of the bucket holding transactions without a broker.
const UnknownBroker = "Unknown"

// Position is the aggregated holding of one instrument at one broker.
// It is derived from transactions on every call and never persisted.
// Undefined values are invalid NullDecimals and serialize as null.
type Position struct {
	Symbol           string              `json:"symbol"`
	Broker           string              `json:"broker"`
	Currency         string              `json:"currency"`
	NetQuantity      decimal.Decimal     `json:"netQuantity"`
	BoughtQuantity   decimal.Decimal     `json:"boughtQuantity"`
	SoldQuantity     decimal.Decimal     `json:"soldQuantity"`
	TotalCost        decimal.Decimal     `json:"totalCost"`
	TotalCommission  decimal.Decimal     `json:"totalCommission"`
	TotalDividends   decimal.Decimal     `json:"totalDividends"`
	AverageCost      decimal.NullDecimal `json:"averageCost"`
	LatestHint       decimal.NullDecimal `json:"latestHint"`
	TransactionCount int                 `json:"transactionCount"`
	FirstTradeDate   *time.Time          `json:"firstTradeDate,omitempty"`
	LastTradeDate    *time.Time          `json:"lastTradeDate,omitempty"`
}

// IsOpen reports whether the position still holds a non-zero quantity.
func (p Position) IsOpen() bool {
	return !p.NetQuantity.IsZero()
}

// PriceSource tells where a valued position's current price came from.
type PriceSource string

// Price sources.
const (
	PriceSourceNone  PriceSource = ""
	PriceSourceQuote PriceSource = "quote"
	PriceSourceHint  PriceSource = "hint"
)

// ValuedPosition is a Position combined with a current price.
type ValuedPosition struct {
	Position
	CurrentPrice        decimal.NullDecimal `json:"currentPrice"`
	PriceSource         PriceSource         `json:"priceSource"`
	QuoteAsOf           *time.Time          `json:"quoteAsOf,omitempty"`
	CurrentValue        decimal.NullDecimal `json:"currentValue"`
	UnrealizedPL        decimal.NullDecimal `json:"unrealizedPL"`
	UnrealizedPLPercent decimal.NullDecimal `json:"unrealizedPLPercent"`
}

// RealizedTradeAnalysis holds the average-cost realized result of one (symbol, broker) pair.
type RealizedTradeAnalysis struct {
	Symbol            string              `json:"symbol"`
	Broker            string              `json:"broker"`
	Currency          string              `json:"currency"`
	TotalBought       decimal.Decimal     `json:"totalBought"`
	TotalSold         decimal.Decimal     `json:"totalSold"`
	TotalBuyCost      decimal.Decimal     `json:"totalBuyCost"`
	TotalSellProceeds decimal.Decimal     `json:"totalSellProceeds"`
	TotalCommission   decimal.Decimal     `json:"totalCommission"`
	AvgBuyPrice       decimal.NullDecimal `json:"avgBuyPrice"`
	AvgSellPrice      decimal.NullDecimal `json:"avgSellPrice"`
	RealizedPL        decimal.NullDecimal `json:"realizedPL"`
	RealizedPLPercent decimal.NullDecimal `json:"realizedPLPercent"`
	IsClosed          bool                `json:"isClosed"`
}

// Allocation is the share of one valued position in its currency's total value.
type Allocation struct {
	Symbol  string          `json:"symbol"`
	Broker  string          `json:"broker"`
	Value   decimal.Decimal `json:"value"`
	Percent decimal.Decimal `json:"percent"`
}

// CurrencySummary aggregates the portfolio for a single currency.
// Amounts in different currencies are never added together.
type CurrencySummary struct {
	Currency            string              `json:"currency"`
	Positions           int                 `json:"positions"`
	OpenPositions       int                 `json:"openPositions"`
	UnvaluedPositions   int                 `json:"unvaluedPositions"`
	TotalCost           decimal.Decimal     `json:"totalCost"`
	TotalValue          decimal.Decimal     `json:"totalValue"`
	UnrealizedPL        decimal.Decimal     `json:"unrealizedPL"`
	UnrealizedPLPercent decimal.NullDecimal `json:"unrealizedPLPercent"`
	RealizedPL          decimal.Decimal     `json:"realizedPL"`
	TotalDividends      decimal.Decimal     `json:"totalDividends"`
	TotalCommission     decimal.Decimal     `json:"totalCommission"`
	Allocations         []Allocation        `json:"allocations"`
}

// HoldingsView is the valued holdings list together with the symbols whose
// quote could not be retrieved. A missing quote never fails the view.
type HoldingsView struct {
	Positions   []ValuedPosition  `json:"positions"`
	QuoteErrors map[string]string `json:"quoteErrors,omitempty"`
}
