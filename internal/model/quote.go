package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is an externally supplied market price for an instrument.
type Quote struct {
	Symbol   string          `json:"symbol"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency,omitempty"`
	AsOf     *time.Time      `json:"asOf,omitempty"`
	Source   string          `json:"source"`
}
