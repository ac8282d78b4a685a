package service

import "github.com/shopspring/decimal"

// Presentation precision of derived figures. Stored amounts are never rounded.
const (
	PercentPlaces = 2
	AveragePlaces = 6
)

// roundNull rounds a defined value half away from zero and leaves undefined values alone.
//
// Example:
//
//	roundNull(decimal.NewNullDecimal(decimal.RequireFromString("18.755")), 2) // 18.76
//	roundNull(decimal.NullDecimal{}, 2)                                      // undefined
func roundNull(d decimal.NullDecimal, places int32) decimal.NullDecimal {
	if !d.Valid {
		return d
	}
	return decimal.NewNullDecimal(d.Decimal.Round(places))
}
