package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/api/request"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
)

// DateLayout is the accepted format of trade dates.
const DateLayout = "2006-01-02"

const maxSymbolLength = 32

// ValidateCreateTransaction validates a transaction creation request.
// Checks all required fields and validates their formats and constraints.
//
// Required fields:
//   - symbol: non-blank, at most 32 characters
//   - currency: a known ISO-4217 code
//   - kind: one of buy, sell, dividend
//   - quantity, price: required for buy and sell, quantity positive, price not negative
//   - dividendAmount: required and positive for dividend
//
// Optional fields:
//   - commission, priceHint: not negative
//   - tradeDate: YYYY-MM-DD
//
// Returns a validation Error with field-specific error messages if validation fails.
func ValidateCreateTransaction(req request.CreateTransactionRequest) error {
	errors := make(map[string]string)

	validateSymbol(errors, req.Symbol)
	validateCurrency(errors, req.Currency)
	kind := validateKind(errors, req.Kind)

	if kind.IsTrade() {
		if req.Quantity == nil {
			errors["quantity"] = "quantity is required"
		}
		if req.Price == nil {
			errors["price"] = "price is required"
		}
	}
	if kind == model.KindDividend && req.DividendAmount == nil {
		errors["dividendAmount"] = "dividendAmount is required"
	}

	validateAmounts(errors, req.Quantity, req.Price, req.Commission, req.DividendAmount, req.PriceHint)
	if req.TradeDate != nil {
		validateDate(errors, *req.TradeDate)
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}

	return nil
}

// ValidateUpdateTransaction validates a transaction update request.
// All fields are optional, but if provided, they must meet the same constraints as create.
// Cross-field rules (a trade needs a quantity and a price) are checked on
// the merged transaction by ValidateTransaction.
//
// Returns a validation Error with field-specific error messages if validation fails.
func ValidateUpdateTransaction(req request.UpdateTransactionRequest) error {
	errors := make(map[string]string)

	if req.Symbol != nil {
		validateSymbol(errors, *req.Symbol)
	}
	if req.Currency != nil {
		validateCurrency(errors, *req.Currency)
	}
	if req.Kind != nil {
		validateKind(errors, *req.Kind)
	}
	validateAmounts(errors, req.Quantity, req.Price, req.Commission, req.DividendAmount, req.PriceHint)
	if req.TradeDate != nil {
		validateDate(errors, *req.TradeDate)
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}

	return nil
}

// ValidateTransaction checks the cross-field consistency of a complete transaction.
func ValidateTransaction(tx model.Transaction) error {
	errors := make(map[string]string)

	switch {
	case tx.Kind.IsTrade():
		if !tx.Quantity.Valid {
			errors["quantity"] = fmt.Sprintf("quantity is required for %s", tx.Kind)
		}
		if !tx.Price.Valid {
			errors["price"] = fmt.Sprintf("price is required for %s", tx.Kind)
		}
	case tx.Kind == model.KindDividend:
		if !tx.DividendAmount.Valid {
			errors["dividendAmount"] = "dividendAmount is required for dividend"
		}
	default:
		errors["kind"] = fmt.Sprintf("invalid kind: %s", tx.Kind)
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}

	return nil
}

func validateSymbol(errors map[string]string, symbol string) {
	symbol = strings.TrimSpace(symbol)
	switch {
	case symbol == "":
		errors["symbol"] = "symbol is required"
	case len(symbol) > maxSymbolLength:
		errors["symbol"] = fmt.Sprintf("symbol must be at most %d characters", maxSymbolLength)
	}
}

// validateCurrency accepts any ISO-4217 code known to go-money, in any case.
func validateCurrency(errors map[string]string, currency string) {
	currency = strings.TrimSpace(currency)
	switch {
	case currency == "":
		errors["currency"] = "currency is required"
	case money.GetCurrency(strings.ToUpper(currency)) == nil:
		errors["currency"] = fmt.Sprintf("unknown currency: %s", currency)
	}
}

func validateKind(errors map[string]string, kind string) model.TransactionKind {
	if strings.TrimSpace(kind) == "" {
		errors["kind"] = "kind is required"
		return ""
	}
	k, ok := model.ParseTransactionKind(kind)
	if !ok {
		errors["kind"] = fmt.Sprintf("invalid kind: %s (must be buy, sell or dividend)", kind)
	}
	return k
}

func validateAmounts(errors map[string]string, quantity, price, commission, dividendAmount, priceHint *decimal.Decimal) {
	if quantity != nil && !quantity.IsPositive() {
		errors["quantity"] = "quantity must be positive"
	}
	if price != nil && price.IsNegative() {
		errors["price"] = "price cannot be negative"
	}
	if commission != nil && commission.IsNegative() {
		errors["commission"] = "commission cannot be negative"
	}
	if dividendAmount != nil && !dividendAmount.IsPositive() {
		errors["dividendAmount"] = "dividendAmount must be positive"
	}
	if priceHint != nil && priceHint.IsNegative() {
		errors["priceHint"] = "priceHint cannot be negative"
	}
}

func validateDate(errors map[string]string, date string) {
	if strings.TrimSpace(date) == "" {
		errors["tradeDate"] = "tradeDate cannot be blank"
		return
	}
	if _, err := time.Parse(DateLayout, date); err != nil {
		errors["tradeDate"] = fmt.Sprintf("tradeDate must be YYYY-MM-DD: %s", date)
	}
}
