package ibkr

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
)

// DefaultBroker is the broker name given to imported transactions.
const DefaultBroker = "IBKR"

// idNamespace derives stable transaction IDs from IBKR transaction IDs so
// importing the same statement twice yields the same rows.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://www.interactivebrokers.com/flex"))

var dividendTypes = map[string]bool{
	"Dividends":                    true,
	"Payment In Lieu Of Dividends": true,
}

// Conversion is the result of converting a Flex statement.
type Conversion struct {
	Transactions []model.Transaction
	// Skipped holds one reason per statement row that was not converted.
	Skipped []string
}

// TransactionID returns the portfolio transaction ID for an IBKR transaction.
func TransactionID(accountID, ibkrID string) string {
	return uuid.NewSHA1(idNamespace, []byte(accountID+":"+ibkrID)).String()
}

// Convert maps trades to buys and sells and dividend cash transactions to
// dividends. Withholding tax, fees and cancelled trades are skipped.
func Convert(report FlexQueryResponse, broker string, now time.Time) Conversion {
	if broker == "" {
		broker = DefaultBroker
	}

	var out Conversion
	for _, stmt := range report.FlexStatements.FlexStatement {
		for _, trade := range stmt.Trades.Trade {
			tx, err := convertTrade(stmt.AccountID, trade, broker, now)
			if err != nil {
				out.Skipped = append(out.Skipped, fmt.Sprintf("trade %s: %v", trade.TransactionID, err))
				continue
			}
			out.Transactions = append(out.Transactions, tx)
		}
		for _, cash := range stmt.CashTransactions.CashTransaction {
			tx, err := convertDividend(stmt.AccountID, cash, broker, now)
			if err != nil {
				out.Skipped = append(out.Skipped, fmt.Sprintf("cash transaction %s: %v", cash.TransactionID, err))
				continue
			}
			out.Transactions = append(out.Transactions, tx)
		}
	}
	return out
}

func convertTrade(accountID string, trade Trade, broker string, now time.Time) (model.Transaction, error) {
	if trade.TransactionID == "" {
		return model.Transaction{}, fmt.Errorf("missing transactionID")
	}

	var kind model.TransactionKind
	switch strings.ToUpper(strings.TrimSpace(trade.BuySell)) {
	case "BUY":
		kind = model.KindBuy
	case "SELL":
		kind = model.KindSell
	default:
		return model.Transaction{}, fmt.Errorf("unsupported buySell %q", trade.BuySell)
	}

	quantity, err := parseDecimal(trade.Quantity)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("quantity: %w", err)
	}
	price, err := parseDecimal(trade.TradePrice)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("tradePrice: %w", err)
	}
	commission, err := parseDecimal(trade.IbCommission)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("ibCommission: %w", err)
	}
	if quantity.IsZero() {
		return model.Transaction{}, fmt.Errorf("zero quantity")
	}
	tradeDate, err := parseFlexDate(trade.TradeDate)
	if err != nil {
		return model.Transaction{}, err
	}

	return model.Transaction{
		ID:         TransactionID(accountID, trade.TransactionID),
		Symbol:     strings.ToUpper(strings.TrimSpace(trade.Symbol)),
		Broker:     broker,
		Currency:   strings.ToUpper(strings.TrimSpace(trade.Currency)),
		Kind:       kind,
		Quantity:   decimal.NewNullDecimal(quantity.Abs()),
		Price:      decimal.NewNullDecimal(price.Abs()),
		Commission: commission.Abs(),
		TradeDate:  &tradeDate,
		PriceHint:  decimal.NewNullDecimal(price.Abs()),
		Notes:      strings.TrimSpace(trade.Description),
		CreatedAt:  now.UTC(),
	}, nil
}

func convertDividend(accountID string, cash CashTransaction, broker string, now time.Time) (model.Transaction, error) {
	if !dividendTypes[cash.Type] {
		return model.Transaction{}, fmt.Errorf("type %q is not a dividend", cash.Type)
	}
	if cash.TransactionID == "" {
		return model.Transaction{}, fmt.Errorf("missing transactionID")
	}

	amount, err := parseDecimal(cash.Amount)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("amount: %w", err)
	}
	// Negative amounts are reversals of an earlier payment
	if !amount.IsPositive() {
		return model.Transaction{}, fmt.Errorf("non-positive amount %s", amount)
	}
	paidOn, err := parseFlexDate(cash.DateTime)
	if err != nil {
		return model.Transaction{}, err
	}

	return model.Transaction{
		ID:             TransactionID(accountID, cash.TransactionID),
		Symbol:         strings.ToUpper(strings.TrimSpace(cash.Symbol)),
		Broker:         broker,
		Currency:       strings.ToUpper(strings.TrimSpace(cash.Currency)),
		Kind:           model.KindDividend,
		DividendAmount: decimal.NewNullDecimal(amount),
		TradeDate:      &paidOn,
		Notes:          strings.TrimSpace(cash.Description),
		CreatedAt:      now.UTC(),
	}, nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// parseFlexDate accepts the yyyyMMdd and yyyy-MM-dd date formats, optionally
// followed by a time separated by ';' or a space.
func parseFlexDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "; "); i >= 0 {
		s = s[:i]
	}
	for _, layout := range []string{"20060102", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}
