package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/repository"
)

// TransactionBuilder provides a fluent interface for creating test transactions.
//
// Example usage:
//
//	// A buy of 10 AAPL at 150 with defaults for everything else
//	tx := testutil.NewTransaction().Buy("AAPL", "10", "150").Build(t, db)
//
//	// Customized transaction
//	tx := testutil.NewTransaction().
//	    Sell("AAPL", "4", "170").
//	    WithBroker("IBKR").
//	    WithCommission("1.25").
//	    WithDate(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)).
//	    Build(t, db)
type TransactionBuilder struct {
	tx model.Transaction
}

// NewTransaction creates a TransactionBuilder with sensible defaults:
// a buy of 1 TEST at 100 USD at the "Test Broker".
func NewTransaction() *TransactionBuilder {
	return &TransactionBuilder{
		tx: model.Transaction{
			ID:        MakeID(),
			Symbol:    "TEST",
			Broker:    "Test Broker",
			Currency:  "USD",
			Kind:      model.KindBuy,
			Quantity:  decimal.NewNullDecimal(decimal.NewFromInt(1)),
			Price:     decimal.NewNullDecimal(decimal.NewFromInt(100)),
			CreatedAt: time.Now().UTC(),
		},
	}
}

// Buy turns the transaction into a buy of quantity at price.
func (b *TransactionBuilder) Buy(symbol, quantity, price string) *TransactionBuilder {
	return b.trade(model.KindBuy, symbol, quantity, price)
}

// Sell turns the transaction into a sell of quantity at price.
func (b *TransactionBuilder) Sell(symbol, quantity, price string) *TransactionBuilder {
	return b.trade(model.KindSell, symbol, quantity, price)
}

// Dividend turns the transaction into a dividend payment of amount.
func (b *TransactionBuilder) Dividend(symbol, amount string) *TransactionBuilder {
	b.tx.Kind = model.KindDividend
	b.tx.Symbol = symbol
	b.tx.Quantity = decimal.NullDecimal{}
	b.tx.Price = decimal.NullDecimal{}
	b.tx.DividendAmount = decimal.NewNullDecimal(decimal.RequireFromString(amount))
	return b
}

func (b *TransactionBuilder) trade(kind model.TransactionKind, symbol, quantity, price string) *TransactionBuilder {
	b.tx.Kind = kind
	b.tx.Symbol = symbol
	b.tx.Quantity = decimal.NewNullDecimal(decimal.RequireFromString(quantity))
	b.tx.Price = decimal.NewNullDecimal(decimal.RequireFromString(price))
	b.tx.DividendAmount = decimal.NullDecimal{}
	return b
}

// WithID sets a custom ID.
func (b *TransactionBuilder) WithID(id string) *TransactionBuilder {
	b.tx.ID = id
	return b
}

// WithBroker sets the broker. An empty broker lands in the "Unknown" position.
func (b *TransactionBuilder) WithBroker(broker string) *TransactionBuilder {
	b.tx.Broker = broker
	return b
}

// WithCurrency sets the currency code.
func (b *TransactionBuilder) WithCurrency(currency string) *TransactionBuilder {
	b.tx.Currency = currency
	return b
}

// WithCommission sets the commission.
func (b *TransactionBuilder) WithCommission(commission string) *TransactionBuilder {
	b.tx.Commission = decimal.RequireFromString(commission)
	return b
}

// WithPriceHint sets the user supplied fallback price.
func (b *TransactionBuilder) WithPriceHint(hint string) *TransactionBuilder {
	b.tx.PriceHint = decimal.NewNullDecimal(decimal.RequireFromString(hint))
	return b
}

// WithDate sets the trade date.
func (b *TransactionBuilder) WithDate(date time.Time) *TransactionBuilder {
	b.tx.TradeDate = &date
	return b
}

// WithKind sets a raw kind, including kinds the holdings engine does not know.
func (b *TransactionBuilder) WithKind(kind string) *TransactionBuilder {
	b.tx.Kind = model.TransactionKind(kind)
	return b
}

// Build creates the transaction in the database and returns it.
func (b *TransactionBuilder) Build(t *testing.T, db *sql.DB) model.Transaction {
	t.Helper()

	repo := repository.NewTransactionRepository(db)
	if err := repo.InsertTransaction(context.Background(), b.tx); err != nil {
		t.Fatalf("Failed to create test transaction: %v", err)
	}

	return b.tx
}

// UserBuilder provides a fluent interface for creating the test user.
//
// Example usage:
//
//	user := testutil.NewUser().WithPassword("correct horse").Build(t, db)
type UserBuilder struct {
	ID       string
	Username string
	Password string
}

// NewUser creates a UserBuilder with sensible defaults.
func NewUser() *UserBuilder {
	return &UserBuilder{
		ID:       MakeID(),
		Username: "admin",
		Password: TestPassword,
	}
}

// WithUsername sets a custom username.
func (b *UserBuilder) WithUsername(username string) *UserBuilder {
	b.Username = username
	return b
}

// WithPassword sets a custom plain text password.
func (b *UserBuilder) WithPassword(password string) *UserBuilder {
	b.Password = password
	return b
}

// Build creates the user in the database and returns it.
// The password is hashed with the minimum bcrypt cost to keep tests fast.
func (b *UserBuilder) Build(t *testing.T, db *sql.DB) model.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(b.Password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash test password: %v", err)
	}

	user := model.User{
		ID:           b.ID,
		Username:     b.Username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := repository.NewUserRepository(db).InsertUser(context.Background(), user); err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// Convenience functions

// CreateUser creates the default test user with TestPassword.
//
// Example usage:
//
//	user := testutil.CreateUser(t, db)
func CreateUser(t *testing.T, db *sql.DB) model.User {
	t.Helper()
	return NewUser().Build(t, db)
}
