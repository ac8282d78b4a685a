package testutil

import (
	"database/sql"
	"math/rand"
	"testing"
	"time"

	"github.com/fernet/fernet-go"
	"github.com/google/uuid"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/holdings"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/ibkr"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/repository"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/service"
)

// TestPassword is the password of users created by NewUser.
const TestPassword = "correct horse battery"

// TestSessionTTL is the session lifetime used by NewTestAuthService.
const TestSessionTTL = time.Hour

func NewTestTransactionService(t *testing.T, db *sql.DB) *service.TransactionService {
	t.Helper()

	return service.NewTransactionService(
		db,
		repository.NewTransactionRepository(db),
	)
}

// NewTestHoldingsService creates a HoldingsService using average cost.
// quotes may be nil to value positions from price hints only.
func NewTestHoldingsService(t *testing.T, db *sql.DB, quotes service.QuoteSource) *service.HoldingsService {
	t.Helper()

	return service.NewHoldingsService(
		repository.NewTransactionRepository(db),
		quotes,
		holdings.AverageCost,
	)
}

// NewTestAuthService creates an AuthService with a fresh random session key.
func NewTestAuthService(t *testing.T, db *sql.DB) *service.AuthService {
	t.Helper()

	var key fernet.Key
	if err := key.Generate(); err != nil {
		t.Fatalf("Failed to generate session key: %v", err)
	}

	return service.NewAuthService(
		repository.NewUserRepository(db),
		repository.NewSessionRepository(db),
		&key,
		TestSessionTTL,
	)
}

// NewTestIbkrService creates an IbkrService with a dummy Flex token and query
// so fetches go to client. client may be nil for upload-only tests.
func NewTestIbkrService(t *testing.T, db *sql.DB, client ibkr.Client) *service.IbkrService {
	t.Helper()

	return service.NewIbkrService(
		db,
		repository.NewTransactionRepository(db),
		client,
		"test-token",
		"123456",
		ibkr.DefaultBroker,
	)
}

func NewTestSystemService(t *testing.T, db *sql.DB) *service.SystemService {
	t.Helper()
	return service.NewSystemService(db, map[string]bool{"quotes": true})
}

// MakeID generates a UUID string for use in tests.
//
// Example usage:
//
//	id := testutil.MakeID()
//	// Returns: "550e8400-e29b-41d4-a716-446655440000"
func MakeID() string {
	return uuid.New().String()
}

// MakeSymbol generates a stock ticker symbol for testing.
//
// Example usage:
//
//	symbol := testutil.MakeSymbol("AAPL")
//	// Returns: "AAPL1A2B"
func MakeSymbol(base string) string {
	return base + randomAlphanumeric(4)
}

// randomAlphanumeric generates a random upper-case alphanumeric string of specified length.
func randomAlphanumeric(length int) string {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))] //nolint:gosec // Test data only
	}
	return string(b)
}
