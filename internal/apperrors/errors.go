package apperrors

import "errors"

// Domain entity errors represent missing or invalid entities in the system.
// These errors indicate that a requested resource does not exist.
var (
	// ErrTransactionNotFound indicates that a transaction with the given ID does not exist.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrUserNotFound indicates that no user with the given name or ID exists.
	ErrUserNotFound = errors.New("user not found")

	// ErrSessionNotFound indicates that the session referenced by a token does not exist.
	ErrSessionNotFound = errors.New("session not found")
)

// Authentication errors. Handlers map all of these to 401.
var (
	// ErrInvalidCredentials indicates a wrong username or password.
	// The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken indicates a session token that cannot be decrypted or verified.
	ErrInvalidToken = errors.New("invalid session token")

	// ErrSessionExpired indicates a session whose expiry has passed.
	ErrSessionExpired = errors.New("session expired")
)

// Business logic errors represent validation failures or constraint violations.
var (
	// ErrInvalidUUID indicates that a provided ID is not a valid UUID format.
	ErrInvalidUUID = errors.New("invalid UUID format")

	// ErrEmptyID indicates that a required ID parameter is empty or missing.
	ErrEmptyID = errors.New("ID cannot be empty")

	// ErrDuplicateEntry indicates that an entity with the same unique constraint already exists.
	ErrDuplicateEntry = errors.New("duplicate entry")

	ErrInvalidSymbol = errors.New("symbol is required")
)

// Market data errors.
var (
	// ErrQuoteUnavailable indicates that no provider could supply a quote for a symbol.
	ErrQuoteUnavailable = errors.New("quote unavailable")

	// ErrUnknownProvider indicates a configured quote provider name that does not exist.
	ErrUnknownProvider = errors.New("unknown quote provider")
)

// Operation failure errors represent system-level failures when retrieving or processing data.
// These errors indicate that an operation failed, but not due to missing entities or validation issues.
var (
	ErrFailedToRetrieveTransactions = errors.New("failed to retrieve transactions")
	ErrFailedToRetrieveTransaction  = errors.New("failed to retrieve transaction")
	ErrFailedToCreateTransaction    = errors.New("failed to create transaction")
	ErrFailedToUpdateTransaction    = errors.New("failed to update transaction")
	ErrFailedToDeleteTransaction    = errors.New("failed to delete transaction")

	ErrFailedToGetHoldings = errors.New("failed to get holdings")
	ErrFailedToGetQuote    = errors.New("failed to get quote")

	ErrFailedToLogin  = errors.New("failed to log in")
	ErrFailedToLogout = errors.New("failed to log out")

	ErrFailedToImportStatement = errors.New("failed to import ibkr statement")

	ErrFailedToGetVersionInfo = errors.New("failed to get version information")
)
