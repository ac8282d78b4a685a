package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
)

// TransactionRepository provides data access methods for the transaction table.
type TransactionRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewTransactionRepository creates a new TransactionRepository with the provided database connection.
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// WithTx returns a repository that runs its statements inside tx.
func (r *TransactionRepository) WithTx(tx *sql.Tx) *TransactionRepository {
	return &TransactionRepository{
		db: r.db,
		tx: tx,
	}
}

func (r *TransactionRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

const transactionColumns = `
	id, symbol, broker, currency, kind, quantity, price, commission,
	dividend_amount, trade_date, price_hint, notes, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (model.Transaction, error) {
	var t model.Transaction
	var kind, createdAtStr string
	var tradeDateStr sql.NullString

	err := row.Scan(
		&t.ID,
		&t.Symbol,
		&t.Broker,
		&t.Currency,
		&kind,
		&t.Quantity,
		&t.Price,
		&t.Commission,
		&t.DividendAmount,
		&tradeDateStr,
		&t.PriceHint,
		&t.Notes,
		&createdAtStr,
	)
	if err != nil {
		return model.Transaction{}, err
	}
	t.Kind = model.TransactionKind(kind)

	if tradeDateStr.Valid && tradeDateStr.String != "" {
		tradeDate, err := ParseTime(tradeDateStr.String)
		if err != nil {
			return model.Transaction{}, fmt.Errorf("transaction %s: %w", t.ID, err)
		}
		t.TradeDate = &tradeDate
	}

	t.CreatedAt, err = ParseTime(createdAtStr)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("transaction %s: %w", t.ID, err)
	}
	return t, nil
}

// ListTransactions retrieves all transactions matching the filter, ordered by
// trade date (falling back to creation time) and ID.
// Symbol filters compare case-insensitively; broker filters compare
// case-insensitively after trimming.
//
// Returns an empty slice if no transactions match.
func (r *TransactionRepository) ListTransactions(ctx context.Context, filter model.TransactionFilter) ([]model.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM "transaction"`

	var conditions []string
	var args []any
	if s := strings.TrimSpace(filter.Symbol); s != "" {
		conditions = append(conditions, "UPPER(TRIM(symbol)) = ?")
		args = append(args, strings.ToUpper(s))
	}
	if b := strings.TrimSpace(filter.Broker); b != "" {
		conditions = append(conditions, "LOWER(TRIM(broker)) = ?")
		args = append(args, strings.ToLower(b))
	}
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY COALESCE(trade_date, created_at) ASC, id ASC`

	rows, err := r.getQuerier().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction table: %w", err)
	}
	defer rows.Close()

	transactions := []model.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction table results: %w", err)
		}
		transactions = append(transactions, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction table: %w", err)
	}

	return transactions, nil
}

// GetTransaction retrieves a single transaction by ID.
// Returns apperrors.ErrTransactionNotFound if no row matches.
func (r *TransactionRepository) GetTransaction(ctx context.Context, transactionID string) (model.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM "transaction" WHERE id = ?`

	t, err := scanTransaction(r.getQuerier().QueryRowContext(ctx, query, transactionID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Transaction{}, apperrors.ErrTransactionNotFound
	}
	if err != nil {
		return model.Transaction{}, fmt.Errorf("failed to scan transaction table results: %w", err)
	}
	return t, nil
}

// InsertTransaction stores a new transaction. The caller assigns ID and CreatedAt.
func (r *TransactionRepository) InsertTransaction(ctx context.Context, t model.Transaction) error {
	query := `
		INSERT INTO "transaction" (` + transactionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.getQuerier().ExecContext(ctx, query,
		t.ID,
		t.Symbol,
		t.Broker,
		t.Currency,
		string(t.Kind),
		t.Quantity,
		t.Price,
		t.Commission,
		t.DividendAmount,
		nullableDate(t.TradeDate),
		t.PriceHint,
		t.Notes,
		formatTimestamp(t.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	return nil
}

// UpdateTransaction overwrites every mutable column of an existing transaction.
// Returns apperrors.ErrTransactionNotFound if no row matches.
func (r *TransactionRepository) UpdateTransaction(ctx context.Context, t model.Transaction) error {
	query := `
		UPDATE "transaction"
		SET symbol = ?, broker = ?, currency = ?, kind = ?, quantity = ?, price = ?,
			commission = ?, dividend_amount = ?, trade_date = ?, price_hint = ?, notes = ?
		WHERE id = ?
	`

	result, err := r.getQuerier().ExecContext(ctx, query,
		t.Symbol,
		t.Broker,
		t.Currency,
		string(t.Kind),
		t.Quantity,
		t.Price,
		t.Commission,
		t.DividendAmount,
		nullableDate(t.TradeDate),
		t.PriceHint,
		t.Notes,
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}

	return checkRowsAffected(result, apperrors.ErrTransactionNotFound)
}

// DeleteTransaction removes a transaction.
// Returns apperrors.ErrTransactionNotFound if no row matches.
func (r *TransactionRepository) DeleteTransaction(ctx context.Context, transactionID string) error {
	query := `DELETE FROM "transaction" WHERE id = ?`

	result, err := r.getQuerier().ExecContext(ctx, query, transactionID)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}

	return checkRowsAffected(result, apperrors.ErrTransactionNotFound)
}
