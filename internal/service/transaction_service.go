package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/api/request"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/repository"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/validation"
)

// TransactionService handles transaction-related business logic operations.
type TransactionService struct {
	db              *sql.DB
	transactionRepo *repository.TransactionRepository
}

// NewTransactionService creates a new TransactionService with the provided repository dependencies.
func NewTransactionService(
	db *sql.DB,
	transactionRepo *repository.TransactionRepository,
) *TransactionService {
	return &TransactionService{
		db:              db,
		transactionRepo: transactionRepo,
	}
}

// ListTransactions retrieves all transactions matching the filter in effective-date order.
func (s *TransactionService) ListTransactions(ctx context.Context, filter model.TransactionFilter) ([]model.Transaction, error) {
	return s.transactionRepo.ListTransactions(ctx, filter)
}

// GetTransaction retrieves a single transaction by its ID.
func (s *TransactionService) GetTransaction(ctx context.Context, transactionID string) (model.Transaction, error) {
	return s.transactionRepo.GetTransaction(ctx, transactionID)
}

// CreateTransaction stores a new transaction built from a validated request.
// Symbol and currency are stored upper-cased; the broker keeps its spelling minus
// surrounding whitespace.
func (s *TransactionService) CreateTransaction(ctx context.Context, req request.CreateTransactionRequest) (model.Transaction, error) {
	kind, _ := model.ParseTransactionKind(req.Kind)

	transaction := model.Transaction{
		ID:             uuid.New().String(),
		Symbol:         normalizeCode(req.Symbol),
		Broker:         strings.TrimSpace(req.Broker),
		Currency:       normalizeCode(req.Currency),
		Kind:           kind,
		Quantity:       toNullDecimal(req.Quantity),
		Price:          toNullDecimal(req.Price),
		DividendAmount: toNullDecimal(req.DividendAmount),
		PriceHint:      toNullDecimal(req.PriceHint),
		Notes:          strings.TrimSpace(req.Notes),
		CreatedAt:      time.Now().UTC(),
	}
	if req.Commission != nil {
		transaction.Commission = *req.Commission
	}
	if req.TradeDate != nil {
		tradeDate, err := time.Parse(validation.DateLayout, *req.TradeDate)
		if err != nil {
			return model.Transaction{}, err
		}
		transaction.TradeDate = &tradeDate
	}

	if err := validation.ValidateTransaction(transaction); err != nil {
		return model.Transaction{}, err
	}

	if err := s.transactionRepo.InsertTransaction(ctx, transaction); err != nil {
		return model.Transaction{}, fmt.Errorf("failed to create transaction: %w", err)
	}

	return transaction, nil
}

// UpdateTransaction applies the non-nil fields of req to an existing transaction.
// The read, merge and write run in one database transaction so concurrent
// updates cannot interleave.
func (s *TransactionService) UpdateTransaction(ctx context.Context, transactionID string, req request.UpdateTransactionRequest) (model.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	repo := s.transactionRepo.WithTx(tx)

	transaction, err := repo.GetTransaction(ctx, transactionID)
	if err != nil {
		return model.Transaction{}, err
	}

	if err := applyTransactionUpdate(&transaction, req); err != nil {
		return model.Transaction{}, err
	}

	if err := validation.ValidateTransaction(transaction); err != nil {
		return model.Transaction{}, err
	}

	if err := repo.UpdateTransaction(ctx, transaction); err != nil {
		return model.Transaction{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.Transaction{}, fmt.Errorf("failed to commit transaction update: %w", err)
	}

	return transaction, nil
}

// DeleteTransaction removes a transaction by ID.
func (s *TransactionService) DeleteTransaction(ctx context.Context, transactionID string) error {
	return s.transactionRepo.DeleteTransaction(ctx, transactionID)
}

func applyTransactionUpdate(t *model.Transaction, req request.UpdateTransactionRequest) error {
	if req.Symbol != nil {
		t.Symbol = normalizeCode(*req.Symbol)
	}
	if req.Broker != nil {
		t.Broker = strings.TrimSpace(*req.Broker)
	}
	if req.Currency != nil {
		t.Currency = normalizeCode(*req.Currency)
	}
	if req.Kind != nil {
		t.Kind, _ = model.ParseTransactionKind(*req.Kind)
	}
	if req.Quantity != nil {
		t.Quantity = toNullDecimal(req.Quantity)
	}
	if req.Price != nil {
		t.Price = toNullDecimal(req.Price)
	}
	if req.Commission != nil {
		t.Commission = *req.Commission
	}
	if req.DividendAmount != nil {
		t.DividendAmount = toNullDecimal(req.DividendAmount)
	}
	if req.PriceHint != nil {
		t.PriceHint = toNullDecimal(req.PriceHint)
	}
	if req.Notes != nil {
		t.Notes = strings.TrimSpace(*req.Notes)
	}
	if req.TradeDate != nil {
		tradeDate, err := time.Parse(validation.DateLayout, *req.TradeDate)
		if err != nil {
			return err
		}
		t.TradeDate = &tradeDate
	}
	return nil
}

func normalizeCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func toNullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}
