package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/ibkr"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/logger"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/repository"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/validation"
)

// IbkrService imports Interactive Brokers Flex statements into the transaction table.
type IbkrService struct {
	db              *sql.DB
	transactionRepo *repository.TransactionRepository
	client          ibkr.Client
	token           string
	queryID         string
	broker          string
	now             func() time.Time
}

// NewIbkrService creates a new IbkrService. client may be nil when only
// uploaded statements are imported.
func NewIbkrService(
	db *sql.DB,
	transactionRepo *repository.TransactionRepository,
	client ibkr.Client,
	token, queryID, broker string,
) *IbkrService {
	return &IbkrService{
		db:              db,
		transactionRepo: transactionRepo,
		client:          client,
		token:           token,
		queryID:         queryID,
		broker:          broker,
		now:             time.Now,
	}
}

// FetchConfigured reports whether a Flex token and query are configured.
func (s *IbkrService) FetchConfigured() bool {
	return s.client != nil && s.token != "" && s.queryID != ""
}

// FetchAndImport downloads the configured Flex statement and imports it.
func (s *IbkrService) FetchAndImport(ctx context.Context) (model.ImportResult, error) {
	if !s.FetchConfigured() {
		return model.ImportResult{}, ibkr.ErrMissingCredentials
	}
	report, err := s.client.FlexReport(ctx, s.token, s.queryID)
	if err != nil {
		return model.ImportResult{}, err
	}
	return s.ImportStatement(ctx, report)
}

// ImportStatement converts a Flex statement and stores every transaction not
// imported before. Rows that cannot be converted or fail validation are
// reported in Skipped; the import runs in a single database transaction.
func (s *IbkrService) ImportStatement(ctx context.Context, report ibkr.FlexQueryResponse) (model.ImportResult, error) {
	conv := ibkr.Convert(report, s.broker, s.now())
	result := model.ImportResult{Skipped: conv.Skipped}
	if result.Skipped == nil {
		result.Skipped = []string{}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.ImportResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	repo := s.transactionRepo.WithTx(tx)
	for _, t := range conv.Transactions {
		if err := validation.ValidateTransaction(t); err != nil {
			result.Skipped = append(result.Skipped, fmt.Sprintf("%s %s: %v", t.Kind, t.Symbol, err))
			continue
		}

		_, err := repo.GetTransaction(ctx, t.ID)
		switch {
		case err == nil:
			result.Duplicates++
			continue
		case !errors.Is(err, apperrors.ErrTransactionNotFound):
			return model.ImportResult{}, err
		}

		if err := repo.InsertTransaction(ctx, t); err != nil {
			return model.ImportResult{}, err
		}
		result.Imported++
	}

	if err := tx.Commit(); err != nil {
		return model.ImportResult{}, fmt.Errorf("failed to commit import: %w", err)
	}

	logger.L.Info("Imported IBKR statement",
		"imported", result.Imported,
		"duplicates", result.Duplicates,
		"skipped", len(result.Skipped))
	return result, nil
}
