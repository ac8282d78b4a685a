package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/api/request"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/holdings"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/repository"
)

// QuoteSource resolves market quotes. market.Resolver is the production implementation.
type QuoteSource interface {
	Quote(ctx context.Context, symbol string) (model.Quote, error)
	Quotes(ctx context.Context, symbols []string) (map[string]model.Quote, map[string]error)
	Invalidate()
}

var errNoQuoteSource = fmt.Errorf("%w: no quote providers configured", apperrors.ErrQuoteUnavailable)

// HoldingsService derives positions, valuations and realized results from the
// stored transactions. Nothing it computes is persisted or cached; only the
// quotes it consumes are cached by the QuoteSource.
type HoldingsService struct {
	transactionRepo *repository.TransactionRepository
	quotes          QuoteSource
	costMethod      holdings.CostMethod
}

// NewHoldingsService creates a new HoldingsService. quotes may be nil, in which
// case positions are valued from their hinted prices only.
func NewHoldingsService(
	transactionRepo *repository.TransactionRepository,
	quotes QuoteSource,
	costMethod holdings.CostMethod,
) *HoldingsService {
	return &HoldingsService{
		transactionRepo: transactionRepo,
		quotes:          quotes,
		costMethod:      costMethod,
	}
}

// GetHoldings returns the valued positions of the portfolio.
//
// Closed positions are left out unless params.IncludeClosed is set. Only open
// positions are quoted. The result is ordered by total cost (largest first)
// when params.SortByCost is set, otherwise by symbol and broker.
func (s *HoldingsService) GetHoldings(ctx context.Context, params request.HoldingsParams) (model.HoldingsView, error) {
	positions, err := s.positions(ctx)
	if err != nil {
		return model.HoldingsView{}, err
	}
	if !params.IncludeClosed {
		positions = holdings.OpenPositions(positions)
	}

	if params.Refresh && s.quotes != nil {
		s.quotes.Invalidate()
	}
	quotes, failures := s.resolveQuotes(ctx, holdings.OpenPositions(positions))

	valued := holdings.ValueAll(positions, quotes)
	if params.SortByCost {
		holdings.SortByTotalCost(valued)
	} else {
		sortBySymbol(valued)
	}
	for i := range valued {
		roundValuedPosition(&valued[i])
	}

	view := model.HoldingsView{Positions: valued}
	if len(failures) > 0 {
		view.QuoteErrors = make(map[string]string, len(failures))
		for symbol, err := range failures {
			view.QuoteErrors[symbol] = err.Error()
		}
	}
	return view, nil
}

// GetRealized returns the realized trade analysis of every traded (symbol, broker)
// pair, ordered by symbol and broker. With closedOnly only fully closed trades are kept.
func (s *HoldingsService) GetRealized(ctx context.Context, closedOnly bool) ([]model.RealizedTradeAnalysis, error) {
	txs, err := s.transactionRepo.ListTransactions(ctx, model.TransactionFilter{})
	if err != nil {
		return nil, err
	}

	analyses := holdings.Analyze(txs)
	if closedOnly {
		analyses = holdings.ClosedTrades(analyses)
	}
	slices.SortFunc(analyses, func(a, b model.RealizedTradeAnalysis) int {
		if c := cmp.Compare(a.Symbol, b.Symbol); c != 0 {
			return c
		}
		return cmp.Compare(a.Broker, b.Broker)
	})
	for i := range analyses {
		a := &analyses[i]
		a.AvgBuyPrice = roundNull(a.AvgBuyPrice, AveragePlaces)
		a.AvgSellPrice = roundNull(a.AvgSellPrice, AveragePlaces)
		a.RealizedPLPercent = roundNull(a.RealizedPLPercent, PercentPlaces)
	}
	return analyses, nil
}

// GetSummary returns one summary per currency with allocations over the valued positions.
func (s *HoldingsService) GetSummary(ctx context.Context) ([]model.CurrencySummary, error) {
	txs, err := s.transactionRepo.ListTransactions(ctx, model.TransactionFilter{})
	if err != nil {
		return nil, err
	}

	positions := holdings.Aggregate(txs, holdings.WithCostMethod(s.costMethod))
	quotes, _ := s.resolveQuotes(ctx, holdings.OpenPositions(positions))

	summaries := holdings.Summarize(holdings.ValueAll(positions, quotes), holdings.Analyze(txs))
	for i := range summaries {
		summary := &summaries[i]
		summary.UnrealizedPLPercent = roundNull(summary.UnrealizedPLPercent, PercentPlaces)
		for j := range summary.Allocations {
			summary.Allocations[j].Percent = summary.Allocations[j].Percent.Round(PercentPlaces)
		}
	}
	return summaries, nil
}

// GetQuote resolves a single symbol through the quote cache.
func (s *HoldingsService) GetQuote(ctx context.Context, symbol string) (model.Quote, error) {
	if s.quotes == nil {
		return model.Quote{}, errNoQuoteSource
	}
	return s.quotes.Quote(ctx, symbol)
}

// OpenSymbols returns the distinct symbols of all open positions.
func (s *HoldingsService) OpenSymbols(ctx context.Context) ([]string, error) {
	positions, err := s.positions(ctx)
	if err != nil {
		return nil, err
	}
	return holdings.Symbols(holdings.OpenPositions(positions)), nil
}

func (s *HoldingsService) positions(ctx context.Context) ([]model.Position, error) {
	txs, err := s.transactionRepo.ListTransactions(ctx, model.TransactionFilter{})
	if err != nil {
		return nil, err
	}
	return holdings.Aggregate(txs, holdings.WithCostMethod(s.costMethod)), nil
}

func (s *HoldingsService) resolveQuotes(ctx context.Context, open []model.Position) (map[string]model.Quote, map[string]error) {
	symbols := holdings.Symbols(open)
	if s.quotes == nil || len(symbols) == 0 {
		return nil, nil
	}
	return s.quotes.Quotes(ctx, symbols)
}

func sortBySymbol(valued []model.ValuedPosition) {
	slices.SortFunc(valued, func(a, b model.ValuedPosition) int {
		if c := cmp.Compare(a.Symbol, b.Symbol); c != 0 {
			return c
		}
		return cmp.Compare(a.Broker, b.Broker)
	})
}

func roundValuedPosition(v *model.ValuedPosition) {
	v.AverageCost = roundNull(v.AverageCost, AveragePlaces)
	v.UnrealizedPLPercent = roundNull(v.UnrealizedPLPercent, PercentPlaces)
}
