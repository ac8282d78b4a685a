package testutil

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/yahoo"
)

// MockYahooClient is a mock implementation of market.ChartClient for testing.
// It returns predefined test data instead of making actual API calls.
type MockYahooClient struct {
	// MockResponse is the response to return from query methods
	MockResponse yahoo.Response
	// MockError is the error to return from query methods
	MockError error
	// QueryCount tracks how many times a query method was called
	QueryCount int
}

// NewMockYahooClient creates a new mock Yahoo client with default test data.
// The default data includes 5 days of historical prices suitable for testing.
func NewMockYahooClient() *MockYahooClient {
	return &MockYahooClient{
		MockResponse: CreateMockYahooResponse(5),
	}
}

// QueryYahooFiveDaySymbol mocks the 5-day symbol query with predefined test data.
// It returns the configured MockResponse and MockError.
func (m *MockYahooClient) QueryYahooFiveDaySymbol(_ context.Context, _ string) (yahoo.Response, error) {
	m.QueryCount++
	if m.MockError != nil {
		return yahoo.Response{}, m.MockError
	}
	return m.MockResponse, nil
}

// ParseChart delegates to the real ParseChart method since it's pure logic with no side effects.
func (m *MockYahooClient) ParseChart(yahooResult yahoo.Response) (yahoo.PriceChart, error) {
	return yahoo.NewFinanceClient().ParseChart(yahooResult)
}

// WithError configures the mock to return the specified error.
func (m *MockYahooClient) WithError(err error) *MockYahooClient {
	m.MockError = err
	return m
}

// WithResponse configures the mock to return the specified response.
func (m *MockYahooClient) WithResponse(resp yahoo.Response) *MockYahooClient {
	m.MockResponse = resp
	return m
}

// CreateMockYahooResponse creates a mock Yahoo Finance API response with test data.
// The response includes `days` number of days of price data, ending yesterday.
// The close of day i is 100.25 + 0.5*i, so the latest close is 100.25 + 0.5*(days-1).
func CreateMockYahooResponse(days int) yahoo.Response {
	now := time.Now().UTC()
	yesterday := time.Date(now.Year(), now.Month(), now.Day()-1, 0, 0, 0, 0, time.UTC)

	timestamps := make([]int64, days)
	opens := make([]*float64, days)
	highs := make([]*float64, days)
	lows := make([]*float64, days)
	closes := make([]*float64, days)
	volumes := make([]*int64, days)

	basePrice := 100.0
	for i := 0; i < days; i++ {
		date := yesterday.AddDate(0, 0, -days+i+1)
		timestamps[i] = date.Unix()

		dayPrice := basePrice + float64(i)*0.5
		open := dayPrice
		high := dayPrice + 1.0
		low := dayPrice - 0.5
		closePrice := dayPrice + 0.25
		volume := int64(1000000 + i*10000)

		opens[i] = &open
		highs[i] = &high
		lows[i] = &low
		closes[i] = &closePrice
		volumes[i] = &volume
	}

	return yahoo.Response{
		Chart: yahoo.Chart{
			Result: []yahoo.Result{
				{
					Meta: yahoo.Meta{
						Symbol:           "TEST",
						Currency:         "USD",
						ExchangeName:     "NMS",
						FullExchangeName: "NASDAQ",
						LongName:         "Test Inc.",
						Shortname:        "TEST",
					},
					Timestamp: timestamps,
					Indicators: yahoo.IndicatorsContainer{
						Quote: []yahoo.Quote{
							{
								Open:   opens,
								High:   highs,
								Low:    lows,
								Close:  closes,
								Volume: volumes,
							},
						},
					},
				},
			},
		},
	}
}

// CreateMockYahooErrorResponse creates a mock Yahoo response with an error.
// Useful for testing error handling scenarios.
func CreateMockYahooErrorResponse(code, description string) yahoo.Response {
	return yahoo.Response{
		Chart: yahoo.Chart{
			Result: []yahoo.Result{},
			Error:  &yahoo.ChartError{Code: code, Description: description},
		},
	}
}

// MockQuoteSource is an in-memory service.QuoteSource answering from a fixed price table.
// Symbols without a price fail with apperrors.ErrQuoteUnavailable.
type MockQuoteSource struct {
	mu          sync.Mutex
	prices      map[string]decimal.Decimal
	Calls       int
	Invalidated int
}

// NewMockQuoteSource creates a quote source from symbol/price pairs, e.g.
// NewMockQuoteSource(map[string]string{"AAPL": "150.25"}).
func NewMockQuoteSource(prices map[string]string) *MockQuoteSource {
	m := &MockQuoteSource{prices: make(map[string]decimal.Decimal, len(prices))}
	for symbol, price := range prices {
		m.prices[strings.ToUpper(symbol)] = decimal.RequireFromString(price)
	}
	return m
}

// Quote returns the configured price of symbol.
func (m *MockQuoteSource) Quote(_ context.Context, symbol string) (model.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls++
	key := strings.ToUpper(strings.TrimSpace(symbol))
	price, ok := m.prices[key]
	if !ok {
		return model.Quote{}, apperrors.ErrQuoteUnavailable
	}
	return model.Quote{Symbol: key, Price: price, Source: "mock"}, nil
}

// Quotes resolves every symbol and reports failures per symbol.
func (m *MockQuoteSource) Quotes(ctx context.Context, symbols []string) (map[string]model.Quote, map[string]error) {
	quotes := make(map[string]model.Quote)
	failures := make(map[string]error)
	for _, s := range symbols {
		q, err := m.Quote(ctx, s)
		if err != nil {
			failures[strings.ToUpper(s)] = err
			continue
		}
		quotes[q.Symbol] = q
	}
	return quotes, failures
}

// Invalidate counts cache invalidations.
func (m *MockQuoteSource) Invalidate() {
	m.mu.Lock()
	m.Invalidated++
	m.mu.Unlock()
}
