package market

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/yahoo"
)

// ChartClient is the part of yahoo.FinanceClient the Yahoo provider needs.
type ChartClient interface {
	QueryYahooFiveDaySymbol(ctx context.Context, symbol string) (yahoo.Response, error)
	ParseChart(resp yahoo.Response) (yahoo.PriceChart, error)
}

// YahooProvider quotes symbols from the Yahoo Finance chart API.
type YahooProvider struct {
	client ChartClient
}

// NewYahooProvider creates a provider on top of the given chart client.
func NewYahooProvider(client ChartClient) *YahooProvider {
	return &YahooProvider{client: client}
}

func (p *YahooProvider) Name() string { return "yahoo" }

// Quote returns the live market price, or the latest close when Yahoo does
// not report one.
func (p *YahooProvider) Quote(ctx context.Context, symbol string) (model.Quote, error) {
	resp, err := p.client.QueryYahooFiveDaySymbol(ctx, symbol)
	if err != nil {
		return model.Quote{}, err
	}
	chart, err := p.client.ParseChart(resp)
	if err != nil {
		return model.Quote{}, fmt.Errorf("failed to parse chart for %s: %w", symbol, err)
	}

	price, asOf, ok := chart.LatestPrice()
	if !ok {
		return model.Quote{}, fmt.Errorf("no price in chart for %s", symbol)
	}
	d := decimal.NewFromFloat(price)
	if err := positivePrice(symbol, d); err != nil {
		return model.Quote{}, err
	}

	q := model.Quote{
		Symbol:   symbol,
		Price:    d,
		Currency: strings.ToUpper(chart.Currency),
		Source:   p.Name(),
	}
	if !asOf.IsZero() {
		q.AsOf = &asOf
	}
	return q, nil
}
