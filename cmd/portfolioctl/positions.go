package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/api/request"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/market"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/repository"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/service"
)

type positionsCmd struct {
	quotes        bool
	includeClosed bool
	sortByCost    bool
}

func (*positionsCmd) Name() string     { return "positions" }
func (*positionsCmd) Synopsis() string { return "display the valued positions of the portfolio" }
func (*positionsCmd) Usage() string {
	return `portfolioctl [-db <path>] positions [-quotes] [-closed] [-cost]

  Prints one row per (symbol, broker) position. Without -quotes positions are
  valued at the latest price hint recorded with their transactions.
`
}

func (p *positionsCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&p.quotes, "quotes", false, "Fetch live quotes from the configured providers.")
	f.BoolVar(&p.includeClosed, "closed", false, "Include positions with no remaining quantity.")
	f.BoolVar(&p.sortByCost, "cost", false, "Sort by total cost, largest first.")
}

func (p *positionsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	db, err := openDatabase(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer db.Close()

	var quotes service.QuoteSource
	if p.quotes {
		resolver, err := market.NewResolverFromConfig(cfg.Quotes)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		quotes = resolver
	}

	holdingsService := service.NewHoldingsService(repository.NewTransactionRepository(db), quotes, cfg.Holdings.CostMethod)
	view, err := holdingsService.GetHoldings(ctx, request.HoldingsParams{
		SortByCost:    p.sortByCost,
		IncludeClosed: p.includeClosed,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	printMarkdown(positionsMarkdown(view))
	return subcommands.ExitSuccess
}

// positionsMarkdown renders the holdings view as a markdown table followed by
// any quote failures.
func positionsMarkdown(view model.HoldingsView) string {
	var b strings.Builder
	b.WriteString("# Positions\n\n")

	if len(view.Positions) == 0 {
		b.WriteString("No positions.\n")
	} else {
		b.WriteString("| Symbol | Broker | Quantity | Avg cost | Price | Value | P/L | P/L % |\n")
		b.WriteString("|:---|:---|---:|---:|---:|---:|---:|---:|\n")
		for _, v := range view.Positions {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s |\n",
				v.Symbol,
				v.Broker,
				v.NetQuantity.String(),
				formatMoney(v.AverageCost, v.Currency),
				formatPrice(v),
				formatMoney(v.CurrentValue, v.Currency),
				formatMoney(v.UnrealizedPL, v.Currency),
				formatPercent(v.UnrealizedPLPercent),
			)
		}
	}

	if len(view.QuoteErrors) > 0 {
		b.WriteString("\n## Quote errors\n\n")
		symbols := make([]string, 0, len(view.QuoteErrors))
		for s := range view.QuoteErrors {
			symbols = append(symbols, s)
		}
		sort.Strings(symbols)
		for _, s := range symbols {
			fmt.Fprintf(&b, "- **%s**: %s\n", s, view.QuoteErrors[s])
		}
	}
	return b.String()
}

func formatPrice(v model.ValuedPosition) string {
	price := formatMoney(v.CurrentPrice, v.Currency)
	if v.PriceSource == model.PriceSourceHint {
		price += " (hint)"
	}
	return price
}

// formatMoney formats an amount in the currency's minor unit precision.
// Unknown currency codes fall back to two decimals and the code.
func formatMoney(d decimal.NullDecimal, code string) string {
	if !d.Valid {
		return "n/a"
	}
	cur := money.GetCurrency(strings.ToUpper(code))
	if cur == nil {
		return d.Decimal.StringFixed(2) + " " + code
	}
	minor := d.Decimal.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}

func formatPercent(d decimal.NullDecimal) string {
	if !d.Valid {
		return "n/a"
	}
	return d.Decimal.StringFixed(2) + "%"
}
