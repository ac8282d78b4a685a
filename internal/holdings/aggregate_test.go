package holdings_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/holdings"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
)

var txSeq int

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func nullDec(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(dec(s))
}

func day(d int) *time.Time {
	t := time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func trade(kind model.TransactionKind, symbol, broker, qty, price, commission string) model.Transaction {
	txSeq++
	return model.Transaction{
		ID:         fmt.Sprintf("tx-%04d", txSeq),
		Symbol:     symbol,
		Broker:     broker,
		Currency:   "USD",
		Kind:       kind,
		Quantity:   nullDec(qty),
		Price:      nullDec(price),
		Commission: dec(commission),
		CreatedAt:  time.Date(2024, 1, 1, 12, 0, txSeq, 0, time.UTC),
	}
}

func buy(symbol, broker, qty, price, commission string) model.Transaction {
	return trade(model.KindBuy, symbol, broker, qty, price, commission)
}

func sell(symbol, broker, qty, price, commission string) model.Transaction {
	return trade(model.KindSell, symbol, broker, qty, price, commission)
}

func dividend(symbol, broker, amount string) model.Transaction {
	txSeq++
	return model.Transaction{
		ID:             fmt.Sprintf("tx-%04d", txSeq),
		Symbol:         symbol,
		Broker:         broker,
		Currency:       "USD",
		Kind:           model.KindDividend,
		DividendAmount: nullDec(amount),
		CreatedAt:      time.Date(2024, 1, 1, 12, 0, txSeq, 0, time.UTC),
	}
}

func findPosition(t *testing.T, positions []model.Position, symbol, broker string) model.Position {
	t.Helper()
	for _, p := range positions {
		if p.Symbol == symbol && p.Broker == broker {
			return p
		}
	}
	t.Fatalf("Expected position %s@%s, got %+v", symbol, broker, positions)
	return model.Position{}
}

func assertDecimal(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Errorf("Expected %s %s, got %s", name, want, got)
	}
}

func assertNullDecimal(t *testing.T, name string, got decimal.NullDecimal, want string) {
	t.Helper()
	if !got.Valid {
		t.Errorf("Expected %s %s, got undefined", name, want)
		return
	}
	assertDecimal(t, name, got.Decimal, want)
}

func assertUndefined(t *testing.T, name string, got decimal.NullDecimal) {
	t.Helper()
	if got.Valid {
		t.Errorf("Expected %s undefined, got %s", name, got.Decimal)
	}
}

// TestAggregate_Grouping tests how transactions are bucketed.
//
// WHY: A wrong grouping key splits or merges holdings, which silently
// corrupts every number shown for the affected instruments.
func TestAggregate_Grouping(t *testing.T) {
	t.Run("returns empty slice for no transactions", func(t *testing.T) {
		positions := holdings.Aggregate(nil)
		if positions == nil || len(positions) != 0 {
			t.Errorf("Expected empty non-nil slice, got %v", positions)
		}
	})

	t.Run("one position per distinct symbol and broker", func(t *testing.T) {
		txs := []model.Transaction{
			buy("AAPL", "Degiro", "1", "100", "0"),
			buy("AAPL", "Degiro", "2", "110", "0"),
			buy("AAPL", "IBKR", "1", "100", "0"),
			buy("MSFT", "IBKR", "1", "300", "0"),
			dividend("MSFT", "IBKR", "2"),
			buy("VWRL", "", "5", "90", "0"),
		}

		positions := holdings.Aggregate(txs)

		if len(positions) != 4 {
			t.Fatalf("Expected 4 positions, got %d", len(positions))
		}
		findPosition(t, positions, "AAPL", "Degiro")
		findPosition(t, positions, "AAPL", "IBKR")
		findPosition(t, positions, "MSFT", "IBKR")
		findPosition(t, positions, "VWRL", model.UnknownBroker)
	})

	t.Run("missing broker is distinct from a broker named Unknown", func(t *testing.T) {
		txs := []model.Transaction{
			buy("AAPL", "", "1", "100", "0"),
			buy("AAPL", "   ", "1", "100", "0"),
			buy("AAPL", "unknown", "1", "100", "0"),
		}

		positions := holdings.Aggregate(txs)

		if len(positions) != 2 {
			t.Fatalf("Expected 2 positions, got %d: %+v", len(positions), positions)
		}
		p := findPosition(t, positions, "AAPL", model.UnknownBroker)
		assertDecimal(t, "netQuantity", p.NetQuantity, "2")
		named := findPosition(t, positions, "AAPL", "unknown")
		assertDecimal(t, "netQuantity", named.NetQuantity, "1")
	})

	t.Run("normalizes broker case and whitespace and symbol case", func(t *testing.T) {
		first := buy("aapl ", "Interactive  Brokers", "1", "100", "0")
		first.TradeDate = day(1)
		second := buy("AAPL", " interactive brokers", "2", "100", "0")
		second.TradeDate = day(2)

		positions := holdings.Aggregate([]model.Transaction{second, first})

		if len(positions) != 1 {
			t.Fatalf("Expected 1 position, got %d", len(positions))
		}
		p := positions[0]
		if p.Symbol != "AAPL" {
			t.Errorf("Expected symbol AAPL, got %q", p.Symbol)
		}
		if p.Broker != "Interactive Brokers" {
			t.Errorf("Expected broker of earliest transaction, got %q", p.Broker)
		}
		assertDecimal(t, "netQuantity", p.NetQuantity, "3")
	})

	t.Run("ignores unrecognized kinds", func(t *testing.T) {
		fee := buy("AAPL", "IBKR", "1", "5", "0")
		fee.Kind = model.TransactionKind("fee")
		split := buy("TSLA", "IBKR", "3", "0", "0")
		split.Kind = model.TransactionKind("split")

		positions := holdings.Aggregate([]model.Transaction{
			buy("AAPL", "IBKR", "10", "100", "1"),
			fee,
			split,
		})

		if len(positions) != 1 {
			t.Fatalf("Expected 1 position, got %d", len(positions))
		}
		assertDecimal(t, "netQuantity", positions[0].NetQuantity, "10")
		assertDecimal(t, "totalCost", positions[0].TotalCost, "1001")
		if positions[0].TransactionCount != 1 {
			t.Errorf("Expected 1 counted transaction, got %d", positions[0].TransactionCount)
		}
	})
}

// TestAggregate_Quantities tests net quantity and cost basis arithmetic.
//
// WHY: These sums feed every valuation and P/L figure in the dashboard.
func TestAggregate_Quantities(t *testing.T) {
	t.Run("buy-only cost basis is sum of amounts plus commission", func(t *testing.T) {
		txs := []model.Transaction{
			buy("AAPL", "IBKR", "10", "150.25", "1.5"),
			buy("AAPL", "IBKR", "0.333", "151.10", "0.99"),
			buy("AAPL", "IBKR", "7", "149.999", "0"),
		}

		for _, method := range []holdings.CostMethod{holdings.AverageCost, holdings.UniformCost} {
			t.Run(method.String(), func(t *testing.T) {
				p := holdings.Aggregate(txs, holdings.WithCostMethod(method))[0]

				// 1502.5 + 50.3163 + 1049.993 + 1.5 + 0.99
				assertDecimal(t, "totalCost", p.TotalCost, "2605.2993")
				assertDecimal(t, "totalCommission", p.TotalCommission, "2.49")
				assertDecimal(t, "netQuantity", p.NetQuantity, "17.333")
			})
		}
	})

	t.Run("sell reduces net quantity", func(t *testing.T) {
		p := holdings.Aggregate([]model.Transaction{
			buy("AAPL", "IBKR", "10", "5", "0"),
			sell("AAPL", "IBKR", "4", "6", "0"),
		})[0]

		assertDecimal(t, "netQuantity", p.NetQuantity, "6")
		assertDecimal(t, "boughtQuantity", p.BoughtQuantity, "10")
		assertDecimal(t, "soldQuantity", p.SoldQuantity, "4")
	})

	t.Run("average cost carries remaining quantity at buy average", func(t *testing.T) {
		p := holdings.Aggregate([]model.Transaction{
			buy("AAPL", "IBKR", "10", "5", "2"),
			sell("AAPL", "IBKR", "4", "6", "1"),
		})[0]

		// avg buy cost = 52/10 = 5.2, six left
		assertDecimal(t, "totalCost", p.TotalCost, "31.2")
		assertNullDecimal(t, "averageCost", p.AverageCost, "5.2")
		assertDecimal(t, "totalCommission", p.TotalCommission, "3")
	})

	t.Run("uniform cost adds sell amounts and commission to cost", func(t *testing.T) {
		p := holdings.Aggregate([]model.Transaction{
			buy("AAPL", "IBKR", "10", "5", "2"),
			sell("AAPL", "IBKR", "4", "6", "1"),
		}, holdings.WithCostMethod(holdings.UniformCost))[0]

		// 50 + 2 + 24 + 1
		assertDecimal(t, "totalCost", p.TotalCost, "77")
		assertNullDecimal(t, "averageCost", p.AverageCost, dec("77").Div(dec("6")).String())
	})

	t.Run("closed position has zero cost and undefined average", func(t *testing.T) {
		p := holdings.Aggregate([]model.Transaction{
			buy("AAPL", "IBKR", "10", "5", "0"),
			sell("AAPL", "IBKR", "10", "6", "0"),
		})[0]

		assertDecimal(t, "netQuantity", p.NetQuantity, "0")
		assertDecimal(t, "totalCost", p.TotalCost, "0")
		assertUndefined(t, "averageCost", p.AverageCost)
		if p.IsOpen() {
			t.Error("Expected closed position")
		}
	})

	t.Run("treats negative stored quantities as magnitudes", func(t *testing.T) {
		s := sell("AAPL", "IBKR", "-4", "6", "0")
		p := holdings.Aggregate([]model.Transaction{
			buy("AAPL", "IBKR", "10", "5", "0"),
			s,
		})[0]

		assertDecimal(t, "netQuantity", p.NetQuantity, "6")
	})
}

// TestAggregate_Dividends tests that dividends only touch the dividend total.
func TestAggregate_Dividends(t *testing.T) {
	t.Run("dividend-only position", func(t *testing.T) {
		positions := holdings.Aggregate([]model.Transaction{dividend("KO", "IBKR", "50")})

		if len(positions) != 1 {
			t.Fatalf("Expected 1 position, got %d", len(positions))
		}
		p := positions[0]
		assertDecimal(t, "netQuantity", p.NetQuantity, "0")
		assertDecimal(t, "totalCost", p.TotalCost, "0")
		assertDecimal(t, "totalDividends", p.TotalDividends, "50")
		assertUndefined(t, "averageCost", p.AverageCost)
	})

	t.Run("ignores quantity price and commission on dividend rows", func(t *testing.T) {
		d := dividend("KO", "IBKR", "12.5")
		d.Quantity = nullDec("100")
		d.Price = nullDec("60")
		d.Commission = dec("3")

		p := holdings.Aggregate([]model.Transaction{
			buy("KO", "IBKR", "10", "60", "0"),
			d,
		})[0]

		assertDecimal(t, "netQuantity", p.NetQuantity, "10")
		assertDecimal(t, "totalCost", p.TotalCost, "600")
		assertDecimal(t, "totalCommission", p.TotalCommission, "0")
		assertDecimal(t, "totalDividends", p.TotalDividends, "12.5")
	})
}

// TestAggregate_MalformedRows tests best-effort handling of incomplete rows.
//
// WHY: One bad row must not break the whole portfolio view.
func TestAggregate_MalformedRows(t *testing.T) {
	t.Run("missing price contributes zero amount", func(t *testing.T) {
		bad := buy("AAPL", "IBKR", "5", "0", "1")
		bad.Price = decimal.NullDecimal{}

		p := holdings.Aggregate([]model.Transaction{
			buy("AAPL", "IBKR", "10", "100", "0"),
			bad,
		})[0]

		assertDecimal(t, "netQuantity", p.NetQuantity, "15")
		assertDecimal(t, "totalCost", p.TotalCost, "1001")
	})

	t.Run("missing quantity contributes zero quantity", func(t *testing.T) {
		bad := sell("AAPL", "IBKR", "0", "120", "0")
		bad.Quantity = decimal.NullDecimal{}

		p := holdings.Aggregate([]model.Transaction{
			buy("AAPL", "IBKR", "10", "100", "0"),
			bad,
		})[0]

		assertDecimal(t, "netQuantity", p.NetQuantity, "10")
		assertDecimal(t, "totalCost", p.TotalCost, "1000")
	})

	t.Run("missing dividend amount contributes zero", func(t *testing.T) {
		d := dividend("KO", "IBKR", "0")
		d.DividendAmount = decimal.NullDecimal{}

		p := holdings.Aggregate([]model.Transaction{d})[0]
		assertDecimal(t, "totalDividends", p.TotalDividends, "0")
	})

	t.Run("zero cost position has undefined average", func(t *testing.T) {
		p := holdings.Aggregate([]model.Transaction{
			buy("GIFT", "IBKR", "3", "0", "0"),
		})[0]

		assertDecimal(t, "totalCost", p.TotalCost, "0")
		assertUndefined(t, "averageCost", p.AverageCost)
	})
}

// TestAggregate_LatestHint tests which price hint a position carries.
func TestAggregate_LatestHint(t *testing.T) {
	t.Run("most recent trade date wins regardless of input order", func(t *testing.T) {
		older := buy("AAPL", "IBKR", "1", "100", "0")
		older.TradeDate = day(5)
		older.PriceHint = nullDec("101")
		newer := buy("AAPL", "IBKR", "1", "100", "0")
		newer.TradeDate = day(9)
		newer.PriceHint = nullDec("109")
		noHint := buy("AAPL", "IBKR", "1", "100", "0")
		noHint.TradeDate = day(20)

		p := holdings.Aggregate([]model.Transaction{newer, noHint, older})[0]

		assertNullDecimal(t, "latestHint", p.LatestHint, "109")
	})

	t.Run("falls back to created at when trade date is missing", func(t *testing.T) {
		dated := buy("AAPL", "IBKR", "1", "100", "0")
		dated.TradeDate = day(1)
		dated.PriceHint = nullDec("90")
		undated := buy("AAPL", "IBKR", "1", "100", "0")
		undated.CreatedAt = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		undated.PriceHint = nullDec("95")

		p := holdings.Aggregate([]model.Transaction{undated, dated})[0]

		assertNullDecimal(t, "latestHint", p.LatestHint, "95")
	})

	t.Run("ties on date are broken by transaction id", func(t *testing.T) {
		a := buy("AAPL", "IBKR", "1", "100", "0")
		a.ID = "b-id"
		a.TradeDate = day(3)
		a.PriceHint = nullDec("200")
		b := buy("AAPL", "IBKR", "1", "100", "0")
		b.ID = "a-id"
		b.TradeDate = day(3)
		b.PriceHint = nullDec("100")

		for _, order := range [][]model.Transaction{{a, b}, {b, a}} {
			p := holdings.Aggregate(order)[0]
			assertNullDecimal(t, "latestHint", p.LatestHint, "200")
		}
	})

	t.Run("tracks first and last trade dates", func(t *testing.T) {
		first := buy("AAPL", "IBKR", "1", "100", "0")
		first.TradeDate = day(2)
		last := sell("AAPL", "IBKR", "1", "100", "0")
		last.TradeDate = day(12)

		p := holdings.Aggregate([]model.Transaction{last, first})[0]

		if p.FirstTradeDate == nil || !p.FirstTradeDate.Equal(*day(2)) {
			t.Errorf("Expected first trade date %v, got %v", day(2), p.FirstTradeDate)
		}
		if p.LastTradeDate == nil || !p.LastTradeDate.Equal(*day(12)) {
			t.Errorf("Expected last trade date %v, got %v", day(12), p.LastTradeDate)
		}
	})
}

func TestAggregate_DoesNotMutateInput(t *testing.T) {
	first := buy("AAPL", "IBKR", "1", "100", "0")
	first.TradeDate = day(9)
	second := buy("MSFT", "IBKR", "1", "100", "0")
	second.TradeDate = day(1)
	txs := []model.Transaction{first, second}

	holdings.Aggregate(txs)
	holdings.Analyze(txs)

	if txs[0].ID != first.ID || txs[1].ID != second.ID {
		t.Error("Expected input order to be preserved")
	}
}

func TestParseCostMethod(t *testing.T) {
	tests := []struct {
		in      string
		want    holdings.CostMethod
		wantErr bool
	}{
		{in: "", want: holdings.AverageCost},
		{in: "average", want: holdings.AverageCost},
		{in: " Uniform ", want: holdings.UniformCost},
		{in: "fifo", wantErr: true},
	}

	for _, tt := range tests {
		got, err := holdings.ParseCostMethod(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseCostMethod(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseCostMethod(%q) returned unexpected error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseCostMethod(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
